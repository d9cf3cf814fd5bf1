// pkg/pageslist/stats.go
package pageslist

import "sync/atomic"

// Stats is a read-only snapshot of a PageList's health, in the spirit
// of the rest of the engine's Stats()-style diagnostic surfaces.
type Stats struct {
	StripesPerBucket []int
	TotalStripes     int
	RecycleCount     uint64
}

// Stats computes a fresh snapshot. Safe to call concurrently with any
// other operation; counts are consistent with some moment during the
// call, not necessarily with each other.
func (pl *PageList) Stats() Stats {
	s := Stats{
		StripesPerBucket: make([]int, pl.numBuckets),
		RecycleCount:     pl.recycleCount.Load(),
	}
	for b := 0; b < pl.numBuckets; b++ {
		n := pl.StripeCount(b)
		s.StripesPerBucket[b] = n
		s.TotalStripes += n
	}
	return s
}
