// pkg/pageslist/stripe.go
package pageslist

import (
	"math/rand"
	"sync/atomic"
)

// Stripe is one of several parallel doubly-linked lists within a
// bucket. Only TailID is observably mutable once a Stripe is
// published; array identity (StripeSet) changes only via CAS
// (spec.md §3, §4.1).
type Stripe struct {
	tailID atomic.Uint64 // PageID of this stripe's current tail node page
}

// NewStripe builds a stripe pointing at the given initial tail.
func NewStripe(tailID PageID) *Stripe {
	s := &Stripe{}
	s.tailID.Store(uint64(tailID))
	return s
}

// TailID returns the stripe's current tail page id.
func (s *Stripe) TailID() PageID {
	return PageID(s.tailID.Load())
}

// setTail mutates TailID in place. Legal only while the write latch on
// the old tail page is held — the tail write latch is what serializes
// this, not a CAS (spec.md §4.1).
func (s *Stripe) setTail(id PageID) {
	s.tailID.Store(uint64(id))
}

// StripeSet is an immutable snapshot of a bucket's stripes. Replacement
// is always whole-array, via CAS on the owning bucketSlot.
type StripeSet struct {
	stripes []*Stripe
}

// Len returns the number of stripes in the set.
func (s *StripeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.stripes)
}

// At returns the i'th stripe.
func (s *StripeSet) At(i int) *Stripe {
	return s.stripes[i]
}

// RandomStripe picks one stripe uniformly at random (spec.md §4.2 step 1,
// §4.3 step 1: "choose one uniformly at random from the tails array").
func (s *StripeSet) RandomStripe() *Stripe {
	if s.Len() == 0 {
		return nil
	}
	return s.stripes[rand.Intn(s.Len())]
}

// bucketSlot holds the atomically-replaceable *StripeSet for one bucket.
type bucketSlot struct {
	set atomic.Pointer[StripeSet]
}

func newBucketSlot() *bucketSlot {
	b := &bucketSlot{}
	b.set.Store(nil)
	return b
}

func (b *bucketSlot) load() *StripeSet {
	return b.set.Load()
}

func (b *bucketSlot) cas(old, new *StripeSet) bool {
	return b.set.CompareAndSwap(old, new)
}

// withStripeAppended returns a new StripeSet with stripe appended to
// the current one (nil-safe).
func withStripeAppended(cur *StripeSet, stripe *Stripe) *StripeSet {
	var old []*Stripe
	if cur != nil {
		old = cur.stripes
	}
	next := make([]*Stripe, len(old)+1)
	copy(next, old)
	next[len(old)] = stripe
	return &StripeSet{stripes: next}
}

// withStripeRemoved returns a new StripeSet (or nil, if it was the
// last stripe) with the stripe whose TailID == oldTailID removed.
// found reports whether such a stripe existed.
func withStripeRemoved(cur *StripeSet, oldTailID PageID) (next *StripeSet, found bool) {
	if cur == nil {
		return nil, false
	}
	idx := -1
	for i, s := range cur.stripes {
		if s.TailID() == oldTailID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return cur, false
	}
	if len(cur.stripes) == 1 {
		return nil, true
	}
	rest := make([]*Stripe, 0, len(cur.stripes)-1)
	rest = append(rest, cur.stripes[:idx]...)
	rest = append(rest, cur.stripes[idx+1:]...)
	return &StripeSet{stripes: rest}, true
}

// updateTail implements spec.md §4.1's updateTail: either drops the
// stripe whose tail was nodeID (newTailID == 0), via a CAS retry loop,
// or mutates that stripe's TailID in place (no CAS needed — serialized
// by the caller already holding the old tail's write latch).
func (pl *PageList) updateTail(bucket int, oldTailID, newTailID PageID) error {
	slot := pl.bucketSlot(bucket)

	if newTailID == 0 {
		for {
			cur := slot.load()
			next, found := withStripeRemoved(cur, oldTailID)
			if !found {
				return pl.corrupt(oldTailID, "updateTail: stripe tail not found for removal")
			}
			if slot.cas(cur, next) {
				return nil
			}
		}
	}

	cur := slot.load()
	if cur == nil {
		return pl.corrupt(oldTailID, "updateTail: bucket has no stripes")
	}
	hint := pl.tailHint(bucket)
	if hint >= 0 && hint < cur.Len() && cur.At(hint).TailID() == oldTailID {
		cur.At(hint).setTail(newTailID)
		return nil
	}
	for i := 0; i < cur.Len(); i++ {
		if cur.At(i).TailID() == oldTailID {
			cur.At(i).setTail(newTailID)
			pl.setTailHint(bucket, i)
			return nil
		}
	}
	return pl.corrupt(oldTailID, "updateTail: stripe tail not found")
}

// addStripe implements spec.md §4.1's addStripe: allocate a node page
// (from the reuse list when allowReuse, else direct), initialize it as
// an empty node, and CAS-append it to the bucket's stripe set,
// retrying the CAS on contention.
func (pl *PageList) addStripe(bucket int, allowReuse bool) (*Stripe, error) {
	var id PageID
	var err error
	if allowReuse {
		id, err = pl.mem.AllocatePage(nil)
	} else {
		id, err = pl.mem.AllocatePageNoReuse()
	}
	if err != nil {
		return nil, err
	}
	id = id.WithType(TypeIndex)

	handle := pl.mem.Page(id)
	defer handle.Close()
	buf := handle.GetForWrite()
	encodeEmptyNode(buf, pl.pageSize)
	handle.ReleaseWrite(true)
	if err := logIfPresent(pl.sink, pl.cacheID, id, PagesListInitNewPageRecord{PageID: id}); err != nil {
		return nil, err
	}

	stripe := NewStripe(id)
	slot := pl.bucketSlot(bucket)
	for {
		cur := slot.load()
		next := withStripeAppended(cur, stripe)
		if slot.cas(cur, next) {
			return stripe, nil
		}
	}
}
