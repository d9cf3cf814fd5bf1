// Package pageslist implements a striped, doubly-linked, on-disk page
// list used to track free/partially-filled data pages (by fill-fraction
// bucket) and a reuse list of recyclable empty pages, for tur's pager.
//
// The core combines per-page latching under a strict next→current→
// previous lock order, lock-free stripe selection via CAS, and a redo
// protocol (pageslist.Record WAL deltas) that stays crash-consistent
// with in-place page mutations.
package pageslist

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
)

// Logger is an optional diagnostic hook, nil-safe, invoked only on
// corruption detection and stripe-growth events (see SPEC_FULL.md §8).
type Logger func(format string, args ...any)

// CorruptionError signals an invariant violation: missing tail, a meta
// chain loop, or a node claiming to own a slot it does not list.
// Fatal — callers must treat it as unrecoverable (spec.md §7).
type CorruptionError struct {
	PageID  PageID
	Message string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("pageslist: corruption at page %d: %s", e.PageID.Num(), e.Message)
}

// wrapOp wraps an I/O failure with the operation name at the public
// boundary (spec.md §7), leaving a nil error or a *CorruptionError
// untouched so callers can still errors.As into the latter.
func (pl *PageList) wrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CorruptionError
	if errors.As(err, &ce) {
		return err
	}
	return fmt.Errorf("pageslist: %s: %w", op, err)
}

// Buckets is the capability the engine injects to tell pageslist which
// bucket is the reuse bucket (spec.md §9 design notes: "re-architect as
// three injected capabilities").
type Buckets interface {
	// IsReuseBucket reports whether bucket is the designated reuse
	// bucket — the one holding fully-empty recyclable pages.
	IsReuseBucket(bucket int) bool
}

// Options configures a PageList. Zero values fall back to the
// documented defaults below (spec.md §6's config table).
type Options struct {
	// PageSize is the page size in bytes; must match the PageMemory's.
	PageSize int

	// Buckets is the number of fill-fraction buckets the caller exposes.
	Buckets int

	// MetaPageID is the head of the meta-page chain.
	MetaPageID PageID

	// TryLockAttempts is the number of non-blocking latch attempts
	// before growing a stripe / falling back to blocking. Default 10.
	TryLockAttempts int

	// MaxStripesPerBucket hard-caps stripes per bucket. Default
	// min(8, 2*runtime.NumCPU()).
	MaxStripesPerBucket int

	// Logger optionally receives diagnostic messages. May be nil.
	Logger Logger
}

const defaultTryLockAttempts = 10

func defaultMaxStripesPerBucket() int {
	n := 2 * runtime.NumCPU()
	if n > 8 {
		return 8
	}
	return n
}

// PageList is the striped free/reuse page list core. Construct with
// NewPageList and either Init (to load persisted stripe tails) or use
// directly against an empty meta chain for a brand-new list.
type PageList struct {
	mem     PageMemory
	sink    Sink
	cacheID uint32
	logger  Logger

	pageSize   int
	numBuckets int
	metaPageID PageID
	buckets    Buckets

	tryLockAttempts     int
	maxStripesPerBucket int

	slots []*bucketSlot
	hints []atomic.Int32

	recycleCount atomic.Uint64
}

// NewPageList constructs a PageList. cacheID identifies this list in
// emitted WAL records (spec.md §6's record field). mem and sink must
// be non-nil; buckets may be nil only if the caller never uses the
// reuse-bucket split path (IsReuseBucket then reports false for every
// bucket).
func NewPageList(cacheID uint32, mem PageMemory, sink Sink, buckets Buckets, opts Options) *PageList {
	pageSize := opts.PageSize
	if pageSize == 0 {
		pageSize = 4096
	}
	tryLockAttempts := opts.TryLockAttempts
	if tryLockAttempts <= 0 {
		tryLockAttempts = defaultTryLockAttempts
	}
	maxStripes := opts.MaxStripesPerBucket
	if maxStripes <= 0 {
		maxStripes = defaultMaxStripesPerBucket()
	}
	numBuckets := opts.Buckets
	if numBuckets <= 0 {
		numBuckets = 1
	}

	pl := &PageList{
		mem:                 mem,
		sink:                sink,
		cacheID:             cacheID,
		logger:              opts.Logger,
		pageSize:            pageSize,
		numBuckets:          numBuckets,
		metaPageID:          opts.MetaPageID,
		buckets:             buckets,
		tryLockAttempts:     tryLockAttempts,
		maxStripesPerBucket: maxStripes,
		slots:               make([]*bucketSlot, numBuckets),
		hints:               make([]atomic.Int32, numBuckets),
	}
	for i := range pl.slots {
		pl.slots[i] = newBucketSlot()
		pl.hints[i].Store(-1)
	}
	return pl
}

func (pl *PageList) bucketSlot(bucket int) *bucketSlot {
	return pl.slots[bucket]
}

func (pl *PageList) tailHint(bucket int) int {
	return int(pl.hints[bucket].Load())
}

func (pl *PageList) setTailHint(bucket, idx int) {
	pl.hints[bucket].Store(int32(idx))
}

func (pl *PageList) isReuseBucket(bucket int) bool {
	if pl.buckets == nil {
		return false
	}
	return pl.buckets.IsReuseBucket(bucket)
}

// reuseBucket returns the index of the designated reuse bucket, or -1
// if none of the configured buckets is one (spec.md §9: "the engine's
// reuse list").
func (pl *PageList) reuseBucket() int {
	for b := 0; b < pl.numBuckets; b++ {
		if pl.isReuseBucket(b) {
			return b
		}
	}
	return -1
}

func (pl *PageList) corrupt(id PageID, msg string) error {
	err := &CorruptionError{PageID: id, Message: msg}
	pl.logf("pageslist: %v", err)
	return err
}

func (pl *PageList) logf(format string, args ...any) {
	if pl.logger != nil {
		pl.logger(format, args...)
	}
}

// Tails returns a snapshot of the tail page ids currently held in
// bucket's stripe set. Exposed for tests and diagnostics (spec.md §8
// item 3).
func (pl *PageList) Tails(bucket int) []PageID {
	set := pl.bucketSlot(bucket).load()
	if set == nil {
		return nil
	}
	out := make([]PageID, set.Len())
	for i := 0; i < set.Len(); i++ {
		out[i] = set.At(i).TailID()
	}
	return out
}

// StripeCount returns the number of live stripes in bucket.
func (pl *PageList) StripeCount(bucket int) int {
	return pl.bucketSlot(bucket).load().Len()
}
