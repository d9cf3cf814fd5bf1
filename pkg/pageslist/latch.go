// pkg/pageslist/latch.go
package pageslist

import "sync"

// Latch is a per-page read-write lock. Structural decisions (split,
// merge, stripe add/drop) happen only under a write latch; every
// Lock/RLock call may block, TryLock never does (spec.md §5).
//
// Grounded on the PageLatch/LatchManager pattern used for B-tree latch
// coupling elsewhere in the pack; pageslist needs the non-blocking
// TryLock form that pattern lacked, which sync.RWMutex has provided
// natively since Go 1.18.
type Latch struct {
	mu sync.RWMutex
}

// Lock acquires the write latch, blocking if necessary.
func (l *Latch) Lock() { l.mu.Lock() }

// Unlock releases the write latch.
func (l *Latch) Unlock() { l.mu.Unlock() }

// RLock acquires the read latch, blocking if necessary.
func (l *Latch) RLock() { l.mu.RLock() }

// RUnlock releases the read latch.
func (l *Latch) RUnlock() { l.mu.RUnlock() }

// TryLock attempts to acquire the write latch without blocking.
func (l *Latch) TryLock() bool { return l.mu.TryLock() }

// TryRLock attempts to acquire the read latch without blocking.
func (l *Latch) TryRLock() bool { return l.mu.TryRLock() }
