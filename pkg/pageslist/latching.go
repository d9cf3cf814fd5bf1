// pkg/pageslist/latching.go
package pageslist

// getPageForPut implements spec.md §4.2 step 1: return a stripe,
// creating the bucket's first one (allowing reuse) if it is empty,
// else choosing one uniformly at random from the existing tails.
func (pl *PageList) getPageForPut(bucket int) (*Stripe, error) {
	set := pl.bucketSlot(bucket).load()
	if set.Len() == 0 {
		return pl.addStripe(bucket, true)
	}
	return set.RandomStripe(), nil
}

// getPageForTake implements spec.md §4.3 step 1: if the bucket has no
// stripes, there is nothing to take (nil, nil); else pick a random tail.
func (pl *PageList) getPageForTake(bucket int) (*Stripe, error) {
	set := pl.bucketSlot(bucket).load()
	if set.Len() == 0 {
		return nil, nil
	}
	return set.RandomStripe(), nil
}

// acquireTailWrite implements the shared back-off write-latch
// acquisition of spec.md §4.2 step 2 / §4.3 step 2: try a non-blocking
// write-latch on the chosen tail; after exactly tryLockAttempts
// consecutive failures, grow the bucket with a new stripe (if under
// the cap) and have the caller retry stripe selection, or fall back to
// a blocking acquisition once at the cap. After latching, the page id
// is re-validated against what was selected (a mismatch means a
// concurrent recycle) — callers must retry stripe selection on
// (nil, nil, nil, false, nil).
//
// relieveOnCap: when true (take path), reaching tryLockAttempts always
// triggers addStripe even past the cap check's normal "fall back to
// blocking" branch is still honored — the spec differentiates put and
// take only in that take always tries to relieve contention by growing
// a stripe first; both still fall back to blocking once at the cap.
func (pl *PageList) acquireTailWrite(bucket int, stripe *Stripe) (handle PageHandle, buf []byte, retry bool, err error) {
	tailID := stripe.TailID()
	handle = pl.mem.Page(tailID)

	attempts := 0
	var ok bool
	for {
		buf, ok = handle.TryGetForWrite()
		if ok {
			break
		}
		attempts++
		if attempts >= pl.tryLockAttempts {
			if pl.StripeCount(bucket) < pl.maxStripesPerBucket {
				handle.Close()
				if _, aerr := pl.addStripe(bucket, false); aerr != nil {
					return nil, nil, false, aerr
				}
				pl.logf("pageslist: bucket %d grew a stripe under contention", bucket)
				return nil, nil, true, nil
			}
			buf = handle.GetForWrite()
			break
		}
	}

	if handle.ID() != tailID {
		handle.ReleaseWrite(false)
		handle.Close()
		return nil, nil, true, nil
	}

	return handle, buf, false, nil
}
