// pkg/pageslist/merge.go
package pageslist

// cutTail implements the shared "cutTail" step used by both take
// (spec.md §4.3 step 6) and mergeNoNext (spec.md §4.5): given the
// previous node (already write-latched), clear its nextId and advance
// the bucket's tail to it.
func (pl *PageList) cutTail(bucket int, prevID PageID, prevBuf []byte, drainedID PageID) error {
	nodeSetNextID(prevBuf, pl.pageSize, 0)
	if err := logIfPresent(pl.sink, pl.cacheID, prevID, PagesListSetNextRecord{PageID: prevID, NextID: 0}); err != nil {
		return err
	}
	return pl.updateTail(bucket, drainedID, prevID)
}

// recycle rotates id's generation, logs the WAL Recycle delta, and
// returns the new id (spec.md §8 item 8: recycle monotonicity).
func (pl *PageList) recycle(id PageID, typ PageType) (PageID, error) {
	rotated := id.Rotate(typ)
	if err := logIfPresent(pl.sink, pl.cacheID, id, RecycleRecord{PageID: id, RotatedPageID: rotated}); err != nil {
		return 0, err
	}
	pl.recycleCount.Add(1)
	return rotated, nil
}

// mergeNoNext implements spec.md §4.5's mergeNoNext: the caller holds
// the node's write latch, the node is empty, and nextId == 0 (it is
// the tail of its stripe). Returns the recycled page id the node
// became, or 0 if nothing was recycled (reuse bucket: empty tails are
// normal there and are left alone).
func (pl *PageList) mergeNoNext(bucket int, nodeID PageID, nodeBuf []byte, prevID PageID) (PageID, error) {
	if pl.isReuseBucket(bucket) {
		return 0, nil
	}

	if prevID != 0 {
		prevHandle := pl.mem.Page(prevID)
		defer prevHandle.Close()
		prevBuf := prevHandle.GetForWrite()
		err := pl.cutTail(bucket, prevID, prevBuf, nodeID)
		prevHandle.ReleaseWrite(err == nil)
		if err != nil {
			return 0, err
		}
	} else {
		if err := pl.updateTail(bucket, nodeID, 0); err != nil {
			return 0, err
		}
	}

	return pl.recycle(nodeID, TypeIndex)
}

// merge implements spec.md §4.5's merge: node is empty and has a
// successor. Respects the strict next→current→previous lock order by
// latching next before current, re-validating both after acquiring
// the pair. Returns the recycled id, or 0 if the merge turned out to
// be unnecessary (a concurrent change already resolved it).
func (pl *PageList) merge(bucket int, currentID PageID) (PageID, error) {
	for {
		curHandleProbe := pl.mem.Page(currentID)
		curBufProbe := curHandleProbe.GetForRead()
		nextID := nodeNextID(curBufProbe, pl.pageSize)
		curHandleProbe.ReleaseRead()
		curHandleProbe.Close()

		if nextID == 0 {
			return 0, nil
		}

		nextHandle := pl.mem.Page(nextID)
		nextBuf := nextHandle.GetForWrite()

		curHandle := pl.mem.Page(currentID)
		curBuf := curHandle.GetForWrite()

		if curHandle.ID() != currentID {
			// Concurrent recycle already made this merge unnecessary.
			curHandle.ReleaseWrite(false)
			curHandle.Close()
			nextHandle.ReleaseWrite(false)
			nextHandle.Close()
			return 0, nil
		}

		if !nodeIsEmpty(curBuf, pl.pageSize) || nodeNextID(curBuf, pl.pageSize) != nextID {
			// Stale view: current changed since the probe. Refresh and retry.
			curHandle.ReleaseWrite(false)
			curHandle.Close()
			nextHandle.ReleaseWrite(false)
			nextHandle.Close()
			continue
		}

		recycled, err := pl.doMerge(bucket, currentID, curBuf, nextID, nextBuf)

		curHandle.ReleaseWrite(err == nil)
		curHandle.Close()
		nextHandle.ReleaseWrite(err == nil)
		nextHandle.Close()

		return recycled, err
	}
}

// doMerge implements spec.md §4.5's doMerge, called with next and
// current both write-latched (current acquired after next, honoring
// the lock order).
func (pl *PageList) doMerge(bucket int, currentID PageID, curBuf []byte, nextID PageID, nextBuf []byte) (PageID, error) {
	prevID := nodePreviousID(curBuf, pl.pageSize)

	if prevID == 0 {
		// current is head: next becomes the new head.
		nodeSetPreviousID(nextBuf, pl.pageSize, 0)
		if err := logIfPresent(pl.sink, pl.cacheID, nextID, PagesListSetPreviousRecord{PageID: nextID, PreviousID: 0}); err != nil {
			return 0, err
		}
	} else {
		// Fair merge: relink current's neighbors, holding prev briefly.
		prevHandle := pl.mem.Page(prevID)
		prevBuf := prevHandle.GetForWrite()

		nodeSetNextID(prevBuf, pl.pageSize, nextID)
		err := logIfPresent(pl.sink, pl.cacheID, prevID, PagesListSetNextRecord{PageID: prevID, NextID: nextID})
		if err == nil {
			nodeSetPreviousID(nextBuf, pl.pageSize, prevID)
			err = logIfPresent(pl.sink, pl.cacheID, nextID, PagesListSetPreviousRecord{PageID: nextID, PreviousID: prevID})
		}
		prevHandle.ReleaseWrite(err == nil)
		prevHandle.Close()
		if err != nil {
			return 0, err
		}
	}

	return pl.recycle(currentID, TypeIndex)
}
