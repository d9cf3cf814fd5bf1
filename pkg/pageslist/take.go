// pkg/pageslist/take.go
package pageslist

// InitIoVersions re-initializes a drained node page's buffer in place
// as a fresh data page of the given io type/version, returning what
// those fields were set to (so the caller's WAL record and pageslist's
// own InitNewPage record agree). When TakeEmptyPage is called with a
// nil InitIoVersions, the drained page is recycled (generation
// rotated) instead of reinitialized in place.
type InitIoVersions func(buf []byte) (ioType, ioVersion uint8)

// TakeEmptyPage removes and returns one empty page from bucket for the
// caller to repurpose as a data page, or 0 if the bucket holds none
// (spec.md §4.3). Uses the same back-off write-latching as Put, except
// that reaching tryLockAttempts always grows a stripe to relieve
// contention before ever falling back to a blocking acquisition.
func (pl *PageList) TakeEmptyPage(bucket int, initIoVersions InitIoVersions) (PageID, error) {
	id, err := pl.takeEmptyPage(bucket, initIoVersions)
	return id, pl.wrapOp("TakeEmptyPage", err)
}

func (pl *PageList) takeEmptyPage(bucket int, initIoVersions InitIoVersions) (PageID, error) {
	for {
		stripe, err := pl.getPageForTake(bucket)
		if err != nil {
			return 0, err
		}
		if stripe == nil {
			return 0, nil // bucket has no stripes at all
		}

		handle, buf, retry, err := pl.acquireTailWrite(bucket, stripe)
		if err != nil {
			return 0, err
		}
		if retry {
			continue
		}

		nodeID := handle.ID()
		id, done, err := pl.takeEmptyPageHandler(bucket, nodeID, buf, initIoVersions)
		if err != nil {
			handle.ReleaseWrite(false)
			handle.Close()
			return 0, err
		}
		if !done {
			handle.ReleaseWrite(false)
			handle.Close()
			continue
		}
		handle.ReleaseWrite(true)
		handle.Close()
		return id, nil
	}
}

// takeEmptyPageHandler implements spec.md §4.3's handler body. Returns
// done=false to signal the caller should retry stripe selection (we
// are not really at the tail — a concurrent split raced us).
func (pl *PageList) takeEmptyPageHandler(bucket int, nodeID PageID, nodeBuf []byte, initIoVersions InitIoVersions) (PageID, bool, error) {
	if nodeNextID(nodeBuf, pl.pageSize) != 0 {
		return 0, false, nil // splitted: we are not really at the tail
	}

	if id, ok := takeAnyPageFromNode(nodeBuf, pl.pageSize); ok {
		if err := logIfPresent(pl.sink, pl.cacheID, nodeID, PagesListRemovePageRecord{NodePageID: nodeID, RemovedID: id}); err != nil {
			return 0, false, err
		}
		return id, true, nil
	}

	// Node is empty. Only the reuse bucket is allowed to keep an empty
	// tail node around indefinitely (spec.md §9: callers must not
	// assume non-reuse-bucket tails are ever left empty, but reuse
	// buckets legitimately have one).
	prevID := nodePreviousID(nodeBuf, pl.pageSize)
	if prevID == 0 {
		return 0, true, nil // sole node in the stripe: nothing to give
	}

	prevHandle := pl.mem.Page(prevID)
	prevBuf := prevHandle.GetForWrite()
	err := pl.cutTail(bucket, prevID, prevBuf, nodeID)
	prevHandle.ReleaseWrite(err == nil)
	prevHandle.Close()
	if err != nil {
		return 0, false, err
	}

	if initIoVersions != nil {
		ioType, ioVersion := initIoVersions(nodeBuf)
		newID := nodeID.WithType(TypeData)
		if err := logIfPresent(pl.sink, pl.cacheID, nodeID, InitNewPageRecord{
			PageID:    nodeID,
			IOType:    ioType,
			IOVersion: ioVersion,
			NewPageID: newID,
		}); err != nil {
			return 0, false, err
		}
		return newID, true, nil
	}

	newID, err := pl.recycle(nodeID, TypeData)
	if err != nil {
		return 0, false, err
	}
	return newID, true, nil
}
