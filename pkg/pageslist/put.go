// pkg/pageslist/put.go
package pageslist

import "tur/pkg/pageslist/pageio"

// PutDataPage registers a single non-empty data page with bucket,
// inserting its id into a stripe's tail node (spec.md §4.2, mode 2:
// "put(null, dataPage, dataPageBuf, bucket)"). dataPageBuf is the data
// page's own backing bytes, already held write-latched by the caller;
// pageslist writes its back-pointer slot into it directly and, on
// split, may retype it into a node page (reuse bucket only).
func (pl *PageList) PutDataPage(dataPageID PageID, dataPageBuf []byte, bucket int) error {
	return pl.wrapOp("Put", pl.putDataPage(dataPageID, dataPageBuf, bucket))
}

func (pl *PageList) putDataPage(dataPageID PageID, dataPageBuf []byte, bucket int) error {
	for {
		stripe, err := pl.getPageForPut(bucket)
		if err != nil {
			return err
		}

		handle, buf, retry, err := pl.acquireTailWrite(bucket, stripe)
		if err != nil {
			return err
		}
		if retry {
			continue
		}

		nodeID := handle.ID()
		done, err := pl.putDataPageHandler(nodeID, buf, dataPageID, dataPageBuf, bucket, stripe)
		if err != nil {
			handle.ReleaseWrite(false)
			handle.Close()
			return err
		}
		if !done {
			handle.ReleaseWrite(false)
			handle.Close()
			continue
		}
		handle.ReleaseWrite(true)
		handle.Close()
		return nil
	}
}

// putDataPageHandler implements spec.md §4.2's "putDataPage handler".
func (pl *PageList) putDataPageHandler(nodeID PageID, nodeBuf []byte, dataPageID PageID, dataPageBuf []byte, bucket int, stripe *Stripe) (bool, error) {
	if nodeNextID(nodeBuf, pl.pageSize) != 0 {
		return false, nil // splitted: we are not really at the tail
	}

	if slot := addPageToNode(nodeBuf, pl.pageSize, dataPageID); slot >= 0 {
		if err := logIfPresent(pl.sink, pl.cacheID, nodeID, PagesListAddPageRecord{NodePageID: nodeID, AddedID: dataPageID}); err != nil {
			return false, err
		}
		pageio.PutFreeListPageID(dataPageBuf, uint64(nodeID))
		if err := logIfPresent(pl.sink, pl.cacheID, dataPageID, DataPageSetFreeListPageRecord{DataPageID: dataPageID, FreeListPageID: nodeID}); err != nil {
			return false, err
		}
		return true, nil
	}

	// Node payload is at capacity: split.
	if pl.isReuseBucket(bucket) {
		// The data page we're inserting must itself be empty; retype
		// it into a node rather than allocating a fresh page — direct
		// allocation here would re-enter the reuse list and deadlock
		// (spec.md §4.2).
		newID := dataPageID.WithType(TypeIndex)
		encodeEmptyNode(dataPageBuf, pl.pageSize)
		nodeSetPreviousID(dataPageBuf, pl.pageSize, nodeID)
		if err := logIfPresent(pl.sink, pl.cacheID, newID, PagesListInitNewPageRecord{PageID: newID, PreviousID: nodeID}); err != nil {
			return false, err
		}

		nodeSetNextID(nodeBuf, pl.pageSize, newID)
		if err := logIfPresent(pl.sink, pl.cacheID, nodeID, PagesListSetNextRecord{PageID: nodeID, NextID: newID}); err != nil {
			return false, err
		}

		if err := pl.updateTail(bucket, nodeID, newID); err != nil {
			return false, err
		}
		return true, nil
	}

	// Non-reuse bucket: allocate a fresh index page for the new node.
	newID, err := pl.mem.AllocatePageNoReuse()
	if err != nil {
		return false, err
	}
	newID = newID.WithType(TypeIndex)

	newHandle := pl.mem.Page(newID)
	defer newHandle.Close()
	newBuf := newHandle.GetForWrite()
	encodeEmptyNode(newBuf, pl.pageSize)
	nodeSetPreviousID(newBuf, pl.pageSize, nodeID)
	if err := logIfPresent(pl.sink, pl.cacheID, newID, PagesListInitNewPageRecord{PageID: newID, PreviousID: nodeID}); err != nil {
		newHandle.ReleaseWrite(false)
		return false, err
	}

	addPageToNode(newBuf, pl.pageSize, dataPageID)
	if err := logIfPresent(pl.sink, pl.cacheID, newID, PagesListAddPageRecord{NodePageID: newID, AddedID: dataPageID}); err != nil {
		newHandle.ReleaseWrite(true)
		return false, err
	}
	pageio.PutFreeListPageID(dataPageBuf, uint64(newID))
	if err := logIfPresent(pl.sink, pl.cacheID, dataPageID, DataPageSetFreeListPageRecord{DataPageID: dataPageID, FreeListPageID: newID}); err != nil {
		newHandle.ReleaseWrite(true)
		return false, err
	}
	newHandle.ReleaseWrite(true)

	nodeSetNextID(nodeBuf, pl.pageSize, newID)
	if err := logIfPresent(pl.sink, pl.cacheID, nodeID, PagesListSetNextRecord{PageID: nodeID, NextID: newID}); err != nil {
		return false, err
	}

	if err := pl.updateTail(bucket, nodeID, newID); err != nil {
		return false, err
	}
	return true, nil
}

// PutReuseBag deposits a small collection of empty page ids into the
// reuse bucket (spec.md §4.2, mode 1: "put(bag, null, null, bucket)").
func (pl *PageList) PutReuseBag(bag *ReuseBag, bucket int) error {
	return pl.wrapOp("Put", pl.putReuseBag(bag, bucket))
}

func (pl *PageList) putReuseBag(bag *ReuseBag, bucket int) error {
	for {
		stripe, err := pl.getPageForPut(bucket)
		if err != nil {
			return err
		}

		handle, buf, retry, err := pl.acquireTailWrite(bucket, stripe)
		if err != nil {
			return err
		}
		if retry {
			continue
		}

		nodeID := handle.ID()
		done, err := pl.putReuseBagHandler(nodeID, buf, bag, bucket)
		if err != nil {
			handle.ReleaseWrite(false)
			handle.Close()
			return err
		}
		if !done {
			handle.ReleaseWrite(false)
			handle.Close()
			continue
		}
		handle.ReleaseWrite(true)
		handle.Close()
		return nil
	}
}

// putReuseBagHandler implements spec.md §4.2's "putReuseBag handler".
//
// Open question (spec.md §9): the PagesListAddPage delta emitted here
// is always logged against the original entry nodeID, never against
// the current working node id, even mid-drain after a promotion. This
// is preserved verbatim as specified rather than "fixed" — see
// DESIGN.md / SPEC_FULL.md §"DESIGN NOTES" for the replay argument.
func (pl *PageList) putReuseBagHandler(entryNodeID PageID, entryBuf []byte, bag *ReuseBag, bucket int) (bool, error) {
	if nodeNextID(entryBuf, pl.pageSize) != 0 {
		return false, nil
	}

	curID := entryNodeID
	curBuf := entryBuf
	var curHandle PageHandle // non-nil only once curID != entryNodeID

	for {
		id, ok := bag.Drain()
		if !ok {
			break
		}

		if slot := addPageToNode(curBuf, pl.pageSize, id); slot >= 0 {
			// TODO: use single WAL record for bag (spec.md §9) — each
			// drained id is logged individually for now.
			if err := logIfPresent(pl.sink, pl.cacheID, entryNodeID, PagesListAddPageRecord{NodePageID: entryNodeID, AddedID: id}); err != nil {
				return false, err
			}
			continue
		}

		// Node full: promote id itself into a new node rather than
		// allocating — we're in the reuse bucket, so allocating here
		// would deadlock (spec.md §4.2).
		newID := id.WithType(TypeIndex)
		newHandle := pl.mem.Page(newID)
		newBuf := newHandle.GetForWrite()
		encodeEmptyNode(newBuf, pl.pageSize)
		nodeSetPreviousID(newBuf, pl.pageSize, curID)
		if err := logIfPresent(pl.sink, pl.cacheID, newID, PagesListInitNewPageRecord{PageID: newID, PreviousID: curID}); err != nil {
			newHandle.ReleaseWrite(true)
			newHandle.Close()
			return false, err
		}

		nodeSetNextID(curBuf, pl.pageSize, newID)
		if err := logIfPresent(pl.sink, pl.cacheID, curID, PagesListSetNextRecord{PageID: curID, NextID: newID}); err != nil {
			newHandle.ReleaseWrite(true)
			newHandle.Close()
			return false, err
		}

		if curHandle != nil {
			curHandle.ReleaseWrite(true)
			curHandle.Close()
		}
		curID = newID
		curHandle = newHandle
		curBuf = newBuf
	}

	if curID != entryNodeID {
		if err := pl.updateTail(bucket, entryNodeID, curID); err != nil {
			if curHandle != nil {
				curHandle.ReleaseWrite(true)
				curHandle.Close()
			}
			return false, err
		}
		curHandle.ReleaseWrite(true)
		curHandle.Close()
	}

	return true, nil
}
