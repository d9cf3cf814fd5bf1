// pkg/pageslist/remove.go
package pageslist

import "tur/pkg/pageslist/pageio"

// RemoveDataPage removes dataPageID's slot from whichever node owns it
// (spec.md §4.4), reading the owning node id out of dataPageBuf's own
// back-pointer header. Reports false if the entry was already gone
// (concurrent recycle raced this call).
func (pl *PageList) RemoveDataPage(dataPageID PageID, dataPageBuf []byte, bucket int) (bool, error) {
	ok, err := pl.removeDataPage(dataPageID, dataPageBuf, bucket)
	return ok, pl.wrapOp("RemoveDataPage", err)
}

func (pl *PageList) removeDataPage(dataPageID PageID, dataPageBuf []byte, bucket int) (bool, error) {
	nodeID := PageID(pageio.GetFreeListPageID(dataPageBuf))
	if nodeID == 0 {
		return false, nil
	}

	nodeHandle := pl.mem.Page(nodeID)
	nodeBuf := nodeHandle.GetForWrite()

	if nodeHandle.ID() != nodeID {
		nodeHandle.ReleaseWrite(false)
		nodeHandle.Close()
		return false, nil // concurrent recycle: entry already gone
	}

	if !removePageFromNode(nodeBuf, pl.pageSize, dataPageID) {
		nodeHandle.ReleaseWrite(false)
		nodeHandle.Close()
		return false, nil
	}
	if err := logIfPresent(pl.sink, pl.cacheID, nodeID, PagesListRemovePageRecord{NodePageID: nodeID, RemovedID: dataPageID}); err != nil {
		nodeHandle.ReleaseWrite(true)
		nodeHandle.Close()
		return false, err
	}

	pageio.PutFreeListPageID(dataPageBuf, 0)
	if err := logIfPresent(pl.sink, pl.cacheID, dataPageID, DataPageSetFreeListPageRecord{DataPageID: dataPageID, FreeListPageID: 0}); err != nil {
		nodeHandle.ReleaseWrite(true)
		nodeHandle.Close()
		return false, err
	}

	if !nodeIsEmpty(nodeBuf, pl.pageSize) {
		nodeHandle.ReleaseWrite(true)
		nodeHandle.Close()
		return true, nil
	}

	nextID := nodeNextID(nodeBuf, pl.pageSize)
	prevID := nodePreviousID(nodeBuf, pl.pageSize)

	var recycled PageID
	var mergeErr error
	if nextID == 0 {
		// Tail: next→current→previous order has no "next" to take
		// first, so mergeNoNext runs under the latch we already hold.
		recycled, mergeErr = pl.mergeNoNext(bucket, nodeID, nodeBuf, prevID)
		nodeHandle.ReleaseWrite(mergeErr == nil)
		nodeHandle.Close()
	} else {
		// Release current first: merge re-acquires next, then current,
		// honoring the strict lock order.
		nodeHandle.ReleaseWrite(true)
		nodeHandle.Close()
		recycled, mergeErr = pl.merge(bucket, nodeID)
	}
	if mergeErr != nil {
		return false, mergeErr
	}

	if recycled != 0 {
		if rb := pl.reuseBucket(); rb >= 0 {
			if err := pl.putReuseBag(NewSingletonReuseBag(recycled), rb); err != nil {
				return false, err
			}
		}
	}

	return true, nil
}
