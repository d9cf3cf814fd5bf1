// pkg/pageslist/node.go
package pageslist

import "tur/pkg/pageslist/pageio"

// encodeEmptyNode initializes buf as a freshly-allocated, empty node
// page (spec.md §3: Node page operation initNewPage).
func encodeEmptyNode(buf []byte, pageSize int) {
	n := pageio.NewNode(pageSize)
	n.Encode(buf)
}

// loadNode decodes a node page's payload for inspection/mutation. The
// caller must already hold an appropriate latch on the page.
func loadNode(buf []byte, pageSize int) *pageio.Node {
	return pageio.DecodeNode(buf, pageSize)
}

// storeNode re-encodes a node back into buf after mutation.
func storeNode(buf []byte, n *pageio.Node) {
	n.Encode(buf)
}

// addPageToNode adds id as a payload slot. Returns the slot index, or
// -1 if the node's payload is already at capacity (spec.md §3:
// addPage(id)→slot|−1).
func addPageToNode(buf []byte, pageSize int, id PageID) int {
	n := loadNode(buf, pageSize)
	if int(n.Count) >= len(n.Slots) {
		return -1
	}
	slot := int(n.Count)
	n.Slots[slot] = uint64(id)
	n.Count++
	storeNode(buf, n)
	return slot
}

// removePageFromNode removes id from the node's payload if present,
// compacting the slot array. Reports whether id was found (spec.md §3:
// removePage(id)→bool).
func removePageFromNode(buf []byte, pageSize int, id PageID) bool {
	n := loadNode(buf, pageSize)
	idx := -1
	for i := uint32(0); i < n.Count; i++ {
		if PageID(n.Slots[i]) == id {
			idx = int(i)
			break
		}
	}
	if idx < 0 {
		return false
	}
	for i := idx; i < int(n.Count)-1; i++ {
		n.Slots[i] = n.Slots[i+1]
	}
	n.Count--
	n.Slots[n.Count] = 0
	storeNode(buf, n)
	return true
}

// takeAnyPageFromNode removes and returns one arbitrary page id from
// the node's payload (the last slot, for O(1) removal). Returns
// (0, false) if the node has no payload (spec.md §3:
// takeAnyPage()→id|0).
func takeAnyPageFromNode(buf []byte, pageSize int) (PageID, bool) {
	n := loadNode(buf, pageSize)
	if n.Count == 0 {
		return 0, false
	}
	n.Count--
	id := PageID(n.Slots[n.Count])
	n.Slots[n.Count] = 0
	storeNode(buf, n)
	return id, true
}

// nodeIsEmpty reports whether the node currently has no payload.
func nodeIsEmpty(buf []byte, pageSize int) bool {
	return loadNode(buf, pageSize).Count == 0
}

// nodeCount returns the node's current payload count.
func nodeCount(buf []byte, pageSize int) uint32 {
	return loadNode(buf, pageSize).Count
}

// nodeNextID returns the node's nextId link.
func nodeNextID(buf []byte, pageSize int) PageID {
	return PageID(loadNode(buf, pageSize).NextID)
}

// nodePreviousID returns the node's previousId link.
func nodePreviousID(buf []byte, pageSize int) PageID {
	return PageID(loadNode(buf, pageSize).PreviousID)
}

// nodeSetNextID sets the node's nextId link in place.
func nodeSetNextID(buf []byte, pageSize int, next PageID) {
	n := loadNode(buf, pageSize)
	n.NextID = uint64(next)
	storeNode(buf, n)
}

// nodeSetPreviousID sets the node's previousId link in place.
func nodeSetPreviousID(buf []byte, pageSize int, prev PageID) {
	n := loadNode(buf, pageSize)
	n.PreviousID = uint64(prev)
	storeNode(buf, n)
}
