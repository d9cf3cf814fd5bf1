// pkg/pageslist/pageio/datapage.go
package pageio

import "encoding/binary"

// FreeListPageIDVersion1 is the only freeListPageId slot layout so far.
const FreeListPageIDVersion1 byte = 1

// FreeListPageIDOffset reserves byte 0 of the data page for the
// engine's own page-type tag — the same byte pager.Page.Type/SetType
// reads and writes, and the convention pkg/hnsw/persistent.go's
// SetType(pager.PageTypeHNSWMeta) and pkg/btree/node.go's
// data[0] = flagLeaf already rely on. The back-pointer slot starts
// immediately after it so registering a data page with the free list
// never clobbers its existing type/flag byte.
const FreeListPageIDOffset = 1

// FreeListPageIDSlotSize is the fixed width of the back-pointer slot
// embedded in a data page's header, starting at FreeListPageIDOffset:
// version(1) + freeListPageId(8).
const FreeListPageIDSlotSize = 1 + 8

// PutFreeListPageID writes the owning node page id into a data page's
// back-pointer slot. A zero id means the data page is not currently on
// any list (spec.md §3: "when the data page leaves the list,
// freeListPageId = 0"). buf is the data page's full buffer, not just
// the slot — the offset is applied internally.
func PutFreeListPageID(buf []byte, nodePageID uint64) {
	slot := buf[FreeListPageIDOffset:]
	slot[0] = FreeListPageIDVersion1
	binary.LittleEndian.PutUint64(slot[1:9], nodePageID)
}

// GetFreeListPageID reads a data page's back-pointer slot from buf,
// the data page's full buffer.
func GetFreeListPageID(buf []byte) uint64 {
	if len(buf) < FreeListPageIDOffset+FreeListPageIDSlotSize {
		return 0
	}
	slot := buf[FreeListPageIDOffset:]
	return binary.LittleEndian.Uint64(slot[1:9])
}
