// pkg/pageslist/pageio/node.go
// Package pageio implements the on-disk binary layouts used by the
// free/reuse page list: list-node pages, meta pages, and the
// freeListPageId back-pointer slot embedded in data pages.
//
// All layouts are version-tagged (a single leading byte) so a reader
// can always parse an earlier version while writers always emit the
// latest one (spec.md §6: "must be version-tagged and
// forward-compatible").
package pageio

import "encoding/binary"

// NodeVersion1 is the only node-page layout so far.
const NodeVersion1 byte = 1

// NodeHeaderSize is the fixed header prefix of a node page:
// version(1) + previousId(8) + nextId(8) + count(4).
const NodeHeaderSize = 1 + 8 + 8 + 4

// idSize is the encoded width of a page id slot.
const idSize = 8

// NodeCapacity returns the number of page-id slots a node page of the
// given size can hold.
func NodeCapacity(pageSize int) int {
	n := (pageSize - NodeHeaderSize) / idSize
	if n < 0 {
		return 0
	}
	return n
}

// Node is the decoded, in-memory form of a list-node page payload.
type Node struct {
	PreviousID uint64
	NextID     uint64
	Count      uint32
	Slots      []uint64 // len == capacity; only Slots[:Count] are live
}

// NewNode builds an empty node sized for the given page size.
func NewNode(pageSize int) *Node {
	return &Node{Slots: make([]uint64, NodeCapacity(pageSize))}
}

// Encode writes the node to buf, which must be at least pageSize bytes.
func (n *Node) Encode(buf []byte) {
	buf[0] = NodeVersion1
	binary.LittleEndian.PutUint64(buf[1:9], n.PreviousID)
	binary.LittleEndian.PutUint64(buf[9:17], n.NextID)
	binary.LittleEndian.PutUint32(buf[17:21], n.Count)
	off := NodeHeaderSize
	for i := uint32(0); i < n.Count; i++ {
		binary.LittleEndian.PutUint64(buf[off:off+idSize], n.Slots[i])
		off += idSize
	}
}

// DecodeNode parses a node page payload. The buffer may have been
// written by an earlier (but still version 1) writer; future versions
// must branch on buf[0] here first.
func DecodeNode(buf []byte, pageSize int) *Node {
	n := &Node{Slots: make([]uint64, NodeCapacity(pageSize))}
	if len(buf) < NodeHeaderSize {
		return n
	}
	// buf[0] is the version tag; only version 1 exists today.
	n.PreviousID = binary.LittleEndian.Uint64(buf[1:9])
	n.NextID = binary.LittleEndian.Uint64(buf[9:17])
	n.Count = binary.LittleEndian.Uint32(buf[17:21])
	off := NodeHeaderSize
	for i := uint32(0); i < n.Count && i < uint32(len(n.Slots)); i++ {
		n.Slots[i] = binary.LittleEndian.Uint64(buf[off : off+idSize])
		off += idSize
	}
	return n
}
