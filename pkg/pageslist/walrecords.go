// pkg/pageslist/walrecords.go
package pageslist

import (
	"encoding/binary"

	"tur/pkg/pageslist/pageio"
)

// RecordType identifies the kind of WAL delta a Record carries.
type RecordType uint8

const (
	RecordInitNewPage RecordType = iota + 1
	RecordPagesListInitNewPage
	RecordPagesListAddPage
	RecordPagesListRemovePage
	RecordPagesListSetNext
	RecordPagesListSetPrevious
	RecordDataPageSetFreeListPage
	RecordRecycle
)

// Record is a typed redo delta describing one incremental page
// mutation, as opposed to a full-page image (spec.md §6). Sink
// implementations serialize Encode()'s output as the WAL frame's
// payload alongside the record's page id and cache id.
type Record interface {
	Type() RecordType
	Encode() []byte

	// Apply replays this delta onto buf, the backing bytes of the page
	// the record targets (the same page id the Sink.Log call that
	// emitted it named), reproducing the in-place mutation the live
	// operation already performed. Recovery/replay tooling applies a
	// sequence of records, in emission order, to a page snapshot taken
	// before the sequence started (spec.md §8 item 5: "WAL replay...
	// reproduces byte-identical page contents").
	Apply(buf []byte, pageSize int)
}

// Sink is the WAL write path pageslist emits records through. A record
// is emitted only when the sink is non-nil and the page-memory layer
// has signalled that a delta (not a full-page snapshot) is appropriate
// for this mutation (spec.md §6).
type Sink interface {
	Log(cacheID uint32, pageID PageID, rec Record) error
}

// logIfPresent emits rec through sink when sink is non-nil, matching
// spec.md §6: "A record is emitted only when wal != null".
func logIfPresent(sink Sink, cacheID uint32, pageID PageID, rec Record) error {
	if sink == nil {
		return nil
	}
	return sink.Log(cacheID, pageID, rec)
}

// --- concrete records -------------------------------------------------

// InitNewPageRecord retypes and reinitializes a page in place, e.g.
// when a drained node page is recycled back into a data page.
type InitNewPageRecord struct {
	PageID    PageID
	IOType    uint8
	IOVersion uint8
	NewPageID PageID
}

func (r InitNewPageRecord) Type() RecordType { return RecordInitNewPage }

func (r InitNewPageRecord) Encode() []byte {
	buf := make([]byte, 8+1+1+1+8)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	buf[8] = r.IOType
	buf[9] = r.IOVersion
	buf[10] = 1
	binary.LittleEndian.PutUint64(buf[11:19], uint64(r.NewPageID))
	return buf
}

// Apply is a no-op: the drained node's bytes are left as-is here. What
// this record actually reinitializes is the caller-supplied data-page
// content via its own IOType/IOVersion-keyed codec, which is the
// engine's concern, not pageio's — out of scope for this package's
// replay (the identity change, PageID -> NewPageID, is replayed by the
// page-memory layer's own id table, not by mutating buf).
func (r InitNewPageRecord) Apply(buf []byte, pageSize int) {}

// PagesListInitNewPageRecord records the creation of a new node page,
// linked behind previousID, and optionally carrying one data page add.
type PagesListInitNewPageRecord struct {
	PageID      PageID
	PreviousID  PageID
	AddDataPage PageID
	HasDataPage bool
}

func (r PagesListInitNewPageRecord) Type() RecordType { return RecordPagesListInitNewPage }

func (r PagesListInitNewPageRecord) Encode() []byte {
	buf := make([]byte, 8+8+1+8)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.PreviousID))
	if r.HasDataPage {
		buf[16] = 1
	}
	binary.LittleEndian.PutUint64(buf[17:25], uint64(r.AddDataPage))
	return buf
}

// Apply replays the new node's creation: reset buf to an empty node,
// link previousID, and (if the creating split also seeded one data
// page directly) add it.
func (r PagesListInitNewPageRecord) Apply(buf []byte, pageSize int) {
	encodeEmptyNode(buf, pageSize)
	nodeSetPreviousID(buf, pageSize, r.PreviousID)
	if r.HasDataPage {
		addPageToNode(buf, pageSize, r.AddDataPage)
	}
}

// PagesListAddPageRecord records a page-id slot added to a node page.
type PagesListAddPageRecord struct {
	NodePageID PageID
	AddedID    PageID
}

func (r PagesListAddPageRecord) Type() RecordType { return RecordPagesListAddPage }

func (r PagesListAddPageRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.NodePageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.AddedID))
	return buf
}

// Apply replays the slot addition onto the node page named by
// NodePageID.
func (r PagesListAddPageRecord) Apply(buf []byte, pageSize int) {
	addPageToNode(buf, pageSize, r.AddedID)
}

// PagesListRemovePageRecord records a page-id slot removed from a node page.
type PagesListRemovePageRecord struct {
	NodePageID PageID
	RemovedID  PageID
}

func (r PagesListRemovePageRecord) Type() RecordType { return RecordPagesListRemovePage }

func (r PagesListRemovePageRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.NodePageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.RemovedID))
	return buf
}

// Apply replays the slot removal onto the node page named by
// NodePageID.
func (r PagesListRemovePageRecord) Apply(buf []byte, pageSize int) {
	removePageFromNode(buf, pageSize, r.RemovedID)
}

// PagesListSetNextRecord records a node page's nextId link changing.
type PagesListSetNextRecord struct {
	PageID PageID
	NextID PageID
}

func (r PagesListSetNextRecord) Type() RecordType { return RecordPagesListSetNext }

func (r PagesListSetNextRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.NextID))
	return buf
}

// Apply replays the nextId change onto the node page named by PageID.
func (r PagesListSetNextRecord) Apply(buf []byte, pageSize int) {
	nodeSetNextID(buf, pageSize, r.NextID)
}

// PagesListSetPreviousRecord records a node page's previousId link changing.
type PagesListSetPreviousRecord struct {
	PageID     PageID
	PreviousID PageID
}

func (r PagesListSetPreviousRecord) Type() RecordType { return RecordPagesListSetPrevious }

func (r PagesListSetPreviousRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.PreviousID))
	return buf
}

// Apply replays the previousId change onto the node page named by
// PageID.
func (r PagesListSetPreviousRecord) Apply(buf []byte, pageSize int) {
	nodeSetPreviousID(buf, pageSize, r.PreviousID)
}

// DataPageSetFreeListPageRecord records a data page's back-pointer changing.
type DataPageSetFreeListPageRecord struct {
	DataPageID     PageID
	FreeListPageID PageID
}

func (r DataPageSetFreeListPageRecord) Type() RecordType { return RecordDataPageSetFreeListPage }

func (r DataPageSetFreeListPageRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.DataPageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.FreeListPageID))
	return buf
}

// Apply replays the back-pointer change onto the data page named by
// DataPageID.
func (r DataPageSetFreeListPageRecord) Apply(buf []byte, pageSize int) {
	pageio.PutFreeListPageID(buf, uint64(r.FreeListPageID))
}

// RecycleRecord records a page id's rotation during recycle.
type RecycleRecord struct {
	PageID        PageID
	RotatedPageID PageID
}

func (r RecycleRecord) Type() RecordType { return RecordRecycle }

func (r RecycleRecord) Encode() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.PageID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(r.RotatedPageID))
	return buf
}

// Apply is a no-op: recycle only rotates a page id's generation/type
// tag, which replay tracks through the page-memory layer's own id
// table (see memStore.Log), not through buf's bytes.
func (r RecycleRecord) Apply(buf []byte, pageSize int) {}
