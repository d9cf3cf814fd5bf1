// pkg/pageslist/page_memory.go
package pageslist

// PageMemory is the abstract page store pageslist borrows pages from.
// It owns every page; pageslist holds only PageIDs (weak references)
// and borrows a PageHandle transiently under latch (spec.md §5, §9
// design notes: "ownership is 'the page memory owns every page'").
type PageMemory interface {
	// AllocatePage allocates a page id, preferring to pop one from bag
	// when bag is non-nil and non-empty. Implementations must not
	// consult the reuse list at all when bag is nil — see
	// AllocatePageNoReuse for the anti-deadlock path.
	AllocatePage(bag *ReuseBag) (PageID, error)

	// AllocatePageNoReuse allocates a fresh page id by direct
	// allocation, never touching the reuse list. Used by the
	// reuse-bucket split handler to avoid the reuse-list-needs-a-page
	// deadlock spec.md §4.2 describes.
	AllocatePageNoReuse() (PageID, error)

	// Page returns a handle to the page identified by id. The handle
	// itself does not pin or latch anything until a Get*/TryGet* call
	// is made on it.
	Page(id PageID) PageHandle
}

// PageHandle is a transient borrow of one page's latch and backing
// bytes. Every Get*/TryGet* call must be paired with the matching
// Release* call; Close releases any OS-level resources the handle
// holds (e.g. an mmap'd region reference) and must be called exactly
// once the handle is no longer needed.
type PageHandle interface {
	// GetForRead blocks until the read latch is held and returns the
	// page's backing bytes.
	GetForRead() []byte

	// GetForWrite blocks until the write latch is held and returns the
	// page's backing bytes.
	GetForWrite() []byte

	// TryGetForWrite attempts to acquire the write latch without
	// blocking. ok is false if the latch was contended.
	TryGetForWrite() (buf []byte, ok bool)

	// ReleaseRead releases a read latch acquired by GetForRead.
	ReleaseRead()

	// ReleaseWrite releases a write latch acquired by GetForWrite or a
	// successful TryGetForWrite, marking the page dirty if requested.
	ReleaseWrite(dirty bool)

	// Close releases the handle itself.
	Close()

	// ID returns the page id this handle currently resolves to. After
	// a concurrent recycle of the underlying page, ID may no longer
	// match the id this handle was obtained for — callers must
	// re-check it after latching (spec.md §4.2 step 3).
	ID() PageID

	// FullPageWalRecordPolicy tells the page-memory layer whether the
	// next mutation of this page should be logged as a full-page
	// snapshot (true) rather than a delta record (false). Page-memory
	// layers that always take full-page snapshots may ignore this.
	FullPageWalRecordPolicy(full bool)
}
