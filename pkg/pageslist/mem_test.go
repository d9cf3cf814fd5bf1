// pkg/pageslist/mem_test.go
package pageslist

import "sync"

// memPage is one page's backing bytes plus its latch and authoritative
// current id (distinct from whatever stale id a caller may still be
// holding after a concurrent recycle/retype).
type memPage struct {
	latch Latch
	id    PageID
	buf   []byte
}

// memStore is a minimal in-memory PageMemory + Sink double for testing
// pageslist against, grounded in the teacher's preference for small
// hand-written fakes over a mocking library (pkg/cache and pkg/mvcc's
// tests take the same approach).
type memStore struct {
	mu       sync.Mutex
	pageSize int
	pages    map[uint32]*memPage
	nextNum  uint32
	records  []loggedRecord
}

type loggedRecord struct {
	cacheID uint32
	pageID  PageID
	rec     Record
}

func newMemStore(pageSize int) *memStore {
	return &memStore{pageSize: pageSize, pages: make(map[uint32]*memPage)}
}

func (m *memStore) AllocatePage(bag *ReuseBag) (PageID, error) {
	if bag != nil {
		if id, ok := bag.Drain(); ok {
			return id, nil
		}
	}
	return m.AllocatePageNoReuse()
}

func (m *memStore) AllocatePageNoReuse() (PageID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	num := m.nextNum
	m.nextNum++
	id := NewPageID(num, TypeData, 0)
	m.pages[num] = &memPage{id: id, buf: make([]byte, m.pageSize)}
	return id, nil
}

func (m *memStore) Page(id PageID) PageHandle {
	m.mu.Lock()
	p, ok := m.pages[id.Num()]
	if !ok {
		p = &memPage{id: id, buf: make([]byte, m.pageSize)}
		m.pages[id.Num()] = p
	}
	m.mu.Unlock()
	return &memHandle{store: m, page: p}
}

// Log records the delta and applies the identity-changing ones
// (Recycle, PagesListInitNewPage, InitNewPage) to the page's
// authoritative id, matching the moment a real page-memory layer's
// page table would also observe the change.
func (m *memStore) Log(cacheID uint32, pageID PageID, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, loggedRecord{cacheID, pageID, rec})
	switch r := rec.(type) {
	case RecycleRecord:
		if p, ok := m.pages[r.PageID.Num()]; ok {
			p.id = r.RotatedPageID
		}
	case PagesListInitNewPageRecord:
		if p, ok := m.pages[r.PageID.Num()]; ok {
			p.id = r.PageID
		}
	case InitNewPageRecord:
		if p, ok := m.pages[r.PageID.Num()]; ok {
			p.id = r.NewPageID
		}
	}
	return nil
}

type memHandle struct {
	store *memStore
	page  *memPage
}

func (h *memHandle) GetForRead() []byte {
	h.page.latch.RLock()
	return h.page.buf
}

func (h *memHandle) ReleaseRead() { h.page.latch.RUnlock() }

func (h *memHandle) GetForWrite() []byte {
	h.page.latch.Lock()
	return h.page.buf
}

func (h *memHandle) TryGetForWrite() ([]byte, bool) {
	if h.page.latch.TryLock() {
		return h.page.buf, true
	}
	return nil, false
}

func (h *memHandle) ReleaseWrite(dirty bool) { h.page.latch.Unlock() }

func (h *memHandle) Close() {}

func (h *memHandle) ID() PageID {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return h.page.id
}

func (h *memHandle) FullPageWalRecordPolicy(full bool) {}

// testBuckets designates at most one bucket as the reuse bucket;
// reuse < 0 means none of them are.
type testBuckets struct {
	reuse int
}

func (b testBuckets) IsReuseBucket(bucket int) bool { return bucket == b.reuse }
