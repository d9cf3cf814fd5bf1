// pkg/pager/pageslist_adapter.go
package pager

import (
	"fmt"
	"sync"

	"tur/pkg/pageslist"
	"tur/pkg/wal"
)

// PageListMemory adapts *Pager (and optionally *wal.WAL) into
// pageslist.PageMemory and pageslist.Sink, so a bucketed/striped free
// list (pageslist.PageList) can sit alongside Pager's existing
// single-chain Freelist. The single chain remains the page-zero
// bootstrap freelist (it must exist before any pageslist meta-page
// chain can be read); PageListMemory backs a second, optional list for
// callers that want fill-fraction buckets.
//
// pageslist.PageID tags a rotation generation and a data/index type
// onto a bare page number, but Pager's on-disk page format has no
// generation field (only the page-type byte pageslist.Page already
// exposes via SetType/Type, a different tag space entirely). Rather
// than invent an on-disk generation slot — a record-layout decision
// out of scope here — PageListMemory tracks generation and pageslist
// type in memory, process-lifetime only. Recycle monotonicity (spec
// property 8) holds for the life of one open database; it is not
// required to, and does not, survive a restart, matching the fact
// that nothing in pageslist's own spec demands cross-restart
// generation durability — only saveMetadata/init's tail-set round trip
// does, and that is keyed by page number, not generation.
type PageListMemory struct {
	pager *Pager
	wal   *wal.WAL // optional; nil means deltas are not durable

	mu   sync.Mutex
	gen  map[uint32]uint32
	typ  map[uint32]pageslist.PageType
	list *pageslist.PageList // bound post-construction, see Bind
}

// NewPageListMemory constructs a PageListMemory. w may be nil (no WAL
// durability for this list's mutations, e.g. in tests).
func NewPageListMemory(p *Pager, w *wal.WAL) *PageListMemory {
	return &PageListMemory{
		pager: p,
		wal:   w,
		gen:   make(map[uint32]uint32),
		typ:   make(map[uint32]pageslist.PageType),
	}
}

// Bind associates list with this memory adapter so Stats can report
// free-page-list health. Separate from NewPageListMemory because
// pageslist.NewPageList itself requires a PageMemory argument: m must
// exist before list can be constructed, so the two are wired together
// in two steps by the caller (mirrors pkg/pager/pager.go's own
// AttachPageList, which completes the wiring on Pager's side).
func (m *PageListMemory) Bind(list *pageslist.PageList) {
	m.mu.Lock()
	m.list = list
	m.mu.Unlock()
}

// Stats reports the bound PageList's health snapshot (spec.md-adjacent
// supplemented feature, SPEC_FULL.md §12), or the zero value if Bind
// has not been called yet.
func (m *PageListMemory) Stats() pageslist.Stats {
	m.mu.Lock()
	list := m.list
	m.mu.Unlock()
	if list == nil {
		return pageslist.Stats{}
	}
	return list.Stats()
}

func (m *PageListMemory) AllocatePage(bag *pageslist.ReuseBag) (pageslist.PageID, error) {
	if bag != nil {
		if id, ok := bag.Drain(); ok {
			return id, nil
		}
	}
	return m.AllocatePageNoReuse()
}

func (m *PageListMemory) AllocatePageNoReuse() (pageslist.PageID, error) {
	page, err := m.pager.Allocate()
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	m.gen[page.PageNo()] = 0
	m.typ[page.PageNo()] = pageslist.TypeData
	m.mu.Unlock()
	return pageslist.NewPageID(page.PageNo(), pageslist.TypeData, 0), nil
}

// Page resolves id to a handle. Pager.Get can fail on I/O error, which
// pageslist.PageMemory has no channel to report — we treat it the way
// spec.md classifies corruption-adjacent I/O failure under this core:
// fatal and unrecoverable, so it panics rather than silently handing
// back a bogus page.
func (m *PageListMemory) Page(id pageslist.PageID) pageslist.PageHandle {
	page, err := m.pager.Get(id.Num())
	if err != nil {
		panic(fmt.Sprintf("pageslist: pager.Get(%d): %v", id.Num(), err))
	}
	return &pageListHandle{mem: m, pager: m.pager, page: page, num: id.Num()}
}

// Log satisfies pageslist.Sink. Pager's WAL (pkg/wal) only supports
// full-page frames, not typed deltas, so every record is translated
// into a full-page snapshot of the current page contents — the
// pageslist-side equivalent of always answering
// FullPageWalRecordPolicy(true). Identity-changing records (Recycle,
// PagesListInitNewPage, InitNewPage) additionally update this
// instance's in-memory generation/type tables.
func (m *PageListMemory) Log(cacheID uint32, pageID pageslist.PageID, rec pageslist.Record) error {
	m.mu.Lock()
	switch r := rec.(type) {
	case pageslist.RecycleRecord:
		m.gen[r.PageID.Num()] = r.RotatedPageID.Gen()
		m.typ[r.PageID.Num()] = r.RotatedPageID.Type()
	case pageslist.PagesListInitNewPageRecord:
		m.gen[r.PageID.Num()] = r.PageID.Gen()
		m.typ[r.PageID.Num()] = r.PageID.Type()
	case pageslist.InitNewPageRecord:
		m.gen[r.PageID.Num()] = r.NewPageID.Gen()
		m.typ[r.PageID.Num()] = r.NewPageID.Type()
	}
	m.mu.Unlock()

	if m.wal == nil {
		return nil
	}
	page, err := m.pager.Get(pageID.Num())
	if err != nil {
		return err
	}
	buf := page.GetForRead()
	snapshot := append([]byte(nil), buf...)
	page.ReleaseRead()
	return m.wal.WriteFrame(pageID.Num(), snapshot, false)
}

type pageListHandle struct {
	mem   *PageListMemory
	pager *Pager
	page  *Page
	num   uint32
}

func (h *pageListHandle) GetForRead() []byte  { return h.page.GetForRead() }
func (h *pageListHandle) ReleaseRead()        { h.page.ReleaseRead() }
func (h *pageListHandle) GetForWrite() []byte { return h.page.GetForWrite() }

func (h *pageListHandle) TryGetForWrite() ([]byte, bool) {
	return h.page.TryGetForWrite()
}

func (h *pageListHandle) ReleaseWrite(dirty bool) {
	h.page.ReleaseWrite(dirty)
	if dirty {
		h.pager.MarkDirty(h.page)
	}
}

// Close unpins the underlying page, balancing the Pin() every
// Pager.Get/Allocate call performs.
func (h *pageListHandle) Close() {
	h.pager.Release(h.page)
}

func (h *pageListHandle) ID() pageslist.PageID {
	h.mem.mu.Lock()
	defer h.mem.mu.Unlock()
	return pageslist.NewPageID(h.num, h.mem.typ[h.num], h.mem.gen[h.num])
}

func (h *pageListHandle) FullPageWalRecordPolicy(full bool) {}
