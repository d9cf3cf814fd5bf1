// pkg/pageslist/meta.go
package pageslist

import "tur/pkg/pageslist/pageio"

// SaveMetadata persists every bucket's stripe tails into the meta-page
// chain rooted at metaPageId (spec.md §4.6). It reuses existing chain
// pages first, allocates direct (non-reuse) pages for overflow, and
// zeroes any unused tail of the old chain.
func (pl *PageList) SaveMetadata() error {
	return pl.wrapOp("SaveMetadata", pl.saveMetadata())
}

func (pl *PageList) saveMetadata() error {
	type entry struct {
		bucket int32
		tailID uint64
	}
	var entries []entry
	for b := 0; b < pl.numBuckets; b++ {
		for _, id := range pl.Tails(b) {
			entries = append(entries, entry{bucket: int32(b), tailID: uint64(id)})
		}
	}

	capacity := pageio.MetaCapacity(pl.pageSize)

	var oldChain []PageID
	for cur := pl.metaPageID; cur != 0; {
		oldChain = append(oldChain, cur)
		handle := pl.mem.Page(cur)
		buf := handle.GetForRead()
		m := pageio.DecodeMeta(buf)
		handle.ReleaseRead()
		handle.Close()
		next := PageID(m.NextMetaPageID)
		if next == cur {
			return pl.corrupt(cur, "meta chain loop during save")
		}
		cur = next
	}

	var chain []PageID
	idx := 0
	for idx < len(entries) || len(chain) == 0 {
		var pageID PageID
		if len(chain) < len(oldChain) {
			pageID = oldChain[len(chain)]
		} else {
			allocated, err := pl.mem.AllocatePageNoReuse()
			if err != nil {
				return err
			}
			pageID = allocated
		}
		chain = append(chain, pageID)

		n := capacity
		if remaining := len(entries) - idx; remaining < n {
			n = remaining
		}
		if n < 0 {
			n = 0
		}

		m := &pageio.Meta{Entries: make([]pageio.MetaEntry, n)}
		for i := 0; i < n; i++ {
			e := entries[idx+i]
			m.Entries[i] = pageio.MetaEntry{Bucket: e.bucket, TailID: e.tailID}
		}
		idx += n

		handle := pl.mem.Page(pageID)
		buf := handle.GetForWrite()
		if idx >= len(entries) {
			m.NextMetaPageID = 0
		}
		m.Encode(buf)
		handle.ReleaseWrite(true)
		handle.Close()

		if idx >= len(entries) {
			break
		}
	}

	// Link the chain and zero any surplus old pages we no longer use.
	for i := 0; i < len(chain)-1; i++ {
		handle := pl.mem.Page(chain[i])
		buf := handle.GetForWrite()
		m := pageio.DecodeMeta(buf)
		m.NextMetaPageID = uint64(chain[i+1])
		m.Encode(buf)
		handle.ReleaseWrite(true)
		handle.Close()
	}

	for i := len(chain); i < len(oldChain); i++ {
		handle := pl.mem.Page(oldChain[i])
		buf := handle.GetForWrite()
		pageio.Reset(buf)
		handle.ReleaseWrite(true)
		handle.Close()
	}

	return nil
}

// Init loads (or, with initNew, creates) the meta-page chain and
// installs each bucket's Stripe[] from its persisted tails (spec.md
// §4.6). initNew is for a brand-new page list with no prior chain.
func (pl *PageList) Init(initNew bool) error {
	return pl.wrapOp("Init", pl.initList(initNew))
}

func (pl *PageList) initList(initNew bool) error {
	if initNew {
		handle := pl.mem.Page(pl.metaPageID)
		buf := handle.GetForWrite()
		pageio.Reset(buf)
		(&pageio.Meta{}).Encode(buf)
		handle.ReleaseWrite(true)
		handle.Close()
		return nil
	}

	tails := make(map[int32][]PageID)
	visited := make(map[PageID]bool)

	for cur := pl.metaPageID; cur != 0; {
		if visited[cur] {
			return pl.corrupt(cur, "meta chain loop during init")
		}
		visited[cur] = true

		handle := pl.mem.Page(cur)
		buf := handle.GetForRead()
		m := pageio.DecodeMeta(buf)
		handle.ReleaseRead()
		handle.Close()

		for _, e := range m.Entries {
			tails[e.Bucket] = append(tails[e.Bucket], PageID(e.TailID))
		}

		next := PageID(m.NextMetaPageID)
		if next == cur {
			return pl.corrupt(cur, "meta chain loop during init")
		}
		cur = next
	}

	for bucket, ids := range tails {
		stripes := make([]*Stripe, len(ids))
		for i, id := range ids {
			stripes[i] = NewStripe(id)
		}
		set := &StripeSet{stripes: stripes}
		pl.bucketSlot(int(bucket)).set.Store(set)
	}

	return nil
}
