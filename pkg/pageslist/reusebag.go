// pkg/pageslist/reusebag.go
package pageslist

// ReuseBag is a small mutable collection of empty page-ids the caller
// deposits into the reuse bucket via Put. It is drained in place by
// putReuseBag and is not meant to be reused across calls — spec.md §9
// design notes call the single-recycle case "a one-shot mutable
// holder", which NewSingletonReuseBag models directly.
type ReuseBag struct {
	ids []PageID
}

// NewReuseBag wraps an existing slice of empty page ids as a bag.
func NewReuseBag(ids []PageID) *ReuseBag {
	return &ReuseBag{ids: ids}
}

// NewSingletonReuseBag builds a one-element bag, the shape Merge
// deposits a freshly recycled node page id into (spec.md §4.4 step 6).
func NewSingletonReuseBag(id PageID) *ReuseBag {
	return &ReuseBag{ids: []PageID{id}}
}

// Drain pops one id from the bag. ok is false once the bag is empty.
func (b *ReuseBag) Drain() (PageID, bool) {
	if b == nil || len(b.ids) == 0 {
		return 0, false
	}
	last := len(b.ids) - 1
	id := b.ids[last]
	b.ids = b.ids[:last]
	return id, true
}

// IsEmpty reports whether the bag has no ids left.
func (b *ReuseBag) IsEmpty() bool {
	return b == nil || len(b.ids) == 0
}

// Len returns the number of ids remaining in the bag.
func (b *ReuseBag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ids)
}
