// pkg/pageslist/pageio/meta.go
package pageio

import "encoding/binary"

// MetaVersion1 is the only meta-page layout so far.
const MetaVersion1 byte = 1

// MetaHeaderSize is the fixed header prefix of a meta page:
// version(1) + nextMetaPageId(8) + entryCount(4).
const MetaHeaderSize = 1 + 8 + 4

// metaEntrySize is the encoded width of one (bucket, tailId) tuple:
// bucket(4) + tailId(8).
const metaEntrySize = 4 + 8

// MetaEntry is one (bucket, tail page id) tuple packed into a meta page.
type MetaEntry struct {
	Bucket int32
	TailID uint64
}

// Meta is the decoded, in-memory form of a meta page payload.
type Meta struct {
	NextMetaPageID uint64
	Entries        []MetaEntry
}

// MetaCapacity returns the number of (bucket, tail) entries a meta
// page of the given size can hold.
func MetaCapacity(pageSize int) int {
	n := (pageSize - MetaHeaderSize) / metaEntrySize
	if n < 0 {
		return 0
	}
	return n
}

// Encode writes the meta page to buf, which must be at least pageSize
// bytes. Any entries beyond the page's capacity are silently dropped —
// callers (SaveMetadata) must never hand Encode more entries than
// MetaCapacity(pageSize).
func (m *Meta) Encode(buf []byte) {
	buf[0] = MetaVersion1
	binary.LittleEndian.PutUint64(buf[1:9], m.NextMetaPageID)
	n := len(m.Entries)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(n))
	off := MetaHeaderSize
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(m.Entries[i].Bucket))
		binary.LittleEndian.PutUint64(buf[off+4:off+12], m.Entries[i].TailID)
		off += metaEntrySize
	}
}

// DecodeMeta parses a meta page payload.
func DecodeMeta(buf []byte) *Meta {
	m := &Meta{}
	if len(buf) < MetaHeaderSize {
		return m
	}
	m.NextMetaPageID = binary.LittleEndian.Uint64(buf[1:9])
	count := binary.LittleEndian.Uint32(buf[9:13])
	off := MetaHeaderSize
	for i := uint32(0); i < count; i++ {
		if off+metaEntrySize > len(buf) {
			break
		}
		bucket := int32(binary.LittleEndian.Uint32(buf[off : off+4]))
		tail := binary.LittleEndian.Uint64(buf[off+4 : off+12])
		m.Entries = append(m.Entries, MetaEntry{Bucket: bucket, TailID: tail})
		off += metaEntrySize
	}
	return m
}

// Reset zeroes a meta page's entry count and chain pointer in place,
// used to blank surplus meta pages at the tail of the old chain
// during SaveMetadata without freeing them.
func Reset(buf []byte) {
	buf[0] = MetaVersion1
	binary.LittleEndian.PutUint64(buf[1:9], 0)
	binary.LittleEndian.PutUint32(buf[9:13], 0)
}
