// Package testutil provides in-memory sources and a hand-rolled FPS4
// encoder for tests. The encoder does not share code with the package under
// test so that fixtures check the codec instead of mirroring it.
package testutil

import (
	"encoding/binary"
	"io"
	"sync/atomic"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data  []byte
	reads atomic.Int64
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	m.reads.Add(1)
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) && n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns the backing slice for tests that need to mutate data.
func (m *MockByteSource) Bytes() []byte {
	return m.data
}

// Reads returns the number of ReadAt calls so far.
func (m *MockByteSource) Reads() int64 {
	return m.reads.Load()
}

// Field bits, duplicated from the format so fixtures stay independent.
const (
	BitStart    uint16 = 0x0001
	BitSector   uint16 = 0x0002
	BitSize     uint16 = 0x0004
	BitName     uint16 = 0x0008
	BitType     uint16 = 0x0020
	BitMetadata uint16 = 0x0040
	BitFieldA   uint16 = 0x0080
	BitFieldB   uint16 = 0x0100
)

// RawEntry holds the values of one table record. Only the fields selected
// by the archive's schema are written.
type RawEntry struct {
	Location   uint32
	SectorSize uint32
	FileSize   uint32
	FileName   string
	FileType   string
	FieldA     uint32
	FieldB     uint32

	// Metadata is stored after the table; the record's pointer is set to it
	// when non-empty and left zero otherwise.
	Metadata string
}

// Chunk is file data placed at an absolute offset.
type Chunk struct {
	Offset int
	Data   []byte
}

// RawArchive describes an archive byte for byte.
type RawArchive struct {
	Order          binary.ByteOrder
	Schema         uint16
	Reserved       uint32
	FirstFileStart uint32

	// EntrySize overrides the record stride written to the header.
	// Zero uses the width implied by Schema.
	EntrySize uint16

	// Name is the archive name stored after the metadata strings.
	Name string

	// Entries includes the trailing sentinel.
	Entries []RawEntry

	Chunks []Chunk
}

// RecordWidth returns the byte width of one record for schema.
func RecordWidth(schema uint16) int {
	w := 0
	for _, bit := range []uint16{BitStart, BitSector, BitSize, BitType, BitMetadata, BitFieldA, BitFieldB} {
		if schema&bit != 0 {
			w += 4
		}
	}
	if schema&BitName != 0 {
		w += 32
	}
	return w
}

// Bytes encodes the archive.
func (r *RawArchive) Bytes() []byte {
	order := r.Order
	if order == nil {
		order = binary.BigEndian
	}
	width := RecordWidth(r.Schema)
	stride := int(r.EntrySize)
	if stride == 0 {
		stride = width
	}

	tableEnd := 0x1C + stride*len(r.Entries)
	out := make([]byte, tableEnd, tableEnd+256)

	copy(out, "FPS4")
	order.PutUint32(out[0x04:], uint32(len(r.Entries))) //nolint:gosec // test fixture
	order.PutUint32(out[0x08:], 0x1C)
	order.PutUint32(out[0x0C:], r.FirstFileStart)
	order.PutUint16(out[0x10:], uint16(stride)) //nolint:gosec // test fixture
	order.PutUint16(out[0x12:], r.Schema)
	order.PutUint32(out[0x14:], r.Reserved)

	for i, e := range r.Entries {
		rec := out[0x1C+i*stride:]
		pos := 0
		word := func(bit uint16, v uint32) {
			if r.Schema&bit != 0 {
				order.PutUint32(rec[pos:], v)
				pos += 4
			}
		}
		word(BitStart, e.Location)
		word(BitSector, e.SectorSize)
		word(BitSize, e.FileSize)
		if r.Schema&BitName != 0 {
			copy(rec[pos:pos+32], e.FileName)
			pos += 32
		}
		if r.Schema&BitType != 0 {
			copy(rec[pos:pos+4], e.FileType)
			pos += 4
		}
		if r.Schema&BitMetadata != 0 {
			if e.Metadata != "" {
				order.PutUint32(rec[pos:], uint32(len(out))) //nolint:gosec // test fixture
				out = append(out, e.Metadata...)
				out = append(out, 0)
				rec = out[0x1C+i*stride:]
			}
			pos += 4
		}
		word(BitFieldA, e.FieldA)
		word(BitFieldB, e.FieldB)
	}

	if r.Name != "" {
		order.PutUint32(out[0x18:], uint32(len(out))) //nolint:gosec // test fixture
		out = append(out, r.Name...)
		out = append(out, 0)
	}

	if n := int(r.FirstFileStart); n > len(out) {
		out = append(out, make([]byte, n-len(out))...)
	}
	for _, c := range r.Chunks {
		if end := c.Offset + len(c.Data); end > len(out) {
			out = append(out, make([]byte, end-len(out))...)
		}
		copy(out[c.Offset:], c.Data)
	}
	return out
}
