package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/fps4/core/internal/fpstype"
	"github.com/meigma/fps4/core/internal/textenc"
)

// maxCStringLen bounds side reads of NUL-terminated strings.
const maxCStringLen = 64 << 10

// EntryReader decodes records from a source using one schema and byte order.
type EntryReader struct {
	src    io.ReaderAt
	schema fpstype.ContentSchema
	layout Layout
	order  binary.ByteOrder
	text   textenc.Codec
}

// NewEntryReader returns a reader for records laid out by schema.
func NewEntryReader(src io.ReaderAt, schema fpstype.ContentSchema, order binary.ByteOrder, text textenc.Codec) *EntryReader {
	return &EntryReader{
		src:    src,
		schema: schema,
		layout: NewLayout(schema),
		order:  order,
		text:   text,
	}
}

// Read decodes the record at absolute offset off and assigns it index.
//
// Only the fields the schema marks present are consumed. A nonzero metadata
// pointer causes a read of the NUL-terminated string at that absolute offset;
// the source has no cursor, so the side read cannot disturb table parsing.
func (r *EntryReader) Read(off int64, index uint32) (fpstype.Entry, error) {
	rec := make([]byte, r.layout.Width)
	if err := ReadFull(r.src, rec, off); err != nil {
		return fpstype.Entry{}, fmt.Errorf("read entry %d at 0x%X: %w", index, off, err)
	}
	e := DecodeEntry(rec, r.layout, r.order, r.text)
	e.Index = index

	if ptr, ok := e.MetadataPointer.Get(); ok && ptr != 0 {
		raw, err := ReadCString(r.src, int64(ptr))
		if err != nil {
			return fpstype.Entry{}, fmt.Errorf("read entry %d metadata at 0x%X: %w", index, ptr, err)
		}
		e.Metadata = fpstype.Some(fpstype.ParseMetadata(r.text.Decode(raw)))
	}
	return e, nil
}

// DecodeEntry decodes the fixed part of one record. It does not follow the
// metadata pointer.
func DecodeEntry(rec []byte, l Layout, order binary.ByteOrder, text textenc.Codec) fpstype.Entry {
	var e fpstype.Entry
	word := func(at int) fpstype.Optional[uint32] {
		if at < 0 {
			return fpstype.Optional[uint32]{}
		}
		return fpstype.Some(order.Uint32(rec[at:]))
	}
	str := func(at, width int) fpstype.Optional[string] {
		if at < 0 {
			return fpstype.Optional[string]{}
		}
		return fpstype.Some(text.Decode(cutNUL(rec[at : at+width])))
	}

	e.Location = word(l.Start)
	e.SectorSize = word(l.Sector)
	e.FileSize = word(l.Size)
	e.FileName = str(l.Name, fpstype.FileNameWidth)
	e.FileType = str(l.Type, fpstype.FileTypeWidth)
	e.MetadataPointer = word(l.Metadata)
	e.FieldA = word(l.FieldA)
	e.FieldB = word(l.FieldB)
	return e
}

// EncodeEntry writes the fields of e that l has slots for into rec, which
// must be l.Width bytes long. Absent optional values are written as zero.
// Names are truncated to their slot width and zero-padded.
func EncodeEntry(rec []byte, e *fpstype.Entry, l Layout, order binary.ByteOrder, text textenc.Codec) error {
	clear(rec)
	put := func(at int, v fpstype.Optional[uint32]) {
		if at >= 0 {
			order.PutUint32(rec[at:], v.Value)
		}
	}
	put(l.Start, e.Location)
	put(l.Sector, e.SectorSize)
	put(l.Size, e.FileSize)
	put(l.Metadata, e.MetadataPointer)
	put(l.FieldA, e.FieldA)
	put(l.FieldB, e.FieldB)

	if l.Name >= 0 {
		b, err := EncodeFixed(e.FileName.Value, fpstype.FileNameWidth, text)
		if err != nil {
			return err
		}
		copy(rec[l.Name:l.Name+fpstype.FileNameWidth], b)
	}
	if l.Type >= 0 {
		b, err := EncodeFixed(e.FileType.Value, fpstype.FileTypeWidth, text)
		if err != nil {
			return err
		}
		copy(rec[l.Type:l.Type+fpstype.FileTypeWidth], b)
	}
	return nil
}

// EncodeFixed encodes s for a slot of width bytes. The string is first cut to
// width characters; characters are then dropped from the end until the
// encoded form fits.
func EncodeFixed(s string, width int, text textenc.Codec) ([]byte, error) {
	runes := []rune(s)
	if len(runes) > width {
		runes = runes[:width]
	}
	for {
		b, err := text.Encode(string(runes))
		if err != nil {
			return nil, err
		}
		if len(b) <= width {
			return b, nil
		}
		runes = runes[:len(runes)-1]
	}
}

// ReadCString reads a NUL-terminated string starting at off. A string that
// runs into the end of the source is returned without error; one with no
// terminator within maxCStringLen bytes fails with ErrFormat.
func ReadCString(src io.ReaderAt, off int64) ([]byte, error) {
	start := off
	var out []byte
	buf := make([]byte, 64)
	for len(out) < maxCStringLen {
		n, err := src.ReadAt(buf, off)
		if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
			return append(out, buf[:i]...), nil
		}
		out = append(out, buf[:n]...)
		off += int64(n)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: string at 0x%X is not terminated within %d bytes",
		fpstype.ErrFormat, start, maxCStringLen)
}

// ReadFull reads len(p) bytes at off. An io.EOF together with a full read is
// not an error.
func ReadFull(src io.ReaderAt, p []byte, off int64) error {
	n, err := src.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func cutNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
