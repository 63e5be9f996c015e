// Package codec encodes and decodes the FPS4 header and file-table records.
//
// Record shape is driven by a ContentSchema consulted at runtime; there is a
// single codec for every combination of flags.
package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/fps4/core/internal/fpstype"
)

// Magic identifies an FPS4 archive.
const Magic = "FPS4"

// HeaderSize is the size of the fixed archive header and the offset of the
// file table in archives written by this package.
const HeaderSize = 0x1C

// Header is the fixed 0x1C-byte archive header.
type Header struct {
	// FileCount includes the trailing sentinel record.
	FileCount uint32

	// HeaderSize is the absolute offset of the file table.
	HeaderSize uint32

	// FirstFileStart is the absolute offset of the first file's data.
	FirstFileStart uint32

	// EntrySize is the number of bytes per file-table record.
	EntrySize uint16

	// Schema is the content bitmask.
	Schema fpstype.ContentSchema

	// Reserved is carried opaquely.
	Reserved uint32

	// NameLocation is the absolute offset of the archive name, 0 if absent.
	NameLocation uint32
}

// DecodeHeader parses raw, which must hold at least HeaderSize bytes, using
// the given byte order.
func DecodeHeader(raw []byte, order binary.ByteOrder) (Header, error) {
	if len(raw) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header truncated to %d bytes", fpstype.ErrFormat, len(raw))
	}
	if string(raw[0:4]) != Magic {
		return Header{}, fmt.Errorf("%w: magic %q", fpstype.ErrFormat, raw[0:4])
	}
	return Header{
		FileCount:      order.Uint32(raw[0x04:]),
		HeaderSize:     order.Uint32(raw[0x08:]),
		FirstFileStart: order.Uint32(raw[0x0C:]),
		EntrySize:      order.Uint16(raw[0x10:]),
		Schema:         fpstype.ContentSchema(order.Uint16(raw[0x12:])),
		Reserved:       order.Uint32(raw[0x14:]),
		NameLocation:   order.Uint32(raw[0x18:]),
	}, nil
}

// EncodeHeader writes h into the first HeaderSize bytes of buf.
func EncodeHeader(buf []byte, h *Header, order binary.ByteOrder) {
	copy(buf[0:4], Magic)
	order.PutUint32(buf[0x04:], h.FileCount)
	order.PutUint32(buf[0x08:], h.HeaderSize)
	order.PutUint32(buf[0x0C:], h.FirstFileStart)
	order.PutUint16(buf[0x10:], h.EntrySize)
	order.PutUint16(buf[0x12:], uint16(h.Schema))
	order.PutUint32(buf[0x14:], h.Reserved)
	order.PutUint32(buf[0x18:], h.NameLocation)
}
