package fpstype

import "fmt"

// ContentSchema is the 16-bit content bitmask stored in the archive header.
// It decides which fields are present in every file-table record.
type ContentSchema uint16

// Content bitmask flags. Fields appear in a record in the order listed here.
const (
	FlagStartPointers ContentSchema = 0x0001
	FlagSectorSizes   ContentSchema = 0x0002
	FlagFileSizes     ContentSchema = 0x0004
	FlagFileNames     ContentSchema = 0x0008
	FlagFileTypes     ContentSchema = 0x0020
	FlagMetadata      ContentSchema = 0x0040
	FlagFieldA        ContentSchema = 0x0080
	FlagFieldB        ContentSchema = 0x0100

	// KnownFlags is the union of every flag this package understands.
	KnownFlags = FlagStartPointers | FlagSectorSizes | FlagFileSizes | FlagFileNames |
		FlagFileTypes | FlagMetadata | FlagFieldA | FlagFieldB
)

// Fixed slot widths in bytes.
const (
	FileNameWidth = 32
	FileTypeWidth = 4
	WordWidth     = 4
)

func (s ContentSchema) has(flag ContentSchema) bool { return s&flag == flag }

// HasStartPointers reports whether records carry a start pointer (0x0001).
func (s ContentSchema) HasStartPointers() bool { return s.has(FlagStartPointers) }

// HasSectorSizes reports whether records carry a sector size (0x0002).
func (s ContentSchema) HasSectorSizes() bool { return s.has(FlagSectorSizes) }

// HasFileSizes reports whether records carry an exact file size (0x0004).
func (s ContentSchema) HasFileSizes() bool { return s.has(FlagFileSizes) }

// HasFileNames reports whether records carry a 32-byte file name (0x0008).
func (s ContentSchema) HasFileNames() bool { return s.has(FlagFileNames) }

// HasFileTypes reports whether records carry a 4-byte file type (0x0020).
func (s ContentSchema) HasFileTypes() bool { return s.has(FlagFileTypes) }

// HasMetadata reports whether records carry a metadata pointer (0x0040).
func (s ContentSchema) HasMetadata() bool { return s.has(FlagMetadata) }

// HasFieldA reports whether records carry reserved field A (0x0080).
// A nonzero value marks the record as skipped.
func (s ContentSchema) HasFieldA() bool { return s.has(FlagFieldA) }

// HasFieldB reports whether records carry reserved field B (0x0100).
func (s ContentSchema) HasFieldB() bool { return s.has(FlagFieldB) }

// HasUnknownBits reports whether any bit outside KnownFlags is set.
// Unknown bits are a warning signal; the known fields are still decoded.
func (s ContentSchema) HasUnknownBits() bool { return s.UnknownBits() != 0 }

// UnknownBits returns only the bits outside KnownFlags.
func (s ContentSchema) UnknownBits() ContentSchema { return s &^ KnownFlags }

// EntrySize returns the number of bytes one record occupies under this schema.
// Unknown bits contribute nothing.
func (s ContentSchema) EntrySize() int {
	size := 0
	for _, flag := range []ContentSchema{
		FlagStartPointers, FlagSectorSizes, FlagFileSizes,
		FlagFileTypes, FlagMetadata, FlagFieldA, FlagFieldB,
	} {
		if s.has(flag) {
			size += WordWidth
		}
	}
	if s.HasFileNames() {
		size += FileNameWidth
	}
	return size
}

// String returns the bitmask as a zero-padded hex literal, e.g. "0x000F".
func (s ContentSchema) String() string {
	return fmt.Sprintf("0x%04X", uint16(s))
}
