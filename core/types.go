package fps4

import (
	"io"
	"io/fs"

	"github.com/meigma/fps4/core/internal/fpstype"
	"github.com/meigma/fps4/core/internal/textenc"
)

// Re-export types from internal/fpstype for public API.
type (
	// ContentSchema is the content bitmask selecting the fields of each record.
	ContentSchema = fpstype.ContentSchema

	// Entry is one raw file-table record.
	Entry = fpstype.Entry

	// Metadata is a parsed metadata string.
	Metadata = fpstype.Metadata

	// MetadataPair is one metadata token.
	MetadataPair = fpstype.MetadataPair

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = fpstype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = fpstype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = fpstype.ProgressFunc

	// TextEncoding converts between archive text and Go strings.
	TextEncoding = textenc.Codec
)

// Optional is a value that may be absent.
type Optional[T any] = fpstype.Optional[T]

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return fpstype.Some(v)
}

// ParseMetadata parses a space-delimited key=value metadata string.
var ParseMetadata = fpstype.ParseMetadata

// Re-export content bitmask flags.
const (
	FlagStartPointers = fpstype.FlagStartPointers
	FlagSectorSizes   = fpstype.FlagSectorSizes
	FlagFileSizes     = fpstype.FlagFileSizes
	FlagFileNames     = fpstype.FlagFileNames
	FlagFileTypes     = fpstype.FlagFileTypes
	FlagMetadata      = fpstype.FlagMetadata
	FlagFieldA        = fpstype.FlagFieldA
	FlagFieldB        = fpstype.FlagFieldB
	KnownFlags        = fpstype.KnownFlags
)

// SkipLocation marks a record that occupies no data.
const SkipLocation = fpstype.SkipLocation

// Re-export progress stage constants.
const (
	StageHashing      = fpstype.StageHashing
	StageWritingTable = fpstype.StageWritingTable
	StageWritingData  = fpstype.StageWritingData
	StageExtracting   = fpstype.StageExtracting
)

// Built-in text encodings.
var (
	ShiftJIS = textenc.ShiftJIS
	UTF8     = textenc.UTF8
	Latin1   = textenc.Latin1
)

// LookupTextEncoding returns the text encoding registered under name.
// Accepted names include "shift-jis", "utf-8" and "latin-1".
func LookupTextEncoding(name string) (TextEncoding, error) {
	return textenc.Lookup(name)
}

// Sentinel errors re-exported from internal/fpstype.
var (
	// ErrFormat is returned when the archive magic is not "FPS4".
	ErrFormat = fpstype.ErrFormat

	// ErrUnknownSchemaBits is reported as a warning for unrecognized bitmask bits.
	ErrUnknownSchemaBits = fpstype.ErrUnknownSchemaBits

	// ErrMultiplierGuess is reported as a warning for an inferred multiplier other than 1.
	ErrMultiplierGuess = fpstype.ErrMultiplierGuess

	// ErrUnresolvedField is returned when an entry's location or size is unknown.
	ErrUnresolvedField = fpstype.ErrUnresolvedField

	// ErrConfiguration is returned for pack options that cannot round-trip.
	ErrConfiguration = fpstype.ErrConfiguration

	// ErrSizeMismatch is returned when a pack source yields the wrong byte count.
	ErrSizeMismatch = fpstype.ErrSizeMismatch

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = fpstype.ErrSizeOverflow
)

// ByteSource provides random access to archive bytes.
//
// Implementations exist for local files (*os.File via the root package),
// in-memory buffers and HTTP range requests. Reads through ReadAt carry
// their own offset, so concurrent lookups never share a cursor.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// File represents an archive member opened through the fs.FS view.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
}

// Interface compliance.
var (
	_ fs.FS         = (*Archive)(nil)
	_ fs.StatFS     = (*Archive)(nil)
	_ fs.ReadFileFS = (*Archive)(nil)
	_ fs.ReadDirFS  = (*Archive)(nil)
)
