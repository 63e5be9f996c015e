package fps4

import (
	"context"
	"io"

	fpscore "github.com/meigma/fps4/core"
)

// Re-export types from core for the public API.
type (
	// Archive is an opened archive.
	Archive = fpscore.Archive

	// Member is one resolvable archive entry.
	Member = fpscore.Member

	// Entry is one raw file-table record.
	Entry = fpscore.Entry

	// ContentSchema is the content bitmask.
	ContentSchema = fpscore.ContentSchema

	// ByteSource provides random access to archive bytes.
	ByteSource = fpscore.ByteSource

	// PackRequest is one logical input file for packing.
	PackRequest = fpscore.PackRequest

	// PackResult describes a written archive.
	PackResult = fpscore.PackResult

	// ContentSource opens the bytes of one pack input.
	ContentSource = fpscore.ContentSource

	// MetadataComponent selects what packing writes into metadata strings.
	MetadataComponent = fpscore.MetadataComponent

	// TextEncoding converts between archive text and Go strings.
	TextEncoding = fpscore.TextEncoding

	// Option configures opening an archive.
	Option = fpscore.Option

	// PackOption configures packing.
	PackOption = fpscore.PackOption

	// ExtractOption configures extraction.
	ExtractOption = fpscore.ExtractOption

	// DedupOption configures DetectDuplicates.
	DedupOption = fpscore.DedupOption

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = fpscore.ProgressEvent

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = fpscore.ProgressFunc
)

// Optional holds a value that may be absent.
type Optional[T any] = fpscore.Optional[T]

// Metadata components.
const (
	MetadataPath = fpscore.MetadataPath
	MetadataName = fpscore.MetadataName
)

// Defaults used by Pack.
const (
	DefaultPackSchema = fpscore.DefaultPackSchema
	DefaultAlignment  = fpscore.DefaultAlignment
)

// Options re-exported from core.
var (
	WithLogger              = fpscore.WithLogger
	WithTextEncoding        = fpscore.WithTextEncoding
	WithLocationMultiplier  = fpscore.WithLocationMultiplier
	PackWithSchema          = fpscore.PackWithSchema
	PackWithByteOrder       = fpscore.PackWithByteOrder
	PackWithArchiveName     = fpscore.PackWithArchiveName
	PackWithAlignment       = fpscore.PackWithAlignment
	PackWithMultiplier      = fpscore.PackWithMultiplier
	PackWithMetadata        = fpscore.PackWithMetadata
	PackWithReference       = fpscore.PackWithReference
	PackWithTextEncoding    = fpscore.PackWithTextEncoding
	PackWithDeduplicate     = fpscore.PackWithDeduplicate
	PackWithProgress        = fpscore.PackWithProgress
	PackWithLogger          = fpscore.PackWithLogger
	ExtractWithOverwrite    = fpscore.ExtractWithOverwrite
	ExtractWithDirectWrites = fpscore.ExtractWithDirectWrites
	ExtractWithWorkers      = fpscore.ExtractWithWorkers
	ExtractWithProgress     = fpscore.ExtractWithProgress
	DedupWithWorkers        = fpscore.DedupWithWorkers
	DedupWithProgress       = fpscore.DedupWithProgress
	SectionSource           = fpscore.SectionSource
	NormalizePath           = fpscore.NormalizePath
	BytesSource             = fpscore.BytesSource
	FileSource              = fpscore.FileSource
	LookupTextEncoding      = fpscore.LookupTextEncoding
)

// Open parses an archive from header. Pass a nil content when file data
// lives in the same source.
func Open(header, content ByteSource, opts ...Option) (*Archive, error) {
	return fpscore.Open(header, content, opts...)
}

// Pack writes requests to w as an archive.
func Pack(ctx context.Context, w io.Writer, requests []PackRequest, opts ...PackOption) (*PackResult, error) {
	return fpscore.Pack(ctx, w, requests, opts...)
}

// DetectDuplicates reports, for each request, the index of an earlier request
// with identical content.
func DetectDuplicates(ctx context.Context, requests []PackRequest, opts ...DedupOption) ([]Optional[int], error) {
	return fpscore.DetectDuplicates(ctx, requests, opts...)
}
