package fps4

import (
	"encoding/binary"
	"log/slog"

	"github.com/meigma/fps4/core/internal/textenc"
)

// Pack defaults.
const (
	// DefaultPackSchema stores start pointers, sector sizes, file sizes and names.
	DefaultPackSchema = FlagStartPointers | FlagSectorSizes | FlagFileSizes | FlagFileNames

	// DefaultAlignment is the boundary file data is aligned to.
	DefaultAlignment = 0x10
)

// MetadataComponent selects a part of the metadata string Pack writes.
type MetadataComponent uint8

// Metadata components.
const (
	// MetadataPath writes the request's RelativePath as a positional token.
	MetadataPath MetadataComponent = 1 << iota

	// MetadataName writes "name=<stem>", the file name without extension.
	MetadataName
)

// packConfig holds configuration for Pack.
type packConfig struct {
	schema       ContentSchema
	schemaSet    bool
	order        binary.ByteOrder
	name         Optional[string]
	alignment    uint32
	multiplier   uint32
	metadata     MetadataComponent
	reference    ByteSource
	text         textenc.Codec
	deduplicate  bool
	dedupWorkers int
	progress     ProgressFunc
	logger       *slog.Logger
}

// PackOption configures Pack.
type PackOption func(*packConfig)

// PackWithSchema sets the content bitmask of the written table
// (default: DefaultPackSchema, or the reference archive's).
func PackWithSchema(s ContentSchema) PackOption {
	return func(c *packConfig) {
		c.schema = s
		c.schemaSet = true
	}
}

// PackWithByteOrder sets the byte order (default: big-endian, or the
// reference archive's).
func PackWithByteOrder(order binary.ByteOrder) PackOption {
	return func(c *packConfig) {
		c.order = order
	}
}

// PackWithArchiveName stores name after the table and points the header at it.
func PackWithArchiveName(name string) PackOption {
	return func(c *packConfig) {
		c.name = Some(name)
	}
}

// PackWithAlignment sets the boundary every file's data starts on
// (default: DefaultAlignment). It must be a nonzero multiple of the
// location multiplier.
func PackWithAlignment(n uint32) PackOption {
	return func(c *packConfig) {
		c.alignment = n
	}
}

// PackWithMultiplier sets the factor start pointers are divided by
// (default: 1). Archives larger than 4GiB need a multiplier above 1.
func PackWithMultiplier(m uint32) PackOption {
	return func(c *packConfig) {
		c.multiplier = m
	}
}

// PackWithMetadata writes a metadata string per file built from the given
// components. The schema must include FlagMetadata.
func PackWithMetadata(components ...MetadataComponent) PackOption {
	return func(c *packConfig) {
		for _, comp := range components {
			c.metadata |= comp
		}
	}
}

// PackWithReference regenerates an archive from an original one with the
// same entry count and order. Sector sizes, metadata pointers and the two
// opaque words are copied from the original's records, as are the reserved
// header word, the first file start and the bytes between the table and the
// first file. Start pointers and sector sizes are then recomputed.
func PackWithReference(original ByteSource) PackOption {
	return func(c *packConfig) {
		c.reference = original
	}
}

// PackWithTextEncoding sets the encoding of names, file types and metadata
// strings (default: Shift-JIS).
func PackWithTextEncoding(enc TextEncoding) PackOption {
	return func(c *packConfig) {
		c.text = enc
	}
}

// PackWithDeduplicate runs DetectDuplicates over requests that carry no
// DuplicateOf, so identical content is stored once. workers bounds the
// concurrent digesting; values <= 0 use GOMAXPROCS.
func PackWithDeduplicate(enabled bool, workers int) PackOption {
	return func(c *packConfig) {
		c.deduplicate = enabled
		c.dedupWorkers = workers
	}
}

// PackWithProgress sets a callback for pack progress.
func PackWithProgress(fn ProgressFunc) PackOption {
	return func(c *packConfig) {
		c.progress = fn
	}
}

// PackWithLogger sets the logger for pack operations.
// If not set, logging is disabled.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(c *packConfig) {
		c.logger = logger
	}
}
