package fpstype

import "strings"

// SkipLocation marks a record that occupies no data.
const SkipLocation uint32 = 0xFFFFFFFF

// Entry is one file-table record as stored on disk.
//
// Every field is optional; the archive's ContentSchema decides which ones a
// record carries. Entry never stores inferred values such as a guessed size
// or a synthesized name; those are computed on demand by the resolver.
type Entry struct {
	// Index is the record's ordinal position in the table. It is not stored.
	Index uint32

	// Location is the raw start pointer, before the location multiplier.
	Location Optional[uint32]

	// SectorSize is the declared (usually aligned) size of the data block.
	SectorSize Optional[uint32]

	// FileSize is the declared exact size of the file.
	FileSize Optional[uint32]

	// FileName comes from the fixed 32-byte slot.
	FileName Optional[string]

	// FileType comes from the fixed 4-byte slot.
	FileType Optional[string]

	// MetadataPointer is the raw absolute offset of the metadata string.
	MetadataPointer Optional[uint32]

	// Metadata holds the parsed metadata string when the pointer was nonzero.
	Metadata Optional[Metadata]

	// FieldA and FieldB are reserved words read and written opaquely.
	FieldA Optional[uint32]
	FieldB Optional[uint32]
}

// ShouldSkip reports whether the record represents no stored data: either its
// location is SkipLocation or field A is nonzero.
func (e *Entry) ShouldSkip() bool {
	if loc, ok := e.Location.Get(); ok && loc == SkipLocation {
		return true
	}
	if a, ok := e.FieldA.Get(); ok && a > 0 {
		return true
	}
	return false
}

// MetadataPair is one token of a metadata string. Tokens without '=' have no
// key and are positional (conventionally a directory path).
type MetadataPair struct {
	Key   Optional[string]
	Value string
}

// Metadata is a parsed metadata string in token order.
type Metadata []MetadataPair

// ParseMetadata splits s on spaces, dropping empty tokens, and each token on
// its first '='.
func ParseMetadata(s string) Metadata {
	fields := strings.Split(s, " ")
	md := make(Metadata, 0, len(fields))
	for _, tok := range fields {
		if tok == "" {
			continue
		}
		if key, value, ok := strings.Cut(tok, "="); ok {
			md = append(md, MetadataPair{Key: Some(key), Value: value})
			continue
		}
		md = append(md, MetadataPair{Value: tok})
	}
	return md
}

// Lookup returns the value of the first token with the given key.
func (md Metadata) Lookup(key string) (string, bool) {
	for _, p := range md {
		if k, ok := p.Key.Get(); ok && k == key {
			return p.Value, true
		}
	}
	return "", false
}

// Positional returns the value of the first token without a key.
func (md Metadata) Positional() (string, bool) {
	for _, p := range md {
		if !p.Key.Set {
			return p.Value, true
		}
	}
	return "", false
}

// String re-joins the tokens with single spaces.
func (md Metadata) String() string {
	parts := make([]string, 0, len(md))
	for _, p := range md {
		if k, ok := p.Key.Get(); ok {
			parts = append(parts, k+"="+p.Value)
			continue
		}
		parts = append(parts, p.Value)
	}
	return strings.Join(parts, " ")
}
