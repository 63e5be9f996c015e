package fps4

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"

	"github.com/meigma/fps4/core/internal/codec"
	"github.com/meigma/fps4/core/internal/heuristic"
	"github.com/meigma/fps4/core/internal/index"
	"github.com/meigma/fps4/core/internal/sizing"
	"github.com/meigma/fps4/core/internal/textenc"
)

// Member is a table entry whose data range and path were resolved.
type Member struct {
	// Index is the entry's position in the file table.
	Index uint32

	// Path is Dir and Name joined with a slash and normalized with
	// NormalizePath. Every path-based accessor uses this form.
	Path string

	// Dir is the derived directory as stored, empty for top-level members.
	Dir string

	// Name is the derived file name as stored. It may contain separators.
	Name string

	// Offset is the absolute offset of the data in the content source,
	// with the location multiplier applied.
	Offset uint64

	// Size is the declared or guessed data size.
	Size uint64

	// Entry is the raw record.
	Entry Entry
}

// Archive is a parsed FPS4 archive.
//
// Archive is immutable after Open and safe for concurrent use. Every read
// goes through ReadAt on the content source with its own offset.
type Archive struct {
	header     codec.Header
	name       Optional[string]
	order      binary.ByteOrder
	multiplier uint32
	guessSizes bool
	entries    []Entry
	content    ByteSource

	members []Member
	slots   []int // entry index -> members slot, -1 when unresolved
	idx     *index.Index

	warnings []error

	// options
	text             textenc.Codec
	forcedMultiplier uint32
	logger           *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// Open parses the archive whose header and file table are read from header
// and whose file data is read from content.
//
// A nil content means header and content share one source. Location
// multiplier detection only runs in that case; split archives use a
// multiplier of 1 unless WithLocationMultiplier is given.
//
// Open fails with ErrFormat when the magic does not match. Unknown bitmask
// bits and an inferred multiplier other than 1 are not errors; they are
// logged at Warn level and reported by Warnings.
func Open(header, content ByteSource, opts ...Option) (*Archive, error) {
	a := &Archive{text: textenc.Default}
	for _, opt := range opts {
		opt(a)
	}
	shared := content == nil
	if shared {
		content = header
	}
	a.content = content

	raw := make([]byte, codec.HeaderSize)
	if err := codec.ReadFull(header, raw, 0); err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrFormat, err)
	}
	if string(raw[:len(codec.Magic)]) != codec.Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrFormat, raw[:len(codec.Magic)])
	}
	a.order = heuristic.DetectByteOrder(raw[len(codec.Magic):])
	h, err := codec.DecodeHeader(raw, a.order)
	if err != nil {
		return nil, err
	}
	a.header = h
	a.log().Debug("header decoded",
		"byte_order", a.order.String(),
		"file_count", h.FileCount,
		"header_size", h.HeaderSize,
		"first_file_start", h.FirstFileStart,
		"entry_size", h.EntrySize,
		"schema", h.Schema.String())

	if h.Schema.HasUnknownBits() {
		a.warn(fmt.Errorf("%w: %s", ErrUnknownSchemaBits, h.Schema.UnknownBits()))
	}

	if h.NameLocation != 0 {
		rawName, err := codec.ReadCString(header, int64(h.NameLocation))
		if err != nil {
			return nil, fmt.Errorf("read archive name at 0x%X: %w", h.NameLocation, err)
		}
		a.name = Some(a.text.Decode(rawName))
	}

	if err := a.readEntries(header); err != nil {
		return nil, err
	}
	a.resolve(shared)
	a.log().Info("archive opened",
		"entries", len(a.entries),
		"members", len(a.members),
		"multiplier", a.multiplier,
		"guess_sizes", a.guessSizes)
	return a, nil
}

// readEntries decodes FileCount records starting at HeaderSize.
func (a *Archive) readEntries(src ByteSource) error {
	h := &a.header
	stride := uint64(h.EntrySize)
	if width := h.Schema.EntrySize(); stride == 0 {
		stride = uint64(width)
	} else if stride != uint64(width) {
		a.log().Debug("entry size differs from schema width", "entry_size", stride, "schema_width", width)
	}

	if stride == 0 && h.FileCount > 0 {
		return fmt.Errorf("%w: %d entries with a record width of zero", ErrFormat, h.FileCount)
	}

	end := uint64(h.HeaderSize) + uint64(h.FileCount)*stride
	if end > uint64(src.Size()) {
		return fmt.Errorf("%w: file table of %d entries ends at 0x%X past source size 0x%X",
			ErrFormat, h.FileCount, end, src.Size())
	}

	r := codec.NewEntryReader(src, h.Schema, a.order, a.text)
	a.entries = make([]Entry, 0, h.FileCount)
	for i := range h.FileCount {
		off := uint64(h.HeaderSize) + uint64(i)*stride
		e, err := r.Read(int64(off), i) //nolint:gosec // bounded by source size above
		if err != nil {
			return err
		}
		a.entries = append(a.entries, e)
	}
	return nil
}

// resolve runs the heuristics and builds the member list and path index.
func (a *Archive) resolve(shared bool) {
	schema := a.header.Schema

	switch {
	case a.forcedMultiplier != 0:
		a.multiplier = a.forcedMultiplier
	case shared && schema.HasStartPointers():
		a.multiplier = heuristic.DetectMultiplier(a.entries, a.header.FirstFileStart)
		if a.multiplier != 1 {
			a.warn(fmt.Errorf("%w: %d", ErrMultiplierGuess, a.multiplier))
		}
	default:
		a.multiplier = 1
	}

	a.guessSizes = !schema.HasFileSizes() && !schema.HasSectorSizes() &&
		schema.HasStartPointers() && heuristic.IsLinear(a.entries)

	a.slots = make([]int, len(a.entries))
	a.idx = index.New()
	for i := range a.entries {
		a.slots[i] = -1
		m, ok := a.resolveMember(i)
		if !ok {
			continue
		}
		a.slots[i] = len(a.members)
		a.idx.Add(m.Path, len(a.members))
		a.members = append(a.members, m)
	}
}

// resolveMember applies the lookup filter to entry i: the sentinel, skip
// entries and entries without a location or size are not members.
func (a *Archive) resolveMember(i int) (Member, bool) {
	if i == len(a.entries)-1 {
		return Member{}, false
	}
	e := &a.entries[i]
	if e.ShouldSkip() {
		return Member{}, false
	}
	off, ok := heuristic.Location(e, a.multiplier)
	if !ok {
		a.log().Debug("entry has no location", "index", i)
		return Member{}, false
	}
	size, ok := heuristic.GuessSize(a.entries, i, a.multiplier, a.guessSizes)
	if !ok {
		a.log().Debug("entry size unresolved", "index", i)
		return Member{}, false
	}
	dir, name := heuristic.GuessPathName(e)
	return Member{
		Index:  e.Index,
		Path:   NormalizePath(heuristic.JoinPath(dir, name)),
		Dir:    dir,
		Name:   name,
		Offset: off,
		Size:   size,
		Entry:  *e,
	}, true
}

func (a *Archive) warn(err error) {
	a.warnings = append(a.warnings, err)
	a.log().Warn("archive warning", "error", err)
}

// FileCount returns the number of table records, including the sentinel.
func (a *Archive) FileCount() uint32 { return a.header.FileCount }

// HeaderSize returns the absolute offset of the file table.
func (a *Archive) HeaderSize() uint32 { return a.header.HeaderSize }

// FirstFileStart returns the absolute offset of the first file's data.
func (a *Archive) FirstFileStart() uint32 { return a.header.FirstFileStart }

// EntrySize returns the declared number of bytes per record.
func (a *Archive) EntrySize() uint16 { return a.header.EntrySize }

// Schema returns the content bitmask.
func (a *Archive) Schema() ContentSchema { return a.header.Schema }

// Reserved returns the opaque reserved header word.
func (a *Archive) Reserved() uint32 { return a.header.Reserved }

// Name returns the archive name, if the header points to one.
func (a *Archive) Name() (string, bool) { return a.name.Get() }

// ByteOrder returns the detected byte order.
func (a *Archive) ByteOrder() binary.ByteOrder { return a.order }

// Multiplier returns the location multiplier applied to start pointers.
func (a *Archive) Multiplier() uint32 { return a.multiplier }

// GuessesSizes reports whether sizes are inferred from the next entry's
// location. This holds when the schema has no size fields and locations
// increase strictly.
func (a *Archive) GuessesSizes() bool { return a.guessSizes }

// Content returns the source file data is read from.
func (a *Archive) Content() ByteSource { return a.content }

// Warnings returns the non-fatal conditions found while opening.
// Each wraps ErrUnknownSchemaBits or ErrMultiplierGuess.
func (a *Archive) Warnings() []error {
	return append([]error(nil), a.warnings...)
}

// Entries returns a copy of every raw record in table order, including
// skip entries and the trailing sentinel.
func (a *Archive) Entries() []Entry {
	return append([]Entry(nil), a.entries...)
}

// Len returns the number of resolved members.
func (a *Archive) Len() int { return len(a.members) }

// Member returns the member for table index i. It reports false for the
// sentinel, skip entries and entries whose location or size is unresolved.
func (a *Archive) Member(i int) (Member, bool) {
	if i < 0 || i >= len(a.slots) || a.slots[i] < 0 {
		return Member{}, false
	}
	return a.members[a.slots[i]], true
}

// Lookup returns the member stored under path. The path is normalized with
// NormalizePath. When several members share a path the lowest index wins.
func (a *Archive) Lookup(path string) (Member, bool) {
	slot, ok := a.idx.Lookup(NormalizePath(path))
	if !ok {
		return Member{}, false
	}
	return a.members[slot], true
}

// Members returns an iterator over all members in table order.
func (a *Archive) Members() iter.Seq[Member] {
	return func(yield func(Member) bool) {
		for _, m := range a.members {
			if !yield(m) {
				return
			}
		}
	}
}

// MembersWithPrefix returns an iterator over members whose path starts with
// prefix, in path order.
func (a *Archive) MembersWithPrefix(prefix string) iter.Seq[Member] {
	return func(yield func(Member) bool) {
		for it := range a.idx.WithPrefix(prefix) {
			if !yield(a.members[it.Slot]) {
				return
			}
		}
	}
}

// Paths returns the distinct member paths in sorted order.
func (a *Archive) Paths() []string {
	paths := make([]string, 0, len(a.members))
	for it := range a.idx.All() {
		if n := len(paths); n > 0 && paths[n-1] == it.Path {
			continue
		}
		paths = append(paths, it.Path)
	}
	return paths
}

// OpenMember returns a view of the member's data. Each call returns an
// independent reader; nothing is copied.
func (a *Archive) OpenMember(m Member) (*io.SectionReader, error) {
	off, size, err := a.bounds(m)
	if err != nil {
		return nil, err
	}
	return io.NewSectionReader(a.content, off, size), nil
}

// ReadMember reads the member's data into memory.
func (a *Archive) ReadMember(m Member) ([]byte, error) {
	off, size, err := a.bounds(m)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, size)
	if err := codec.ReadFull(a.content, buf, off); err != nil {
		return nil, fmt.Errorf("read %s: %w", m.Path, err)
	}
	return buf, nil
}

func (a *Archive) bounds(m Member) (off, size int64, err error) {
	off, err = sizing.ToInt64(m.Offset, ErrSizeOverflow)
	if err != nil {
		return 0, 0, fmt.Errorf("member %d offset: %w", m.Index, err)
	}
	size, err = sizing.ToInt64(m.Size, ErrSizeOverflow)
	if err != nil {
		return 0, 0, fmt.Errorf("member %d size: %w", m.Index, err)
	}
	if off > math.MaxInt64-size {
		return 0, 0, fmt.Errorf("member %d range: %w", m.Index, ErrSizeOverflow)
	}
	return off, size, nil
}

// unresolved returns an ErrUnresolvedField error for every entry that
// strict operations need but that has no member.
func (a *Archive) unresolved() error {
	var errs []error
	for i := range a.entries {
		if i == len(a.entries)-1 || a.entries[i].ShouldSkip() || a.slots[i] >= 0 {
			continue
		}
		field := "size"
		if !a.entries[i].Location.Set {
			field = "location"
		}
		errs = append(errs, fmt.Errorf("%w: entry %d has no %s", ErrUnresolvedField, i, field))
	}
	return errors.Join(errs...)
}
