package fps4

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/fps4/core/internal/codec"
	"github.com/meigma/fps4/core/internal/file"
	"github.com/meigma/fps4/core/internal/sizing"
	"github.com/meigma/fps4/core/internal/textenc"
)

// PackResult describes an archive written by Pack.
type PackResult struct {
	// Size is the total number of bytes written.
	Size uint64

	// FirstFileStart is the absolute offset of the first file's data.
	FirstFileStart uint32

	// EntrySize is the number of bytes per table record.
	EntrySize uint16

	// Offsets holds the absolute data offset of every request.
	Offsets []uint64

	// DuplicateOf holds, per request, the request whose storage it shares.
	DuplicateOf []Optional[int]

	// Digest is the SHA-256 digest of the written bytes.
	Digest digest.Digest
}

// Pack writes requests to w as an FPS4 archive.
//
// The header, file table, metadata strings and archive name are laid out in
// memory before the first byte is written, so every configuration problem
// is reported as ErrConfiguration with nothing written. A source yielding a
// different number of bytes than its request's Length fails with
// ErrSizeMismatch; w then holds an incomplete archive the caller must
// discard.
//
// Each non-duplicate file occupies its length rounded up to the alignment.
// Duplicates share the offset of the request they duplicate. The trailing
// sentinel record's start pointer holds the end of the data so that readers
// can size the last file from its successor.
func Pack(ctx context.Context, w io.Writer, requests []PackRequest, opts ...PackOption) (*PackResult, error) {
	cfg := packConfig{
		alignment:  DefaultAlignment,
		multiplier: 1,
		text:       textenc.Default,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &packer{cfg: cfg, requests: requests}
	if err := p.loadReference(); err != nil {
		return nil, err
	}
	if !p.cfg.schemaSet {
		p.cfg.schema = DefaultPackSchema
		if p.ref != nil {
			p.cfg.schema = p.ref.Schema()
		}
	}
	if p.cfg.order == nil {
		p.cfg.order = binary.BigEndian
		if p.ref != nil {
			p.cfg.order = p.ref.ByteOrder()
		}
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := p.resolveDuplicates(ctx); err != nil {
		return nil, err
	}

	lay, err := p.layout()
	if err != nil {
		return nil, err
	}
	p.log().Info("packing archive",
		"files", len(requests),
		"schema", p.cfg.schema.String(),
		"byte_order", p.cfg.order.String(),
		"alignment", p.cfg.alignment,
		"multiplier", p.cfg.multiplier,
		"first_file_start", lay.firstFileStart)

	digester := digest.Canonical.Digester()
	cw := &file.CountingWriter{W: io.MultiWriter(w, digester.Hash())}
	if err := p.write(ctx, cw, lay); err != nil {
		return nil, err
	}

	res := &PackResult{
		Size:           cw.N,
		FirstFileStart: lay.firstFileStart,
		EntrySize:      uint16(p.cfg.schema.EntrySize()), //nolint:gosec // at most 60
		Offsets:        lay.offsets,
		DuplicateOf:    p.dupOf,
		Digest:         digester.Digest(),
	}
	p.log().Info("archive packed", "size", res.Size, "digest", res.Digest.String())
	return res, nil
}

// packer holds state for one Pack call.
type packer struct {
	cfg      packConfig
	requests []PackRequest
	ref      *Archive
	refEnts  []Entry
	dupOf    []Optional[int]
}

// log returns the logger, falling back to a discard logger if nil.
func (p *packer) log() *slog.Logger {
	if p.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.cfg.logger
}

func (p *packer) reportProgress(stage ProgressStage, path string, bytesDone, bytesTotal uint64, filesDone, filesTotal int) {
	if p.cfg.progress == nil {
		return
	}
	p.cfg.progress(ProgressEvent{
		Stage:      stage,
		Path:       path,
		BytesDone:  bytesDone,
		BytesTotal: bytesTotal,
		FilesDone:  filesDone,
		FilesTotal: filesTotal,
	})
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// loadReference parses the reference archive, if any.
func (p *packer) loadReference() error {
	if p.cfg.reference == nil {
		return nil
	}
	ref, err := Open(p.cfg.reference, nil,
		WithLocationMultiplier(1),
		WithTextEncoding(p.cfg.text),
		WithLogger(p.cfg.logger))
	if err != nil {
		return fmt.Errorf("%w: reference archive: %w", ErrConfiguration, err)
	}
	if int(ref.FileCount()) != len(p.requests)+1 {
		return configErr("reference archive has %d entries, want %d", ref.FileCount(), len(p.requests)+1)
	}
	p.ref = ref
	p.refEnts = ref.Entries()
	return nil
}

// validate rejects options and requests that cannot produce an archive
// which reads back correctly.
func (p *packer) validate() error {
	c := &p.cfg
	switch {
	case c.alignment == 0:
		return configErr("alignment must be nonzero")
	case c.multiplier == 0:
		return configErr("multiplier must be nonzero")
	case c.alignment%c.multiplier != 0:
		return configErr("alignment 0x%X is not a multiple of multiplier %d", c.alignment, c.multiplier)
	case c.schema.HasUnknownBits():
		return configErr("schema %s has unknown bits %s", c.schema, c.schema.UnknownBits())
	case !c.schema.HasStartPointers():
		return configErr("schema %s has no start pointers", c.schema)
	case c.metadata != 0 && !c.schema.HasMetadata():
		return configErr("metadata strings requested but schema %s has no metadata pointers", c.schema)
	}
	if uint64(len(p.requests))+1 > math.MaxUint32 {
		return configErr("too many files: %d", len(p.requests))
	}

	for i := range p.requests {
		r := &p.requests[i]
		if r.Source == nil && r.Length > 0 {
			return configErr("file %d (%s): no source for %d bytes", i, r.Name, r.Length)
		}
		if j, ok := r.DuplicateOf.Get(); ok {
			if j < 0 || j >= i {
				return configErr("file %d (%s): duplicate of %d is not an earlier file", i, r.Name, j)
			}
			if p.requests[j].Length != r.Length {
				return configErr("file %d (%s): duplicate of %d with a different length", i, r.Name, j)
			}
		}
		if c.schema.HasFileSizes() && r.Length > math.MaxUint32 {
			return configErr("file %d (%s): length %d does not fit the file size field", i, r.Name, r.Length)
		}
		if c.schema.HasSectorSizes() && sizing.AlignUp(r.Length, uint64(c.alignment)) > math.MaxUint32 {
			return configErr("file %d (%s): length %d does not fit the sector size field", i, r.Name, r.Length)
		}
		if c.metadata&MetadataPath != 0 && strings.ContainsAny(metadataPath(r.RelativePath), " \t") {
			return configErr("file %d (%s): metadata path %q contains a space", i, r.Name, r.RelativePath)
		}
		if c.metadata&MetadataName != 0 && strings.ContainsAny(stem(r.Name), " \t") {
			return configErr("file %d (%s): metadata name contains a space", i, r.Name)
		}
	}
	return nil
}

// resolveDuplicates merges explicit DuplicateOf marks with detected ones.
func (p *packer) resolveDuplicates(ctx context.Context) error {
	p.dupOf = make([]Optional[int], len(p.requests))
	for i := range p.requests {
		p.dupOf[i] = p.requests[i].DuplicateOf
	}
	if !p.cfg.deduplicate {
		return nil
	}
	found, err := DetectDuplicates(ctx, p.requests,
		DedupWithWorkers(p.cfg.dedupWorkers),
		DedupWithProgress(p.cfg.progress))
	if err != nil {
		return fmt.Errorf("detect duplicates: %w", err)
	}
	for i, d := range found {
		if p.dupOf[i].Set || !d.Set {
			continue
		}
		if p.requests[d.Value].Length != p.requests[i].Length {
			return configErr("file %d (%s): identical to %d but declared lengths differ", i, p.requests[i].Name, d.Value)
		}
		p.dupOf[i] = d
		p.log().Debug("duplicate detected", "file", i, "of", d.Value)
	}
	return nil
}

// packLayout is the fully computed archive prefix and data placement.
type packLayout struct {
	head           []byte // header, table, metadata strings, archive name
	firstFileStart uint32
	offsets        []uint64
	end            uint64
}

// layout computes every offset and encodes the header region.
func (p *packer) layout() (*packLayout, error) {
	c := &p.cfg
	n := len(p.requests)
	rl := codec.NewLayout(c.schema)
	entrySize := uint64(rl.Width)
	pos := uint64(codec.HeaderSize) + uint64(n+1)*entrySize

	// Metadata strings follow the table, one per file. A file with no
	// components still gets an empty string.
	var strtab []byte
	pointers := make([]uint32, n)
	if c.metadata != 0 {
		for i := range p.requests {
			s := p.metadataString(&p.requests[i])
			enc, err := c.text.Encode(s)
			if err != nil {
				return nil, fmt.Errorf("%w: file %d metadata: %w", ErrConfiguration, i, err)
			}
			ptr, err := sizing.ToUint32(pos, ErrSizeOverflow)
			if err != nil {
				return nil, fmt.Errorf("%w: metadata offset: %w", ErrConfiguration, err)
			}
			pointers[i] = ptr
			strtab = append(strtab, enc...)
			strtab = append(strtab, 0)
			pos += uint64(len(enc)) + 1
		}
	}

	var nameLoc uint32
	if name, ok := c.name.Get(); ok {
		enc, err := c.text.Encode(name)
		if err != nil {
			return nil, fmt.Errorf("%w: archive name: %w", ErrConfiguration, err)
		}
		loc, err := sizing.ToUint32(pos, ErrSizeOverflow)
		if err != nil {
			return nil, fmt.Errorf("%w: archive name offset: %w", ErrConfiguration, err)
		}
		nameLoc = loc
		strtab = append(strtab, enc...)
		strtab = append(strtab, 0)
		pos += uint64(len(enc)) + 1
	}

	ffs := sizing.AlignUp(pos, uint64(c.alignment))
	var reserved uint32
	if p.ref != nil {
		ffs = uint64(p.ref.FirstFileStart())
		reserved = p.ref.Reserved()
		if ffs < pos {
			return nil, configErr("reference first file start 0x%X is inside the table region ending at 0x%X", ffs, pos)
		}
		if ffs%uint64(c.multiplier) != 0 {
			return nil, configErr("reference first file start 0x%X is not a multiple of multiplier %d", ffs, c.multiplier)
		}
	}
	firstFileStart, err := sizing.ToUint32(ffs, ErrSizeOverflow)
	if err != nil {
		return nil, fmt.Errorf("%w: first file start: %w", ErrConfiguration, err)
	}

	offsets := make([]uint64, n)
	cur := ffs
	for i := range p.requests {
		if j, ok := p.dupOf[i].Get(); ok {
			offsets[i] = offsets[j]
			continue
		}
		offsets[i] = cur
		next, ok := sizing.AddUint64(cur, sizing.AlignUp(p.requests[i].Length, uint64(c.alignment)))
		if !ok {
			return nil, fmt.Errorf("%w: data size: %w", ErrConfiguration, ErrSizeOverflow)
		}
		cur = next
	}
	lay := &packLayout{firstFileStart: firstFileStart, offsets: offsets, end: cur}

	lay.head = make([]byte, pos)
	codec.EncodeHeader(lay.head, &codec.Header{
		FileCount:      uint32(n + 1), //nolint:gosec // checked in validate
		HeaderSize:     codec.HeaderSize,
		FirstFileStart: firstFileStart,
		EntrySize:      uint16(entrySize), //nolint:gosec // at most 60
		Schema:         c.schema,
		Reserved:       reserved,
		NameLocation:   nameLoc,
	}, c.order)

	for i := range n + 1 {
		e, err := p.record(i, lay, pointers)
		if err != nil {
			return nil, err
		}
		off := uint64(codec.HeaderSize) + uint64(i)*entrySize
		rec := lay.head[off : off+entrySize]
		if err := codec.EncodeEntry(rec, &e, rl, c.order, c.text); err != nil {
			return nil, fmt.Errorf("%w: file %d: %w", ErrConfiguration, i, err)
		}
	}
	copy(lay.head[uint64(codec.HeaderSize)+uint64(n+1)*entrySize:], strtab)
	return lay, nil
}

// record builds table record i; i == len(requests) is the sentinel.
func (p *packer) record(i int, lay *packLayout, pointers []uint32) (Entry, error) {
	c := &p.cfg
	var e Entry
	if p.ref != nil {
		re := &p.refEnts[i]
		e.SectorSize = re.SectorSize
		e.MetadataPointer = re.MetadataPointer
		e.FieldA = re.FieldA
		e.FieldB = re.FieldB
	}

	if i == len(p.requests) {
		loc, err := p.location(lay.end)
		if err != nil {
			return Entry{}, err
		}
		e.Location = Some(loc)
		return e, nil
	}

	r := &p.requests[i]
	loc, err := p.location(lay.offsets[i])
	if err != nil {
		return Entry{}, err
	}
	e.Location = Some(loc)
	e.SectorSize = Some(uint32(sizing.AlignUp(r.Length, uint64(c.alignment)))) //nolint:gosec // checked in validate
	e.FileSize = Some(uint32(r.Length))                                          //nolint:gosec // checked in validate
	e.FileName = Some(r.Name)
	e.FileType = Some(fileType(r.Name))
	if c.metadata != 0 {
		e.MetadataPointer = Some(pointers[i])
	}
	return e, nil
}

// location converts an absolute offset to a start pointer.
func (p *packer) location(off uint64) (uint32, error) {
	loc, err := sizing.ToUint32(off/uint64(p.cfg.multiplier), ErrSizeOverflow)
	if err != nil {
		return 0, fmt.Errorf("%w: offset 0x%X with multiplier %d: %w", ErrConfiguration, off, p.cfg.multiplier, err)
	}
	return loc, nil
}

// metadataString builds the metadata string for r from the requested
// components.
func (p *packer) metadataString(r *PackRequest) string {
	var parts []string
	if p.cfg.metadata&MetadataPath != 0 {
		if dir := metadataPath(r.RelativePath); dir != "" {
			parts = append(parts, dir)
		}
	}
	if p.cfg.metadata&MetadataName != 0 {
		parts = append(parts, "name="+stem(r.Name))
	}
	return strings.Join(parts, " ")
}

// metadataPath normalizes a relative directory for the metadata string.
func metadataPath(p string) string {
	if p = NormalizePath(p); p == "." {
		return ""
	}
	return p
}

// write emits the computed layout followed by the file data.
func (p *packer) write(ctx context.Context, cw *file.CountingWriter, lay *packLayout) error {
	n := len(p.requests)
	p.reportProgress(StageWritingTable, "", 0, 0, 0, n)
	if _, err := cw.Write(lay.head); err != nil {
		return fmt.Errorf("write table: %w", err)
	}
	if err := p.writeGap(cw, uint64(lay.firstFileStart)); err != nil {
		return err
	}

	dataTotal := lay.end - uint64(lay.firstFileStart)
	var dataDone uint64
	for i := range p.requests {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := &p.requests[i]
		if p.dupOf[i].Set {
			p.log().Debug("file shares storage", "file", i, "name", r.Name, "offset", lay.offsets[i])
			p.reportProgress(StageWritingData, r.Name, dataDone, dataTotal, i+1, n)
			continue
		}
		if cw.N != lay.offsets[i] {
			return fmt.Errorf("file %d (%s): writer at 0x%X, expected 0x%X", i, r.Name, cw.N, lay.offsets[i])
		}
		if err := p.writeFile(cw, i); err != nil {
			return err
		}
		aligned := sizing.AlignUp(r.Length, uint64(p.cfg.alignment))
		if err := cw.Pad(aligned - r.Length); err != nil {
			return fmt.Errorf("file %d (%s): pad: %w", i, r.Name, err)
		}
		dataDone += aligned
		p.log().Debug("file written", "file", i, "name", r.Name, "offset", lay.offsets[i], "length", r.Length)
		p.reportProgress(StageWritingData, r.Name, dataDone, dataTotal, i+1, n)
	}
	return nil
}

// writeGap fills the space between the header region and the first file,
// from the reference archive when regenerating.
func (p *packer) writeGap(cw *file.CountingWriter, ffs uint64) error {
	if cw.N >= ffs {
		return nil
	}
	if p.cfg.reference != nil {
		start := int64(cw.N) //nolint:gosec // below first file start, a uint32
		avail := min(p.cfg.reference.Size(), int64(ffs)) - start
		if avail > 0 {
			if _, err := io.Copy(cw, io.NewSectionReader(p.cfg.reference, start, avail)); err != nil {
				return fmt.Errorf("copy reference padding: %w", err)
			}
		}
	}
	if err := cw.Pad(ffs - cw.N); err != nil {
		return fmt.Errorf("write padding: %w", err)
	}
	return nil
}

// writeFile streams request i's content, checking its length.
func (p *packer) writeFile(cw *file.CountingWriter, i int) error {
	r := &p.requests[i]
	if r.Source == nil {
		return nil
	}
	rc, err := r.Source.Open()
	if err != nil {
		return fmt.Errorf("file %d (%s): open: %w", i, r.Name, err)
	}
	defer rc.Close()

	want, err := sizing.ToInt64(r.Length, ErrSizeOverflow)
	if err != nil {
		return fmt.Errorf("file %d (%s): %w", i, r.Name, err)
	}
	got, err := io.CopyN(cw, rc, want)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: file %d (%s): got %d bytes, declared %d", ErrSizeMismatch, i, r.Name, got, want)
	}
	if err != nil {
		return fmt.Errorf("file %d (%s): %w", i, r.Name, err)
	}
	var extra [1]byte
	if n, _ := io.ReadFull(rc, extra[:]); n > 0 { //nolint:errcheck // only the count matters
		return fmt.Errorf("%w: file %d (%s): more than the declared %d bytes", ErrSizeMismatch, i, r.Name, want)
	}
	return nil
}
