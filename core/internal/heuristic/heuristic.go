// Package heuristic recovers information the FPS4 format does not store
// explicitly: byte order, the location multiplier, whether sizes must be
// inferred from neighbouring records, and logical paths.
//
// Every function is pure. Results are never written back into an Entry.
package heuristic

import (
	"encoding/binary"
	"fmt"
	"path"
	"strings"

	"github.com/meigma/fps4/core/internal/fpstype"
)

// maxPlausibleHeaderSize is the largest header size accepted as big-endian.
const maxPlausibleHeaderSize = 0xFFFF

// DetectByteOrder inspects the file count and header size words (raw must
// hold at least 8 bytes starting at the file count). They are read
// big-endian; a header size above 0xFFFF is implausible for a record table,
// so the archive is taken to be little-endian.
func DetectByteOrder(raw []byte) binary.ByteOrder {
	headerSize := binary.BigEndian.Uint32(raw[4:8])
	if headerSize > maxPlausibleHeaderSize {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// IsLinear reports whether the locations of non-skip entries strictly
// increase in index order. Entries without a location are ignored.
func IsLinear(entries []fpstype.Entry) bool {
	var prev uint32
	seen := false
	for i := range entries {
		e := &entries[i]
		if e.ShouldSkip() {
			continue
		}
		loc, ok := e.Location.Get()
		if !ok {
			continue
		}
		if seen && loc <= prev {
			return false
		}
		prev, seen = loc, true
	}
	return true
}

// DetectMultiplier infers the factor stored locations were divided by.
//
// The smallest nonzero location among non-skip entries (excluding the
// trailing sentinel) must correspond to firstFileStart. When it evenly
// divides firstFileStart the quotient is the multiplier; otherwise, or when
// no such location exists, the multiplier is 1.
func DetectMultiplier(entries []fpstype.Entry, firstFileStart uint32) uint32 {
	if len(entries) < 2 {
		return 1
	}
	var smallest uint32
	for i := range entries[:len(entries)-1] {
		e := &entries[i]
		if e.ShouldSkip() {
			continue
		}
		loc, ok := e.Location.Get()
		if !ok || loc == 0 {
			continue
		}
		if smallest == 0 || loc < smallest {
			smallest = loc
		}
	}
	if smallest == 0 || smallest == firstFileStart {
		return 1
	}
	if firstFileStart%smallest == 0 {
		return firstFileStart / smallest
	}
	return 1
}

// Location returns the absolute byte offset of e: its raw location times
// multiplier.
func Location(e *fpstype.Entry, multiplier uint32) (uint64, bool) {
	loc, ok := e.Location.Get()
	if !ok {
		return 0, false
	}
	return uint64(loc) * uint64(multiplier), true
}

// GuessSize returns the data size of entries[i].
//
// A declared file size wins, then a declared sector size. Otherwise, when
// fromSuccessor is enabled and the entry has a location, the size is the
// distance to the next non-skip entry's location. The trailing sentinel
// record exists so the final real file has such a successor.
func GuessSize(entries []fpstype.Entry, i int, multiplier uint32, fromSuccessor bool) (uint64, bool) {
	e := &entries[i]
	if size, ok := e.FileSize.Get(); ok {
		return uint64(size), true
	}
	if size, ok := e.SectorSize.Get(); ok {
		return uint64(size), true
	}
	if !fromSuccessor {
		return 0, false
	}
	start, ok := Location(e, multiplier)
	if !ok {
		return 0, false
	}
	for j := i + 1; j < len(entries); j++ {
		next := &entries[j]
		if next.ShouldSkip() {
			continue
		}
		end, ok := Location(next, multiplier)
		if !ok || end < start {
			return 0, false
		}
		return end - start, true
	}
	return 0, false
}

// GuessPathName derives the directory and file name of e.
//
// The filename field always wins; without it the metadata "name" value is
// used. The directory is the positional metadata token when it is not blank.
// With neither name source, a name is synthesized from the zero-padded index
// and file type; if a positional path exists, the synthesized name is
// appended to its final component ("a/b" + "0007.dat" gives directory "a"
// and name "b.0007.dat").
func GuessPathName(e *fpstype.Entry) (dir, name string) {
	var md fpstype.Metadata
	if m, ok := e.Metadata.Get(); ok {
		md = m
	}
	positional, hasPath := md.Positional()
	positional = cleanDir(positional)
	hasPath = hasPath && positional != ""

	if n, ok := e.FileName.Get(); ok {
		if hasPath {
			dir = positional
		}
		return dir, n
	}
	if n, ok := md.Lookup("name"); ok {
		if hasPath {
			dir = positional
		}
		return dir, n
	}

	synth := fmt.Sprintf("%04d", e.Index)
	if ft, ok := e.FileType.Get(); ok {
		synth += "." + ft
	}
	if !hasPath {
		return "", synth
	}
	parent, last := path.Split(positional)
	return strings.TrimSuffix(parent, "/"), last + "." + synth
}

// JoinPath joins dir and name into a slash-separated archive path.
func JoinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// cleanDir normalizes a metadata path: backslashes become slashes and
// surrounding whitespace and slashes are trimmed.
func cleanDir(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimSpace(p)
	return strings.Trim(p, "/")
}
