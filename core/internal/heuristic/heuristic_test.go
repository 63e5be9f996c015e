package heuristic

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meigma/fps4/core/internal/fpstype"
)

func loc(v uint32) fpstype.Optional[uint32] { return fpstype.Some(v) }

func locations(ls ...uint32) []fpstype.Entry {
	entries := make([]fpstype.Entry, len(ls))
	for i, l := range ls {
		entries[i] = fpstype.Entry{Index: uint32(i), Location: loc(l)}
	}
	return entries
}

func TestDetectByteOrder(t *testing.T) {
	t.Parallel()

	be := []byte{0, 0, 0, 4, 0, 0, 0, 0x1C}
	le := []byte{4, 0, 0, 0, 0x1C, 0, 0, 0}
	assert.Equal(t, binary.BigEndian, DetectByteOrder(be))
	assert.Equal(t, binary.LittleEndian, DetectByteOrder(le))

	// The largest plausible header size stays big-endian.
	edge := []byte{0, 0, 0, 1, 0, 0, 0xFF, 0xFF}
	assert.Equal(t, binary.BigEndian, DetectByteOrder(edge))
}

func TestByteOrderSymmetry(t *testing.T) {
	t.Parallel()

	for _, headerSize := range []uint32{0x1C, 0x20, 0xFFFF} {
		raw := make([]byte, 8)
		binary.BigEndian.PutUint32(raw[0:], 3)
		binary.BigEndian.PutUint32(raw[4:], headerSize)
		order := DetectByteOrder(raw)
		assert.Equal(t, headerSize, order.Uint32(raw[4:]))

		binary.LittleEndian.PutUint32(raw[0:], 3)
		binary.LittleEndian.PutUint32(raw[4:], headerSize)
		order = DetectByteOrder(raw)
		assert.Equal(t, headerSize, order.Uint32(raw[4:]))
		assert.Equal(t, uint32(3), order.Uint32(raw[0:]))
	}
}

func TestIsLinear(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLinear(locations(0x20, 0x40, 0x80)))
	assert.False(t, IsLinear(locations(0x20, 0x20, 0x80)))
	assert.False(t, IsLinear(locations(0x40, 0x20, 0x80)))
	assert.True(t, IsLinear(locations(0x20, fpstype.SkipLocation, 0x80)))
	assert.True(t, IsLinear(nil))

	entries := locations(0x20, 0x10, 0x80)
	entries[1].FieldA = loc(1)
	assert.True(t, IsLinear(entries), "skip entries are ignored")
}

func TestDetectMultiplier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		entries        []fpstype.Entry
		firstFileStart uint32
		want           uint32
	}{
		{"divides evenly", locations(0x200, 0x300, 0x400), 0x1000, 8},
		{"does not divide", locations(0x300, 0x400, 0x500), 0x1000, 1},
		{"equals first file start", locations(0x1000, 0x2000, 0x3000), 0x1000, 1},
		{"zero locations ignored", locations(0, 0x200, 0x400), 0x1000, 8},
		{"no candidates", locations(0, 0, 0x400), 0x1000, 1},
		{"sentinel excluded", locations(0x1000, 0x100), 0x1000, 1},
		{"skip excluded", locations(fpstype.SkipLocation, 0x400, 0x500), 0x1000, 4},
		{"single entry", locations(0x200), 0x1000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMultiplier(tt.entries, tt.firstFileStart))
		})
	}
}

func TestGuessSizeDeclaredWins(t *testing.T) {
	t.Parallel()

	entries := locations(0x100, 0x200)
	entries[0].FileSize = loc(10)
	entries[0].SectorSize = loc(16)
	size, ok := GuessSize(entries, 0, 1, true)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), size)

	entries[0].FileSize = fpstype.Optional[uint32]{}
	size, ok = GuessSize(entries, 0, 1, true)
	assert.True(t, ok)
	assert.Equal(t, uint64(16), size)
}

func TestGuessSizeFromSuccessor(t *testing.T) {
	t.Parallel()

	ls := []uint32{0x800, 0x880, 0x1000, 0x1234, 0x2000}
	entries := locations(ls...)
	for i := 0; i < len(ls)-1; i++ {
		size, ok := GuessSize(entries, i, 1, true)
		assert.True(t, ok, i)
		assert.Equal(t, uint64(ls[i+1]-ls[i]), size, i)
	}

	_, ok := GuessSize(entries, len(ls)-1, 1, true)
	assert.False(t, ok, "sentinel has no successor")

	_, ok = GuessSize(entries, 0, 1, false)
	assert.False(t, ok, "guessing disabled")
}

func TestGuessSizeSkipsSkipEntriesAndMultiplies(t *testing.T) {
	t.Parallel()

	entries := locations(0x100, fpstype.SkipLocation, 0x180)
	size, ok := GuessSize(entries, 0, 8, true)
	assert.True(t, ok)
	assert.Equal(t, uint64(0x80*8), size)
}

func TestGuessSizeWithoutLocation(t *testing.T) {
	t.Parallel()

	entries := []fpstype.Entry{{}, {Location: loc(0x10)}}
	_, ok := GuessSize(entries, 0, 1, true)
	assert.False(t, ok)
}

func md(tokens string) fpstype.Optional[fpstype.Metadata] {
	return fpstype.Some(fpstype.ParseMetadata(tokens))
}

func TestGuessPathName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		entry    fpstype.Entry
		wantDir  string
		wantName string
	}{
		{
			name:     "filename wins over metadata name",
			entry:    fpstype.Entry{FileName: fpstype.Some("X"), Metadata: md("name=Y")},
			wantName: "X",
		},
		{
			name:     "filename with positional dir",
			entry:    fpstype.Entry{FileName: fpstype.Some("X"), Metadata: md("a/b name=Y")},
			wantDir:  "a/b",
			wantName: "X",
		},
		{
			name:     "metadata name",
			entry:    fpstype.Entry{Metadata: md("assets/foo name=Bar")},
			wantDir:  "assets/foo",
			wantName: "Bar",
		},
		{
			name:     "synthesized",
			entry:    fpstype.Entry{Index: 7},
			wantName: "0007",
		},
		{
			name:     "synthesized with type",
			entry:    fpstype.Entry{Index: 7, FileType: fpstype.Some("dat")},
			wantName: "0007.dat",
		},
		{
			name:     "synthesized under positional path",
			entry:    fpstype.Entry{Index: 7, FileType: fpstype.Some("dat"), Metadata: md("a/b")},
			wantDir:  "a",
			wantName: "b.0007.dat",
		},
		{
			name:     "synthesized under single component",
			entry:    fpstype.Entry{Index: 12, Metadata: md("b")},
			wantName: "b.0012",
		},
		{
			name:     "backslash path",
			entry:    fpstype.Entry{FileName: fpstype.Some("f"), Metadata: md(`a\b\`)},
			wantDir:  "a/b",
			wantName: "f",
		},
		{
			name:     "blank positional ignored",
			entry:    fpstype.Entry{FileName: fpstype.Some("f"), Metadata: md("/ name=g")},
			wantName: "f",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, name := GuessPathName(&tt.entry)
			assert.Equal(t, tt.wantDir, dir)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestJoinPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "f", JoinPath("", "f"))
	assert.Equal(t, "a/b/f", JoinPath("a/b", "f"))
}
