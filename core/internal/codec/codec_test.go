package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/fps4/core/internal/fpstype"
	"github.com/meigma/fps4/core/internal/textenc"
)

func TestHeaderRoundTrip(t *testing.T) {
	t.Parallel()

	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		h := Header{
			FileCount:      4,
			HeaderSize:     HeaderSize,
			FirstFileStart: 0x800,
			EntrySize:      0x2C,
			Schema:         0x000F,
			Reserved:       0xDEADBEEF,
			NameLocation:   0x1F0,
		}
		buf := make([]byte, HeaderSize)
		EncodeHeader(buf, &h, order)
		assert.Equal(t, []byte(Magic), buf[:4])

		got, err := DecodeHeader(buf, order)
		require.NoError(t, err)
		assert.Equal(t, h, got)
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	t.Parallel()

	buf := make([]byte, HeaderSize)
	copy(buf, "FPS3")
	_, err := DecodeHeader(buf, binary.BigEndian)
	require.ErrorIs(t, err, fpstype.ErrFormat)

	_, err = DecodeHeader([]byte("FPS4"), binary.BigEndian)
	require.ErrorIs(t, err, fpstype.ErrFormat)
}

func TestNewLayout(t *testing.T) {
	t.Parallel()

	l := NewLayout(0x000F)
	assert.Equal(t, Layout{Start: 0, Sector: 4, Size: 8, Name: 12, Type: -1, Metadata: -1, FieldA: -1, FieldB: -1, Width: 44}, l)

	l = NewLayout(fpstype.FlagStartPointers | fpstype.FlagFileTypes | fpstype.FlagMetadata | fpstype.FlagFieldB)
	assert.Equal(t, Layout{Start: 0, Sector: -1, Size: -1, Name: -1, Type: 4, Metadata: 8, FieldA: -1, FieldB: 12, Width: 16}, l)

	assert.Equal(t, fpstype.KnownFlags.EntrySize(), NewLayout(fpstype.KnownFlags).Width)
}

func TestEntryRoundTrip(t *testing.T) {
	t.Parallel()

	schema := fpstype.KnownFlags
	l := NewLayout(schema)
	in := fpstype.Entry{
		Location:        fpstype.Some[uint32](0x100),
		SectorSize:      fpstype.Some[uint32](0x800),
		FileSize:        fpstype.Some[uint32](0x7F3),
		FileName:        fpstype.Some("chara.bin"),
		FileType:        fpstype.Some("bin"),
		MetadataPointer: fpstype.Some[uint32](0),
		FieldA:          fpstype.Some[uint32](0),
		FieldB:          fpstype.Some[uint32](9),
	}
	rec := make([]byte, l.Width)
	require.NoError(t, EncodeEntry(rec, &in, l, binary.LittleEndian, textenc.ShiftJIS))

	out := DecodeEntry(rec, l, binary.LittleEndian, textenc.ShiftJIS)
	assert.Equal(t, in, out)
}

func TestEncodeEntryOnlyWritesSchemaFields(t *testing.T) {
	t.Parallel()

	l := NewLayout(fpstype.FlagStartPointers | fpstype.FlagFileSizes)
	in := fpstype.Entry{
		Location: fpstype.Some[uint32](1),
		FileSize: fpstype.Some[uint32](2),
		FileName: fpstype.Some("ignored"),
	}
	rec := make([]byte, l.Width)
	require.NoError(t, EncodeEntry(rec, &in, l, binary.BigEndian, textenc.ShiftJIS))
	assert.Equal(t, []byte{0, 0, 0, 1, 0, 0, 0, 2}, rec)

	out := DecodeEntry(rec, l, binary.BigEndian, textenc.ShiftJIS)
	assert.False(t, out.FileName.Set)
	assert.False(t, out.SectorSize.Set)
}

func TestEncodeFixedTruncates(t *testing.T) {
	t.Parallel()

	b, err := EncodeFixed("abcdefgh", fpstype.FileTypeWidth, textenc.ShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), b)

	// Two double-byte characters fill the slot; the third must be dropped whole.
	b, err = EncodeFixed("テスト", fpstype.FileTypeWidth, textenc.ShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x83, 0x65, 0x83, 0x58}, b)
}

func TestDecodeEntryCutsAtNUL(t *testing.T) {
	t.Parallel()

	l := NewLayout(fpstype.FlagFileNames)
	rec := make([]byte, l.Width)
	copy(rec, "name\x00garbage")
	out := DecodeEntry(rec, l, binary.BigEndian, textenc.ShiftJIS)
	assert.Equal(t, "name", out.FileName.Value)
}

func TestEntryReaderFollowsMetadataPointer(t *testing.T) {
	t.Parallel()

	schema := fpstype.FlagStartPointers | fpstype.FlagMetadata
	l := NewLayout(schema)

	// Two records at 0, metadata strings after them.
	buf := make([]byte, 2*l.Width)
	md := []byte("assets/foo name=Bar\x00")
	mdOff := len(buf)
	buf = append(buf, md...)

	e0 := fpstype.Entry{Location: fpstype.Some[uint32](0x40), MetadataPointer: fpstype.Some(uint32(mdOff))}
	e1 := fpstype.Entry{Location: fpstype.Some[uint32](0x80)}
	require.NoError(t, EncodeEntry(buf[0:l.Width], &e0, l, binary.BigEndian, textenc.ShiftJIS))
	require.NoError(t, EncodeEntry(buf[l.Width:2*l.Width], &e1, l, binary.BigEndian, textenc.ShiftJIS))

	r := NewEntryReader(bytes.NewReader(buf), schema, binary.BigEndian, textenc.ShiftJIS)

	got0, err := r.Read(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got0.Index)
	assert.Equal(t, fpstype.Some(fpstype.Metadata{
		{Value: "assets/foo"},
		{Key: fpstype.Some("name"), Value: "Bar"},
	}), got0.Metadata)

	// The side read above must not affect the next sequential record.
	got1, err := r.Read(int64(l.Width), 1)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), got1.Index)
	assert.Equal(t, uint32(0x80), got1.Location.Value)
	assert.False(t, got1.Metadata.Set)
}

func TestEntryReaderTruncated(t *testing.T) {
	t.Parallel()

	r := NewEntryReader(bytes.NewReader(make([]byte, 6)), 0x000F, binary.BigEndian, textenc.ShiftJIS)
	_, err := r.Read(0, 0)
	require.Error(t, err)
}

func TestReadCString(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("x"), 200)
	src := bytes.NewReader(append(append([]byte("pad"), long...), 0, 'y'))

	got, err := ReadCString(src, 3)
	require.NoError(t, err)
	assert.Equal(t, long, got)

	got, err = ReadCString(bytes.NewReader([]byte("unterminated")), 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("terminated"), got)
}

func TestReadCStringTooLong(t *testing.T) {
	t.Parallel()

	fits := append(bytes.Repeat([]byte("a"), maxCStringLen-1), 0)
	got, err := ReadCString(bytes.NewReader(fits), 0)
	require.NoError(t, err)
	assert.Len(t, got, maxCStringLen-1)

	over := append(bytes.Repeat([]byte("a"), maxCStringLen+10), 0)
	_, err = ReadCString(bytes.NewReader(over), 0)
	require.ErrorIs(t, err, fpstype.ErrFormat)

	// A metadata pointer at such a string fails the record.
	raw := make([]byte, 0x10, 0x10+len(over))
	binary.BigEndian.PutUint32(raw[4:], 0x10) // start, metadata
	raw = append(raw, over...)
	r := NewEntryReader(bytes.NewReader(raw), 0x0041, binary.BigEndian, textenc.ShiftJIS)
	_, err = r.Read(0, 0)
	require.ErrorIs(t, err, fpstype.ErrFormat)
}
