package fps4

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir string, reqs []PackRequest, opts ...PackOption) string {
	t.Helper()
	dest := filepath.Join(dir, "test.fps4")
	_, err := PackFile(context.Background(), dest, reqs, opts...)
	require.NoError(t, err)
	return dest
}

func simpleRequests() []PackRequest {
	return []PackRequest{
		{Name: "one.txt", Length: 3, Source: BytesSource([]byte("one"))},
		{Name: "two.txt", Length: 3, Source: BytesSource([]byte("two"))},
	}
}

func TestOpenFile(t *testing.T) {
	t.Parallel()

	dest := writeArchive(t, t.TempDir(), simpleRequests(), PackWithByteOrder(binary.LittleEndian))

	af, err := OpenFile(dest)
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, af.ByteOrder())
	assert.Equal(t, 2, af.Len())

	got, err := af.ReadFile("two.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	require.NoError(t, af.Close())
	_, err = af.ReadFile("two.txt")
	require.Error(t, err, "reads fail once the file is closed")
}

func TestOpenFile_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := OpenFile(filepath.Join(dir, "missing.fps4"))
	require.ErrorIs(t, err, os.ErrNotExist)

	bogus := filepath.Join(dir, "bogus.fps4")
	require.NoError(t, os.WriteFile(bogus, bytes.Repeat([]byte{'x'}, 64), 0o600))
	_, err = OpenFile(bogus)
	require.ErrorIs(t, err, ErrFormat)

	_, err = OpenFile(dir)
	require.Error(t, err)
}

func TestOpenSplitFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dest := writeArchive(t, dir, simpleRequests(), PackWithMultiplier(8), PackWithAlignment(0x20))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)

	// A split archive keeps the table in one file and the data, at the
	// same offsets, in another.
	a, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)
	ffs := a.FirstFileStart()
	headerPath := filepath.Join(dir, "split.dat")
	contentPath := filepath.Join(dir, "split.b")
	require.NoError(t, os.WriteFile(headerPath, data[:ffs], 0o600))
	content := append(make([]byte, ffs), data[ffs:]...)
	require.NoError(t, os.WriteFile(contentPath, content, 0o600))

	af, err := OpenSplitFile(headerPath, contentPath, WithLocationMultiplier(8))
	require.NoError(t, err)
	t.Cleanup(func() { _ = af.Close() })
	assert.Equal(t, uint32(8), af.Multiplier())
	assert.Empty(t, af.Warnings())

	got, err := af.ReadFile("one.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)

	// Without the forced multiplier nothing is inferred for split archives.
	plain, err := OpenSplitFile(headerPath, contentPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = plain.Close() })
	assert.Equal(t, uint32(1), plain.Multiplier())
}
