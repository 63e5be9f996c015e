package fps4

import (
	"bytes"
	"io"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nestedArchive(t *testing.T) *Archive {
	t.Helper()
	schema := FlagStartPointers | FlagFileSizes | FlagFileNames | FlagFileTypes | FlagMetadata
	data, _ := packBytes(t, sampleRequests(), PackWithSchema(schema), PackWithMetadata(MetadataPath))
	a, err := Open(bytes.NewReader(data), nil)
	require.NoError(t, err)
	return a
}

func TestArchive_FSConformance(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)
	require.NoError(t, fstest.TestFS(a,
		"chara/title.tm2",
		"readme.txt",
		"btl/map/map01.bin",
		"empty.dat",
	))
}

func TestArchive_ReadDir(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)

	names := func(entries []fs.DirEntry) []string {
		out := make([]string, len(entries))
		for i, e := range entries {
			out[i] = e.Name()
		}
		return out
	}

	root, err := a.ReadDir(".")
	require.NoError(t, err)
	assert.Equal(t, []string{"btl", "chara", "empty.dat", "readme.txt"}, names(root))
	assert.True(t, root[0].IsDir())
	assert.False(t, root[3].IsDir())

	sub, err := a.ReadDir("btl")
	require.NoError(t, err)
	assert.Equal(t, []string{"map"}, names(sub))

	_, err = a.ReadDir("readme.txt")
	require.ErrorIs(t, err, fs.ErrInvalid)

	_, err = a.ReadDir("missing")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_Stat(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)

	info, err := a.Stat("btl/map")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, "map", info.Name())

	info, err = a.Stat("chara/title.tm2")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, int64(37), info.Size())
	entry, ok := info.Sys().(*Entry)
	require.True(t, ok)
	assert.Equal(t, Some("tm2"), entry.FileType)

	_, err = a.Stat("chara/missing.tm2")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_OpenErrors(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)

	for _, name := range []string{"../readme.txt", "/readme.txt", "chara/"} {
		_, err := a.Open(name)
		require.ErrorIs(t, err, fs.ErrInvalid, name)
	}
	_, err := a.Open("nope.bin")
	require.ErrorIs(t, err, fs.ErrNotExist)
}

func TestArchive_OpenFile(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)

	f, err := a.Open("readme.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, archive"), data)

	seeker, ok := f.(io.Seeker)
	require.True(t, ok)
	_, err = seeker.Seek(7, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("archive"), rest)

	require.NoError(t, f.Close())
	_, err = f.Read(make([]byte, 1))
	require.ErrorIs(t, err, fs.ErrClosed)
	require.ErrorIs(t, f.Close(), fs.ErrClosed)
}

func TestArchive_WalkDir(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)

	var files []string
	err := fs.WalkDir(a, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"btl/map/map01.bin", "chara/title.tm2", "empty.dat", "readme.txt"}, files)
}
