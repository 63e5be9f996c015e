package fps4

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/fps4/core/testutil"
)

func readFileIn(dir, rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestExtract_NestedPaths(t *testing.T) {
	t.Parallel()

	for _, workers := range []int{0, 4} {
		a := nestedArchive(t)
		dir := t.TempDir()

		var events atomic.Int32
		err := a.Extract(context.Background(), dir,
			ExtractWithWorkers(workers),
			ExtractWithProgress(func(ev ProgressEvent) {
				assert.Equal(t, StageExtracting, ev.Stage)
				events.Add(1)
			}))
		require.NoError(t, err)

		for _, r := range sampleRequests() {
			got, err := readFileIn(dir, filepath.ToSlash(filepath.Join(r.RelativePath, r.Name)))
			require.NoError(t, err)
			assert.Equal(t, requestBytes(t, r), got, r.Name)
		}
		assert.Equal(t, 4, countFiles(t, dir))
		assert.Positive(t, events.Load())
	}
}

func TestExtract_Overwrite(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)
	dir := t.TempDir()
	existing := filepath.Join(dir, "readme.txt")
	require.NoError(t, os.WriteFile(existing, []byte("old"), 0o600))

	require.NoError(t, a.Extract(context.Background(), dir))
	got, err := os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), got, "existing files are kept by default")

	require.NoError(t, a.Extract(context.Background(), dir, ExtractWithOverwrite(true), ExtractWithDirectWrites(true)))
	got, err = os.ReadFile(existing)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, archive"), got)
}

func TestExtract_UnresolvedEntryFails(t *testing.T) {
	t.Parallel()

	// No size fields and locations that go backwards: sizes cannot be
	// guessed for any entry.
	raw := &testutil.RawArchive{
		Schema:         0x0009,
		FirstFileStart: 0x100,
		Entries: []testutil.RawEntry{
			{Location: 0x100, FileName: "a.bin"},
			{Location: 0x120, FileName: "b.bin"},
			{Location: 0x110, FileName: "c.bin"},
			{Location: 0x140},
		},
		Chunks: []testutil.Chunk{{Offset: 0x100, Data: bytes.Repeat([]byte{1}, 0x40)}},
	}
	a := openRaw(t, raw)

	// Listings silently omit what they cannot resolve.
	assert.Zero(t, a.Len())
	assert.Empty(t, memberPaths(a))
	root, err := a.ReadDir(".")
	require.NoError(t, err)
	assert.Empty(t, root)

	dir := t.TempDir()
	err = a.Extract(context.Background(), dir)
	require.ErrorIs(t, err, ErrUnresolvedField)
	assert.Zero(t, countFiles(t, dir))
}

func TestExtract_InvalidMemberPath(t *testing.T) {
	t.Parallel()

	raw := threeFiles(nil)
	raw.Entries[1].FileName = "../escape.txt"
	a := openRaw(t, raw)

	_, ok := a.Lookup("../escape.txt")
	require.True(t, ok)

	dir := t.TempDir()
	err := a.Extract(context.Background(), dir)
	require.ErrorIs(t, err, fs.ErrInvalid)
	assert.Zero(t, countFiles(t, dir))
}

func TestExtract_DuplicatePathWrittenOnce(t *testing.T) {
	t.Parallel()

	raw := threeFiles(nil)
	raw.Entries[2].FileName = "alpha.bin"
	a := openRaw(t, raw)

	dir := t.TempDir()
	require.NoError(t, a.Extract(context.Background(), dir))
	got, err := readFileIn(dir, "alpha.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("AAAAA"), got)
	assert.Equal(t, 2, countFiles(t, dir))
}

func TestExtract_Canceled(t *testing.T) {
	t.Parallel()

	a := nestedArchive(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := a.Extract(ctx, t.TempDir())
	require.ErrorIs(t, err, context.Canceled)
}
