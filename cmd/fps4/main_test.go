package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sourceTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"chara/title.tm2": "title image",
		"chara/copy.tm2":  "title image",
		"readme.txt":      "hello",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func TestPackListExtract(t *testing.T) {
	t.Parallel()

	src := sourceTree(t)
	archive := filepath.Join(t.TempDir(), "out.fps4")

	out, err := run(t, "pack", src, "-o", archive,
		"--schema", "0x004F", "--metadata", "path", "--dedup", "--name", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "3 files, 1 shared")

	out, err = run(t, "info", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "name:             demo")
	assert.Contains(t, out, "schema:           0x004F (start, sector, size, name, metadata)")
	assert.Contains(t, out, "members:          3")

	out, err = run(t, "list", archive)
	require.NoError(t, err)
	assert.Equal(t, []string{"chara/copy.tm2", "chara/title.tm2", "readme.txt"}, strings.Fields(out))

	out, err = run(t, "list", "-l", archive)
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")

	dest := t.TempDir()
	out, err = run(t, "extract", archive, "-o", dest, "-j", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "extracted 3 files")
	got, err := os.ReadFile(filepath.Join(dest, "chara", "title.tm2"))
	require.NoError(t, err)
	assert.Equal(t, "title image", string(got))
}

func TestPack_ArgumentErrors(t *testing.T) {
	t.Parallel()

	archive := filepath.Join(t.TempDir(), "out.fps4")
	_, err := run(t, "pack", "-o", archive)
	require.Error(t, err)

	_, err = run(t, "pack", sourceTree(t), "-o", archive, "--byte-order", "middle")
	require.Error(t, err)

	_, err = run(t, "pack", sourceTree(t), "-o", archive, "--schema", "0x0008")
	require.Error(t, err, "a schema without start pointers cannot be packed")
}

func TestInfo_Remote(t *testing.T) {
	t.Parallel()

	src := sourceTree(t)
	dir := t.TempDir()
	archive := filepath.Join(dir, "out.fps4")
	_, err := run(t, "pack", src, "-o", archive)
	require.NoError(t, err)

	server := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(server.Close)

	out, err := run(t, "list", server.URL+"/out.fps4")
	require.NoError(t, err)
	assert.Equal(t, []string{"copy.tm2", "title.tm2", "readme.txt"}, strings.Fields(out))
}
