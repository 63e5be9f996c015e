package cache

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/fps4/core/testutil"
)

func patterned(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestSource_ReadAt(t *testing.T) {
	t.Parallel()

	data := patterned(1000)
	src := testutil.NewMockByteSource(data)
	c, err := Wrap(src, WithBlockSize(64), WithMaxBlocksPerRead(0))
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.Size())

	tests := []struct {
		name    string
		off     int64
		n       int
		wantN   int
		wantErr error
	}{
		{"inside one block", 3, 10, 10, nil},
		{"across blocks", 60, 200, 200, nil},
		{"short at end", 990, 20, 10, io.EOF},
		{"past end", 1000, 4, 0, io.EOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := make([]byte, tt.n)
			n, err := c.ReadAt(buf, tt.off)
			assert.Equal(t, tt.wantN, n)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantN > 0 {
				assert.Equal(t, data[tt.off:tt.off+int64(tt.wantN)], buf[:n])
			}
		})
	}
}

func TestSource_ReusesBlocks(t *testing.T) {
	t.Parallel()

	src := testutil.NewMockByteSource(patterned(256))
	c, err := Wrap(src, WithBlockSize(128))
	require.NoError(t, err)

	buf := make([]byte, 4)
	for off := int64(0); off < 128; off += 4 {
		_, err := c.ReadAt(buf, off)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), src.Reads())
	assert.Equal(t, 1, c.Cached())
}

func TestSource_Eviction(t *testing.T) {
	t.Parallel()

	src := testutil.NewMockByteSource(patterned(512))
	c, err := Wrap(src, WithBlockSize(64), WithMaxBlocks(2))
	require.NoError(t, err)

	buf := make([]byte, 1)
	for _, off := range []int64{0, 64, 128, 0} {
		_, err := c.ReadAt(buf, off)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Cached())
	assert.Equal(t, int64(4), src.Reads(), "block 0 was evicted and fetched again")
}

func TestSource_LargeReadBypasses(t *testing.T) {
	t.Parallel()

	data := patterned(1024)
	src := testutil.NewMockByteSource(data)
	c, err := Wrap(src, WithBlockSize(64), WithMaxBlocksPerRead(2))
	require.NoError(t, err)

	buf := make([]byte, 512)
	n, err := c.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, data[:512], buf)
	assert.Zero(t, c.Cached())
}

func TestSource_ConcurrentReadersShareFetch(t *testing.T) {
	t.Parallel()

	data := patterned(4096)
	src := testutil.NewMockByteSource(data)
	c, err := Wrap(src, WithBlockSize(4096))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Go(func() {
			buf := make([]byte, 16)
			off := int64(i * 16)
			_, err := c.ReadAt(buf, off)
			assert.NoError(t, err)
			assert.True(t, bytes.Equal(data[off:off+16], buf))
		})
	}
	wg.Wait()
	assert.LessOrEqual(t, src.Reads(), int64(2))
}

func TestWrap_InvalidConfig(t *testing.T) {
	t.Parallel()

	src := testutil.NewMockByteSource(nil)
	_, err := Wrap(nil)
	require.Error(t, err)
	_, err = Wrap(src, WithBlockSize(0))
	require.Error(t, err)
	_, err = Wrap(src, WithMaxBlocks(0))
	require.Error(t, err)
}
