package fps4

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectDuplicates(t *testing.T) {
	t.Parallel()

	a, b, c := []byte("first file"), []byte("second"), []byte("first filE")
	reqs := []PackRequest{
		{Name: "a0", Length: uint64(len(a)), Source: BytesSource(a)},
		{Name: "b1", Length: uint64(len(b)), Source: BytesSource(b)},
		{Name: "a2", Length: uint64(len(a)), Source: BytesSource([]byte("first file"))},
		{Name: "none3"},
		{Name: "b4", Length: uint64(len(b)), Source: BytesSource([]byte("second"))},
		{Name: "c5", Length: uint64(len(c)), Source: BytesSource(c)},
	}

	for _, workers := range []int{1, 3} {
		got, err := DetectDuplicates(context.Background(), reqs, DedupWithWorkers(workers))
		require.NoError(t, err)
		assert.Equal(t, []Optional[int]{{}, {}, Some(0), {}, Some(1), {}}, got)
	}
}

func TestDetectDuplicates_Progress(t *testing.T) {
	t.Parallel()

	reqs := sampleRequests()
	var done []int
	_, err := DetectDuplicates(context.Background(), reqs,
		DedupWithWorkers(1),
		DedupWithProgress(func(ev ProgressEvent) {
			assert.Equal(t, StageHashing, ev.Stage)
			assert.Equal(t, len(reqs), ev.FilesTotal)
			done = append(done, ev.FilesDone)
		}))
	require.NoError(t, err)
	require.NotEmpty(t, done)
	assert.Equal(t, len(reqs), done[len(done)-1])
}
