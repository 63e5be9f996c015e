package index

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func buildIndex(paths ...string) *Index {
	idx := New()
	for i, p := range paths {
		idx.Add(p, i)
	}
	return idx
}

func TestLookup(t *testing.T) {
	t.Parallel()

	idx := buildIndex("b.bin", "a/c.bin", "a.bin")

	slot, ok := idx.Lookup("a/c.bin")
	assert.True(t, ok)
	assert.Equal(t, 1, slot)

	_, ok = idx.Lookup("a")
	assert.False(t, ok)
	_, ok = idx.Lookup("zzz")
	assert.False(t, ok)
	assert.Equal(t, 3, idx.Len())
}

func TestLookupDuplicatePathReturnsLowestSlot(t *testing.T) {
	t.Parallel()

	idx := New()
	idx.Add("dup.bin", 5)
	idx.Add("dup.bin", 2)
	idx.Add("dup.bin", 9)

	slot, ok := idx.Lookup("dup.bin")
	assert.True(t, ok)
	assert.Equal(t, 2, slot)
	assert.Equal(t, 3, idx.Len())
}

func TestAllIsPathOrdered(t *testing.T) {
	t.Parallel()

	idx := buildIndex("c", "a", "b/x", "b")
	var got []string
	for it := range idx.All() {
		got = append(got, it.Path)
	}
	assert.Equal(t, []string{"a", "b", "b/x", "c"}, got)
}

func TestWithPrefix(t *testing.T) {
	t.Parallel()

	idx := buildIndex("a/1", "a/2", "ab", "b/1", "a/sub/3")
	var got []string
	for it := range idx.WithPrefix("a/") {
		got = append(got, it.Path)
	}
	assert.Equal(t, []string{"a/1", "a/2", "a/sub/3"}, got)

	var all []string
	for it := range idx.WithPrefix("") {
		all = append(all, it.Path)
	}
	assert.True(t, slices.IsSorted(all))
	assert.Len(t, all, 5)
}

func TestWithPrefixEarlyStop(t *testing.T) {
	t.Parallel()

	idx := buildIndex("a/1", "a/2", "a/3")
	n := 0
	for range idx.WithPrefix("a/") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}
