package index

import (
	"iter"
	"strings"

	"github.com/tidwall/btree"
)

// Item is one indexed path and the caller's slot for it.
type Item struct {
	Path string
	Slot int
}

// Index maps member paths to slots, ordered by path.
//
// Several members may share a path; they are kept in slot order and
// Lookup returns the lowest slot.
type Index struct {
	tree *btree.BTreeG[Item]
}

func less(a, b Item) bool {
	if a.Path != b.Path {
		return a.Path < b.Path
	}
	return a.Slot < b.Slot
}

// New returns an empty index.
func New() *Index {
	return &Index{tree: btree.NewBTreeGOptions(less, btree.Options{NoLocks: true})}
}

// Add records path at slot. Add must not be called concurrently with reads.
func (idx *Index) Add(path string, slot int) {
	idx.tree.Set(Item{Path: path, Slot: slot})
}

// Lookup returns the lowest slot stored under path.
func (idx *Index) Lookup(path string) (int, bool) {
	slot, found := -1, false
	idx.tree.Ascend(Item{Path: path, Slot: -1}, func(it Item) bool {
		if it.Path == path {
			slot, found = it.Slot, true
		}
		return false
	})
	return slot, found
}

// Len returns the number of indexed items.
func (idx *Index) Len() int {
	return idx.tree.Len()
}

// All returns an iterator over all items in path order.
func (idx *Index) All() iter.Seq[Item] {
	return func(yield func(Item) bool) {
		idx.tree.Scan(yield)
	}
}

// WithPrefix returns an iterator over items whose path starts with prefix,
// in path order.
func (idx *Index) WithPrefix(prefix string) iter.Seq[Item] {
	return func(yield func(Item) bool) {
		idx.tree.Ascend(Item{Path: prefix, Slot: -1}, func(it Item) bool {
			if !strings.HasPrefix(it.Path, prefix) {
				return false
			}
			return yield(it)
		})
	}
}
