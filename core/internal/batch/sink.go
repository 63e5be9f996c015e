package batch

import "io"

// Item is a single piece of content delivered to a Sink.
type Item struct {
	// Path is the slash-separated destination path relative to the sink root.
	Path string

	// Size is the exact number of bytes Open yields.
	Size uint64

	// Open returns a reader positioned at the start of the content.
	Open func() (io.Reader, error)
}

// Sink receives item content during batch processing.
//
// Implementations determine where content is written and can filter
// which items to process.
type Sink interface {
	// ShouldProcess returns false if this item should be skipped.
	ShouldProcess(item *Item) bool

	// Writer returns a writer for the item's content.
	// The returned Committer must have Commit() called after a complete
	// write, or Discard() called on any error.
	Writer(item *Item) (Committer, error)
}

// Committer is a writer that can be committed or discarded.
//
// Implementations should stage writes until Commit is called.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content available.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
