// Package file provides fs.File and fs.FileInfo implementations for archive
// members and the synthetic directories derived from their paths.
package file

import (
	"io"
	"io/fs"
	"time"

	"github.com/meigma/fps4/core/internal/fpstype"
	"github.com/meigma/fps4/core/internal/sizing"
)

// ByteSource provides random access to archive bytes.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// File implements fs.File over a byte range of the archive content.
type File struct {
	*io.SectionReader
	info   *Info
	closed bool
}

// Interface compliance.
var (
	_ fs.File     = (*File)(nil)
	_ io.ReaderAt = (*File)(nil)
	_ io.Seeker   = (*File)(nil)
)

// New returns a File reading size bytes of src starting at off.
func New(src io.ReaderAt, off, size int64, info *Info) *File {
	return &File{
		SectionReader: io.NewSectionReader(src, off, size),
		info:          info,
	}
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	return f.SectionReader.Read(p)
}

// ReadAt implements io.ReaderAt.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	return f.SectionReader.ReadAt(p, off)
}

// Stat returns the member's file info.
func (f *File) Stat() (fs.FileInfo, error) {
	return f.info, nil
}

// Close marks the file closed. The underlying source stays open.
func (f *File) Close() error {
	if f.closed {
		return fs.ErrClosed
	}
	f.closed = true
	return nil
}

// Info implements fs.FileInfo for archive members.
type Info struct {
	entry fpstype.Entry
	name  string
	size  int64
}

// NewInfo creates an Info for an entry whose resolved size is size.
func NewInfo(entry *fpstype.Entry, name string, size uint64) (*Info, error) {
	n, err := sizing.ToInt64(size, fpstype.ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	return &Info{entry: *entry, name: name, size: n}, nil
}

func (fi *Info) Name() string       { return fi.name }
func (fi *Info) Size() int64        { return fi.size }
func (fi *Info) Mode() fs.FileMode  { return 0o444 }
func (fi *Info) ModTime() time.Time { return time.Time{} }
func (fi *Info) IsDir() bool        { return false }

// Sys returns the underlying *fpstype.Entry.
func (fi *Info) Sys() any { return &fi.entry }

// Entry returns the underlying table entry.
func (fi *Info) Entry() *fpstype.Entry {
	return &fi.entry
}

// DirInfo implements fs.FileInfo for synthetic directories.
type DirInfo struct {
	name string
}

// NewDirInfo creates a DirInfo with the given name.
func NewDirInfo(name string) *DirInfo {
	return &DirInfo{name: name}
}

func (di *DirInfo) Name() string       { return di.name }
func (di *DirInfo) Size() int64        { return 0 }
func (di *DirInfo) Mode() fs.FileMode  { return fs.ModeDir | 0o555 }
func (di *DirInfo) ModTime() time.Time { return time.Time{} }
func (di *DirInfo) IsDir() bool        { return true }
func (di *DirInfo) Sys() any           { return nil }

// DirEntry implements fs.DirEntry by wrapping fs.FileInfo.
type DirEntry struct {
	info fs.FileInfo
}

// NewDirEntry creates a DirEntry wrapping the given FileInfo.
func NewDirEntry(info fs.FileInfo) *DirEntry {
	return &DirEntry{info: info}
}

func (de *DirEntry) Name() string               { return de.info.Name() }
func (de *DirEntry) IsDir() bool                { return de.info.IsDir() }
func (de *DirEntry) Type() fs.FileMode          { return de.info.Mode().Type() }
func (de *DirEntry) Info() (fs.FileInfo, error) { return de.info, nil }
