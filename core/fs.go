package fps4

import (
	"io"
	"io/fs"
	"iter"

	"github.com/meigma/fps4/core/internal/file"
	"github.com/meigma/fps4/core/internal/index"
	"github.com/meigma/fps4/core/internal/pathutil"
)

// Open implements fs.FS.
//
// Members open as File values over their data range. Directories are
// synthesized from member paths; the format stores none. When several
// members share a path, the lowest index is opened.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if slot, ok := a.idx.Lookup(name); ok {
		f, err := a.openFile(&a.members[slot])
		if err != nil {
			return nil, &fs.PathError{Op: "open", Path: name, Err: err}
		}
		return f, nil
	}
	if a.isDir(name) {
		return &openDir{a: a, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

func (a *Archive) openFile(m *Member) (*file.File, error) {
	off, size, err := a.bounds(*m)
	if err != nil {
		return nil, err
	}
	info, err := file.NewInfo(&m.Entry, pathutil.Base(m.Path), m.Size)
	if err != nil {
		return nil, err
	}
	return file.New(a.content, off, size, info), nil
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if slot, ok := a.idx.Lookup(name); ok {
		m := &a.members[slot]
		info, err := file.NewInfo(&m.Entry, pathutil.Base(name), m.Size)
		if err != nil {
			return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
		}
		return info, nil
	}
	if a.isDir(name) {
		return file.NewDirInfo(pathutil.Base(name)), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	slot, ok := a.idx.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	data, err := a.ReadMember(a.members[slot])
	if err != nil {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir implements fs.ReadDirFS.
//
// Entries are sorted by name. A name shared by several members is listed
// once.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if _, ok := a.idx.Lookup(name); ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}

	di := a.newDirIter(pathutil.DirPrefix(name))
	defer di.Close()

	entries := make([]fs.DirEntry, 0)
	for {
		entry, ok := di.Next()
		if !ok {
			break
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 && name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return entries, nil
}

// isDir checks if name is a directory (has members under it).
func (a *Archive) isDir(name string) bool {
	if name == "." {
		return true
	}
	for range a.idx.WithPrefix(name + "/") {
		return true
	}
	return false
}

// openDir implements fs.ReadDirFile for synthetic directories.
type openDir struct {
	a    *Archive
	name string
	iter *dirIter
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) {
	return file.NewDirInfo(pathutil.Base(d.name)), nil
}

func (d *openDir) Close() error {
	if d.iter != nil {
		d.iter.Close()
		d.iter = nil
	}
	return nil
}

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if d.iter == nil {
		d.iter = d.a.newDirIter(pathutil.DirPrefix(d.name))
	}
	entries := make([]fs.DirEntry, 0, max(n, 0))
	for n <= 0 || len(entries) < n {
		entry, ok := d.iter.Next()
		if !ok {
			break
		}
		entries = append(entries, entry)
	}
	if n > 0 && len(entries) == 0 {
		return nil, io.EOF
	}
	return entries, nil
}

// dirIter walks the path index under a prefix, yielding each immediate
// child once and synthesizing entries for nested directories.
type dirIter struct {
	a        *Archive
	next     func() (index.Item, bool)
	stop     func()
	prefix   string
	lastName string
	done     bool
}

func (a *Archive) newDirIter(prefix string) *dirIter {
	next, stop := iter.Pull(a.idx.WithPrefix(prefix))
	return &dirIter{a: a, next: next, stop: stop, prefix: prefix}
}

// Next returns the next directory entry.
func (it *dirIter) Next() (fs.DirEntry, bool) {
	if it.done {
		return nil, false
	}
	for {
		item, ok := it.next()
		if !ok {
			it.Close()
			return nil, false
		}
		child, isSubDir := pathutil.Child(item.Path, it.prefix)
		if child == "" || child == it.lastName {
			continue
		}
		it.lastName = child

		if isSubDir {
			return file.NewDirEntry(file.NewDirInfo(child)), true
		}
		m := &it.a.members[item.Slot]
		info, err := file.NewInfo(&m.Entry, child, m.Size)
		if err != nil {
			continue
		}
		return file.NewDirEntry(info), true
	}
}

// Close releases resources held by the iterator.
func (it *dirIter) Close() {
	if it.done {
		return
	}
	it.done = true
	if it.stop != nil {
		it.stop()
		it.stop = nil
	}
}
