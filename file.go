package fps4

import (
	"errors"
	"fmt"
	"os"
)

// fileSource wraps *os.File to implement ByteSource.
// os.File has ReadAt but not Size, so the size is cached at construction.
type fileSource struct {
	file *os.File
	size int64
}

func openFileSource(path string) (*fileSource, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided path is intentional
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s: not a regular file", path)
	}
	return &fileSource{file: f, size: info.Size()}, nil
}

// ReadAt implements io.ReaderAt.
func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.file.ReadAt(p, off)
}

// Size returns the file size recorded when it was opened.
func (s *fileSource) Size() int64 {
	return s.size
}

// ArchiveFile is an Archive backed by open files.
// Close must be called to release them.
type ArchiveFile struct {
	*Archive
	files []*os.File
}

// Close closes the underlying files.
func (af *ArchiveFile) Close() error {
	var errs []error
	for _, f := range af.files {
		errs = append(errs, f.Close())
	}
	af.files = nil
	return errors.Join(errs...)
}

// OpenFile opens an archive whose table and data share one file.
//
// The location multiplier is inferred from the table unless
// WithLocationMultiplier is given.
func OpenFile(path string, opts ...Option) (*ArchiveFile, error) {
	src, err := openFileSource(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	a, err := Open(src, nil, opts...)
	if err != nil {
		src.file.Close()
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &ArchiveFile{Archive: a, files: []*os.File{src.file}}, nil
}

// OpenSplitFile opens an archive whose header and table live in one file
// and whose data lives in another, e.g. "chara.dat" and "chara.b".
//
// Multiplier inference is disabled for split archives: a multiplier other
// than 1 must be given with WithLocationMultiplier.
func OpenSplitFile(headerPath, contentPath string, opts ...Option) (*ArchiveFile, error) {
	header, err := openFileSource(headerPath)
	if err != nil {
		return nil, fmt.Errorf("open archive header: %w", err)
	}
	content, err := openFileSource(contentPath)
	if err != nil {
		header.file.Close()
		return nil, fmt.Errorf("open archive content: %w", err)
	}
	a, err := Open(header, content, opts...)
	if err != nil {
		header.file.Close()
		content.file.Close()
		return nil, fmt.Errorf("open archive %s: %w", headerPath, err)
	}
	return &ArchiveFile{Archive: a, files: []*os.File{header.file, content.file}}, nil
}
