package fps4

import (
	"bytes"
	"io"
	"os"
	"path"
	"strings"
)

// ContentSource opens the bytes of one pack input.
//
// Each Open call must return an independent reader positioned at the start
// of the content; duplicate detection and writing each open their own.
type ContentSource interface {
	Open() (io.ReadCloser, error)
}

// ContentSourceFunc adapts a function to ContentSource.
type ContentSourceFunc func() (io.ReadCloser, error)

// Open calls f.
func (f ContentSourceFunc) Open() (io.ReadCloser, error) { return f() }

// BytesSource returns a ContentSource over an in-memory buffer.
func BytesSource(data []byte) ContentSource {
	return ContentSourceFunc(func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// FileSource returns a ContentSource that opens the file at name.
func FileSource(name string) ContentSource {
	return ContentSourceFunc(func() (io.ReadCloser, error) {
		return os.Open(name)
	})
}

// SectionSource returns a ContentSource over n bytes of r starting at off.
func SectionSource(r io.ReaderAt, off, n int64) ContentSource {
	return ContentSourceFunc(func() (io.ReadCloser, error) {
		return io.NopCloser(io.NewSectionReader(r, off, n)), nil
	})
}

// PackRequest is one logical input file for Pack.
type PackRequest struct {
	// Name is the file name, stored in the filename slot and used for the
	// file type (extension without the dot) and the metadata name.
	Name string

	// Length is the number of bytes Source yields.
	Length uint64

	// RelativePath is an optional slash-separated directory recorded in the
	// metadata string.
	RelativePath string

	// Source provides the content. It may be nil only when Length is zero.
	Source ContentSource

	// DuplicateOf marks the content as identical to an earlier request's;
	// the file then shares that request's storage.
	DuplicateOf Optional[int]
}

// fileType returns the extension of name without the dot.
func fileType(name string) string {
	return strings.TrimPrefix(path.Ext(name), ".")
}

// stem returns name without its extension.
func stem(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// Source returns a ContentSource over the member's data.
func (a *Archive) Source(m Member) ContentSource {
	return ContentSourceFunc(func() (io.ReadCloser, error) {
		r, err := a.OpenMember(m)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	})
}

// PackRequests returns one request per member, in table order, reading
// content from the archive. Combined with PackWithReference on the same
// archive this regenerates it; that is only exact when the archive has no
// skip or unresolved entries, so record order lines up with the requests.
func (a *Archive) PackRequests() []PackRequest {
	reqs := make([]PackRequest, 0, len(a.members))
	for _, m := range a.members {
		reqs = append(reqs, PackRequest{
			Name:         m.Name,
			Length:       m.Size,
			RelativePath: m.Dir,
			Source:       a.Source(m),
		})
	}
	return reqs
}
