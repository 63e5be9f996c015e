// Package platform isolates the OS-specific parts of reading pack inputs.
package platform

import (
	"errors"
	"io/fs"
	"os"
)

// ErrSymlink is returned when a pack input turns out to be a symbolic link.
var ErrSymlink = errors.New("fps4: symbolic link")

// OpenNoFollow opens name inside root for reading. A symbolic link at the
// final element fails with ErrSymlink instead of being followed, including
// one that resolves to a file inside root. The opened file must be the one
// that was checked; a swap between the check and the open fails the same way.
func OpenNoFollow(root *os.Root, name string) (*os.File, error) {
	before, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if before.Mode()&fs.ModeSymlink != 0 {
		return nil, ErrSymlink
	}

	f, err := openNoFollow(root, name)
	if err != nil {
		return nil, err
	}
	after, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if !os.SameFile(before, after) {
		_ = f.Close()
		return nil, ErrSymlink
	}
	return f, nil
}
