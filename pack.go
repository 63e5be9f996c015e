package fps4

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/gofrs/flock"

	fpscore "github.com/meigma/fps4/core"
	"github.com/meigma/fps4/internal/platform"
)

const writeBufferSize = 1 << 20

// PackFile packs requests into the archive at dest.
//
// The archive is written to a temporary file next to dest and renamed over
// it only after Pack succeeds, so a failed pack never leaves a truncated
// archive behind. Parent directories are created as needed. Concurrent
// PackFile calls for the same dest are serialized through a lock file
// (dest + ".lock"); a call that cannot take the lock fails with ErrLocked.
//
// dest may also be the source of PackWithReference: the reference stays
// readable until the rename.
func PackFile(ctx context.Context, dest string, requests []PackRequest, opts ...PackOption) (*PackResult, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	lockPath := dest + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", dest, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dest)
	}
	defer func() {
		_ = lock.Unlock()       //nolint:errcheck // best-effort unlock
		_ = os.Remove(lockPath) //nolint:errcheck // best-effort cleanup
	}()

	tmp, err := os.CreateTemp(dir, ".fps4-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	fail := func(err error) (*PackResult, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	bw := bufio.NewWriterSize(tmp, writeBufferSize)
	res, err := Pack(ctx, bw, requests, opts...)
	if err != nil {
		return fail(err)
	}
	if err := bw.Flush(); err != nil {
		return fail(fmt.Errorf("write %s: %w", dest, err))
	}
	if err := tmp.Chmod(0o644); err != nil { //nolint:gosec // archives are meant to be shared
		return fail(fmt.Errorf("chmod %s: %w", dest, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("rename to %s: %w", dest, err)
	}
	return res, nil
}

// CollectOption configures CollectDir.
type CollectOption func(*collectConfig)

type collectConfig struct {
	logger *slog.Logger
}

// CollectWithLogger sets the logger for skipped entries.
func CollectWithLogger(logger *slog.Logger) CollectOption {
	return func(c *collectConfig) {
		c.logger = logger
	}
}

// CollectDir returns one request per regular file below dir, in lexical
// path order. Each request's RelativePath is the file's directory relative
// to dir and its Name the base name. Symbolic links and other non-regular
// files are skipped.
//
// Sources reopen their file when read, confined to dir. A file that grows
// or shrinks in between fails the pack with ErrSizeMismatch.
func CollectDir(dir string, opts ...CollectOption) ([]PackRequest, error) {
	var cfg collectConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open source directory: %w", err)
	}
	defer root.Close()

	var reqs []PackRequest
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			logger.Debug("skipped non-regular file", "path", p, "type", d.Type().String())
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		relDir := path.Dir(p)
		if relDir == "." {
			relDir = ""
		}
		reqs = append(reqs, PackRequest{
			Name:         path.Base(p),
			Length:       uint64(info.Size()), //nolint:gosec // regular file sizes are non-negative
			RelativePath: relDir,
			Source:       rootSource(dir, filepath.FromSlash(p)),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", dir, err)
	}
	return reqs, nil
}

// rootSource opens name below dir without following a final symlink.
func rootSource(dir, name string) ContentSource {
	return fpscore.ContentSourceFunc(func() (io.ReadCloser, error) {
		root, err := os.OpenRoot(dir)
		if err != nil {
			return nil, err
		}
		f, err := platform.OpenNoFollow(root, name)
		if err != nil {
			root.Close()
			if errors.Is(err, platform.ErrSymlink) {
				return nil, fmt.Errorf("%w: %s", ErrSymlink, name)
			}
			return nil, err
		}
		return &rootFile{File: f, root: root}, nil
	})
}

// rootFile closes its os.Root along with the file.
type rootFile struct {
	*os.File
	root *os.Root
}

func (f *rootFile) Close() error {
	return errors.Join(f.File.Close(), f.root.Close())
}
