package fps4

import (
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/meigma/fps4/core/internal/batch"
)

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite bool
	direct    bool
	workers   int
	progress  ProgressFunc
}

// ExtractWithOverwrite replaces existing files. By default they are skipped.
func ExtractWithOverwrite(enabled bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = enabled
	}
}

// ExtractWithDirectWrites writes to final paths without temp files.
func ExtractWithDirectWrites(enabled bool) ExtractOption {
	return func(c *extractConfig) {
		c.direct = enabled
	}
}

// ExtractWithWorkers sets the number of members written concurrently.
// Values < 2 write one member at a time.
func ExtractWithWorkers(n int) ExtractOption {
	return func(c *extractConfig) {
		c.workers = n
	}
}

// ExtractWithProgress sets a callback for extraction progress.
func ExtractWithProgress(fn ProgressFunc) ExtractOption {
	return func(c *extractConfig) {
		c.progress = fn
	}
}

// Extract writes every member below destDir at its derived path.
//
// Unlike the lookup methods, which silently omit entries whose location or
// size cannot be resolved, Extract is strict: any such entry (other than
// the sentinel and skip entries) fails the whole operation with
// ErrUnresolvedField before anything is written. Member paths that are not
// valid relative paths fail the same way with fs.ErrInvalid.
//
// When several members share a path, the lowest index is written.
func (a *Archive) Extract(ctx context.Context, destDir string, opts ...ExtractOption) error {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := a.unresolved(); err != nil {
		return err
	}

	items := make([]batch.Item, 0, len(a.members))
	seen := make(map[string]bool, len(a.members))
	for i := range a.members {
		m := &a.members[i]
		if !fs.ValidPath(m.Path) || m.Path == "." {
			return &fs.PathError{Op: "extract", Path: m.Path, Err: fs.ErrInvalid}
		}
		if seen[m.Path] {
			a.log().Debug("duplicate member path not extracted", "path", m.Path, "index", m.Index)
			continue
		}
		seen[m.Path] = true
		items = append(items, batch.Item{
			Path: m.Path,
			Size: m.Size,
			Open: func() (io.Reader, error) { return a.OpenMember(*m) },
		})
	}

	sink := batch.NewFileSink(destDir,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithDirectWrites(cfg.direct))
	proc := batch.NewProcessor(
		batch.WithWorkers(cfg.workers),
		batch.WithProgress(cfg.progress),
		batch.WithProcessorLogger(a.logger))

	stats, err := proc.Process(ctx, items, sink)
	if err != nil {
		return fmt.Errorf("extract to %s: %w", destDir, err)
	}
	a.log().Info("archive extracted",
		"dest", destDir,
		"files", stats.Processed,
		"skipped", stats.Skipped,
		"bytes", stats.TotalBytes)
	return nil
}
