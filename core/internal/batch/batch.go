package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/fps4/core/internal/fpstype"
	"github.com/meigma/fps4/core/internal/sizing"
)

// Processor copies items into a Sink, verifying that every item yields
// exactly its declared number of bytes.
type Processor struct {
	workers  int
	progress fpstype.ProgressFunc
	logger   *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of items copied concurrently.
// Values < 2 process items one at a time.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithProgress sets a callback invoked after each item is committed.
func WithProgress(fn fpstype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithProcessorLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process writes items to the sink.
//
// Items are filtered through sink.ShouldProcess first. Processing stops on
// the first error encountered; items already committed stay in place.
func (p *Processor) Process(ctx context.Context, items []Item, sink Sink) (ProcessStats, error) {
	var stats ProcessStats
	todo := make([]*Item, 0, len(items))
	var totalBytes uint64
	for i := range items {
		if !sink.ShouldProcess(&items[i]) {
			stats.Skipped++
			continue
		}
		todo = append(todo, &items[i])
		totalBytes += items[i].Size
	}
	if len(todo) == 0 {
		return stats, nil
	}
	p.log().Debug("batch processing", "items", len(todo), "skipped", stats.Skipped, "workers", p.workers)

	var mu sync.Mutex
	done := func(item *Item) {
		mu.Lock()
		defer mu.Unlock()
		stats.Processed++
		stats.TotalBytes += item.Size
		if p.progress != nil {
			p.progress(fpstype.ProgressEvent{
				Stage:      fpstype.StageExtracting,
				Path:       item.Path,
				BytesDone:  stats.TotalBytes,
				BytesTotal: totalBytes,
				FilesDone:  stats.Processed,
				FilesTotal: len(todo),
			})
		}
	}

	if p.workers < 2 {
		for _, item := range todo {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := p.processItem(item, sink); err != nil {
				return stats, err
			}
			done(item)
		}
		return stats, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, item := range todo {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := p.processItem(item, sink); err != nil {
				return err
			}
			done(item)
			return nil
		})
	}
	err := g.Wait()
	return stats, err
}

// processItem copies one item into a committer obtained from the sink.
func (p *Processor) processItem(item *Item, sink Sink) error {
	r, err := item.Open()
	if err != nil {
		return fmt.Errorf("batch: open %s: %w", item.Path, err)
	}
	w, err := sink.Writer(item)
	if err != nil {
		return fmt.Errorf("batch: %s: %w", item.Path, err)
	}
	if err := copyExact(w, r, item.Size); err != nil {
		if discardErr := w.Discard(); discardErr != nil {
			err = errors.Join(err, discardErr)
		}
		return fmt.Errorf("batch: %s: %w", item.Path, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("batch: commit %s: %w", item.Path, err)
	}
	p.log().Debug("item written", "path", item.Path, "size", item.Size)
	return nil
}

// copyExact copies exactly size bytes from r to w.
func copyExact(w io.Writer, r io.Reader, size uint64) error {
	want, err := sizing.ToInt64(size, fpstype.ErrSizeOverflow)
	if err != nil {
		return err
	}
	n, err := io.CopyN(w, r, want)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: got %d of %d bytes", io.ErrUnexpectedEOF, n, size)
	}
	return err
}
