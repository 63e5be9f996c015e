package fps4

import (
	"context"
	"io"

	"github.com/meigma/fps4/core/internal/dedup"
)

// DedupOption configures DetectDuplicates.
type DedupOption func(*dedupConfig)

type dedupConfig struct {
	workers  int
	progress ProgressFunc
}

// DedupWithWorkers bounds the number of sources digested concurrently.
// Values <= 0 use GOMAXPROCS.
func DedupWithWorkers(n int) DedupOption {
	return func(c *dedupConfig) {
		c.workers = n
	}
}

// DedupWithProgress sets a callback invoked as sources are digested.
// It may be called concurrently.
func DedupWithProgress(fn ProgressFunc) DedupOption {
	return func(c *dedupConfig) {
		c.progress = fn
	}
}

// DetectDuplicates finds requests whose content is byte-identical to an
// earlier request's.
//
// The result has one element per request: for request i it holds the
// lowest j < i with identical bytes, or is unset. Requests without a Source
// are never compared and never marked. The scan is deterministic; a digest
// of every source narrows the candidates and each match is confirmed by a
// full comparison.
func DetectDuplicates(ctx context.Context, requests []PackRequest, opts ...DedupOption) ([]Optional[int], error) {
	var cfg dedupConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cands := make([]dedup.Candidate, len(requests))
	for i := range requests {
		cands[i].Name = requests[i].Name
		if src := requests[i].Source; src != nil {
			cands[i].Open = func() (io.ReadCloser, error) { return src.Open() }
		}
	}

	dopts := []dedup.Option{dedup.WithWorkers(cfg.workers)}
	if cfg.progress != nil {
		dopts = append(dopts, dedup.WithProgress(func(done, total int) {
			cfg.progress(ProgressEvent{Stage: StageHashing, FilesDone: done, FilesTotal: total})
		}))
	}
	dupOf, err := dedup.Detect(ctx, cands, dopts...)
	if err != nil {
		return nil, err
	}

	out := make([]Optional[int], len(dupOf))
	for i, j := range dupOf {
		if j != dedup.None {
			out[i] = Some(j)
		}
	}
	return out, nil
}
