// Package dedup finds byte-identical pack inputs.
package dedup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"
)

// None marks a candidate that duplicates no earlier candidate.
const None = -1

// compareChunk is the buffer size used when confirming a match byte by byte.
const compareChunk = 32 * 1024

// Candidate is one input considered for deduplication.
type Candidate struct {
	// Name is used in error messages only.
	Name string

	// Open returns a fresh reader over the candidate's bytes. Each call must
	// return an independent cursor. A nil Open means the candidate has no data
	// source; it is never compared and never marked.
	Open func() (io.ReadCloser, error)
}

// Option configures Detect.
type Option func(*config)

type config struct {
	workers  int
	progress func(done, total int)
}

// WithWorkers bounds the number of sources digested concurrently.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithProgress receives a callback after each source is digested.
// It may be called concurrently.
func WithProgress(fn func(done, total int)) Option {
	return func(c *config) {
		c.progress = fn
	}
}

type fingerprint struct {
	size   int64
	digest digest.Digest
}

// Detect returns, for every candidate i, the lowest index j < i whose bytes
// are identical to i's, or None.
//
// Every source is digested once (concurrently) as a prefilter. Only pairs with
// equal size and digest are then confirmed by a full byte comparison, so the
// result is the same as a plain pairwise scan.
func Detect(ctx context.Context, cands []Candidate, opts ...Option) ([]int, error) {
	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	prints, err := fingerprints(ctx, cands, &cfg)
	if err != nil {
		return nil, err
	}

	dupOf := make([]int, len(cands))
	for i := range cands {
		dupOf[i] = None
		if cands[i].Open == nil {
			continue
		}
		for j := range i {
			if cands[j].Open == nil || prints[j] != prints[i] {
				continue
			}
			same, err := Equal(cands[i].Open, cands[j].Open)
			if err != nil {
				return nil, fmt.Errorf("compare %s with %s: %w", cands[i].Name, cands[j].Name, err)
			}
			if same {
				dupOf[i] = j
				break
			}
		}
	}
	return dupOf, nil
}

func fingerprints(ctx context.Context, cands []Candidate, cfg *config) ([]fingerprint, error) {
	prints := make([]fingerprint, len(cands))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)

	var done atomic.Int64
	for i := range cands {
		if cands[i].Open == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fp, err := fingerprintOf(cands[i].Open)
			if err != nil {
				return fmt.Errorf("digest %s: %w", cands[i].Name, err)
			}
			prints[i] = fp
			if cfg.progress != nil {
				cfg.progress(int(done.Add(1)), len(cands))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return prints, nil
}

func fingerprintOf(open func() (io.ReadCloser, error)) (fingerprint, error) {
	rc, err := open()
	if err != nil {
		return fingerprint{}, err
	}
	defer rc.Close()

	digester := digest.Canonical.Digester()
	n, err := io.Copy(digester.Hash(), rc)
	if err != nil {
		return fingerprint{}, err
	}
	return fingerprint{size: n, digest: digester.Digest()}, nil
}

// Equal reports whether two sources yield identical bytes. It stops at the
// first differing chunk or length difference.
func Equal(openA, openB func() (io.ReadCloser, error)) (bool, error) {
	a, err := openA()
	if err != nil {
		return false, err
	}
	defer a.Close()
	b, err := openB()
	if err != nil {
		return false, err
	}
	defer b.Close()

	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)
	for {
		na, errA := io.ReadFull(a, bufA)
		nb, errB := io.ReadFull(b, bufB)
		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return false, nil
		}
		endA, err := chunkEnd(errA)
		if err != nil {
			return false, err
		}
		endB, err := chunkEnd(errB)
		if err != nil {
			return false, err
		}
		if endA || endB {
			return endA == endB, nil
		}
	}
}

// chunkEnd maps an io.ReadFull error to "stream ended".
func chunkEnd(err error) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return true, nil
	default:
		return false, err
	}
}
