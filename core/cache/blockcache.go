package cache

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ByteSource provides random access to data for block caching.
type ByteSource interface {
	io.ReaderAt

	// Size returns the total size of the data source in bytes.
	Size() int64
}

// RangeReader is implemented by sources that fetch a byte range more
// efficiently as a stream than through ReadAt.
type RangeReader interface {
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// Defaults for Wrap.
const (
	DefaultBlockSize        int64 = 64 << 10
	DefaultMaxBlocks              = 64
	DefaultMaxBlocksPerRead       = 4
)

type config struct {
	blockSize        int64
	maxBlocks        int
	maxBlocksPerRead int
}

// Option configures Wrap.
type Option func(*config)

// WithBlockSize sets the size in bytes of each cached block.
func WithBlockSize(n int64) Option {
	return func(c *config) {
		c.blockSize = n
	}
}

// WithMaxBlocks bounds the number of blocks held in memory. The least
// recently used block is evicted first.
func WithMaxBlocks(n int) Option {
	return func(c *config) {
		c.maxBlocks = n
	}
}

// WithMaxBlocksPerRead bypasses the cache when a ReadAt spans more than n
// blocks. Values <= 0 disable the limit.
func WithMaxBlocksPerRead(n int) Option {
	return func(c *config) {
		c.maxBlocksPerRead = n
	}
}

// Source is a ByteSource that serves reads from cached blocks.
// It is safe for concurrent use.
type Source struct {
	src              ByteSource
	size             int64
	blockSize        int64
	maxBlocksPerRead int
	blocks           *lru.Cache[int64, []byte]
	fetches          singleflight.Group
}

// Wrap returns src behind a block cache.
func Wrap(src ByteSource, opts ...Option) (*Source, error) {
	if src == nil {
		return nil, errors.New("block cache: source is nil")
	}
	cfg := config{
		blockSize:        DefaultBlockSize,
		maxBlocks:        DefaultMaxBlocks,
		maxBlocksPerRead: DefaultMaxBlocksPerRead,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockSize <= 0 || cfg.blockSize > math.MaxInt32 {
		return nil, fmt.Errorf("block cache: invalid block size %d", cfg.blockSize)
	}
	blocks, err := lru.New[int64, []byte](cfg.maxBlocks)
	if err != nil {
		return nil, fmt.Errorf("block cache: %w", err)
	}
	return &Source{
		src:              src,
		size:             src.Size(),
		blockSize:        cfg.blockSize,
		maxBlocksPerRead: cfg.maxBlocksPerRead,
		blocks:           blocks,
	}, nil
}

// Size returns the size of the wrapped source.
func (s *Source) Size() int64 { return s.size }

// Cached returns the number of blocks currently held.
func (s *Source) Cached() int { return s.blocks.Len() }

// ReadAt implements io.ReaderAt.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), s.size-off)

	first := off / s.blockSize
	last := (off + want - 1) / s.blockSize
	if s.maxBlocksPerRead > 0 && last-first+1 > int64(s.maxBlocksPerRead) {
		return s.src.ReadAt(p, off)
	}

	var n int64
	for b := first; b <= last; b++ {
		data, err := s.block(b)
		if err != nil {
			return int(n), err
		}
		start := b * s.blockSize
		lo := max(off, start) - start
		hi := min(off+want, start+int64(len(data))) - start
		n += int64(copy(p[n:], data[lo:hi]))
	}
	if want < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// block returns block b, fetching it once no matter how many readers ask.
func (s *Source) block(b int64) ([]byte, error) {
	if data, ok := s.blocks.Get(b); ok {
		return data, nil
	}
	v, err, _ := s.fetches.Do(strconv.FormatInt(b, 10), func() (any, error) {
		if data, ok := s.blocks.Get(b); ok {
			return data, nil
		}
		start := b * s.blockSize
		data, err := s.fetch(start, min(s.blockSize, s.size-start))
		if err != nil {
			return nil, err
		}
		s.blocks.Add(b, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil //nolint:errcheck // always []byte when err is nil
}

func (s *Source) fetch(off, length int64) ([]byte, error) {
	if rr, ok := s.src.(RangeReader); ok {
		rc, err := rr.ReadRange(off, length)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) != length {
			return nil, io.ErrUnexpectedEOF
		}
		return data, nil
	}

	buf := make([]byte, length)
	n, err := s.src.ReadAt(buf, off)
	if int64(n) == length {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, err
}
