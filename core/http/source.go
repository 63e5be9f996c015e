// Package http reads FPS4 archives served over HTTP.
//
// Source turns range requests into an io.ReaderAt so a remote archive can be
// opened with fps4.Open without downloading it. Put it behind cache.Wrap:
// parsing issues many small reads that a block cache folds together.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrChanged is returned when the remote content no longer matches the
// version whose size and validator were recorded by NewSource. Offsets
// decoded from the old table are meaningless against new content.
var ErrChanged = errors.New("fps4: remote archive changed")

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("fps4: server does not support range requests")

// Source implements random access reads via HTTP range requests.
type Source struct {
	url         string
	client      *nethttp.Client
	headers     nethttp.Header
	ctx         context.Context //nolint:containedctx // io.ReaderAt has no context parameter
	conditional bool
	logger      *slog.Logger

	size int64
	etag string
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a header on every request, e.g. Authorization.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithConditionalRequests sends If-Match with the ETag seen when the source
// was created, so a replaced archive fails with ErrChanged instead of
// returning bytes from a different version.
func WithConditionalRequests() Option {
	return func(s *Source) {
		s.conditional = true
	}
}

// WithLogger sets the logger for request tracing at Debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource probes url with a one-byte range request to learn the content
// size and ETag. ctx bounds the probe and every later read.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{url: url, ctx: ctx}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}

	resp, err := s.get(0, 0, false)
	if err != nil {
		return nil, err
	}
	defer drain(resp)
	if err := rangeStatus(resp); err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	size, err := parseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.size = size
	s.etag = resp.Header.Get("ETag")
	s.log().Debug("remote archive probed", "url", url, "size", size, "etag", s.etag)
	return s, nil
}

func (s *Source) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 { return s.size }

// ETag returns the validator recorded when the source was created.
func (s *Source) ETag() string { return s.etag }

// ReadAt implements io.ReaderAt with a single range request.
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

	resp, err := s.get(off, off+want-1, s.conditional)
	if err != nil {
		return 0, err
	}
	defer drain(resp)
	if err := rangeStatus(resp); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, fmt.Errorf("read range %d-%d: %w", off, off+want-1, err)
	}
	if want < int64(len(p)) {
		return n, io.EOF
	}
	return n, nil
}

// ReadRange streams length bytes starting at off. The caller must close the
// returned reader.
func (s *Source) ReadRange(off, length int64) (io.ReadCloser, error) {
	if off < 0 || length < 0 {
		return nil, fmt.Errorf("read range %d+%d: negative offset or length", off, length)
	}
	if length == 0 || off >= s.size {
		return io.NopCloser(strings.NewReader("")), nil
	}
	length = min(length, s.size-off)

	resp, err := s.get(off, off+length-1, s.conditional)
	if err != nil {
		return nil, err
	}
	if err := rangeStatus(resp); err != nil {
		drain(resp)
		return nil, err
	}
	return &rangeBody{Reader: io.LimitReader(resp.Body, length), resp: resp}, nil
}

func (s *Source) get(first, last int64, conditional bool) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(s.ctx, nethttp.MethodGet, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", first, last))
	if conditional && s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	}
	s.log().Debug("range request", "url", s.url, "first", first, "last", last)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("range request %d-%d: %w", first, last, err)
	}
	return resp, nil
}

func rangeStatus(resp *nethttp.Response) error {
	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		return nil
	case nethttp.StatusOK:
		return ErrRangeUnsupported
	case nethttp.StatusPreconditionFailed:
		return ErrChanged
	default:
		return fmt.Errorf("range request failed: %s", resp.Status)
	}
}

func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
	_ = resp.Body.Close()
}

// rangeBody drains the response on Close so the connection can be reused.
type rangeBody struct {
	io.Reader
	resp *nethttp.Response
}

func (b *rangeBody) Close() error {
	drain(b.resp)
	return nil
}

// parseContentRange returns the complete length from "bytes a-b/size".
func parseContentRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}
