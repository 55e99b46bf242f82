// Package http provides HTTP implementations of seocrawl services.
// Sitemap and robots.txt documents are plain fetches; they never need
// JavaScript rendering.
package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/seocrawl"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 30 * time.Second

// DefaultMaxBytes caps a fetched body.
const DefaultMaxBytes = 10 << 20

// Fetcher retrieves size-bounded documents over HTTP.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithClient sets the HTTP client. Defaults to a client with
// DefaultFetchTimeout.
func WithClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFetchMaxBytes caps the number of body bytes read per document.
// Bytes past the cap are dropped.
func WithFetchMaxBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBytes = n
	}
}

// NewFetcher creates a new Fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:   &http.Client{Timeout: DefaultFetchTimeout},
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the body of url. Non-2xx responses fail with EFETCH.
// Gzip-compressed bodies are inflated, and the cap applies to the
// inflated size.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, seocrawl.Errorf(seocrawl.EINVALID, "invalid request url %q", url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, seocrawl.Errorf(seocrawl.EFETCH, "HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if isGzip(body) {
		return f.inflate(url, body)
	}
	return body, nil
}

func (f *Fetcher) inflate(url string, body []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, seocrawl.Errorf(seocrawl.EFETCH, "gzip %s: %v", url, err)
	}
	defer zr.Close()

	// A body cut at the cap ends in a truncated stream; keep what inflated.
	inflated, err := io.ReadAll(io.LimitReader(zr, f.maxBytes))
	if err != nil && len(inflated) == 0 {
		return nil, seocrawl.Errorf(seocrawl.EFETCH, "gzip %s: %v", url, err)
	}
	return inflated, nil
}

func isGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}
