package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/seocrawl"
	"github.com/temoto/robotstxt"
)

// Ensure SitemapService implements seocrawl.SitemapService.
var _ seocrawl.SitemapService = (*SitemapService)(nil)

// DefaultMaxSitemaps caps the number of sitemap documents fetched per
// discovery. Index cycles stop here.
const DefaultMaxSitemaps = 200

// maxRobotsBytes caps robots.txt bodies.
const maxRobotsBytes = 512 << 10

// SitemapService discovers URLs from website sitemaps via HTTP.
type SitemapService struct {
	fetcher     *Fetcher
	robots      *Fetcher
	maxSitemaps int
	retryDelays []time.Duration
	limiter     seocrawl.DomainLimiter
	logf        func(format string, args ...any)
}

// SitemapOption configures a SitemapService.
type SitemapOption func(*sitemapConfig)

type sitemapConfig struct {
	maxBytes    int64
	maxSitemaps int
	retryDelays []time.Duration
	limiter     seocrawl.DomainLimiter
	logf        func(format string, args ...any)
}

// WithMaxBytes caps the size of each sitemap body. Defaults to DefaultMaxBytes.
func WithMaxBytes(n int64) SitemapOption {
	return func(c *sitemapConfig) {
		c.maxBytes = n
	}
}

// WithMaxSitemaps caps the number of sitemap documents fetched.
// Defaults to DefaultMaxSitemaps.
func WithMaxSitemaps(n int) SitemapOption {
	return func(c *sitemapConfig) {
		c.maxSitemaps = n
	}
}

// WithRetryDelays retries failed sitemap fetches after each delay.
// Defaults to no retries.
func WithRetryDelays(delays []time.Duration) SitemapOption {
	return func(c *sitemapConfig) {
		c.retryDelays = delays
	}
}

// WithRateLimiter makes every fetch wait on limiter, keyed by host.
func WithRateLimiter(limiter seocrawl.DomainLimiter) SitemapOption {
	return func(c *sitemapConfig) {
		c.limiter = limiter
	}
}

// WithLogger receives skipped candidates.
func WithLogger(logf func(format string, args ...any)) SitemapOption {
	return func(c *sitemapConfig) {
		c.logf = logf
	}
}

// NewSitemapService creates a new SitemapService with the given HTTP client.
// If client is nil, a client with DefaultFetchTimeout is used.
func NewSitemapService(client *http.Client, opts ...SitemapOption) *SitemapService {
	cfg := &sitemapConfig{
		maxBytes:    DefaultMaxBytes,
		maxSitemaps: DefaultMaxSitemaps,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logf == nil {
		cfg.logf = func(string, ...any) {}
	}
	return &SitemapService{
		fetcher:     NewFetcher(WithClient(client), WithFetchMaxBytes(cfg.maxBytes)),
		robots:      NewFetcher(WithClient(client), WithFetchMaxBytes(maxRobotsBytes)),
		maxSitemaps: cfg.maxSitemaps,
		retryDelays: cfg.retryDelays,
		limiter:     cfg.limiter,
		logf:        cfg.logf,
	}
}

// DiscoverSitemap builds the URL inventory of seedURL's origin.
func (s *SitemapService) DiscoverSitemap(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	origin, err := originOf(seedURL)
	if err != nil {
		return nil, err
	}
	maxURLs := opts.MaxURLs
	if maxURLs <= 0 {
		maxURLs = seocrawl.DefaultSitemapMaxURLs
	}

	d := &discovery{
		inv: &seocrawl.SitemapInventory{
			Sitemaps: []string{},
			URLs:     []string{},
			URLMeta:  make(map[string]seocrawl.SitemapURLMeta),
		},
		queued:  make(map[string]bool),
		seen:    make(map[string]bool),
		maxURLs: maxURLs,
	}

	d.enqueue(origin.ResolveReference(&url.URL{Path: "/sitemap.xml"}).String())
	d.enqueue(origin.ResolveReference(&url.URL{Path: "/sitemap_index.xml"}).String())
	for _, target := range s.robotsSitemaps(ctx, origin) {
		d.enqueue(target)
	}

	visited := 0
	for len(d.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if visited >= s.maxSitemaps {
			d.inv.Truncated = true
			break
		}
		candidate := d.queue[0]
		d.queue = d.queue[1:]
		visited++

		body, err := s.fetch(ctx, s.fetcher, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logf("sitemap: skip %s: %v", candidate, err)
			continue
		}

		doc := parseSitemap(body)
		if !doc.index && len(doc.urls) == 0 {
			s.logf("sitemap: no entries in %s", candidate)
			continue
		}
		d.inv.Sitemaps = append(d.inv.Sitemaps, candidate)

		if doc.index {
			for _, loc := range doc.sitemaps {
				d.enqueue(loc)
			}
			continue
		}
		if !d.add(doc.urls) {
			d.inv.Truncated = true
			break
		}
	}

	return d.inv, nil
}

// discovery is the state of one DiscoverSitemap call.
type discovery struct {
	inv     *seocrawl.SitemapInventory
	queue   []string
	queued  map[string]bool
	seen    map[string]bool
	maxURLs int
}

func (d *discovery) enqueue(target string) {
	key, err := seocrawl.NormalizeURL(target)
	if err != nil || d.queued[key] {
		return
	}
	d.queued[key] = true
	d.queue = append(d.queue, target)
}

// add appends the distinct entries of a urlset. It returns false when the
// URL cap stopped it.
func (d *discovery) add(entries []sitemapEntry) bool {
	for _, e := range entries {
		key, err := seocrawl.NormalizeURL(e.loc)
		if err != nil || d.seen[key] {
			continue
		}
		if len(d.inv.URLs) >= d.maxURLs {
			return false
		}
		d.seen[key] = true
		d.inv.URLs = append(d.inv.URLs, e.loc)
		if e.meta != (seocrawl.SitemapURLMeta{}) {
			d.inv.URLMeta[e.loc] = e.meta
		}
	}
	return true
}

// robotsSitemaps returns the Sitemap directives of origin's robots.txt,
// resolved against origin. Failures yield none.
func (s *SitemapService) robotsSitemaps(ctx context.Context, origin *url.URL) []string {
	robotsURL := origin.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	body, err := s.fetch(ctx, s.robots, robotsURL)
	if err != nil {
		s.logf("sitemap: robots.txt: %v", err)
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		s.logf("sitemap: robots.txt: %v", err)
		return nil
	}

	targets := make([]string, 0, len(data.Sitemaps))
	for _, raw := range data.Sitemaps {
		ref, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || raw == "" {
			continue
		}
		targets = append(targets, origin.ResolveReference(ref).String())
	}
	return targets
}

func (s *SitemapService) fetch(ctx context.Context, f *Fetcher, target string) ([]byte, error) {
	return fetchWithRetry(ctx, target, func(ctx context.Context, target string) ([]byte, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, seocrawl.HostOf(target)); err != nil {
				return nil, err
			}
		}
		return f.Fetch(ctx, target)
	}, s.retryDelays)
}

// originOf returns the scheme and host of seedURL.
func originOf(seedURL string) (*url.URL, error) {
	norm, err := seocrawl.NormalizeURL(seedURL)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(norm)
	if err != nil {
		return nil, seocrawl.Errorf(seocrawl.EINVALID, "invalid URL %q", seedURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}
