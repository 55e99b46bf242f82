// Package slog provides log/slog decorators for seocrawl services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/seocrawl"
)

// Ensure LoggingSitemapService implements seocrawl.SitemapService.
var _ seocrawl.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with logging.
type LoggingSitemapService struct {
	next   seocrawl.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next seocrawl.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// DiscoverSitemap delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) DiscoverSitemap(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (inv *seocrawl.SitemapInventory, err error) {
	defer func(begin time.Time) {
		var sitemaps, urls int
		var truncated bool
		if inv != nil {
			sitemaps, urls, truncated = len(inv.Sitemaps), len(inv.URLs), inv.Truncated
		}
		s.logger.Info("sitemap discovery",
			"url", seedURL,
			"sitemaps", sitemaps,
			"urls", urls,
			"truncated", truncated,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.DiscoverSitemap(ctx, seedURL, opts)
}
