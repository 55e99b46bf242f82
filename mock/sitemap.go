package mock

import (
	"context"

	"github.com/fwojciec/seocrawl"
)

var _ seocrawl.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of seocrawl.SitemapService.
type SitemapService struct {
	DiscoverSitemapFn func(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error)
}

func (s *SitemapService) DiscoverSitemap(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
	return s.DiscoverSitemapFn(ctx, seedURL, opts)
}

var _ seocrawl.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of seocrawl.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
