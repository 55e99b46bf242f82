package seocrawl

import "context"

// DefaultSitemapMaxURLs caps the inventory when SitemapOptions.MaxURLs is zero.
const DefaultSitemapMaxURLs = 50000

// SitemapService discovers a site's URL inventory from its sitemaps.
type SitemapService interface {
	// DiscoverSitemap finds the sitemaps of seedURL's origin (well-known
	// locations and robots.txt directives), expands sitemap indexes, and
	// returns the flat URL inventory.
	//
	// Individual fetch or parse failures are skipped. An error is returned
	// only for an invalid seed URL or a done context.
	DiscoverSitemap(ctx context.Context, seedURL string, opts SitemapOptions) (*SitemapInventory, error)
}

// SitemapOptions configures a sitemap discovery.
type SitemapOptions struct {
	// MaxURLs caps the number of URLs in the inventory.
	// Zero means DefaultSitemapMaxURLs.
	MaxURLs int
}

// SitemapURLMeta holds the optional per-URL fields of a urlset entry.
type SitemapURLMeta struct {
	LastMod    string `json:"lastmod,omitempty"`
	ChangeFreq string `json:"changefreq,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// SitemapInventory is the result of a sitemap discovery.
type SitemapInventory struct {
	// Sitemaps lists the sitemap documents that were fetched and parsed.
	Sitemaps []string `json:"sitemaps"`

	// URLs lists distinct page URLs in discovery order.
	URLs []string `json:"urls"`

	URLMeta map[string]SitemapURLMeta `json:"urlMetaByUrl"`

	// Truncated reports that a URL or sitemap cap stopped discovery.
	Truncated bool `json:"truncated"`
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error
}
