package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fwojciec/seocrawl"
	seohttp "github.com/fwojciec/seocrawl/http"
	"github.com/fwojciec/seocrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapService_DiscoverSitemap_FromRobotsTxt(t *testing.T) {
	t.Parallel()

	robotsTxt := `User-agent: *
Disallow: /private/
Sitemap: {{BASE}}/pages.xml
`
	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url>
    <loc>{{BASE}}/docs/intro</loc>
    <lastmod>2024-01-02</lastmod>
    <changefreq>weekly</changefreq>
    <priority>0.8</priority>
  </url>
  <url><loc>{{BASE}}/docs/guide</loc></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/robots.txt": robotsTxt,
		"/pages.xml":  sitemapXML,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/pages.xml"}, inv.Sitemaps)
	assert.Equal(t, []string{srv.URL + "/docs/intro", srv.URL + "/docs/guide"}, inv.URLs)
	assert.Equal(t, seocrawl.SitemapURLMeta{
		LastMod:    "2024-01-02",
		ChangeFreq: "weekly",
		Priority:   "0.8",
	}, inv.URLMeta[srv.URL+"/docs/intro"])
	assert.NotContains(t, inv.URLMeta, srv.URL+"/docs/guide")
	assert.False(t, inv.Truncated)
}

func TestSitemapService_DiscoverSitemap_WellKnownLocations(t *testing.T) {
	t.Parallel()

	// No robots.txt; both well-known candidates are tried.
	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<urlset><url><loc>{{BASE}}/a</loc></url></urlset>`,
		"/sitemap_index.xml": `<sitemapindex>
  <sitemap><loc>{{BASE}}/more.xml</loc></sitemap>
</sitemapindex>`,
		"/more.xml": `<urlset><url><loc>{{BASE}}/b</loc></url></urlset>`,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL+"/some/page", seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/sitemap.xml",
		srv.URL + "/sitemap_index.xml",
		srv.URL + "/more.xml",
	}, inv.Sitemaps)
	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, inv.URLs)
}

func TestSitemapService_DiscoverSitemap_RobotsRelativeTarget(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/robots.txt":     "Sitemap: /maps/pages.xml\n",
		"/maps/pages.xml": `<urlset><url><loc>{{BASE}}/page</loc></url></urlset>`,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/maps/pages.xml"}, inv.Sitemaps)
	assert.Equal(t, []string{srv.URL + "/page"}, inv.URLs)
}

func TestSitemapService_DiscoverSitemap_IndexCycleTerminates(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<sitemapindex>
  <sitemap><loc>{{BASE}}/b.xml</loc></sitemap>
</sitemapindex>`,
		"/b.xml": `<sitemapindex>
  <sitemap><loc>{{BASE}}/sitemap.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/sitemap.xml/</loc></sitemap>
  <sitemap><loc>{{BASE}}/c.xml</loc></sitemap>
</sitemapindex>`,
		"/c.xml": `<urlset><url><loc>{{BASE}}/page</loc></url></urlset>`,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{
		srv.URL + "/sitemap.xml",
		srv.URL + "/b.xml",
		srv.URL + "/c.xml",
	}, inv.Sitemaps)
	assert.Equal(t, []string{srv.URL + "/page"}, inv.URLs)
	assert.False(t, inv.Truncated)
}

func TestSitemapService_DiscoverSitemap_SitemapCap(t *testing.T) {
	t.Parallel()

	var index strings.Builder
	index.WriteString("<sitemapindex>")
	content := map[string]string{}
	for _, name := range []string{"s1", "s2", "s3", "s4", "s5"} {
		index.WriteString("<sitemap><loc>{{BASE}}/" + name + ".xml</loc></sitemap>")
		content["/"+name+".xml"] = "<urlset><url><loc>{{BASE}}/" + name + "</loc></url></urlset>"
	}
	index.WriteString("</sitemapindex>")
	content["/sitemap.xml"] = index.String()

	srv := newTestServer(t, content)
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client(), seohttp.WithMaxSitemaps(3))
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.True(t, inv.Truncated)
	// sitemap.xml, sitemap_index.xml (missing), s1.xml
	assert.Equal(t, []string{srv.URL + "/s1"}, inv.URLs)
}

func TestSitemapService_DiscoverSitemap_URLCap(t *testing.T) {
	t.Parallel()

	t.Run("truncates at max URLs", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<urlset>
  <url><loc>{{BASE}}/1</loc></url>
  <url><loc>{{BASE}}/2</loc></url>
  <url><loc>{{BASE}}/3</loc></url>
</urlset>`,
		})
		defer srv.Close()

		svc := seohttp.NewSitemapService(srv.Client())
		inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{MaxURLs: 2})

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/1", srv.URL + "/2"}, inv.URLs)
		assert.True(t, inv.Truncated)
	})

	t.Run("exactly max URLs is not truncated", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<urlset>
  <url><loc>{{BASE}}/1</loc></url>
  <url><loc>{{BASE}}/2</loc></url>
</urlset>`,
		})
		defer srv.Close()

		svc := seohttp.NewSitemapService(srv.Client())
		inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{MaxURLs: 2})

		require.NoError(t, err)
		assert.Len(t, inv.URLs, 2)
		assert.False(t, inv.Truncated)
	})
}

func TestSitemapService_DiscoverSitemap_DeduplicatesNormalizedURLs(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<urlset>
  <url><loc>{{BASE}}/a</loc></url>
  <url><loc>{{BASE}}/a/</loc></url>
  <url><loc>{{BASE}}/a#section</loc></url>
</urlset>`,
		"/sitemap_index.xml": `<sitemapindex><sitemap><loc>{{BASE}}/other.xml</loc></sitemap></sitemapindex>`,
		"/other.xml":         `<urlset><url><loc>{{BASE}}/a</loc></url><url><loc>{{BASE}}/b</loc></url></urlset>`,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/a", srv.URL + "/b"}, inv.URLs)
}

func TestSitemapService_DiscoverSitemap_MalformedXML(t *testing.T) {
	t.Parallel()

	t.Run("salvages complete entries from truncated document", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<urlset><url><loc>{{BASE}}/a</loc><priority>0.5</priority></url><url><loc>{{BASE}}/b`,
		})
		defer srv.Close()

		svc := seohttp.NewSitemapService(srv.Client())
		inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

		require.NoError(t, err)
		assert.Contains(t, inv.URLs, srv.URL+"/a")
		assert.Equal(t, "0.5", inv.URLMeta[srv.URL+"/a"].Priority)
	})

	t.Run("garbage yields no entries", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `this is <<< not >>> xml at all`,
		})
		defer srv.Close()

		svc := seohttp.NewSitemapService(srv.Client())
		inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

		require.NoError(t, err)
		assert.Empty(t, inv.URLs)
		assert.Empty(t, inv.Sitemaps)
		assert.False(t, inv.Truncated)
	})

	t.Run("reads namespaced and CDATA locations", func(t *testing.T) {
		t.Parallel()

		srv := newTestServer(t, map[string]string{
			"/sitemap.xml": `<?xml version="1.0"?>
<sm:urlset xmlns:sm="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sm:url><sm:loc><![CDATA[{{BASE}}/cdata]]></sm:loc></sm:url>
  <sm:url><sm:loc>{{BASE}}/q?a=1&amp;b=2</sm:loc></sm:url>
</sm:urlset>`,
		})
		defer srv.Close()

		svc := seohttp.NewSitemapService(srv.Client())
		inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

		require.NoError(t, err)
		assert.Equal(t, []string{srv.URL + "/cdata", srv.URL + "/q?a=1&b=2"}, inv.URLs)
	})
}

func TestSitemapService_DiscoverSitemap_SkipsFailedChildren(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<sitemapindex>
  <sitemap><loc>{{BASE}}/missing.xml</loc></sitemap>
  <sitemap><loc>{{BASE}}/good.xml</loc></sitemap>
</sitemapindex>`,
		"/good.xml": `<urlset><url><loc>{{BASE}}/page</loc></url></urlset>`,
	})
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client())
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/page"}, inv.URLs)
	assert.NotContains(t, inv.Sitemaps, srv.URL+"/missing.xml")
}

func TestSitemapService_DiscoverSitemap_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<urlset><url><loc>https://example.com/page</loc></url></urlset>`))
	}))
	defer srv.Close()

	svc := seohttp.NewSitemapService(srv.Client(), seohttp.WithRetryDelays([]time.Duration{time.Millisecond}))
	inv, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/page"}, inv.URLs)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestSitemapService_DiscoverSitemap_WaitsOnRateLimiter(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<urlset><url><loc>{{BASE}}/page</loc></url></urlset>`,
	})
	defer srv.Close()

	var mu sync.Mutex
	var domains []string
	limiter := &mock.DomainLimiter{
		WaitFn: func(ctx context.Context, domain string) error {
			mu.Lock()
			defer mu.Unlock()
			domains = append(domains, domain)
			return nil
		},
	}

	svc := seohttp.NewSitemapService(srv.Client(), seohttp.WithRateLimiter(limiter))
	_, err := svc.DiscoverSitemap(context.Background(), srv.URL, seocrawl.SitemapOptions{})

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	// robots.txt, sitemap.xml, sitemap_index.xml
	assert.Len(t, domains, 3)
	assert.Equal(t, "127.0.0.1", domains[0])
}

func TestSitemapService_DiscoverSitemap_InvalidSeed(t *testing.T) {
	t.Parallel()

	svc := seohttp.NewSitemapService(nil)
	_, err := svc.DiscoverSitemap(context.Background(), "ftp://example.com", seocrawl.SitemapOptions{})

	require.Error(t, err)
	assert.Equal(t, seocrawl.EINVALID, seocrawl.ErrorCode(err))
}

func TestSitemapService_DiscoverSitemap_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := seohttp.NewSitemapService(srv.Client())
	_, err := svc.DiscoverSitemap(ctx, srv.URL, seocrawl.SitemapOptions{})

	require.ErrorIs(t, err, context.Canceled)
}

// newTestServer serves content by path, replacing {{BASE}} with the
// server URL. Unknown paths return 404.
func newTestServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = strings.ReplaceAll(body, "{{BASE}}", srv.URL)

		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "application/xml")
		}
		_, _ = w.Write([]byte(body))
	}))

	return srv
}
