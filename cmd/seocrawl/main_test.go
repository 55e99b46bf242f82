package main_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/seocrawl"
	main "github.com/fwojciec/seocrawl/cmd/seocrawl"
	"github.com/fwojciec/seocrawl/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLI_HelpShowsAllCommands(t *testing.T) {
	t.Parallel()

	cli := &main.CLI{}
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	parser, err := kong.New(cli,
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	require.NoError(t, err)

	_, _ = parser.Parse([]string{"--help"})

	for _, cmd := range []string{"crawl", "sitemap"} {
		assert.Contains(t, stdout.String(), cmd, "Help should mention %s command", cmd)
	}
}

func TestMain_Run_Help(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := main.NewMain().Run(context.Background(), []string{"--help"}, stdout, stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "Usage:")
	assert.Contains(t, stdout.String(), "crawl")
	assert.Contains(t, stdout.String(), "sitemap")
}

func TestMain_Run_NoArguments(t *testing.T) {
	t.Parallel()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := main.NewMain().Run(context.Background(), nil, stdout, stderr)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command specified")
}

func TestMain_Run_Sitemap(t *testing.T) {
	t.Parallel()

	t.Run("prints the inventory as JSON", func(t *testing.T) {
		t.Parallel()

		var gotOpts seocrawl.SitemapOptions
		m := main.NewMain()
		m.Sitemaps = &mock.SitemapService{
			DiscoverSitemapFn: func(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
				gotOpts = opts
				return &seocrawl.SitemapInventory{
					Sitemaps: []string{"https://example.com/sitemap.xml"},
					URLs:     []string{"https://example.com/a"},
					URLMeta: map[string]seocrawl.SitemapURLMeta{
						"https://example.com/a": {LastMod: "2024-01-02"},
					},
				}, nil
			},
		}
		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"sitemap", "https://example.com", "--max-urls", "10"}, stdout, stderr)
		require.NoError(t, err)

		assert.Equal(t, 10, gotOpts.MaxURLs)
		var inv seocrawl.SitemapInventory
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &inv))
		assert.Equal(t, []string{"https://example.com/a"}, inv.URLs)
		assert.Equal(t, "2024-01-02", inv.URLMeta["https://example.com/a"].LastMod)
		assert.Contains(t, stderr.String(), "sitemap discovery")
	})

	t.Run("reports discovery errors", func(t *testing.T) {
		t.Parallel()

		m := main.NewMain()
		m.Sitemaps = &mock.SitemapService{
			DiscoverSitemapFn: func(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
				return nil, seocrawl.Errorf(seocrawl.EINVALID, "unsupported URL scheme %q", "ftp")
			},
		}
		stderr := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"sitemap", "ftp://example.com"}, &bytes.Buffer{}, stderr)

		assert.Equal(t, seocrawl.EINVALID, seocrawl.ErrorCode(err))
		assert.Contains(t, stderr.String(), `error: unsupported URL scheme "ftp"`)
	})
}

// testSite returns a renderer and extractor serving a two-page site.
func testSite() (*mock.Renderer, *mock.Extractor) {
	links := map[string][]string{
		"https://example.com":   {"https://example.com/a"},
		"https://example.com/a": {"https://example.com"},
	}

	var mu sync.Mutex
	var current string
	r := &mock.Renderer{
		NavigateFn: func(ctx context.Context, url string) error {
			mu.Lock()
			defer mu.Unlock()
			current = url
			return nil
		},
		StopLoadingFn: func() error { return nil },
		RunScriptFn:   func(ctx context.Context, js string) (string, error) { return "", nil },
		CurrentURLFn: func(ctx context.Context) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			return current, nil
		},
		AddPreDocumentScriptFn:    func(ctx context.Context, src string) (string, error) { return "1", nil },
		RemovePreDocumentScriptFn: func(ctx context.Context, id string) error { return nil },
		SetNetworkIdentityFn:      func(ctx context.Context, identity seocrawl.NetworkIdentity) error { return nil },
		OnResponseCompletedFn:     func(fn func(seocrawl.Response)) func() { return func() {} },
		AttachFn:                  func(ctx context.Context) error { return nil },
		DetachFn:                  func(ctx context.Context) error { return nil },
	}
	e := &mock.Extractor{
		ExtractFn: func(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error) {
			url, err := r.CurrentURL(ctx)
			if err != nil {
				return nil, err
			}
			ext := seocrawl.EmptyExtraction()
			ext.Title = "Page " + url
			for _, l := range links[url] {
				ext.Links = append(ext.Links, seocrawl.Link{URL: l, Internal: true})
			}
			return ext, nil
		},
	}
	return r, e
}

func newTestMain() *main.Main {
	r, e := testSite()
	m := main.NewMain()
	m.Renderer = r
	m.Extractor = e
	m.Resolver = &mock.HostResolver{
		LookupHostFn: func(ctx context.Context, host string) ([]string, error) {
			return []string{"127.0.0.1"}, nil
		},
	}
	return m
}

func jsonLines(t *testing.T, out string) []map[string]any {
	t.Helper()

	var lines []map[string]any
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var v map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &v), "line: %s", sc.Text())
		lines = append(lines, v)
	}
	return lines
}

func TestMain_Run_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("streams events as JSON lines", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}
		stderr := &bytes.Buffer{}

		err := newTestMain().Run(context.Background(), []string{"crawl", "https://example.com"}, stdout, stderr)
		require.NoError(t, err)

		lines := jsonLines(t, stdout.String())
		var types []string
		for _, l := range lines {
			types = append(types, l["type"].(string))
		}
		assert.Equal(t, []string{"started", "page:done", "page:done", "finished"}, types)

		page := lines[1]["page"].(map[string]any)
		assert.Equal(t, "https://example.com", page["normalizedUrl"])
		assert.Equal(t, "Page https://example.com", page["title"])
		assert.Equal(t, true, lines[1]["ok"])
		assert.Equal(t, "127.0.0.1", page["ip"])
		assert.InDelta(t, 2, lines[3]["processed"], 0)

		assert.Contains(t, stderr.String(), "crawl started")
		assert.Contains(t, stderr.String(), "crawl finished")
	})

	t.Run("applies option flags", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}

		err := newTestMain().Run(context.Background(),
			[]string{"crawl", "https://example.com", "--max-depth", "0", "--timeout", "5s", "--user-agent", "SEOBot/1.0"},
			stdout, &bytes.Buffer{})
		require.NoError(t, err)

		lines := jsonLines(t, stdout.String())
		require.Len(t, lines, 3)
		opts := lines[0]["options"].(map[string]any)
		assert.InDelta(t, 0, opts["maxDepth"], 0)
		assert.InDelta(t, 5e9, opts["pageLoadTimeout"], 0)
		assert.Equal(t, "SEOBot/1.0", opts["stealth"].(map[string]any)["userAgent"])
	})

	t.Run("prints progress lines", func(t *testing.T) {
		t.Parallel()

		stdout := &bytes.Buffer{}

		err := newTestMain().Run(context.Background(), []string{"crawl", "https://example.com", "-p"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)

		out := stdout.String()
		assert.Contains(t, out, "crawling https://example.com\n")
		assert.Contains(t, out, "[1] --- https://example.com")
		assert.Contains(t, out, "[2] --- https://example.com/a")
		assert.Contains(t, out, "finished: 2 pages, 0 queued\n")
	})

	t.Run("discovers the sitemap alongside the crawl", func(t *testing.T) {
		t.Parallel()

		m := newTestMain()
		m.Sitemaps = &mock.SitemapService{
			DiscoverSitemapFn: func(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
				return &seocrawl.SitemapInventory{URLs: []string{"https://example.com/a"}}, nil
			},
		}
		stdout := &bytes.Buffer{}

		err := m.Run(context.Background(), []string{"crawl", "https://example.com", "--sitemap"}, stdout, &bytes.Buffer{})
		require.NoError(t, err)

		var sitemap map[string]any
		done := 0
		for _, l := range jsonLines(t, stdout.String()) {
			switch l["type"] {
			case "sitemap":
				sitemap = l
			case "page:done":
				done++
			}
		}
		require.NotNil(t, sitemap)
		assert.Equal(t, []any{"https://example.com/a"}, sitemap["inventory"].(map[string]any)["urls"])
		assert.Equal(t, 2, done)
	})

	t.Run("rejects out of range options", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}

		err := newTestMain().Run(context.Background(), []string{"crawl", "https://example.com", "--timeout", "100ms"}, &bytes.Buffer{}, stderr)

		assert.Equal(t, seocrawl.EINVALID, seocrawl.ErrorCode(err))
		assert.Contains(t, stderr.String(), "page load timeout must be between")
	})

	t.Run("rejects an invalid seed", func(t *testing.T) {
		t.Parallel()

		stderr := &bytes.Buffer{}

		err := newTestMain().Run(context.Background(), []string{"crawl", "ftp://example.com/"}, &bytes.Buffer{}, stderr)

		assert.Equal(t, seocrawl.EINVALID, seocrawl.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})

	t.Run("fails when the sitemap discovery fails", func(t *testing.T) {
		t.Parallel()

		m := newTestMain()
		m.Sitemaps = &mock.SitemapService{
			DiscoverSitemapFn: func(ctx context.Context, seedURL string, opts seocrawl.SitemapOptions) (*seocrawl.SitemapInventory, error) {
				return nil, errors.New("boom")
			},
		}

		err := m.Run(context.Background(), []string{"crawl", "https://example.com", "--sitemap"}, &bytes.Buffer{}, &bytes.Buffer{})

		assert.EqualError(t, err, "boom")
	})
}
