package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/fwojciec/seocrawl"
	"github.com/fwojciec/seocrawl/crawl"
	secslog "github.com/fwojciec/seocrawl/slog"
	"golang.org/x/sync/errgroup"
)

// urlWidth is the display width of URLs in progress lines.
const urlWidth = 60

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	opts, err := c.options()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", seocrawl.ErrorMessage(err))
		return err
	}

	out := &lineWriter{w: deps.Stdout}
	var emit seocrawl.EventFunc = out.event
	if c.Progress {
		emit = out.progress
	}
	emit = secslog.LogEvents(deps.Logger, emit)

	g, ctx := errgroup.WithContext(deps.Ctx)
	if c.Sitemap {
		g.Go(func() error {
			inv, err := deps.Sitemaps.DiscoverSitemap(ctx, c.URL, seocrawl.SitemapOptions{MaxURLs: c.SitemapMaxURLs})
			if err != nil {
				return err
			}
			if c.Progress {
				return out.printf("sitemap: %d URLs from %d sitemaps (truncated: %t)\n",
					len(inv.URLs), len(inv.Sitemaps), inv.Truncated)
			}
			return out.json(sitemapLine{Type: "sitemap", Inventory: inv})
		})
	}
	g.Go(func() error {
		return deps.Crawler.Crawl(ctx, crawl.NewRun(), c.URL, opts, emit)
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", seocrawl.ErrorMessage(err))
		return err
	}
	return out.err
}

// sitemapLine is the JSON line reporting a sitemap inventory.
type sitemapLine struct {
	Type      string                     `json:"type"`
	Inventory *seocrawl.SitemapInventory `json:"inventory"`
}

// lineWriter serializes output from the crawl and the sitemap discovery.
// The first write error is kept and later writes are dropped.
type lineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

func (l *lineWriter) json(v any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.err = json.NewEncoder(l.w).Encode(v)
	return l.err
}

func (l *lineWriter) printf(format string, args ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	_, l.err = fmt.Fprintf(l.w, format, args...)
	return l.err
}

// event writes crawl events other than discovery stubs as JSON lines.
func (l *lineWriter) event(e seocrawl.Event) {
	if e.Type == seocrawl.EventPageDiscovered || e.Type == seocrawl.EventPageLoading {
		return
	}
	_ = l.json(e)
}

// progress writes one human-readable line per visited page and a summary.
func (l *lineWriter) progress(e seocrawl.Event) {
	switch e.Type {
	case seocrawl.EventStarted:
		_ = l.printf("crawling %s\n", e.StartURL)
	case seocrawl.EventPageDone:
		p := e.Page
		status := "---"
		if p.StatusCode != nil {
			status = fmt.Sprint(*p.StatusCode)
		}
		size := "-"
		if p.ContentLength != nil {
			size = crawl.FormatBytes(int(*p.ContentLength))
		}
		line := fmt.Sprintf("[%d] %s %-*s %s %s", e.Processed+1, status, urlWidth,
			crawl.TruncateURL(p.URL, urlWidth), size, crawl.FormatMillis(p.LoadTimeMs))
		if !p.OK {
			line += " " + p.Error
		}
		_ = l.printf("%s\n", line)
	case seocrawl.EventFinished, seocrawl.EventCancelled:
		_ = l.printf("%s: %d pages, %d queued\n", e.Type, e.Processed, e.Queued)
	case seocrawl.EventError:
		_ = l.printf("error: %s\n", e.Err)
	}
}
