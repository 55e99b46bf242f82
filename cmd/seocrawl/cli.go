package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/seocrawl"
	"github.com/fwojciec/seocrawl/crawl"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *slog.Logger
	Sitemaps seocrawl.SitemapService
	Crawler  *crawl.Crawler
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Crawl   CrawlCmd   `cmd:"" help:"Crawl a site and stream page records as JSON lines"`
	Sitemap SitemapCmd `cmd:"" help:"Discover the URL inventory of a site's sitemaps"`
}

// CrawlCmd is the "crawl" subcommand. Option flags left unset keep the
// value from --config, or the default.
type CrawlCmd struct {
	URL    string `arg:"" help:"Seed URL"`
	Config string `short:"c" type:"path" help:"YAML options file"`

	MaxDepth        *int           `name:"max-depth" short:"d" help:"Link-expansion cutoff (default 2)"`
	MaxPages        *int           `name:"max-pages" short:"n" help:"Maximum pages to visit (default 200)"`
	Delay           *time.Duration `help:"Pause between page loads"`
	Jitter          *time.Duration `help:"Random extra pause, up to this long"`
	PageLoadTimeout *time.Duration `name:"timeout" help:"Per-page load deadline (default 10s)"`
	AnalyzeWait     *time.Duration `name:"analyze-wait" help:"Extra settle wait before extraction"`
	DedupLinks      *bool          `name:"dedup-links" help:"Drop repeated links during extraction (default true)"`
	RestrictFolder  *bool          `name:"restrict-folder" help:"Stay inside the seed's folder (default true)"`

	UserAgent      string `name:"user-agent" help:"User-Agent override"`
	AcceptLanguage string `name:"accept-language" help:"Accept-Language override"`
	Platform       string `help:"navigator.platform override"`
	HideAutomation *bool  `name:"hide-automation" help:"Suppress the navigator.webdriver signal"`

	Sitemap        bool `help:"Also discover the sitemap inventory while crawling"`
	SitemapMaxURLs int  `name:"sitemap-max-urls" default:"50000" help:"Maximum sitemap URLs"`
	Progress       bool `short:"p" help:"Print progress lines instead of JSON"`

	Headful bool   `help:"Show the browser window"`
	Browser string `help:"Browser executable (default: find or download Chromium)"`
}

// SitemapCmd is the "sitemap" subcommand.
type SitemapCmd struct {
	URL     string `arg:"" help:"Site URL"`
	MaxURLs int    `name:"max-urls" default:"50000" help:"Maximum URLs in the inventory"`
}
