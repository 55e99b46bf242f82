package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/seocrawl"
	"github.com/fwojciec/seocrawl/crawl"
	"github.com/fwojciec/seocrawl/goquery"
	sechttp "github.com/fwojciec/seocrawl/http"
	"github.com/fwojciec/seocrawl/rod"
	secslog "github.com/fwojciec/seocrawl/slog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()
	defer m.Close()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		m.Close()
		os.Exit(1)
	}
}

// sitemapRate is the per-host request budget of sitemap fetches.
const sitemapRate = 5.0

// ipWait bounds how long a page record waits for its address lookup.
const ipWait = 500 * time.Millisecond

// Main represents the program.
type Main struct {
	// Services for end-to-end testing. Nil fields get production
	// implementations; a nil Renderer launches a browser.
	Renderer  seocrawl.Renderer
	Extractor seocrawl.Extractor
	Sitemaps  seocrawl.SitemapService
	Resolver  seocrawl.HostResolver

	browser  *rod.BrowserManager
	renderer *rod.Renderer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.renderer != nil {
		_ = m.renderer.Close()
		m.renderer = nil
	}
	if m.browser != nil {
		err := m.browser.Close()
		m.browser = nil
		return err
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("seocrawl"),
		kong.Description("Crawl a site through a headless browser and report SEO data"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'seocrawl --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	logf := func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	}
	deps.Logger = logger

	sitemaps := m.Sitemaps
	if sitemaps == nil {
		sitemaps = sechttp.NewSitemapService(nil,
			sechttp.WithRateLimiter(crawl.NewDomainLimiter(sitemapRate, crawl.WithBurst(2))),
			sechttp.WithRetryDelays([]time.Duration{time.Second, 2 * time.Second}),
			sechttp.WithLogger(logf),
		)
	}
	deps.Sitemaps = secslog.NewLoggingSitemapService(sitemaps, logger)

	if strings.HasPrefix(kongCtx.Command(), "crawl") {
		renderer := m.Renderer
		if renderer == nil {
			r, err := m.launch(cli.Crawl.Headful, cli.Crawl.Browser)
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed, or pass --browser")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			renderer = r
		}
		defer m.Close()

		extractor := m.Extractor
		if extractor == nil {
			extractor = goquery.NewExtractor()
		}

		deps.Crawler = &crawl.Crawler{
			Renderer:  rod.NewLoggingRenderer(renderer, logger),
			Extractor: secslog.NewLoggingExtractor(extractor, logger),
			Resolver:  m.Resolver,
			Logf:      logf,
			IPWait:    ipWait,
		}
	}

	return kongCtx.Run(deps)
}

func (m *Main) launch(headful bool, bin string) (*rod.Renderer, error) {
	bm, err := rod.NewBrowserManager(rod.WithHeadless(!headful), rod.WithBrowserBin(bin))
	if err != nil {
		return nil, err
	}
	r, err := bm.NewRenderer()
	if err != nil {
		_ = bm.Close()
		return nil, err
	}
	m.browser = bm
	m.renderer = r
	return r, nil
}
