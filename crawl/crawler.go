// Package crawl provides SEO crawl orchestration. It coordinates
// breadth-first traversal, rendering, extraction, and stealth overrides
// of a single renderer, and reports progress as events.
package crawl

import (
	"context"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/seocrawl"
)

const (
	// frontierFalsePositiveRate is the bloom pre-filter error rate. A false
	// positive only costs an exact-set lookup.
	frontierFalsePositiveRate = 0.01

	// settleTimeout bounds the post-load paint wait.
	settleTimeout = 2 * time.Second
)

// settleScript resolves after the next animation frame, or after 100ms on
// pages that never paint.
const settleScript = `new Promise(resolve => {
  let done = false;
  const finish = () => { if (!done) { done = true; resolve(""); } };
  requestAnimationFrame(finish);
  setTimeout(finish, 100);
})`

// Crawler runs breadth-first crawls against a single Renderer. Only one
// run is active at a time: starting a run supersedes the previous one.
type Crawler struct {
	Renderer  seocrawl.Renderer
	Extractor seocrawl.Extractor

	// Resolver resolves page hosts for PageRecord.IP.
	// If nil, net.DefaultResolver is used.
	Resolver seocrawl.HostResolver

	// Logf receives best-effort failures that do not abort a run.
	Logf LogFunc

	// IPWait bounds how long record assembly waits for a pending address
	// lookup. Zero takes whatever is ready.
	IPWait time.Duration

	// Jitter returns a random duration in [0, max]. Defaults to a uniform
	// draw.
	Jitter func(max time.Duration) time.Duration

	initOnce sync.Once
	ips      *IPCache

	mu     sync.Mutex
	active *Run
}

func (c *Crawler) init() {
	c.initOnce.Do(func() {
		c.ips = NewIPCache(c.Resolver)
	})
}

// StartCrawl starts a run in the background and returns its handle.
// Any run already active is cancelled; the new run begins once the old
// one has released the renderer.
func (c *Crawler) StartCrawl(ctx context.Context, seedURL string, opts seocrawl.Options, emit seocrawl.EventFunc) (*Run, error) {
	if err := c.prepare(seedURL, opts); err != nil {
		return nil, err
	}
	run := NewRun()
	prev := c.activate(run)
	go func() {
		_ = c.crawl(ctx, run, prev, seedURL, opts, emit)
	}()
	return run, nil
}

// Crawl executes run synchronously and returns when it ends. It returns
// an error only if the run could not start or the renderer became
// unavailable.
func (c *Crawler) Crawl(ctx context.Context, run *Run, seedURL string, opts seocrawl.Options, emit seocrawl.EventFunc) error {
	if err := c.prepare(seedURL, opts); err != nil {
		run.finish(RunError, err)
		return err
	}
	prev := c.activate(run)
	return c.crawl(ctx, run, prev, seedURL, opts, emit)
}

// CancelCrawl requests cancellation of the active run if its id matches.
// Unknown ids are ignored.
func (c *Crawler) CancelCrawl(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil && c.active.ID == runID {
		c.active.Cancel()
	}
}

// Active returns the active run, or nil.
func (c *Crawler) Active() *Run {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *Crawler) prepare(seedURL string, opts seocrawl.Options) error {
	if c.Renderer == nil {
		return seocrawl.Errorf(seocrawl.EUNAVAILABLE, "renderer unavailable")
	}
	if c.Extractor == nil {
		return seocrawl.Errorf(seocrawl.EINVALID, "extractor required")
	}
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := seocrawl.NormalizeURL(seedURL); err != nil {
		return err
	}
	c.init()
	return nil
}

// activate makes run the active run and cancels the one it replaces.
func (c *Crawler) activate(run *Run) *Run {
	c.mu.Lock()
	prev := c.active
	c.active = run
	c.mu.Unlock()
	if prev == run {
		return nil
	}
	if prev != nil {
		prev.Cancel()
	}
	return prev
}

func (c *Crawler) deactivate(run *Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == run {
		c.active = nil
	}
}

func (c *Crawler) isActive(run *Run) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active == run
}

// crawlState is the per-run traversal state.
type crawlState struct {
	run       *Run
	opts      seocrawl.Options
	scope     *seocrawl.Scope
	frontier  *Frontier
	stealth   *StealthManager
	responses *responseCache
	emit      seocrawl.EventFunc
	processed int
}

func (c *Crawler) crawl(ctx context.Context, run *Run, prev *Run, seedURL string, opts seocrawl.Options, emit seocrawl.EventFunc) (err error) {
	state := RunFinished
	defer func() { run.finish(state, err) }()
	defer c.deactivate(run)

	if emit == nil {
		emit = func(seocrawl.Event) {}
	}

	if prev != nil {
		// Abort the superseded run's in-flight navigation so it observes
		// its cancellation promptly.
		if err := c.Renderer.StopLoading(); err != nil {
			c.logf("stop superseded navigation: %v", err)
		}
		select {
		case <-prev.Done():
		case <-ctx.Done():
		}
	}

	seed, err := seocrawl.NormalizeURL(seedURL)
	if err != nil {
		state = RunError
		return err
	}
	scope, err := seocrawl.NewScope(seedURL, opts.RestrictToCurrentFolder)
	if err != nil {
		state = RunError
		return err
	}

	s := &crawlState{
		run:       run,
		opts:      opts,
		scope:     scope,
		frontier:  NewFrontier(uint(opts.MaxPages), frontierFalsePositiveRate),
		stealth:   NewStealthManager(c.Renderer, c.logf),
		responses: newResponseCache(),
		emit:      emit,
	}

	startedAt := run.start()
	emit(seocrawl.Event{
		Type:      seocrawl.EventStarted,
		RunID:     run.ID,
		StartedAt: startedAt,
		StartURL:  seed,
		Options:   &opts,
	})

	cleanupCtx := context.WithoutCancel(ctx)
	s.stealth.Begin(ctx, opts.Stealth)
	defer s.stealth.End(cleanupCtx)

	unsubscribe := c.Renderer.OnResponseCompleted(s.responses.record)
	defer unsubscribe()

	stub := seocrawl.NewStubRecord(seed, seed, 0)
	s.frontier.Push(seed, seocrawl.QueueEntry{URL: seed, Depth: 0, DiscoveredAt: stub.DiscoveredAt})
	emit(seocrawl.Event{
		Type:   seocrawl.EventPageDiscovered,
		RunID:  run.ID,
		Page:   stub,
		Queued: s.frontier.Len(),
	})

	for s.frontier.Len() > 0 && s.processed < opts.MaxPages {
		if c.stopped(ctx, run) {
			break
		}
		entry, _ := s.frontier.Pop()

		key, err := seocrawl.NormalizeURL(entry.URL)
		if err != nil || s.frontier.Visited(key) || !seocrawl.IsInternal(key, scope.BaseHost) {
			continue
		}
		s.frontier.MarkVisited(key)

		emit(seocrawl.Event{
			Type:      seocrawl.EventPageLoading,
			RunID:     run.ID,
			URL:       entry.URL,
			Processed: s.processed,
			Queued:    s.frontier.Len(),
		})

		record, err := c.visit(ctx, s, entry, key)
		if err != nil {
			state = RunError
			emit(seocrawl.Event{
				Type:       seocrawl.EventError,
				RunID:      run.ID,
				FinishedAt: time.Now(),
				Err:        seocrawl.ErrorMessage(err),
				Processed:  s.processed,
				Queued:     s.frontier.Len(),
			})
			return err
		}

		emit(seocrawl.Event{
			Type:      seocrawl.EventPageDone,
			RunID:     run.ID,
			Page:      record,
			OK:        record.OK,
			Processed: s.processed,
			Queued:    s.frontier.Len(),
		})

		if entry.Depth < opts.MaxDepth {
			c.expand(s, record)
		}
		s.processed++

		if s.frontier.Len() > 0 && s.processed < opts.MaxPages {
			c.pace(ctx, run, opts)
		}
	}

	terminal := seocrawl.EventFinished
	if c.stopped(ctx, run) {
		terminal = seocrawl.EventCancelled
		state = RunCancelled
	}
	emit(seocrawl.Event{
		Type:       terminal,
		RunID:      run.ID,
		FinishedAt: time.Now(),
		Processed:  s.processed,
		Queued:     s.frontier.Len(),
	})
	return nil
}

// stopped reports whether run was cancelled, superseded, or abandoned by
// its caller.
func (c *Crawler) stopped(ctx context.Context, run *Run) bool {
	return run.Cancelled() || !c.isActive(run) || ctx.Err() != nil
}

// visit loads one page and assembles its record. A load failure yields a
// record with OK unset; only an unavailable renderer returns an error.
func (c *Crawler) visit(ctx context.Context, s *crawlState, entry seocrawl.QueueEntry, key string) (*seocrawl.PageRecord, error) {
	record := &seocrawl.PageRecord{
		URL:           entry.URL,
		NormalizedURL: key,
		Depth:         entry.Depth,
		State:         seocrawl.PageDone,
		DiscoveredAt:  entry.DiscoveredAt,
	}
	if record.DiscoveredAt.IsZero() {
		record.DiscoveredAt = time.Now()
	}

	// A response left over from an earlier visit must not describe this one.
	s.responses.forget(key)

	loadStart := time.Now()
	load := WithTimeout(ctx, s.opts.PageLoadTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Renderer.Navigate(ctx, entry.URL)
	}, func() {
		if err := c.Renderer.StopLoading(); err != nil {
			c.logf("stop loading %s: %v", entry.URL, err)
		}
	})
	switch {
	case load.TimedOut:
		record.Error = seocrawl.ErrorMessage(seocrawl.Errorf(seocrawl.ETIMEOUT,
			"page load timed out after %s", s.opts.PageLoadTimeout))
	case load.Err != nil:
		if seocrawl.ErrorCode(load.Err) == seocrawl.EUNAVAILABLE {
			return nil, load.Err
		}
		record.Error = seocrawl.ErrorMessage(load.Err)
	default:
		record.OK = true
		ms := time.Since(loadStart).Milliseconds()
		record.LoadTimeMs = &ms
	}

	go s.stealth.Reapply(ctx)

	WithTimeout(ctx, settleTimeout, func(ctx context.Context) (string, error) {
		return c.Renderer.RunScript(ctx, settleScript)
	}, nil)
	if s.opts.AnalyzeWait > 0 {
		sleep(ctx, s.run, s.opts.AnalyzeWait)
	}

	// A failed load may leave the previous document in place, so only a
	// current URL that matches the requested page describes it.
	final, err := c.Renderer.CurrentURL(ctx)
	if err != nil || final == "" {
		final = entry.URL
	}
	finalKey, err := seocrawl.NormalizeURL(final)
	if err != nil {
		finalKey = key
	}
	stale := !record.OK && finalKey != key
	if stale {
		final, finalKey = entry.URL, key
	}
	record.FinalURL = final

	host := hostname(final)
	ip := Go(func() (string, error) { return c.ips.Lookup(ctx, host) })

	analysisStart := time.Now()
	extraction := seocrawl.EmptyExtraction()
	if !stale {
		extracted := WithTimeout(ctx, s.opts.PageLoadTimeout, func(ctx context.Context) (*seocrawl.Extraction, error) {
			return c.Extractor.Extract(ctx, c.Renderer, seocrawl.ExtractOptions{DeduplicateLinks: s.opts.DeduplicateLinks})
		}, nil)
		switch {
		case extracted.TimedOut:
			c.logf("extract %s: timed out", final)
		case extracted.Err != nil || extracted.Value == nil:
			c.logf("extract %s: %v", final, extracted.Err)
		default:
			extraction = extracted.Value
		}
	}
	ms := time.Since(analysisStart).Milliseconds()
	record.AnalysisTimeMs = &ms
	record.Extraction = *extraction

	keys := []string{finalKey, key}
	if !record.OK {
		keys = []string{key}
	}
	if info, ok := s.responses.lookup(keys...); ok {
		status := info.status
		record.StatusCode = &status
		record.ContentLength = info.contentLength
	}
	if record.ContentLength == nil && extraction.HTMLBytes > 0 {
		n := int64(extraction.HTMLBytes)
		record.ContentLength = &n
	}

	if ip.WaitFor(c.IPWait) {
		if addr, err := ip.Result(); err == nil {
			record.IP = addr
		}
	} else if addr, ok := c.ips.Cached(host); ok {
		record.IP = addr
	}

	if extraction.Text != "" {
		record.ContentHash = ComputeHash(extraction.Text)
	}
	return record, nil
}

// expand queues the in-scope links of record until the page budget is
// reached.
func (c *Crawler) expand(s *crawlState, record *seocrawl.PageRecord) {
	depth := record.Depth + 1
	for _, link := range record.Links {
		if s.frontier.EnqueuedCount() >= s.opts.MaxPages {
			return
		}
		key, err := seocrawl.NormalizeURL(link.URL)
		if err != nil {
			continue
		}
		if s.frontier.Visited(key) || s.frontier.Enqueued(key) {
			continue
		}
		if seocrawl.IsNonHTMLResource(link.URL) || !s.scope.Allows(link.URL) {
			continue
		}
		stub := seocrawl.NewStubRecord(link.URL, key, depth)
		s.frontier.Push(key, seocrawl.QueueEntry{URL: link.URL, Depth: depth, DiscoveredAt: stub.DiscoveredAt})
		s.emit(seocrawl.Event{
			Type:      seocrawl.EventPageDiscovered,
			RunID:     s.run.ID,
			Page:      stub,
			Processed: s.processed,
			Queued:    s.frontier.Len(),
		})
	}
}

// pace sleeps for the configured delay plus jitter. Cancellation cuts the
// sleep short.
func (c *Crawler) pace(ctx context.Context, run *Run, opts seocrawl.Options) {
	d := opts.Delay
	if opts.Jitter > 0 {
		d += c.jitter(opts.Jitter)
	}
	sleep(ctx, run, d)
}

func (c *Crawler) jitter(max time.Duration) time.Duration {
	if c.Jitter != nil {
		return c.Jitter(max)
	}
	return time.Duration(rand.Int64N(int64(max) + 1))
}

func (c *Crawler) logf(format string, args ...any) {
	if c.Logf != nil {
		c.Logf(format, args...)
	}
}

func sleep(ctx context.Context, run *Run, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-run.cancelCh:
	case <-ctx.Done():
	}
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// networkInfo is the response metadata of a top-level navigation.
type networkInfo struct {
	status        int
	contentLength *int64
}

// responseCache maps normalized URLs to their last navigation response.
// It is written from renderer callbacks and read by the run loop.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]networkInfo
}

func newResponseCache() *responseCache {
	return &responseCache{entries: make(map[string]networkInfo)}
}

func (c *responseCache) record(resp seocrawl.Response) {
	key, err := seocrawl.NormalizeURL(resp.URL)
	if err != nil {
		return
	}
	info := networkInfo{status: resp.StatusCode}
	for name, value := range resp.Headers {
		if !strings.EqualFold(name, "Content-Length") {
			continue
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil && n >= 0 {
			info.contentLength = &n
		}
		break
	}
	c.mu.Lock()
	c.entries[key] = info
	c.mu.Unlock()
}

func (c *responseCache) forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// lookup returns the first cached response among keys.
func (c *responseCache) lookup(keys ...string) (networkInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, key := range keys {
		if info, ok := c.entries[key]; ok {
			return info, true
		}
	}
	return networkInfo{}, false
}
