package crawl_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/fwojciec/seocrawl"
	"github.com/fwojciec/seocrawl/mock"
)

// sitePage is a scripted page served by site.
type sitePage struct {
	links  []string
	title  string
	text   string
	status int
	// hang blocks navigation until its context is cancelled.
	hang bool
	// redirect is reported as the document URL after navigation.
	redirect string
	err      error
}

// site backs a mock renderer and extractor with a fixed set of pages.
// Unknown URLs load as 404 pages without links.
type site struct {
	pages map[string]sitePage

	mu          sync.Mutex
	current     string
	navigations []string
	calls       []string
	listener    func(seocrawl.Response)
	stops       int
	// abort is closed by StopLoading to end a hanging navigation.
	abort chan struct{}
	// onNavigate runs before each navigation completes.
	onNavigate func(url string)
}

func newSite(pages map[string]sitePage) *site {
	return &site{pages: pages}
}

func (s *site) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *site) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

func (s *site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.navigations)
}

func (s *site) Stops() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

func (s *site) page(url string) (sitePage, bool) {
	p, ok := s.pages[url]
	return p, ok
}

func (s *site) Renderer() *mock.Renderer {
	return &mock.Renderer{
		NavigateFn: func(ctx context.Context, url string) error {
			p, ok := s.page(url)

			s.mu.Lock()
			s.navigations = append(s.navigations, url)
			hook := s.onNavigate
			var abort chan struct{}
			if ok && p.hang {
				s.current = url
				abort = make(chan struct{})
				s.abort = abort
			}
			s.mu.Unlock()
			if hook != nil {
				hook(url)
			}

			if abort != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-abort:
					return errors.New("net::ERR_ABORTED")
				}
			}
			if ok && p.err != nil {
				return p.err
			}

			final := url
			status := 404
			if ok {
				status = 200
				if p.status != 0 {
					status = p.status
				}
				if p.redirect != "" {
					final = p.redirect
				}
			}

			s.mu.Lock()
			s.current = final
			listener := s.listener
			s.mu.Unlock()
			if listener != nil {
				listener(seocrawl.Response{
					URL:        final,
					StatusCode: status,
					Headers:    map[string]string{"content-length": "1234"},
				})
			}
			return nil
		},
		StopLoadingFn: func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.stops++
			if s.abort != nil {
				close(s.abort)
				s.abort = nil
			}
			return nil
		},
		RunScriptFn: func(ctx context.Context, js string) (string, error) {
			return "", nil
		},
		CurrentURLFn: func(ctx context.Context) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.current, nil
		},
		AddPreDocumentScriptFn: func(ctx context.Context, src string) (string, error) {
			s.record("add-script")
			return "script-1", nil
		},
		RemovePreDocumentScriptFn: func(ctx context.Context, id string) error {
			s.record("remove-script:" + id)
			return nil
		},
		SetNetworkIdentityFn: func(ctx context.Context, identity seocrawl.NetworkIdentity) error {
			s.record("identity:" + identity.UserAgent)
			return nil
		},
		OnResponseCompletedFn: func(fn func(seocrawl.Response)) func() {
			s.mu.Lock()
			s.listener = fn
			s.mu.Unlock()
			return func() {
				s.mu.Lock()
				s.listener = nil
				s.mu.Unlock()
			}
		},
		AttachFn: func(ctx context.Context) error {
			s.record("attach")
			return nil
		},
		DetachFn: func(ctx context.Context) error {
			s.record("detach")
			return nil
		},
	}
}

func (s *site) Extractor() *mock.Extractor {
	return &mock.Extractor{
		ExtractFn: func(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error) {
			current, err := r.CurrentURL(ctx)
			if err != nil {
				return nil, err
			}
			ext := seocrawl.EmptyExtraction()
			p, ok := s.page(current)
			if !ok {
				return ext, nil
			}
			if p.title == "explode" {
				return nil, errors.New("extraction failed")
			}
			ext.Title = p.title
			ext.Text = p.text
			for _, l := range p.links {
				ext.Links = append(ext.Links, seocrawl.Link{URL: l, Internal: strings.Contains(l, "example.com")})
			}
			return ext, nil
		},
	}
}

// events collects crawl events from a run goroutine.
type events struct {
	mu   sync.Mutex
	list []seocrawl.Event
}

func (e *events) Emit(ev seocrawl.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.list = append(e.list, ev)
}

func (e *events) All() []seocrawl.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.list)
}

func (e *events) Types() []seocrawl.EventType {
	var types []seocrawl.EventType
	for _, ev := range e.All() {
		types = append(types, ev.Type)
	}
	return types
}

// Done returns the page:done records in emission order.
func (e *events) Done() []*seocrawl.PageRecord {
	var pages []*seocrawl.PageRecord
	for _, ev := range e.All() {
		if ev.Type == seocrawl.EventPageDone {
			pages = append(pages, ev.Page)
		}
	}
	return pages
}

func (e *events) Last() seocrawl.Event {
	all := e.All()
	if len(all) == 0 {
		return seocrawl.Event{}
	}
	return all[len(all)-1]
}

func doneURLs(pages []*seocrawl.PageRecord) []string {
	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.NormalizedURL)
	}
	return urls
}
