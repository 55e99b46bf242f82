// Package rod implements seocrawl.Renderer with Chrome browser automation.
package rod

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fwojciec/seocrawl"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Renderer implements seocrawl.Renderer at compile time.
var _ seocrawl.Renderer = (*Renderer)(nil)

// probeTimeout bounds the liveness check run after a failed navigation.
const probeTimeout = 3 * time.Second

// Renderer drives a single browser page. Navigations are sequential;
// script evaluation and overrides may be issued concurrently.
type Renderer struct {
	page   *rod.Page
	cancel context.CancelFunc

	mu        sync.Mutex
	listeners map[int]func(seocrawl.Response)
	nextID    int
	attached  bool
	defaultUA string
}

// NewRenderer wraps page. It enables network events on the page and
// starts dispatching top-level document responses to listeners.
// Close must be called when the Renderer is no longer needed.
func NewRenderer(page *rod.Page) (*Renderer, error) {
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return nil, fmt.Errorf("enabling network events: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Renderer{
		page:      page,
		cancel:    cancel,
		listeners: make(map[int]func(seocrawl.Response)),
	}

	wait := page.Context(ctx).EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type != proto.NetworkResourceTypeDocument || e.Response == nil {
			return
		}
		r.dispatch(toResponse(e.Response))
	})
	go wait()

	return r, nil
}

// Navigate loads url and waits for the load event.
func (r *Renderer) Navigate(ctx context.Context, url string) error {
	p := r.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return r.classify(url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return r.classify(url, err)
	}
	return nil
}

// classify maps a navigation failure to EUNAVAILABLE when the browser no
// longer answers, and to EFETCH otherwise.
func (r *Renderer) classify(url string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	p := r.page.Timeout(probeTimeout)
	defer p.CancelTimeout()
	if _, probeErr := (proto.BrowserGetVersion{}).Call(p); probeErr != nil {
		return seocrawl.Errorf(seocrawl.EUNAVAILABLE, "renderer unavailable: %v", err)
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return seocrawl.Errorf(seocrawl.EFETCH, "navigate %s: %s", url, navErr.Reason)
	}
	return seocrawl.Errorf(seocrawl.EFETCH, "navigate %s: %v", url, err)
}

// StopLoading aborts the in-flight navigation.
func (r *Renderer) StopLoading() error {
	return r.page.StopLoading()
}

// RunScript evaluates js. An expression is wrapped in a function; a
// returned promise is awaited.
func (r *Renderer) RunScript(ctx context.Context, js string) (string, error) {
	obj, err := r.page.Context(ctx).Eval(js)
	if err != nil {
		return "", err
	}
	return obj.Value.String(), nil
}

// CurrentURL returns the URL of the loaded document.
func (r *Renderer) CurrentURL(ctx context.Context) (string, error) {
	info, err := r.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

// AddPreDocumentScript installs src to run before page scripts on every
// new document.
func (r *Renderer) AddPreDocumentScript(ctx context.Context, src string) (string, error) {
	res, err := proto.PageAddScriptToEvaluateOnNewDocument{Source: src}.Call(r.page.Context(ctx))
	if err != nil {
		return "", err
	}
	return string(res.Identifier), nil
}

// RemovePreDocumentScript uninstalls a script added by AddPreDocumentScript.
func (r *Renderer) RemovePreDocumentScript(ctx context.Context, id string) error {
	return proto.PageRemoveScriptToEvaluateOnNewDocument{
		Identifier: proto.PageScriptIdentifier(id),
	}.Call(r.page.Context(ctx))
}

// SetNetworkIdentity overrides the user agent, Accept-Language, and
// platform. An empty user agent keeps the browser's own.
func (r *Renderer) SetNetworkIdentity(ctx context.Context, identity seocrawl.NetworkIdentity) error {
	p := r.page.Context(ctx)
	ua := identity.UserAgent
	if ua == "" {
		def, err := r.defaultUserAgent(p)
		if err != nil {
			return err
		}
		ua = def
	}
	return proto.NetworkSetUserAgentOverride{
		UserAgent:      ua,
		AcceptLanguage: identity.AcceptLanguage,
		Platform:       identity.Platform,
	}.Call(p)
}

// OnResponseCompleted registers fn for top-level document responses.
func (r *Renderer) OnResponseCompleted(fn func(seocrawl.Response)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Attach records the browser's default identity so Detach can restore it.
func (r *Renderer) Attach(ctx context.Context) error {
	r.mu.Lock()
	attached := r.attached
	r.mu.Unlock()
	if attached {
		return nil
	}

	if _, err := r.defaultUserAgent(r.page.Context(ctx)); err != nil {
		return err
	}
	r.mu.Lock()
	r.attached = true
	r.mu.Unlock()
	return nil
}

// Detach restores the browser's default identity.
func (r *Renderer) Detach(ctx context.Context) error {
	r.mu.Lock()
	attached := r.attached
	ua := r.defaultUA
	r.attached = false
	r.mu.Unlock()
	if !attached {
		return nil
	}
	return proto.NetworkSetUserAgentOverride{UserAgent: ua}.Call(r.page.Context(ctx))
}

// Close stops event dispatch and closes the page.
func (r *Renderer) Close() error {
	r.cancel()
	return r.page.Close()
}

func (r *Renderer) defaultUserAgent(p *rod.Page) (string, error) {
	r.mu.Lock()
	ua := r.defaultUA
	r.mu.Unlock()
	if ua != "" {
		return ua, nil
	}

	version, err := (proto.BrowserGetVersion{}).Call(p)
	if err != nil {
		return "", fmt.Errorf("reading browser version: %w", err)
	}
	r.mu.Lock()
	r.defaultUA = version.UserAgent
	r.mu.Unlock()
	return version.UserAgent, nil
}

func (r *Renderer) dispatch(resp seocrawl.Response) {
	r.mu.Lock()
	fns := make([]func(seocrawl.Response), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.Unlock()

	for _, fn := range fns {
		fn(resp)
	}
}

func toResponse(resp *proto.NetworkResponse) seocrawl.Response {
	headers := make(map[string]string, len(resp.Headers))
	for name, value := range resp.Headers {
		headers[name] = value.String()
	}
	return seocrawl.Response{
		URL:        resp.URL,
		StatusCode: resp.Status,
		Headers:    headers,
	}
}
