package mock

import (
	"context"

	"github.com/fwojciec/seocrawl"
)

var _ seocrawl.Renderer = (*Renderer)(nil)

// Renderer is a mock implementation of seocrawl.Renderer.
type Renderer struct {
	NavigateFn                func(ctx context.Context, url string) error
	StopLoadingFn             func() error
	RunScriptFn               func(ctx context.Context, js string) (string, error)
	CurrentURLFn              func(ctx context.Context) (string, error)
	AddPreDocumentScriptFn    func(ctx context.Context, src string) (string, error)
	RemovePreDocumentScriptFn func(ctx context.Context, id string) error
	SetNetworkIdentityFn      func(ctx context.Context, identity seocrawl.NetworkIdentity) error
	OnResponseCompletedFn     func(fn func(seocrawl.Response)) func()
	AttachFn                  func(ctx context.Context) error
	DetachFn                  func(ctx context.Context) error
}

func (r *Renderer) Navigate(ctx context.Context, url string) error {
	return r.NavigateFn(ctx, url)
}

func (r *Renderer) StopLoading() error {
	return r.StopLoadingFn()
}

func (r *Renderer) RunScript(ctx context.Context, js string) (string, error) {
	return r.RunScriptFn(ctx, js)
}

func (r *Renderer) CurrentURL(ctx context.Context) (string, error) {
	return r.CurrentURLFn(ctx)
}

func (r *Renderer) AddPreDocumentScript(ctx context.Context, src string) (string, error) {
	return r.AddPreDocumentScriptFn(ctx, src)
}

func (r *Renderer) RemovePreDocumentScript(ctx context.Context, id string) error {
	return r.RemovePreDocumentScriptFn(ctx, id)
}

func (r *Renderer) SetNetworkIdentity(ctx context.Context, identity seocrawl.NetworkIdentity) error {
	return r.SetNetworkIdentityFn(ctx, identity)
}

func (r *Renderer) OnResponseCompleted(fn func(seocrawl.Response)) func() {
	return r.OnResponseCompletedFn(fn)
}

func (r *Renderer) Attach(ctx context.Context) error {
	return r.AttachFn(ctx)
}

func (r *Renderer) Detach(ctx context.Context) error {
	return r.DetachFn(ctx)
}
