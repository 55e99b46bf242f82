package mock

import (
	"context"

	"github.com/fwojciec/seocrawl"
)

var _ seocrawl.Extractor = (*Extractor)(nil)

// Extractor is a mock implementation of seocrawl.Extractor.
type Extractor struct {
	ExtractFn func(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error)
}

func (e *Extractor) Extract(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (*seocrawl.Extraction, error) {
	return e.ExtractFn(ctx, r, opts)
}

var _ seocrawl.HostResolver = (*HostResolver)(nil)

// HostResolver is a mock implementation of seocrawl.HostResolver.
type HostResolver struct {
	LookupHostFn func(ctx context.Context, host string) ([]string, error)
}

func (h *HostResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return h.LookupHostFn(ctx, host)
}
