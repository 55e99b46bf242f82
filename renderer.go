package seocrawl

import "context"

// NetworkIdentity is the request identity presented by the renderer.
// Empty fields keep the renderer's default.
type NetworkIdentity struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
}

// Response describes a completed top-level navigation response.
type Response struct {
	URL        string
	StatusCode int
	Headers    map[string]string
}

// Renderer is a controllable browser-engine instance exposing a single
// navigable surface.
type Renderer interface {
	// Navigate loads url and blocks until the load completes, fails, or
	// ctx is done.
	Navigate(ctx context.Context, url string) error

	// StopLoading aborts an in-flight navigation.
	StopLoading() error

	// RunScript evaluates js against the loaded document and returns the
	// result as a string. Promises are awaited.
	RunScript(ctx context.Context, js string) (string, error)

	// CurrentURL returns the URL of the loaded document after redirects.
	CurrentURL(ctx context.Context) (string, error)

	// AddPreDocumentScript installs src to run before the page's own
	// scripts on every subsequent navigation. It returns a handle for
	// RemovePreDocumentScript.
	AddPreDocumentScript(ctx context.Context, src string) (string, error)
	RemovePreDocumentScript(ctx context.Context, id string) error

	// SetNetworkIdentity overrides the user agent, Accept-Language and
	// platform at the network layer.
	SetNetworkIdentity(ctx context.Context, identity NetworkIdentity) error

	// OnResponseCompleted registers fn for top-level navigation responses.
	// The returned function unregisters it.
	OnResponseCompleted(fn func(Response)) (unsubscribe func())

	// Attach opens the low-level control channel used for overrides.
	// Detach closes it and restores the renderer's default identity.
	Attach(ctx context.Context) error
	Detach(ctx context.Context) error
}

// ExtractOptions configures a single extraction.
type ExtractOptions struct {
	// DeduplicateLinks drops repeated link URLs from the result.
	DeduplicateLinks bool
}

// Extractor harvests SEO fields from the document currently loaded in a
// Renderer.
type Extractor interface {
	Extract(ctx context.Context, r Renderer, opts ExtractOptions) (*Extraction, error)
}

// HostResolver resolves hostnames to addresses. *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}
