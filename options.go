package seocrawl

import "time"

// Option limits.
const (
	DefaultMaxDepth        = 2
	DefaultMaxPages        = 200
	DefaultPageLoadTimeout = 10 * time.Second
	MinPageLoadTimeout     = 1 * time.Second
	MaxPageLoadTimeout     = 300 * time.Second
	MaxAnalyzeWait         = 60 * time.Second
)

// Options configures a crawl run.
type Options struct {
	// MaxDepth is the link-expansion cutoff. Pages at MaxDepth are visited
	// but their links are not followed.
	MaxDepth int `json:"maxDepth" yaml:"maxDepth"`

	// MaxPages is the hard budget on pages visited in a run.
	MaxPages int `json:"maxPages" yaml:"maxPages"`

	// Delay and Jitter pace page loads: each load is followed by a sleep
	// of Delay plus a random duration in [0, Jitter].
	Delay  time.Duration `json:"delay" yaml:"delay"`
	Jitter time.Duration `json:"jitter" yaml:"jitter"`

	// PageLoadTimeout is the per-page load deadline.
	PageLoadTimeout time.Duration `json:"pageLoadTimeout" yaml:"pageLoadTimeout"`

	// AnalyzeWait is an extra settle wait before extraction.
	AnalyzeWait time.Duration `json:"analyzeWait" yaml:"analyzeWait"`

	// DeduplicateLinks asks the extractor to drop repeated link URLs.
	// The scheduler never visits a page twice regardless of this flag.
	DeduplicateLinks bool `json:"deduplicateLinks" yaml:"deduplicateLinks"`

	// RestrictToCurrentFolder limits traversal to the seed's folder.
	RestrictToCurrentFolder bool `json:"restrictToCurrentFolder" yaml:"restrictToCurrentFolder"`

	Stealth StealthSpec `json:"stealth" yaml:"stealth"`
}

// DefaultOptions returns the options used when none are specified.
func DefaultOptions() Options {
	return Options{
		MaxDepth:                DefaultMaxDepth,
		MaxPages:                DefaultMaxPages,
		PageLoadTimeout:         DefaultPageLoadTimeout,
		DeduplicateLinks:        true,
		RestrictToCurrentFolder: true,
	}
}

// Validate returns an error if any option is out of range.
func (o Options) Validate() error {
	switch {
	case o.MaxDepth < 0:
		return Errorf(EINVALID, "max depth must be >= 0, got %d", o.MaxDepth)
	case o.MaxPages < 1:
		return Errorf(EINVALID, "max pages must be >= 1, got %d", o.MaxPages)
	case o.Delay < 0:
		return Errorf(EINVALID, "delay must be >= 0, got %s", o.Delay)
	case o.Jitter < 0:
		return Errorf(EINVALID, "jitter must be >= 0, got %s", o.Jitter)
	case o.PageLoadTimeout < MinPageLoadTimeout || o.PageLoadTimeout > MaxPageLoadTimeout:
		return Errorf(EINVALID, "page load timeout must be between %s and %s, got %s",
			MinPageLoadTimeout, MaxPageLoadTimeout, o.PageLoadTimeout)
	case o.AnalyzeWait < 0 || o.AnalyzeWait > MaxAnalyzeWait:
		return Errorf(EINVALID, "analyze wait must be between 0 and %s, got %s", MaxAnalyzeWait, o.AnalyzeWait)
	}
	return nil
}

// StealthSpec describes the network identity and automation-signal
// overrides applied to the renderer for the duration of a run.
type StealthSpec struct {
	UserAgent                string `json:"userAgent,omitempty" yaml:"userAgent"`
	AcceptLanguage           string `json:"acceptLanguage,omitempty" yaml:"acceptLanguage"`
	Platform                 string `json:"platform,omitempty" yaml:"platform"`
	SuppressAutomationSignal bool   `json:"suppressAutomationSignal" yaml:"suppressAutomationSignal"`
}

// Enabled reports whether any override is requested.
func (s StealthSpec) Enabled() bool {
	return s.UserAgent != "" || s.AcceptLanguage != "" || s.Platform != "" || s.SuppressAutomationSignal
}

// Identity returns the network-level part of the spec.
func (s StealthSpec) Identity() NetworkIdentity {
	return NetworkIdentity{
		UserAgent:      s.UserAgent,
		AcceptLanguage: s.AcceptLanguage,
		Platform:       s.Platform,
	}
}
