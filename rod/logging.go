package rod

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/seocrawl"
)

// Ensure LoggingRenderer implements seocrawl.Renderer.
var _ seocrawl.Renderer = (*LoggingRenderer)(nil)

// LoggingRenderer wraps a Renderer with logging of navigations and
// override changes. Script evaluation is not logged.
type LoggingRenderer struct {
	seocrawl.Renderer
	logger *slog.Logger
}

// NewLoggingRenderer creates a new LoggingRenderer.
func NewLoggingRenderer(next seocrawl.Renderer, logger *slog.Logger) *LoggingRenderer {
	return &LoggingRenderer{Renderer: next, logger: logger}
}

// Navigate logs the URL being loaded and delegates to the wrapped renderer.
func (r *LoggingRenderer) Navigate(ctx context.Context, url string) (err error) {
	defer func(begin time.Time) {
		r.logger.Info("navigate",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.Renderer.Navigate(ctx, url)
}

// StopLoading logs the abort and delegates to the wrapped renderer.
func (r *LoggingRenderer) StopLoading() (err error) {
	defer func() {
		r.logger.Debug("stop loading", "err", err)
	}()
	return r.Renderer.StopLoading()
}

// SetNetworkIdentity logs the identity and delegates to the wrapped renderer.
func (r *LoggingRenderer) SetNetworkIdentity(ctx context.Context, identity seocrawl.NetworkIdentity) (err error) {
	defer func() {
		r.logger.Debug("network identity",
			"userAgent", identity.UserAgent,
			"acceptLanguage", identity.AcceptLanguage,
			"platform", identity.Platform,
			"err", err,
		)
	}()
	return r.Renderer.SetNetworkIdentity(ctx, identity)
}
