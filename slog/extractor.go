package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/seocrawl"
)

// Ensure LoggingExtractor implements seocrawl.Extractor.
var _ seocrawl.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging.
type LoggingExtractor struct {
	next   seocrawl.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next seocrawl.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the operation.
func (e *LoggingExtractor) Extract(ctx context.Context, r seocrawl.Renderer, opts seocrawl.ExtractOptions) (ext *seocrawl.Extraction, err error) {
	defer func(begin time.Time) {
		var title string
		var links, bytes int
		if ext != nil {
			title, links, bytes = ext.Title, len(ext.Links), ext.HTMLBytes
		}
		e.logger.Debug("extract",
			"title", title,
			"links", links,
			"bytes", bytes,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Extract(ctx, r, opts)
}
