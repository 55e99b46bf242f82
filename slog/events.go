package slog

import (
	"log/slog"

	"github.com/fwojciec/seocrawl"
)

// LogEvents returns an EventFunc that logs each crawl event and then
// forwards it to next. next may be nil.
func LogEvents(logger *slog.Logger, next seocrawl.EventFunc) seocrawl.EventFunc {
	return func(e seocrawl.Event) {
		attrs := []any{
			"run", e.RunID,
			"processed", e.Processed,
			"queued", e.Queued,
		}
		switch e.Type {
		case seocrawl.EventStarted:
			attrs = append(attrs, "url", e.StartURL)
			logger.Info("crawl started", attrs...)
		case seocrawl.EventPageLoading:
			attrs = append(attrs, "url", e.URL)
			logger.Debug("page loading", attrs...)
		case seocrawl.EventPageDiscovered:
			attrs = append(attrs, "url", e.Page.URL, "depth", e.Page.Depth)
			logger.Debug("page discovered", attrs...)
		case seocrawl.EventPageDone:
			attrs = append(attrs, "url", e.Page.URL, "ok", e.OK)
			if e.Page.StatusCode != nil {
				attrs = append(attrs, "status", *e.Page.StatusCode)
			}
			if e.Page.Error != "" {
				attrs = append(attrs, "err", e.Page.Error)
			}
			logger.Info("page done", attrs...)
		case seocrawl.EventCancelled:
			logger.Info("crawl cancelled", attrs...)
		case seocrawl.EventFinished:
			logger.Info("crawl finished", attrs...)
		case seocrawl.EventError:
			attrs = append(attrs, "err", e.Err)
			logger.Error("crawl failed", attrs...)
		}
		if next != nil {
			next(e)
		}
	}
}
