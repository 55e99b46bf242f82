package seocrawl

import "time"

// EventType identifies a crawl lifecycle or progress event.
type EventType string

// Crawl event types.
const (
	EventStarted        EventType = "started"
	EventPageLoading    EventType = "page:loading"
	EventPageDiscovered EventType = "page:discovered"
	EventPageDone       EventType = "page:done"
	EventCancelled      EventType = "cancelled"
	EventFinished       EventType = "finished"

	// EventError ends a run whose renderer became unavailable.
	EventError EventType = "error"
)

// Event reports crawl progress to listeners. Fields not relevant to Type
// are left at their zero value.
type Event struct {
	Type  EventType `json:"type"`
	RunID string    `json:"runId"`

	// Set on EventStarted.
	StartedAt time.Time `json:"startedAt,omitzero"`
	StartURL  string    `json:"startUrl,omitempty"`
	Options   *Options  `json:"options,omitempty"`

	// Set on EventPageLoading.
	URL string `json:"url,omitempty"`

	// Set on EventPageDiscovered and EventPageDone.
	Page *PageRecord `json:"page,omitempty"`
	OK   bool        `json:"ok,omitempty"`

	// Set on terminal events.
	FinishedAt time.Time `json:"finishedAt,omitzero"`
	Err        string    `json:"error,omitempty"`

	Processed int `json:"processed"`
	Queued    int `json:"queued"`
}

// EventFunc is a callback receiving crawl events. Events of one run are
// delivered sequentially from the run's goroutine.
type EventFunc func(Event)
