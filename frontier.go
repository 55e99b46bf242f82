package seocrawl

// URLFrontier manages a breadth-first crawl queue with deduplication.
// All keys are normalized URLs.
type URLFrontier interface {
	// Push queues entry under key. Returns false if key was queued before.
	Push(key string, entry QueueEntry) bool

	// Pop returns the oldest queued entry.
	// Returns false if the frontier is empty.
	Pop() (QueueEntry, bool)

	// Len returns the number of entries waiting in the queue.
	Len() int

	// Enqueued returns true if key was ever queued.
	Enqueued(key string) bool

	// EnqueuedCount returns the number of distinct keys ever queued.
	EnqueuedCount() int

	// MarkVisited records that a load of key was attempted.
	MarkVisited(key string)

	// Visited returns true if a load of key was attempted.
	Visited(key string) bool
}
