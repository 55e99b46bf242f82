package crawl

import (
	"github.com/bits-and-blooms/bloom/v3"
	"github.com/fwojciec/seocrawl"
)

// Compile-time interface verification.
var _ seocrawl.URLFrontier = (*Frontier)(nil)

// Frontier is an in-memory FIFO URL frontier for breadth-first traversal.
// Membership is exact; a Bloom filter sits in front of the enqueued set so
// that the common "never seen" lookup does not touch the map.
//
// Frontier is not safe for concurrent use. A crawl run owns its frontier.
type Frontier struct {
	filter   *bloom.BloomFilter
	enqueued map[string]struct{}
	visited  map[string]struct{}
	queue    []seocrawl.QueueEntry
	head     int
}

// NewFrontier creates a new Frontier sized for n expected URLs
// with the given false positive rate for the Bloom pre-filter.
func NewFrontier(n uint, fpRate float64) *Frontier {
	if n == 0 {
		n = 1
	}
	return &Frontier{
		filter:   bloom.NewWithEstimates(n, fpRate),
		enqueued: make(map[string]struct{}),
		visited:  make(map[string]struct{}),
	}
}

// Push queues entry under key.
// Returns false if key was queued before.
func (f *Frontier) Push(key string, entry seocrawl.QueueEntry) bool {
	if f.Enqueued(key) {
		return false
	}
	f.filter.AddString(key)
	f.enqueued[key] = struct{}{}
	f.queue = append(f.queue, entry)
	return true
}

// Pop returns the oldest queued entry.
// The bool result is false if the frontier is empty.
func (f *Frontier) Pop() (seocrawl.QueueEntry, bool) {
	if f.head >= len(f.queue) {
		return seocrawl.QueueEntry{}, false
	}
	entry := f.queue[f.head]
	f.queue[f.head] = seocrawl.QueueEntry{}
	f.head++

	// Reclaim the consumed prefix once it dominates the slice.
	if f.head > 64 && f.head*2 > len(f.queue) {
		f.queue = append([]seocrawl.QueueEntry(nil), f.queue[f.head:]...)
		f.head = 0
	}
	return entry, true
}

// Len returns the number of entries waiting in the queue.
func (f *Frontier) Len() int {
	return len(f.queue) - f.head
}

// Enqueued returns true if key was ever queued.
func (f *Frontier) Enqueued(key string) bool {
	if !f.filter.TestString(key) {
		return false
	}
	_, ok := f.enqueued[key]
	return ok
}

// EnqueuedCount returns the number of distinct keys ever queued.
func (f *Frontier) EnqueuedCount() int {
	return len(f.enqueued)
}

// MarkVisited records that a load of key was attempted.
func (f *Frontier) MarkVisited(key string) {
	f.visited[key] = struct{}{}
}

// Visited returns true if a load of key was attempted.
func (f *Frontier) Visited(key string) bool {
	_, ok := f.visited[key]
	return ok
}
