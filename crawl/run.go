package crawl

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunState is the state of a crawl run.
type RunState string

// Run states. A run moves from RunIdle to RunRunning and ends in one of
// the three terminal states.
const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunFinished  RunState = "finished"
	RunCancelled RunState = "cancelled"
	RunError     RunState = "error"
)

// Run is the handle of one crawl run. Cancellation is cooperative: the
// run loop observes it once per iteration and while pacing.
type Run struct {
	ID string

	mu        sync.Mutex
	state     RunState
	startedAt time.Time
	err       error

	cancelOnce sync.Once
	cancelCh   chan struct{}
	done       chan struct{}
}

// NewRun returns an idle run with a fresh id.
func NewRun() *Run {
	return &Run{
		ID:       uuid.NewString(),
		state:    RunIdle,
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Cancel requests cancellation. It is safe to call more than once.
func (r *Run) Cancel() {
	r.cancelOnce.Do(func() { close(r.cancelCh) })
}

// Cancelled reports whether cancellation was requested.
func (r *Run) Cancelled() bool {
	select {
	case <-r.cancelCh:
		return true
	default:
		return false
	}
}

// State returns the current state of the run.
func (r *Run) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// StartedAt returns the time the run entered RunRunning.
func (r *Run) StartedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startedAt
}

// Done is closed when the run reaches a terminal state.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run ends and returns the error that ended it, if any.
func (r *Run) Wait() error {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Run) start() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = RunRunning
	r.startedAt = time.Now()
	return r.startedAt
}

func (r *Run) finish(state RunState, err error) {
	r.mu.Lock()
	if r.state == RunFinished || r.state == RunCancelled || r.state == RunError {
		r.mu.Unlock()
		return
	}
	r.state = state
	r.err = err
	r.mu.Unlock()
	close(r.done)
}
