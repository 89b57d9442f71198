package engine

import (
	"sync"

	"github.com/roach88/pickflow/internal/ir"
)

// pending is a lifecycle event recorded during a tick. It becomes an
// ir.Event once the tick ends and its position is known.
type pending struct {
	Session string
	Kind    ir.EventKind
	Payload ir.Object
}

// eventQueue is a FIFO of events recorded during the current tick.
//
// Observers fire on the tick goroutine, but sinks and tests may read Len
// from elsewhere, so access is locked.
type eventQueue struct {
	mu     sync.Mutex
	events []pending
}

func newEventQueue() *eventQueue {
	return &eventQueue{events: make([]pending, 0, 16)}
}

// Enqueue appends e.
func (q *eventQueue) Enqueue(e pending) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, e)
}

// Drain removes and returns every queued event in order.
func (q *eventQueue) Drain() []pending {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = make([]pending, 0, cap(out))
	return out
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
