package mode

import "sync"

// RequestKind distinguishes mode change requests.
type RequestKind int

const (
	// RequestTo switches to a mode, cancelling whatever runs.
	RequestTo RequestKind = iota + 1
	// RequestBackout unwinds one step.
	RequestBackout
	// RequestCancel unwinds all the way to Inspect.
	RequestCancel
)

func (k RequestKind) String() string {
	switch k {
	case RequestTo:
		return "to"
	case RequestBackout:
		return "backout"
	case RequestCancel:
		return "cancel"
	}
	return "unknown"
}

// Request asks the Selector for a transition.
type Request struct {
	Kind RequestKind
	Mode Mode
}

// To requests a switch to m.
func To(m Mode) Request { return Request{Kind: RequestTo, Mode: m} }

// Backout requests one step of unwinding.
func Backout() Request { return Request{Kind: RequestBackout} }

// Cancel requests a return to Inspect.
func Cancel() Request { return Request{Kind: RequestCancel} }

// requestQueue is a FIFO of pending requests.
//
// Enqueue is safe from any goroutine so that UI callbacks can post requests;
// the engine drains it from the tick.
type requestQueue struct {
	mu       sync.Mutex
	requests []Request
	closed   bool
}

func newRequestQueue() *requestQueue {
	return &requestQueue{requests: make([]Request, 0, 8)}
}

// Enqueue appends r. It returns false once the queue is closed.
func (q *requestQueue) Enqueue(r Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.requests = append(q.requests, r)
	return true
}

// Drain removes and returns everything queued so far. Requests posted while
// the caller processes the batch wait for the next tick.
func (q *requestQueue) Drain() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.requests) == 0 {
		return nil
	}
	out := q.requests
	q.requests = make([]Request, 0, cap(out))
	return out
}

func (q *requestQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.requests)
}

// Close rejects further requests. Queued ones can still be drained.
func (q *requestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
