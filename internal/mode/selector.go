package mode

import (
	"errors"
	"fmt"

	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// ErrUnknownKind is returned for a request naming a kind with no factory.
var ErrUnknownKind = errors.New("no workflow registered for mode")

// Transition records one change of the current mode.
type Transition struct {
	Seq    int64
	From   Mode
	To     Mode
	Reason string
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithInspectBackout sets what a backout does while idle. The editor clears
// its selection.
func WithInspectBackout(fn func()) SelectorOption {
	return func(s *Selector) { s.inspectBackout = fn }
}

// WithTransitionListener registers fn to be told about every mode change.
func WithTransitionListener(fn func(Transition)) SelectorOption {
	return func(s *Selector) { s.listeners = append(s.listeners, fn) }
}

// Selector holds the current mode and its session.
//
// Request may be called from any goroutine. Apply, Poll and the accessors
// belong to the tick.
type Selector struct {
	registry       *Registry
	queue          *requestQueue
	current        Mode
	active         workflow.Instance
	inspectBackout func()
	listeners      []func(Transition)
}

// NewSelector creates a selector in Inspect.
func NewSelector(registry *Registry, opts ...SelectorOption) *Selector {
	s := &Selector{registry: registry, queue: newRequestQueue()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request queues r for the next Apply. It returns false after Close.
func (s *Selector) Request(r Request) bool {
	return s.queue.Enqueue(r)
}

// Queued returns the number of requests waiting for Apply.
func (s *Selector) Queued() int {
	return s.queue.Len()
}

// Close stops accepting requests.
func (s *Selector) Close() {
	s.queue.Close()
}

// Current returns the current mode.
func (s *Selector) Current() Mode {
	return s.current
}

// Active returns the running session, or nil in Inspect.
func (s *Selector) Active() workflow.Instance {
	return s.active
}

// Apply processes every queued request in order. It returns the first error
// a request produced; later requests are still applied.
func (s *Selector) Apply(ctx *service.Context) error {
	var first error
	for _, r := range s.queue.Drain() {
		if err := s.apply(ctx, r); err != nil {
			ctx.Log().Error("mode request failed", "request", r.Kind.String(), "mode", r.Mode.String(), "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

func (s *Selector) apply(ctx *service.Context, r Request) error {
	switch r.Kind {
	case RequestTo:
		return s.switchTo(ctx, r.Mode)
	case RequestBackout:
		s.backout(ctx)
		return nil
	case RequestCancel:
		for s.active != nil {
			s.backout(ctx)
		}
		return nil
	}
	return fmt.Errorf("unknown request kind %d", int(r.Kind))
}

func (s *Selector) switchTo(ctx *service.Context, m Mode) error {
	if s.active != nil {
		s.active.Cancel(ctx)
		s.settle(ctx, "replaced")
	}
	if m.Kind == Inspect {
		return nil
	}

	f, ok := s.registry.Lookup(m.Kind)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKind, m.Kind)
	}
	inst, err := f(ctx, m)
	if err != nil {
		return fmt.Errorf("start %s: %w", m.Kind, err)
	}

	from := s.current
	s.current = m
	s.active = inst
	s.notify(ctx, from, "started")

	// Extraction or setup may already have ended the session.
	if inst.Done() {
		s.settle(ctx, inst.Exit().Reason.String())
	}
	return nil
}

func (s *Selector) backout(ctx *service.Context) {
	if s.active == nil {
		if s.inspectBackout != nil {
			s.inspectBackout()
		}
		return
	}
	if !s.active.Backout(ctx) {
		s.settle(ctx, "backout")
	}
}

// Poll advances the running session and returns to Inspect once it ends.
func (s *Selector) Poll(ctx *service.Context) {
	if s.active == nil {
		return
	}
	s.active.Poll(ctx)
	if s.active.Done() {
		s.settle(ctx, s.active.Exit().Reason.String())
	}
}

// settle drops a finished session and returns to Inspect.
func (s *Selector) settle(ctx *service.Context, reason string) {
	if s.active != nil && !s.active.Done() {
		ctx.Log().Error("dropping a session that is still running", "session", s.active.ID())
	}
	from := s.current
	s.active = nil
	s.current = Mode{Kind: Inspect}
	s.notify(ctx, from, reason)
}

func (s *Selector) notify(ctx *service.Context, from Mode, reason string) {
	t := Transition{Seq: ctx.Seq, From: from, To: s.current, Reason: reason}
	ctx.Log().Debug("mode changed", "from", from.String(), "to", t.To.String(), "reason", reason)
	for _, fn := range s.listeners {
		fn(t)
	}
}
