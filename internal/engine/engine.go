package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// Engine runs the tick loop around a mode selector.
//
// Tick, Run and RunUntilIdle must be called from one goroutine. Request,
// StartWorkflow and Stop are safe from any goroutine.
type Engine struct {
	source    input.Source
	clock     *Clock
	queue     *eventQueue
	rt        *workflow.Runtime
	selector  *mode.Selector
	sinks     []Sink
	observers []workflow.Observer
	ids       workflow.IDGenerator
	logger    *slog.Logger
	maxTicks  int
	onError   func(seq int64, err error)

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock replaces the tick clock, for example to continue numbering
// after the last tick of an existing journal.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithMaxTicks bounds RunUntilIdle. Default: DefaultMaxTicks.
func WithMaxTicks(n int) EngineOption {
	return func(e *Engine) { e.maxTicks = n }
}

// WithObserver adds a lifecycle observer after the engine's own recorder.
func WithObserver(o workflow.Observer) EngineOption {
	return func(e *Engine) { e.observers = append(e.observers, o) }
}

// WithLogger sets the logger handed to every step through service.Context.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithSessionIDs sets how sessions are named. Default: UUIDv7Generator.
func WithSessionIDs(g workflow.IDGenerator) EngineOption {
	return func(e *Engine) { e.ids = g }
}

// WithTickErrorHandler replaces the logging of tick errors that Run and
// RunUntilIdle swallow. Default: log at Error.
func WithTickErrorHandler(fn func(seq int64, err error)) EngineOption {
	return func(e *Engine) { e.onError = fn }
}

// WithSink adds a destination for journal events.
func WithSink(s Sink) EngineOption {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// New creates an engine sampling source once per tick. Install a registry
// before ticking.
func New(source input.Source, opts ...EngineOption) *Engine {
	e := &Engine{
		source:   source,
		clock:    NewClock(),
		queue:    newEventQueue(),
		ids:      UUIDv7Generator{},
		logger:   slog.Default(),
		maxTicks: DefaultMaxTicks,
		onError:  logTickError,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	observers := workflow.MultiObserver{&recorder{queue: e.queue}, workflow.LogObserver{}}
	observers = append(observers, e.observers...)
	e.rt = &workflow.Runtime{IDs: e.ids, Observer: observers}
	return e
}

// Runtime returns what graph factories need to start sessions on this
// engine.
func (e *Engine) Runtime() *workflow.Runtime {
	return e.rt
}

// Install creates the selector over reg. Mode transitions are journalled
// alongside session events.
func (e *Engine) Install(reg *mode.Registry, opts ...mode.SelectorOption) *mode.Selector {
	rec := &recorder{queue: e.queue}
	opts = append([]mode.SelectorOption{mode.WithTransitionListener(rec.transition)}, opts...)
	e.selector = mode.NewSelector(reg, opts...)
	return e.selector
}

// Selector returns the installed selector, or nil.
func (e *Engine) Selector() *mode.Selector {
	return e.selector
}

// Clock returns the tick clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Current returns the current mode, Inspect before Install.
func (e *Engine) Current() mode.Mode {
	if e.selector == nil {
		return mode.Mode{Kind: mode.Inspect}
	}
	return e.selector.Current()
}

// Request queues r for the next tick and wakes Run. It returns false before
// Install and after Stop.
func (e *Engine) Request(r mode.Request) bool {
	if e.selector == nil {
		return false
	}
	if !e.selector.Request(r) {
		return false
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

// StartWorkflow requests a switch to m.
func (e *Engine) StartWorkflow(m mode.Mode) bool {
	return e.Request(mode.To(m))
}

// Idle reports whether nothing is left to do: no session, no queued
// request and, for finite sources such as input.Script, no frame left.
func (e *Engine) Idle() bool {
	if e.selector != nil && (e.selector.Active() != nil || e.selector.Queued() > 0) {
		return false
	}
	if f, ok := e.source.(interface{ Remaining() int }); ok && f.Remaining() > 0 {
		return false
	}
	return true
}

// Tick runs one frame: sample input, apply requests, poll the session and
// flush the recorded events. A failing request does not stop the tick.
func (e *Engine) Tick(ctx context.Context) error {
	if e.selector == nil {
		return errors.New("engine: no registry installed")
	}
	seq := e.clock.Next()
	frame := e.source.Sample(seq)
	sctx := service.NewContext(seq, frame, e.logger)

	var errs []error
	if err := e.selector.Apply(sctx); err != nil {
		if errors.Is(err, mode.ErrUnknownKind) {
			err = newUnknownKindError(seq, err)
		}
		errs = append(errs, err)
	}
	e.selector.Poll(sctx)

	if err := e.flush(ctx, seq); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// flush stamps the events recorded during tick seq and hands them to every
// sink.
func (e *Engine) flush(ctx context.Context, seq int64) error {
	recorded := e.queue.Drain()
	if len(recorded) == 0 {
		return nil
	}
	events := make([]ir.Event, 0, len(recorded))
	for i, p := range recorded {
		ev, err := ir.NewEvent(p.Session, seq, i, p.Kind, p.Payload)
		if err != nil {
			return newJournalError(seq, err)
		}
		events = append(events, ev)
	}

	var errs []error
	for _, s := range e.sinks {
		if err := s.Write(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return newJournalError(seq, errors.Join(errs...))
	}
	return nil
}

// Run ticks every interval, and immediately after a Request, until ctx is
// cancelled or Stop is called.
//
// A failing tick is logged and the loop continues; retrying would make the
// journal depend on timing.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("engine: tick interval must be positive, got %s", interval)
	}
	slog.Info("engine starting", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.shutdown(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-e.stop:
			slog.Info("engine stopping: stopped")
			e.shutdown(ctx)
			return nil
		case <-ticker.C:
		case <-e.wake:
		}
		if err := e.Tick(ctx); err != nil {
			e.onError(e.clock.Current(), err)
		}
	}
}

// RunUntilIdle ticks until Idle reports true and returns the number of
// ticks run. It fails with TicksExceededError when the engine is still busy
// after the configured number of ticks, and stops at the first journal
// error. Other tick errors are logged.
func (e *Engine) RunUntilIdle(ctx context.Context) (int, error) {
	quota := NewQuotaEnforcer(e.maxTicks)
	ticks := 0
	for !e.Idle() {
		if err := ctx.Err(); err != nil {
			return ticks, err
		}
		if err := quota.Check(e.Current().Kind.String()); err != nil {
			return ticks, err
		}
		err := e.Tick(ctx)
		ticks++
		if err == nil {
			continue
		}
		if IsJournalError(err) {
			return ticks, err
		}
		e.onError(e.clock.Current(), err)
	}
	return ticks, nil
}

// Stop ends Run and refuses further requests. The running session, if any,
// is cancelled by Run on its way out.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		if e.selector != nil {
			e.selector.Close()
		}
		close(e.stop)
	})
}

// shutdown cancels the running session in one last tick so its cleanup
// runs and its exit is journalled.
func (e *Engine) shutdown(ctx context.Context) {
	if e.selector == nil || e.selector.Active() == nil {
		return
	}
	seq := e.clock.Next()
	sctx := service.NewContext(seq, input.Frame{Seq: seq}, e.logger)
	e.selector.Active().Cancel(sctx)
	e.selector.Poll(sctx)
	if err := e.flush(ctx, seq); err != nil {
		e.onError(seq, err)
	}
}

func logTickError(seq int64, err error) {
	var re *RuntimeError
	if errors.As(err, &re) {
		slog.Error("tick failed", "seq", seq, "code", string(re.Code), "error", err)
		return
	}
	slog.Error("tick failed", "seq", seq, "error", err)
}
