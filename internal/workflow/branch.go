package workflow

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/service"
)

// Branch is one of the parallel arms that start once setup has finished.
// Each arm owns one continuous service; a tracked arm routes the service's
// output into a one-shot handler, a watched arm discards it.
type Branch[S any] struct {
	name       string
	watch      bool
	hasService bool
	hasHandler bool
	arm        func(next func() uint64) arm[S]
}

// Name returns the branch name.
func (b Branch[S]) Name() string { return b.name }

type pollResult struct {
	resolved bool
	done     bool
	err      error
}

type arm[S any] interface {
	poll(ctx *service.Context, acc buffer.Access[S], report func(node string, err error)) pollResult
	pending() bool
}

// Track connects a continuous service to a handler.
//
// Streamed items go to handle one by one: nil keeps the branch armed, a
// Recoverable error is logged and skipped, anything else ends the session.
// When the service responds, handle runs on the response and a nil result
// ends the session successfully; a Recoverable error re-arms the branch
// with a fresh order.
func Track[S, E any](name string, svc service.Continuous[S, E], handle service.OneShot[S, E]) Branch[S] {
	return Branch[S]{
		name:       name,
		hasService: svc != nil,
		hasHandler: handle != nil,
		arm: func(next func() uint64) arm[S] {
			return &tracker[S, E]{name: name, svc: svc, handle: handle, next: next, order: service.NewOrder[E](next())}
		},
	}
}

// Watch runs a continuous service whose output is deliberately unused, such
// as a cursor that follows the pointer for the whole session.
func Watch[S, E any](name string, svc service.Continuous[S, E]) Branch[S] {
	return Branch[S]{
		name:       name,
		watch:      true,
		hasService: svc != nil,
		arm: func(next func() uint64) arm[S] {
			return &tracker[S, E]{name: name, svc: svc, next: next, order: service.NewOrder[E](next())}
		},
	}
}

type tracker[S, E any] struct {
	name   string
	svc    service.Continuous[S, E]
	handle service.OneShot[S, E]
	next   func() uint64
	order  *service.Order[E]
}

func (t *tracker[S, E]) pending() bool {
	return t.order != nil && !t.order.Resolved()
}

func (t *tracker[S, E]) poll(ctx *service.Context, acc buffer.Access[S], report func(string, error)) pollResult {
	var res pollResult
	if t.order == nil || t.svc == nil {
		return res
	}

	t.svc(ctx, acc, t.order)

	for _, item := range t.order.Drain() {
		if t.handle == nil {
			continue
		}
		err := t.handle(ctx, acc, item)
		report(t.name, err)
		if err == nil {
			continue
		}
		if service.IsRecoverable(err) {
			ctx.Log().Warn(err.Error(), "branch", t.name)
			continue
		}
		t.order = nil
		res.done, res.err = true, err
		return res
	}

	v, ok := t.order.Take()
	if !ok {
		return res
	}
	res.resolved = true
	if t.handle == nil {
		t.order = nil
		return res
	}

	err := t.handle(ctx, acc, v)
	report(t.name, err)
	switch {
	case err == nil:
		t.order = nil
		res.done = true
	case service.IsRecoverable(err):
		ctx.Log().Warn(err.Error(), "branch", t.name)
		t.order = service.NewOrder[E](t.next())
	default:
		t.order = nil
		res.done, res.err = true, err
	}
	return res
}

// KeyboardJustPressed streams every key pressed during the tick.
func KeyboardJustPressed[S any](ctx *service.Context, _ buffer.Access[S], o *service.Order[input.Key]) {
	for _, k := range ctx.Input.Keys {
		o.Stream(k)
	}
}

// ExitOnEscape is the keyboard branch shared by every interactive workflow:
// Escape cancels the session, other keys are ignored. message, if set, is
// logged when the user backs out.
func ExitOnEscape[S any](message string) Branch[S] {
	return Track[S, input.Key]("keyboard", KeyboardJustPressed[S], func(ctx *service.Context, _ buffer.Access[S], k input.Key) error {
		if k != input.KeyEscape {
			return nil
		}
		if message != "" {
			ctx.Log().Info(message)
		}
		return service.ErrCancelled
	})
}
