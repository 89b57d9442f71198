// Package service defines the two kinds of workflow steps and the signals
// they return.
//
// A Continuous service is polled once per tick for each outstanding Order
// until it responds. A OneShot service runs once, synchronously, and returns
// nil to let the workflow carry on, ErrTerminate to end the session
// normally, ErrCancelled for Escape or an external cancel, a Recoverable
// error to stay in the current step, or any other error to end the session
// with a diagnostic.
package service

import (
	"log/slog"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/input"
)

// Context is what every step sees during a tick.
type Context struct {
	Seq      int64
	Input    input.Frame
	Session  string
	Workflow string
	Logger   *slog.Logger
}

// NewContext builds the context for one tick.
func NewContext(seq int64, frame input.Frame, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{Seq: seq, Input: frame, Logger: logger}
}

// For returns a copy of c bound to one session.
func (c *Context) For(session, workflow string) *Context {
	cp := *c
	cp.Session = session
	cp.Workflow = workflow
	cp.Logger = c.Log().With("session", session, "workflow", workflow)
	return &cp
}

// Log returns the context logger, falling back to slog.Default.
func (c *Context) Log() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Continuous is per-tick logic. It may stream items through o, respond to o
// once, or do nothing and leave o pending.
type Continuous[S, E any] func(ctx *Context, acc buffer.Access[S], o *Order[E])

// OneShot runs once for an input value.
type OneShot[S, I any] func(ctx *Context, acc buffer.Access[S], in I) error

// Stage is a OneShot whose only input is the session buffer. Setup and
// cleanup steps are stages.
type Stage[S any] func(ctx *Context, acc buffer.Access[S]) error

// NewestMut returns the session state for in-place mutation. An empty buffer
// is a broken-state error here: the steps that call it run after setup.
func NewestMut[S any](acc buffer.Access[S]) (*S, error) {
	s, err := acc.PeekLatestMut()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, BrokenState("session buffer is empty")
	}
	return s, nil
}

// Newest returns a copy of the session state.
func Newest[S any](acc buffer.Access[S]) (S, error) {
	s, ok, err := acc.PeekLatest()
	if err != nil {
		return s, err
	}
	if !ok {
		return s, BrokenState("session buffer is empty")
	}
	return s, nil
}

// PullState consumes the session state.
func PullState[S any](acc buffer.Access[S]) (S, error) {
	s, ok, err := acc.Pull()
	if err != nil {
		return s, err
	}
	if !ok {
		return s, BrokenState("session buffer is empty")
	}
	return s, nil
}
