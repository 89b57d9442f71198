package workflow

import (
	"fmt"
	"strconv"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/service"
)

// IDGenerator names sessions.
type IDGenerator interface {
	Generate() string
}

// Runtime is what sessions need from their host.
type Runtime struct {
	// IDs names new sessions. Nil falls back to "session-1", "session-2", ...
	IDs IDGenerator

	// Observer receives lifecycle events. Nil means NoopObserver.
	Observer Observer

	seq uint64
}

func (rt *Runtime) observer() Observer {
	if rt == nil || rt.Observer == nil {
		return NoopObserver{}
	}
	return rt.Observer
}

func (rt *Runtime) nextID() string {
	if rt == nil {
		return "session"
	}
	if rt.IDs != nil {
		return rt.IDs.Generate()
	}
	rt.seq++
	return "session-" + strconv.FormatUint(rt.seq, 10)
}

// Instance is a running session as seen by its host.
type Instance interface {
	ID() string
	Name() string

	// Poll advances the session by one tick.
	Poll(ctx *service.Context)

	// Cancel ends the session as if the user had pressed Escape. It is a
	// no-op once the session is done.
	Cancel(ctx *service.Context)

	// Backout unwinds one internal state and reports whether the session is
	// still running afterwards.
	Backout(ctx *service.Context) bool

	// Pending returns the number of unresolved orders.
	Pending() int

	Done() bool
	Exit() service.Exit
}

// Factory starts a session for target.
type Factory[T any] func(ctx *service.Context, target *T) Instance

// Scope is one running session of a Graph. It owns one buffer in the
// graph's arena; removing that buffer is what runs cleanup.
type Scope[T, S any] struct {
	id       string
	graph    *Graph[T, S]
	rt       *Runtime
	key      buffer.Key
	ctx      *service.Context
	arms     []namedArm[S]
	orders   uint64
	done     bool
	exit     service.Exit
	written  bool
	cleanups int
}

type namedArm[S any] struct {
	name string
	arm  arm[S]
}

var _ Instance = (*Scope[int, int])(nil)

// Start runs extraction and setup for a new session and arms its branches.
// A failure in either ends the session before Start returns, with cleanup
// already done.
func (g *Graph[T, S]) Start(ctx *service.Context, rt *Runtime, target *T) *Scope[T, S] {
	s := &Scope[T, S]{graph: g, rt: rt, id: rt.nextID()}
	s.ctx = ctx.For(s.id, g.name)
	s.key = g.arena.Insert(s.teardown)

	desc := ""
	if target != nil {
		desc = fmt.Sprint(*target)
	}
	obs := rt.observer()
	obs.SessionStarted(s.ctx, desc)

	state, err := g.extract(s.ctx, target)
	obs.NodeRan(s.ctx, extractNode, err)
	if err != nil {
		s.finish(s.ctx, extractNode, err)
		return s
	}

	acc := g.arena.Access(s.key)
	if err := acc.WriteLatest(state); err != nil {
		s.finish(s.ctx, extractNode, service.BrokenBuffer(err))
		return s
	}
	s.written = true

	for _, st := range g.setup {
		err := st.run(s.ctx, acc)
		obs.NodeRan(s.ctx, st.name, err)
		if err != nil {
			s.finish(s.ctx, st.name, err)
			return s
		}
	}

	for _, b := range g.branches {
		s.arms = append(s.arms, namedArm[S]{name: b.name, arm: b.arm(s.nextOrder)})
	}
	return s
}

func (s *Scope[T, S]) nextOrder() uint64 {
	s.orders++
	return s.orders
}

func (s *Scope[T, S]) ID() string   { return s.id }
func (s *Scope[T, S]) Name() string { return s.graph.name }
func (s *Scope[T, S]) Done() bool   { return s.done }

// Exit is meaningful once Done reports true.
func (s *Scope[T, S]) Exit() service.Exit { return s.exit }

// Key returns the session's buffer key. It is stale once the session ends.
func (s *Scope[T, S]) Key() buffer.Key { return s.key }

// Cleanups returns how many times the cleanup sequence ran: 0 while the
// session lives or when it ended before its state was written, 1 after.
func (s *Scope[T, S]) Cleanups() int { return s.cleanups }

func (s *Scope[T, S]) Pending() int {
	n := 0
	for _, a := range s.arms {
		if a.arm.pending() {
			n++
		}
	}
	return n
}

// Poll runs every armed branch once, in declaration order. The first branch
// to end the session stops the tick for the rest.
func (s *Scope[T, S]) Poll(ctx *service.Context) {
	if s.done {
		return
	}
	s.ctx = ctx.For(s.id, s.graph.name)
	acc := s.graph.arena.Access(s.key)
	obs := s.rt.observer()
	report := func(node string, err error) { obs.NodeRan(s.ctx, node, err) }

	for _, a := range s.arms {
		res := a.arm.poll(s.ctx, acc, report)
		if res.resolved {
			obs.OrderResolved(s.ctx, a.name)
		}
		if res.done {
			s.finish(s.ctx, a.name, res.err)
			return
		}
	}
}

func (s *Scope[T, S]) Cancel(ctx *service.Context) {
	if s.done {
		return
	}
	s.finish(ctx.For(s.id, s.graph.name), "cancel", service.ErrCancelled)
}

// Backout runs the graph's backout stage, or cancels the session when the
// graph has none. It reports whether the session is still running.
func (s *Scope[T, S]) Backout(ctx *service.Context) bool {
	if s.done {
		return false
	}
	st := s.graph.backout
	if st == nil {
		s.Cancel(ctx)
		return false
	}
	s.ctx = ctx.For(s.id, s.graph.name)
	err := st.run(s.ctx, s.graph.arena.Access(s.key))
	s.rt.observer().NodeRan(s.ctx, st.name, err)
	if err != nil {
		s.finish(s.ctx, st.name, err)
		return false
	}
	s.ctx.Log().Debug("session backed out one step", "node", st.name)
	return true
}

func (s *Scope[T, S]) finish(ctx *service.Context, node string, err error) {
	if s.done {
		return
	}
	s.done = true
	s.arms = nil
	s.exit = service.Classify(err)
	s.ctx = ctx

	log := ctx.Log()
	switch {
	case s.exit.Reason == service.Failed && service.IsWiringError(err):
		log.Error("workflow wiring error", "node", node, "code", string(service.Code(err)), "error", err)
	case s.exit.Reason == service.Failed:
		log.Error("workflow step failed", "node", node, "error", err)
	case s.exit.Reason == service.Cancelled:
		log.Debug("session cancelled", "node", node)
	default:
		log.Debug("session completed", "node", node)
	}

	if rmErr := s.graph.arena.Remove(s.key); rmErr != nil {
		log.Error("session buffer already gone", "error", rmErr)
	}
	s.rt.observer().SessionEnded(ctx, s.exit)
}

// teardown is the arena hook. It runs every cleanup stage against the buffer
// while it is still readable. A session that ended before its state was
// written never ran setup, so there is nothing to undo.
func (s *Scope[T, S]) teardown(k buffer.Key) {
	if !s.written {
		s.ctx.Log().Debug("cleanup skipped, session state was never written")
		return
	}
	acc := s.graph.arena.Access(k)
	obs := s.rt.observer()
	for _, st := range s.graph.cleanup {
		err := st.run(s.ctx, acc)
		if err != nil && !service.IsTerminate(err) {
			s.ctx.Log().Error("cleanup step failed", "node", st.name, "error", err)
		}
		obs.NodeRan(s.ctx, st.name, err)
	}
	s.cleanups++
}
