// Package workflow builds and runs interactive workflow graphs.
//
// A graph has one shape: an extractor turns the triggering target into the
// session state, setup stages prepare the scene, then a fork starts the
// parallel branches. Every branch either reaches termination or discards its
// output explicitly. When the session ends for any reason, its buffer is
// torn down and the cleanup stages run exactly once.
//
// A graph may also name a backout stage. The mode selector runs it when the
// user backs out: it can unwind one internal state and keep the session
// running, or end the session like Escape.
//
// Graphs are described at construction and validated by Build. A graph that
// leaves a branch dangling is rejected with a GraphError instead of silently
// stalling at run time.
package workflow

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/service"
)

// Extractor derives the initial session state from the triggering target.
// target is nil when the session was started without one.
type Extractor[T, S any] func(ctx *service.Context, target *T) (S, error)

type stage[S any] struct {
	name string
	run  service.Stage[S]
}

// Graph is a validated workflow definition plus the arena that holds the
// buffers of its live sessions.
type Graph[T, S any] struct {
	name     string
	extract  Extractor[T, S]
	setup    []stage[S]
	branches []Branch[S]
	cleanup  []stage[S]
	backout  *stage[S]
	arena    *buffer.Arena[S]
}

// Name returns the workflow name.
func (g *Graph[T, S]) Name() string { return g.name }

// Live returns the number of sessions whose buffer has not been torn down.
func (g *Graph[T, S]) Live() int { return g.arena.Live() }

// Factory returns a constructor that starts a new session of g.
func (g *Graph[T, S]) Factory(rt *Runtime) Factory[T] {
	return func(ctx *service.Context, target *T) Instance {
		return g.Start(ctx, rt, target)
	}
}

// Builder assembles a Graph. Methods append in call order.
type Builder[T, S any] struct {
	g *Graph[T, S]
}

// New starts a graph named name.
func New[T, S any](name string) *Builder[T, S] {
	return &Builder[T, S]{g: &Graph[T, S]{name: name}}
}

// Extract sets the step that builds the session state.
func (b *Builder[T, S]) Extract(fn Extractor[T, S]) *Builder[T, S] {
	b.g.extract = fn
	return b
}

// Setup appends a setup stage. Stages run in order right after extraction;
// the first error ends the session.
func (b *Builder[T, S]) Setup(name string, fn service.Stage[S]) *Builder[T, S] {
	b.g.setup = append(b.g.setup, stage[S]{name: name, run: fn})
	return b
}

// Branch appends parallel arms started after setup. Arms are polled in the
// order they were added.
func (b *Builder[T, S]) Branch(branches ...Branch[S]) *Builder[T, S] {
	b.g.branches = append(b.g.branches, branches...)
	return b
}

// Cleanup appends a stage to the teardown sequence. Cleanup stages all run,
// in order, even when an earlier one fails.
func (b *Builder[T, S]) Cleanup(name string, fn service.Stage[S]) *Builder[T, S] {
	b.g.cleanup = append(b.g.cleanup, stage[S]{name: name, run: fn})
	return b
}

// Backout sets the stage run when the session is asked to back out. It
// returns nil after unwinding an internal state, so the session keeps
// running. Any error ends the session the way a branch error would;
// service.ErrCancelled ends it as cancelled. Without a backout stage,
// backing out cancels the session.
func (b *Builder[T, S]) Backout(name string, fn service.Stage[S]) *Builder[T, S] {
	b.g.backout = &stage[S]{name: name, run: fn}
	return b
}

// Build validates the graph. The returned error, if any, is a *GraphError
// listing every problem found.
func (b *Builder[T, S]) Build() (*Graph[T, S], error) {
	g := b.g
	if problems := g.validate(); len(problems) > 0 {
		return nil, &GraphError{Graph: g.name, Problems: problems}
	}
	g.arena = buffer.NewArena[S]()
	return g, nil
}

// MustBuild is Build for graphs defined in code, where a validation failure
// is a programming error.
func (b *Builder[T, S]) MustBuild() *Graph[T, S] {
	g, err := b.Build()
	if err != nil {
		panic(err)
	}
	return g
}
