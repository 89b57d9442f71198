package workflow

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/testutil"
)

type counterState struct {
	target int
	seen   []int
}

type recorder struct {
	events []string
}

func (r *recorder) SessionStarted(ctx *service.Context, target string) {
	r.events = append(r.events, "start "+target)
}

func (r *recorder) NodeRan(ctx *service.Context, node string, err error) {
	if err != nil {
		r.events = append(r.events, fmt.Sprintf("%s err", node))
		return
	}
	r.events = append(r.events, node)
}

func (r *recorder) OrderResolved(ctx *service.Context, branch string) {
	r.events = append(r.events, "resolved "+branch)
}

func (r *recorder) SessionEnded(ctx *service.Context, exit service.Exit) {
	r.events = append(r.events, "end "+exit.Reason.String())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tick(seq int64, keys ...input.Key) *service.Context {
	return service.NewContext(seq, input.Frame{Seq: seq, Keys: keys}, quietLogger())
}

// numbers streams the tick number and responds once it reaches stop.
func numbers(stop int64) service.Continuous[counterState, int] {
	return func(ctx *service.Context, _ buffer.Access[counterState], o *service.Order[int]) {
		if ctx.Seq >= stop {
			o.Respond(int(ctx.Seq))
			return
		}
		o.Stream(int(ctx.Seq))
	}
}

func record(ctx *service.Context, acc buffer.Access[counterState], n int) error {
	s, err := service.NewestMut(acc)
	if err != nil {
		return err
	}
	s.seen = append(s.seen, n)
	return nil
}

type counterGraph struct {
	graph   *Graph[int, counterState]
	cleaned *[]counterState
}

func buildCounter(t *testing.T, stop int64, setupErr error) counterGraph {
	t.Helper()
	var cleaned []counterState
	g, err := New[int, counterState]("counter").
		Extract(func(_ *service.Context, target *int) (counterState, error) {
			if target == nil {
				return counterState{}, service.MissingState("counter needs a target")
			}
			return counterState{target: *target}, nil
		}).
		Setup("prepare", func(*service.Context, buffer.Access[counterState]) error { return setupErr }).
		Branch(
			Track[counterState, int]("count", numbers(stop), record),
			ExitOnEscape[counterState](""),
		).
		Cleanup("collect", func(_ *service.Context, acc buffer.Access[counterState]) error {
			s, ok, err := acc.PeekLatest()
			if err != nil {
				return err
			}
			if ok {
				cleaned = append(cleaned, s)
			} else {
				cleaned = append(cleaned, counterState{target: -1})
			}
			return nil
		}).
		Build()
	require.NoError(t, err)
	return counterGraph{graph: g, cleaned: &cleaned}
}

func TestScope_StreamsThenCompletes(t *testing.T) {
	cg := buildCounter(t, 3, nil)
	rec := &recorder{}
	rt := &Runtime{Observer: rec}
	target := 7

	s := cg.graph.Start(tick(0), rt, &target)
	assert.Equal(t, "session-1", s.ID())
	assert.Equal(t, 1, cg.graph.Live())
	assert.Equal(t, 2, s.Pending())

	s.Poll(tick(1))
	s.Poll(tick(2))
	require.False(t, s.Done())

	s.Poll(tick(3))
	require.True(t, s.Done())
	assert.Equal(t, service.Completed, s.Exit().Reason)
	assert.Equal(t, 0, cg.graph.Live())
	assert.Equal(t, 1, s.Cleanups())
	assert.Equal(t, 0, s.Pending())

	require.Len(t, *cg.cleaned, 1)
	assert.Equal(t, counterState{target: 7, seen: []int{1, 2, 3}}, (*cg.cleaned)[0])

	assert.Equal(t, []string{
		"start 7", "extract", "prepare",
		"count", "count",
		"count", "resolved count",
		"collect", "end completed",
	}, rec.events)

	s.Poll(tick(4))
	s.Cancel(tick(4))
	assert.Equal(t, 1, s.Cleanups(), "cleanup runs exactly once")
}

func TestScope_EscapeCancels(t *testing.T) {
	cg := buildCounter(t, 100, nil)
	target := 1
	s := cg.graph.Start(tick(0), nil, &target)

	s.Poll(tick(1, input.KeyEnter))
	require.False(t, s.Done(), "other keys are ignored")

	s.Poll(tick(2, input.KeyEscape))
	require.True(t, s.Done())
	assert.Equal(t, service.Cancelled, s.Exit().Reason)
	assert.NoError(t, s.Exit().Err)
	require.Len(t, *cg.cleaned, 1)
	assert.Equal(t, []int{1, 2}, (*cg.cleaned)[0].seen, "branches before the keyboard still ran this tick")
}

func TestScope_CancelRunsCleanupOnce(t *testing.T) {
	cg := buildCounter(t, 100, nil)
	target := 1
	s := cg.graph.Start(tick(0), nil, &target)

	s.Cancel(tick(1))
	s.Cancel(tick(2))
	assert.True(t, s.Done())
	assert.Equal(t, service.Cancelled, s.Exit().Reason)
	assert.Equal(t, 1, s.Cleanups())
	assert.Len(t, *cg.cleaned, 1)
	assert.False(t, cg.graph.arena.Contains(s.Key()), "buffer key is stale after teardown")
}

func TestScope_FailedExtractionSkipsCleanup(t *testing.T) {
	cg := buildCounter(t, 100, nil)
	logs := testutil.NewLogRecorder(slog.LevelDebug)
	rec := &recorder{}
	ctx := service.NewContext(0, input.Frame{}, logs.Logger())
	s := cg.graph.Start(ctx, &Runtime{Observer: rec}, nil)

	require.True(t, s.Done())
	assert.Equal(t, service.Failed, s.Exit().Reason)
	assert.Equal(t, service.ErrCodeMissingState, service.Code(s.Exit().Err))
	assert.Empty(t, *cg.cleaned, "setup never ran, so cleanup has nothing to undo")
	assert.Equal(t, 0, s.Cleanups())
	assert.Equal(t, 0, cg.graph.Live(), "the buffer is still released")
	assert.Equal(t, []string{"start ", "extract err", "end failed"}, rec.events)

	_, ok := logs.Find("cleanup skipped, session state was never written")
	assert.True(t, ok)
	_, ok = logs.Find("cleanup step failed")
	assert.False(t, ok)
}

func TestScope_SetupFailure(t *testing.T) {
	boom := errors.New("no current drawing")
	cg := buildCounter(t, 100, boom)
	target := 2
	s := cg.graph.Start(tick(0), nil, &target)

	require.True(t, s.Done())
	assert.ErrorIs(t, s.Exit().Err, boom)
	require.Len(t, *cg.cleaned, 1)
	assert.Equal(t, 2, (*cg.cleaned)[0].target, "cleanup sees the extracted state")
}

func TestScope_SetupTerminateCompletes(t *testing.T) {
	cg := buildCounter(t, 100, service.ErrTerminate)
	target := 2
	s := cg.graph.Start(tick(0), nil, &target)
	require.True(t, s.Done())
	assert.Equal(t, service.Completed, s.Exit().Reason)
}

func TestTrack_HandlerOutcomes(t *testing.T) {
	notYet := service.Recoverable(errors.New("not yet"))
	fatal := errors.New("fatal")

	tests := []struct {
		name     string
		stream   []int
		respond  bool
		handle   func(n int) error
		done     bool
		reason   service.Reason
		rearmed  bool
		resolved bool
	}{
		{name: "stream ok continues", stream: []int{1, 2}, handle: func(int) error { return nil }},
		{name: "stream terminate ends", stream: []int{1}, handle: func(int) error { return service.ErrTerminate }, done: true, reason: service.Completed},
		{name: "stream recoverable skips", stream: []int{1}, handle: func(int) error { return notYet }},
		{name: "stream error fails", stream: []int{1}, handle: func(int) error { return fatal }, done: true, reason: service.Failed},
		{name: "respond ok completes", respond: true, handle: func(int) error { return nil }, done: true, reason: service.Completed, resolved: true},
		{name: "respond recoverable rearms", respond: true, handle: func(int) error { return notYet }, rearmed: true, resolved: true},
		{name: "respond error fails", respond: true, handle: func(int) error { return fatal }, done: true, reason: service.Failed, resolved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := func(_ *service.Context, _ buffer.Access[int], o *service.Order[int]) {
				for _, n := range tt.stream {
					o.Stream(n)
				}
				if tt.respond {
					o.Respond(9)
				}
			}
			handle := func(_ *service.Context, _ buffer.Access[int], n int) error { return tt.handle(n) }

			var ids uint64
			next := func() uint64 { ids++; return ids }
			a := Track[int, int]("t", svc, handle).arm(next)

			arena := buffer.NewArena[int]()
			acc := arena.Access(arena.Insert(nil))
			res := a.poll(tick(1), acc, func(string, error) {})

			assert.Equal(t, tt.done, res.done)
			assert.Equal(t, tt.resolved, res.resolved)
			if tt.done {
				assert.Equal(t, tt.reason, service.Classify(res.err).Reason)
				assert.False(t, a.pending())
			} else {
				assert.True(t, a.pending())
			}
			if tt.rearmed {
				assert.Equal(t, uint64(2), ids, "a fresh order was issued")
			}
		})
	}
}

func TestWatch_DiscardsOutput(t *testing.T) {
	polls := 0
	svc := func(_ *service.Context, _ buffer.Access[int], o *service.Order[int]) {
		polls++
		o.Stream(polls)
	}
	a := Watch[int, int]("cursor", svc).arm(func() uint64 { return 1 })
	arena := buffer.NewArena[int]()
	acc := arena.Access(arena.Insert(nil))

	for i := 0; i < 3; i++ {
		res := a.poll(tick(int64(i)), acc, func(string, error) { t.Fatal("watched output reached a handler") })
		assert.False(t, res.done)
	}
	assert.Equal(t, 3, polls)
	assert.True(t, a.pending())
}

func TestBuild_RejectsDanglingBranch(t *testing.T) {
	noop := func(*service.Context, buffer.Access[int]) error { return nil }
	_, err := New[int, int]("broken").
		Extract(func(*service.Context, *int) (int, error) { return 0, nil }).
		Setup("prepare", noop).
		Branch(Track[int, int]("select", numbersInt, nil)).
		Cleanup("cleanup", noop).
		Build()

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "broken", ge.Graph)
	assert.Contains(t, ge.Problems, Problem{Node: "select", Message: "output is not connected; use Watch to discard it"})
	assert.Contains(t, ge.Problems, Problem{Message: "no branch can end the session"})
}

func numbersInt(_ *service.Context, _ buffer.Access[int], o *service.Order[int]) {}

func TestBuild_CollectsEveryProblem(t *testing.T) {
	_, err := New[int, int]("").
		Setup("x", nil).
		Setup("x", func(*service.Context, buffer.Access[int]) error { return nil }).
		Build()

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	msgs := make([]string, len(ge.Problems))
	for i, p := range ge.Problems {
		msgs[i] = p.String()
	}
	assert.Equal(t, []string{
		"workflow name is required",
		"extract: no extractor",
		"x: setup stage has no function",
		"x: duplicate node name",
		"no branches after setup",
		"no cleanup stage",
	}, msgs)
	assert.Contains(t, err.Error(), "is invalid")
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() { New[int, int]("empty").MustBuild() })
}

func TestDescribe(t *testing.T) {
	cg := buildCounter(t, 1, nil)
	topo := cg.graph.Describe()

	assert.Equal(t, "counter", topo.Name)
	kinds := make(map[string]NodeKind)
	for _, n := range topo.Nodes {
		kinds[n.Name] = n.Kind
	}
	assert.Equal(t, map[string]NodeKind{
		"input":           NodeEntry,
		"extract":         NodeExtract,
		"prepare":         NodeSetup,
		"count":           NodeContinuous,
		"count.handle":    NodeHandler,
		"keyboard":        NodeContinuous,
		"keyboard.handle": NodeHandler,
		"terminate":       NodeTerminate,
		"discard":         NodeDiscard,
		"collect":         NodeCleanup,
	}, kinds)
	assert.Contains(t, topo.Edges, Edge{From: "prepare", To: "count", Label: "fork"})
	assert.Contains(t, topo.Edges, Edge{From: "terminate", To: "collect", Label: "teardown"})
	assert.Empty(t, dangling(topo))
}

func TestRuntime_IDs(t *testing.T) {
	rt := &Runtime{}
	assert.Equal(t, "session-1", rt.nextID())
	assert.Equal(t, "session-2", rt.nextID())

	var nilRT *Runtime
	assert.Equal(t, "session", nilRT.nextID())
	assert.IsType(t, NoopObserver{}, nilRT.observer())
}

func TestFactory(t *testing.T) {
	cg := buildCounter(t, 1, nil)
	rec := &recorder{}
	start := cg.graph.Factory(&Runtime{Observer: MultiObserver{rec, LogObserver{}}})
	target := 3

	inst := start(tick(0), &target)
	assert.Equal(t, "counter", inst.Name())
	inst.Poll(tick(1))
	assert.True(t, inst.Done())
	assert.Equal(t, "end completed", rec.events[len(rec.events)-1])
}

// buildUnwinding is a counter whose backout drops the newest number and
// cancels once none are left.
func buildUnwinding(t *testing.T) counterGraph {
	t.Helper()
	var cleaned []counterState
	g, err := New[int, counterState]("unwinding").
		Extract(func(_ *service.Context, target *int) (counterState, error) {
			return counterState{target: *target}, nil
		}).
		Setup("prepare", func(*service.Context, buffer.Access[counterState]) error { return nil }).
		Branch(
			Track[counterState, int]("count", numbers(100), record),
			Track[counterState, input.Key]("keyboard", KeyboardJustPressed[counterState], func(ctx *service.Context, acc buffer.Access[counterState], k input.Key) error {
				if k != input.KeyEscape {
					return nil
				}
				return unwind(ctx, acc)
			}),
		).
		Cleanup("collect", func(_ *service.Context, acc buffer.Access[counterState]) error {
			s, _, err := acc.PeekLatest()
			cleaned = append(cleaned, s)
			return err
		}).
		Backout("unwind", unwind).
		Build()
	require.NoError(t, err)
	return counterGraph{graph: g, cleaned: &cleaned}
}

func unwind(_ *service.Context, acc buffer.Access[counterState]) error {
	s, err := service.NewestMut(acc)
	if err != nil {
		return err
	}
	if len(s.seen) == 0 {
		return service.ErrCancelled
	}
	s.seen = s.seen[:len(s.seen)-1]
	return nil
}

func TestScope_BackoutStageUnwindsThenEnds(t *testing.T) {
	cg := buildUnwinding(t)
	rec := &recorder{}
	target := 4
	s := cg.graph.Start(tick(0), &Runtime{Observer: rec}, &target)
	s.Poll(tick(1))
	s.Poll(tick(2))

	assert.True(t, s.Backout(tick(3)), "one number unwound")
	assert.True(t, s.Backout(tick(3)), "second number unwound")
	assert.False(t, s.Done())

	assert.False(t, s.Backout(tick(3)), "nothing left to unwind")
	require.True(t, s.Done())
	assert.Equal(t, service.Cancelled, s.Exit().Reason)
	assert.Equal(t, 1, s.Cleanups())
	require.Len(t, *cg.cleaned, 1)
	assert.Empty(t, (*cg.cleaned)[0].seen)
	assert.Equal(t, []string{"unwind", "unwind", "unwind err", "collect", "end cancelled"}, rec.events[len(rec.events)-5:])

	assert.False(t, s.Backout(tick(4)), "backout after the end is a no-op")
	assert.Equal(t, 1, s.Cleanups())
}

func TestScope_EscapeSharesBackoutStage(t *testing.T) {
	cg := buildUnwinding(t)
	target := 4
	s := cg.graph.Start(tick(0), nil, &target)
	s.Poll(tick(1))

	// The count branch streams 2 before the keyboard unwinds it.
	s.Poll(tick(2, input.KeyEscape))
	require.False(t, s.Done())

	s.Poll(tick(3, input.KeyEscape))
	require.False(t, s.Done(), "3 is streamed and unwound on the same tick")

	require.True(t, s.Backout(tick(4)))
	assert.False(t, s.Backout(tick(5)))
	assert.Equal(t, service.Cancelled, s.Exit().Reason)
}

func TestDescribe_Backout(t *testing.T) {
	cg := buildUnwinding(t)
	topo := cg.graph.Describe()

	assert.Contains(t, topo.Nodes, Node{Name: "unwind", Kind: NodeBackout})
	assert.Contains(t, topo.Edges, Edge{From: "prepare", To: "unwind", Label: "backout"})
	assert.Contains(t, topo.Edges, Edge{From: "unwind", To: "terminate", Label: "done"})
	assert.Empty(t, dangling(topo))

	_, err := New[int, int]("bad").
		Extract(func(*service.Context, *int) (int, error) { return 0, nil }).
		Branch(ExitOnEscape[int]("")).
		Cleanup("done", func(*service.Context, buffer.Access[int]) error { return nil }).
		Backout("done", nil).
		Build()
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Contains(t, err.Error(), "done: duplicate node name")
	assert.Contains(t, err.Error(), "done: backout stage has no function")
}

func TestScope_BackoutEndsSession(t *testing.T) {
	cg := buildCounter(t, 100, nil)
	target := 1
	s := cg.graph.Start(tick(0), nil, &target)

	assert.False(t, s.Backout(tick(1)))
	assert.Equal(t, service.Cancelled, s.Exit().Reason)
	assert.False(t, s.Backout(tick(2)))
	assert.Equal(t, 1, s.Cleanups())
}
