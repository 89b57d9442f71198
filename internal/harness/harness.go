package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/pickflow/internal/config"
	"github.com/roach88/pickflow/internal/engine"
	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/interaction"
	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/store"
	"github.com/roach88/pickflow/internal/testutil"
	"github.com/roach88/pickflow/internal/workflow"
)

// Result is the outcome of one scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Ticks is the number of ticks run, settling included.
	Ticks int

	// Mode is the current mode after the last tick.
	Mode mode.Mode

	// Trace lists the events journalled by this run, in (seq, ord) order.
	Trace []ir.Event

	// Digest is ir.TraceDigest over Trace.
	Digest string

	// Sessions lists the sessions started by this run.
	Sessions []ir.Session

	// Errors holds the failed assertions.
	Errors []string

	// TickErrors holds errors returned by ticks, such as a failed start.
	TickErrors []string

	// Unsettled is set when settling ran out of ticks with work left.
	Unsettled bool

	// Logs are the records logged by workflow steps.
	Logs []testutil.LogRecord
}

// Option configures Run.
type Option func(*runOptions)

type runOptions struct {
	store    *store.Store
	ids      workflow.IDGenerator
	realtime bool
}

// WithStore journals into st instead of a fresh in-memory store. Ticks are
// numbered after the last tick already in st and the result only covers
// this run.
func WithStore(st *store.Store) Option {
	return func(o *runOptions) { o.store = st }
}

// WithSessionIDs replaces the s-1, s-2, ... session names.
func WithSessionIDs(g workflow.IDGenerator) Option {
	return func(o *runOptions) { o.ids = g }
}

// WithRealtime hands the scenario to the engine's own tick loop, paced by
// the configured tick interval, instead of ticking it step by step. The
// engine is stopped once every step ran, so a session still running then
// is cancelled.
func WithRealtime() Option {
	return func(o *runOptions) { o.realtime = true }
}

// Run executes a scenario against a real engine over a fresh world.
//
// A tick error, such as a request refused by its factory, is recorded in
// TickErrors and the run goes on. A journal failure aborts the run.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{ids: testutil.NewSessionIDs("s")}
	for _, opt := range opts {
		opt(&o)
	}
	if o.store == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		o.store = st
	}
	ctx := context.Background()

	cfg, err := scenarioConfig(scenario)
	if err != nil {
		return nil, err
	}
	w, names, err := buildWorld(scenario.World)
	if err != nil {
		return nil, err
	}
	base, err := o.store.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last tick: %w", err)
	}

	steps, err := scenarioSteps(scenario, cfg, names)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	logs := testutil.NewLogRecorder(slog.LevelDebug)
	script := input.NewScript()
	var source input.Source = script
	var paced *pacedSteps
	if o.realtime {
		paced = newPacedSteps(steps, scenario.Settle, cfg.MaxTicks)
		source = paced
	}

	var eng *engine.Engine
	var journalErr error
	engOpts := []engine.EngineOption{
		engine.WithClock(engine.NewClockAt(base)),
		engine.WithMaxTicks(cfg.MaxTicks),
		engine.WithLogger(logs.Logger()),
		engine.WithSessionIDs(o.ids),
		engine.WithSink(engine.NewJournal(o.store)),
	}
	if o.realtime {
		engOpts = append(engOpts, engine.WithTickErrorHandler(func(seq int64, err error) {
			if engine.IsJournalError(err) {
				journalErr = err
				eng.Stop()
				return
			}
			result.TickErrors = append(result.TickErrors, fmt.Sprintf("tick %d: %v", seq, err))
		}))
	}
	eng = engine.New(source, engOpts...)
	reg, _, err := interaction.NewRegistry(w, eng.Runtime())
	if err != nil {
		return nil, fmt.Errorf("failed to build workflows: %w", err)
	}
	eng.Install(reg)
	defer eng.Stop()

	if o.realtime {
		paced.eng = eng
		if err := runRealtime(ctx, eng, paced, cfg.TickInterval, result); err != nil {
			return nil, err
		}
		if journalErr != nil {
			return nil, journalErr
		}
		result.Ticks = int(eng.Clock().Current() - base)
	} else if err := runScripted(ctx, eng, script, steps, scenario.Settle, result); err != nil {
		return nil, err
	}

	if err := collectJournal(ctx, o.store, base, result); err != nil {
		return nil, err
	}
	result.Mode = eng.Current()
	result.Logs = logs.Records()

	state := &finalState{world: w, names: names, mode: result.Mode, sessions: result.Sessions}
	for i, a := range scenario.Assertions {
		if err := state.check(a); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	result.Pass = len(result.Errors) == 0
	return result, nil
}

// step is one scenario tick: an optional request and the frame it runs
// with.
type step struct {
	request *mode.Request
	frame   input.Frame
}

func scenarioSteps(s *Scenario, cfg *config.Config, names map[string]scene.Entity) ([]step, error) {
	steps := make([]step, 0, len(s.Ticks))
	for i, t := range s.Ticks {
		var st step
		if t.Request != nil {
			r, err := t.Request.request(names)
			if err != nil {
				return nil, fmt.Errorf("ticks[%d].request: %w", i, err)
			}
			if r.Kind == mode.RequestTo {
				r.Mode = cfg.Apply(r.Mode)
			}
			st.request = &r
		}
		f, err := t.frame(names)
		if err != nil {
			return nil, fmt.Errorf("ticks[%d]: %w", i, err)
		}
		st.frame = f
		steps = append(steps, st)
	}
	return steps, nil
}

// runScripted ticks the engine once per step, then settles if asked.
func runScripted(ctx context.Context, eng *engine.Engine, script *input.Script, steps []step, settle bool, result *Result) error {
	for _, st := range steps {
		if st.request != nil {
			eng.Request(*st.request)
		}
		script.Append(st.frame)

		err := eng.Tick(ctx)
		result.Ticks++
		if err == nil {
			continue
		}
		if engine.IsJournalError(err) {
			return err
		}
		result.TickErrors = append(result.TickErrors, fmt.Sprintf("tick %d: %v", eng.Clock().Current(), err))
	}
	if !settle {
		return nil
	}

	n, err := eng.RunUntilIdle(ctx)
	result.Ticks += n
	switch {
	case err == nil:
		return nil
	case engine.IsTicksExceededError(err):
		result.Unsettled = true
		result.TickErrors = append(result.TickErrors, err.Error())
		return nil
	default:
		return err
	}
}

func scenarioConfig(s *Scenario) (*config.Config, error) {
	switch {
	case s.Config != "":
		cfg, err := config.CompileString(s.Config, s.Name+".cue")
		if err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
		return cfg, nil
	case s.ConfigDir != "":
		res, err := config.Load(s.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("scenario config: %w", err)
		}
		return res.Config, nil
	}
	return config.Default(), nil
}

// collectJournal reads back what the run wrote after tick base.
func collectJournal(ctx context.Context, st *store.Store, base int64, result *Result) error {
	events, err := st.ReadAllEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}
	for _, ev := range events {
		if ev.Seq > base {
			result.Trace = append(result.Trace, ev)
		}
	}
	result.Digest = ir.TraceDigest(result.Trace)

	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sessions: %w", err)
	}
	for _, s := range sessions {
		if s.StartSeq > base {
			result.Sessions = append(result.Sessions, s)
		}
	}
	return nil
}

// finalState is what assertions inspect.
type finalState struct {
	world    *scene.World
	names    map[string]scene.Entity
	mode     mode.Mode
	sessions []ir.Session
}
