package harness

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/pickflow/internal/engine"
	"github.com/roach88/pickflow/internal/input"
)

// pacedSteps feeds a scenario to a running engine, one step per tick. A
// step's request is queued while its frame is sampled, so the tick applies
// both together. Sample runs on the engine goroutine, which is also the
// only goroutine that touches the engine until done is closed.
type pacedSteps struct {
	eng    *engine.Engine
	steps  []step
	settle bool
	quota  *engine.QuotaEnforcer

	// err is the quota error that cut settling short.
	err    error
	done   chan struct{}
	closed bool
}

func newPacedSteps(steps []step, settle bool, maxTicks int) *pacedSteps {
	return &pacedSteps{
		steps:  steps,
		settle: settle,
		quota:  engine.NewQuotaEnforcer(maxTicks),
		done:   make(chan struct{}),
	}
}

// Sample implements input.Source.
func (p *pacedSteps) Sample(seq int64) input.Frame {
	if len(p.steps) > 0 {
		st := p.steps[0]
		p.steps = p.steps[1:]
		if st.request != nil {
			p.eng.Request(*st.request)
		}
		f := st.frame
		f.Seq = seq
		return f
	}
	if !p.closed && !p.keepSettling() {
		p.closed = true
		close(p.done)
	}
	return input.Frame{Seq: seq}
}

// keepSettling reports whether an empty tick is still wanted after the
// last step.
func (p *pacedSteps) keepSettling() bool {
	if !p.settle || p.eng.Idle() {
		return false
	}
	if err := p.quota.Check(p.eng.Current().Kind.String()); err != nil {
		p.err = err
		return false
	}
	return true
}

// runRealtime runs eng at interval until every step was sampled, then
// stops it.
func runRealtime(ctx context.Context, eng *engine.Engine, paced *pacedSteps, interval time.Duration, result *Result) error {
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx, interval) }()

	var err error
	select {
	case <-paced.done:
		eng.Stop()
		err = <-done
	case err = <-done:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if engine.IsTicksExceededError(paced.err) {
		result.Unsettled = true
		result.TickErrors = append(result.TickErrors, paced.err.Error())
	}
	return nil
}
