package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/pickflow/internal/ir"
)

// Snapshot renders a run as canonical JSON: the scenario name, the trace
// digest and every event without its id. Ids are covered by the digest.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make(ir.Array, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = ir.Object{
			"seq":     ir.Int(ev.Seq),
			"ord":     ir.Int(ev.Ord),
			"session": ir.String(ev.SessionID),
			"kind":    ir.String(ev.Kind),
			"payload": ev.Payload,
		}
	}
	return ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(name),
		"digest":   ir.String(result.Digest),
		"trace":    trace,
	})
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()
	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result with its golden file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()
	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
