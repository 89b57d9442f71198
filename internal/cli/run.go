package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pickflow/internal/engine"
	"github.com/roach88/pickflow/internal/harness"
	"github.com/roach88/pickflow/internal/store"
	"github.com/roach88/pickflow/internal/workflow"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Realtime bool

	// SessionIDs overrides session naming when journalling to --db (for
	// testing). Nil means UUIDv7Generator.
	SessionIDs workflow.IDGenerator
}

// RunReport is the outcome of one scenario.
type RunReport struct {
	Scenario   string           `json:"scenario"`
	Pass       bool             `json:"pass"`
	Ticks      int              `json:"ticks"`
	Mode       string           `json:"mode"`
	Digest     string           `json:"digest"`
	Sessions   []SessionSummary `json:"sessions"`
	Errors     []string         `json:"errors,omitempty"`
	TickErrors []string         `json:"tick_errors,omitempty"`
	Unsettled  bool             `json:"unsettled,omitempty"`
}

// SessionSummary is one journalled session.
type SessionSummary struct {
	ID       string `json:"id"`
	Workflow string `json:"workflow"`
	Target   string `json:"target"`
	StartSeq int64  `json:"start_seq"`
	EndSeq   int64  `json:"end_seq,omitempty"`
	Exit     string `json:"exit,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (r RunReport) String() string {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s (%d ticks, mode %s)\n", status, r.Scenario, r.Ticks, r.Mode)
	for _, s := range r.Sessions {
		fmt.Fprintf(&b, "  session %s %s [%d..%d] %s", s.ID, s.Workflow, s.StartSeq, s.EndSeq, s.Exit)
		if s.Error != "" {
			fmt.Fprintf(&b, ": %s", s.Error)
		}
		b.WriteString("\n")
	}
	for _, e := range r.TickErrors {
		fmt.Fprintf(&b, "  tick error: %s\n", e)
	}
	if r.Unsettled {
		b.WriteString("  did not settle\n")
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
	}
	fmt.Fprintf(&b, "  digest %s", r.Digest)
	return b.String()
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario|dir>",
		Short: "Run scenarios against the engine",
		Long: `Run one scenario file, or every scenario in a directory, against a real
engine over a fresh world and check its assertions.

Without --db the journal lives in memory and sessions are named s-1, s-2, ...
With --db every session is appended to the SQLite journal under a UUIDv7
id, ready for "pickflow trace" and "pickflow verify".

With --realtime the engine runs its own tick loop at the configured
engine.tick_interval and takes one scenario tick per frame. The engine is
stopped after the last tick, so a session still running is cancelled.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, unreadable scenario, etc.)

Examples:
  pickflow run ./scenarios/create_point_click.yaml
  pickflow run ./scenarios --db ./journal.db
  pickflow run ./scenarios --format json
  pickflow run ./scenarios/create_point_click.yaml --realtime`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (created if missing)")
	cmd.Flags().BoolVar(&opts.Realtime, "realtime", false, "drive the engine's tick loop at the configured tick interval")

	return cmd
}

func runScenarios(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	paths, err := scenarioPaths(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "no scenarios to run", err)
	}

	var runOpts []harness.Option
	if opts.Realtime {
		runOpts = append(runOpts, harness.WithRealtime())
		formatter.VerboseLog("running in realtime")
	}
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		ids := opts.SessionIDs
		if ids == nil {
			ids = engine.UUIDv7Generator{}
		}
		runOpts = append(runOpts, harness.WithStore(st), harness.WithSessionIDs(ids))
		formatter.VerboseLog("journalling to %s", opts.Database)
	}

	reports := make([]RunReport, 0, len(paths))
	failed := 0
	for _, p := range paths {
		formatter.VerboseLog("running %s", p)
		s, err := harness.LoadScenario(p)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), map[string]string{"path": p})
			return WrapExitError(ExitCommandError, "failed to load "+p, err)
		}
		result, err := harness.Run(s, runOpts...)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), map[string]string{"scenario": s.Name})
			return WrapExitError(ExitCommandError, "failed to run "+s.Name, err)
		}
		r := newRunReport(s.Name, result)
		if !r.Pass {
			failed++
		}
		reports = append(reports, r)
		if !formatter.JSON() {
			if err := formatter.Success(r); err != nil {
				return err
			}
		}
	}

	if formatter.JSON() {
		if err := formatter.Success(reports); err != nil {
			return err
		}
	} else {
		formatter.Printf("\n%d passed, %d failed, %d total\n", len(reports)-failed, failed, len(reports))
	}
	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}

func newRunReport(name string, result *harness.Result) RunReport {
	r := RunReport{
		Scenario:   name,
		Pass:       result.Pass,
		Ticks:      result.Ticks,
		Mode:       result.Mode.String(),
		Digest:     result.Digest,
		Sessions:   make([]SessionSummary, 0, len(result.Sessions)),
		Errors:     result.Errors,
		TickErrors: result.TickErrors,
		Unsettled:  result.Unsettled,
	}
	for _, s := range result.Sessions {
		r.Sessions = append(r.Sessions, SessionSummary{
			ID:       s.ID,
			Workflow: s.Workflow,
			Target:   s.Target,
			StartSeq: s.StartSeq,
			EndSeq:   s.EndSeq,
			Exit:     s.Exit,
			Error:    s.Error,
		})
	}
	return r
}

// scenarioPaths expands a file or directory argument.
func scenarioPaths(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("scenario path not found: %s", path)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	paths, err := harness.FindScenarios(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenarios found in %s", path)
	}
	return paths, nil
}
