package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string // optional - one session only
	Kind    string // optional - one event kind only
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Sessions []SessionSummary `json:"sessions"`
	Timeline []ir.Event       `json:"timeline"`
	Stats    TraceStats       `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByKind      map[string]int `json:"by_kind"`
	ByExit      map[string]int `json:"by_exit"`
	Running     int            `json:"running"`
	Digest      string         `json:"digest"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <db>",
		Short: "Show the journalled sessions and their events",
		Long: `Print the sessions of a journal and the timeline of their events in
(tick, ordinal) order.

Mode changes are not tied to a session; they are left out when --session
is given.

Examples:
  pickflow trace ./journal.db
  pickflow trace ./journal.db --session 0192f5c4-...
  pickflow trace ./journal.db --kind session_ended --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "trace one session only")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only show events of this kind")

	return cmd
}

func runTrace(opts *TraceOptions, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Kind != "" && !ir.EventKind(opts.Kind).Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown event kind %q", opts.Kind))
	}

	st, err := openJournal(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	sessions, events, err := readTrace(ctx, st, opts.Session)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	result := TraceResult{
		Sessions: make([]SessionSummary, 0, len(sessions)),
		Timeline: make([]ir.Event, 0, len(events)),
		Stats: TraceStats{
			ByKind: make(map[string]int),
			ByExit: make(map[string]int),
			Digest: ir.TraceDigest(events),
		},
	}
	for _, s := range sessions {
		result.Sessions = append(result.Sessions, SessionSummary{
			ID: s.ID, Workflow: s.Workflow, Target: s.Target,
			StartSeq: s.StartSeq, EndSeq: s.EndSeq, Exit: s.Exit, Error: s.Error,
		})
		if s.Ended() {
			result.Stats.ByExit[s.Exit]++
		} else {
			result.Stats.Running++
		}
	}
	for _, ev := range events {
		if opts.Kind != "" && string(ev.Kind) != opts.Kind {
			continue
		}
		result.Timeline = append(result.Timeline, ev)
		result.Stats.ByKind[string(ev.Kind)]++
	}
	result.Stats.TotalEvents = len(result.Timeline)

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(formatter, result)
}

// openJournal opens an existing journal. store.Open would create a missing
// file, which is never what a read-only command wants.
func openJournal(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path))
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func readTrace(ctx context.Context, st *store.Store, session string) ([]ir.Session, []ir.Event, error) {
	if session == "" {
		sessions, err := st.ReadSessions(ctx)
		if err != nil {
			return nil, nil, err
		}
		events, err := st.ReadAllEvents(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sessions, events, nil
	}

	s, err := st.ReadSession(ctx, session)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("session %s not found", session)
	}
	if err != nil {
		return nil, nil, err
	}
	events, err := st.ReadEvents(ctx, session)
	if err != nil {
		return nil, nil, err
	}
	return []ir.Session{s}, events, nil
}

func outputTraceText(f *OutputFormatter, result TraceResult) error {
	w := f.Writer
	if len(result.Sessions) == 0 && len(result.Timeline) == 0 {
		fmt.Fprintln(w, "Journal is empty.")
		return nil
	}

	fmt.Fprintf(w, "Sessions (%d):\n", len(result.Sessions))
	for _, s := range result.Sessions {
		exit := s.Exit
		if exit == "" {
			exit = "running"
		}
		fmt.Fprintf(w, "  %s  %-18s target=%s ticks %d..%d  %s", s.ID, s.Workflow, s.Target, s.StartSeq, s.EndSeq, exit)
		if s.Error != "" {
			fmt.Fprintf(w, " (%s)", s.Error)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nTimeline (%d events):\n", result.Stats.TotalEvents)
	for _, ev := range result.Timeline {
		fmt.Fprintf(w, "  %s\n", ev.String())
		if f.Verbose {
			fmt.Fprintf(w, "      id=%s\n", ev.ID)
		}
	}

	fmt.Fprintln(w, "\nStats:")
	fmt.Fprintf(w, "  events: %s\n", formatCounts(result.Stats.ByKind))
	fmt.Fprintf(w, "  exits: %s", formatCounts(result.Stats.ByExit))
	if result.Stats.Running > 0 {
		fmt.Fprintf(w, ", running=%d", result.Stats.Running)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  digest: %s\n", result.Stats.Digest)
	return nil
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
