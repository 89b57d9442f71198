package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Session string // optional - specific session only
}

// SessionCheck is the verification result of one session.
type SessionCheck struct {
	Session  string   `json:"session"`
	Workflow string   `json:"workflow"`
	Events   int      `json:"events"`
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Sessions      []SessionCheck `json:"sessions"`
	TotalSessions int            `json:"total_sessions"`
	TotalEvents   int            `json:"total_events"`
	Problems      []string       `json:"problems,omitempty"` // journal-wide
	Valid         bool           `json:"valid"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <db>",
		Short: "Check a journal for tampering and gaps",
		Long: `Re-read every event of a journal and check that:

  - each event id matches the hash of its content
  - ordinals within a tick run 0, 1, 2, ... without gaps
  - each session opens with session_started at its start tick
  - each ended session closes with a matching session_ended at its end tick

Exit codes:
  0 - The journal is consistent
  1 - Problems were found
  2 - Command error (database not found, etc.)

Examples:
  pickflow verify ./journal.db
  pickflow verify ./journal.db --session 0192f5c4-...
  pickflow verify ./journal.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "verify one session only")

	return cmd
}

func runVerify(opts *VerifyOptions, dbPath string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openJournal(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := verifyJournal(ctx, st, opts.Session)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	if formatter.JSON() {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputVerifyText(formatter, result)
	}
	if !result.Valid {
		return NewExitError(ExitFailure, "journal verification failed")
	}
	return nil
}

// verifyJournal checks the whole journal, or one session of it.
func verifyJournal(ctx context.Context, st *store.Store, only string) (VerifyResult, error) {
	sessions, all, err := readTrace(ctx, st, only)
	if err != nil {
		return VerifyResult{}, err
	}
	result := VerifyResult{Sessions: make([]SessionCheck, 0, len(sessions)), Valid: true}

	// Ordinal gaps only make sense over the complete tick.
	if only == "" {
		result.Problems = checkOrdinals(all)
		result.TotalEvents = len(all)
	}

	bySession := make(map[string][]ir.Event)
	for _, ev := range all {
		bySession[ev.SessionID] = append(bySession[ev.SessionID], ev)
	}
	for _, ev := range bySession[""] {
		if p := checkEventID(ev); p != "" {
			result.Problems = append(result.Problems, p)
		}
	}

	for _, s := range sessions {
		c := checkSession(s, bySession[s.ID])
		if !c.Valid {
			result.Valid = false
		}
		if only != "" {
			result.TotalEvents += c.Events
		}
		result.Sessions = append(result.Sessions, c)
	}
	result.TotalSessions = len(result.Sessions)
	if len(result.Problems) > 0 {
		result.Valid = false
	}
	return result, nil
}

func checkEventID(ev ir.Event) string {
	want, err := ir.EventID(ev.SessionID, ev.Seq, ev.Ord, ev.Kind, ev.Payload)
	if err != nil {
		return fmt.Sprintf("event %d.%d: %v", ev.Seq, ev.Ord, err)
	}
	if want != ev.ID {
		return fmt.Sprintf("event %d.%d: id %s does not match its content", ev.Seq, ev.Ord, shortID(ev.ID))
	}
	return ""
}

// checkOrdinals expects events sorted by (seq, ord).
func checkOrdinals(events []ir.Event) []string {
	var problems []string
	var seq int64 = -1
	next := 0
	for _, ev := range events {
		if ev.Seq != seq {
			seq, next = ev.Seq, 0
		}
		if ev.Ord != next {
			problems = append(problems, fmt.Sprintf("tick %d: expected ordinal %d, found %d", ev.Seq, next, ev.Ord))
		}
		next = ev.Ord + 1
	}
	return problems
}

func checkSession(s ir.Session, events []ir.Event) SessionCheck {
	c := SessionCheck{Session: s.ID, Workflow: s.Workflow, Events: len(events)}
	add := func(format string, args ...any) { c.Problems = append(c.Problems, fmt.Sprintf(format, args...)) }

	for _, ev := range events {
		if p := checkEventID(ev); p != "" {
			c.Problems = append(c.Problems, p)
		}
	}

	if len(events) == 0 {
		add("no events")
	} else {
		first := events[0]
		switch {
		case first.Kind != ir.KindSessionStarted:
			add("first event is %s, not session_started", first.Kind)
		case first.Seq != s.StartSeq:
			add("session_started at tick %d, session starts at %d", first.Seq, s.StartSeq)
		case first.Payload.Str("workflow") != s.Workflow:
			add("session_started names workflow %q, session is %q", first.Payload.Str("workflow"), s.Workflow)
		}

		last := events[len(events)-1]
		ended := last.Kind == ir.KindSessionEnded
		switch {
		case s.Ended() && !ended:
			add("session ended %s but has no session_ended event", s.Exit)
		case !s.Ended() && ended:
			add("session_ended journalled but session is still open")
		case ended && last.Seq != s.EndSeq:
			add("session_ended at tick %d, session ends at %d", last.Seq, s.EndSeq)
		case ended && last.Payload.Str("exit") != s.Exit:
			add("session_ended says %q, session says %q", last.Payload.Str("exit"), s.Exit)
		}
	}

	c.Valid = len(c.Problems) == 0
	return c
}

func outputVerifyText(f *OutputFormatter, result VerifyResult) {
	w := f.Writer
	if result.TotalSessions == 0 && result.TotalEvents == 0 {
		fmt.Fprintln(w, "No sessions found in journal.")
		return
	}
	for _, c := range result.Sessions {
		mark := "✓"
		if !c.Valid {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%s, %d events)\n", mark, c.Session, c.Workflow, c.Events)
		for _, p := range c.Problems {
			fmt.Fprintf(w, "    %s\n", p)
		}
	}
	for _, p := range result.Problems {
		fmt.Fprintf(w, "✗ %s\n", p)
	}
	fmt.Fprintln(w)
	if result.Valid {
		fmt.Fprintf(w, "Journal is consistent: %d sessions, %d events\n", result.TotalSessions, result.TotalEvents)
		return
	}
	fmt.Fprintf(w, "Journal has problems: %d sessions, %d events\n", result.TotalSessions, result.TotalEvents)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
