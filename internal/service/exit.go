package service

import "fmt"

// Reason is why a session ended.
type Reason int

const (
	// Completed: the workflow finished its job.
	Completed Reason = iota
	// Cancelled: Escape, backout, or another mode took over.
	Cancelled
	// Failed: a step returned a diagnostic error.
	Failed
)

func (r Reason) String() string {
	switch r {
	case Completed:
		return "completed"
	case Cancelled:
		return "cancelled"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("reason(%d)", int(r))
}

// ParseReason is the inverse of Reason.String.
func ParseReason(s string) (Reason, error) {
	switch s {
	case "completed":
		return Completed, nil
	case "cancelled":
		return Cancelled, nil
	case "failed":
		return Failed, nil
	}
	return Failed, fmt.Errorf("unknown exit reason %q", s)
}

// Exit records how a session ended. Err is set only for Failed.
type Exit struct {
	Reason Reason
	Err    error
}

// Classify maps the error that ended a session onto an Exit. A nil error is
// a successful completion.
func Classify(err error) Exit {
	switch {
	case err == nil:
		return Exit{Reason: Completed}
	case IsCancelled(err):
		return Exit{Reason: Cancelled}
	case IsTerminate(err):
		return Exit{Reason: Completed}
	default:
		return Exit{Reason: Failed, Err: err}
	}
}

func (e Exit) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason.String()
}
