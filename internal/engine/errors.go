package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is an error detected by the engine rather than by a
// workflow step.
type RuntimeError struct {
	Code    RuntimeErrorCode
	Message string

	// Seq is the tick the error surfaced in, when known.
	Seq int64

	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownKind: a mode request named a kind with no factory.
	ErrCodeUnknownKind RuntimeErrorCode = "UNKNOWN_KIND"

	// ErrCodeJournal: a sink rejected a batch of events.
	ErrCodeJournal RuntimeErrorCode = "JOURNAL_FAILED"
)

func (e *RuntimeError) Error() string {
	if e.Seq != 0 {
		return fmt.Sprintf("%s: %s (seq=%d)", e.Code, e.Message, e.Seq)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsUnknownKind reports whether err came from a request for an unregistered
// kind.
func IsUnknownKind(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeUnknownKind
}

// IsJournalError reports whether err came from a failing sink.
func IsJournalError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeJournal
}

func newUnknownKindError(seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownKind,
		Message: err.Error(),
		Seq:     seq,
	}
}

func newJournalError(seq int64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeJournal,
		Message: err.Error(),
		Seq:     seq,
	}
}
