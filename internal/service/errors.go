package service

import (
	"errors"
	"fmt"

	"github.com/roach88/pickflow/internal/buffer"
)

// ErrTerminate asks the runtime to end the session now. It is the normal
// way for a non-repeating workflow to finish after its one success.
var ErrTerminate = errors.New("terminate session")

// ErrCancelled ends the session because the user backed out (Escape) or
// because another mode took over. errors.Is(ErrCancelled, ErrTerminate)
// holds.
var ErrCancelled = fmt.Errorf("%w: cancelled", ErrTerminate)

// WiringError reports a step that found the workflow in a state that only a
// wiring bug can produce. It always ends the session and is logged at error
// level.
type WiringError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// ErrorCode categorizes wiring errors.
type ErrorCode string

const (
	// ErrCodeBrokenBuffer indicates a buffer key that names no live buffer.
	ErrCodeBrokenBuffer ErrorCode = "BROKEN_BUFFER"

	// ErrCodeBrokenState indicates session state missing where a previous
	// step should have produced it.
	ErrCodeBrokenState ErrorCode = "BROKEN_STATE"

	// ErrCodeMissingState indicates a session started without the input it
	// needs.
	ErrCodeMissingState ErrorCode = "MISSING_STATE"

	// ErrCodeBrokenQuery indicates an entity referenced by an earlier step
	// no longer has the expected components.
	ErrCodeBrokenQuery ErrorCode = "BROKEN_QUERY"
)

func (e *WiringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WiringError) Unwrap() error {
	return e.Err
}

// BrokenState reports missing session state.
func BrokenState(format string, args ...any) error {
	return &WiringError{Code: ErrCodeBrokenState, Message: fmt.Sprintf(format, args...)}
}

// MissingState reports a session started without input.
func MissingState(format string, args ...any) error {
	return &WiringError{Code: ErrCodeMissingState, Message: fmt.Sprintf(format, args...)}
}

// BrokenQuery wraps a scene lookup failure.
func BrokenQuery(err error) error {
	if err == nil {
		return nil
	}
	return &WiringError{Code: ErrCodeBrokenQuery, Message: "scene query failed", Err: err}
}

// BrokenBuffer wraps a buffer lookup failure.
func BrokenBuffer(err error) error {
	if err == nil {
		return nil
	}
	return &WiringError{Code: ErrCodeBrokenBuffer, Message: "buffer lookup failed", Err: err}
}

// IsWiringError reports whether err stems from a wiring defect, including a
// bare buffer.ErrBrokenBuffer.
func IsWiringError(err error) bool {
	var we *WiringError
	return errors.As(err, &we) || errors.Is(err, buffer.ErrBrokenBuffer)
}

// Code returns the wiring error code of err, or "" when err is not one.
func Code(err error) ErrorCode {
	var we *WiringError
	if errors.As(err, &we) {
		return we.Code
	}
	if errors.Is(err, buffer.ErrBrokenBuffer) {
		return ErrCodeBrokenBuffer
	}
	return ""
}

// IsTerminate reports whether err asks for normal termination, including
// cancellation.
func IsTerminate(err error) bool {
	return errors.Is(err, ErrTerminate)
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}

// RecoverableError marks a condition the user can fix by adjusting input.
// The session stays alive.
type RecoverableError struct {
	Err error
}

func (e *RecoverableError) Error() string {
	return e.Err.Error()
}

func (e *RecoverableError) Unwrap() error {
	return e.Err
}

// Recoverable marks err as recoverable.
func Recoverable(err error) error {
	if err == nil {
		return nil
	}
	return &RecoverableError{Err: err}
}

// IsRecoverable reports whether err was marked with Recoverable.
func IsRecoverable(err error) bool {
	var re *RecoverableError
	return errors.As(err, &re)
}
