package engine

import (
	"errors"
	"fmt"
)

// DefaultMaxTicks bounds RunUntilIdle when no limit is configured.
const DefaultMaxTicks = 10000

// QuotaEnforcer counts ticks and enforces a maximum. It guards RunUntilIdle
// against a session that never ends, for example a repeating create_point
// driven by a script with no Escape.
type QuotaEnforcer struct {
	maxTicks int
	current  int
}

// NewQuotaEnforcer creates an enforcer allowing maxTicks ticks.
func NewQuotaEnforcer(maxTicks int) *QuotaEnforcer {
	return &QuotaEnforcer{maxTicks: maxTicks}
}

// Check counts one tick and returns TicksExceededError once the limit is
// passed. mode names what was running, for the message.
func (q *QuotaEnforcer) Check(mode string) error {
	q.current++
	if q.current > q.maxTicks {
		return &TicksExceededError{
			Mode:  mode,
			Ticks: q.current,
			Limit: q.maxTicks,
		}
	}
	return nil
}

// TicksExceededError is returned when the engine keeps running past the
// tick quota.
type TicksExceededError struct {
	Mode  string
	Ticks int
	Limit int
}

func (e *TicksExceededError) Error() string {
	return fmt.Sprintf("mode %s still running after %d ticks (limit %d)", e.Mode, e.Ticks, e.Limit)
}

// IsTicksExceededError reports whether err is a TicksExceededError.
func IsTicksExceededError(err error) bool {
	var te *TicksExceededError
	return errors.As(err, &te)
}
