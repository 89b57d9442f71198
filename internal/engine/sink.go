package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/store"
)

// Sink receives the events of one tick, in order, once the tick ends.
type Sink interface {
	Write(ctx context.Context, events []ir.Event) error
}

// MemorySink keeps every event it receives.
type MemorySink struct {
	mu     sync.Mutex
	events []ir.Event
}

func (m *MemorySink) Write(_ context.Context, events []ir.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of the events received so far.
func (m *MemorySink) Events() []ir.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ir.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Journal persists sessions and their events to a store.
type Journal struct {
	store *store.Store
}

// NewJournal creates a sink writing to s.
func NewJournal(s *store.Store) *Journal {
	return &Journal{store: s}
}

// Write records started sessions, then the events, then the exits. A
// session that starts and ends in the same tick is therefore complete once
// Write returns.
func (j *Journal) Write(ctx context.Context, events []ir.Event) error {
	for _, ev := range events {
		if ev.Kind != ir.KindSessionStarted {
			continue
		}
		sess := ir.Session{
			ID:       ev.SessionID,
			Workflow: ev.Payload.Str("workflow"),
			Target:   ev.Payload.Str("target"),
			StartSeq: ev.Seq,
		}
		if err := j.store.WriteSession(ctx, sess); err != nil {
			return fmt.Errorf("journal session %s: %w", ev.SessionID, err)
		}
	}

	if err := j.store.WriteEvents(ctx, events); err != nil {
		return fmt.Errorf("journal events: %w", err)
	}

	for _, ev := range events {
		if ev.Kind != ir.KindSessionEnded {
			continue
		}
		if err := j.store.EndSession(ctx, ev.SessionID, ev.Seq, ev.Payload.Str("exit"), ev.Payload.Str("error")); err != nil {
			return fmt.Errorf("journal exit %s: %w", ev.SessionID, err)
		}
	}
	return nil
}
