package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pickflow/internal/ir"
)

const sessionColumns = `id, workflow, target, start_seq, end_seq, exit, error, engine_version`

// ReadSessions returns every session ordered by start tick, then id.
// It returns an empty slice, not nil, for an empty journal.
func (s *Store) ReadSessions(ctx context.Context) ([]ir.Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		ORDER BY start_seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []ir.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSession returns one session or ErrNotFound.
func (s *Store) ReadSession(ctx context.Context, id string) (ir.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return sess, err
}

// ReadEvents returns the events of one session in tick order. An empty
// sessionID selects the events that belong to no session.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]ir.Event, error) {
	return s.readEvents(ctx, `WHERE session_id = ?`, sessionID)
}

// ReadAllEvents returns the whole journal in tick order.
func (s *Store) ReadAllEvents(ctx context.Context) ([]ir.Event, error) {
	return s.readEvents(ctx, ``)
}

func (s *Store) readEvents(ctx context.Context, where string, args ...any) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, seq, ord, kind, payload
		FROM events `+where+`
		ORDER BY seq ASC, ord ASC, id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var (
			ev      ir.Event
			kind    string
			payload string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Seq, &ev.Ord, &kind, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Kind = ir.EventKind(kind)
		if ev.Payload, err = unmarshalPayload(payload); err != nil {
			return nil, fmt.Errorf("event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (ir.Session, error) {
	var (
		sess   ir.Session
		endSeq sql.NullInt64
		exit   sql.NullString
		errMsg sql.NullString
	)
	err := row.Scan(&sess.ID, &sess.Workflow, &sess.Target, &sess.StartSeq, &endSeq, &exit, &errMsg, &sess.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return sess, err
	}
	if err != nil {
		return sess, fmt.Errorf("scan session: %w", err)
	}
	sess.EndSeq = endSeq.Int64
	sess.Exit = exit.String
	sess.Error = errMsg.String
	return sess, nil
}

// LastSeq returns the highest tick recorded in the journal, or 0 when it is
// empty. An engine appending to an existing journal starts its clock there.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM (
			SELECT MAX(seq) AS seq FROM events
			UNION ALL
			SELECT MAX(COALESCE(end_seq, start_seq)) FROM sessions
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}
