package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pickflow/internal/ir"
)

// WriteSession records a started session. Writing the same id again is a
// no-op.
func (s *Store) WriteSession(ctx context.Context, sess ir.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("write session: empty id")
	}
	version := sess.EngineVersion
	if version == "" {
		version = ir.EngineVersion
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, workflow, target, start_seq, engine_version)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.Workflow, sess.Target, sess.StartSeq, version)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// EndSession records how a session ended. A session is ended once: later
// calls leave the first exit in place. Unknown ids return ErrNotFound.
func (s *Store) EndSession(ctx context.Context, id string, endSeq int64, exit, errMsg string) error {
	var errCol sql.NullString
	if errMsg != "" {
		errCol = sql.NullString{String: errMsg, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET end_seq = ?, exit = ?, error = ?
		WHERE id = ? AND exit IS NULL
	`, endSeq, exit, errCol, id)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("end session %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteEvent appends one event. Duplicate ids are ignored.
func (s *Store) WriteEvent(ctx context.Context, ev ir.Event) error {
	return s.WriteEvents(ctx, []ir.Event{ev})
}

// WriteEvents appends events in one transaction.
func (s *Store) WriteEvents(ctx context.Context, events []ir.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (id, session_id, seq, ord, kind, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if ev.ID == "" {
			return fmt.Errorf("write events: event %d.%d has no id", ev.Seq, ev.Ord)
		}
		payload, err := marshalPayload(ev.Payload)
		if err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, ev.ID, ev.SessionID, ev.Seq, ev.Ord, string(ev.Kind), payload); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}
