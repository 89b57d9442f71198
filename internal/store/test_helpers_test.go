package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/pickflow/internal/ir"
)

// createTestStore opens a journal in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestEvent(t *testing.T, session string, seq int64, ord int, kind ir.EventKind, payload ir.Object) ir.Event {
	t.Helper()
	ev, err := ir.NewEvent(session, seq, ord, kind, payload)
	if err != nil {
		t.Fatalf("NewEvent() failed: %v", err)
	}
	return ev
}
