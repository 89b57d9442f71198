package testutil

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionIDs(t *testing.T) {
	ids := NewSessionIDs("")
	assert.Equal(t, "session-1", ids.Generate())
	assert.Equal(t, "session-2", ids.Generate())

	ids.Reset()
	assert.Equal(t, "session-1", ids.Generate())

	assert.Equal(t, "s-1", NewSessionIDs("s").Generate())
}

func TestLogRecorder(t *testing.T) {
	rec := NewLogRecorder(slog.LevelInfo)
	log := rec.Logger().With("session", "s-1")

	log.Debug("dropped")
	log.Info("kept", "replaced", false)
	log.Warn("careful")

	records := rec.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "kept", records[0].Message)
	assert.Equal(t, "false", records[0].Attrs["replaced"])
	assert.Equal(t, "s-1", records[0].Attrs["session"])

	assert.Equal(t, []string{"careful"}, rec.Messages(slog.LevelWarn))
	_, ok := rec.Find("dropped")
	assert.False(t, ok)
}
