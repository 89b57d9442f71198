package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/ir"
)

func TestTraceCommand_Text(t *testing.T) {
	db := journalWith(t, "create_point_click.yaml", "place_object.yaml")

	stdout, _, err := executeCommand(t, "trace", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sessions (2):")
	assert.Contains(t, stdout, "s-1  create_point")
	assert.Contains(t, stdout, "s-2  place_object_2d")
	assert.Contains(t, stdout, "Timeline (")
	assert.Contains(t, stdout, "exits: completed=2")
	assert.Contains(t, stdout, "digest: ")
}

func TestTraceCommand_JSON(t *testing.T) {
	db := journalWith(t, "create_point_click.yaml", "place_object.yaml")

	stdout, _, err := executeCommand(t, "trace", db, "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, stdout, &result)
	require.Len(t, result.Sessions, 2)
	assert.Equal(t, "s-1", result.Sessions[0].ID)
	assert.Equal(t, 0, result.Stats.Running)
	assert.Equal(t, 2, result.Stats.ByExit["completed"])
	assert.Equal(t, 2, result.Stats.ByKind[string(ir.KindSessionStarted)])
	assert.Equal(t, len(result.Timeline), result.Stats.TotalEvents)
	assert.Equal(t, ir.TraceDigest(result.Timeline), result.Stats.Digest)

	for i := 1; i < len(result.Timeline); i++ {
		prev, cur := result.Timeline[i-1], result.Timeline[i]
		assert.True(t, prev.Seq < cur.Seq || (prev.Seq == cur.Seq && prev.Ord < cur.Ord), "timeline out of order at %d", i)
	}
}

func TestTraceCommand_Session(t *testing.T) {
	db := journalWith(t, "create_point_click.yaml", "place_object.yaml")

	stdout, _, err := executeCommand(t, "trace", db, "--session", "s-2", "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, stdout, &result)
	require.Len(t, result.Sessions, 1)
	assert.Equal(t, "place_object_2d", result.Sessions[0].Workflow)
	require.NotEmpty(t, result.Timeline)
	for _, ev := range result.Timeline {
		assert.Equal(t, "s-2", ev.SessionID)
	}
	assert.Equal(t, ir.KindSessionStarted, result.Timeline[0].Kind)
	assert.Equal(t, ir.KindSessionEnded, result.Timeline[len(result.Timeline)-1].Kind)
}

func TestTraceCommand_Kind(t *testing.T) {
	db := journalWith(t, "create_point_click.yaml", "place_object.yaml")

	stdout, _, err := executeCommand(t, "trace", db, "--kind", "session_ended", "--format", "json")
	require.NoError(t, err)

	var result TraceResult
	decodeData(t, stdout, &result)
	assert.Equal(t, 2, result.Stats.TotalEvents)
	assert.Equal(t, map[string]int{"session_ended": 2}, result.Stats.ByKind)
}

func TestTraceCommand_ModeChanges(t *testing.T) {
	db := filepath.Join(t.TempDir(), "journal.db")
	_, _, err := executeCommand(t, "run", filepath.Join("testdata", "scenarios", "create_point_click.yaml"), "--db", db)
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "trace", db, "--kind", "mode_changed")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Sessions (1):")
	assert.Contains(t, stdout, "events: mode_changed=")
}

func TestTraceCommand_Errors(t *testing.T) {
	db := journalWith(t, "create_point_click.yaml")

	t.Run("missing database", func(t *testing.T) {
		_, _, err := executeCommand(t, "trace", filepath.Join(t.TempDir(), "none.db"))
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "database not found")
	})

	t.Run("unknown session", func(t *testing.T) {
		_, _, err := executeCommand(t, "trace", db, "--session", "s-9")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "session s-9 not found")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := executeCommand(t, "trace", db, "--kind", "teleported")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "none", formatCounts(nil))
	assert.Equal(t, "a=1 b=2", formatCounts(map[string]int{"b": 2, "a": 1}))
}
