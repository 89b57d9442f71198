package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev, err := NewEvent("s-1", 4, 2, KindSessionEnded, Obj(P("exit", String("cancelled"))))
	require.NoError(t, err)
	assert.Equal(t, MustEventID("s-1", 4, 2, KindSessionEnded, ev.Payload), ev.ID)
	assert.Equal(t, `4.2 s-1 session_ended exit="cancelled"`, ev.String())

	_, err = NewEvent("s-1", 1, 0, EventKind("exploded"), nil)
	assert.Error(t, err)

	ev, err = NewEvent("", 1, 0, KindModeChanged, nil)
	require.NoError(t, err)
	assert.NotNil(t, ev.Payload)
}

func TestEventJSONTags(t *testing.T) {
	ev, err := NewEvent("s-1", 1, 0, KindOrderResolved, Obj(P("branch", String("select"))))
	require.NoError(t, err)
	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "session_id", "seq", "ord", "kind", "payload"} {
		assert.Contains(t, raw, key)
	}
}

func TestSessionEnded(t *testing.T) {
	s := Session{ID: "s-1", Workflow: "create_point", StartSeq: 1}
	assert.False(t, s.Ended())
	s.Exit = "completed"
	assert.True(t, s.Ended())
}
