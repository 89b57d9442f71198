package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/ir"
)

func TestReadSessions_Order(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	for _, sess := range []ir.Session{
		{ID: "s-3", Workflow: "place_object_2d", StartSeq: 7},
		{ID: "s-2", Workflow: "create_point", StartSeq: 1},
		{ID: "s-1", Workflow: "create_point", StartSeq: 1},
	} {
		require.NoError(t, s.WriteSession(ctx, sess))
	}

	got, err := s.ReadSessions(ctx)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, sess := range got {
		ids[i] = sess.ID
	}
	assert.Equal(t, []string{"s-1", "s-2", "s-3"}, ids)
}

func TestReadSession_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadSession(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestReadEvents_BySessionInTickOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	late := createTestEvent(t, "s-1", 3, 0, ir.KindSessionEnded, ir.Obj(ir.P("exit", ir.String("completed"))))
	mode := createTestEvent(t, "", 1, 0, ir.KindModeChanged, ir.Obj(ir.P("to", ir.String("create_point"))))
	first := createTestEvent(t, "s-1", 1, 1, ir.KindSessionStarted, nil)
	second := createTestEvent(t, "s-1", 1, 2, ir.KindNodeRan, ir.Obj(ir.P("node", ir.String("extract")), ir.P("n", ir.Int(1<<60))))
	other := createTestEvent(t, "s-2", 2, 0, ir.KindSessionStarted, nil)
	require.NoError(t, s.WriteEvents(ctx, []ir.Event{late, mode, second, other, first}))

	got, err := s.ReadEvents(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []ir.Event{first, second, late}, got)
	assert.Equal(t, ir.Int(1<<60), got[1].Payload["n"], "large integers keep their precision")

	unscoped, err := s.ReadEvents(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []ir.Event{mode}, unscoped)

	all, err := s.ReadAllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, mode, all[0])
	assert.Equal(t, late, all[4])

	none, err := s.ReadEvents(ctx, "s-9")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestUnmarshalPayload(t *testing.T) {
	p, err := unmarshalPayload("")
	require.NoError(t, err)
	assert.Equal(t, ir.Object{}, p)

	_, err = unmarshalPayload("[1]")
	assert.Error(t, err)

	text, err := marshalPayload(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", text)
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	require.NoError(t, s.WriteSession(ctx, ir.Session{ID: "s-1", Workflow: "create_point", StartSeq: 2}))
	require.NoError(t, s.WriteEvent(ctx, createTestEvent(t, "s-1", 4, 0, ir.KindNodeRan, nil)))
	require.NoError(t, s.EndSession(ctx, "s-1", 6, "cancelled", ""))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), seq)
}
