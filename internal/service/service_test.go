package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/input"
)

func TestOrder_RespondAtMostOnce(t *testing.T) {
	o := NewOrder[string](1)
	assert.False(t, o.Resolved())

	assert.True(t, o.Respond("first"))
	assert.False(t, o.Respond("second"))
	assert.True(t, o.Resolved())

	v, ok := o.Take()
	require.True(t, ok)
	assert.Equal(t, "first", v)

	_, ok = o.Take()
	assert.False(t, ok, "a response is delivered once")
}

func TestOrder_StreamThenDrain(t *testing.T) {
	o := NewOrder[int](1)
	o.Stream(1)
	o.Stream(2)
	assert.Equal(t, []int{1, 2}, o.Drain())
	assert.Empty(t, o.Drain())

	o.Respond(3)
	o.Stream(4)
	assert.Empty(t, o.Drain(), "items after resolution are dropped")
}

func TestClassify(t *testing.T) {
	diag := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{"nil", nil, Completed},
		{"terminate", ErrTerminate, Completed},
		{"wrapped terminate", fmt.Errorf("commit: %w", ErrTerminate), Completed},
		{"cancel", ErrCancelled, Cancelled},
		{"diagnostic", diag, Failed},
		{"wiring", BrokenState("gone"), Failed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Reason)
		})
	}
	assert.ErrorIs(t, Classify(diag).Err, diag)
	assert.NoError(t, Classify(ErrCancelled).Err)
}

func TestParseReason(t *testing.T) {
	for _, r := range []Reason{Completed, Cancelled, Failed} {
		got, err := ParseReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	_, err := ParseReason("crashed")
	assert.EqualError(t, err, `unknown exit reason "crashed"`)
}

func TestCancelledIsTerminate(t *testing.T) {
	assert.True(t, IsTerminate(ErrCancelled))
	assert.False(t, IsCancelled(ErrTerminate))
}

func TestWiringErrors(t *testing.T) {
	assert.True(t, IsWiringError(BrokenState("x")))
	assert.True(t, IsWiringError(fmt.Errorf("wrapped: %w", buffer.ErrBrokenBuffer)))
	assert.False(t, IsWiringError(errors.New("plain")))

	assert.Equal(t, ErrCodeBrokenState, Code(BrokenState("x")))
	assert.Equal(t, ErrCodeMissingState, Code(MissingState("x")))
	assert.Equal(t, ErrCodeBrokenBuffer, Code(buffer.ErrBrokenBuffer))
	assert.Equal(t, ErrCodeBrokenQuery, Code(BrokenQuery(errors.New("no entity"))))
	assert.Equal(t, ErrorCode(""), Code(errors.New("plain")))
	assert.NoError(t, BrokenQuery(nil))

	err := BrokenBuffer(buffer.ErrBrokenBuffer)
	assert.Contains(t, err.Error(), "BROKEN_BUFFER")
	assert.ErrorIs(t, err, buffer.ErrBrokenBuffer)
}

func TestRecoverable(t *testing.T) {
	base := errors.New("no placement")
	err := Recoverable(base)
	assert.True(t, IsRecoverable(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "no placement", err.Error())
	assert.NoError(t, Recoverable(nil))
	assert.Equal(t, Failed, Classify(err).Reason, "unhandled recoverable errors still end the session")
}

func TestStateHelpers(t *testing.T) {
	a := buffer.NewArena[int]()
	acc := a.Access(a.Insert(nil))

	_, err := NewestMut(acc)
	assert.Equal(t, ErrCodeBrokenState, Code(err))

	require.NoError(t, acc.WriteLatest(5))
	p, err := NewestMut(acc)
	require.NoError(t, err)
	*p = 6

	v, err := Newest(acc)
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	v, err = PullState(acc)
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	_, err = PullState(acc)
	assert.Equal(t, ErrCodeBrokenState, Code(err))
}

func TestContext_For(t *testing.T) {
	ctx := NewContext(4, input.Frame{Seq: 4}, nil)
	sub := ctx.For("s-1", "create_point")
	assert.Equal(t, "s-1", sub.Session)
	assert.Equal(t, "create_point", sub.Workflow)
	assert.Equal(t, int64(4), sub.Seq)
	assert.Empty(t, ctx.Session, "parent context is untouched")
	assert.NotNil(t, sub.Log())

	var nilCtx *Context
	assert.NotNil(t, nilCtx.Log())
}
