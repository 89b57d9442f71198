// Package buffer holds the per-session state of interactive workflows.
//
// A Buffer keeps at most one value ("keep last 1"). Buffers live in an Arena
// and are addressed through generation-checked Keys, so a step that holds a
// key from a finished session gets ErrBrokenBuffer instead of somebody
// else's state. An empty buffer is not an error; a missing one is.
package buffer

import (
	"errors"
	"fmt"
)

// ErrBrokenBuffer reports a key that does not name a live buffer. It means
// the workflow was wired incorrectly.
var ErrBrokenBuffer = errors.New("broken buffer")

// Buffer is a single-slot store with a write generation.
type Buffer[S any] struct {
	value      S
	full       bool
	generation uint64
}

// WriteLatest stores v, replacing any value that was not consumed.
func (b *Buffer[S]) WriteLatest(v S) {
	b.value = v
	b.full = true
	b.generation++
}

// PeekLatest returns the value without consuming it.
func (b *Buffer[S]) PeekLatest() (S, bool) {
	return b.value, b.full
}

// PeekLatestMut returns a pointer to the stored value, or nil when empty.
// The pointer is valid until the next WriteLatest or Pull.
func (b *Buffer[S]) PeekLatestMut() *S {
	if !b.full {
		return nil
	}
	return &b.value
}

// Pull removes and returns the value.
func (b *Buffer[S]) Pull() (S, bool) {
	var zero S
	if !b.full {
		return zero, false
	}
	v := b.value
	b.value = zero
	b.full = false
	return v, true
}

// Len is 1 when a value is stored and 0 otherwise.
func (b *Buffer[S]) Len() int {
	if b.full {
		return 1
	}
	return 0
}

// Generation counts writes. Comparing generations tells a reader whether
// the value changed since it last looked.
func (b *Buffer[S]) Generation() uint64 {
	return b.generation
}

// Key addresses a buffer inside an Arena. The zero Key is never valid.
type Key struct {
	index      uint32
	generation uint32
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return k == Key{}
}

func (k Key) String() string {
	return fmt.Sprintf("buffer(%d:%d)", k.index, k.generation)
}

func brokenKey(k Key) error {
	return fmt.Errorf("%w: %s", ErrBrokenBuffer, k)
}
