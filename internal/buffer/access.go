package buffer

// Access is the handle a service receives for its session's buffer. Every
// method fails with ErrBrokenBuffer once the session is gone; an empty
// buffer is reported through the ok result instead.
type Access[S any] struct {
	arena *Arena[S]
	key   Key
}

// Key returns the buffer key.
func (a Access[S]) Key() Key {
	return a.key
}

func (a Access[S]) buffer() (*Buffer[S], error) {
	if a.arena == nil {
		return nil, brokenKey(a.key)
	}
	return a.arena.Get(a.key)
}

// WriteLatest stores v.
func (a Access[S]) WriteLatest(v S) error {
	b, err := a.buffer()
	if err != nil {
		return err
	}
	b.WriteLatest(v)
	return nil
}

// PeekLatest returns a copy of the stored value.
func (a Access[S]) PeekLatest() (S, bool, error) {
	b, err := a.buffer()
	if err != nil {
		var zero S
		return zero, false, err
	}
	v, ok := b.PeekLatest()
	return v, ok, nil
}

// PeekLatestMut returns a pointer to the stored value, nil when empty.
func (a Access[S]) PeekLatestMut() (*S, error) {
	b, err := a.buffer()
	if err != nil {
		return nil, err
	}
	return b.PeekLatestMut(), nil
}

// Pull consumes the stored value.
func (a Access[S]) Pull() (S, bool, error) {
	b, err := a.buffer()
	if err != nil {
		var zero S
		return zero, false, err
	}
	v, ok := b.Pull()
	return v, ok, nil
}
