package buffer

type slot[S any] struct {
	generation  uint32
	live        bool
	tearingDown bool
	buf         Buffer[S]
	onTeardown  func(Key)
}

// Arena owns the buffers of every live session of one workflow kind.
//
// Arena is not safe for concurrent use. It is driven from the engine's tick.
type Arena[S any] struct {
	slots []slot[S]
	free  []uint32
	live  int
}

// NewArena creates an empty arena.
func NewArena[S any]() *Arena[S] {
	return &Arena[S]{}
}

// Insert allocates an empty buffer. onTeardown, if non-nil, runs exactly once
// when the buffer is removed, while the buffer is still readable.
func (a *Arena[S]) Insert(onTeardown func(Key)) Key {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[S]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.generation++
	s.live = true
	s.tearingDown = false
	s.buf = Buffer[S]{}
	s.onTeardown = onTeardown
	a.live++

	return Key{index: idx, generation: s.generation}
}

func (a *Arena[S]) slot(k Key) (*slot[S], bool) {
	if k.IsZero() || int(k.index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[k.index]
	if !s.live || s.generation != k.generation {
		return nil, false
	}
	return s, true
}

// Get returns the buffer for k, or ErrBrokenBuffer if k is stale or unknown.
func (a *Arena[S]) Get(k Key) (*Buffer[S], error) {
	s, ok := a.slot(k)
	if !ok {
		return nil, brokenKey(k)
	}
	return &s.buf, nil
}

// Contains reports whether k names a live buffer.
func (a *Arena[S]) Contains(k Key) bool {
	_, ok := a.slot(k)
	return ok
}

// Remove tears the buffer down: the teardown hook runs, the value is
// dropped and k becomes stale. A Remove issued from inside the hook is a
// no-op.
func (a *Arena[S]) Remove(k Key) error {
	s, ok := a.slot(k)
	if !ok {
		return brokenKey(k)
	}
	if s.tearingDown {
		return nil
	}
	s.tearingDown = true
	if hook := s.onTeardown; hook != nil {
		s.onTeardown = nil
		hook(k)
	}

	// The hook may have grown the slot slice; look the slot up again.
	s = &a.slots[k.index]
	s.buf = Buffer[S]{}
	s.live = false
	s.tearingDown = false
	a.free = append(a.free, k.index)
	a.live--
	return nil
}

// Live returns the number of buffers not yet removed.
func (a *Arena[S]) Live() int {
	return a.live
}

// Access binds k to the arena for the services of one session.
func (a *Arena[S]) Access(k Key) Access[S] {
	return Access[S]{arena: a, key: k}
}
