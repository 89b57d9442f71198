package service

// Order is one outstanding request to a Continuous service.
//
// Streamed items are delivered downstream each tick without resolving the
// order. Respond resolves it; only the first response counts.
type Order[E any] struct {
	id       uint64
	items    []E
	value    E
	resolved bool
	taken    bool
}

// NewOrder creates a pending order.
func NewOrder[E any](id uint64) *Order[E] {
	return &Order[E]{id: id}
}

// ID identifies the order within its session.
func (o *Order[E]) ID() uint64 {
	return o.id
}

// Stream emits item downstream. Items streamed after the order resolved are
// dropped.
func (o *Order[E]) Stream(item E) {
	if o.resolved {
		return
	}
	o.items = append(o.items, item)
}

// Respond resolves the order with v. It returns false if the order was
// already resolved, in which case v is ignored.
func (o *Order[E]) Respond(v E) bool {
	if o.resolved {
		return false
	}
	o.value = v
	o.resolved = true
	return true
}

// Resolved reports whether Respond has been called.
func (o *Order[E]) Resolved() bool {
	return o.resolved
}

// Drain returns and clears the streamed items.
func (o *Order[E]) Drain() []E {
	items := o.items
	o.items = nil
	return items
}

// Take returns the response once. Later calls report false.
func (o *Order[E]) Take() (E, bool) {
	var zero E
	if !o.resolved || o.taken {
		return zero, false
	}
	o.taken = true
	v := o.value
	o.value = zero
	return v, true
}
