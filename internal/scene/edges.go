package scene

import (
	"fmt"
	"slices"
	"sort"
)

// Side names one endpoint of an edge.
type Side int

const (
	SideStart Side = iota
	SideEnd
)

// Opposite returns the other endpoint.
func (s Side) Opposite() Side {
	if s == SideStart {
		return SideEnd
	}
	return SideStart
}

func (s Side) String() string {
	if s == SideEnd {
		return "end"
	}
	return "start"
}

// ParseSide maps "start" or "end" onto a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "start":
		return SideStart, nil
	case "end":
		return SideEnd, nil
	}
	return SideStart, fmt.Errorf("unknown edge side %q", s)
}

// SpawnEdge creates an edge of category (wall, lane, door, ...) between two
// anchors. Like SpawnPoint, it does not register itself as a dependent of
// its anchors.
func (w *World) SpawnEdge(category string, start, end Entity, pending bool) Entity {
	return w.spawn(&record{
		kind:    KindEdge,
		name:    category,
		model:   category,
		parent:  w.level,
		edge:    [2]Entity{start, end},
		pending: pending,
		visible: true,
	})
}

func (w *World) edgeRecord(e Entity) (*record, error) {
	r, err := w.get(e, "edge")
	if err != nil {
		return nil, err
	}
	if r.kind != KindEdge {
		return nil, &ErrNoEntity{Entity: e, Want: "edge"}
	}
	return r, nil
}

// EdgeAnchors returns the start and end anchors of an edge.
func (w *World) EdgeAnchors(e Entity) ([2]Entity, error) {
	r, err := w.edgeRecord(e)
	if err != nil {
		return [2]Entity{}, err
	}
	return r.edge, nil
}

// SetEdgeAnchor rewires one endpoint. Dependents are not touched.
func (w *World) SetEdgeAnchor(e Entity, side Side, anchor Entity) error {
	r, err := w.edgeRecord(e)
	if err != nil {
		return err
	}
	if side != SideStart && side != SideEnd {
		return fmt.Errorf("edge %s: invalid side %d", e, int(side))
	}
	r.edge[side] = anchor
	return nil
}

// SetOriginalEdge records the Original marker on an edge.
func (w *World) SetOriginalEdge(e Entity, anchors [2]Entity) error {
	r, err := w.edgeRecord(e)
	if err != nil {
		return err
	}
	r.edgeOrig = anchors
	return nil
}

// OriginalEdge returns the anchors recorded by SetOriginalEdge.
func (w *World) OriginalEdge(e Entity) ([2]Entity, bool) {
	r, ok := w.entities[e]
	if !ok || !r.edgeOrig[SideStart].Valid() {
		return [2]Entity{}, false
	}
	return r.edgeOrig, true
}

// Siblings reports whether two anchors share a parent.
func (w *World) Siblings(a, b Entity) (bool, error) {
	pa, err := w.Parent(a)
	if err != nil {
		return false, err
	}
	pb, err := w.Parent(b)
	if err != nil {
		return false, err
	}
	return pa == pb, nil
}

// SpawnPath creates a path of category (floor, ...) through anchors.
func (w *World) SpawnPath(category string, anchors []Entity, pending bool) Entity {
	return w.spawn(&record{
		kind:    KindPath,
		name:    category,
		model:   category,
		parent:  w.level,
		path:    slices.Clone(anchors),
		pending: pending,
		visible: true,
	})
}

func (w *World) pathRecord(e Entity) (*record, error) {
	r, err := w.get(e, "path")
	if err != nil {
		return nil, err
	}
	if r.kind != KindPath {
		return nil, &ErrNoEntity{Entity: e, Want: "path"}
	}
	return r, nil
}

// PathAnchors returns a copy of the anchors of a path, in order.
func (w *World) PathAnchors(e Entity) ([]Entity, error) {
	r, err := w.pathRecord(e)
	if err != nil {
		return nil, err
	}
	return slices.Clone(r.path), nil
}

// SetPathAnchors replaces the anchors of a path. Dependents are not touched.
func (w *World) SetPathAnchors(e Entity, anchors []Entity) error {
	r, err := w.pathRecord(e)
	if err != nil {
		return err
	}
	r.path = slices.Clone(anchors)
	return nil
}

// Category returns the category an edge or path was spawned with.
func (w *World) Category(e Entity) string {
	r, ok := w.entities[e]
	if !ok || (r.kind != KindEdge && r.kind != KindPath) {
		return ""
	}
	return r.model
}

// Edges returns every edge in ascending id order.
func (w *World) Edges() []Entity { return w.ofKind(KindEdge) }

// Paths returns every path in ascending id order.
func (w *World) Paths() []Entity { return w.ofKind(KindPath) }

func (w *World) ofKind(k Kind) []Entity {
	var out []Entity
	for id, r := range w.entities {
		if r.kind == k {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
