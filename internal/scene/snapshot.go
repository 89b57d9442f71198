package scene

import "slices"

// EntityState is the comparable part of one entity.
type EntityState struct {
	Kind       Kind
	Parent     Entity
	Anchor     Entity
	Pending    bool
	Original   Entity
	Visible    bool
	Pose       Pose
	Edge       [2]Entity
	EdgeOrig   [2]Entity
	Path       []Entity
	Dependents []Entity
}

// Snapshot is a value copy of the world used to check that a cancelled
// session left nothing behind.
type Snapshot struct {
	Entities  map[Entity]EntityState
	Modes     []string
	Highlight bool
	Gizmo     bool
	Scope     AnchorScope
}

// Snapshot copies the current world state.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Entities:  make(map[Entity]EntityState, len(w.entities)),
		Modes:     w.cursor.Modes(),
		Highlight: w.highlight,
		Gizmo:     w.gizmoSelecting,
		Scope:     w.anchorScope,
	}
	for id, r := range w.entities {
		if r.kind == KindCursor && id == w.cursor.Frame {
			// The cursor frame follows the pointer; its pose is not world state.
			s.Entities[id] = EntityState{Kind: r.kind}
			continue
		}
		s.Entities[id] = EntityState{
			Kind:       r.kind,
			Parent:     r.parent,
			Anchor:     r.anchor,
			Pending:    r.pending,
			Original:   r.original,
			Visible:    r.visible,
			Pose:       r.pose,
			Edge:       r.edge,
			EdgeOrig:   r.edgeOrig,
			Path:       slices.Clone(r.path),
			Dependents: w.Dependents(id),
		}
	}
	return s
}
