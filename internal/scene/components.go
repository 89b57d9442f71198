package scene

import "sort"

// PointAnchor returns the anchor a point references.
func (w *World) PointAnchor(p Entity) (Entity, error) {
	r, err := w.point(p)
	if err != nil {
		return None, err
	}
	return r.anchor, nil
}

// SetPointAnchor rewires a point to anchor. Dependents are not touched; see
// ChangeDependent.
func (w *World) SetPointAnchor(p, anchor Entity) error {
	r, err := w.point(p)
	if err != nil {
		return err
	}
	r.anchor = anchor
	return nil
}

func (w *World) point(p Entity) (*record, error) {
	r, err := w.get(p, "point")
	if err != nil {
		return nil, err
	}
	if r.kind != KindPoint {
		return nil, &ErrNoEntity{Entity: p, Want: "point"}
	}
	return r, nil
}

// Points returns every point in ascending id order.
func (w *World) Points() []Entity { return w.ofKind(KindPoint) }

// IsPending reports whether e carries the Pending marker.
func (w *World) IsPending(e Entity) bool {
	r, ok := w.entities[e]
	return ok && r.pending
}

// SetPending adds or removes the Pending marker.
func (w *World) SetPending(e Entity, pending bool) error {
	r, err := w.get(e, "")
	if err != nil {
		return err
	}
	r.pending = pending
	return nil
}

// SetOriginal records the Original marker on a point.
func (w *World) SetOriginal(p, anchor Entity) error {
	r, err := w.point(p)
	if err != nil {
		return err
	}
	r.original = anchor
	return nil
}

// Original returns the anchor recorded by SetOriginal.
func (w *World) Original(p Entity) (Entity, bool) {
	r, ok := w.entities[p]
	if !ok || !r.original.Valid() {
		return None, false
	}
	return r.original, true
}

// ClearOriginal removes the Original marker from a point or an edge.
func (w *World) ClearOriginal(p Entity) error {
	r, err := w.get(p, "")
	if err != nil {
		return err
	}
	r.original = None
	r.edgeOrig = [2]Entity{}
	return nil
}

// Dependents returns the entities registered as depending on e.
func (w *World) Dependents(e Entity) []Entity {
	r, ok := w.entities[e]
	if !ok {
		return nil
	}
	out := make([]Entity, 0, len(r.dependents))
	for d := range r.dependents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DependentChange adds or removes one dependent edge.
type DependentChange struct {
	Of        Entity
	Dependent Entity
	Add       bool
}

// AddDependent builds the change that registers dependent on of.
func AddDependent(of, dependent Entity) DependentChange {
	return DependentChange{Of: of, Dependent: dependent, Add: true}
}

// RemoveDependent builds the change that unregisters dependent from of.
func RemoveDependent(of, dependent Entity) DependentChange {
	return DependentChange{Of: of, Dependent: dependent}
}

// ChangeDependent applies c. Edges on missing entities are ignored, the
// same way the editor drops commands aimed at despawned entities.
func (w *World) ChangeDependent(c DependentChange) {
	r, ok := w.entities[c.Of]
	if !ok {
		return
	}
	if c.Add {
		r.dependents[c.Dependent] = struct{}{}
		return
	}
	delete(r.dependents, c.Dependent)
}

// Highlight reports whether anchors are highlighted.
func (w *World) Highlight() bool { return w.highlight }

// SetHighlight toggles anchor highlighting.
func (w *World) SetHighlight(on bool) { w.highlight = on }

// GizmoSelecting reports whether gizmos are blocked by a selection workflow.
func (w *World) GizmoSelecting() bool { return w.gizmoSelecting }

// SetGizmoSelecting toggles the selection gizmo blocker.
func (w *World) SetGizmoSelecting(on bool) { w.gizmoSelecting = on }

// PickingBlocked reports whether clicks should be ignored, for example while
// the pointer is over a panel.
func (w *World) PickingBlocked() bool { return w.pickingBlocked }

// SetPickingBlocked toggles the picking blocker.
func (w *World) SetPickingBlocked(on bool) { w.pickingBlocked = on }

// AnchorScope returns the active anchor scope.
func (w *World) AnchorScope() AnchorScope { return w.anchorScope }

// SetAnchorScope changes the active anchor scope.
func (w *World) SetAnchorScope(s AnchorScope) { w.anchorScope = s }

// HideDrawingAnchors hides every visible anchor that belongs to a drawing and
// remembers it.
func (w *World) HideDrawingAnchors() {
	for id, r := range w.entities {
		if r.kind != KindAnchor || !r.visible {
			continue
		}
		parent, ok := w.entities[r.parent]
		if ok && parent.kind == KindDrawing {
			r.visible = false
			w.hiddenDrawing[id] = struct{}{}
		}
	}
}

// RestoreDrawingAnchors shows the anchors hidden by HideDrawingAnchors.
func (w *World) RestoreDrawingAnchors() {
	for id := range w.hiddenDrawing {
		w.SetVisible(id, true)
		delete(w.hiddenDrawing, id)
	}
}

// HiddenDrawingAnchors returns how many anchors are currently hidden.
func (w *World) HiddenDrawingAnchors() int { return len(w.hiddenDrawing) }

// Hovering returns the entity the picker last reported.
func (w *World) Hovering() Entity { return w.hovering }

// SetHovering records the hovered entity.
func (w *World) SetHovering(e Entity) { w.hovering = e }

// Selected returns the inspector selection.
func (w *World) Selected() Entity { return w.selected }

// Select sets the inspector selection. None clears it.
func (w *World) Select(e Entity) { w.selected = e }
