// Package scene is the editor-side collaborator that interactive workflows
// mutate: anchors, points, placed objects, frames, and the cursor.
//
// It is an in-memory model. Rendering and geometry live elsewhere; the
// workflow engine only needs entity identity, parent links, a few marker
// components and the cursor affordances.
package scene

import (
	"fmt"
	"math"
	"sort"
)

// Entity identifies an item in the world. The zero value means "none".
type Entity uint64

// None is the absent entity.
const None Entity = 0

// Valid reports whether e refers to something.
func (e Entity) Valid() bool { return e != None }

func (e Entity) String() string {
	if e == None {
		return "none"
	}
	return fmt.Sprintf("e%d", uint64(e))
}

// Pose is a position plus heading about the Z axis, in radians. A child
// pose is expressed in its parent's frame: the parent yaw rotates the
// child's X and Y before the parent translation applies.
type Pose struct {
	X, Y, Z float64
	Yaw     float64
}

// Add composes p under parent.
func (p Pose) Add(parent Pose) Pose {
	sin, cos := math.Sincos(parent.Yaw)
	return Pose{
		X:   parent.X + cos*p.X - sin*p.Y,
		Y:   parent.Y + sin*p.X + cos*p.Y,
		Z:   parent.Z + p.Z,
		Yaw: parent.Yaw + p.Yaw,
	}
}

// Sub returns p expressed relative to parent. It inverts Add:
// p.Sub(parent).Add(parent) == p up to rounding.
func (p Pose) Sub(parent Pose) Pose {
	sin, cos := math.Sincos(parent.Yaw)
	dx, dy := p.X-parent.X, p.Y-parent.Y
	return Pose{
		X:   cos*dx + sin*dy,
		Y:   -sin*dx + cos*dy,
		Z:   p.Z - parent.Z,
		Yaw: p.Yaw - parent.Yaw,
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("%.3f,%.3f,%.3f@%.3f", p.X, p.Y, p.Z, p.Yaw)
}

// Kind is the category of an entity.
type Kind int

const (
	KindGroup Kind = iota
	KindSite
	KindLevel
	KindDrawing
	KindAnchor
	KindPoint
	KindObject
	KindFrame
	KindCursor
	KindInput
	KindEdge
	KindPath
)

var kindNames = map[Kind]string{
	KindGroup:   "group",
	KindSite:    "site",
	KindLevel:   "level",
	KindDrawing: "drawing",
	KindAnchor:  "anchor",
	KindPoint:   "point",
	KindObject:  "object",
	KindFrame:   "frame",
	KindCursor:  "cursor",
	KindInput:   "input",
	KindEdge:    "edge",
	KindPath:    "path",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AnchorScope selects where new anchors go and which anchors are offered.
type AnchorScope int

const (
	ScopeGeneral AnchorScope = iota
	ScopeDrawing
	ScopeSite
)

func (s AnchorScope) String() string {
	switch s {
	case ScopeDrawing:
		return "drawing"
	case ScopeSite:
		return "site"
	default:
		return "general"
	}
}

// ParseAnchorScope maps a configuration string onto a scope.
func ParseAnchorScope(s string) (AnchorScope, error) {
	switch s {
	case "", "general":
		return ScopeGeneral, nil
	case "drawing":
		return ScopeDrawing, nil
	case "site":
		return ScopeSite, nil
	}
	return ScopeGeneral, fmt.Errorf("unknown anchor scope %q", s)
}

// ErrNoEntity is returned when an operation names an entity that does not
// exist or does not have the requested component.
type ErrNoEntity struct {
	Entity Entity
	Want   string
}

func (e *ErrNoEntity) Error() string {
	if e.Want == "" {
		return fmt.Sprintf("entity %s does not exist", e.Entity)
	}
	return fmt.Sprintf("entity %s has no %s", e.Entity, e.Want)
}

type record struct {
	kind       Kind
	name       string
	parent     Entity
	pose       Pose
	visible    bool
	anchor     Entity // point target
	pending    bool
	original   Entity // Original<Point> marker
	model      string
	input      any
	edge       [2]Entity // edge endpoints, by Side
	edgeOrig   [2]Entity // Original<Edge> marker
	path       []Entity  // path anchors, in order
	dependents map[Entity]struct{}
}

// World is the set of entities plus the editor-level resources that
// interactive workflows toggle.
type World struct {
	next     Entity
	entities map[Entity]*record

	site    Entity
	level   Entity
	drawing Entity

	cursor *Cursor

	highlight      bool
	gizmoSelecting bool
	pickingBlocked bool
	anchorScope    AnchorScope
	hiddenDrawing  map[Entity]struct{}
	hovering       Entity
	selected       Entity
}

// NewWorld creates a world with one site, one level and the cursor rig.
func NewWorld() *World {
	w := &World{
		entities:      make(map[Entity]*record),
		hiddenDrawing: make(map[Entity]struct{}),
	}
	w.site = w.spawn(&record{kind: KindSite, name: "site", visible: true})
	w.level = w.spawn(&record{kind: KindLevel, name: "level", parent: w.site, visible: true})
	w.cursor = newCursor(w)
	return w
}

func (w *World) spawn(r *record) Entity {
	w.next++
	if r.dependents == nil {
		r.dependents = make(map[Entity]struct{})
	}
	w.entities[w.next] = r
	return w.next
}

func (w *World) get(e Entity, want string) (*record, error) {
	r, ok := w.entities[e]
	if !ok {
		return nil, &ErrNoEntity{Entity: e, Want: want}
	}
	return r, nil
}

// Site returns the site root.
func (w *World) Site() Entity { return w.site }

// Level returns the current level.
func (w *World) Level() Entity { return w.level }

// Cursor returns the cursor rig.
func (w *World) Cursor() *Cursor { return w.cursor }

// Count returns the number of live entities.
func (w *World) Count() int { return len(w.entities) }

// Exists reports whether e is live.
func (w *World) Exists(e Entity) bool {
	_, ok := w.entities[e]
	return ok
}

// KindOf returns the kind of e.
func (w *World) KindOf(e Entity) (Kind, bool) {
	r, ok := w.entities[e]
	if !ok {
		return 0, false
	}
	return r.kind, true
}

// Name returns the label given at spawn time.
func (w *World) Name(e Entity) string {
	if r, ok := w.entities[e]; ok {
		return r.name
	}
	return ""
}

// IsAnchor reports whether e is an anchor.
func (w *World) IsAnchor(e Entity) bool {
	k, ok := w.KindOf(e)
	return ok && k == KindAnchor
}

// IsFrame reports whether e can act as a parent frame.
func (w *World) IsFrame(e Entity) bool {
	k, ok := w.KindOf(e)
	return ok && (k == KindFrame || k == KindAnchor)
}

// SpawnAnchor creates a visible anchor under parent.
func (w *World) SpawnAnchor(name string, parent Entity, pose Pose) Entity {
	return w.spawn(&record{kind: KindAnchor, name: name, parent: parent, pose: pose, visible: true})
}

// SpawnDrawing creates a drawing under the level and makes it current.
func (w *World) SpawnDrawing(name string) Entity {
	w.drawing = w.spawn(&record{kind: KindDrawing, name: name, parent: w.level, visible: true})
	return w.drawing
}

// CurrentDrawing returns the drawing being edited, if any.
func (w *World) CurrentDrawing() Entity { return w.drawing }

// SpawnFrame creates a reference frame under parent.
func (w *World) SpawnFrame(name string, parent Entity, pose Pose) Entity {
	return w.spawn(&record{kind: KindFrame, name: name, parent: parent, pose: pose, visible: true})
}

// SpawnObject places a model under parent.
func (w *World) SpawnObject(name, model string, parent Entity, pose Pose) Entity {
	e := w.spawn(&record{kind: KindObject, name: name, model: model, parent: parent, pose: pose, visible: true})
	if p, ok := w.entities[parent]; ok {
		p.dependents[e] = struct{}{}
	}
	return e
}

// SpawnPoint creates a point that references anchor. The point is not
// registered as a dependent; callers do that through AddDependent.
func (w *World) SpawnPoint(name string, anchor Entity, pending bool) Entity {
	return w.spawn(&record{kind: KindPoint, name: name, parent: w.level, anchor: anchor, pending: pending, visible: true})
}

// SpawnInput stores a session input payload on a fresh entity.
func (w *World) SpawnInput(payload any) Entity {
	return w.spawn(&record{kind: KindInput, input: payload})
}

// TakeInput removes the payload stored by SpawnInput and despawns its
// carrier.
func (w *World) TakeInput(e Entity) (any, error) {
	r, err := w.get(e, "")
	if err != nil {
		return nil, err
	}
	if r.kind != KindInput || r.input == nil {
		return nil, &ErrNoEntity{Entity: e, Want: "selector input"}
	}
	payload := r.input
	r.input = nil
	if err := w.Despawn(e); err != nil {
		return nil, err
	}
	return payload, nil
}

// Despawn removes e and all entities parented to it.
func (w *World) Despawn(e Entity) error {
	if _, err := w.get(e, ""); err != nil {
		return err
	}
	for _, child := range w.Children(e) {
		if err := w.Despawn(child); err != nil {
			return err
		}
	}
	delete(w.entities, e)
	for _, r := range w.entities {
		delete(r.dependents, e)
	}
	if w.hovering == e {
		w.hovering = None
	}
	if w.selected == e {
		w.selected = None
	}
	return nil
}

// Children returns the direct children of e in ascending id order.
func (w *World) Children(e Entity) []Entity {
	var out []Entity
	for id, r := range w.entities {
		if r.parent == e {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Parent returns the parent of e.
func (w *World) Parent(e Entity) (Entity, error) {
	r, err := w.get(e, "parent")
	if err != nil {
		return None, err
	}
	return r.parent, nil
}

// SetParent re-parents e without touching its local pose.
func (w *World) SetParent(e, parent Entity) error {
	r, err := w.get(e, "")
	if err != nil {
		return err
	}
	if _, err := w.get(parent, ""); err != nil {
		return err
	}
	r.parent = parent
	return nil
}

// Ancestors returns the parent chain of e, nearest first.
func (w *World) Ancestors(e Entity) []Entity {
	var out []Entity
	seen := map[Entity]bool{e: true}
	for {
		r, ok := w.entities[e]
		if !ok || !r.parent.Valid() || seen[r.parent] {
			return out
		}
		out = append(out, r.parent)
		seen[r.parent] = true
		e = r.parent
	}
}

// IsDescendant reports whether e sits somewhere below ancestor.
func (w *World) IsDescendant(e, ancestor Entity) bool {
	for _, a := range w.Ancestors(e) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// Pose returns the local pose of e.
func (w *World) Pose(e Entity) (Pose, error) {
	r, err := w.get(e, "pose")
	if err != nil {
		return Pose{}, err
	}
	return r.pose, nil
}

// SetPose sets the local pose of e.
func (w *World) SetPose(e Entity, p Pose) error {
	r, err := w.get(e, "pose")
	if err != nil {
		return err
	}
	r.pose = p
	return nil
}

// GlobalPose composes the poses along the parent chain of e.
func (w *World) GlobalPose(e Entity) (Pose, error) {
	r, err := w.get(e, "pose")
	if err != nil {
		return Pose{}, err
	}
	pose := r.pose
	for _, a := range w.Ancestors(e) {
		pose = pose.Add(w.entities[a].pose)
	}
	return pose, nil
}

// Visible reports the visibility flag of e.
func (w *World) Visible(e Entity) bool {
	r, ok := w.entities[e]
	return ok && r.visible
}

// SetVisible toggles e. Unknown entities are ignored.
func (w *World) SetVisible(e Entity, visible bool) {
	if r, ok := w.entities[e]; ok {
		r.visible = visible
	}
}

// Model returns the model name of an object.
func (w *World) Model(e Entity) string {
	if r, ok := w.entities[e]; ok {
		return r.model
	}
	return ""
}

// ParseKind maps a kind name back onto a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindGroup, fmt.Errorf("unknown entity kind %q", s)
}

// CountKind returns the number of live entities of kind k.
func (w *World) CountKind(k Kind) int {
	n := 0
	for _, r := range w.entities {
		if r.kind == k {
			n++
		}
	}
	return n
}
