// Package interaction defines the editor's interactive workflows: creating
// and rewiring points, drawing edges and paths between anchors, placing
// objects and re-parenting them.
//
// Every workflow is a workflow.Graph over the scene. Anchor-picking
// workflows share one shape: anchor setup, a kind-specific setup, a cursor
// that follows the ground, an anchor selection stream and a keyboard branch.
// The keyboard branch exits on Escape unless the workflow can back out one
// step at a time. Their cleanup undoes the kind-specific setup first, then the
// anchor setup.
package interaction

import (
	"errors"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// Cursor mode labels.
const (
	SelectAnchorModeLabel  = "select_anchor"
	PlaceObject2DModeLabel = "place_object_2d"
)

// SelectionCandidate is an anchor offered to a workflow. Provisional anchors
// were created by the click that selected them.
type SelectionCandidate struct {
	Candidate   scene.Entity
	Provisional bool
}

// SelectionKind tells hover events from clicks.
type SelectionKind int

const (
	Hover SelectionKind = iota + 1
	Select
)

// Selection is one event from the anchor selection stream. A Hover with no
// candidate means the pointer left every anchor.
type Selection struct {
	Kind      SelectionKind
	Candidate SelectionCandidate
}

type anchorScoped interface {
	AnchorScope() scene.AnchorScope
}

var errNoDrawing = errors.New("no drawing is being edited")

// extractSelectorInput takes the session input off its carrier entity and
// despawns the carrier.
func extractSelectorInput[S any](w *scene.World) workflow.Extractor[scene.Entity, S] {
	return func(_ *service.Context, target *scene.Entity) (S, error) {
		var zero S
		if target == nil {
			return zero, service.MissingState("no selector input entity")
		}
		payload, err := w.TakeInput(*target)
		if err != nil {
			return zero, service.MissingState("selector input %s: %v", *target, err)
		}
		s, ok := payload.(S)
		if !ok {
			return zero, service.BrokenState("selector input %s holds %T", *target, payload)
		}
		return s, nil
	}
}

func anchorSetup[S anchorScoped](w *scene.World) service.Stage[S] {
	return func(_ *service.Context, acc buffer.Access[S]) error {
		st, err := service.Newest(acc)
		if err != nil {
			return err
		}
		scope := st.AnchorScope()
		w.SetAnchorScope(scope)
		if scope != scene.ScopeDrawing {
			w.HideDrawingAnchors()
		}

		c := w.Cursor()
		if scope == scene.ScopeSite {
			w.SetVisible(c.SiteAnchorPlacement, true)
		} else {
			w.SetVisible(c.LevelAnchorPlacement, true)
		}
		w.SetHighlight(true)
		c.AddMode(SelectAnchorModeLabel)
		return nil
	}
}

func anchorCleanup[S any](w *scene.World) service.Stage[S] {
	return func(*service.Context, buffer.Access[S]) error {
		c := w.Cursor()
		c.RemoveMode(SelectAnchorModeLabel)
		w.SetVisible(c.LevelAnchorPlacement, false)
		w.SetVisible(c.SiteAnchorPlacement, false)
		w.RestoreDrawingAnchors()
		w.SetHighlight(false)
		w.SetAnchorScope(scene.ScopeGeneral)
		w.SetHovering(scene.None)
		return nil
	}
}

// pickableAnchor filters the picker's result down to a selectable anchor.
func pickableAnchor(w *scene.World, e scene.Entity) scene.Entity {
	if !w.IsAnchor(e) || !w.Visible(e) {
		return scene.None
	}
	if parent, err := w.Parent(e); err == nil && parent == w.Cursor().Frame {
		return scene.None
	}
	return e
}

// anchorSelection streams Hover when the hovered anchor changes and Select
// on a click. A click over empty space creates a provisional anchor at the
// cursor.
func anchorSelection[S anchorScoped](w *scene.World) service.Continuous[S, Selection] {
	return func(ctx *service.Context, acc buffer.Access[S], o *service.Order[Selection]) {
		hovered := pickableAnchor(w, ctx.Input.Hovered)
		if hovered != w.Hovering() {
			w.SetHovering(hovered)
			o.Stream(Selection{Kind: Hover, Candidate: SelectionCandidate{Candidate: hovered}})
		}

		if !ctx.Input.MouseJustPressed || w.PickingBlocked() {
			return
		}
		if hovered.Valid() {
			o.Stream(Selection{Kind: Select, Candidate: SelectionCandidate{Candidate: hovered}})
			return
		}

		st, err := service.Newest(acc)
		if err != nil {
			ctx.Log().Error("anchor selection lost its state", "error", err)
			return
		}
		anchor, err := provisionalAnchor(w, st.AnchorScope())
		if err != nil {
			ctx.Log().Warn("unable to create an anchor here", "error", err)
			return
		}
		o.Stream(Selection{Kind: Select, Candidate: SelectionCandidate{Candidate: anchor, Provisional: true}})
	}
}

func provisionalAnchor(w *scene.World, scope scene.AnchorScope) (scene.Entity, error) {
	var parent scene.Entity
	switch scope {
	case scene.ScopeSite:
		parent = w.Site()
	case scene.ScopeDrawing:
		parent = w.CurrentDrawing()
		if !parent.Valid() {
			return scene.None, errNoDrawing
		}
	default:
		parent = w.Level()
	}
	origin, err := w.GlobalPose(parent)
	if err != nil {
		return scene.None, service.BrokenQuery(err)
	}
	return w.SpawnAnchor("anchor", parent, w.Cursor().Pose().Sub(origin)), nil
}

// followCursor keeps the cursor frame on the ground intersection. Its output
// is unused.
func followCursor[S any](w *scene.World) service.Continuous[S, struct{}] {
	return func(ctx *service.Context, _ buffer.Access[S], _ *service.Order[struct{}]) {
		if at, ok := ctx.Input.Ground(); ok {
			w.Cursor().MoveTo(at)
		}
	}
}

// hoverChoice returns the anchor a point should preview: the hovered one, or
// the cursor's placement anchor while nothing is hovered.
func hoverChoice(w *scene.World, cand SelectionCandidate) scene.Entity {
	c := w.Cursor()
	if cand.Candidate.Valid() {
		c.RemoveMode(SelectAnchorModeLabel)
		return cand.Candidate
	}
	c.AddMode(SelectAnchorModeLabel)
	return c.LevelAnchorPlacement
}

type anchorWorkflow[S anchorScoped] struct {
	name     string
	escape   string
	setup    service.Stage[S]
	onHover  service.OneShot[S, SelectionCandidate]
	onSelect service.OneShot[S, SelectionCandidate]
	cleanup  service.Stage[S]

	// backout, if set, unwinds one step of the session. Escape and the
	// selector's Backout both run it; nil keeps the shared Escape branch.
	backout service.Stage[S]
}

func buildAnchorWorkflow[S anchorScoped](w *scene.World, def anchorWorkflow[S]) (*workflow.Graph[scene.Entity, S], error) {
	route := func(ctx *service.Context, acc buffer.Access[S], sel Selection) error {
		switch sel.Kind {
		case Hover:
			return def.onHover(ctx, acc, sel.Candidate)
		case Select:
			return def.onSelect(ctx, acc, sel.Candidate)
		}
		return nil
	}

	keyboard := workflow.ExitOnEscape[S](def.escape)
	if def.backout != nil {
		keyboard = workflow.Track[S, input.Key]("keyboard", workflow.KeyboardJustPressed[S], escapeBacksOut(def.escape, def.backout))
	}

	b := workflow.New[scene.Entity, S](def.name).
		Extract(extractSelectorInput[S](w)).
		Setup("anchor_setup", anchorSetup[S](w)).
		Setup(def.name+"_setup", def.setup).
		Branch(
			workflow.Watch[S, struct{}]("cursor_transform", followCursor[S](w)),
			workflow.Track[S, Selection]("select", anchorSelection[S](w), route),
			keyboard,
		).
		Cleanup(def.name+"_cleanup", def.cleanup).
		Cleanup("anchor_cleanup", anchorCleanup[S](w))
	if def.backout != nil {
		b = b.Backout(def.name+"_backout", def.backout)
	}
	return b.Build()
}

// escapeBacksOut runs backout on Escape. message is logged when backing out
// ends the session.
func escapeBacksOut[S any](message string, backout service.Stage[S]) service.OneShot[S, input.Key] {
	return func(ctx *service.Context, acc buffer.Access[S], k input.Key) error {
		if k != input.KeyEscape {
			return nil
		}
		err := backout(ctx, acc)
		if err != nil && message != "" {
			ctx.Log().Info(message)
		}
		return err
	}
}
