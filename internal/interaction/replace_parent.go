package interaction

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// ReplaceParent3D is the state of a session that moves an object under a
// new frame.
type ReplaceParent3D struct {
	Object scene.Entity

	// Workspace is the parent used when the user picks nothing, and the key
	// of the cursor blocker held during the session.
	Workspace scene.Entity
}

// ReplaceParent3DGraph builds the replace_parent_3d workflow over w.
func ReplaceParent3DGraph(w *scene.World) (*workflow.Graph[scene.Entity, ReplaceParent3D], error) {
	return workflow.New[scene.Entity, ReplaceParent3D]("replace_parent_3d").
		Extract(extractSelectorInput[ReplaceParent3D](w)).
		Setup("replace_parent_3d_setup", replaceParentSetup(w)).
		Branch(
			workflow.Track[ReplaceParent3D, scene.Entity]("find_parent", findParent(w), parentChosen(w)),
			workflow.ExitOnEscape[ReplaceParent3D](""),
		).
		Cleanup("replace_parent_3d_cleanup", replaceParentCleanup(w)).
		Build()
}

func replaceParentSetup(w *scene.World) service.Stage[ReplaceParent3D] {
	return func(_ *service.Context, acc buffer.Access[ReplaceParent3D]) error {
		st, err := service.Newest(acc)
		if err != nil {
			return err
		}
		w.SetHighlight(true)
		w.SetGizmoSelecting(true)
		// The workspace is stable for the whole session and no other system
		// toggles a blocker with its id.
		w.Cursor().AddBlocker(st.Workspace)
		return nil
	}
}

func replaceParentCleanup(w *scene.World) service.Stage[ReplaceParent3D] {
	return func(_ *service.Context, acc buffer.Access[ReplaceParent3D]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		w.SetHighlight(false)
		w.SetGizmoSelecting(false)
		w.Cursor().RemoveBlocker(st.Workspace)
		return nil
	}
}

func parentCandidate(w *scene.World, e scene.Entity) bool {
	k, ok := w.KindOf(e)
	if !ok {
		return false
	}
	switch k {
	case scene.KindFrame, scene.KindAnchor, scene.KindObject, scene.KindDrawing, scene.KindLevel, scene.KindSite:
		return true
	}
	return false
}

// findParent tracks the hovered parent candidate and resolves with it, or
// with None, on a click. The object itself and its descendants are refused.
func findParent(w *scene.World) service.Continuous[ReplaceParent3D, scene.Entity] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceParent3D], o *service.Order[scene.Entity]) {
		st, err := service.Newest(acc)
		if err != nil {
			ctx.Log().Error("find_parent lost its state", "error", err)
			return
		}

		hovered := ctx.Input.Hovered
		ignoreClick := false
		switch {
		case !parentCandidate(w, hovered):
			hovered = scene.None
		case hovered == st.Object:
			ctx.Log().Debug("Cannot select an object to be its own parent")
			hovered, ignoreClick = scene.None, true
		case w.IsDescendant(hovered, st.Object):
			ctx.Log().Debug("Cannot select a child of the object to be its parent")
			hovered, ignoreClick = scene.None, true
		}

		if hovered != w.Hovering() {
			w.SetHovering(hovered)
		}

		if ctx.Input.MouseJustPressed && !w.PickingBlocked() && !ignoreClick {
			o.Respond(hovered)
		}
	}
}

// parentChosen climbs from the picked entity to the nearest frame, falling
// back to the workspace, and re-parents the object there keeping its world
// pose.
func parentChosen(w *scene.World) service.OneShot[ReplaceParent3D, scene.Entity] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceParent3D], picked scene.Entity) error {
		st, err := service.Newest(acc)
		if err != nil {
			return err
		}

		parent := st.Workspace
		if picked.Valid() {
			if w.IsFrame(picked) {
				parent = picked
			} else {
				for _, a := range w.Ancestors(picked) {
					if w.IsFrame(a) {
						parent = a
						break
					}
				}
			}
		}

		previous, err := w.Parent(st.Object)
		if err != nil {
			return service.BrokenQuery(err)
		}
		if parent == previous {
			ctx.Log().Info("Object's parent remains the same")
			return nil
		}

		objectPose, err := w.GlobalPose(st.Object)
		if err != nil {
			return service.BrokenQuery(err)
		}
		parentPose, err := w.GlobalPose(parent)
		if err != nil {
			return service.BrokenQuery(err)
		}

		if err := w.SetPose(st.Object, objectPose.Sub(parentPose)); err != nil {
			return service.BrokenQuery(err)
		}
		if err := w.SetParent(st.Object, parent); err != nil {
			return service.BrokenQuery(err)
		}
		w.ChangeDependent(scene.RemoveDependent(previous, st.Object))
		w.ChangeDependent(scene.AddDependent(parent, st.Object))
		ctx.Log().Info("object re-parented", "object", st.Object.String(), "from", previous.String(), "to", parent.String())
		return nil
	}
}
