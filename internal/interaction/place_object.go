package interaction

import (
	"errors"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// NoPlacementMessage is logged when the user clicks while the cursor ray
// misses the ground.
const NoPlacementMessage = "Unable to find a placement position. Try adjusting your camera angle."

var errNoPlacement = errors.New(NoPlacementMessage)

// PlaceObject2D is the state of a session that drops a model onto a level.
type PlaceObject2D struct {
	// Object is the model to place.
	Object string
	Level  scene.Entity

	// Preview is the model attached to the cursor while placing.
	Preview scene.Entity

	highlight bool
}

// placement is a click, with or without a ground intersection under it.
type placement struct {
	pose   scene.Pose
	ground bool
}

// PlaceObject2DGraph builds the place_object_2d workflow over w.
func PlaceObject2DGraph(w *scene.World) (*workflow.Graph[scene.Entity, PlaceObject2D], error) {
	return workflow.New[scene.Entity, PlaceObject2D]("place_object_2d").
		Extract(extractSelectorInput[PlaceObject2D](w)).
		Setup("place_object_2d_setup", placeObjectSetup(w)).
		Branch(
			workflow.Watch[PlaceObject2D, struct{}]("cursor_transform", followCursor[PlaceObject2D](w)),
			workflow.Track[PlaceObject2D, placement]("find_placement", findPlacement(w), placeObject(w)),
			workflow.ExitOnEscape[PlaceObject2D]("Exiting 2D object placement"),
		).
		Cleanup("place_object_2d_cleanup", placeObjectCleanup(w)).
		Build()
}

func placeObjectSetup(w *scene.World) service.Stage[PlaceObject2D] {
	return func(_ *service.Context, acc buffer.Access[PlaceObject2D]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !w.Exists(st.Level) {
			return service.BrokenQuery(&scene.ErrNoEntity{Entity: st.Level, Want: "level"})
		}

		c := w.Cursor()
		st.Preview = c.SetPreview(st.Object)
		w.SetVisible(c.Dagger, false)
		w.SetVisible(c.Halo, false)
		st.highlight = w.Highlight()
		w.SetHighlight(false)
		w.SetGizmoSelecting(true)
		c.AddMode(PlaceObject2DModeLabel)
		return nil
	}
}

// findPlacement resolves on the first unblocked click.
func findPlacement(w *scene.World) service.Continuous[PlaceObject2D, placement] {
	return func(ctx *service.Context, _ buffer.Access[PlaceObject2D], o *service.Order[placement]) {
		if !ctx.Input.MouseJustPressed || w.PickingBlocked() {
			return
		}
		pose, ok := ctx.Input.Ground()
		o.Respond(placement{pose: pose, ground: ok})
	}
}

// placeObject commits the model at the clicked pose. A click that missed the
// ground is recoverable: the session waits for another click.
func placeObject(w *scene.World) service.OneShot[PlaceObject2D, placement] {
	return func(ctx *service.Context, acc buffer.Access[PlaceObject2D], p placement) error {
		if !p.ground {
			return service.Recoverable(errNoPlacement)
		}
		st, err := service.Newest(acc)
		if err != nil {
			return err
		}
		origin, err := w.GlobalPose(st.Level)
		if err != nil {
			return service.BrokenQuery(err)
		}
		obj := w.SpawnObject(st.Object, st.Object, st.Level, p.pose.Sub(origin))
		ctx.Log().Info("object placed", "object", obj.String(), "model", st.Object, "pose", p.pose.String())
		return nil
	}
}

func placeObjectCleanup(w *scene.World) service.Stage[PlaceObject2D] {
	return func(_ *service.Context, acc buffer.Access[PlaceObject2D]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		c := w.Cursor()
		c.RemovePreview()
		w.SetVisible(c.Dagger, true)
		w.SetVisible(c.Halo, true)
		w.SetHighlight(st.highlight)
		w.SetGizmoSelecting(false)
		c.RemoveMode(PlaceObject2DModeLabel)
		return nil
	}
}
