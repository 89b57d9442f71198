package interaction

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// CreatePoint is the state of a point creation session.
type CreatePoint struct {
	// Repeating keeps the session alive after each point until Escape.
	Repeating bool
	Scope     scene.AnchorScope

	// Point is the pending point being placed. It is None once a
	// non-repeating session committed its point.
	Point scene.Entity
}

func (c CreatePoint) AnchorScope() scene.AnchorScope { return c.Scope }

// CreatePointGraph builds the create_point workflow over w.
func CreatePointGraph(w *scene.World) (*workflow.Graph[scene.Entity, CreatePoint], error) {
	return buildAnchorWorkflow(w, anchorWorkflow[CreatePoint]{
		name:     "create_point",
		escape:   "Exiting point creation",
		setup:    createPointSetup(w),
		onHover:  createPointHover(w),
		onSelect: createPointSelect(w),
		cleanup:  createPointCleanup(w),
	})
}

func spawnPendingPoint(w *scene.World) scene.Entity {
	placement := w.Cursor().LevelAnchorPlacement
	p := w.SpawnPoint("point", placement, true)
	w.ChangeDependent(scene.AddDependent(placement, p))
	return p
}

// changePoint rewires point to chosen and moves its dependent edge.
func changePoint(w *scene.World, point, chosen scene.Entity) error {
	current, err := w.PointAnchor(point)
	if err != nil {
		return service.BrokenQuery(err)
	}
	if current == chosen {
		return nil
	}
	w.ChangeDependent(scene.RemoveDependent(current, point))
	w.ChangeDependent(scene.AddDependent(chosen, point))
	return service.BrokenQuery(w.SetPointAnchor(point, chosen))
}

func createPointSetup(w *scene.World) service.Stage[CreatePoint] {
	return func(_ *service.Context, acc buffer.Access[CreatePoint]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Point.Valid() {
			st.Point = spawnPendingPoint(w)
		}
		return nil
	}
}

func createPointHover(w *scene.World) service.OneShot[CreatePoint, SelectionCandidate] {
	return func(_ *service.Context, acc buffer.Access[CreatePoint], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		chosen := hoverChoice(w, cand)
		if !st.Point.Valid() {
			return service.BrokenState("create_point has no pending point")
		}
		return changePoint(w, st.Point, chosen)
	}
}

func createPointSelect(w *scene.World) service.OneShot[CreatePoint, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[CreatePoint], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Point.Valid() {
			return service.BrokenState("create_point has no pending point")
		}
		if err := changePoint(w, st.Point, cand.Candidate); err != nil {
			return err
		}
		if err := w.SetPending(st.Point, false); err != nil {
			return service.BrokenQuery(err)
		}
		ctx.Log().Info("point created", "point", st.Point.String(), "anchor", cand.Candidate.String(), "provisional", cand.Provisional)

		if st.Repeating {
			st.Point = spawnPendingPoint(w)
			return nil
		}
		st.Point = scene.None
		return service.ErrTerminate
	}
}

func createPointCleanup(w *scene.World) service.Stage[CreatePoint] {
	return func(_ *service.Context, acc buffer.Access[CreatePoint]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		if !st.Point.Valid() {
			return nil
		}
		anchor, err := w.PointAnchor(st.Point)
		if err != nil {
			return service.BrokenQuery(err)
		}
		w.ChangeDependent(scene.RemoveDependent(anchor, st.Point))
		return service.BrokenQuery(w.Despawn(st.Point))
	}
}
