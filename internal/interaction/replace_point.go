package interaction

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// ReplacePoint is the state of a session that rewires an existing point to
// another anchor.
type ReplacePoint struct {
	Point scene.Entity
	Scope scene.AnchorScope

	// Original is the anchor the point referenced when the session started.
	Original scene.Entity

	// Replaced is set once the user committed a new anchor. Cleanup leaves
	// the point alone in that case and reverts it otherwise.
	Replaced bool
}

func (r ReplacePoint) AnchorScope() scene.AnchorScope { return r.Scope }

// ReplacePointGraph builds the replace_point workflow over w.
func ReplacePointGraph(w *scene.World) (*workflow.Graph[scene.Entity, ReplacePoint], error) {
	return buildAnchorWorkflow(w, anchorWorkflow[ReplacePoint]{
		name:     "replace_point",
		escape:   "Exiting point replacement",
		setup:    replacePointSetup(w),
		onHover:  replacePointHover(w),
		onSelect: replacePointSelect(w),
		cleanup:  replacePointCleanup(w),
	})
}

// setChosen moves the point and its dependent edge to chosen unconditionally.
func setChosen(w *scene.World, point, chosen scene.Entity) error {
	current, err := w.PointAnchor(point)
	if err != nil {
		return service.BrokenQuery(err)
	}
	w.ChangeDependent(scene.RemoveDependent(current, point))
	if err := w.SetPointAnchor(point, chosen); err != nil {
		return service.BrokenQuery(err)
	}
	w.ChangeDependent(scene.AddDependent(chosen, point))
	return nil
}

func replacePointSetup(w *scene.World) service.Stage[ReplacePoint] {
	return func(_ *service.Context, acc buffer.Access[ReplacePoint]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		original, err := w.PointAnchor(st.Point)
		if err != nil {
			return service.BrokenQuery(err)
		}
		st.Original = original
		if err := w.SetOriginal(st.Point, original); err != nil {
			return service.BrokenQuery(err)
		}
		return setChosen(w, st.Point, w.Cursor().LevelAnchorPlacement)
	}
}

func replacePointHover(w *scene.World) service.OneShot[ReplacePoint, SelectionCandidate] {
	return func(_ *service.Context, acc buffer.Access[ReplacePoint], cand SelectionCandidate) error {
		st, err := service.Newest(acc)
		if err != nil {
			return err
		}
		return setChosen(w, st.Point, hoverChoice(w, cand))
	}
}

func replacePointSelect(w *scene.World) service.OneShot[ReplacePoint, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[ReplacePoint], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if err := setChosen(w, st.Point, cand.Candidate); err != nil {
			return err
		}
		st.Replaced = true
		ctx.Log().Info("point anchor replaced", "point", st.Point.String(), "from", st.Original.String(), "to", cand.Candidate.String())
		return service.ErrTerminate
	}
}

func replacePointCleanup(w *scene.World) service.Stage[ReplacePoint] {
	return func(ctx *service.Context, acc buffer.Access[ReplacePoint]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		ctx.Log().Debug("replace point cleanup", "point", st.Point.String(), "replaced", st.Replaced)
		if err := w.ClearOriginal(st.Point); err != nil {
			return service.BrokenQuery(err)
		}
		if st.Replaced || !st.Original.Valid() {
			return nil
		}
		return setChosen(w, st.Point, st.Original)
	}
}
