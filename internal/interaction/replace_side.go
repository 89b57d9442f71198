package interaction

import (
	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// ReplaceSide is the state of a session that rewires one endpoint of an
// existing edge.
type ReplaceSide struct {
	Edge  scene.Entity
	Side  scene.Side
	Scope scene.AnchorScope

	// Original holds the edge's anchors from when the session started.
	Original [2]scene.Entity

	// Replaced is set once the user committed a new anchor; cleanup reverts
	// the edge otherwise.
	Replaced bool

	// LevelConsistency refuses anchors that do not share a parent with the
	// anchor being replaced.
	LevelConsistency bool
}

func (r ReplaceSide) AnchorScope() scene.AnchorScope { return r.Scope }

// ReplaceSideGraph builds the replace_side workflow over w.
func ReplaceSideGraph(w *scene.World) (*workflow.Graph[scene.Entity, ReplaceSide], error) {
	return buildAnchorWorkflow(w, anchorWorkflow[ReplaceSide]{
		name:     "replace_side",
		escape:   "Exiting edge side replacement",
		setup:    replaceSideSetup(w),
		onHover:  replaceSideHover(w),
		onSelect: replaceSideSelect(w),
		cleanup:  replaceSideCleanup(w),
	})
}

// setSide points st.Side of the edge at chosen, starting from the original
// anchors. Choosing the opposite anchor flips the edge. It reports false
// when chosen is refused.
func setSide(ctx *service.Context, w *scene.World, st *ReplaceSide, chosen scene.Entity) (bool, error) {
	if !st.Original[scene.SideStart].Valid() {
		return false, service.BrokenState("replace_side has no original edge")
	}
	if st.LevelConsistency && chosen != w.Cursor().LevelAnchorPlacement {
		same, err := w.Siblings(st.Original[st.Side], chosen)
		if err != nil {
			return false, service.BrokenQuery(err)
		}
		if !same {
			ctx.Log().Warn("Unable to use selected anchor because it is on an incompatible level",
				"anchor", chosen.String())
			return false, nil
		}
	}

	current, err := w.EdgeAnchors(st.Edge)
	if err != nil {
		return false, service.BrokenQuery(err)
	}
	for _, a := range current {
		w.ChangeDependent(scene.RemoveDependent(a, st.Edge))
	}

	next := st.Original
	if chosen == st.Original[st.Side.Opposite()] {
		next[scene.SideStart], next[scene.SideEnd] = st.Original[scene.SideEnd], st.Original[scene.SideStart]
	} else {
		next[st.Side] = chosen
	}
	for _, side := range []scene.Side{scene.SideStart, scene.SideEnd} {
		if err := w.SetEdgeAnchor(st.Edge, side, next[side]); err != nil {
			return false, service.BrokenQuery(err)
		}
		w.ChangeDependent(scene.AddDependent(next[side], st.Edge))
	}
	return true, nil
}

func replaceSideSetup(w *scene.World) service.Stage[ReplaceSide] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceSide]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		original, err := w.EdgeAnchors(st.Edge)
		if err != nil {
			return service.BrokenQuery(err)
		}
		st.Original = original
		if err := w.SetOriginalEdge(st.Edge, original); err != nil {
			return service.BrokenQuery(err)
		}
		_, err = setSide(ctx, w, st, w.Cursor().LevelAnchorPlacement)
		return err
	}
}

func replaceSideHover(w *scene.World) service.OneShot[ReplaceSide, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceSide], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		_, err = setSide(ctx, w, st, hoverChoice(w, cand))
		return err
	}
}

func replaceSideSelect(w *scene.World) service.OneShot[ReplaceSide, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceSide], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		ok, err := setSide(ctx, w, st, cand.Candidate)
		if err != nil || !ok {
			return err
		}
		st.Replaced = true
		ctx.Log().Info("edge side replaced",
			"edge", st.Edge.String(),
			"side", st.Side.String(),
			"from", st.Original[st.Side].String(),
			"to", cand.Candidate.String())
		return service.ErrTerminate
	}
}

func replaceSideCleanup(w *scene.World) service.Stage[ReplaceSide] {
	return func(ctx *service.Context, acc buffer.Access[ReplaceSide]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		if err := w.ClearOriginal(st.Edge); err != nil {
			return service.BrokenQuery(err)
		}
		if st.Replaced || !st.Original[scene.SideStart].Valid() {
			return nil
		}
		_, err = setSide(ctx, w, &st, st.Original[st.Side])
		return err
	}
}
