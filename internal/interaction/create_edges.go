package interaction

import (
	"fmt"
	"sort"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// EdgeContinuity decides what follows a finished edge.
type EdgeContinuity int

const (
	// EdgeSingle ends the session after one edge.
	EdgeSingle EdgeContinuity = iota
	// EdgeSeparate starts a fresh edge that shares nothing with the last.
	EdgeSeparate
	// EdgeContinuous starts the next edge at the end of the last one.
	EdgeContinuous
)

func (c EdgeContinuity) String() string {
	switch c {
	case EdgeSeparate:
		return "separate"
	case EdgeContinuous:
		return "continuous"
	default:
		return "single"
	}
}

// EdgeCategory is a kind of edge the editor can draw.
type EdgeCategory struct {
	Name       string
	Continuity EdgeContinuity
	Scope      scene.AnchorScope
}

var edgeCategories = map[string]EdgeCategory{
	"wall":        {Name: "wall", Continuity: EdgeContinuous, Scope: scene.ScopeGeneral},
	"lane":        {Name: "lane", Continuity: EdgeContinuous, Scope: scene.ScopeGeneral},
	"measurement": {Name: "measurement", Continuity: EdgeSeparate, Scope: scene.ScopeDrawing},
	"door":        {Name: "door", Continuity: EdgeSingle, Scope: scene.ScopeGeneral},
	"lift":        {Name: "lift", Continuity: EdgeSingle, Scope: scene.ScopeSite},
}

// LookupEdgeCategory returns the category called name.
func LookupEdgeCategory(name string) (EdgeCategory, error) {
	c, ok := edgeCategories[name]
	if !ok {
		return EdgeCategory{}, fmt.Errorf("unknown edge category %q", name)
	}
	return c, nil
}

// EdgeCategories lists the category names in sorted order.
func EdgeCategories() []string {
	out := make([]string, 0, len(edgeCategories))
	for name := range edgeCategories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// PreviewEdge is the edge that follows the pointer.
type PreviewEdge struct {
	Edge scene.Entity
	// Side is the endpoint the next selection sets.
	Side scene.Side
	// ProvisionalStart means the start anchor was created by the click
	// that chose it, so backing out removes it again.
	ProvisionalStart bool
}

// CreateEdges is the state of an edge drawing session.
type CreateEdges struct {
	Category   string
	Continuity EdgeContinuity
	Scope      scene.AnchorScope

	// Preview is the pending edge; its Edge is None once a single edge
	// was committed.
	Preview PreviewEdge
}

func (c CreateEdges) AnchorScope() scene.AnchorScope { return c.Scope }

// CreateEdgesGraph builds the create_edges workflow over w. Escape while
// choosing an end point returns to choosing the start point; Escape while
// choosing the start point ends the session.
func CreateEdgesGraph(w *scene.World) (*workflow.Graph[scene.Entity, CreateEdges], error) {
	return buildAnchorWorkflow(w, anchorWorkflow[CreateEdges]{
		name:     "create_edges",
		escape:   "Exiting edge creation",
		setup:    createEdgesSetup(w),
		onHover:  createEdgesHover(w),
		onSelect: createEdgesSelect(w),
		cleanup:  createEdgesCleanup(w),
		backout:  createEdgesBackout(w),
	})
}

// newPreviewEdge spawns a pending edge with both ends on anchor.
func newPreviewEdge(w *scene.World, category string, anchor scene.Entity, side scene.Side) PreviewEdge {
	e := w.SpawnEdge(category, anchor, anchor, true)
	w.ChangeDependent(scene.AddDependent(anchor, e))
	return PreviewEdge{Edge: e, Side: side}
}

func createEdgesSetup(w *scene.World) service.Stage[CreateEdges] {
	return func(_ *service.Context, acc buffer.Access[CreateEdges]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Preview.Edge.Valid() {
			st.Preview = newPreviewEdge(w, st.Category, w.Cursor().LevelAnchorPlacement, scene.SideStart)
		}
		return nil
	}
}

// changeEdgeSide moves one endpoint of edge to anchor. The old anchor keeps
// its dependent if the other endpoint still uses it.
func changeEdgeSide(w *scene.World, edge scene.Entity, side scene.Side, anchor scene.Entity) error {
	anchors, err := w.EdgeAnchors(edge)
	if err != nil {
		return service.BrokenQuery(err)
	}
	old := anchors[side]
	if old == anchor {
		return nil
	}
	if anchors[side.Opposite()] != old {
		w.ChangeDependent(scene.RemoveDependent(old, edge))
	}
	w.ChangeDependent(scene.AddDependent(anchor, edge))
	return service.BrokenQuery(w.SetEdgeAnchor(edge, side, anchor))
}

func createEdgesHover(w *scene.World) service.OneShot[CreateEdges, SelectionCandidate] {
	return func(_ *service.Context, acc buffer.Access[CreateEdges], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		chosen := hoverChoice(w, cand)
		if !st.Preview.Edge.Valid() {
			st.Preview = newPreviewEdge(w, st.Category, chosen, scene.SideStart)
			return nil
		}
		return changeEdgeSide(w, st.Preview.Edge, st.Preview.Side, chosen)
	}
}

func createEdgesSelect(w *scene.World) service.OneShot[CreateEdges, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[CreateEdges], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Preview.Edge.Valid() {
			return service.BrokenState("create_edges has no preview edge")
		}
		placement := w.Cursor().LevelAnchorPlacement
		edge := st.Preview.Edge

		if st.Preview.Side == scene.SideStart {
			if err := changeEdgeSide(w, edge, scene.SideStart, cand.Candidate); err != nil {
				return err
			}
			if err := changeEdgeSide(w, edge, scene.SideEnd, placement); err != nil {
				return err
			}
			st.Preview.Side = scene.SideEnd
			st.Preview.ProvisionalStart = cand.Provisional
			return nil
		}

		anchors, err := w.EdgeAnchors(edge)
		if err != nil {
			return service.BrokenQuery(err)
		}
		if anchors[scene.SideStart] == cand.Candidate {
			ctx.Log().Warn("You are trying to select an anchor for both the start and end points of an edge, which is not allowed.",
				"anchor", cand.Candidate.String())
			return nil
		}
		if err := changeEdgeSide(w, edge, scene.SideEnd, cand.Candidate); err != nil {
			return err
		}
		if err := w.SetPending(edge, false); err != nil {
			return service.BrokenQuery(err)
		}
		ctx.Log().Info("edge created",
			"edge", edge.String(),
			"category", st.Category,
			"start", anchors[scene.SideStart].String(),
			"end", cand.Candidate.String())

		switch st.Continuity {
		case EdgeSeparate:
			st.Preview = newPreviewEdge(w, st.Category, placement, scene.SideStart)
		case EdgeContinuous:
			next := w.SpawnEdge(st.Category, cand.Candidate, placement, true)
			w.ChangeDependent(scene.AddDependent(cand.Candidate, next))
			w.ChangeDependent(scene.AddDependent(placement, next))
			st.Preview = PreviewEdge{Edge: next, Side: scene.SideEnd}
		default:
			st.Preview = PreviewEdge{}
			return service.ErrTerminate
		}
		return nil
	}
}

// createEdgesBackout drops the start point of the preview edge, if one was
// chosen. With no start point it ends the session.
func createEdgesBackout(w *scene.World) service.Stage[CreateEdges] {
	return func(ctx *service.Context, acc buffer.Access[CreateEdges]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Preview.Edge.Valid() || st.Preview.Side != scene.SideEnd {
			return service.ErrCancelled
		}
		edge := st.Preview.Edge
		anchors, err := w.EdgeAnchors(edge)
		if err != nil {
			return service.BrokenQuery(err)
		}
		for _, a := range anchors {
			w.ChangeDependent(scene.RemoveDependent(a, edge))
		}
		if st.Preview.ProvisionalStart {
			if err := w.Despawn(anchors[scene.SideStart]); err != nil {
				return service.BrokenQuery(err)
			}
		}

		placement := w.Cursor().LevelAnchorPlacement
		for _, side := range []scene.Side{scene.SideStart, scene.SideEnd} {
			if err := w.SetEdgeAnchor(edge, side, placement); err != nil {
				return service.BrokenQuery(err)
			}
		}
		w.ChangeDependent(scene.AddDependent(placement, edge))
		st.Preview.Side = scene.SideStart
		st.Preview.ProvisionalStart = false
		ctx.Log().Debug("edge start point dropped", "edge", edge.String())
		return nil
	}
}

func createEdgesCleanup(w *scene.World) service.Stage[CreateEdges] {
	return func(_ *service.Context, acc buffer.Access[CreateEdges]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		edge := st.Preview.Edge
		if !edge.Valid() {
			return nil
		}
		anchors, err := w.EdgeAnchors(edge)
		if err != nil {
			return service.BrokenQuery(err)
		}
		for _, a := range anchors {
			w.ChangeDependent(scene.RemoveDependent(a, edge))
		}
		if st.Preview.ProvisionalStart {
			if err := w.Despawn(anchors[scene.SideStart]); err != nil {
				return service.BrokenQuery(err)
			}
		}
		return service.BrokenQuery(w.Despawn(edge))
	}
}
