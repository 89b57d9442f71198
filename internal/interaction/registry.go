package interaction

import (
	"errors"
	"fmt"

	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// Graphs holds one built graph per interaction kind, all bound to the same
// world.
type Graphs struct {
	world           *scene.World
	CreatePoint     *workflow.Graph[scene.Entity, CreatePoint]
	ReplacePoint    *workflow.Graph[scene.Entity, ReplacePoint]
	PlaceObject2D   *workflow.Graph[scene.Entity, PlaceObject2D]
	ReplaceParent3D *workflow.Graph[scene.Entity, ReplaceParent3D]
	CreateEdges     *workflow.Graph[scene.Entity, CreateEdges]
	CreatePath      *workflow.Graph[scene.Entity, CreatePath]
	ReplaceSide     *workflow.Graph[scene.Entity, ReplaceSide]
}

// BuildGraphs builds every interaction graph for w.
func BuildGraphs(w *scene.World) (*Graphs, error) {
	g := &Graphs{world: w}
	var err error
	if g.CreatePoint, err = CreatePointGraph(w); err != nil {
		return nil, err
	}
	if g.ReplacePoint, err = ReplacePointGraph(w); err != nil {
		return nil, err
	}
	if g.PlaceObject2D, err = PlaceObject2DGraph(w); err != nil {
		return nil, err
	}
	if g.ReplaceParent3D, err = ReplaceParent3DGraph(w); err != nil {
		return nil, err
	}
	if g.CreateEdges, err = CreateEdgesGraph(w); err != nil {
		return nil, err
	}
	if g.CreatePath, err = CreatePathGraph(w); err != nil {
		return nil, err
	}
	if g.ReplaceSide, err = ReplaceSideGraph(w); err != nil {
		return nil, err
	}
	return g, nil
}

// Describe returns the topology of the graph behind kind.
func (g *Graphs) Describe(kind mode.Kind) (workflow.Topology, bool) {
	switch kind {
	case mode.CreatePoint:
		return g.CreatePoint.Describe(), true
	case mode.ReplacePoint:
		return g.ReplacePoint.Describe(), true
	case mode.PlaceObject2D:
		return g.PlaceObject2D.Describe(), true
	case mode.ReplaceParent3D:
		return g.ReplaceParent3D.Describe(), true
	case mode.CreateEdges:
		return g.CreateEdges.Describe(), true
	case mode.CreatePath:
		return g.CreatePath.Describe(), true
	case mode.ReplaceSide:
		return g.ReplaceSide.Describe(), true
	}
	return workflow.Topology{}, false
}

// Live returns the number of sessions, across all kinds, whose buffer has
// not been torn down yet.
func (g *Graphs) Live() int {
	return g.CreatePoint.Live() + g.ReplacePoint.Live() + g.PlaceObject2D.Live() +
		g.ReplaceParent3D.Live() + g.CreateEdges.Live() + g.CreatePath.Live() + g.ReplaceSide.Live()
}

// Register adds a factory for every kind to reg.
func (g *Graphs) Register(reg *mode.Registry, rt *workflow.Runtime) error {
	w := g.world
	entries := []struct {
		kind mode.Kind
		f    mode.Factory
	}{
		{mode.CreatePoint, startWith(w, g.CreatePoint.Factory(rt), func(m mode.Mode) (CreatePoint, error) {
			return CreatePoint{Repeating: m.Repeating, Scope: m.Scope}, nil
		})},
		{mode.ReplacePoint, startWith(w, g.ReplacePoint.Factory(rt), func(m mode.Mode) (ReplacePoint, error) {
			if !m.Target.Valid() {
				return ReplacePoint{}, errors.New("replace_point needs a point")
			}
			return ReplacePoint{Point: m.Target, Scope: m.Scope}, nil
		})},
		{mode.PlaceObject2D, startWith(w, g.PlaceObject2D.Factory(rt), func(m mode.Mode) (PlaceObject2D, error) {
			if m.Object == "" {
				return PlaceObject2D{}, errors.New("place_object_2d needs a model")
			}
			if !w.Level().Valid() {
				return PlaceObject2D{}, fmt.Errorf("unable to place %q outside a level", m.Object)
			}
			return PlaceObject2D{Object: m.Object, Level: w.Level()}, nil
		})},
		{mode.ReplaceParent3D, startWith(w, g.ReplaceParent3D.Factory(rt), func(m mode.Mode) (ReplaceParent3D, error) {
			if !m.Target.Valid() {
				return ReplaceParent3D{}, errors.New("replace_parent_3d needs an object")
			}
			workspace := m.Workspace
			if !workspace.Valid() {
				workspace = w.Site()
			}
			return ReplaceParent3D{Object: m.Target, Workspace: workspace}, nil
		})},
		{mode.CreateEdges, startWith(w, g.CreateEdges.Factory(rt), func(m mode.Mode) (CreateEdges, error) {
			if m.Category == "" {
				return CreateEdges{}, errors.New("create_edges needs a category")
			}
			c, err := LookupEdgeCategory(m.Category)
			if err != nil {
				return CreateEdges{}, err
			}
			return CreateEdges{Category: c.Name, Continuity: c.Continuity, Scope: scopeFor(m, c.Scope)}, nil
		})},
		{mode.CreatePath, startWith(w, g.CreatePath.Factory(rt), func(m mode.Mode) (CreatePath, error) {
			name := m.Category
			if name == "" {
				name = "floor"
			}
			c, err := LookupPathCategory(name)
			if err != nil {
				return CreatePath{}, err
			}
			c.Scope = scopeFor(m, c.Scope)
			return CreatePath{PathCategory: c}, nil
		})},
		{mode.ReplaceSide, startWith(w, g.ReplaceSide.Factory(rt), func(m mode.Mode) (ReplaceSide, error) {
			if !m.Target.Valid() {
				return ReplaceSide{}, errors.New("replace_side needs an edge")
			}
			return ReplaceSide{Edge: m.Target, Side: m.Side, Scope: m.Scope, LevelConsistency: true}, nil
		})},
	}
	for _, e := range entries {
		if err := reg.Register(e.kind, e.f); err != nil {
			return err
		}
	}
	return nil
}

// scopeFor is the scope m chose, or the category's own scope.
func scopeFor(m mode.Mode, category scene.AnchorScope) scene.AnchorScope {
	if m.Explicit.Has(mode.FieldScope) {
		return m.Scope
	}
	return category
}

// startWith turns a graph factory into a mode factory. The session input is
// handed over on a carrier entity, which extraction consumes.
func startWith[S any](w *scene.World, start workflow.Factory[scene.Entity], input func(mode.Mode) (S, error)) mode.Factory {
	return func(ctx *service.Context, m mode.Mode) (workflow.Instance, error) {
		in, err := input(m)
		if err != nil {
			return nil, err
		}
		carrier := w.SpawnInput(in)
		return start(ctx, &carrier), nil
	}
}

// NewRegistry builds every graph for w and registers its factory.
func NewRegistry(w *scene.World, rt *workflow.Runtime) (*mode.Registry, *Graphs, error) {
	g, err := BuildGraphs(w)
	if err != nil {
		return nil, nil, err
	}
	reg := mode.NewRegistry()
	if err := g.Register(reg, rt); err != nil {
		return nil, nil, err
	}
	return reg, g, nil
}
