package interaction

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
)

func (r *rig) edgeAnchors(e scene.Entity) [2]scene.Entity {
	r.t.Helper()
	got, err := r.w.EdgeAnchors(e)
	require.NoError(r.t, err)
	return got
}

// committedEdges returns the edges that are no longer pending.
func (r *rig) committedEdges() []scene.Entity {
	var out []scene.Entity
	for _, e := range r.w.Edges() {
		if !r.w.IsPending(e) {
			out = append(out, e)
		}
	}
	return out
}

func TestCreateEdges_EscapeBacksOutOneStep(t *testing.T) {
	r := newRig(t)
	a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})
	placement := r.w.Cursor().LevelAnchorPlacement

	r.start(mode.Mode{Kind: mode.CreateEdges, Category: "wall"})
	edges := r.w.Edges()
	require.Len(t, edges, 1)
	preview := edges[0]
	assert.True(t, r.w.IsPending(preview))
	assert.Equal(t, [2]scene.Entity{placement, placement}, r.edgeAnchors(preview))

	r.click(a)
	assert.Equal(t, [2]scene.Entity{a, placement}, r.edgeAnchors(preview), "start chosen, end follows the cursor")
	assert.Equal(t, []scene.Entity{preview}, r.w.Dependents(a))

	r.press(input.KeyEscape)
	assert.Equal(t, mode.CreateEdges, r.sel.Current().Kind, "first Escape returns to picking the start point")
	assert.Equal(t, []scene.Entity{preview}, r.w.Edges())
	assert.Equal(t, [2]scene.Entity{placement, placement}, r.edgeAnchors(preview))
	assert.Empty(t, r.w.Dependents(a))
	assert.True(t, r.w.Exists(a), "a chosen anchor is not provisional")
	assert.Equal(t, []string{"started"}, r.reasons())

	r.press(input.KeyEscape)
	assert.Equal(t, mode.Inspect, r.sel.Current().Kind, "second Escape exits")
	assert.Equal(t, []string{"started", "cancelled"}, r.reasons())
	assert.Empty(t, r.w.Edges())
	assert.Empty(t, r.w.Dependents(placement))
	assert.Contains(t, r.logs.Messages(slog.LevelInfo), "Exiting edge creation")
	r.assertAnchorCleanup()
}

func TestCreateEdges_SelectorBackout(t *testing.T) {
	r := newRig(t)
	a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})
	r.start(mode.Mode{Kind: mode.CreateEdges, Category: "lane"})
	r.click(a)

	require.True(t, r.sel.Request(mode.Backout()))
	r.tick()
	assert.Equal(t, mode.CreateEdges, r.sel.Current().Kind, "backout unwinds the start point only")
	assert.Empty(t, r.w.Dependents(a))

	require.True(t, r.sel.Request(mode.Backout()))
	r.tick()
	assert.Equal(t, mode.Inspect, r.sel.Current().Kind)
	assert.Equal(t, []string{"started", "backout"}, r.reasons())
	r.assertAnchorCleanup()
}

func TestCreateEdges_CancelUnwindsAndLeavesWorldUnchanged(t *testing.T) {
	r := newRig(t)
	a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})
	before := r.w.Snapshot()

	r.start(mode.Mode{Kind: mode.CreateEdges, Category: "wall"})
	r.click(a)
	r.in.Hover(scene.None)

	require.True(t, r.sel.Request(mode.Cancel()))
	r.tick()

	assert.Equal(t, mode.Inspect, r.sel.Current().Kind)
	assert.Equal(t, before, r.w.Snapshot())
}

func TestCreateEdges_ProvisionalStartIsRemovedOnBackout(t *testing.T) {
	r := newRig(t)
	r.start(mode.Mode{Kind: mode.CreateEdges, Category: "wall"})
	anchorsBefore := r.w.CountKind(scene.KindAnchor)

	r.in.SetGround(scene.Pose{X: 4, Y: 2})
	r.click(scene.None)
	assert.Equal(t, anchorsBefore+1, r.w.CountKind(scene.KindAnchor), "click on empty ground creates the start anchor")
	start := r.edgeAnchors(r.w.Edges()[0])[scene.SideStart]
	assert.True(t, r.w.IsAnchor(start))

	r.press(input.KeyEscape)
	assert.False(t, r.w.Exists(start), "the provisional start anchor is removed")
	assert.Equal(t, anchorsBefore, r.w.CountKind(scene.KindAnchor))
	assert.Equal(t, mode.CreateEdges, r.sel.Current().Kind)
}

func TestCreateEdges_Continuity(t *testing.T) {
	t.Run("single ends after one edge", func(t *testing.T) {
		r := newRig(t)
		a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})
		b := r.w.SpawnAnchor("b", r.w.Level(), scene.Pose{X: 2})

		r.start(mode.Mode{Kind: mode.CreateEdges, Category: "door"})
		r.click(a)
		r.click(b)

		edges := r.w.Edges()
		require.Len(t, edges, 1)
		assert.False(t, r.w.IsPending(edges[0]))
		assert.Equal(t, [2]scene.Entity{a, b}, r.edgeAnchors(edges[0]))
		assert.Equal(t, "door", r.w.Category(edges[0]))
		assert.Equal(t, edges, r.w.Dependents(a))
		assert.Equal(t, edges, r.w.Dependents(b))
		assert.Equal(t, []string{"started", "completed"}, r.reasons())
		r.assertAnchorCleanup()
	})

	t.Run("continuous chains edges until Escape", func(t *testing.T) {
		r := newRig(t)
		a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})
		b := r.w.SpawnAnchor("b", r.w.Level(), scene.Pose{X: 2})
		c := r.w.SpawnAnchor("c", r.w.Level(), scene.Pose{X: 3})

		r.start(mode.Mode{Kind: mode.CreateEdges, Category: "wall"})
		r.click(a)
		r.click(b)
		r.click(c)

		committed := r.committedEdges()
		require.Len(t, committed, 2)
		assert.Equal(t, [2]scene.Entity{a, b}, r.edgeAnchors(committed[0]))
		assert.Equal(t, [2]scene.Entity{b, c}, r.edgeAnchors(committed[1]))
		require.Len(t, r.w.Edges(), 3, "the next edge already starts at c")

		r.press(input.KeyEscape)
		assert.Equal(t, mode.CreateEdges, r.sel.Current().Kind)
		assert.Equal(t, []scene.Entity{committed[1]}, r.w.Dependents(c), "the preview let go of c")

		r.press(input.KeyEscape)
		assert.Equal(t, mode.Inspect, r.sel.Current().Kind)
		assert.Equal(t, committed, r.w.Edges())
		assert.True(t, r.w.Exists(c))
		r.assertAnchorCleanup()
	})

	t.Run("separate restarts from nothing", func(t *testing.T) {
		r := newRig(t)
		drawing := r.w.SpawnDrawing("plan")
		a := r.w.SpawnAnchor("a", drawing, scene.Pose{X: 1})
		b := r.w.SpawnAnchor("b", drawing, scene.Pose{X: 2})

		r.start(mode.Mode{Kind: mode.CreateEdges, Category: "measurement"})
		assert.Equal(t, scene.ScopeDrawing, r.w.AnchorScope(), "measurements pick drawing anchors")
		r.click(a)
		r.click(b)

		require.Len(t, r.committedEdges(), 1)
		edges := r.w.Edges()
		require.Len(t, edges, 2)
		placement := r.w.Cursor().LevelAnchorPlacement
		assert.Equal(t, [2]scene.Entity{placement, placement}, r.edgeAnchors(edges[1]), "the fresh preview shares nothing with b")
		assert.Equal(t, edges[:1], r.w.Dependents(b))

		r.in.Hover(scene.None)
		r.tick()
		r.in.Hover(a)
		r.tick()
		assert.Equal(t, [2]scene.Entity{a, placement}, r.edgeAnchors(edges[1]), "the start follows the hovered anchor")

		r.press(input.KeyEscape)
		assert.Equal(t, mode.Inspect, r.sel.Current().Kind, "no start point was chosen, so Escape exits")
		assert.Len(t, r.w.Edges(), 1)
	})
}

func TestCreateEdges_SameAnchorTwiceIsRefused(t *testing.T) {
	r := newRig(t)
	a := r.w.SpawnAnchor("a", r.w.Level(), scene.Pose{X: 1})

	r.start(mode.Mode{Kind: mode.CreateEdges, Category: "door"})
	r.click(a)
	r.click(a)

	assert.Equal(t, mode.CreateEdges, r.sel.Current().Kind)
	assert.Empty(t, r.committedEdges())
	assert.Contains(t, r.logs.Messages(slog.LevelWarn),
		"You are trying to select an anchor for both the start and end points of an edge, which is not allowed.")
}

func TestCreateEdges_Categories(t *testing.T) {
	assert.Equal(t, []string{"door", "lane", "lift", "measurement", "wall"}, EdgeCategories())

	lift, err := LookupEdgeCategory("lift")
	require.NoError(t, err)
	assert.Equal(t, EdgeSingle, lift.Continuity)
	assert.Equal(t, scene.ScopeSite, lift.Scope)

	_, err = LookupEdgeCategory("fence")
	assert.ErrorContains(t, err, `unknown edge category "fence"`)

	t.Run("explicit scope beats the category", func(t *testing.T) {
		r := newRig(t)
		r.start(mode.Mode{Kind: mode.CreateEdges, Category: "lift", Scope: scene.ScopeGeneral}.With(mode.FieldScope))
		assert.Equal(t, scene.ScopeGeneral, r.w.AnchorScope())
	})

	t.Run("category scope by default", func(t *testing.T) {
		r := newRig(t)
		r.start(mode.Mode{Kind: mode.CreateEdges, Category: "lift"})
		assert.Equal(t, scene.ScopeSite, r.w.AnchorScope())
	})

	t.Run("missing or unknown category", func(t *testing.T) {
		r := newRig(t)
		require.True(t, r.sel.Request(mode.To(mode.Mode{Kind: mode.CreateEdges})))
		assert.ErrorContains(t, r.tickErr(), "create_edges needs a category")

		require.True(t, r.sel.Request(mode.To(mode.Mode{Kind: mode.CreateEdges, Category: "fence"})))
		assert.ErrorContains(t, r.tickErr(), "unknown edge category")
		assert.Equal(t, mode.Inspect, r.sel.Current().Kind)
	})
}
