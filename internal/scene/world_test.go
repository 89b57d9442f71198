package scene

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorld_CursorRig(t *testing.T) {
	w := NewWorld()
	c := w.Cursor()

	assert.True(t, w.Exists(w.Site()))
	assert.True(t, w.Exists(w.Level()))
	assert.True(t, w.IsAnchor(c.LevelAnchorPlacement))
	assert.True(t, w.IsAnchor(c.SiteAnchorPlacement))
	assert.False(t, w.Visible(c.LevelAnchorPlacement), "placement anchors start hidden")
	assert.Equal(t, 7, w.Count())
}

func TestDespawn_Recursive(t *testing.T) {
	w := NewWorld()
	frame := w.SpawnFrame("shelf", w.Level(), Pose{X: 1})
	obj := w.SpawnObject("box", "box.glb", frame, Pose{})
	before := w.Count()

	require.NoError(t, w.Despawn(frame))
	assert.False(t, w.Exists(obj))
	assert.Equal(t, before-2, w.Count())

	var missing *ErrNoEntity
	require.ErrorAs(t, w.Despawn(frame), &missing)
	assert.Equal(t, frame, missing.Entity)
}

func TestTakeInput(t *testing.T) {
	w := NewWorld()
	e := w.SpawnInput("payload")

	got, err := w.TakeInput(e)
	require.NoError(t, err)
	assert.Equal(t, "payload", got)
	assert.False(t, w.Exists(e), "input carrier is despawned")

	_, err = w.TakeInput(e)
	require.Error(t, err)

	anchor := w.SpawnAnchor("a", w.Level(), Pose{})
	_, err = w.TakeInput(anchor)
	require.Error(t, err)
}

func TestGlobalPose(t *testing.T) {
	w := NewWorld()
	require.NoError(t, w.SetPose(w.Level(), Pose{Z: 3}))
	frame := w.SpawnFrame("f", w.Level(), Pose{X: 1, Yaw: math.Pi / 2})
	obj := w.SpawnObject("o", "m", frame, Pose{X: 2, Y: 1})

	p, err := w.GlobalPose(obj)
	require.NoError(t, err)
	assertPose(t, Pose{X: 0, Y: 2, Z: 3, Yaw: math.Pi / 2}, p)
	assert.True(t, w.IsDescendant(obj, w.Level()))
	assert.False(t, w.IsDescendant(w.Level(), obj))
}

func TestPose_Compose(t *testing.T) {
	tests := []struct {
		name          string
		child, parent Pose
		want          Pose
	}{
		{"translation only", Pose{X: 1, Y: 2, Z: 3}, Pose{X: 10, Z: 1}, Pose{X: 11, Y: 2, Z: 4}},
		{"quarter turn", Pose{X: 1}, Pose{Yaw: math.Pi / 2}, Pose{Y: 1, Yaw: math.Pi / 2}},
		{"half turn and offset", Pose{X: 1, Y: 1, Yaw: 0.25}, Pose{X: 5, Y: 5, Yaw: math.Pi}, Pose{X: 4, Y: 4, Yaw: math.Pi + 0.25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.child.Add(tt.parent)
			assertPose(t, tt.want, got)
			assertPose(t, tt.child, got.Sub(tt.parent))
		})
	}
}

// Moving an entity between rotated frames through Sub keeps its world pose.
func TestPose_ReparentKeepsWorldPose(t *testing.T) {
	w := NewWorld()
	from := w.SpawnFrame("from", w.Level(), Pose{X: 2, Yaw: 0.3})
	to := w.SpawnFrame("to", w.Level(), Pose{X: -4, Y: 1, Yaw: -1.2})
	obj := w.SpawnObject("o", "m", from, Pose{X: 1, Y: -2, Yaw: 0.1})

	before, err := w.GlobalPose(obj)
	require.NoError(t, err)
	toPose, err := w.GlobalPose(to)
	require.NoError(t, err)

	require.NoError(t, w.SetPose(obj, before.Sub(toPose)))
	require.NoError(t, w.SetParent(obj, to))

	after, err := w.GlobalPose(obj)
	require.NoError(t, err)
	assertPose(t, before, after)
}

func assertPose(t *testing.T, want, got Pose) {
	t.Helper()
	const eps = 1e-9
	assert.InDelta(t, want.X, got.X, eps, "x")
	assert.InDelta(t, want.Y, got.Y, eps, "y")
	assert.InDelta(t, want.Z, got.Z, eps, "z")
	assert.InDelta(t, want.Yaw, got.Yaw, eps, "yaw")
}

func TestPointsAndMarkers(t *testing.T) {
	w := NewWorld()
	a := w.SpawnAnchor("a", w.Level(), Pose{})
	b := w.SpawnAnchor("b", w.Level(), Pose{})
	p := w.SpawnPoint("p", a, true)
	w.ChangeDependent(AddDependent(a, p))

	assert.True(t, w.IsPending(p))
	assert.Equal(t, []Entity{p}, w.Dependents(a))

	require.NoError(t, w.SetPointAnchor(p, b))
	got, err := w.PointAnchor(p)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.NoError(t, w.SetOriginal(p, a))
	orig, ok := w.Original(p)
	assert.True(t, ok)
	assert.Equal(t, a, orig)
	require.NoError(t, w.ClearOriginal(p))
	_, ok = w.Original(p)
	assert.False(t, ok)

	_, err = w.PointAnchor(a)
	require.Error(t, err, "anchors are not points")
}

func TestDrawingAnchors_HideRestore(t *testing.T) {
	w := NewWorld()
	d := w.SpawnDrawing("floorplan")
	da := w.SpawnAnchor("da", d, Pose{})
	la := w.SpawnAnchor("la", w.Level(), Pose{})

	w.HideDrawingAnchors()
	assert.False(t, w.Visible(da))
	assert.True(t, w.Visible(la))
	assert.Equal(t, 1, w.HiddenDrawingAnchors())

	w.RestoreDrawingAnchors()
	assert.True(t, w.Visible(da))
	assert.Equal(t, 0, w.HiddenDrawingAnchors())
}

func TestCursor_ModesPreviewBlockers(t *testing.T) {
	w := NewWorld()
	c := w.Cursor()

	c.AddMode("select_anchor")
	c.AddMode("place_object_2d")
	assert.Equal(t, []string{"place_object_2d", "select_anchor"}, c.Modes())
	c.RemoveMode("select_anchor")
	assert.False(t, c.HasMode("select_anchor"))

	before := w.Count()
	p := c.SetPreview("chair.glb")
	assert.Equal(t, before+1, w.Count())
	assert.Equal(t, "chair.glb", w.Model(p))
	c.RemovePreview()
	assert.Equal(t, before, w.Count())
	assert.False(t, c.Preview().Valid())

	c.AddBlocker(w.Site())
	assert.False(t, w.Visible(c.Frame))
	c.RemoveBlocker(w.Site())
	assert.True(t, w.Visible(c.Frame))
}

func TestSnapshot_EqualAfterRevert(t *testing.T) {
	w := NewWorld()
	a := w.SpawnAnchor("a", w.Level(), Pose{})
	before := w.Snapshot()

	p := w.SpawnPoint("p", a, true)
	w.ChangeDependent(AddDependent(a, p))
	w.Cursor().MoveTo(Pose{X: 9})
	assert.NotEqual(t, before, w.Snapshot())

	w.ChangeDependent(RemoveDependent(a, p))
	require.NoError(t, w.Despawn(p))
	assert.Equal(t, before, w.Snapshot())
}

func TestParseAnchorScope(t *testing.T) {
	for in, want := range map[string]AnchorScope{"": ScopeGeneral, "general": ScopeGeneral, "drawing": ScopeDrawing, "site": ScopeSite} {
		got, err := ParseAnchorScope(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseAnchorScope("moon")
	require.Error(t, err)
}

func TestCountKind(t *testing.T) {
	w := NewWorld()
	assert.Equal(t, 1, w.CountKind(KindSite))
	assert.Equal(t, 2, w.CountKind(KindAnchor), "cursor placement anchors")
	w.SpawnAnchor("a", w.Level(), Pose{})
	assert.Equal(t, 3, w.CountKind(KindAnchor))
	assert.Zero(t, w.CountKind(KindPoint))
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("teapot")
	assert.Error(t, err)
}

func TestEdges(t *testing.T) {
	w := NewWorld()
	a := w.SpawnAnchor("a", w.Level(), Pose{})
	b := w.SpawnAnchor("b", w.Level(), Pose{X: 1})
	e := w.SpawnEdge("wall", a, a, true)

	got, err := w.EdgeAnchors(e)
	require.NoError(t, err)
	assert.Equal(t, [2]Entity{a, a}, got)
	assert.Equal(t, "wall", w.Category(e))
	assert.True(t, w.IsPending(e))
	assert.Empty(t, w.Dependents(a), "spawning does not register dependents")

	require.NoError(t, w.SetEdgeAnchor(e, SideEnd, b))
	got, _ = w.EdgeAnchors(e)
	assert.Equal(t, [2]Entity{a, b}, got)
	assert.Equal(t, SideEnd, SideStart.Opposite())
	assert.Equal(t, "end", SideEnd.String())

	assert.Error(t, w.SetEdgeAnchor(e, Side(5), b))
	_, err = w.EdgeAnchors(a)
	var ne *ErrNoEntity
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "edge", ne.Want)

	assert.Equal(t, []Entity{e}, w.Edges())
	assert.Equal(t, 1, w.CountKind(KindEdge))
	assert.Equal(t, [2]Entity{a, b}, w.Snapshot().Entities[e].Edge)
}

func TestEdgeOriginalAndSides(t *testing.T) {
	w := NewWorld()
	a := w.SpawnAnchor("a", w.Level(), Pose{})
	b := w.SpawnAnchor("b", w.Level(), Pose{X: 1})
	c := w.SpawnAnchor("c", w.Site(), Pose{X: 2})
	e := w.SpawnEdge("lane", a, b, false)

	_, ok := w.OriginalEdge(e)
	assert.False(t, ok)
	require.NoError(t, w.SetOriginalEdge(e, [2]Entity{a, b}))
	orig, ok := w.OriginalEdge(e)
	require.True(t, ok)
	assert.Equal(t, [2]Entity{a, b}, orig)
	assert.Equal(t, [2]Entity{a, b}, w.Snapshot().Entities[e].EdgeOrig)
	require.NoError(t, w.ClearOriginal(e))
	_, ok = w.OriginalEdge(e)
	assert.False(t, ok)
	assert.Error(t, w.SetOriginalEdge(a, [2]Entity{a, b}))

	same, err := w.Siblings(a, b)
	require.NoError(t, err)
	assert.True(t, same)
	same, err = w.Siblings(a, c)
	require.NoError(t, err)
	assert.False(t, same)

	for _, side := range []Side{SideStart, SideEnd} {
		got, err := ParseSide(side.String())
		require.NoError(t, err)
		assert.Equal(t, side, got)
	}
	_, err = ParseSide("left")
	assert.EqualError(t, err, `unknown edge side "left"`)
}

func TestPaths(t *testing.T) {
	w := NewWorld()
	a := w.SpawnAnchor("a", w.Level(), Pose{})
	b := w.SpawnAnchor("b", w.Level(), Pose{X: 1})
	anchors := []Entity{a, b}
	p := w.SpawnPath("floor", anchors, false)
	anchors[0] = b

	got, err := w.PathAnchors(p)
	require.NoError(t, err)
	assert.Equal(t, []Entity{a, b}, got, "the path keeps its own copy")

	got[1] = a
	stored, _ := w.PathAnchors(p)
	assert.Equal(t, []Entity{a, b}, stored)

	require.NoError(t, w.SetPathAnchors(p, []Entity{b}))
	stored, _ = w.PathAnchors(p)
	assert.Equal(t, []Entity{b}, stored)
	assert.Equal(t, "floor", w.Category(p))
	assert.Empty(t, w.Category(a))
	assert.Equal(t, []Entity{p}, w.Paths())

	k, err := ParseKind("path")
	require.NoError(t, err)
	assert.Equal(t, KindPath, k)
	_, err = w.PathAnchors(a)
	assert.Error(t, err)
}
