package interaction

import (
	"fmt"
	"slices"

	"github.com/roach88/pickflow/internal/buffer"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
	"github.com/roach88/pickflow/internal/workflow"
)

// PathCategory is a kind of path the editor can outline.
type PathCategory struct {
	Name string
	// MinimumPoints is the smallest path that survives the session.
	MinimumPoints int
	// AllowInnerLoops lets a path revisit an anchor other than its last.
	AllowInnerLoops bool
	// ImpliedCompleteLoop ends the session when the first anchor is chosen
	// again; the path closes on itself without repeating it.
	ImpliedCompleteLoop bool
	Scope               scene.AnchorScope
}

var pathCategories = map[string]PathCategory{
	"floor": {Name: "floor", MinimumPoints: 3, ImpliedCompleteLoop: true, Scope: scene.ScopeGeneral},
}

// LookupPathCategory returns the category called name.
func LookupPathCategory(name string) (PathCategory, error) {
	c, ok := pathCategories[name]
	if !ok {
		return PathCategory{}, fmt.Errorf("unknown path category %q", name)
	}
	return c, nil
}

// CreatePath is the state of a path outlining session.
type CreatePath struct {
	PathCategory

	// Path is the pending path. Its last anchor follows the pointer.
	Path scene.Entity
	// Provisional holds the anchors created by clicks during the session.
	Provisional []scene.Entity
}

func (c CreatePath) AnchorScope() scene.AnchorScope { return c.Scope }

// CreatePathGraph builds the create_path workflow over w.
func CreatePathGraph(w *scene.World) (*workflow.Graph[scene.Entity, CreatePath], error) {
	return buildAnchorWorkflow(w, anchorWorkflow[CreatePath]{
		name:     "create_path",
		escape:   "Exiting path creation",
		setup:    createPathSetup(w),
		onHover:  createPathHover(w),
		onSelect: createPathSelect(w),
		cleanup:  createPathCleanup(w),
	})
}

func createPathSetup(w *scene.World) service.Stage[CreatePath] {
	return func(_ *service.Context, acc buffer.Access[CreatePath]) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if st.Path.Valid() {
			return nil
		}
		placement := w.Cursor().LevelAnchorPlacement
		st.Path = w.SpawnPath(st.Name, []scene.Entity{placement}, true)
		w.ChangeDependent(scene.AddDependent(placement, st.Path))
		return nil
	}
}

// setLastAnchor moves the trailing anchor of path to chosen.
func setLastAnchor(w *scene.World, path, chosen scene.Entity) error {
	anchors, err := w.PathAnchors(path)
	if err != nil {
		return service.BrokenQuery(err)
	}
	if len(anchors) == 0 {
		return service.BrokenState("path %s has no anchors", path)
	}
	last := len(anchors) - 1
	previous := anchors[last]
	if previous == chosen {
		return nil
	}
	anchors[last] = chosen
	if err := w.SetPathAnchors(path, anchors); err != nil {
		return service.BrokenQuery(err)
	}
	if !slices.Contains(anchors, previous) {
		w.ChangeDependent(scene.RemoveDependent(previous, path))
	}
	w.ChangeDependent(scene.AddDependent(chosen, path))
	return nil
}

func createPathHover(w *scene.World) service.OneShot[CreatePath, SelectionCandidate] {
	return func(_ *service.Context, acc buffer.Access[CreatePath], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Path.Valid() {
			return service.BrokenState("create_path has no pending path")
		}
		return setLastAnchor(w, st.Path, hoverChoice(w, cand))
	}
}

func createPathSelect(w *scene.World) service.OneShot[CreatePath, SelectionCandidate] {
	return func(ctx *service.Context, acc buffer.Access[CreatePath], cand SelectionCandidate) error {
		st, err := service.NewestMut(acc)
		if err != nil {
			return err
		}
		if !st.Path.Valid() {
			return service.BrokenState("create_path has no pending path")
		}
		anchors, err := w.PathAnchors(st.Path)
		if err != nil {
			return service.BrokenQuery(err)
		}
		if len(anchors) == 0 {
			return service.BrokenState("path %s has no anchors", st.Path)
		}
		chosen := cand.Candidate

		// The trailing anchor is the preview, so len-1 anchors are placed.
		if st.ImpliedCompleteLoop && anchors[0] == chosen && len(anchors)-1 >= st.MinimumPoints {
			ctx.Log().Info("path closed", "path", st.Path.String(), "anchors", len(anchors)-1)
			return service.ErrTerminate
		}
		if !st.AllowInnerLoops && slices.Contains(anchors[:len(anchors)-1], chosen) {
			ctx.Log().Warn("Attempting to create an inner loop in a type of path which does not allow inner loops.",
				"anchor", chosen.String())
			return nil
		}
		if n := len(anchors); n >= 2 && anchors[n-2] == chosen {
			ctx.Log().Warn("Trying to select the same anchor for a path twice in a row", "anchor", chosen.String())
			return nil
		}

		if err := setLastAnchor(w, st.Path, chosen); err != nil {
			return err
		}
		if cand.Provisional {
			st.Provisional = append(st.Provisional, chosen)
		}
		placement := w.Cursor().LevelAnchorPlacement
		anchors, err = w.PathAnchors(st.Path)
		if err != nil {
			return service.BrokenQuery(err)
		}
		if err := w.SetPathAnchors(st.Path, append(anchors, placement)); err != nil {
			return service.BrokenQuery(err)
		}
		w.ChangeDependent(scene.AddDependent(placement, st.Path))
		return nil
	}
}

// createPathCleanup keeps a path that reached its minimum size, minus the
// trailing anchor that followed the pointer. A shorter path is removed
// together with the anchors its clicks created.
func createPathCleanup(w *scene.World) service.Stage[CreatePath] {
	return func(ctx *service.Context, acc buffer.Access[CreatePath]) error {
		st, err := service.PullState(acc)
		if err != nil {
			return err
		}
		if !st.Path.Valid() {
			return nil
		}
		if err := w.SetPending(st.Path, false); err != nil {
			return service.BrokenQuery(err)
		}
		anchors, err := w.PathAnchors(st.Path)
		if err != nil {
			return service.BrokenQuery(err)
		}

		if len(anchors)-1 < st.MinimumPoints {
			for _, a := range anchors {
				w.ChangeDependent(scene.RemoveDependent(a, st.Path))
			}
			for _, a := range st.Provisional {
				if w.Exists(a) {
					if err := w.Despawn(a); err != nil {
						return service.BrokenQuery(err)
					}
				}
			}
			ctx.Log().Debug("path discarded", "path", st.Path.String(), "anchors", len(anchors)-1, "minimum", st.MinimumPoints)
			return service.BrokenQuery(w.Despawn(st.Path))
		}

		last := anchors[len(anchors)-1]
		anchors = anchors[:len(anchors)-1]
		if !slices.Contains(anchors, last) {
			w.ChangeDependent(scene.RemoveDependent(last, st.Path))
		}
		if len(anchors) == 0 {
			return service.BrokenQuery(w.Despawn(st.Path))
		}
		if err := w.SetPathAnchors(st.Path, anchors); err != nil {
			return service.BrokenQuery(err)
		}
		ctx.Log().Info("path created", "path", st.Path.String(), "category", st.Name, "anchors", len(anchors))
		return nil
	}
}
