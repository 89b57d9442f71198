package harness

import (
	"fmt"

	"github.com/roach88/pickflow/internal/scene"
)

// buildWorld spawns spec into a fresh world and returns it with the name
// index used to resolve hover, target and workspace references.
func buildWorld(spec WorldSpec) (*scene.World, map[string]scene.Entity, error) {
	w := scene.NewWorld()
	names := map[string]scene.Entity{
		"site":  w.Site(),
		"level": w.Level(),
	}
	bind := func(name string, e scene.Entity) error {
		if _, dup := names[name]; dup {
			return fmt.Errorf("world: duplicate entity name %q", name)
		}
		names[name] = e
		return nil
	}
	parentOf := func(e EntitySpec) (scene.Entity, error) {
		p, ok := names[e.Parent]
		if !ok {
			return scene.None, fmt.Errorf("world: %s: unknown parent %q", e.Name, e.Parent)
		}
		return p, nil
	}

	if spec.Drawing != "" {
		if err := bind(spec.Drawing, w.SpawnDrawing(spec.Drawing)); err != nil {
			return nil, nil, err
		}
	}
	for _, f := range spec.Frames {
		parent, err := parentOf(f)
		if err != nil {
			return nil, nil, err
		}
		if err := bind(f.Name, w.SpawnFrame(f.Name, parent, f.Pose.pose())); err != nil {
			return nil, nil, err
		}
	}
	for _, a := range spec.Anchors {
		parent, err := parentOf(a)
		if err != nil {
			return nil, nil, err
		}
		if err := bind(a.Name, w.SpawnAnchor(a.Name, parent, a.Pose.pose())); err != nil {
			return nil, nil, err
		}
	}
	for _, o := range spec.Objects {
		parent, err := parentOf(o)
		if err != nil {
			return nil, nil, err
		}
		if err := bind(o.Name, w.SpawnObject(o.Name, o.Model, parent, o.Pose.pose())); err != nil {
			return nil, nil, err
		}
	}
	for _, p := range spec.Points {
		anchor, ok := names[p.Anchor]
		if !ok || !w.IsAnchor(anchor) {
			return nil, nil, fmt.Errorf("world: point %s: %q is not an anchor", p.Name, p.Anchor)
		}
		point := w.SpawnPoint(p.Name, anchor, false)
		w.ChangeDependent(scene.AddDependent(anchor, point))
		if err := bind(p.Name, point); err != nil {
			return nil, nil, err
		}
	}
	for _, e := range spec.Edges {
		var ends [2]scene.Entity
		for i, name := range []string{e.Start, e.End} {
			anchor, ok := names[name]
			if !ok || !w.IsAnchor(anchor) {
				return nil, nil, fmt.Errorf("world: edge %s: %q is not an anchor", e.Name, name)
			}
			ends[i] = anchor
		}
		edge := w.SpawnEdge(e.Category, ends[0], ends[1], false)
		for _, a := range ends {
			w.ChangeDependent(scene.AddDependent(a, edge))
		}
		if err := bind(e.Name, edge); err != nil {
			return nil, nil, err
		}
	}
	w.SetPickingBlocked(spec.PickingBlocked)
	return w, names, nil
}
