package scene

import "sort"

// Cursor is the 3D cursor rig: a frame that follows the pointer, placement
// anchors for new geometry, and visual affordances toggled per workflow.
type Cursor struct {
	world *World

	Frame                Entity
	LevelAnchorPlacement Entity
	SiteAnchorPlacement  Entity
	Dagger               Entity
	Halo                 Entity

	preview  Entity
	modes    map[string]struct{}
	blockers map[Entity]struct{}
}

func newCursor(w *World) *Cursor {
	c := &Cursor{
		world:    w,
		modes:    make(map[string]struct{}),
		blockers: make(map[Entity]struct{}),
	}
	c.Frame = w.spawn(&record{kind: KindCursor, name: "cursor", visible: true})
	c.Dagger = w.spawn(&record{kind: KindCursor, name: "dagger", parent: c.Frame, visible: true})
	c.Halo = w.spawn(&record{kind: KindCursor, name: "halo", parent: c.Frame, visible: true})
	c.LevelAnchorPlacement = w.spawn(&record{kind: KindAnchor, name: "level_anchor_placement", parent: c.Frame})
	c.SiteAnchorPlacement = w.spawn(&record{kind: KindAnchor, name: "site_anchor_placement", parent: c.Frame})
	return c
}

// AddMode turns on the affordance named label.
func (c *Cursor) AddMode(label string) {
	c.modes[label] = struct{}{}
}

// RemoveMode turns off the affordance named label.
func (c *Cursor) RemoveMode(label string) {
	delete(c.modes, label)
}

// HasMode reports whether label is on.
func (c *Cursor) HasMode(label string) bool {
	_, ok := c.modes[label]
	return ok
}

// Modes returns the active labels, sorted.
func (c *Cursor) Modes() []string {
	out := make([]string, 0, len(c.modes))
	for m := range c.modes {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// AddBlocker hides the cursor frame on behalf of owner.
func (c *Cursor) AddBlocker(owner Entity) {
	c.blockers[owner] = struct{}{}
	c.world.SetVisible(c.Frame, false)
}

// RemoveBlocker releases the blocker held by owner.
func (c *Cursor) RemoveBlocker(owner Entity) {
	delete(c.blockers, owner)
	if len(c.blockers) == 0 {
		c.world.SetVisible(c.Frame, true)
	}
}

// Blocked reports whether any blocker is held.
func (c *Cursor) Blocked() bool { return len(c.blockers) > 0 }

// SetPreview attaches a preview of model to the cursor frame, replacing any
// previous one.
func (c *Cursor) SetPreview(model string) Entity {
	c.RemovePreview()
	c.preview = c.world.spawn(&record{kind: KindObject, name: "preview", model: model, parent: c.Frame, visible: true})
	return c.preview
}

// Preview returns the attached preview, if any.
func (c *Cursor) Preview() Entity { return c.preview }

// RemovePreview despawns the attached preview.
func (c *Cursor) RemovePreview() {
	if c.preview.Valid() {
		_ = c.world.Despawn(c.preview)
		c.preview = None
	}
}

// Pose returns the global pose of the cursor frame.
func (c *Cursor) Pose() Pose {
	p, _ := c.world.GlobalPose(c.Frame)
	return p
}

// MoveTo places the cursor frame at pose.
func (c *Cursor) MoveTo(pose Pose) {
	_ = c.world.SetPose(c.Frame, pose)
}
