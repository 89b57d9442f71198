// Package input normalises editor input into one Frame per tick.
//
// Adapters are sampled before any workflow service runs, so every service
// polled during a tick sees the same keyboard, hover, click and ground
// intersection values.
package input

import (
	"github.com/roach88/pickflow/internal/scene"
)

// Key names a keyboard key.
type Key string

const (
	KeyEscape    Key = "Escape"
	KeyEnter     Key = "Enter"
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "Backspace"
	KeyShift     Key = "Shift"
)

// Frame is everything a workflow may read during one tick.
type Frame struct {
	// Seq is the tick sequence number.
	Seq int64

	// Keys lists keys pressed since the previous tick, in press order.
	Keys []Key

	// Hovered is the entity under the pointer, or scene.None.
	Hovered scene.Entity

	// MouseJustPressed is true on the tick the left button went down.
	MouseJustPressed bool

	// GroundHit is where the cursor ray meets the ground plane. It is nil
	// when the camera angle makes an intersection impossible.
	GroundHit *scene.Pose
}

// JustPressed reports whether k was pressed this tick.
func (f Frame) JustPressed(k Key) bool {
	for _, got := range f.Keys {
		if got == k {
			return true
		}
	}
	return false
}

// Ground returns the ground intersection, if any.
func (f Frame) Ground() (scene.Pose, bool) {
	if f.GroundHit == nil {
		return scene.Pose{}, false
	}
	return *f.GroundHit, true
}

// KeyboardSource reports keys pressed since the last sample.
type KeyboardSource interface {
	KeysJustPressed() []Key
}

// HoverSource reports the picked entity.
type HoverSource interface {
	Hovered() scene.Entity
}

// MouseSource reports the left button edge.
type MouseSource interface {
	LeftJustPressed() bool
}

// GroundSource reports the ground-plane intersection of the cursor ray.
type GroundSource interface {
	GroundIntersection() (scene.Pose, bool)
}

// Source produces the frame for a tick.
type Source interface {
	Sample(seq int64) Frame
}

// Sampler combines independent adapters into a Source. Nil adapters
// contribute empty values.
type Sampler struct {
	Keyboard KeyboardSource
	Hover    HoverSource
	Mouse    MouseSource
	Ground   GroundSource
}

// Sample reads every adapter once.
func (s *Sampler) Sample(seq int64) Frame {
	f := Frame{Seq: seq}
	if s.Keyboard != nil {
		f.Keys = s.Keyboard.KeysJustPressed()
	}
	if s.Hover != nil {
		f.Hovered = s.Hover.Hovered()
	}
	if s.Mouse != nil {
		f.MouseJustPressed = s.Mouse.LeftJustPressed()
	}
	if s.Ground != nil {
		if p, ok := s.Ground.GroundIntersection(); ok {
			f.GroundHit = &p
		}
	}
	return f
}
