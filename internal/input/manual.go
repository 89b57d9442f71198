package input

import (
	"sync"

	"github.com/roach88/pickflow/internal/scene"
)

// Manual is an adapter driven by explicit calls. It implements all four
// adapter interfaces. Key presses and clicks are edges: they are reported by
// the next sample and then cleared. Hover and ground persist until changed.
//
// Manual is safe for concurrent use so a UI goroutine can feed it while the
// engine samples.
type Manual struct {
	mu      sync.Mutex
	keys    []Key
	hovered scene.Entity
	clicked bool
	ground  *scene.Pose
}

// NewManual returns an idle adapter.
func NewManual() *Manual {
	return &Manual{}
}

// Press queues a key press.
func (m *Manual) Press(k Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, k)
}

// Hover sets the picked entity. scene.None clears it.
func (m *Manual) Hover(e scene.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hovered = e
}

// Click queues a left button press.
func (m *Manual) Click() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clicked = true
}

// SetGround sets the ground intersection.
func (m *Manual) SetGround(p scene.Pose) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ground = &p
}

// ClearGround removes the ground intersection.
func (m *Manual) ClearGround() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ground = nil
}

// KeysJustPressed implements KeyboardSource.
func (m *Manual) KeysJustPressed() []Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.keys
	m.keys = nil
	return keys
}

// Hovered implements HoverSource.
func (m *Manual) Hovered() scene.Entity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hovered
}

// LeftJustPressed implements MouseSource.
func (m *Manual) LeftJustPressed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.clicked
	m.clicked = false
	return c
}

// GroundIntersection implements GroundSource.
func (m *Manual) GroundIntersection() (scene.Pose, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ground == nil {
		return scene.Pose{}, false
	}
	return *m.ground, true
}

// Source wires m into every slot of a Sampler.
func (m *Manual) Source() *Sampler {
	return &Sampler{Keyboard: m, Hover: m, Mouse: m, Ground: m}
}
