package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pickflow/internal/input"
	"github.com/roach88/pickflow/internal/mode"
	"github.com/roach88/pickflow/internal/scene"
	"github.com/roach88/pickflow/internal/service"
)

// Scenario is a scripted editor session plus what must hold afterwards.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Config is inline CUE, compiled with config.CompileString.
	Config string `yaml:"config,omitempty"`

	// ConfigDir is a CUE package directory, relative to the scenario file.
	// It is ignored when Config is set.
	ConfigDir string `yaml:"config_dir,omitempty"`

	World WorldSpec `yaml:"world"`
	Ticks []Tick    `yaml:"ticks"`

	// Settle keeps ticking after the scripted ticks until the engine is
	// idle.
	Settle bool `yaml:"settle,omitempty"`

	Assertions []Assertion `yaml:"assertions"`
}

// WorldSpec describes the entities present before the first tick. Parents
// are named: "site", "level", the drawing, or any entity listed earlier.
// Entities are spawned in field order: frames, anchors, objects, points,
// edges.
type WorldSpec struct {
	Drawing string       `yaml:"drawing,omitempty"`
	Frames  []EntitySpec `yaml:"frames,omitempty"`
	Anchors []EntitySpec `yaml:"anchors,omitempty"`
	Objects []EntitySpec `yaml:"objects,omitempty"`
	Points  []PointSpec  `yaml:"points,omitempty"`
	Edges   []EdgeSpec   `yaml:"edges,omitempty"`

	// PickingBlocked simulates a UI element capturing the pointer.
	PickingBlocked bool `yaml:"picking_blocked,omitempty"`
}

// EntitySpec is a frame, anchor or object.
type EntitySpec struct {
	Name   string   `yaml:"name"`
	Parent string   `yaml:"parent"`
	Pose   PoseSpec `yaml:"pose,omitempty"`

	// Model is the object's model; objects only.
	Model string `yaml:"model,omitempty"`
}

// PointSpec is a committed point referencing a named anchor.
type PointSpec struct {
	Name   string `yaml:"name"`
	Anchor string `yaml:"anchor"`
}

// EdgeSpec is a committed edge between two named anchors.
type EdgeSpec struct {
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

// PoseSpec is a scene.Pose in YAML.
type PoseSpec struct {
	X   float64 `yaml:"x,omitempty"`
	Y   float64 `yaml:"y,omitempty"`
	Z   float64 `yaml:"z,omitempty"`
	Yaw float64 `yaml:"yaw,omitempty"`
}

func (p PoseSpec) pose() scene.Pose {
	return scene.Pose{X: p.X, Y: p.Y, Z: p.Z, Yaw: p.Yaw}
}

// Tick is the input of one tick.
type Tick struct {
	// Request is queued before the tick runs.
	Request *RequestSpec `yaml:"request,omitempty"`

	Hover string   `yaml:"hover,omitempty"`
	Click bool     `yaml:"click,omitempty"`
	Keys  []string `yaml:"keys,omitempty"`

	// Ground is where the cursor ray meets the ground. Omitted means the
	// ray misses.
	Ground *PoseSpec `yaml:"ground,omitempty"`
}

// RequestSpec is a mode request. Exactly one of To, Backout and Cancel is
// set. Parameters left out fall back to the configured defaults.
type RequestSpec struct {
	To      string `yaml:"to,omitempty"`
	Backout bool   `yaml:"backout,omitempty"`
	Cancel  bool   `yaml:"cancel,omitempty"`

	Target    string `yaml:"target,omitempty"`
	Workspace string `yaml:"workspace,omitempty"`
	Object    string `yaml:"object,omitempty"`
	Category  string `yaml:"category,omitempty"`
	Repeating *bool  `yaml:"repeating,omitempty"`
	Scope     string `yaml:"scope,omitempty"`

	// Side is the edge side to replace: start or end.
	Side string `yaml:"side,omitempty"`
}

// Assertion checks the state after the run.
type Assertion struct {
	Type string `yaml:"type"`

	// Mode is the expected current mode (mode).
	Mode string `yaml:"mode,omitempty"`

	// Kind is the entity kind to count (entity_count).
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (entity_count, sessions).
	Count *int `yaml:"count,omitempty"`

	// Point names the point to inspect; empty means the newest point
	// (point_anchor).
	Point string `yaml:"point,omitempty"`

	// Anchor is the expected anchor name (point_anchor).
	Anchor string `yaml:"anchor,omitempty"`

	// Marker is a cursor mode label or one of the world markers (marker_absent).
	Marker string `yaml:"marker,omitempty"`

	// Workflow filters sessions by workflow name (sessions).
	Workflow string `yaml:"workflow,omitempty"`

	// Session is the session id; empty means the last session (exit).
	Session string `yaml:"session,omitempty"`

	// Exit is the expected exit reason (exit).
	Exit string `yaml:"exit,omitempty"`

	// Entity and Parent name an entity and its expected parent (parent).
	Entity string `yaml:"entity,omitempty"`
	Parent string `yaml:"parent,omitempty"`

	// Edge, Start and End name an edge and its expected anchors
	// (edge_anchors).
	Edge  string `yaml:"edge,omitempty"`
	Start string `yaml:"start,omitempty"`
	End   string `yaml:"end,omitempty"`
}

// Assertion type constants.
const (
	AssertMode         = "mode"
	AssertEntityCount  = "entity_count"
	AssertPointAnchor  = "point_anchor"
	AssertMarkerAbsent = "marker_absent"
	AssertSessions     = "sessions"
	AssertExit         = "exit"
	AssertParent       = "parent"
	AssertEdgeAnchors  = "edge_anchors"
)

// LoadScenario reads and validates a scenario file. Unknown fields are
// rejected so a typo cannot silently disable an assertion. ConfigDir is
// resolved relative to the file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if s.ConfigDir != "" && !filepath.IsAbs(s.ConfigDir) {
		s.ConfigDir = filepath.Join(filepath.Dir(path), s.ConfigDir)
	}
	return s, nil
}

// ParseScenario decodes and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Ticks) == 0 {
		return fmt.Errorf("ticks list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, e := range s.World.Frames {
		if err := validateEntity("world.frames", i, e); err != nil {
			return err
		}
	}
	for i, e := range s.World.Anchors {
		if err := validateEntity("world.anchors", i, e); err != nil {
			return err
		}
	}
	for i, e := range s.World.Objects {
		if err := validateEntity("world.objects", i, e); err != nil {
			return err
		}
		if e.Model == "" {
			return fmt.Errorf("world.objects[%d]: model is required", i)
		}
	}
	for i, p := range s.World.Points {
		if p.Name == "" || p.Anchor == "" {
			return fmt.Errorf("world.points[%d]: name and anchor are required", i)
		}
	}
	for i, e := range s.World.Edges {
		if e.Name == "" || e.Category == "" || e.Start == "" || e.End == "" {
			return fmt.Errorf("world.edges[%d]: name, category, start and end are required", i)
		}
		if e.Start == e.End {
			return fmt.Errorf("world.edges[%d]: start and end must differ", i)
		}
	}

	for i, t := range s.Ticks {
		if err := validateTick(i, t); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateEntity(field string, i int, e EntitySpec) error {
	if e.Name == "" {
		return fmt.Errorf("%s[%d]: name is required", field, i)
	}
	if e.Parent == "" {
		return fmt.Errorf("%s[%d]: parent is required", field, i)
	}
	return nil
}

func validateTick(i int, t Tick) error {
	for _, k := range t.Keys {
		if k == "" {
			return fmt.Errorf("ticks[%d]: empty key", i)
		}
	}
	r := t.Request
	if r == nil {
		return nil
	}
	set := 0
	if r.To != "" {
		set++
		if _, err := mode.ParseKind(r.To); err != nil {
			return fmt.Errorf("ticks[%d].request: %w", i, err)
		}
	}
	if r.Backout {
		set++
	}
	if r.Cancel {
		set++
	}
	if set != 1 {
		return fmt.Errorf("ticks[%d].request: exactly one of to, backout and cancel is required", i)
	}
	if _, err := scene.ParseAnchorScope(r.Scope); err != nil {
		return fmt.Errorf("ticks[%d].request: %w", i, err)
	}
	if r.Side != "" {
		if _, err := scene.ParseSide(r.Side); err != nil {
			return fmt.Errorf("ticks[%d].request: %w", i, err)
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	switch a.Type {
	case AssertMode:
		if a.Mode == "" {
			return fmt.Errorf("assertions[%d]: mode is required for mode", index)
		}
		if _, err := mode.ParseKind(a.Mode); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertEntityCount:
		if _, err := scene.ParseKind(a.Kind); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for entity_count", index)
		}
	case AssertPointAnchor:
		if a.Anchor == "" {
			return fmt.Errorf("assertions[%d]: anchor is required for point_anchor", index)
		}
	case AssertMarkerAbsent:
		if a.Marker == "" {
			return fmt.Errorf("assertions[%d]: marker is required for marker_absent", index)
		}
	case AssertSessions:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for sessions", index)
		}
	case AssertExit:
		if _, err := service.ParseReason(a.Exit); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertParent:
		if a.Entity == "" || a.Parent == "" {
			return fmt.Errorf("assertions[%d]: entity and parent are required for parent", index)
		}
	case AssertEdgeAnchors:
		if a.Edge == "" || a.Start == "" || a.End == "" {
			return fmt.Errorf("assertions[%d]: edge, start and end are required for edge_anchors", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// frame builds the input frame of t.
func (t Tick) frame(names map[string]scene.Entity) (input.Frame, error) {
	f := input.Frame{MouseJustPressed: t.Click}
	if t.Hover != "" {
		e, ok := names[t.Hover]
		if !ok {
			return f, fmt.Errorf("hover: unknown entity %q", t.Hover)
		}
		f.Hovered = e
	}
	for _, k := range t.Keys {
		f.Keys = append(f.Keys, input.Key(k))
	}
	if t.Ground != nil {
		p := t.Ground.pose()
		f.GroundHit = &p
	}
	return f, nil
}

// request converts r into a selector request.
func (r RequestSpec) request(names map[string]scene.Entity) (mode.Request, error) {
	switch {
	case r.Backout:
		return mode.Backout(), nil
	case r.Cancel:
		return mode.Cancel(), nil
	}
	kind, err := mode.ParseKind(r.To)
	if err != nil {
		return mode.Request{}, err
	}
	scope, err := scene.ParseAnchorScope(r.Scope)
	if err != nil {
		return mode.Request{}, err
	}
	m := mode.Mode{Kind: kind, Object: r.Object, Category: r.Category, Scope: scope}
	if r.Repeating != nil {
		m.Repeating = *r.Repeating
		m = m.With(mode.FieldRepeating)
	}
	if r.Scope != "" {
		m = m.With(mode.FieldScope)
	}
	if r.Object != "" {
		m = m.With(mode.FieldObject)
	}
	if r.Category != "" {
		m = m.With(mode.FieldCategory)
	}
	if r.Side != "" {
		side, err := scene.ParseSide(r.Side)
		if err != nil {
			return mode.Request{}, err
		}
		m.Side = side
	}
	if r.Target != "" {
		e, ok := names[r.Target]
		if !ok {
			return mode.Request{}, fmt.Errorf("target: unknown entity %q", r.Target)
		}
		m.Target = e
	}
	if r.Workspace != "" {
		e, ok := names[r.Workspace]
		if !ok {
			return mode.Request{}, fmt.Errorf("workspace: unknown entity %q", r.Workspace)
		}
		m.Workspace = e
	}
	return mode.To(m), nil
}
