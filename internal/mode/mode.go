// Package mode owns the editor's current interaction mode.
//
// The Selector is the single writer of "current mode". Everything else
// sends it Requests through a queue; the engine applies the queue once per
// tick, so a transition always cancels and cleans up the running session
// before the next one starts.
package mode

import (
	"fmt"

	"github.com/roach88/pickflow/internal/scene"
)

// Kind is the closed set of interaction modes.
type Kind int

const (
	// Inspect is the idle mode: ordinary hover and select.
	Inspect Kind = iota
	CreatePoint
	ReplacePoint
	PlaceObject2D
	ReplaceParent3D
	CreateEdges
	CreatePath
	ReplaceSide
)

var kindNames = [...]string{
	Inspect:         "inspect",
	CreatePoint:     "create_point",
	ReplacePoint:    "replace_point",
	PlaceObject2D:   "place_object_2d",
	ReplaceParent3D: "replace_parent_3d",
	CreateEdges:     "create_edges",
	CreatePath:      "create_path",
	ReplaceSide:     "replace_side",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps a kind name back onto a Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return Inspect, fmt.Errorf("unknown mode %q", s)
}

// Kinds lists every kind that runs a workflow, in declaration order.
func Kinds() []Kind {
	return []Kind{CreatePoint, ReplacePoint, PlaceObject2D, ReplaceParent3D, CreateEdges, CreatePath, ReplaceSide}
}

// Mode is a kind plus the parameters its workflow needs.
type Mode struct {
	Kind Kind

	// Target is the entity the workflow acts on: the point to rewire for
	// ReplacePoint, the object to re-parent for ReplaceParent3D, the edge
	// for ReplaceSide.
	Target scene.Entity

	// Side is the endpoint ReplaceSide rewires.
	Side scene.Side

	// Workspace is the fallback parent for ReplaceParent3D.
	Workspace scene.Entity

	// Object is the model to place for PlaceObject2D.
	Object string

	// Category is what CreateEdges draws (wall, lane, door, measurement,
	// lift) or what CreatePath outlines (floor).
	Category string

	// Repeating keeps CreatePoint running after each point.
	Repeating bool

	// Scope decides which anchors anchor-picking workflows offer.
	Scope scene.AnchorScope

	// Explicit marks the parameters the requester chose or configuration
	// filled in. The rest take the workflow's built-in default.
	Explicit Field
}

// Field names a Mode parameter that can fall back to a configured default.
type Field uint8

const (
	FieldRepeating Field = 1 << iota
	FieldScope
	FieldObject
	FieldCategory
)

// Has reports whether every field in f is set.
func (f Field) Has(fields Field) bool { return f&fields == fields }

// With marks f as explicitly chosen.
func (m Mode) With(f Field) Mode {
	m.Explicit |= f
	return m
}

func (m Mode) String() string {
	switch m.Kind {
	case CreatePoint:
		return fmt.Sprintf("%s(repeating=%t, scope=%s)", m.Kind, m.Repeating, m.Scope)
	case ReplacePoint:
		return fmt.Sprintf("%s(%s, scope=%s)", m.Kind, m.Target, m.Scope)
	case PlaceObject2D:
		return fmt.Sprintf("%s(%q)", m.Kind, m.Object)
	case ReplaceParent3D:
		return fmt.Sprintf("%s(%s, workspace=%s)", m.Kind, m.Target, m.Workspace)
	case ReplaceSide:
		return fmt.Sprintf("%s(%s, side=%s, scope=%s)", m.Kind, m.Target, m.Side, m.Scope)
	case CreateEdges, CreatePath:
		return fmt.Sprintf("%s(%q, scope=%s)", m.Kind, m.Category, m.Scope)
	}
	return m.Kind.String()
}
