package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/pickflow/internal/ir"
	"github.com/roach88/pickflow/internal/scene"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// check evaluates one assertion. Assertions are validated at load time, so
// an unknown type here is a programming error.
func (s *finalState) check(a Assertion) error {
	switch a.Type {
	case AssertMode:
		return s.assertMode(a)
	case AssertEntityCount:
		return s.assertEntityCount(a)
	case AssertPointAnchor:
		return s.assertPointAnchor(a)
	case AssertMarkerAbsent:
		return s.assertMarkerAbsent(a)
	case AssertSessions:
		return s.assertSessions(a)
	case AssertExit:
		return s.assertExit(a)
	case AssertParent:
		return s.assertParent(a)
	case AssertEdgeAnchors:
		return s.assertEdgeAnchors(a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func (s *finalState) assertMode(a Assertion) error {
	got := s.mode.Kind.String()
	if got == a.Mode {
		return nil
	}
	return &AssertionError{Type: AssertMode, Expected: a.Mode, Actual: s.mode.String()}
}

func (s *finalState) assertEntityCount(a Assertion) error {
	kind, err := scene.ParseKind(a.Kind)
	if err != nil {
		return err
	}
	got := s.world.CountKind(kind)
	if got == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntityCount,
		Expected: fmt.Sprintf("%d %s entities", *a.Count, a.Kind),
		Actual:   fmt.Sprintf("%d", got),
	}
}

func (s *finalState) assertPointAnchor(a Assertion) error {
	w := s.world
	points := w.Points()
	point := scene.None
	if a.Point == "" {
		if len(points) > 0 {
			point = points[len(points)-1]
		}
	} else {
		for _, p := range points {
			if w.Name(p) == a.Point {
				point = p
			}
		}
	}
	if !point.Valid() {
		return &AssertionError{
			Type:     AssertPointAnchor,
			Expected: fmt.Sprintf("point %q anchored to %s", a.Point, a.Anchor),
			Actual:   "no such point",
		}
	}

	anchor, err := w.PointAnchor(point)
	if err != nil {
		return err
	}
	if got := w.Name(anchor); got != a.Anchor {
		return &AssertionError{
			Type:     AssertPointAnchor,
			Expected: fmt.Sprintf("%s anchored to %s", point, a.Anchor),
			Actual:   fmt.Sprintf("anchored to %s (%s)", anchor, got),
		}
	}
	return nil
}

// markers are the world-level markers marker_absent can name. Anything else
// is taken as a cursor mode label.
var markers = map[string]func(*scene.World) bool{
	"highlight":       (*scene.World).Highlight,
	"gizmo_selecting": (*scene.World).GizmoSelecting,
	"cursor_blocked":  func(w *scene.World) bool { return w.Cursor().Blocked() },
	"preview":         func(w *scene.World) bool { return w.Cursor().Preview().Valid() },
	"hovering":        func(w *scene.World) bool { return w.Hovering().Valid() },
	"hidden_drawing_anchors": func(w *scene.World) bool {
		return w.HiddenDrawingAnchors() > 0
	},
	"pending": func(w *scene.World) bool {
		for _, list := range [][]scene.Entity{w.Points(), w.Edges(), w.Paths()} {
			for _, e := range list {
				if w.IsPending(e) {
					return true
				}
			}
		}
		return false
	},
	"original": func(w *scene.World) bool {
		for _, p := range w.Points() {
			if _, ok := w.Original(p); ok {
				return true
			}
		}
		for _, e := range w.Edges() {
			if _, ok := w.OriginalEdge(e); ok {
				return true
			}
		}
		return false
	},
}

func (s *finalState) assertMarkerAbsent(a Assertion) error {
	var present bool
	if check, ok := markers[a.Marker]; ok {
		present = check(s.world)
	} else {
		present = s.world.Cursor().HasMode(a.Marker)
	}
	if !present {
		return nil
	}
	return &AssertionError{Type: AssertMarkerAbsent, Expected: a.Marker + " absent", Actual: "present"}
}

func (s *finalState) assertSessions(a Assertion) error {
	got := 0
	for _, sess := range s.sessions {
		if a.Workflow == "" || sess.Workflow == a.Workflow {
			got++
		}
	}
	if got == *a.Count {
		return nil
	}
	what := "sessions"
	if a.Workflow != "" {
		what = a.Workflow + " sessions"
	}
	return &AssertionError{
		Type:     AssertSessions,
		Expected: fmt.Sprintf("%d %s", *a.Count, what),
		Actual:   fmt.Sprintf("%d", got),
	}
}

func (s *finalState) assertExit(a Assertion) error {
	var sess *ir.Session
	if a.Session == "" {
		if n := len(s.sessions); n > 0 {
			sess = &s.sessions[n-1]
		}
	} else {
		for i := range s.sessions {
			if s.sessions[i].ID == a.Session {
				sess = &s.sessions[i]
			}
		}
	}
	if sess == nil {
		return &AssertionError{Type: AssertExit, Expected: "session " + a.Session + " " + a.Exit, Actual: "no such session"}
	}
	if sess.Exit == a.Exit {
		return nil
	}
	actual := sess.Exit
	if actual == "" {
		actual = "still running"
	}
	if sess.Error != "" {
		actual += ": " + sess.Error
	}
	return &AssertionError{Type: AssertExit, Expected: fmt.Sprintf("%s %s", sess.ID, a.Exit), Actual: actual}
}

func (s *finalState) assertParent(a Assertion) error {
	e, ok := s.names[a.Entity]
	if !ok {
		return fmt.Errorf("unknown entity %q", a.Entity)
	}
	parent, err := s.world.Parent(e)
	if err != nil {
		return err
	}
	if got := s.world.Name(parent); got != a.Parent {
		return &AssertionError{Type: AssertParent, Expected: a.Entity + " under " + a.Parent, Actual: "under " + got}
	}
	return nil
}

func (s *finalState) assertEdgeAnchors(a Assertion) error {
	e, ok := s.names[a.Edge]
	if !ok {
		return fmt.Errorf("unknown entity %q", a.Edge)
	}
	anchors, err := s.world.EdgeAnchors(e)
	if err != nil {
		return err
	}
	start, end := s.world.Name(anchors[scene.SideStart]), s.world.Name(anchors[scene.SideEnd])
	if start != a.Start || end != a.End {
		return &AssertionError{Type: AssertEdgeAnchors, Expected: a.Start + " -> " + a.End, Actual: start + " -> " + end}
	}
	return nil
}
