// Package harness replays scripted editor sessions against the real engine
// and checks what they left behind.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: create_point_click
//	description: "A click on an anchor commits one point"
//	config: |
//	  mode: create_point: scope: "site"
//	world:
//	  anchors:
//	    - { name: anchor_7, parent: level, pose: { x: 3 } }
//	ticks:
//	  - request: { to: create_point }
//	  - { hover: anchor_7, click: true }
//	assertions:
//	  - { type: mode, mode: inspect }
//	  - { type: point_anchor, anchor: anchor_7 }
//	  - { type: exit, exit: completed }
//
// Each entry under ticks is one engine tick: its request is queued first,
// then the tick samples the frame built from hover, click, keys and ground.
// With settle set, the engine keeps ticking on empty frames until no
// session is left, bounded by the configured max_ticks.
//
// # Assertion Types
//
//   - mode: the current mode after the last tick
//   - entity_count: number of live entities of a kind
//   - point_anchor: the anchor a point references, by name
//   - marker_absent: a cursor mode label or world marker is off
//   - sessions: number of journalled sessions, optionally per workflow
//   - exit: how a session ended
//   - parent: the parent of a named entity
//
// # Deterministic Runs
//
// Sessions are named s-1, s-2, ... and journalled to an in-memory store, so
// the trace of a scenario is identical on every run and can be compared
// with a golden file.
package harness
