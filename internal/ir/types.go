package ir

import "fmt"

// EventKind names a journal event.
type EventKind string

const (
	KindSessionStarted EventKind = "session_started"
	KindNodeRan        EventKind = "node_ran"
	KindOrderResolved  EventKind = "order_resolved"
	KindSessionEnded   EventKind = "session_ended"
	KindModeChanged    EventKind = "mode_changed"
)

var validKinds = map[EventKind]bool{
	KindSessionStarted: true,
	KindNodeRan:        true,
	KindOrderResolved:  true,
	KindSessionEnded:   true,
	KindModeChanged:    true,
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	return validKinds[k]
}

// Session is one journalled workflow session.
type Session struct {
	ID            string `json:"id"`
	Workflow      string `json:"workflow"`
	Target        string `json:"target"`
	StartSeq      int64  `json:"start_seq"`
	EndSeq        int64  `json:"end_seq,omitempty"`
	Exit          string `json:"exit,omitempty"` // completed, cancelled or failed; empty while running
	Error         string `json:"error,omitempty"`
	EngineVersion string `json:"engine_version"`
}

// Ended reports whether the session has an exit recorded.
func (s Session) Ended() bool {
	return s.Exit != ""
}

// Event is one journal entry. Mode changes are not tied to a session and
// carry an empty SessionID.
type Event struct {
	ID        string    `json:"id"` // Content-addressed, see EventID
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"` // Tick
	Ord       int       `json:"ord"` // Position within the tick
	Kind      EventKind `json:"kind"`
	Payload   Object    `json:"payload"`
}

// NewEvent builds an event and computes its id.
func NewEvent(sessionID string, seq int64, ord int, kind EventKind, payload Object) (Event, error) {
	if !kind.Valid() {
		return Event{}, fmt.Errorf("unknown event kind %q", kind)
	}
	if payload == nil {
		payload = Object{}
	}
	id, err := EventID(sessionID, seq, ord, kind, payload)
	if err != nil {
		return Event{}, err
	}
	return Event{ID: id, SessionID: sessionID, Seq: seq, Ord: ord, Kind: kind, Payload: payload}, nil
}

// String renders the event on one line for traces and logs.
func (e Event) String() string {
	return fmt.Sprintf("%d.%d %s %s %s", e.Seq, e.Ord, e.SessionID, e.Kind, describePayload(e.Payload))
}

func describePayload(p Object) string {
	out := ""
	for i, k := range p.SortedKeys() {
		if i > 0 {
			out += " "
		}
		b, err := MarshalValue(p[k])
		if err != nil {
			b = []byte("?")
		}
		out += k + "=" + string(b)
	}
	return out
}
