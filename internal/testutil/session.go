package testutil

import (
	"fmt"
	"sync"
)

// SessionIDs hands out predictable session ids: "<prefix>-1", "<prefix>-2",
// ... Golden traces depend on it.
type SessionIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSessionIDs creates a generator. An empty prefix means "session".
func NewSessionIDs(prefix string) *SessionIDs {
	if prefix == "" {
		prefix = "session"
	}
	return &SessionIDs{prefix: prefix}
}

// Generate returns the next id.
func (g *SessionIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts the numbering.
func (g *SessionIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
