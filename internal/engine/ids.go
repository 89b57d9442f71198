package engine

import "github.com/google/uuid"

// UUIDv7Generator names sessions with time-sortable UUIDv7 strings. It is
// the default session id generator.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7. It panics if the system's
// random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}
