package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed ids. The version suffix leaves room
// for changing the algorithm.
const (
	DomainEvent = "pickflow/event/v1"
	DomainTrace = "pickflow/trace/v1"
)

// hashWithDomain returns hex(SHA-256(domain || 0x00 || data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the id of a journal event. The same session, tick,
// ordinal, kind and payload always give the same id, so replaying a
// scenario into the same store is idempotent.
func EventID(sessionID string, seq int64, ord int, kind EventKind, payload Object) (string, error) {
	if payload == nil {
		payload = Object{}
	}
	canonical, err := MarshalCanonical(Object{
		"session": String(sessionID),
		"seq":     Int(seq),
		"ord":     Int(ord),
		"kind":    String(kind),
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustEventID is EventID for inputs known to be valid.
func MustEventID(sessionID string, seq int64, ord int, kind EventKind, payload Object) string {
	id, err := EventID(sessionID, seq, ord, kind, payload)
	if err != nil {
		panic(err)
	}
	return id
}

// TraceDigest hashes the ordered event ids of a run. Two runs of the same
// scenario have the same digest.
func TraceDigest(events []Event) string {
	ids := make(Array, len(events))
	for i, ev := range events {
		ids[i] = String(ev.ID)
	}
	canonical, err := MarshalCanonical(ids)
	if err != nil {
		// An array of strings always encodes.
		panic(err)
	}
	return hashWithDomain(DomainTrace, canonical)
}
