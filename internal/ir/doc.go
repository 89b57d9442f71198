// Package ir defines the trace records written by the engine journal and the
// canonical JSON encoding used to identify them.
//
// ir imports nothing internal; store, engine and harness build on it.
//
// Key constraints:
//   - no floats in payloads; poses travel as their string form
//   - JSON tags use snake_case
//   - ordering is by tick seq and per-tick ordinal, never wall-clock time
package ir
