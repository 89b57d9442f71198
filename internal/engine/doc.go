// Package engine drives the mode selector one tick at a time.
//
// Each tick samples the input source once, applies queued mode requests,
// polls the running session and flushes the lifecycle events the session
// produced to the configured sinks. Ticks are numbered by a logical Clock;
// every journal event carries the tick it happened in and its position
// within that tick, so a replayed scenario yields an identical trace.
//
// The engine itself is single-threaded. Request may be called from other
// goroutines and wakes a running Run loop.
package engine
