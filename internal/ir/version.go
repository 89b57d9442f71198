package ir

const (
	// TraceVersion is the trace record schema version.
	TraceVersion = "1"

	// EngineVersion is the pickflow engine version recorded with each session.
	EngineVersion = "0.1.0"
)
