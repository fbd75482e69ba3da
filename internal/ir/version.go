package ir

// Version constants for the wire format and engine.
const (
	// WireVersion is the ExpandedGraph wire format version.
	WireVersion = "1"

	// EngineVersion is the ergo engine version.
	EngineVersion = "0.1.0"
)
