package core

// Version constants for the journal schema and runtime.
const (
	// SchemaVersion is the journaled record schema version.
	SchemaVersion = "1"

	// RuntimeVersion is the keel runtime version.
	RuntimeVersion = "0.1.0"
)
