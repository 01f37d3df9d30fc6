package ir

// Version constants for the IR schema and the compiler.
const (
	// IRVersion is the IR schema version this compiler release is pinned
	// to. Consumers must reject documents carrying any other version; there
	// is no best-effort lowering across versions.
	IRVersion = "0.2"

	// CompilerVersion is the StanzaFlow compiler version.
	CompilerVersion = "0.1.0"
)
