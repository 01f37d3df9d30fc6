package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// StableID derives a short deterministic identifier for a named IR entity.
// The result is kind + "_" + first 8 hex characters of SHA-256(name), stable
// across compiles of the same document. Used for diagram node IDs and
// unsupported-pattern identifiers so downstream audit tooling can correlate
// runs.
func StableID(kind, name string) string {
	sum := sha256.Sum256([]byte(name))
	return kind + "_" + hex.EncodeToString(sum[:])[:8]
}
