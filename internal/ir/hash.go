package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainEscape is the domain prefix for escape-cache keys. The version
// suffix allows a future key-algorithm migration without colliding with
// existing entries.
const DomainEscape = "stanzaflow/escape/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// prevents ambiguity between domain and payload bytes.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EscapeKey computes the content-addressed cache key for an unsupported
// pattern: it covers the pattern identity, the target runtime tag and the
// relevant IR fragment, so any change to any of the three yields a new key.
// A second compile of identical content always produces the same key.
func EscapeKey(patternID, target string, fragment Object) (string, error) {
	obj := Object{
		"pattern_id": String(patternID),
		"target":     String(target),
		"fragment":   fragment,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EscapeKey: marshal fragment: %w", err)
	}
	return hashWithDomain(DomainEscape, canonical), nil
}

// MustEscapeKey is like EscapeKey but panics on error.
// Use only in tests or when the fragment is known to be valid.
func MustEscapeKey(patternID, target string, fragment Object) string {
	key, err := EscapeKey(patternID, target, fragment)
	if err != nil {
		panic(err)
	}
	return key
}
