package testutil

import "github.com/StanzaFlow/StanzaFlow/internal/secrets"

// Env builds a snapshot from key/value pairs. Panics on an odd count so a
// malformed test fails loudly.
func Env(pairs ...string) secrets.Snapshot {
	if len(pairs)%2 != 0 {
		panic("testutil.Env: odd number of arguments")
	}
	env := make(secrets.Snapshot, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		env[pairs[i]] = pairs[i+1]
	}
	return env
}
