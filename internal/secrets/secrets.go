// Package secrets resolves declared environment-variable references at
// compile time and produces masked representations for user-facing output.
//
// Resolution happens against an explicit Snapshot rather than the ambient
// process environment, so a compile is a pure function of (source, snapshot,
// cache handle). Unmasked values are never written to generated source,
// cache entries or reports.
package secrets

import "fmt"

// Snapshot is an immutable copy of the environment a compile runs against.
type Snapshot map[string]string

// EnvironmentError reports a declared environment variable that is not set
// in the snapshot. Missing secrets fail the compile; there is no silent
// default.
type EnvironmentError struct {
	Name string
}

func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("required environment variable %q is not set", e.Name)
}

// Resolve returns the value for name or an *EnvironmentError if unset.
// An empty value is valid; only absence is an error.
func (s Snapshot) Resolve(name string) (string, error) {
	value, ok := s[name]
	if !ok {
		return "", &EnvironmentError{Name: name}
	}
	return value, nil
}

// Mask produces a fixed-shape redaction of a secret value: the first and
// last two characters survive, the middle is replaced. Values shorter than
// six characters are masked completely so the redaction reveals nothing.
func Mask(value string) string {
	if len(value) < 6 {
		return "***"
	}
	return value[:2] + "***" + value[len(value)-2:]
}

// Summary maps each declared variable to its masked value, or "NOT_SET"
// when absent. Safe for audit reports and logs.
func (s Snapshot) Summary(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		if value, ok := s[name]; ok {
			out[name] = Mask(value)
		} else {
			out[name] = "NOT_SET"
		}
	}
	return out
}
