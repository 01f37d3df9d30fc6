package adapter

import (
	"fmt"
	"regexp"
	"strings"
)

// Marker lines are the wire format between adapters, the escape subsystem
// and the audit scan. An adapter writes one SF-UNSUPPORTED line per pattern
// it cannot express; escape resolution replaces the line with a fenced
// SF-ESCAPE region; audit counts whatever is left.

var unsupportedRe = regexp.MustCompile(`^(\s*)// SF-UNSUPPORTED\[([^\]]+)\]: (.*)$`)

// UnsupportedMarker renders the marker line for one pattern.
func UnsupportedMarker(id, reason string) string {
	return fmt.Sprintf("// SF-UNSUPPORTED[%s]: %s", id, reason)
}

// EscapeBegin and EscapeEnd fence a region of synthesized code so audits and
// humans can attribute it to its pattern.
func EscapeBegin(id string) string { return fmt.Sprintf("// SF-ESCAPE[%s] begin", id) }

// EscapeEnd closes the region opened by EscapeBegin.
func EscapeEnd(id string) string { return fmt.Sprintf("// SF-ESCAPE[%s] end", id) }

// ParseUnsupportedMarker recognizes a marker line, tolerating leading
// indentation. It returns the pattern ID and reason.
func ParseUnsupportedMarker(line string) (id, reason string, ok bool) {
	m := unsupportedRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[2], m[3], true
}

// ScanMarkers returns the pattern IDs of all marker lines in code, in
// document order.
func ScanMarkers(code string) []string {
	var ids []string
	for _, line := range strings.Split(code, "\n") {
		if id, _, ok := ParseUnsupportedMarker(line); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// ReplaceMarker swaps the marker line for pattern id with replacement code,
// fenced by SF-ESCAPE comments and re-indented to the marker's depth. It
// reports whether a marker with that id was found.
func ReplaceMarker(code, id, replacement string) (string, bool) {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		m := unsupportedRe.FindStringSubmatch(line)
		if m == nil || m[2] != id {
			continue
		}
		indent := m[1]
		var region []string
		region = append(region, indent+EscapeBegin(id))
		for _, rl := range strings.Split(strings.TrimRight(replacement, "\n"), "\n") {
			if rl == "" {
				region = append(region, "")
				continue
			}
			region = append(region, indent+rl)
		}
		region = append(region, indent+EscapeEnd(id))
		out := append(lines[:i:i], region...)
		out = append(out, lines[i+1:]...)
		return strings.Join(out, "\n"), true
	}
	return code, false
}

// AnnotateMarker appends a resolution note to the marker line for pattern
// id, leaving the marker in place. Used when synthesis was attempted and
// rejected, so the output records why.
func AnnotateMarker(code, id, note string) (string, bool) {
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		m := unsupportedRe.FindStringSubmatch(line)
		if m == nil || m[2] != id {
			continue
		}
		lines[i] = line + " (" + note + ")"
		return strings.Join(lines, "\n"), true
	}
	return code, false
}
