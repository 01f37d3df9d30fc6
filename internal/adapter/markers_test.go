package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnsupportedMarker(t *testing.T) {
	line := UnsupportedMarker("pattern_deadbeef", `target "go" has no native form for "branch"`)
	id, reason, ok := ParseUnsupportedMarker(line)
	require.True(t, ok)
	assert.Equal(t, "pattern_deadbeef", id)
	assert.Equal(t, `target "go" has no native form for "branch"`, reason)

	id, _, ok = ParseUnsupportedMarker("\t" + line)
	require.True(t, ok, "indented markers must still parse")
	assert.Equal(t, "pattern_deadbeef", id)

	_, _, ok = ParseUnsupportedMarker("// just a comment")
	assert.False(t, ok)
	_, _, ok = ParseUnsupportedMarker("x := 1 " + line)
	assert.False(t, ok, "markers are whole lines, not suffixes")
}

func TestScanMarkersDocumentOrder(t *testing.T) {
	code := "package main\n\n" +
		"\t" + UnsupportedMarker("pattern_aaaaaaaa", "first") + "\n" +
		"func f() {}\n" +
		UnsupportedMarker("pattern_bbbbbbbb", "second") + "\n"
	assert.Equal(t, []string{"pattern_aaaaaaaa", "pattern_bbbbbbbb"}, ScanMarkers(code))
	assert.Empty(t, ScanMarkers("package main\n"))
}

func TestReplaceMarkerFencesAndIndents(t *testing.T) {
	code := "func f() error {\n" +
		"\t" + UnsupportedMarker("pattern_cafecafe", "branch") + "\n" +
		"\treturn nil\n" +
		"}\n"

	out, ok := ReplaceMarker(code, "pattern_cafecafe", "if cond {\n\tgoNext()\n}\n")
	require.True(t, ok)

	want := "func f() error {\n" +
		"\t// SF-ESCAPE[pattern_cafecafe] begin\n" +
		"\tif cond {\n" +
		"\t\tgoNext()\n" +
		"\t}\n" +
		"\t// SF-ESCAPE[pattern_cafecafe] end\n" +
		"\treturn nil\n" +
		"}\n"
	assert.Equal(t, want, out)
	assert.Empty(t, ScanMarkers(out), "replaced marker must no longer scan")
}

func TestReplaceMarkerUnknownID(t *testing.T) {
	code := UnsupportedMarker("pattern_cafecafe", "branch") + "\n"
	out, ok := ReplaceMarker(code, "pattern_00000000", "x()\n")
	assert.False(t, ok)
	assert.Equal(t, code, out)
}

func TestReplaceMarkerLeavesSiblingsAlone(t *testing.T) {
	code := UnsupportedMarker("pattern_aaaaaaaa", "one") + "\n" +
		UnsupportedMarker("pattern_bbbbbbbb", "two") + "\n"
	out, ok := ReplaceMarker(code, "pattern_aaaaaaaa", "x()")
	require.True(t, ok)
	assert.Equal(t, []string{"pattern_bbbbbbbb"}, ScanMarkers(out))
}

func TestAnnotateMarkerStaysScannable(t *testing.T) {
	code := "\t" + UnsupportedMarker("pattern_cafecafe", "branch") + "\n"
	out, ok := AnnotateMarker(code, "pattern_cafecafe", "unresolved: oracle unavailable")
	require.True(t, ok)
	assert.Contains(t, out, "(unresolved: oracle unavailable)")
	// An annotated marker still counts as unresolved for audit purposes.
	assert.Equal(t, []string{"pattern_cafecafe"}, ScanMarkers(out))

	_, ok = AnnotateMarker(code, "pattern_00000000", "note")
	assert.False(t, ok)
}
