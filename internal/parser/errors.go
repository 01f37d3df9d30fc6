package parser

import "fmt"

// SyntaxError reports malformed source with the offending line number.
// Parse errors are fatal to a compile.
type SyntaxError struct {
	Line    int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at line %d: %s", e.Line, e.Message)
}
