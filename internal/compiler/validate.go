package compiler

import (
	"fmt"
	"strings"
)

// Validation error codes (E200-E299).
const (
	ErrUnknownAttribute  = "E200" // attribute key outside the recognized set
	ErrInvalidRetry      = "E201" // retry must be a non-negative integer
	ErrInvalidTimeout    = "E202" // timeout must be a positive integer
	ErrDanglingBranch    = "E203" // branch target names no step in the document
	ErrDanglingFinally   = "E204" // finally target names no step in the document
	ErrDuplicateAgent    = "E205" // agent name reused within the workflow
	ErrMalformedEnvVar   = "E206" // env var name fails ^[A-Z_][A-Z0-9_]*$
	ErrMissingEnvVar     = "E207" // declared env var unset in the snapshot
	ErrDuplicateAttr     = "E208" // attribute key repeated on one step
	ErrSchemaViolation   = "E209" // lowered document failed the schema self-check
	ErrUnsupportedIRVers = "E210" // document carries an unrecognized ir_version
)

// ValidationError reports a semantically invalid construct discovered
// during lowering. Validation errors are fatal to the compile and carry a
// precise location.
type ValidationError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors aggregates everything found in one lowering pass.
// Lowering collects all errors rather than failing fast so a single compile
// surfaces every problem at once.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	parts := make([]string, len(e))
	for i, err := range e {
		parts[i] = err.Error()
	}
	return fmt.Sprintf("%d validation errors: %s", len(e), strings.Join(parts, "; "))
}
