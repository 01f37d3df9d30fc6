package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/StanzaFlow/StanzaFlow/internal/compiler"
	"github.com/StanzaFlow/StanzaFlow/internal/ir"
	"github.com/StanzaFlow/StanzaFlow/internal/parser"
	"github.com/StanzaFlow/StanzaFlow/internal/secrets"
)

// CLI-level error codes for failures before lowering. Lowering failures use
// the compiler's own codes.
const (
	ErrCodeRead   = "E002" // source file unreadable
	ErrCodeSyntax = "E100" // parse failure
)

// loadDocument reads, parses and lowers one workflow file. Errors come back
// unformatted so each command can render them its own way.
func loadDocument(path string, env secrets.Snapshot) (*ir.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	wf, err := parser.Parse(string(src))
	if err != nil {
		return nil, err
	}
	return compiler.Lower(wf, env)
}

// reportLoadError formats a loadDocument failure and maps it to an exit
// code: IO problems are command errors, everything else is a compile
// failure.
func reportLoadError(formatter *OutputFormatter, err error) error {
	var synErr *parser.SyntaxError
	var valErrs compiler.ValidationErrors

	switch {
	case errors.As(err, &synErr):
		_ = formatter.Error(ErrCodeSyntax, synErr.Error(), map[string]any{"line": synErr.Line})
		return WrapExitError(ExitFailure, "parse failed", err)
	case errors.As(err, &valErrs):
		_ = formatter.Error(valErrs[0].Code,
			fmt.Sprintf("validation failed with %d error(s)", len(valErrs)), valErrs)
		return WrapExitError(ExitFailure, "validation failed", err)
	case errors.Is(err, os.ErrNotExist):
		_ = formatter.Error(ErrCodeRead, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read source", err)
	default:
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "load workflow", err)
	}
}
