package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/StanzaFlow/StanzaFlow/internal/compiler"
	"github.com/StanzaFlow/StanzaFlow/internal/parser"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow.sf.md>",
		Short: "Validate a workflow without generating code",
		Long: `Parse and lower a workflow, reporting every syntax and semantic error.

Runs the same checks as compile but stops before code generation, so it
is the fast feedback loop during authoring.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	src, err := os.ReadFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeRead, err.Error(), nil)
		return WrapExitError(ExitCommandError, "read source", err)
	}

	wf, err := parser.Parse(string(src))
	if err != nil {
		var synErr *parser.SyntaxError
		if errors.As(err, &synErr) {
			return outputValidationErrors(formatter, []compiler.ValidationError{{
				Code:    ErrCodeSyntax,
				Field:   "source",
				Message: synErr.Message,
				Line:    synErr.Line,
			}})
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "parse failed", err)
	}
	formatter.VerboseLog("parsed %q: %d agent(s), %d escape block(s), %d secret(s)",
		wf.Title, len(wf.Agents), len(wf.Escapes), len(wf.Secrets))

	if _, err := compiler.Lower(wf, snapshotEnviron()); err != nil {
		var valErrs compiler.ValidationErrors
		if errors.As(err, &valErrs) {
			return outputValidationErrors(formatter, valErrs)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ workflow valid")
	return nil
}

// outputValidationErrors renders the full error list and maps the failure
// to exit code 1.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		resp := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}
		enc := json.NewEncoder(formatter.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
