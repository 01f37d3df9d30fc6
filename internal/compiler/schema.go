package compiler

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

// loadSchema compiles and caches the embedded CUE schema.
func loadSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		root := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
		if err := root.Err(); err != nil {
			schemaErr = fmt.Errorf("compile embedded schema: %w", err)
			return
		}
		schemaVal = root.LookupPath(cue.ParsePath("#Document"))
		if err := schemaVal.Err(); err != nil {
			schemaErr = fmt.Errorf("lookup #Document: %w", err)
		}
	})
	return schemaVal, schemaErr
}

// ValidateSchema checks a lowered document against the embedded IR schema.
// This is the compiler's self-check: it runs before Lower returns so no
// generator ever sees a document that does not conform.
func ValidateSchema(doc *ir.Document) error {
	if doc.IRVersion != ir.IRVersion {
		return ValidationErrors{{
			Code:    ErrUnsupportedIRVers,
			Field:   "ir_version",
			Message: fmt.Sprintf("unrecognized ir_version %q, this compiler is pinned to %q", doc.IRVersion, ir.IRVersion),
		}}
	}

	schema, err := loadSchema()
	if err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document for schema check: %w", err)
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return fmt.Errorf("decode document for schema check: %w", err)
	}

	value := schema.Context().BuildExpr(expr)
	if err := value.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return formatCUEError(err)
	}
	return nil
}

// formatCUEError converts CUE's multi-error into ValidationErrors with the
// schema-violation code and the CUE path as the field.
func formatCUEError(err error) error {
	var errs ValidationErrors
	for _, e := range cueerrors.Errors(err) {
		field := "document"
		if path := e.Path(); len(path) > 0 {
			field = path[0]
			for _, p := range path[1:] {
				field += "." + p
			}
		}
		errs = append(errs, ValidationError{
			Code:    ErrSchemaViolation,
			Field:   field,
			Message: e.Error(),
		})
	}
	if len(errs) == 0 {
		return err
	}
	return errs
}
