package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StanzaFlow/StanzaFlow/internal/ir"
)

func validDoc() *ir.Document {
	return &ir.Document{
		IRVersion: ir.IRVersion,
		Workflow: ir.Workflow{
			Title: "T",
			Agents: []ir.Agent{{
				Name:  "A",
				Steps: []ir.Step{{Name: "S", Attrs: []ir.StepAttr{ir.Retry{Count: 1}}}},
			}},
			Escapes: []ir.EscapeBlock{},
			Secrets: []ir.SecretRef{},
		},
	}
}

func TestValidateSchemaAccepts(t *testing.T) {
	require.NoError(t, ValidateSchema(validDoc()))
}

func TestValidateSchemaRejectsWrongVersion(t *testing.T) {
	doc := validDoc()
	doc.IRVersion = "0.1"
	err := ValidateSchema(doc)
	require.Error(t, err)
	valErrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, ErrUnsupportedIRVers, valErrs[0].Code)
}

func TestValidateSchemaRejectsOutOfRange(t *testing.T) {
	doc := validDoc()
	doc.Workflow.Agents[0].Steps[0].Attrs = []ir.StepAttr{ir.Retry{Count: -3}}
	err := ValidateSchema(doc)
	require.Error(t, err)
	valErrs, ok := err.(ValidationErrors)
	require.True(t, ok)
	assert.Equal(t, ErrSchemaViolation, valErrs[0].Code)
}

func TestValidateSchemaRejectsEmptyAgentName(t *testing.T) {
	doc := validDoc()
	doc.Workflow.Agents[0].Name = ""
	err := ValidateSchema(doc)
	require.Error(t, err)
}
