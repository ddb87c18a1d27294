package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/common"
)

func validContext() ExtractionContext {
	return ExtractionContext{
		Description: "A list of people with contact details",
		Fields: []FieldDefinition{
			{Field: "firstName", Description: "Given name", DataType: "string"},
			{Field: "email", Description: "Email address", DataType: "string", Required: true},
			{Field: "age", Description: "Age in years", DataType: "number", Examples: []string{"42"}},
		},
	}
}

func TestValidateContextOK(t *testing.T) {
	require.NoError(t, ValidateContext(validContext()))
}

func TestValidateContextEmptyDescription(t *testing.T) {
	ctx := validContext()
	ctx.Description = ""
	err := ValidateContext(ctx)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, constants.ErrCodeInvalidSchema))
}

func TestValidateContextNoFields(t *testing.T) {
	ctx := validContext()
	ctx.Fields = nil
	require.Error(t, ValidateContext(ctx))

	ctx.Fields = []FieldDefinition{}
	require.Error(t, ValidateContext(ctx))
}

func TestValidateContextBadDataType(t *testing.T) {
	ctx := validContext()
	ctx.Fields[0].DataType = "text"
	err := ValidateContext(ctx)
	require.Error(t, err)
	assert.True(t, common.IsCode(err, constants.ErrCodeInvalidSchema))
}

func TestValidateContextDuplicateField(t *testing.T) {
	ctx := validContext()
	ctx.Fields = append(ctx.Fields, FieldDefinition{Field: "email", Description: "again"})
	err := ValidateContext(ctx)
	require.Error(t, err)
	assert.Contains(t, common.Normalize(err).Message, "email")
}

func TestValidateJSONAgainstSchemaRejectsExtraKeys(t *testing.T) {
	payload := []byte(`{"description":"d","fields":[{"field":"a","description":"b"}],"bogus":1}`)
	require.Error(t, ValidateJSONAgainstSchema(BuildContextJSONSchema(), payload))
}

func TestRequiredFields(t *testing.T) {
	ctx := validContext()
	assert.Equal(t, []string{"email"}, ctx.RequiredFields())

	ctx.Fields[0].Required = true
	assert.Equal(t, []string{"firstName", "email"}, ctx.RequiredFields())
}

func TestFieldByName(t *testing.T) {
	ctx := validContext()
	f, ok := ctx.FieldByName("email")
	require.True(t, ok)
	assert.True(t, f.Required)

	_, ok = ctx.FieldByName("EMAIL")
	assert.False(t, ok)
}
