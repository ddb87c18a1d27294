package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/common"
)

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// ValidateContext checks an ExtractionContext for structural validity and
// duplicate field identifiers. Returns an INVALID_SCHEMA ImportError on
// failure.
func ValidateContext(ctx ExtractionContext) error {
	raw, err := json.Marshal(ctx)
	if err != nil {
		return common.NewImportError(constants.ErrCodeInvalidSchema, "encode extraction context", err)
	}
	if err := ValidateJSONAgainstSchema(BuildContextJSONSchema(), raw); err != nil {
		return common.NewImportError(constants.ErrCodeInvalidSchema, "invalid extraction context", err)
	}
	seen := make(map[string]struct{}, len(ctx.Fields))
	for _, f := range ctx.Fields {
		if _, dup := seen[f.Field]; dup {
			return common.NewImportError(constants.ErrCodeInvalidSchema,
				fmt.Sprintf("duplicate field identifier %q", f.Field), nil)
		}
		seen[f.Field] = struct{}{}
	}
	return nil
}
