package schema

// BuildContextJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map describing a well-formed ExtractionContext. The client checks
// caller input against it before upload and the mock backend checks the
// decoded multipart part against it on /extract.
func BuildContextJSONSchema() map[string]any {
	fieldProps := map[string]any{
		"field":       map[string]any{"type": "string", "minLength": 1},
		"description": map[string]any{"type": "string"},
		"dataType": map[string]any{
			"type": "string",
			"enum": []string{"string", "number", "date", "boolean"},
		},
		"required": map[string]any{"type": "boolean"},
		"examples": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"description": map[string]any{"type": "string", "minLength": 1},
			"fields": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"properties":           fieldProps,
					"required":             []string{"field", "description"},
				},
			},
			"hints": map[string]any{"type": "object"},
		},
		"required": []string{"description", "fields"},
	}
}
