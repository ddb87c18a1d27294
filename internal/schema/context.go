package schema

// FieldDefinition describes one target field the backend should extract.
type FieldDefinition struct {
	Field       string   `json:"field"`
	Description string   `json:"description"`
	DataType    string   `json:"dataType,omitempty"` // string|number|date|boolean
	Required    bool     `json:"required,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// ExtractionContext is the caller-supplied schema for one import session.
// It is immutable for the duration of the import.
type ExtractionContext struct {
	Description string            `json:"description"`
	Fields      []FieldDefinition `json:"fields"`
	Hints       map[string]any    `json:"hints,omitempty"`
}

// RequiredFields returns the identifiers of fields marked required, in
// declaration order.
func (c ExtractionContext) RequiredFields() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Required {
			out = append(out, f.Field)
		}
	}
	return out
}

// FieldByName looks a field definition up by identifier.
func (c ExtractionContext) FieldByName(name string) (FieldDefinition, bool) {
	for _, f := range c.Fields {
		if f.Field == name {
			return f, true
		}
	}
	return FieldDefinition{}, false
}
