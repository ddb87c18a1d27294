// Package presets supplies named, ready-made extraction contexts for the
// demo CLI, either built in or loaded from a JSON file.
package presets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gdi-labs/importkit/internal/schema"
)

// Preset is one named extraction context.
type Preset struct {
	ID      string                   `json:"id"`
	Name    string                   `json:"name"`
	Context schema.ExtractionContext `json:"context"`
}

type presetsFile struct {
	Presets []Preset `json:"presets"`
}

// Builtin returns the presets shipped with the demo.
func Builtin() []Preset {
	return []Preset{
		{
			ID:   "contacts",
			Name: "Contact list",
			Context: schema.ExtractionContext{
				Description: "A list of people with their contact details",
				Fields: []schema.FieldDefinition{
					{Field: "firstName", Description: "Given name", DataType: "string"},
					{Field: "lastName", Description: "Family name", DataType: "string"},
					{Field: "email", Description: "Email address", DataType: "string", Required: true},
					{Field: "phone", Description: "Phone number", DataType: "string"},
				},
			},
		},
		{
			ID:   "expenses",
			Name: "Expense report",
			Context: schema.ExtractionContext{
				Description: "Business expenses with amounts and dates",
				Fields: []schema.FieldDefinition{
					{Field: "date", Description: "Transaction date", DataType: "date", Required: true},
					{Field: "merchant", Description: "Merchant or vendor name", DataType: "string", Required: true},
					{Field: "amount", Description: "Total amount", DataType: "number", Required: true},
					{Field: "category", Description: "Expense category", DataType: "string",
						Examples: []string{"Meals", "Travel", "Software"}},
				},
			},
		},
	}
}

// LoadFile reads presets from a JSON file and validates each context.
func LoadFile(path string) ([]Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}
	var pf presetsFile
	if err := json.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("decode presets file: %w", err)
	}
	for _, p := range pf.Presets {
		if err := schema.ValidateContext(p.Context); err != nil {
			return nil, fmt.Errorf("preset %q: %w", p.ID, err)
		}
	}
	return pf.Presets, nil
}

// Find locates a preset by id among the given sets, later sets winning.
func Find(id string, sets ...[]Preset) (Preset, bool) {
	var found Preset
	ok := false
	for _, set := range sets {
		for _, p := range set {
			if p.ID == id {
				found = p
				ok = true
			}
		}
	}
	return found, ok
}
