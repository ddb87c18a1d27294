// Package export flattens a categorized extraction result plus the current
// field mappings and per-cell overrides into the final export record set,
// and writes it out as XLSX or CSV.
package export

import (
	"time"

	"github.com/gdi-labs/importkit/internal/mapping"
	"github.com/gdi-labs/importkit/internal/results"
)

// Item is one flattened export row: target field -> value.
type Item map[string]any

// FinalOutput is the assembled export payload.
type FinalOutput struct {
	Items    []Item   `json:"items"`
	Metadata Metadata `json:"metadata"`
}

// Metadata records when the payload was assembled and how many rows it has.
type Metadata struct {
	ExportedAt time.Time `json:"exportedAt"`
	TotalItems int       `json:"totalItems"`
}

// Assemble flattens every result row through the current mappings:
//
//   - each direct entry with a non-empty target field copies that row's
//     direct column value under the target field;
//   - each compound extraction places its extracted value under its target
//     field, unless the override arena holds an entry for that exact cell,
//     in which case the override wins even when it is empty or nil;
//   - unmapped columns are never included.
//
// Deterministic and side-effect free: identical inputs produce identical
// items (the metadata timestamp aside).
func Assemble(result results.ExtractionResult, m mapping.Mappings, overrides mapping.Overrides) FinalOutput {
	items := make([]Item, 0, len(result.Rows))

	for rowIdx, row := range result.Rows {
		item := Item{}

		for sourceCol, entry := range m.Direct {
			if entry.TargetField == "" {
				continue
			}
			if direct, ok := row.Direct[sourceCol]; ok {
				item[entry.TargetField] = direct.Value
			}
		}

		for sourceCol, compound := range row.Compound {
			for _, extraction := range compound.Extractions {
				value := extraction.ExtractedValue
				if override, ok := overrides.Lookup(rowIdx, sourceCol, extraction.TargetField); ok {
					value = override
				}
				item[extraction.TargetField] = value
			}
		}

		items = append(items, item)
	}

	return FinalOutput{
		Items: items,
		Metadata: Metadata{
			ExportedAt: time.Now().UTC(),
			TotalItems: len(items),
		},
	}
}
