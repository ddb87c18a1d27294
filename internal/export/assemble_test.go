package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/internal/mapping"
	"github.com/gdi-labs/importkit/internal/results"
)

func twoRowResult() results.ExtractionResult {
	row := func(email, first, last, notes string) results.CategorizedRow {
		return results.CategorizedRow{
			Direct: map[string]results.DirectMapping{
				"Email": {SourceColumn: "Email", TargetField: "email", Value: email},
			},
			Compound: map[string]results.CompoundColumn{
				"Full Name": {
					SourceColumn: "Full Name",
					SourceValue:  first + "|" + last,
					Extractions: []results.CompoundExtraction{
						{TargetField: "firstName", ExtractedValue: first, Confidence: results.NewConfidenceScore(9)},
						{TargetField: "lastName", ExtractedValue: last, Confidence: results.NewConfidenceScore(8)},
					},
				},
			},
			Unmapped: map[string]results.UnmappedColumn{
				"Notes": {SourceColumn: "Notes", Value: notes},
			},
		}
	}
	return results.ExtractionResult{
		Rows: []results.CategorizedRow{
			row("ada@example.com", "Ada", "Lovelace", "pioneer"),
			row("grace@example.com", "Grace", "Hopper", "admiral"),
		},
	}
}

func seededMappings() mapping.Mappings {
	return mapping.Mappings{
		Direct: map[string]mapping.DirectEntry{
			"Email":     {SourceColumn: "Email", TargetField: "email"},
			"Full Name": {SourceColumn: "Full Name"},
			"Notes":     {SourceColumn: "Notes"},
		},
		Compound: map[string]mapping.CompoundEntry{},
	}
}

func TestAssembleFlattensRows(t *testing.T) {
	out := Assemble(twoRowResult(), seededMappings(), mapping.Overrides{})

	require.Len(t, out.Items, 2)
	assert.Equal(t, 2, out.Metadata.TotalItems)
	assert.False(t, out.Metadata.ExportedAt.IsZero())

	assert.Equal(t, Item{
		"email":     "ada@example.com",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	}, out.Items[0])
	assert.Equal(t, Item{
		"email":     "grace@example.com",
		"firstName": "Grace",
		"lastName":  "Hopper",
	}, out.Items[1])
}

func TestAssembleSkipsUnmappedColumns(t *testing.T) {
	out := Assemble(twoRowResult(), seededMappings(), mapping.Overrides{})
	for _, item := range out.Items {
		assert.NotContains(t, item, "Notes")
		assert.NotContains(t, item, "notes")
	}
}

func TestAssembleHonorsRemappedColumns(t *testing.T) {
	m := seededMappings()
	// The user moved email onto the Notes column and unmapped Email.
	m.Direct["Email"] = mapping.DirectEntry{SourceColumn: "Email"}
	m.Direct["Notes"] = mapping.DirectEntry{SourceColumn: "Notes", TargetField: "email"}

	out := Assemble(twoRowResult(), m, mapping.Overrides{})
	// Notes has no entry in row.Direct, so email simply disappears from
	// the direct values rather than picking up the unmapped cell.
	assert.NotContains(t, out.Items[0], "email")
	assert.Equal(t, "Ada", out.Items[0]["firstName"])
}

func TestAssembleOverridePrecedence(t *testing.T) {
	overrides := mapping.Overrides{
		{Row: 1, SourceColumn: "Full Name", TargetField: "firstName"}: "Amazing",
		{Row: 0, SourceColumn: "Full Name", TargetField: "lastName"}:  nil,
	}

	out := Assemble(twoRowResult(), seededMappings(), overrides)

	// Override applies only to its exact (row, column, field) cell.
	assert.Equal(t, "Amazing", out.Items[1]["firstName"])
	assert.Equal(t, "Ada", out.Items[0]["firstName"])

	// An explicit nil override wins over the extracted value.
	v, present := out.Items[0]["lastName"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, "Hopper", out.Items[1]["lastName"])
}

func TestAssembleDeterministic(t *testing.T) {
	overrides := mapping.Overrides{
		{Row: 0, SourceColumn: "Full Name", TargetField: "firstName"}: "A.",
	}
	first := Assemble(twoRowResult(), seededMappings(), overrides)
	second := Assemble(twoRowResult(), seededMappings(), overrides)
	assert.Equal(t, first.Items, second.Items)
}

func TestAssembleEmptyResult(t *testing.T) {
	out := Assemble(results.ExtractionResult{}, seededMappings(), mapping.Overrides{})
	assert.Empty(t, out.Items)
	assert.Equal(t, 0, out.Metadata.TotalItems)
}
