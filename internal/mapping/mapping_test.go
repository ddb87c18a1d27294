package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
)

func contactContext() schema.ExtractionContext {
	return schema.ExtractionContext{
		Description: "Contacts",
		Fields: []schema.FieldDefinition{
			{Field: "firstName", Description: "Given name"},
			{Field: "lastName", Description: "Family name"},
			{Field: "email", Description: "Email address", Required: true},
			{Field: "phone", Description: "Phone number"},
		},
	}
}

func contactResult() results.ExtractionResult {
	return results.ExtractionResult{
		Rows: []results.CategorizedRow{
			{
				Direct: map[string]results.DirectMapping{
					"EMAIL": {SourceColumn: "EMAIL", TargetField: "email", Value: "ada@example.com"},
				},
				Compound: map[string]results.CompoundColumn{
					"Full Name": {
						SourceColumn: "Full Name",
						SourceValue:  "Ada|Lovelace",
						Extractions: []results.CompoundExtraction{
							{TargetField: "firstName", ExtractedValue: "Ada", Confidence: results.NewConfidenceScore(9)},
							{TargetField: "lastName", ExtractedValue: "Lovelace", Confidence: results.NewConfidenceScore(8)},
						},
					},
				},
				Unmapped: map[string]results.UnmappedColumn{
					"Phone": {SourceColumn: "Phone", Value: "555-0100"},
					"Notes": {SourceColumn: "Notes", Value: "pioneer"},
				},
			},
		},
	}
}

// assertUnique checks the invariant that no non-empty target field is held
// by more than one direct entry.
func assertUnique(t *testing.T, m Mappings) {
	t.Helper()
	holders := make(map[string]string)
	for col, entry := range m.Direct {
		if entry.TargetField == "" {
			continue
		}
		if prev, taken := holders[entry.TargetField]; taken {
			t.Fatalf("field %q held by both %q and %q", entry.TargetField, prev, col)
		}
		holders[entry.TargetField] = col
	}
}

func TestSeedMatchesCaseInsensitiveAcrossCategories(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	m := s.Mappings()
	require.Len(t, m.Direct, 4)

	// EMAIL and Phone match fields by name regardless of case or the
	// category the backend put them in.
	assert.Equal(t, "email", m.Direct["EMAIL"].TargetField)
	assert.Equal(t, "phone", m.Direct["Phone"].TargetField)
	assert.Equal(t, "", m.Direct["Full Name"].TargetField)
	assert.Equal(t, "", m.Direct["Notes"].TargetField)

	for _, entry := range m.Direct {
		assert.False(t, entry.IsUserModified)
	}
	assertUnique(t, m)
}

func TestSeedEmptyResult(t *testing.T) {
	s := NewState()
	s.Seed(results.ExtractionResult{}, contactContext())
	assert.Empty(t, s.Mappings().Direct)
}

func TestSeedResetsPreviousSession(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())
	s.SetDirectMapping("Notes", "firstName")
	s.SetCompoundOverride(0, "Full Name", "lastName", "King")

	s.Seed(contactResult(), contactContext())
	assert.Equal(t, "", s.Mappings().Direct["Notes"].TargetField)
	assert.Empty(t, s.Overrides())
	assert.False(t, s.IsModified("Full Name", "lastName"))
}

func TestSetDirectMappingStealsField(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	s.SetDirectMapping("Notes", "email")

	m := s.Mappings()
	assert.Equal(t, "email", m.Direct["Notes"].TargetField)
	assert.Equal(t, "", m.Direct["EMAIL"].TargetField)
	assert.True(t, m.Direct["Notes"].IsUserModified)
	assertUnique(t, m)
}

func TestSetDirectMappingUnmap(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	s.SetDirectMapping("EMAIL", "")

	m := s.Mappings()
	assert.Equal(t, "", m.Direct["EMAIL"].TargetField)
	assert.True(t, m.Direct["EMAIL"].IsUserModified)
}

func TestSetDirectMappingUnknownColumn(t *testing.T) {
	s := NewState()
	s.SetDirectMapping("Surprise", "phone")

	m := s.Mappings()
	assert.Equal(t, "phone", m.Direct["Surprise"].TargetField)
	assert.Equal(t, "Surprise", m.Direct["Surprise"].SourceColumn)
}

func TestUniquenessHoldsUnderArbitrarySequences(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	ops := []struct{ col, field string }{
		{"Notes", "email"},
		{"EMAIL", "email"},
		{"Full Name", "firstName"},
		{"Notes", "firstName"},
		{"Phone", ""},
		{"Full Name", "phone"},
		{"EMAIL", "phone"},
		{"Notes", ""},
	}
	for _, op := range ops {
		s.SetDirectMapping(op.col, op.field)
		assertUnique(t, s.Mappings())
	}

	m := s.Mappings()
	assert.Equal(t, "phone", m.Direct["EMAIL"].TargetField)
	assert.Equal(t, "", m.Direct["Full Name"].TargetField)
	assert.Equal(t, "", m.Direct["Notes"].TargetField)
}

func TestMappingsReturnsDeepCopy(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	m := s.Mappings()
	m.Direct["EMAIL"] = DirectEntry{SourceColumn: "EMAIL", TargetField: "phone"}

	assert.Equal(t, "email", s.Mappings().Direct["EMAIL"].TargetField)
}

func TestMappedFields(t *testing.T) {
	m := Mappings{
		Direct: map[string]DirectEntry{
			"A": {SourceColumn: "A", TargetField: "email"},
			"B": {SourceColumn: "B"},
		},
		Compound: map[string]CompoundEntry{
			"firstName": {TargetField: "firstName", SourceColumns: []string{"Full Name"}},
		},
	}
	fields := m.MappedFields()
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "firstName")
}

func TestSetCompoundOverride(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())

	s.SetCompoundOverride(0, "Full Name", "lastName", "King")
	s.SetCompoundOverride(3, "Full Name", "firstName", nil)

	o := s.Overrides()
	v, ok := o.Lookup(0, "Full Name", "lastName")
	require.True(t, ok)
	assert.Equal(t, "King", v)

	// A stored nil is a deliberate value, distinct from no entry.
	v, ok = o.Lookup(3, "Full Name", "firstName")
	require.True(t, ok)
	assert.Nil(t, v)

	_, ok = o.Lookup(1, "Full Name", "lastName")
	assert.False(t, ok)

	assert.True(t, s.IsModified("Full Name", "lastName"))
	assert.True(t, s.IsModified("Full Name", "firstName"))
	assert.False(t, s.IsModified("Full Name", "phone"))

	// Overrides never touch the field mappings.
	assert.Equal(t, "", s.Mappings().Direct["Full Name"].TargetField)
}

func TestOverridesReturnsCopy(t *testing.T) {
	s := NewState()
	s.SetCompoundOverride(0, "Full Name", "lastName", "King")

	o := s.Overrides()
	o[OverrideKey{Row: 9, SourceColumn: "X", TargetField: "y"}] = "sneaky"

	assert.Len(t, s.Overrides(), 1)
}

func TestReset(t *testing.T) {
	s := NewState()
	s.Seed(contactResult(), contactContext())
	s.SetDirectMapping("Notes", "firstName")
	s.SetCompoundOverride(0, "Full Name", "lastName", "King")

	s.Reset()

	assert.Empty(t, s.Mappings().Direct)
	assert.Empty(t, s.Mappings().Compound)
	assert.Empty(t, s.Overrides())
	assert.False(t, s.IsModified("Full Name", "lastName"))
}
