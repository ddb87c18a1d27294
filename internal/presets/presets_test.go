package presets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdi-labs/importkit/internal/schema"
)

func TestBuiltinPresetsAreValid(t *testing.T) {
	sets := Builtin()
	require.NotEmpty(t, sets)
	for _, p := range sets {
		assert.NotEmpty(t, p.ID)
		assert.NotEmpty(t, p.Name)
		require.NoError(t, schema.ValidateContext(p.Context), "preset %s", p.ID)
	}
}

func TestFind(t *testing.T) {
	p, ok := Find("contacts", Builtin())
	require.True(t, ok)
	assert.Equal(t, "Contact list", p.Name)

	_, ok = Find("nope", Builtin())
	assert.False(t, ok)
}

func TestFindLaterSetsWin(t *testing.T) {
	override := []Preset{{
		ID:   "contacts",
		Name: "Custom contacts",
		Context: schema.ExtractionContext{
			Description: "Override",
			Fields:      []schema.FieldDefinition{{Field: "email", Description: "Email"}},
		},
	}}
	p, ok := Find("contacts", Builtin(), override)
	require.True(t, ok)
	assert.Equal(t, "Custom contacts", p.Name)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"presets": [{
			"id": "books",
			"name": "Book list",
			"context": {
				"description": "Books",
				"fields": [
					{"field": "title", "description": "Title", "required": true},
					{"field": "author", "description": "Author"}
				]
			}
		}]
	}`), 0o644))

	sets, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "books", sets[0].ID)
	assert.Equal(t, []string{"title"}, sets[0].Context.RequiredFields())
}

func TestLoadFileRejectsInvalidContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presets.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"presets": [{"id": "bad", "name": "Bad", "context": {"description": "", "fields": []}}]
	}`), 0o644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
