// Package mapping holds the client-owned, user-editable assignment of
// source columns to target fields for one import session, and the confirm
// gate derived from it.
package mapping

import (
	"strings"

	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
)

// DirectEntry is the mapping state of one source column. An empty
// TargetField means the column is unmapped.
type DirectEntry struct {
	SourceColumn   string `json:"sourceColumn"`
	TargetField    string `json:"targetField,omitempty"`
	IsUserModified bool   `json:"isUserModified,omitempty"`
}

// CompoundEntry is one compound extraction slot, keyed by target field
// (one slot per field).
type CompoundEntry struct {
	SourceColumns  []string `json:"sourceColumns"`
	TargetField    string   `json:"targetField"`
	Rule           string   `json:"rule,omitempty"`
	IsUserModified bool     `json:"isUserModified,omitempty"`
}

// Mappings is a snapshot of the mapping state: direct entries keyed by
// source column, compound entries keyed by target field.
type Mappings struct {
	Direct   map[string]DirectEntry   `json:"direct"`
	Compound map[string]CompoundEntry `json:"compound"`
}

// Clone deep-copies the snapshot.
func (m Mappings) Clone() Mappings {
	out := Mappings{
		Direct:   make(map[string]DirectEntry, len(m.Direct)),
		Compound: make(map[string]CompoundEntry, len(m.Compound)),
	}
	for k, v := range m.Direct {
		out.Direct[k] = v
	}
	for k, v := range m.Compound {
		cols := make([]string, len(v.SourceColumns))
		copy(cols, v.SourceColumns)
		v.SourceColumns = cols
		out.Compound[k] = v
	}
	return out
}

// MappedFields returns the set of target fields currently referenced by any
// direct or compound entry.
func (m Mappings) MappedFields() map[string]struct{} {
	fields := make(map[string]struct{})
	for _, e := range m.Direct {
		if e.TargetField != "" {
			fields[e.TargetField] = struct{}{}
		}
	}
	for _, e := range m.Compound {
		if e.TargetField != "" {
			fields[e.TargetField] = struct{}{}
		}
	}
	return fields
}

// State is the mapping state machine for one import session. It owns the
// evolving Mappings, the sparse per-cell override arena and the set of
// user-touched (column, field) pairs. One State per session; not safe for
// concurrent use.
type State struct {
	mappings  Mappings
	overrides map[OverrideKey]any
	modified  map[ModifiedPair]struct{}
}

// ModifiedPair identifies a (source column, target field) pair the user has
// touched, for confidence display purposes.
type ModifiedPair struct {
	SourceColumn string
	TargetField  string
}

// NewState returns an empty mapping state.
func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Seed initializes direct mappings from an extraction result by
// case-insensitive name matching of every source column (direct, compound
// and unmapped alike) against the context's field identifiers. Unmatched
// columns seed as unmapped. This is the only place automatic inference
// happens; nothing is flagged user-modified.
func (s *State) Seed(result results.ExtractionResult, ctx schema.ExtractionContext) {
	s.Reset()
	if len(result.Rows) == 0 {
		return
	}

	fieldByName := make(map[string]string, len(ctx.Fields))
	for _, f := range ctx.Fields {
		fieldByName[strings.ToLower(f.Field)] = f.Field
	}

	for _, col := range results.AllSourceColumns(result) {
		s.mappings.Direct[col] = DirectEntry{
			SourceColumn: col,
			TargetField:  fieldByName[strings.ToLower(col)],
		}
	}
}

// SetDirectMapping assigns targetField to sourceColumn (empty target
// unmaps the column). If the target field is already held by a different
// column, that column is cleared in the same transition, so the uniqueness
// invariant (at most one column per non-empty target field) holds at every
// observable point. The changed column is flagged user-modified.
func (s *State) SetDirectMapping(sourceColumn, targetField string) {
	if targetField != "" {
		for col, entry := range s.mappings.Direct {
			if col != sourceColumn && entry.TargetField == targetField {
				entry.TargetField = ""
				s.mappings.Direct[col] = entry
			}
		}
	}

	entry, ok := s.mappings.Direct[sourceColumn]
	if !ok {
		entry = DirectEntry{SourceColumn: sourceColumn}
	}
	entry.TargetField = targetField
	entry.IsUserModified = true
	s.mappings.Direct[sourceColumn] = entry
}

// Reset clears mappings, overrides and modification tracking. Used whenever
// the session restarts.
func (s *State) Reset() {
	s.mappings = Mappings{
		Direct:   make(map[string]DirectEntry),
		Compound: make(map[string]CompoundEntry),
	}
	s.overrides = make(map[OverrideKey]any)
	s.modified = make(map[ModifiedPair]struct{})
}

// Mappings returns a deep copy of the current mapping snapshot.
func (s *State) Mappings() Mappings {
	return s.mappings.Clone()
}

// IsModified reports whether the user has touched the given pair.
func (s *State) IsModified(sourceColumn, targetField string) bool {
	_, ok := s.modified[ModifiedPair{SourceColumn: sourceColumn, TargetField: targetField}]
	return ok
}
