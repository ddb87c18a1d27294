package mapping

// OverrideKey addresses one compound-extracted cell: a row index plus the
// (source column, target field) pair within it. A flat composite key keeps
// the override arena copy-safe, unlike nested maps.
type OverrideKey struct {
	Row          int
	SourceColumn string
	TargetField  string
}

// Overrides is the sparse per-cell override arena. Entries exist only for
// cells the user explicitly corrected; a stored nil is a deliberate value,
// not an absence.
type Overrides map[OverrideKey]any

// Lookup returns the override for a cell and whether one exists.
func (o Overrides) Lookup(row int, sourceColumn, targetField string) (any, bool) {
	v, ok := o[OverrideKey{Row: row, SourceColumn: sourceColumn, TargetField: targetField}]
	return v, ok
}

// SetCompoundOverride records a per-row correction of a compound-extracted
// value. It never touches the field mappings; it only populates the
// override arena and flags the (column, field) pair as modified so the UI
// can stop rendering the stale backend confidence.
func (s *State) SetCompoundOverride(row int, sourceColumn, targetField string, value any) {
	s.overrides[OverrideKey{Row: row, SourceColumn: sourceColumn, TargetField: targetField}] = value
	s.modified[ModifiedPair{SourceColumn: sourceColumn, TargetField: targetField}] = struct{}{}
}

// Overrides returns a copy of the override arena.
func (s *State) Overrides() Overrides {
	out := make(Overrides, len(s.overrides))
	for k, v := range s.overrides {
		out[k] = v
	}
	return out
}
