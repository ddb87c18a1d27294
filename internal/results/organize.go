package results

import "sort"

// ColumnGroups is the per-category breakdown of source columns, derived
// from the first row (the key schema is identical across rows).
type ColumnGroups struct {
	Direct   []string
	Compound []string
	Unmapped []string
}

// OrganizeColumns partitions source columns by category, each group sorted.
func OrganizeColumns(result ExtractionResult) ColumnGroups {
	if len(result.Rows) == 0 {
		return ColumnGroups{}
	}
	first := result.Rows[0]
	return ColumnGroups{
		Direct:   sortedKeys(first.Direct),
		Compound: sortedKeys(first.Compound),
		Unmapped: sortedKeys(first.Unmapped),
	}
}

// AllSourceColumns returns the union of all source columns, sorted.
func AllSourceColumns(result ExtractionResult) []string {
	if len(result.Rows) == 0 {
		return nil
	}
	first := result.Rows[0]
	seen := make(map[string]struct{})
	var cols []string
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			cols = append(cols, name)
		}
	}
	for name := range first.Direct {
		add(name)
	}
	for name := range first.Compound {
		add(name)
	}
	for name := range first.Unmapped {
		add(name)
	}
	sort.Strings(cols)
	return cols
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
