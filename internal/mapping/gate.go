package mapping

import (
	"fmt"
	"strings"

	"github.com/gdi-labs/importkit/internal/schema"
)

// ConfirmState is the derived enablement of the confirm action.
type ConfirmState struct {
	Enabled             bool     `json:"enabled"`
	UnmetRequiredFields []string `json:"unmetRequiredFields"`
	Tooltip             string   `json:"tooltip,omitempty"`
}

// EvaluateConfirm computes whether the confirm action may proceed: every
// required field must be referenced by some direct or compound entry. Pure
// and cheap; callers re-run it on every mapping change rather than caching.
func EvaluateConfirm(ctx schema.ExtractionContext, m Mappings) ConfirmState {
	mapped := m.MappedFields()

	var unmet []string
	for _, field := range ctx.RequiredFields() {
		if _, ok := mapped[field]; !ok {
			unmet = append(unmet, field)
		}
	}

	state := ConfirmState{
		Enabled:             len(unmet) == 0,
		UnmetRequiredFields: unmet,
	}
	if !state.Enabled {
		state.Tooltip = fmt.Sprintf("Required fields not mapped: %s", strings.Join(unmet, ", "))
	}
	return state
}

// AvailableFields returns the field definitions not yet held by any direct
// entry, for populating a mapping selector. excludeColumn's own assignment
// is not counted against availability so a column can keep its current
// choice visible.
func AvailableFields(fields []schema.FieldDefinition, m Mappings, excludeColumn string) []schema.FieldDefinition {
	used := make(map[string]struct{})
	for col, entry := range m.Direct {
		if col == excludeColumn {
			continue
		}
		if entry.TargetField != "" {
			used[entry.TargetField] = struct{}{}
		}
	}
	var out []schema.FieldDefinition
	for _, f := range fields {
		if _, taken := used[f.Field]; !taken {
			out = append(out, f)
		}
	}
	return out
}
