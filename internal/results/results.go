// Package results holds the categorized extraction result returned by the
// backend once an operation completes: per-row direct mappings, compound
// extractions and unmapped columns, all keyed by source column name.
package results

// ConfidenceScore is the backend-assigned extraction reliability (1-10)
// with its derived level bucket.
type ConfidenceScore struct {
	Value int    `json:"value"` // 1-10
	Level string `json:"level"` // high|medium|low
}

// DirectMapping is a backend-suggested 1:1 column-to-field mapping for one
// row.
type DirectMapping struct {
	SourceColumn string `json:"sourceColumn"`
	TargetField  string `json:"targetField"`
	Value        any    `json:"value"` // string, float64 or nil
	Confidence   int    `json:"confidence,omitempty"`
}

// CompoundExtraction is one field value derived from a compound column's
// source value, with its own confidence and optional highlight span into
// the source value.
type CompoundExtraction struct {
	TargetField    string          `json:"targetField"`
	ExtractedValue any             `json:"extractedValue"`
	Confidence     ConfidenceScore `json:"confidence"`
	HighlightStart *int            `json:"highlightStart,omitempty"`
	HighlightEnd   *int            `json:"highlightEnd,omitempty"`
	IsUserModified bool            `json:"isUserModified,omitempty"`
}

// CompoundColumn is a source column from which multiple fields were
// extracted.
type CompoundColumn struct {
	SourceColumn string               `json:"sourceColumn"`
	SourceValue  any                  `json:"sourceValue"`
	Extractions  []CompoundExtraction `json:"extractions"`
}

// UnmappedColumn is a source column the backend could not map to any field.
type UnmappedColumn struct {
	SourceColumn string `json:"sourceColumn"`
	Value        any    `json:"value"`
}

// CategorizedRow is one result row partitioned into three disjoint maps
// keyed by source column. The key sets are identical across all rows of one
// result; only values differ per row.
type CategorizedRow struct {
	Direct   map[string]DirectMapping  `json:"direct"`
	Compound map[string]CompoundColumn `json:"compound"`
	Unmapped map[string]UnmappedColumn `json:"unmapped"`
}

// SourceInfo describes the uploaded file the result was produced from.
type SourceInfo struct {
	Filename  string `json:"filename"`
	SheetName string `json:"sheetName,omitempty"`
	TotalRows int    `json:"totalRows"`
}

// Summary aggregates extraction counts for display.
type Summary struct {
	DirectMappings      int      `json:"directMappings"`
	CompoundExtractions int      `json:"compoundExtractions"`
	UnmappedColumns     []string `json:"unmappedColumns"`
	UnmappedFields      []string `json:"unmappedFields"`
	LLMCalls            int      `json:"llmCalls,omitempty"`
	ProcessingTimeMs    int64    `json:"processingTimeMs,omitempty"`
	AverageConfidence   float64  `json:"averageConfidence,omitempty"`
}

// Metadata carries result-level bookkeeping from the backend.
type Metadata struct {
	SourceFile    string   `json:"sourceFile,omitempty"`
	RowsProcessed int      `json:"rowsProcessed,omitempty"`
	Summary       *Summary `json:"extractionSummary,omitempty"`
}

// ExtractionResult is the complete payload embedded in a completed
// operation status.
type ExtractionResult struct {
	Source *SourceInfo      `json:"source,omitempty"`
	Rows   []CategorizedRow `json:"data"`
	Meta   Metadata         `json:"metadata"`
}
