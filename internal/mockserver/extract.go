package mockserver

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gdi-labs/importkit/constants"
	"github.com/gdi-labs/importkit/internal/results"
	"github.com/gdi-labs/importkit/internal/schema"
)

// compoundSeparator is what the fake "LLM" splits compound cells on.
const compoundSeparator = "|"

// table is the raw grid read from the uploaded file.
type table struct {
	header []string
	rows   [][]string
}

// readTable parses the upload into a header plus data rows. Delimited
// files go through encoding/csv; workbooks through excelize, honoring the
// requested sheet.
func readTable(name string, data []byte, sheetName string) (table, error) {
	if constants.IsSpreadsheetFile(name) {
		return readWorkbook(data, sheetName)
	}
	return readDelimited(name, data)
}

func readDelimited(name string, data []byte) (table, error) {
	r := csv.NewReader(bytes.NewReader(data))
	if strings.HasSuffix(strings.ToLower(name), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return table{}, fmt.Errorf("parse delimited file: %w", err)
	}
	if len(records) == 0 {
		return table{}, fmt.Errorf("file has no rows")
	}
	return table{header: records[0], rows: records[1:]}, nil
}

func readWorkbook(data []byte, sheetName string) (table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := sheetName
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return table{}, fmt.Errorf("workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table{}, fmt.Errorf("sheet %q has no rows", sheet)
	}
	return table{header: rows[0], rows: rows[1:]}, nil
}

// categorize builds the per-row categorized result the way the real
// backend's discovery step would:
//
//   - a column whose name matches a context field (case-insensitive)
//     becomes a direct mapping;
//   - an unmatched column whose cells carry the compound separator is
//     split across the remaining unmatched fields, with synthetic
//     confidences and highlight spans into the source value;
//   - everything else is unmapped.
func categorize(t table, ctx schema.ExtractionContext) []results.CategorizedRow {
	fieldByName := make(map[string]string, len(ctx.Fields))
	for _, f := range ctx.Fields {
		fieldByName[strings.ToLower(f.Field)] = f.Field
	}

	directCols := make(map[int]string) // column index -> target field
	claimed := make(map[string]bool)   // target fields taken by direct columns
	for i, col := range t.header {
		if target, ok := fieldByName[strings.ToLower(strings.TrimSpace(col))]; ok {
			directCols[i] = target
			claimed[target] = true
		}
	}

	// Fields left for compound splitting, in context declaration order.
	var freeFields []string
	for _, f := range ctx.Fields {
		if !claimed[f.Field] {
			freeFields = append(freeFields, f.Field)
		}
	}

	compoundCols := make(map[int][]string) // column index -> assigned fields
	for i := range t.header {
		if _, isDirect := directCols[i]; isDirect || len(freeFields) < 2 {
			continue
		}
		if !columnLooksCompound(t.rows, i) {
			continue
		}
		parts := maxSeparatorParts(t.rows, i)
		if parts > len(freeFields) {
			parts = len(freeFields)
		}
		compoundCols[i] = freeFields[:parts]
		freeFields = freeFields[parts:]
	}

	out := make([]results.CategorizedRow, 0, len(t.rows))
	for _, row := range t.rows {
		cr := results.CategorizedRow{
			Direct:   make(map[string]results.DirectMapping),
			Compound: make(map[string]results.CompoundColumn),
			Unmapped: make(map[string]results.UnmappedColumn),
		}
		for i, col := range t.header {
			value := cellAt(row, i)
			switch {
			case directCols[i] != "":
				cr.Direct[col] = results.DirectMapping{
					SourceColumn: col,
					TargetField:  directCols[i],
					Value:        nullable(value),
					Confidence:   10,
				}
			case len(compoundCols[i]) > 0:
				cr.Compound[col] = splitCompound(col, value, compoundCols[i])
			default:
				cr.Unmapped[col] = results.UnmappedColumn{
					SourceColumn: col,
					Value:        nullable(value),
				}
			}
		}
		out = append(out, cr)
	}
	return out
}

// splitCompound fakes an LLM extraction: split the cell on the separator
// and hand the pieces to the assigned fields in order. Missing pieces get
// a null value with low confidence, mirroring what a real extractor
// reports when it cannot find a field in the source text.
func splitCompound(col, value string, fields []string) results.CompoundColumn {
	pieces := strings.Split(value, compoundSeparator)
	cc := results.CompoundColumn{
		SourceColumn: col,
		SourceValue:  nullable(value),
	}
	for i, field := range fields {
		ex := results.CompoundExtraction{TargetField: field}
		if i < len(pieces) {
			piece := strings.TrimSpace(pieces[i])
			ex.ExtractedValue = nullable(piece)
			ex.Confidence = results.NewConfidenceScore(9 - i)
			if piece != "" {
				start := strings.Index(value, piece)
				if start >= 0 {
					end := start + len(piece)
					ex.HighlightStart = &start
					ex.HighlightEnd = &end
				}
			}
		} else {
			ex.ExtractedValue = nil
			ex.Confidence = results.NewConfidenceScore(3)
		}
		cc.Extractions = append(cc.Extractions, ex)
	}
	return cc
}

func columnLooksCompound(rows [][]string, col int) bool {
	for _, row := range rows {
		if strings.Contains(cellAt(row, col), compoundSeparator) {
			return true
		}
	}
	return false
}

func maxSeparatorParts(rows [][]string, col int) int {
	max := 1
	for _, row := range rows {
		if n := strings.Count(cellAt(row, col), compoundSeparator) + 1; n > max {
			max = n
		}
	}
	return max
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// buildResult wraps categorized rows with source info and summary counts.
func buildResult(fileName, sheetName string, rows []results.CategorizedRow, processingMs int64) results.ExtractionResult {
	summary := &results.Summary{}
	if len(rows) > 0 {
		first := rows[0]
		summary.DirectMappings = len(first.Direct)
		for _, cc := range first.Compound {
			summary.CompoundExtractions += len(cc.Extractions)
		}
		for col := range first.Unmapped {
			summary.UnmappedColumns = append(summary.UnmappedColumns, col)
		}
		sort.Strings(summary.UnmappedColumns)
	}
	summary.ProcessingTimeMs = processingMs

	return results.ExtractionResult{
		Source: &results.SourceInfo{
			Filename:  fileName,
			SheetName: sheetName,
			TotalRows: len(rows),
		},
		Rows: rows,
		Meta: results.Metadata{
			SourceFile:    fileName,
			RowsProcessed: len(rows),
			Summary:       summary,
		},
	}
}
