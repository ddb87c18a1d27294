// Package sheets reads workbook sheet metadata ahead of upload so the
// workflow can decide whether the user has to pick a sheet. All actual
// parsing is delegated to excelize; this package only shapes its answers.
package sheets

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetMetadata describes one sheet of a workbook.
type SheetMetadata struct {
	Name        string `json:"name"`
	Hidden      bool   `json:"hidden,omitempty"`
	RowEstimate int    `json:"rowEstimate,omitempty"`
	ColumnCount int    `json:"columnCount,omitempty"`
}

// InspectionResult is the outcome of reading a workbook's sheet metadata.
type InspectionResult struct {
	Sheets        []SheetMetadata `json:"sheets"`
	VisibleSheets []SheetMetadata `json:"visibleSheets"`
	// RequiresSheetSelection is true when more than one visible sheet
	// exists and the user must choose.
	RequiresSheetSelection bool `json:"requiresSheetSelection"`
}

// Inspector reads sheet metadata from an uploaded workbook stream.
// Implementations must not consume more than they need; callers re-open the
// file for upload.
type Inspector interface {
	Inspect(r io.Reader) (InspectionResult, error)
}

// ExcelizeInspector is the default Inspector backed by excelize.
type ExcelizeInspector struct {
	logger *slog.Logger
}

// NewInspector returns an excelize-backed Inspector.
func NewInspector(logger *slog.Logger) *ExcelizeInspector {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExcelizeInspector{logger: logger}
}

// Inspect opens the workbook and collects name, visibility and size
// estimates per sheet.
func (i *ExcelizeInspector) Inspect(r io.Reader) (InspectionResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return InspectionResult{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			i.logger.Warn("sheets.inspect.close_error", "error", cerr)
		}
	}()

	var result InspectionResult
	for _, name := range f.GetSheetList() {
		visible, verr := f.GetSheetVisible(name)
		if verr != nil {
			visible = true
		}
		meta := SheetMetadata{Name: name, Hidden: !visible}
		meta.RowEstimate, meta.ColumnCount = sheetExtent(f, name)
		result.Sheets = append(result.Sheets, meta)
		if visible {
			result.VisibleSheets = append(result.VisibleSheets, meta)
		}
	}
	result.RequiresSheetSelection = len(result.VisibleSheets) > 1

	i.logger.Info("sheets.inspect.ok",
		"sheets", len(result.Sheets),
		"visible", len(result.VisibleSheets),
		"requires_selection", result.RequiresSheetSelection,
	)
	return result, nil
}

// sheetExtent derives row/column estimates from the sheet's dimension
// reference, e.g. "A1:D12". Zeroes when the dimension is absent.
func sheetExtent(f *excelize.File, sheet string) (rows, cols int) {
	dim, err := f.GetSheetDimension(sheet)
	if err != nil || dim == "" {
		return 0, 0
	}
	ref := dim
	if _, end, ok := strings.Cut(dim, ":"); ok {
		ref = end
	}
	col, row, err := excelize.CellNameToCoordinates(ref)
	if err != nil {
		return 0, 0
	}
	return row, col
}
