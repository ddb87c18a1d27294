package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Import"

// WriteXLSX renders the assembled items as an XLSX workbook, one column per
// target field in the given order, and returns the workbook bytes.
func WriteXLSX(out FinalOutput, fieldOrder []string) ([]byte, error) {
	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	if defIdx, _ := f.GetSheetIndex("Sheet1"); defIdx != -1 && defIdx != activeIndex {
		_ = f.DeleteSheet("Sheet1")
	}

	for i, field := range fieldOrder {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, field)
	}

	for r, item := range out.Items {
		for c, field := range fieldOrder {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			value, ok := item[field]
			if !ok || value == nil {
				continue
			}
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV renders the assembled items as CSV with a header row.
func WriteCSV(out FinalOutput, fieldOrder []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(fieldOrder); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(fieldOrder))
	for _, item := range out.Items {
		for i, field := range fieldOrder {
			record[i] = ""
			if value, ok := item[field]; ok && value != nil {
				record[i] = fmt.Sprintf("%v", value)
			}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
