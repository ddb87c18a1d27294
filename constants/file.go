package constants

import (
	"path/filepath"
	"strings"
)

// SpreadsheetExtensions holds extensions that indicate a multi-sheet capable
// workbook, i.e. files worth inspecting for sheet metadata before upload.
var SpreadsheetExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
	"xlsb": {},
	"xls":  {},
	"ods":  {},
}

// DelimitedExtensions holds extensions for plain delimited files that carry
// a single implicit sheet and skip inspection entirely.
var DelimitedExtensions = map[string]struct{}{
	"csv": {},
	"tsv": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsSpreadsheetFile reports whether the filename looks like a workbook.
func IsSpreadsheetFile(name string) bool {
	_, ok := SpreadsheetExtensions[NormalizeExt(filepath.Ext(name))]
	return ok
}

// IsDelimitedFile reports whether the filename looks like CSV/TSV.
func IsDelimitedFile(name string) bool {
	_, ok := DelimitedExtensions[NormalizeExt(filepath.Ext(name))]
	return ok
}
