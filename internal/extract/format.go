package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	UnsupportedFormatError = errors.New("Unsupported file format")
)

// Format is the family of adapter that handles a file.
type Format int

const (
	FormatUnknown Format = iota
	FormatWorkbook
	FormatTable
	FormatPageText
)

func (f Format) String() string {
	switch f {
	case FormatWorkbook:
		return "workbook"
	case FormatTable:
		return "table"
	case FormatPageText:
		return "pagetext"
	default:
		return "unknown"
	}
}

// DetectFormat infers the format of a file from its extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm", ".xls":
		return FormatWorkbook
	case ".csv", ".tsv":
		return FormatTable
	case ".pdf", ".txt":
		return FormatPageText
	default:
		return FormatUnknown
	}
}

// Extract opens path with the adapter matching its extension and returns the
// records it yields. Malformed rows are skipped by the adapters; failing to
// open or parse the file at all is an error.
func Extract(path string) ([]Record, error) {
	switch DetectFormat(path) {
	case FormatWorkbook:
		sheets, err := OpenWorkbook(path)
		if err != nil {
			return nil, err
		}
		return WorkbookRecords(path, sheets), nil

	case FormatTable:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("Failed to open table %s: %w", path, err)
		}
		defer f.Close()

		rows, err := ReadTable(f, tableDelimiter(path))
		if err != nil {
			return nil, fmt.Errorf("Failed to read table %s: %w", path, err)
		}
		return TableRecords(path, rows), nil

	case FormatPageText:
		text, err := ExtractText(path)
		if err != nil {
			return nil, err
		}
		return PageTextRecords(path, text), nil
	}

	return nil, fmt.Errorf("%w: %s", UnsupportedFormatError, path)
}
