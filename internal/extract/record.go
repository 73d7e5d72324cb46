package extract

import "strings"

// Cell is one non-empty source cell.
type Cell struct {
	Position string `json:"position"`
	Context  string `json:"ctx"`
	Value    string `json:"value"`
}

// Record is a source row (or a page-text line) that survived filtering.
// Cells are in left to right column order.
type Record struct {
	Path      string
	FileName  string
	SheetName string // empty for page-text sources
	Row       int
	Cells     []Cell
}

// label returns the header text of a column, or "" when the data row is
// wider than the header.
func label(labels []string, column int) string {
	if column < len(labels) {
		return labels[column]
	}
	return ""
}

func blankFields(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
