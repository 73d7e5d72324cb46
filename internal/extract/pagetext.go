package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	log "github.com/sirupsen/logrus"
)

// A unit is a run of text where no two newlines are adjacent: consecutive
// lines form one unit, a blank line ends it.
var unitPattern = regexp.MustCompile(`(?:[^\n]\n?)+`)

// PageTextRecords splits extracted text into units, one record per unit
// that is not blank. Units are numbered from 1, blank ones included.
func PageTextRecords(path, text string) []Record {
	fileName := filepath.Base(path)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var records []Record
	for i, unit := range unitPattern.FindAllString(text, -1) {
		line := strings.TrimSpace(unit)
		if line == "" {
			continue
		}
		records = append(records, Record{
			Path:     path,
			FileName: fileName,
			Row:      i + 1,
			Cells:    []Cell{{Position: fmt.Sprintf("line %d", i+1), Value: line}},
		})
	}
	return records
}

// ExtractText returns the plain text of a .pdf document, or the contents of
// any other page-text file.
func ExtractText(path string) (string, error) {
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("Failed to read %s: %w", path, err)
		}
		return string(content), nil
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("Failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("Failed to extract text from %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("Failed to extract text from %s: %w", path, err)
	}
	log.Tracef("Extracted %d bytes of text from %s", buf.Len(), path)
	return buf.String(), nil
}
