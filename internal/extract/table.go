package extract

import (
	"encoding/csv"
	"errors"
	"io"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultSheetName labels records of single-sheet table sources.
const DefaultSheetName = "Sheet1"

// ReadTable parses delimited text into rows of fields. The first row is not
// treated specially. Rows the parser rejects are skipped.
func ReadTable(r io.Reader, comma rune) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Warningf("Skipping malformed row at line %d: %v", parseErr.Line, parseErr.Err)
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// TableRecords turns the rows of a delimited table into records, taking the
// first row as the header. Fields are trimmed.
func TableRecords(path string, rows [][]string) []Record {
	fileName := filepath.Base(path)
	if len(rows) < 2 {
		log.Debugf("Table %s has no data rows", fileName)
		return nil
	}

	labels := make([]string, len(rows[0]))
	for column, field := range rows[0] {
		labels[column] = strings.TrimSpace(field)
	}

	var records []Record
	for i, row := range rows[1:] {
		if blankFields(row) {
			continue
		}

		record := Record{Path: path, FileName: fileName, SheetName: DefaultSheetName, Row: i + 1}
		for column, field := range row {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			record.Cells = append(record.Cells, Cell{
				Position: Address(i+1, column),
				Context:  label(labels, column),
				Value:    field,
			})
		}
		records = append(records, record)
	}
	return records
}

func tableDelimiter(path string) rune {
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		return '\t'
	}
	return ','
}
