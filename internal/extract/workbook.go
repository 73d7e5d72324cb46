package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// Value is a parsed workbook cell. Empty marks a cell that holds nothing,
// which is not the same as a cell holding a blank string.
type Value struct {
	Text  string
	Empty bool
}

// Sheet is the 2-D cell grid of one worksheet. Row 0 is the header.
type Sheet struct {
	Name string
	Rows [][]Value
}

// WorkbookRecords turns every sheet of a workbook into records. Sheets
// without data rows are skipped.
func WorkbookRecords(path string, sheets []Sheet) []Record {
	fileName := filepath.Base(path)

	var records []Record
	for _, sheet := range sheets {
		if len(sheet.Rows) < 2 {
			log.Debugf("Sheet '%s' of %s has no data rows, skipping it", sheet.Name, fileName)
			continue
		}

		labels := make([]string, len(sheet.Rows[0]))
		for column, v := range sheet.Rows[0] {
			labels[column] = v.Text
		}

		for i, row := range sheet.Rows[1:] {
			if blankValues(row) {
				continue
			}

			// i counts data rows only, so the first one lands on spreadsheet row 2
			record := Record{Path: path, FileName: fileName, SheetName: sheet.Name, Row: i + 1}
			for column, v := range row {
				if v.Empty {
					continue
				}
				record.Cells = append(record.Cells, Cell{
					Position: Address(i+1, column),
					Context:  label(labels, column),
					Value:    v.Text,
				})
			}
			records = append(records, record)
		}
		log.Tracef("Extracted sheet '%s' of %s", sheet.Name, fileName)
	}
	return records
}

// OpenWorkbook reads every sheet of an .xlsx/.xlsm (or legacy .xls) file.
// Sheets that cannot be read are logged and left out.
func OpenWorkbook(path string) ([]Sheet, error) {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return openXLS(path)
	}
	return openXLSX(path)
}

func openXLSX(path string) ([]Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to open workbook %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			log.Warningf("Could not read sheet '%s' of %s, skipping it: %v", name, path, err)
			continue
		}

		grid := make([][]Value, len(rows))
		for r, row := range rows {
			grid[r] = make([]Value, len(row))
			for c, text := range row {
				grid[r][c] = textValue(text)
			}
		}
		sheets = append(sheets, Sheet{Name: name, Rows: grid})
	}
	return sheets, nil
}

func openXLS(path string) ([]Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("Failed to open workbook %s: %w", path, err)
	}

	var sheets []Sheet
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			log.Warningf("Could not read sheet %d of %s, skipping it", i, path)
			continue
		}

		grid := make([][]Value, 0, int(ws.MaxRow)+1)
		for r := 0; r <= int(ws.MaxRow); r++ {
			row := ws.Row(r)
			if row == nil {
				grid = append(grid, nil)
				continue
			}

			values := make([]Value, row.LastCol())
			for c := range values {
				if c < row.FirstCol() {
					values[c] = Value{Empty: true}
					continue
				}
				values[c] = textValue(row.Col(c))
			}
			grid = append(grid, values)
		}
		sheets = append(sheets, Sheet{Name: ws.Name, Rows: grid})
	}
	return sheets, nil
}

// textValue maps parser output to a cell. Both parsers report a missing cell
// as "", so that is the only text treated as Empty.
func textValue(text string) Value {
	return Value{Text: text, Empty: text == ""}
}

func blankValues(row []Value) bool {
	for _, v := range row {
		if !v.Empty && strings.TrimSpace(v.Text) != "" {
			return false
		}
	}
	return true
}
