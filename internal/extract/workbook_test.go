package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func values(texts ...string) []Value {
	row := make([]Value, len(texts))
	for i, text := range texts {
		row[i] = textValue(text)
	}
	return row
}

func TestWorkbookRecords_HeaderOnlySheetIsSkipped(t *testing.T) {
	sheets := []Sheet{
		{Name: "Empty", Rows: nil},
		{Name: "Header", Rows: [][]Value{values("Name", "Age")}},
	}

	assert.Empty(t, WorkbookRecords("/data/book.xlsx", sheets))
}

func TestWorkbookRecords_CellsCorrelateWithHeader(t *testing.T) {
	sheets := []Sheet{{
		Name: "People",
		Rows: [][]Value{
			values("Name", "Age", "City"),
			values("Ann", "", "Paris"),
			values("", "", ""),
			values("Bob", "41"),
		},
	}}

	records := WorkbookRecords("/data/book.xlsx", sheets)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "book.xlsx", first.FileName)
	assert.Equal(t, "People", first.SheetName)
	assert.Equal(t, []Cell{
		{Position: "A2", Context: "Name", Value: "Ann"},
		{Position: "C2", Context: "City", Value: "Paris"},
	}, first.Cells)

	// the blank row still counts, Bob sits on spreadsheet row 4
	assert.Equal(t, []Cell{
		{Position: "A4", Context: "Name", Value: "Bob"},
		{Position: "B4", Context: "Age", Value: "41"},
	}, records[1].Cells)
}

func TestWorkbookRecords_WhitespaceOnlyRowIsDropped(t *testing.T) {
	sheets := []Sheet{{
		Name: "S",
		Rows: [][]Value{values("H"), values("   "), values("x")},
	}}

	records := WorkbookRecords("b.xlsx", sheets)
	require.Len(t, records, 1)
	assert.Equal(t, "A3", records[0].Cells[0].Position)
}

func TestWorkbookRecords_RowWiderThanHeader(t *testing.T) {
	sheets := []Sheet{{
		Name: "S",
		Rows: [][]Value{values("Only"), values("a", "b")},
	}}

	records := WorkbookRecords("b.xlsx", sheets)
	require.Len(t, records, 1)
	assert.Equal(t, "", records[0].Cells[1].Context)
	assert.Equal(t, "b", records[0].Cells[1].Value)
}

func TestOpenWorkbook_Xlsx(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.xlsx")

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Age"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Ann", 30}))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "Only a header"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	sheets, err := OpenWorkbook(path)
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	records := WorkbookRecords(path, sheets)
	require.Len(t, records, 1)
	assert.Equal(t, "Sheet1", records[0].SheetName)
	assert.Equal(t, []Cell{
		{Position: "A2", Context: "Name", Value: "Ann"},
		{Position: "B2", Context: "Age", Value: "30"},
	}, records[0].Cells)
}

func TestExtract_Xls(t *testing.T) {
	path := filepath.Join("testdata", "table.xls")

	sheets, err := OpenWorkbook(path)
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Table", sheets[0].Name)
	require.Len(t, sheets[0].Rows, 12)

	records, err := Extract(path)
	require.NoError(t, err)
	require.Len(t, records, 11)

	first := records[0]
	assert.Equal(t, "table.xls", first.FileName)
	assert.Equal(t, "Table", first.SheetName)
	assert.Equal(t, 1, first.Row)
	assert.Equal(t, []Cell{
		{Position: "A2", Context: "Code", Value: "code1"},
		{Position: "B2", Context: "Name", Value: "name1"},
		{Position: "C2", Context: "Description", Value: "description1"},
	}, first.Cells)

	last := records[10]
	assert.Equal(t, []Cell{
		{Position: "A12", Context: "Code", Value: "code11"},
		{Position: "B12", Context: "Name", Value: "name11"},
		{Position: "C12", Context: "Description", Value: "description11"},
	}, last.Cells)
}

func TestOpenWorkbook_NotAWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, writeFile(path, "this is not a zip archive"))

	_, err := OpenWorkbook(path)
	assert.Error(t, err)
}
