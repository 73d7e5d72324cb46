package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageTextRecords_GroupsParagraphs(t *testing.T) {
	text := "Quarterly report\nfor the board\n\nRevenue grew\n\n\n  \n\nEnd\n"

	records := PageTextRecords("/docs/report.pdf", text)
	require.Len(t, records, 3)

	assert.Equal(t, []Cell{{Position: "line 1", Value: "Quarterly report\nfor the board"}}, records[0].Cells)
	assert.Equal(t, []Cell{{Position: "line 2", Value: "Revenue grew"}}, records[1].Cells)
	// the whitespace-only unit is dropped but keeps its number
	assert.Equal(t, "line 4", records[2].Cells[0].Position)
	assert.Equal(t, "End", records[2].Cells[0].Value)

	for _, r := range records {
		assert.Equal(t, "report.pdf", r.FileName)
		assert.Empty(t, r.SheetName)
		assert.Empty(t, r.Cells[0].Context)
	}
}

func TestPageTextRecords_CRLF(t *testing.T) {
	records := PageTextRecords("a.txt", "one\r\ntwo\r\n\r\nthree")
	require.Len(t, records, 2)
	assert.Equal(t, "one\ntwo", records[0].Cells[0].Value)
	assert.Equal(t, "three", records[1].Cells[0].Value)
}

func TestPageTextRecords_Empty(t *testing.T) {
	assert.Empty(t, PageTextRecords("a.txt", ""))
	assert.Empty(t, PageTextRecords("a.txt", "\n\n \n"))
}

func TestExtractText_NotAPdf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, writeFile(path, "plain text pretending"))

	_, err := ExtractText(path)
	assert.Error(t, err)
}

func TestExtract_Pdf(t *testing.T) {
	path := filepath.Join("testdata", "notes.pdf")

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly revenue\nRegional membership grew\n\nClosing notes", text)

	records, err := Extract(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "notes.pdf", records[0].FileName)
	assert.Equal(t, []Cell{{Position: "line 1", Value: "Quarterly revenue\nRegional membership grew"}}, records[0].Cells)
	assert.Equal(t, 2, records[1].Row)
	assert.Equal(t, []Cell{{Position: "line 2", Value: "Closing notes"}}, records[1].Cells)
}
