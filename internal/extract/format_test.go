package extract

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"a.xlsx":       FormatWorkbook,
		"a.XLS":        FormatWorkbook,
		"b.xlsm":       FormatWorkbook,
		"dir/c.csv":    FormatTable,
		"c.tsv":        FormatTable,
		"d.pdf":        FormatPageText,
		"notes.txt":    FormatPageText,
		"e.docx":       FormatUnknown,
		"no-extension": FormatUnknown,
	}

	for path, want := range tests {
		assert.Equal(t, want, DetectFormat(path), path)
	}
}

func TestExtract_Unsupported(t *testing.T) {
	_, err := Extract("/somewhere/slides.pptx")
	assert.ErrorIs(t, err, UnsupportedFormatError)
}

func TestExtract_MissingFile(t *testing.T) {
	_, err := Extract(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, UnsupportedFormatError)
}

func TestExtract_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, writeFile(path, "first\n\nsecond"))

	records, err := Extract(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, path, records[0].Path)
	assert.Equal(t, "second", records[1].Cells[0].Value)
}
