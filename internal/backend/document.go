package backend

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2/search"
	"github.com/cespare/xxhash/v2"

	"hurracloud.io/jadwal/internal/extract"
)

// Index field names.
const (
	FileNameField     = "file_name"
	SheetNameField    = "sheet_name"
	CellPositionField = "cell_position"
	CellCtxField      = "cell_ctx"
	CellValueField    = "cell_value"

	// cellsField stores the ordered cell list as one JSON value. The three
	// cell_* fields are only indexed; results are rebuilt from this one.
	cellsField = "cells"
)

// Document is one indexed row or line.
type Document struct {
	ID        string
	FileName  string
	SheetName string
	Cells     []extract.Cell
}

// Assemble builds the index document of a record.
func Assemble(r extract.Record) *Document {
	doc := &Document{
		ID:        documentID(r.Path, r.SheetName, r.Row),
		FileName:  r.FileName,
		SheetName: r.SheetName,
		Cells:     make([]extract.Cell, 0, len(r.Cells)),
	}
	for _, c := range r.Cells {
		doc.AddCell(c)
	}
	return doc
}

// AddCell appends a cell. Position, context and value always move together.
func (d *Document) AddCell(c extract.Cell) {
	d.Cells = append(d.Cells, c)
}

func (d *Document) Positions() []string {
	out := make([]string, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = c.Position
	}
	return out
}

func (d *Document) Contexts() []string {
	out := make([]string, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = c.Context
	}
	return out
}

func (d *Document) Values() []string {
	out := make([]string, len(d.Cells))
	for i, c := range d.Cells {
		out[i] = c.Value
	}
	return out
}

type documentJSON struct {
	FileName     string   `json:"file_name"`
	SheetName    string   `json:"sheet_name,omitempty"`
	CellPosition []string `json:"cell_position"`
	CellCtx      []string `json:"cell_ctx"`
	CellValue    []string `json:"cell_value"`
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(documentJSON{
		FileName:     d.FileName,
		SheetName:    d.SheetName,
		CellPosition: d.Positions(),
		CellCtx:      d.Contexts(),
		CellValue:    d.Values(),
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.CellCtx) != len(raw.CellPosition) || len(raw.CellValue) != len(raw.CellPosition) {
		return fmt.Errorf("%w: %d positions, %d contexts, %d values", InvalidDocumentError,
			len(raw.CellPosition), len(raw.CellCtx), len(raw.CellValue))
	}

	d.FileName = raw.FileName
	d.SheetName = raw.SheetName
	d.Cells = make([]extract.Cell, len(raw.CellPosition))
	for i := range raw.CellPosition {
		d.Cells[i] = extract.Cell{Position: raw.CellPosition[i], Context: raw.CellCtx[i], Value: raw.CellValue[i]}
	}
	return nil
}

func (d *Document) validate() error {
	if d.ID == "" || d.FileName == "" {
		return fmt.Errorf("%w: missing id or file name", InvalidDocumentError)
	}
	for i, c := range d.Cells {
		if c.Position == "" {
			return fmt.Errorf("%w: cell %d of %s has no position", InvalidDocumentError, i, d.FileName)
		}
	}
	return nil
}

// fields is what the index engine receives.
func (d *Document) fields() (map[string]interface{}, error) {
	cells, err := json.Marshal(d.Cells)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		FileNameField:     d.FileName,
		CellPositionField: d.Positions(),
		CellCtxField:      d.Contexts(),
		CellValueField:    d.Values(),
		cellsField:        string(cells),
	}
	if d.SheetName != "" {
		fields[SheetNameField] = d.SheetName
	}
	return fields, nil
}

func documentFromHit(hit *search.DocumentMatch) (*Document, error) {
	doc := &Document{ID: hit.ID}
	doc.FileName, _ = hit.Fields[FileNameField].(string)
	doc.SheetName, _ = hit.Fields[SheetNameField].(string)

	if cells, ok := hit.Fields[cellsField].(string); ok {
		if err := json.Unmarshal([]byte(cells), &doc.Cells); err != nil {
			return nil, fmt.Errorf("Corrupt cell list in document %s: %w", hit.ID, err)
		}
	}
	return doc, nil
}

func documentID(path, sheet string, row int) string {
	h := xxhash.New()
	_, _ = h.WriteString(path)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(sheet)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(strconv.Itoa(row))
	return strconv.FormatUint(h.Sum64(), 16)
}
