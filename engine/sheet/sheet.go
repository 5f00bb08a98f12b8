// Package sheet renders lookup results as an .xlsx workbook with a "Dados"
// sheet for the scraped fields and a "Links" sheet for the page's anchors.
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/aerodados/rab-proxy/engine/rab"
	"github.com/xuri/excelize/v2"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Sheet names.
const (
	DataSheet  = "Dados"
	LinksSheet = "Links"
)

// MaxFilenameLength caps the download filename, extension included.
const MaxFilenameLength = 120

const extension = ".xlsx"

// Build lays out res into a new workbook. Callers must Close the result.
func Build(res rab.Result) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeData(f, res); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(LinksSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("new sheet: %w", err)
	}
	if err := writeLinks(f, res.Links); err != nil {
		f.Close()
		return nil, err
	}

	f.SetActiveSheet(0)
	return f, nil
}

// Render builds the workbook and returns its bytes.
func Render(res rab.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, res); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write builds the workbook and writes it to w.
func Write(w io.Writer, res rab.Result) error {
	f, err := Build(res)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeData(f *excelize.File, res rab.Result) error {
	rows := [][]any{{"Campo", "Valor"}}
	for _, field := range res.Fields.Fields() {
		rows = append(rows, []any{field.Label, field.Value})
	}
	rows = append(rows,
		[]any{},
		[]any{"Marca consultada", res.Marca},
		[]any{"Fonte", res.Source},
		[]any{"Consultado em", res.Timestamp()},
	)
	if err := setRows(f, DataSheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(DataSheet, "A", "A", 32); err != nil {
		return err
	}
	return f.SetColWidth(DataSheet, "B", "B", 60)
}

func writeLinks(f *excelize.File, links []rab.Link) error {
	rows := [][]any{{"Texto", "URL"}}
	for _, l := range links {
		rows = append(rows, []any{l.Text, l.Href})
	}
	if err := setRows(f, LinksSheet, rows); err != nil {
		return err
	}
	if err := f.SetColWidth(LinksSheet, "A", "A", 40); err != nil {
		return err
	}
	return f.SetColWidth(LinksSheet, "B", "B", 80)
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// Filename returns the download name for marca: "RAB_<marca>.xlsx" with
// every character outside [A-Za-z0-9._-] replaced by '_', capped at
// MaxFilenameLength.
func Filename(marca string) string {
	base := sanitize("RAB_" + marca)
	if max := MaxFilenameLength - len(extension); len(base) > max {
		base = base[:max]
	}
	return base + extension
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '_' || r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}
