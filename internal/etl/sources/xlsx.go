package sources

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"swapiexport/internal/etl"
)

// ── XLSX Source ─────────────────────────────────────────────
// Reads one table per sheet from a workbook. The workbook is loaded once,
// on Open; sheet name = entity type, first row = header.

type xlsxSource struct{}

func init() { etl.RegisterSource(&xlsxSource{}) }

func (s *xlsxSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:     "xlsx",
		Label:    "Excel Workbook",
		Priority: 10,
		Help:     "Path to an .xlsx file with one sheet per entity type",
	}
}

func (s *xlsxSource) Match(locator string) bool {
	return strings.EqualFold(filepath.Ext(locator), ".xlsx")
}

func (s *xlsxSource) Open(_ context.Context, locator string, _ etl.SourceOptions) (etl.Source, error) {
	return OpenWorkbook(locator)
}

// Workbook is a spreadsheet loaded into memory.
type Workbook struct {
	path   string
	sheets map[string][]etl.Record
	order  []string
}

// OpenWorkbook eagerly reads every sheet of the file.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &etl.SourceLoadError{Path: path, Err: err}
	}
	defer f.Close()

	wb := &Workbook{path: path, sheets: make(map[string][]etl.Record)}
	for _, name := range f.GetSheetList() {
		records, err := readSheet(f, name)
		if err != nil {
			return nil, &etl.SourceLoadError{Path: path, Err: fmt.Errorf("sheet %q: %w", name, err)}
		}
		wb.sheets[name] = records
		wb.order = append(wb.order, name)
	}
	return wb, nil
}

// Sheets returns the sheet names in workbook order.
func (wb *Workbook) Sheets() []string { return wb.order }

func (wb *Workbook) Fetch(_ context.Context, entity string) ([]etl.Record, error) {
	records, ok := wb.sheets[entity]
	if !ok {
		return nil, &etl.UnknownEntityTypeError{Entity: entity, Source: wb.path}
	}
	out := make([]etl.Record, len(records))
	for i, r := range records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (wb *Workbook) Close() error { return nil }

func readSheet(f *excelize.File, sheet string) ([]etl.Record, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	records := []etl.Record{}
	if len(rows) == 0 {
		return records, nil
	}

	// GetRows stops at the last non-empty row; the dimension also counts
	// rows whose cells are all blank.
	if ref, err := f.GetSheetDimension(sheet); err == nil {
		for n := dimensionRows(ref); len(rows) < n; {
			rows = append(rows, nil)
		}
	}

	headers := headerNames(rows[0])
	for i, row := range rows[1:] {
		rowNum := i + 2
		rec := etl.NewRecord(len(headers))
		for j, h := range headers {
			var raw string
			if j < len(row) {
				raw = row[j]
			}
			cell, err := excelize.CoordinatesToCellName(j+1, rowNum)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				return nil, err
			}
			rec.Set(h, cellValue(typ, raw))
		}
		records = append(records, rec)
	}
	return records, nil
}

// dimensionRows is the last row number of a range such as "A1:D5".
func dimensionRows(ref string) int {
	if ref == "" {
		return 0
	}
	parts := strings.Split(ref, ":")
	_, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return row
}

func headerNames(row []string) []string {
	headers := make([]string, len(row))
	seen := make(map[string]bool, len(row))
	for i, h := range row {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			h = fmt.Sprintf("col_%d", i+1)
		}
		seen[h] = true
		headers[i] = h
	}
	return headers
}

// cellValue restores the record value kind from the stored cell type.
func cellValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return strings.EqualFold(raw, "TRUE") || raw == "1"
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw
	}
	if raw == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

func cloneRecord(r etl.Record) etl.Record {
	out := etl.NewRecord(len(r.Fields))
	for _, k := range r.Fields {
		out.Set(k, r.Data[k])
	}
	return out
}
