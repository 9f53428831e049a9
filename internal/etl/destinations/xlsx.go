package destinations

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"swapiexport/internal/etl"
)

// ── XLSX Destination ───────────────────────────────────────
// One sheet per table, header row first, no index column.

const defaultSheet = "Sheet1"

type xlsxDestination struct{}

func init() { etl.RegisterDestination(&xlsxDestination{}) }

func (d *xlsxDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{
		Type:     "xlsx",
		Label:    "Excel Workbook",
		Priority: 10,
		Local:    true,
		Help:     "Path to the .xlsx file to write",
	}
}

func (d *xlsxDestination) Match(locator string) bool {
	return strings.EqualFold(filepath.Ext(locator), ".xlsx")
}

func (d *xlsxDestination) Open(locator string) (etl.Destination, error) {
	return NewXLSX(locator), nil
}

// XLSX writes a multi-sheet workbook.
type XLSX struct {
	path string
}

func NewXLSX(path string) *XLSX { return &XLSX{path: path} }

func (x *XLSX) Export(ctx context.Context, tables []*etl.Table) error {
	names, err := etl.TargetNames(x.path, tables)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	// The new file's default sheet becomes the first table. Sheet lookups in
	// excelize ignore case, so adding "sheet1" next to it would reuse it.
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return &etl.ExportError{Target: x.path, Err: err}
		}
		if i == 0 {
			err = f.SetSheetName(defaultSheet, names[i])
		} else {
			_, err = f.NewSheet(names[i])
		}
		if err != nil {
			return &etl.ExportError{Target: x.path, Table: t.Name, Err: err}
		}
		if err := writeSheet(f, names[i], t); err != nil {
			return &etl.ExportError{Target: x.path, Table: t.Name, Err: err}
		}
	}
	f.SetActiveSheet(0)

	err = etl.WriteFileAtomic(x.path, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return &etl.ExportError{Target: x.path, Err: err}
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *etl.Table) error {
	if len(t.Columns) == 0 {
		return nil
	}
	header := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range t.Rows {
		vals := t.Values(i)
		for j, v := range vals {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
	}

	// Record the full extent so trailing rows with no values survive a read.
	last, err := excelize.CoordinatesToCellName(len(t.Columns), len(t.Rows)+1)
	if err != nil {
		return err
	}
	return f.SetSheetDimension(sheet, "A1:"+last)
}
