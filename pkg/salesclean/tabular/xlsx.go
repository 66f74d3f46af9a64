package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/cognicore/salesclean/pkg/salesclean/table"
)

// XLSX reads the first sheet of a workbook and writes a single-sheet one.
type XLSX struct {
	// Sheet is the name of the written sheet; empty means "Datos".
	Sheet string
}

// Read implements Reader.
func (XLSX) Read(r io.Reader) (*table.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// Write implements Writer. Numbers are stored as numeric cells.
func (x XLSX) Write(w io.Writer, t *table.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := x.Sheet
	if sheet == "" {
		sheet = "Datos"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}

	for c, name := range t.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(sheet, cell, name); err != nil {
			return err
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if n, ok := v.Float(); ok {
				err = f.SetCellFloat(sheet, cell, n, -1, 64)
			} else {
				err = f.SetCellStr(sheet, cell, v.String())
			}
			if err != nil {
				return err
			}
		}
	}

	_, err := f.WriteTo(w)
	return err
}
