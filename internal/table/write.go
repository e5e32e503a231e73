package table

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Writer persists one projected table to disk.
type Writer interface {
	// Write stores the header plus rows at path and returns nothing else;
	// projection already fixed the column order.
	Write(path string, header []string, rows [][]string) error
	// Ext returns the file extension this writer produces, without dot.
	Ext() string
}

// NewWriter returns the writer for an output format name. Unknown formats
// fall back to CSV.
func NewWriter(format string) Writer {
	if format == "xlsx" {
		return &XLSXWriter{}
	}
	return &CSVWriter{}
}

// CSVWriter writes RFC 4180 CSV files.
type CSVWriter struct{}

func (w *CSVWriter) Ext() string { return "csv" }

func (w *CSVWriter) Write(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "table: create dir for %s", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "table: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		return eris.Wrapf(err, "table: write header to %s", path)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return eris.Wrapf(err, "table: write row to %s", path)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrapf(err, "table: flush %s", path)
	}

	return eris.Wrapf(f.Close(), "table: close %s", path)
}

// XLSXWriter writes single-sheet xlsx workbooks.
type XLSXWriter struct{}

func (w *XLSXWriter) Ext() string { return "xlsx" }

func (w *XLSXWriter) Write(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "table: create dir for %s", path)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("data")
	if err != nil {
		return eris.Wrapf(err, "table: add sheet for %s", path)
	}

	hr := sheet.AddRow()
	for _, col := range header {
		hr.AddCell().SetString(col)
	}
	for _, row := range rows {
		xr := sheet.AddRow()
		for _, cell := range row {
			xr.AddCell().SetString(cell)
		}
	}

	return eris.Wrapf(file.Save(path), "table: save %s", path)
}
