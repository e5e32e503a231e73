package table

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestNewWriter_FormatSelection(t *testing.T) {
	assert.Equal(t, "csv", NewWriter("csv").Ext())
	assert.Equal(t, "xlsx", NewWriter("xlsx").Ext())
	// Unknown formats fall back to CSV.
	assert.Equal(t, "csv", NewWriter("parquet").Ext())
	assert.Equal(t, "csv", NewWriter("").Ext())
}

func TestCSVWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "venue_2023_papers.csv")
	header := []string{"paper_id", "title"}
	rows := [][]string{
		{"p1", "Title, with comma"},
		{"p2", "Line\nbreak"},
	}

	w := &CSVWriter{}
	require.NoError(t, w.Write(path, header, rows))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, rows[0], records[1])
	assert.Equal(t, rows[1], records[2])
}

func TestCSVWriter_EmptyRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")

	w := &CSVWriter{}
	require.NoError(t, w.Write(path, []string{"a", "b"}, nil))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestXLSXWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "venue_2024_reviews.xlsx")
	header := []string{"review_id", "rating"}
	rows := [][]string{{"r1", "8"}}

	w := &XLSXWriter{}
	require.NoError(t, w.Write(path, header, rows))

	file, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)

	sheet := file.Sheets[0]
	assert.Equal(t, "data", sheet.Name)
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "review_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "8", sheet.Rows[1].Cells[1].String())
}
