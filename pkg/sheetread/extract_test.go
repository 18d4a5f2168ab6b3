package sheetread

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const flatODS = `<?xml version="1.0" encoding="UTF-8"?>
<office:document xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0"
 xmlns:table="urn:oasis:names:tc:opendocument:xmlns:table:1.0"
 xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0"
 xmlns:dc="http://purl.org/dc/elements/1.1/">
<office:meta><dc:title>Readings</dc:title></office:meta>
<office:body><office:spreadsheet>
<table:table table:name="Readings">
  <table:table-row>
    <table:table-cell office:value-type="string"><text:p>taken</text:p></table:table-cell>
    <table:table-cell office:value-type="string"><text:p>value</text:p></table:table-cell>
  </table:table-row>
  <table:table-row table:number-rows-repeated="2">
    <table:table-cell office:value-type="date" office:date-value="2024-05-01T08:30:00"><text:p>05/01/24 08:30</text:p></table:table-cell>
    <table:table-cell office:value-type="float" office:value="3.5"><text:p>3.5</text:p></table:table-cell>
  </table:table-row>
  <table:table-row table:number-rows-repeated="1000">
    <table:table-cell table:number-columns-repeated="20"/>
  </table:table-row>
</table:table>
</office:spreadsheet></office:body></office:document>`

func TestStreamingODSEqualsMaterialized(t *testing.T) {
	lazy, err := OpenReader(bytes.NewReader([]byte(flatODS)), DefaultOptions())
	require.NoError(t, err)
	defer lazy.Close()
	assert.Equal(t, FormatFODS, lazy.Format())
	assert.Equal(t, "Readings", lazy.Properties()["title"])

	sheet, err := lazy.SheetByIndex(0)
	require.NoError(t, err)
	assert.False(t, sheet.IsMaterialized())
	streamed := collect(t, sheet.Rows())

	eager, err := OpenReader(bytes.NewReader([]byte(flatODS)), Options{Mode: ModeEager})
	require.NoError(t, err)
	defer eager.Close()
	sheet, err = eager.SheetByIndex(0)
	require.NoError(t, err)
	materialized, err := sheet.Materialize()
	require.NoError(t, err)

	require.Len(t, materialized, 3)
	assert.Equal(t, materialized, streamed)
}

func TestExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	require.NoError(t, os.WriteFile(path, buildXLSX(t), 0o644))

	data, err := Extract(path, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "ledger.xlsx", data.BookName)
	assert.Equal(t, "xlsx", data.Format)
	assert.Equal(t, "1900", data.DateSystem)
	require.Len(t, data.Sheets, 3)

	ledger := data.Sheets[1]
	assert.Equal(t, "Data", ledger.Name)
	assert.Equal(t, 1, ledger.Index)
	assert.Equal(t, "visible", ledger.Visibility)
	assert.Equal(t, "A1:C4", ledger.UsedRange)
	assert.Equal(t, []string{"A1:C4"}, ledger.PrintAreas)
	require.Len(t, ledger.Rows, 3)
	assert.Equal(t, 1, ledger.Rows[0].R)
	assert.Equal(t, "id", ledger.Rows[0].C["1"])
	assert.Equal(t, 2, ledger.Rows[1].R)
	assert.Equal(t, 9.5, ledger.Rows[1].C["2"])
	assert.Equal(t, "2023-12-25", ledger.Rows[1].C["3"])
	assert.Equal(t, 4, ledger.Rows[2].R)
	assert.NotContains(t, ledger.Rows[2].C, "2")

	assert.Equal(t, "hidden", data.Sheets[2].Visibility)
	assert.Equal(t, "B2", data.Sheets[0].UsedRange)
	assert.Nil(t, data.Sheets[0].PrintAreas)
}

func TestExtractFilters(t *testing.T) {
	wb, err := OpenReader(bytes.NewReader(buildXLSX(t)), DefaultOptions())
	require.NoError(t, err)
	defer wb.Close()

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"all", DefaultOptions(), []string{"Summary", "Data", "Notes"}},
		{"skip hidden", Options{SkipHidden: true}, []string{"Summary", "Data"}},
		{"named", Options{Sheets: []string{"notes", "data"}}, []string{"Data", "Notes"}},
		{"named hidden skipped", Options{Sheets: []string{"Notes"}, SkipHidden: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractWorkbook(wb, tt.opts)
			require.NoError(t, err)
			var names []string
			for _, s := range data.Sheets {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
