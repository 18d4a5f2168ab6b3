package output

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/models"
)

func TestToJSON(t *testing.T) {
	wb := &models.WorkbookData{
		BookName:   "stock.ods",
		Format:     "ods",
		DateSystem: "1900",
		Sheets: []models.SheetData{{
			Name:       "Inventory",
			Visibility: "visible",
			UsedRange:  "A1:B2",
			Rows: []models.CellRow{
				{R: 1, C: map[string]interface{}{"1": "Item", "2": "Qty"}},
				{R: 2, C: map[string]interface{}{"1": "Bolt", "2": int64(12)}},
			},
		}},
	}

	data, err := ToJSON(wb, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"book_name": "stock.ods",
		"format": "ods",
		"date_system": "1900",
		"sheets": [{
			"name": "Inventory",
			"index": 0,
			"visibility": "visible",
			"used_range": "A1:B2",
			"rows": [
				{"r": 1, "c": {"1": "Item", "2": "Qty"}},
				{"r": 2, "c": {"1": "Bolt", "2": 12}}
			]
		}]
	}`, string(data))
	assert.NotContains(t, string(data), "\n")

	pretty, err := ToJSON(wb, true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(pretty), "{\n  \"book_name\""))
}

func TestSheetToJSON(t *testing.T) {
	sheet := &models.SheetData{
		Name:       "Empty",
		Index:      2,
		Visibility: "hidden",
		Dimension:  &models.Dimension{Rows: 0, Cols: 0},
	}
	data, err := SheetToJSON(sheet, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Empty","index":2,"visibility":"hidden","dimension":{"rows":0,"cols":0}}`, string(data))
}
