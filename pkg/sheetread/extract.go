package sheetread

import (
	"path/filepath"
	"strconv"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
	"github.com/ukaji3/sheetread-go/pkg/sheetread/models"
)

// Extract loads the spreadsheet at path and converts the sheets selected by
// opts into JSON models.
func Extract(path string, opts Options) (*models.WorkbookData, error) {
	wb, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	data, err := ExtractWorkbook(wb, opts)
	if err != nil {
		return nil, err
	}
	data.BookName = filepath.Base(path)
	return data, nil
}

// ExtractWorkbook converts the sheets of an open workbook selected by opts.
// A sheet that fails to decode fails the extraction.
func ExtractWorkbook(wb *Workbook, opts Options) (*models.WorkbookData, error) {
	data := &models.WorkbookData{
		Format:     string(wb.Format()),
		DateSystem: wb.DateSystem().String(),
		Properties: wb.Properties(),
		Sheets:     []models.SheetData{},
	}
	if len(data.Properties) == 0 {
		data.Properties = nil
	}

	for _, info := range wb.Sheets() {
		if !opts.ShouldExtract(info) {
			continue
		}
		sheet, err := wb.SheetByIndex(info.Index)
		if err != nil {
			return nil, err
		}
		sheetData, err := extractSheet(sheet)
		if err != nil {
			return nil, err
		}
		sheetData.PrintAreas = wb.PrintAreas(info.Name)
		data.Sheets = append(data.Sheets, sheetData)
	}
	return data, nil
}

func extractSheet(sheet *Sheet) (models.SheetData, error) {
	rows, err := sheet.Materialize()
	if err != nil {
		return models.SheetData{}, err
	}
	usedRange, err := sheet.UsedRange()
	if err != nil {
		return models.SheetData{}, err
	}

	sheetData := models.SheetData{
		Name:       sheet.Name(),
		Index:      sheet.Index(),
		Visibility: sheet.Visibility().String(),
		UsedRange:  usedRange,
	}
	if dim := sheet.Dimension(); dim != nil {
		sheetData.Dimension = &models.Dimension{Rows: dim.Rows, Cols: dim.Cols}
	}

	for _, row := range rows {
		cellMap := make(map[string]interface{})
		for colIdx, v := range row.Cells {
			if v.IsEmpty() {
				continue
			}
			cellMap[strconv.Itoa(colIdx+1)] = jsonValue(v)
		}
		if len(cellMap) > 0 {
			sheetData.Rows = append(sheetData.Rows, models.CellRow{
				R: row.Index + 1,
				C: cellMap,
			})
		}
	}
	return sheetData, nil
}

// jsonValue keeps numbers, strings and booleans as they are and renders
// dates, durations and error codes as text.
func jsonValue(v cell.Value) interface{} {
	switch v.Kind() {
	case cell.KindDateTime, cell.KindDuration, cell.KindError:
		return v.String()
	}
	return v.Interface()
}
