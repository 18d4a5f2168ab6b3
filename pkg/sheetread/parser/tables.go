package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// Bounds is the bounding box of the non-empty cells of a sheet, 0-based and
// inclusive.
type Bounds struct {
	MinRow, MaxRow int
	MinCol, MaxCol int
	// Cells is the number of non-empty cells inside the box.
	Cells int
}

// Density is the share of non-empty cells inside the box.
func (b Bounds) Density() float64 {
	total := (b.MaxRow - b.MinRow + 1) * (b.MaxCol - b.MinCol + 1)
	if total <= 0 {
		return 0
	}
	return float64(b.Cells) / float64(total)
}

// Ref renders the box in A1 notation, e.g. "B2:D10".
func (b Bounds) Ref() (string, error) {
	startCell, err := excelize.CoordinatesToCellName(b.MinCol+1, b.MinRow+1)
	if err != nil {
		return "", err
	}
	endCell, err := excelize.CoordinatesToCellName(b.MaxCol+1, b.MaxRow+1)
	if err != nil {
		return "", err
	}
	if startCell == endCell {
		return startCell, nil
	}
	return fmt.Sprintf("%s:%s", startCell, endCell), nil
}

// DataBounds finds the bounding box of non-empty cells. ok is false when
// every cell is empty.
func DataBounds(rows [][]cell.Value) (b Bounds, ok bool) {
	b = Bounds{MinRow: -1, MaxRow: -1, MinCol: -1, MaxCol: -1}

	for rowIdx, row := range rows {
		for colIdx, v := range row {
			if v.IsEmpty() {
				continue
			}
			b.Cells++
			if b.MinRow < 0 || rowIdx < b.MinRow {
				b.MinRow = rowIdx
			}
			if b.MaxRow < 0 || rowIdx > b.MaxRow {
				b.MaxRow = rowIdx
			}
			if b.MinCol < 0 || colIdx < b.MinCol {
				b.MinCol = colIdx
			}
			if b.MaxCol < 0 || colIdx > b.MaxCol {
				b.MaxCol = colIdx
			}
		}
	}

	return b, b.Cells > 0
}
