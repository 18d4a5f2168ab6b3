// Package parser contains the per-format decoders. Every decoder lists the
// sheets of a document and produces rows of cell.Value for one sheet at a time.
package parser

import (
	"strings"
	"time"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// Format is the container format of a document.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatXLSB Format = "xlsb"
	FormatODS  Format = "ods"
	FormatFODS Format = "fods"
)

// Visibility is a sheet's declared display state.
type Visibility int

const (
	Visible Visibility = iota
	Hidden
	VeryHidden
)

func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case VeryHidden:
		return "veryHidden"
	}
	return "visible"
}

// MarshalText renders the visibility for JSON output.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Dimension is the declared size of a sheet counted from A1.
type Dimension struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SheetMeta describes one sheet in declaration order.
type SheetMeta struct {
	Name       string
	Visibility Visibility
}

// Decoder is implemented by every supported container format.
type Decoder interface {
	Format() Format
	Sheets() []SheetMeta
	DateSystem() cell.DateSystem
	Properties() map[string]string
	// OpenRows starts decoding the sheet at index. Each call returns a fresh
	// reader positioned on the first row.
	OpenRows(index int) (RowReader, error)
	Close() error
}

// RowReader is a forward-only cursor over the rows of a sheet. Row indexes
// are dense: a sheet with data only on row 3 yields two empty rows first.
type RowReader interface {
	Next() bool
	// Row returns the current row. Column gaps hold cell.Empty.
	Row() []cell.Value
	Err() error
	Close() error
}

// Materialized is implemented by row readers that already hold every row.
type Materialized interface {
	AllRows() [][]cell.Value
}

// Sized is implemented by row readers whose sheet declares its size. Readers
// that do not implement it, or return nil, have no declared dimension.
type Sized interface {
	Dimension() *Dimension
}

// PrintAreaSource is implemented by decoders that read print area names.
type PrintAreaSource interface {
	PrintAreas(sheet string) []string
}

// sliceReader serves rows that were decoded up front.
type sliceReader struct {
	rows [][]cell.Value
	pos  int
	dim  *Dimension
}

func newSliceReader(rows [][]cell.Value, dim *Dimension) *sliceReader {
	return &sliceReader{rows: rows, pos: -1, dim: dim}
}

func (r *sliceReader) Next() bool {
	if r.pos+1 >= len(r.rows) {
		r.pos = len(r.rows)
		return false
	}
	r.pos++
	return true
}

func (r *sliceReader) Row() []cell.Value {
	if r.pos < 0 || r.pos >= len(r.rows) {
		return nil
	}
	return r.rows[r.pos]
}

func (r *sliceReader) Err() error              { return nil }
func (r *sliceReader) Close() error            { return nil }
func (r *sliceReader) AllRows() [][]cell.Value { return r.rows }
func (r *sliceReader) Dimension() *Dimension   { return r.dim }

// placeCell stores v at col, padding the row with Empty as needed.
func placeCell(row []cell.Value, col int, v cell.Value) []cell.Value {
	for len(row) < col {
		row = append(row, cell.Empty())
	}
	if col < len(row) {
		row[col] = v
		return row
	}
	return append(row, v)
}

// trimRow drops trailing Empty cells.
func trimRow(row []cell.Value) []cell.Value {
	n := len(row)
	for n > 0 && row[n-1].IsEmpty() {
		n--
	}
	return row[:n]
}

var isoDateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// parseISODate parses the ISO 8601 dates used by OOXML "d" cells and ODF
// date-value attributes.
func parseISODate(s string) (t time.Time, dateOnly bool, ok bool) {
	s = strings.TrimSpace(s)
	for _, layout := range isoDateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, false, true
		}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, true
	}
	return time.Time{}, false, false
}
