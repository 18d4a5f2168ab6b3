package sheetread

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
	"github.com/ukaji3/sheetread-go/pkg/sheetread/parser"
)

var errClosed = errors.New("workbook closed")

// Sheet is one decoded sheet. Its rows come either from a materialized grid,
// which every iterator walks from row 0, or from a single forward cursor
// shared by all iterators.
type Sheet struct {
	index  int
	name   string
	vis    Visibility
	format Format
	log    *slog.Logger

	mu           sync.Mutex
	dim          *Dimension
	materialized bool
	rows         [][]cell.Value

	reader   parser.RowReader
	consumed int
	last     []cell.Value
	done     bool
	err      error
}

func newSheet(index int, meta parser.SheetMeta, format Format, reader parser.RowReader, log *slog.Logger) (*Sheet, error) {
	s := &Sheet{
		index:  index,
		name:   meta.Name,
		vis:    meta.Visibility,
		format: format,
		log:    log.With("sheet", meta.Name),
		reader: reader,
	}
	if sized, ok := reader.(parser.Sized); ok {
		s.dim = sized.Dimension()
	}
	if m, ok := reader.(parser.Materialized); ok {
		rows := m.AllRows()
		s.closeReader()
		s.reader = nil
		for i, row := range rows {
			if err := s.checkWidth(i, row); err != nil {
				return nil, err
			}
		}
		s.rows, s.materialized, s.done = rows, true, true
	}
	return s, nil
}

// Name returns the sheet name.
func (s *Sheet) Name() string { return s.name }

// Index returns the 0-based position of the sheet in the workbook.
func (s *Sheet) Index() int { return s.index }

// Visibility returns the declared display state.
func (s *Sheet) Visibility() Visibility { return s.vis }

// Dimension returns the declared size, or nil when the document declares none.
func (s *Sheet) Dimension() *Dimension {
	if s.dim == nil {
		return nil
	}
	d := *s.dim
	return &d
}

// IsMaterialized reports whether every row is held in memory.
func (s *Sheet) IsMaterialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materialized
}

func (s *Sheet) checkWidth(index int, row []cell.Value) error {
	if s.dim == nil || len(row) <= s.dim.Cols {
		return nil
	}
	return NewMalformedDocumentError(s.format, s.name,
		fmt.Errorf("row %d has %d cells but the sheet declares %d columns", index+1, len(row), s.dim.Cols))
}

// next advances the shared cursor. The caller holds s.mu.
func (s *Sheet) next() bool {
	if s.done {
		return false
	}
	if !s.reader.Next() {
		if err := s.reader.Err(); err != nil {
			s.err = NewMalformedDocumentError(s.format, s.name, err)
		}
		s.finish()
		return false
	}
	row := s.reader.Row()
	if err := s.checkWidth(s.consumed, row); err != nil {
		s.err = err
		s.finish()
		return false
	}
	s.last = row
	s.consumed++
	return true
}

func (s *Sheet) finish() {
	s.done = true
	if s.reader != nil {
		s.closeReader()
	}
}

func (s *Sheet) closeReader() {
	if err := s.reader.Close(); err != nil {
		s.log.Warn("closing row reader failed", "error", err)
	}
}

// release closes the row reader of a streaming sheet.
func (s *Sheet) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.materialized || s.done {
		return
	}
	s.err = NewIOError("read", s.name, errClosed)
	s.finish()
}

// Rows returns an iterator over the rows of the sheet.
func (s *Sheet) Rows() *Rows {
	return &Rows{s: s}
}

// Cell returns the value at the 0-based row and column. Positions outside the
// data are Empty. On a streaming sheet the cursor moves forward to row, and
// rows behind it fail with ErrRowsConsumed.
func (s *Sheet) Cell(row, col int) (cell.Value, error) {
	if row < 0 || col < 0 {
		return cell.Empty(), nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.materialized {
		if row >= len(s.rows) {
			return cell.Empty(), nil
		}
		return Row{Index: row, Cells: s.rows[row]}.Cell(col), nil
	}

	cur := s.consumed - 1
	if row < cur {
		return cell.Value{}, fmt.Errorf("sheet %q row %d, cursor at row %d: %w", s.name, row, cur, ErrRowsConsumed)
	}
	for cur < row {
		if !s.next() {
			return cell.Empty(), s.err
		}
		cur++
	}
	return Row{Index: row, Cells: s.last}.Cell(col), nil
}

// Materialize reads every row into memory and returns them. A streaming sheet
// can only be materialized before its first row is consumed; afterwards it
// behaves like a materialized sheet. If decoding fails no rows are returned.
func (s *Sheet) Materialize() ([]Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.materialized {
		if s.err != nil {
			return nil, s.err
		}
		if s.consumed > 0 {
			return nil, fmt.Errorf("sheet %q: %d rows already read: %w", s.name, s.consumed, ErrRowsConsumed)
		}
		var rows [][]cell.Value
		for s.next() {
			rows = append(rows, s.last)
		}
		if s.err != nil {
			return nil, s.err
		}
		s.rows, s.materialized, s.reader = rows, true, nil
		s.log.Debug("sheet materialized", "rows", len(rows))
	}

	out := make([]Row, len(s.rows))
	for i, cells := range s.rows {
		out[i] = Row{Index: i, Cells: cells}
	}
	return out, nil
}

// UsedRange returns the A1-style bounding box of the non-empty cells, for
// example "B2:F40", or "" for a sheet without data. The sheet is
// materialized first.
func (s *Sheet) UsedRange() (string, error) {
	if _, err := s.Materialize(); err != nil {
		return "", err
	}
	s.mu.Lock()
	bounds, ok := parser.DataBounds(s.rows)
	s.mu.Unlock()
	if !ok {
		return "", nil
	}
	return bounds.Ref()
}
