package sheetread

import "github.com/ukaji3/sheetread-go/pkg/sheetread/cell"

// Row is one row of a sheet. Cells holds the stored cells from column 0;
// trailing empty cells are not stored. Cells must not be modified.
type Row struct {
	Index int
	Cells []cell.Value
}

// Cell returns the value at col, or Empty beyond the stored width.
func (r Row) Cell(col int) cell.Value {
	if col < 0 || col >= len(r.Cells) {
		return cell.Empty()
	}
	return r.Cells[col]
}

// Len returns the stored width of the row.
func (r Row) Len() int { return len(r.Cells) }

// Rows iterates the rows of a sheet:
//
//	rows := sheet.Rows()
//	for rows.Next() {
//		row := rows.Row()
//		...
//	}
//	if err := rows.Err(); err != nil {
//		...
//	}
type Rows struct {
	s   *Sheet
	pos int
	row Row
}

// Next advances to the next row and reports whether there is one.
func (r *Rows) Next() bool {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.materialized {
		if r.pos >= len(s.rows) {
			r.row = Row{}
			return false
		}
		r.row = Row{Index: r.pos, Cells: s.rows[r.pos]}
		r.pos++
		return true
	}
	if !s.next() {
		r.row = Row{}
		return false
	}
	r.row = Row{Index: s.consumed - 1, Cells: s.last}
	return true
}

// Row returns the current row.
func (r *Rows) Row() Row { return r.row }

// Index returns the 0-based index of the current row.
func (r *Rows) Index() int { return r.row.Index }

// Err returns the error that ended iteration, if any.
func (r *Rows) Err() error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.materialized {
		return nil
	}
	return s.err
}
