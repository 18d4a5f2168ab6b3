package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

const workbookPart = "xl/workbook.xml"

// xlsxDecoder reads compressed-XML workbooks through excelize. Rows are
// streamed with excelize.Rows; cell types and number formats are looked up
// per cell so numeric dates can be told apart from plain numbers.
type xlsxDecoder struct {
	f          *excelize.File
	sheets     []SheetMeta
	sys        cell.DateSystem
	props      map[string]string
	printAreas map[string][]string

	mu      sync.Mutex
	classes map[int]NumberClass
}

// NewXLSX opens an xlsx document. password is only needed for encrypted
// packages.
func NewXLSX(data []byte, password string) (Decoder, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{Password: password})
	if err != nil {
		return nil, err
	}
	d := &xlsxDecoder{
		f:       f,
		sys:     cell.Date1900,
		classes: make(map[int]NumberClass),
	}
	if err := d.readGlobals(); err != nil {
		f.Close()
		return nil, err
	}
	if len(d.sheets) == 0 {
		f.Close()
		return nil, errors.New("workbook has no sheets")
	}
	return d, nil
}

func (d *xlsxDecoder) readGlobals() error {
	states := make(map[string]string)
	if raw, ok := d.f.Pkg.Load(workbookPart); ok {
		if data, ok := raw.([]byte); ok {
			for _, s := range parseWorkbookSheets(data) {
				states[s.name] = s.state
			}
		}
	}

	for _, name := range d.f.GetSheetList() {
		meta := SheetMeta{Name: name}
		if state, ok := states[name]; ok {
			meta.Visibility = visibilityFromState(state)
		} else if visible, err := d.f.GetSheetVisible(name); err == nil && !visible {
			meta.Visibility = Hidden
		}
		d.sheets = append(d.sheets, meta)
	}

	wbProps, err := d.f.GetWorkbookProps()
	if err != nil {
		return fmt.Errorf("workbook properties: %w", err)
	}
	if wbProps.Date1904 != nil && *wbProps.Date1904 {
		d.sys = cell.Date1904
	}

	d.printAreas = extractPrintAreas(d.f.GetDefinedName())

	d.props = make(map[string]string)
	if dp, err := d.f.GetDocProps(); err == nil {
		for key, value := range map[string]string{
			"title":            dp.Title,
			"subject":          dp.Subject,
			"creator":          dp.Creator,
			"keywords":         dp.Keywords,
			"description":      dp.Description,
			"last_modified_by": dp.LastModifiedBy,
			"category":         dp.Category,
			"created":          dp.Created,
			"modified":         dp.Modified,
		} {
			if value != "" {
				d.props[key] = value
			}
		}
	}
	return nil
}

func (d *xlsxDecoder) Format() Format                { return FormatXLSX }
func (d *xlsxDecoder) Sheets() []SheetMeta           { return d.sheets }
func (d *xlsxDecoder) DateSystem() cell.DateSystem   { return d.sys }
func (d *xlsxDecoder) Properties() map[string]string { return d.props }
func (d *xlsxDecoder) Close() error                  { return d.f.Close() }

func (d *xlsxDecoder) PrintAreas(sheet string) []string { return d.printAreas[sheet] }

func (d *xlsxDecoder) OpenRows(index int) (RowReader, error) {
	if index < 0 || index >= len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d out of range", index)
	}
	name := d.sheets[index].Name
	rows, err := d.f.Rows(name)
	if err != nil {
		return nil, err
	}
	return &xlsxRows{d: d, sheet: name, rows: rows, idx: -1}, nil
}

// styleClass returns the number class of the style applied to ref.
func (d *xlsxDecoder) styleClass(sheet, ref string) NumberClass {
	styleID, err := d.f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return ClassNumber
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if class, ok := d.classes[styleID]; ok {
		return class
	}
	class := ClassNumber
	if style, err := d.f.GetStyle(styleID); err == nil && style != nil {
		var code string
		if style.CustomNumFmt != nil {
			code = *style.CustomNumFmt
		}
		class = ClassifyNumberFormat(style.NumFmt, code)
	}
	d.classes[styleID] = class
	return class
}

// value types the raw text of a cell.
func (d *xlsxDecoder) value(sheet string, col, row int, raw string) (cell.Value, error) {
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return cell.Value{}, err
	}
	typ, err := d.f.GetCellType(sheet, ref)
	if err != nil {
		return cell.Value{}, err
	}
	if raw == "" {
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
			return cell.String(""), nil
		}
		return cell.Empty(), nil
	}
	switch typ {
	case excelize.CellTypeBool:
		return cell.Bool(raw == "1" || strings.EqualFold(raw, "TRUE")), nil
	case excelize.CellTypeError:
		if code, ok := cell.ParseErrorCode(raw); ok {
			return cell.Error(code), nil
		}
		return cell.String(raw), nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return cell.String(raw), nil
	case excelize.CellTypeDate:
		if t, dateOnly, ok := parseISODate(raw); ok {
			return cell.DateTimeOf(t, d.sys, dateOnly), nil
		}
		return cell.String(raw), nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return cell.String(raw), nil
	}
	return numericValue(f, d.styleClass(sheet, ref), d.sys), nil
}

// xlsxRows streams one worksheet.
type xlsxRows struct {
	d     *xlsxDecoder
	sheet string
	rows  *excelize.Rows
	idx   int
	cur   []cell.Value
	err   error
}

func (r *xlsxRows) Next() bool {
	if r.err != nil || r.rows == nil {
		return false
	}
	if !r.rows.Next() {
		r.err = r.rows.Error()
		return false
	}
	r.idx++
	cols, err := r.rows.Columns(excelize.Options{RawCellValue: true})
	if err != nil {
		r.err = fmt.Errorf("row %d: %w", r.idx+1, err)
		return false
	}
	row := make([]cell.Value, 0, len(cols))
	for col, raw := range cols {
		v, err := r.d.value(r.sheet, col, r.idx, raw)
		if err != nil {
			r.err = fmt.Errorf("row %d: %w", r.idx+1, err)
			return false
		}
		row = append(row, v)
	}
	r.cur = trimRow(row)
	return true
}

func (r *xlsxRows) Row() []cell.Value { return r.cur }
func (r *xlsxRows) Err() error        { return r.err }

func (r *xlsxRows) Close() error {
	if r.rows == nil {
		return nil
	}
	err := r.rows.Close()
	r.rows = nil
	return err
}
