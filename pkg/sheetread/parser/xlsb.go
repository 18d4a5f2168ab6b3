package parser

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"iter"
	"unicode/utf16"

	"github.com/TsubasaBE/go-xlsb/record"
	"github.com/TsubasaBE/go-xlsb/workbook"
	"github.com/TsubasaBE/go-xlsb/worksheet"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// BIFF12 record ids read next to go-xlsb.
const (
	brtRowHdr       = 0x0000
	brtCellError    = 0x0003
	brtFmlaError    = 0x000B
	brtFmt          = 0x002C
	brtXF           = 0x002F
	brtBundleSh     = 0x019C
	brtBeginCellXFs = 0x04E9
	brtEndCellXFs   = 0x04EA
)

const (
	xlsbWorkbookPart  = "xl/workbook.bin"
	xlsbWorkbookRels  = "xl/_rels/workbook.bin.rels"
	xlsbStylesPart    = "xl/styles.bin"
	xlsbCorePropsPart = "docProps/core.xml"
)

// xlsbDecoder reads binary workbooks through go-xlsb. Number formats and the
// positions of error cells come from the BIFF12 parts directly.
type xlsbDecoder struct {
	wb      *workbook.Workbook
	zr      *zip.Reader
	sheets  []SheetMeta
	sys     cell.DateSystem
	props   map[string]string
	classes []NumberClass
	parts   map[string]string
}

// NewXLSB opens an xlsb document.
func NewXLSB(data []byte) (Decoder, error) {
	wb, err := workbook.OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	d := &xlsbDecoder{wb: wb, sys: cell.Date1900, props: make(map[string]string)}
	if wb.Date1904 {
		d.sys = cell.Date1904
	}
	for _, name := range wb.Sheets() {
		meta := SheetMeta{Name: name}
		switch wb.SheetVisibility(name) {
		case workbook.SheetHidden:
			meta.Visibility = Hidden
		case workbook.SheetVeryHidden:
			meta.Visibility = VeryHidden
		}
		d.sheets = append(d.sheets, meta)
	}

	if zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data))); err == nil {
		d.zr = zr
		// go-xlsb does not expose document properties; core.xml is plain OOXML.
		if core, err := readZipFile(zr, xlsbCorePropsPart); err == nil && core != nil {
			d.props = parseCoreProps(core)
		}
		if styles, err := readZipFile(zr, xlsbStylesPart); err == nil && styles != nil {
			d.classes = readXLSBStyles(styles)
		}
		d.parts = xlsbSheetParts(zr)
	}
	return d, nil
}

func (d *xlsbDecoder) Format() Format                { return FormatXLSB }
func (d *xlsbDecoder) Sheets() []SheetMeta           { return d.sheets }
func (d *xlsbDecoder) DateSystem() cell.DateSystem   { return d.sys }
func (d *xlsbDecoder) Properties() map[string]string { return d.props }
func (d *xlsbDecoder) Close() error                  { return d.wb.Close() }

func (d *xlsbDecoder) OpenRows(index int) (RowReader, error) {
	if index < 0 || index >= len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d out of range", index)
	}
	ws, err := d.wb.Sheet(index + 1)
	if err != nil {
		return nil, err
	}
	r := &xlsbRows{d: d, errs: d.errorCells(d.sheets[index].Name)}
	if dim := ws.Dimension; dim != nil {
		r.dim = &Dimension{Rows: dim.R + dim.H, Cols: dim.C + dim.W}
	}
	r.next, r.stop = iter.Pull(ws.Rows(true))
	return r, nil
}

// cellPos is a 0-based row and column.
type cellPos struct{ row, col int }

// errorCells returns the cells of a sheet stored as error records. It returns
// nil when the sheet part cannot be found.
func (d *xlsbDecoder) errorCells(sheet string) map[cellPos]bool {
	part, ok := d.parts[sheet]
	if !ok || d.zr == nil {
		return nil
	}
	data, err := readZipFile(d.zr, part)
	if err != nil || data == nil {
		return nil
	}
	errs := make(map[cellPos]bool)
	rr := record.NewReader(bytes.NewReader(data))
	row := 0
	for {
		id, body, err := rr.Next()
		if err != nil {
			break
		}
		switch id {
		case brtRowHdr:
			if len(body) >= 4 {
				row = int(binary.LittleEndian.Uint32(body))
			}
		case brtCellError, brtFmlaError:
			if len(body) >= 4 {
				errs[cellPos{row, int(binary.LittleEndian.Uint32(body))}] = true
			}
		}
	}
	return errs
}

// value types a go-xlsb cell. errs holds the error cells of the sheet; when
// it is nil, strings that spell an error literal are read as errors.
func (d *xlsbDecoder) value(c worksheet.Cell, errs map[cellPos]bool) cell.Value {
	switch v := c.V.(type) {
	case nil:
		return cell.Empty()
	case bool:
		return cell.Bool(v)
	case string:
		code, ok := cell.ParseErrorCode(v)
		switch {
		case errs == nil:
			if ok && v == code.String() {
				return cell.Error(code)
			}
		case errs[cellPos{c.R, c.C}]:
			if ok {
				return cell.Error(code)
			}
			// go-xlsb renders unknown error bytes as hex.
			return cell.Error(cell.ErrorNA)
		}
		return cell.String(v)
	case int:
		return d.number(float64(v), c.Style, cell.Int(int64(v)))
	case int64:
		return d.number(float64(v), c.Style, cell.Int(v))
	case float64:
		return d.number(v, c.Style, cell.Float(v))
	}
	return cell.String(fmt.Sprint(c.V))
}

// number returns plain unless the number format of the cell style asks for a
// date, time or duration.
func (d *xlsbDecoder) number(f float64, style int, plain cell.Value) cell.Value {
	class := ClassNumber
	switch {
	case style >= 0 && style < len(d.classes):
		class = d.classes[style]
	case d.classes == nil && d.wb.Styles.IsDate(style):
		class = ClassDateTime
	}
	if class == ClassNumber {
		return plain
	}
	return numericValue(f, class, d.sys)
}

// readXLSBStyles classifies the number format of every cell XF in styles.bin.
func readXLSBStyles(data []byte) []NumberClass {
	formats := make(map[int]string)
	var xfFormats []int
	inCellXFs := false
	rr := record.NewReader(bytes.NewReader(data))
	for {
		id, body, err := rr.Next()
		if err != nil {
			break
		}
		switch id {
		case brtFmt:
			if len(body) < 2 {
				continue
			}
			if code, _, ok := wideString(body[2:]); ok {
				formats[int(binary.LittleEndian.Uint16(body))] = code
			}
		case brtBeginCellXFs:
			inCellXFs = true
		case brtEndCellXFs:
			inCellXFs = false
		case brtXF:
			if inCellXFs && len(body) >= 4 {
				xfFormats = append(xfFormats, int(binary.LittleEndian.Uint16(body[2:])))
			}
		}
	}
	classes := make([]NumberClass, len(xfFormats))
	for i, id := range xfFormats {
		classes[i] = ClassifyNumberFormat(id, formats[id])
	}
	return classes
}

// xlsbSheetParts maps sheet names to their worksheet part names.
func xlsbSheetParts(zr *zip.Reader) map[string]string {
	rels, err := readZipFile(zr, xlsbWorkbookRels)
	if err != nil || rels == nil {
		return nil
	}
	targets := parseRelationships(rels, "xl")
	data, err := readZipFile(zr, xlsbWorkbookPart)
	if err != nil || data == nil {
		return nil
	}
	parts := make(map[string]string)
	rr := record.NewReader(bytes.NewReader(data))
	for {
		id, body, err := rr.Next()
		if err != nil {
			break
		}
		if id != brtBundleSh || len(body) < 8 {
			continue
		}
		relID, n, ok := wideString(body[8:])
		if !ok {
			continue
		}
		name, _, ok := wideString(body[8+n:])
		if !ok {
			continue
		}
		if target, ok := targets[relID]; ok {
			parts[name] = target
		}
	}
	return parts
}

// wideString reads a 32-bit character count followed by UTF-16LE text and
// returns the string with the number of bytes consumed.
func wideString(b []byte) (string, int, bool) {
	if len(b) < 4 {
		return "", 0, false
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n < 0 || n > (len(b)-4)/2 {
		return "", 0, false
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[4+2*i:])
	}
	return string(utf16.Decode(units)), 4 + 2*n, true
}

// xlsbRows turns the sparse go-xlsb row sequence into dense rows.
type xlsbRows struct {
	d    *xlsbDecoder
	next func() ([]worksheet.Cell, bool)
	stop func()
	dim  *Dimension
	errs map[cellPos]bool

	idx     int
	pending []worksheet.Cell
	havePen bool
	cur     []cell.Value
	done    bool
}

func (r *xlsbRows) Next() bool {
	if r.done {
		return false
	}
	if !r.havePen {
		cells, ok := r.next()
		for ok && len(cells) == 0 {
			cells, ok = r.next()
		}
		if !ok {
			r.done = true
			r.cur = nil
			return false
		}
		r.pending, r.havePen = cells, true
	}
	if r.pending[0].R > r.idx {
		r.cur = nil
		r.idx++
		return true
	}
	var row []cell.Value
	for _, c := range r.pending {
		if v := r.d.value(c, r.errs); !v.IsEmpty() {
			row = placeCell(row, c.C, v)
		}
	}
	r.cur = trimRow(row)
	r.pending, r.havePen = nil, false
	r.idx++
	return true
}

func (r *xlsbRows) Row() []cell.Value     { return r.cur }
func (r *xlsbRows) Err() error            { return nil }
func (r *xlsbRows) Dimension() *Dimension { return r.dim }

func (r *xlsbRows) Close() error {
	r.done = true
	r.stop()
	return nil
}
