package parser

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// ErrEncrypted is returned for password protected legacy workbooks.
var ErrEncrypted = errors.New("workbook is encrypted")

// summaryPropertyNames maps OLE SummaryInformation names to property keys.
var summaryPropertyNames = map[string]string{
	"title":        "title",
	"subject":      "subject",
	"author":       "creator",
	"keywords":     "keywords",
	"comments":     "description",
	"lastauthor":   "last_modified_by",
	"category":     "category",
	"createtime":   "created",
	"lastsavetime": "modified",
}

// biffErrorCodes maps BOOLERR and FORMULA error bytes to error codes.
var biffErrorCodes = map[byte]cell.ErrorCode{
	0x00: cell.ErrorNull,
	0x07: cell.ErrorDiv0,
	0x0F: cell.ErrorValue,
	0x17: cell.ErrorRef,
	0x1D: cell.ErrorName,
	0x24: cell.ErrorNum,
	0x2A: cell.ErrorNA,
	0x2B: cell.ErrorGettingData,
}

// xlsDecoder reads BIFF5/BIFF8 workbooks straight from the record stream of
// the compound file.
type xlsDecoder struct {
	recs    []biffRecord
	globals *biffGlobals
	sheets  []SheetMeta
	sys     cell.DateSystem
	props   map[string]string
	enc     encoding.Encoding
	classes []NumberClass
}

// boundSheet is a BOUNDSHEET record.
type boundSheet struct {
	meta   SheetMeta
	offset int
	kind   byte
	name8  []byte
}

// biffGlobals is what the globals substream declares.
type biffGlobals struct {
	biff8     bool
	sheets    []boundSheet
	date1904  bool
	codepage  int
	encrypted bool
	formats   map[int]string
	formats8  map[int][]byte
	xfFormats []int
	sst       []string
}

// NewXLS opens a legacy binary workbook. label names the encoding of 8-bit
// strings when the workbook declares no code page.
func NewXLS(data []byte, label string) (Decoder, error) {
	stream, props, err := readCompound(data)
	if err != nil {
		return nil, err
	}
	recs, err := readBIFFRecords(stream)
	if err != nil {
		return nil, err
	}
	g, err := parseBIFFGlobals(recs)
	if err != nil {
		return nil, err
	}
	if g.encrypted {
		return nil, ErrEncrypted
	}
	if len(g.sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	d := &xlsDecoder{recs: recs, globals: g, sys: cell.Date1900, props: props}
	if g.date1904 {
		d.sys = cell.Date1904
	}
	if g.codepage != 0 {
		props["codepage"] = strconv.Itoa(g.codepage)
		d.enc = codepageEncoding(g.codepage)
	}
	if d.enc == nil && label != "" {
		d.enc, _ = charset.Lookup(label)
	}

	for _, bs := range g.sheets {
		meta := bs.meta
		if !g.biff8 {
			meta.Name = decode8(bs.name8, d.enc)
		}
		d.sheets = append(d.sheets, meta)
	}
	for id, raw := range g.formats8 {
		g.formats[id] = decode8(raw, d.enc)
	}
	d.classes = make([]NumberClass, len(g.xfFormats))
	for i, id := range g.xfFormats {
		d.classes[i] = ClassifyNumberFormat(id, g.formats[id])
	}
	return d, nil
}

// readCompound returns the workbook stream and the summary properties of a
// compound file.
func readCompound(data []byte) ([]byte, map[string]string, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	props := make(map[string]string)
	oleProps := msoleps.New()
	var stream []byte
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch {
		case msoleps.IsMSOLEPS(entry.Initial):
			if oerr := oleProps.Reset(doc); oerr != nil {
				continue
			}
			for _, prop := range oleProps.Property {
				key, ok := summaryPropertyNames[strings.ToLower(prop.Name)]
				if !ok {
					continue
				}
				if value := strings.TrimSpace(prop.String()); value != "" {
					props[key] = value
				}
			}
		case entry.Name == "Workbook" || (entry.Name == "Book" && stream == nil):
			buf, rerr := io.ReadAll(entry)
			if rerr != nil {
				return nil, nil, fmt.Errorf("read %s stream: %w", entry.Name, rerr)
			}
			stream = buf
		}
	}
	if stream == nil {
		return nil, nil, errors.New("no Workbook stream")
	}
	return stream, props, nil
}

// parseBIFFGlobals reads the globals substream up to its EOF.
func parseBIFFGlobals(recs []biffRecord) (*biffGlobals, error) {
	if len(recs) == 0 || recs[0].id != biffBOF || len(recs[0].data) < 2 {
		return nil, errors.New("workbook stream does not start with a BOF record")
	}
	g := &biffGlobals{formats: make(map[int]string), formats8: make(map[int][]byte)}
	switch binary.LittleEndian.Uint16(recs[0].data) {
	case 0x0600:
		g.biff8 = true
	case 0x0500:
	default:
		return nil, fmt.Errorf("unsupported BIFF version 0x%04X", binary.LittleEndian.Uint16(recs[0].data))
	}

	for _, rec := range recs[1:] {
		body := rec.data
		switch rec.id {
		case biffDateMode:
			g.date1904 = len(body) >= 2 && binary.LittleEndian.Uint16(body) == 1
		case biffCodePage:
			if len(body) >= 2 {
				g.codepage = int(binary.LittleEndian.Uint16(body))
			}
		case biffFilePass:
			// Everything after FILEPASS is encrypted.
			g.encrypted = true
			return g, nil
		case biffBoundSheet:
			bs, err := parseBoundSheet(body, g.biff8)
			if err != nil {
				return nil, err
			}
			g.sheets = append(g.sheets, bs)
		case biffFormat:
			if err := g.readFormat(rec); err != nil {
				return nil, fmt.Errorf("FORMAT record: %w", err)
			}
		case biffXF:
			if len(body) < 4 {
				return nil, errors.New("short XF record")
			}
			g.xfFormats = append(g.xfFormats, int(binary.LittleEndian.Uint16(body[2:])))
		case biffSST:
			if err := g.readSST(rec); err != nil {
				return nil, fmt.Errorf("SST record: %w", err)
			}
		case biffEOF:
			return g, nil
		}
	}
	return nil, errors.New("globals substream has no EOF record")
}

func (g *biffGlobals) readFormat(rec biffRecord) error {
	r := newBIFFReader(rec)
	id, err := r.u16()
	if err != nil {
		return err
	}
	if !g.biff8 {
		n, err := r.u8()
		if err != nil {
			return err
		}
		raw, err := r.bytes(int(n))
		if err != nil {
			return err
		}
		g.formats8[id] = raw
		return nil
	}
	cch, err := r.u16()
	if err != nil {
		return err
	}
	g.formats[id], err = r.unicodeString(cch)
	return err
}

// readSST reads the shared string table, whose strings may run on into
// CONTINUE records.
func (g *biffGlobals) readSST(rec biffRecord) error {
	r := newBIFFReader(rec)
	if err := r.skip(4); err != nil {
		return err
	}
	unique, err := r.u32()
	if err != nil {
		return err
	}
	for i := 0; i < unique && r.remaining() > 0; i++ {
		cch, err := r.u16()
		if err != nil {
			return err
		}
		s, err := r.unicodeString(cch)
		if err != nil {
			return err
		}
		g.sst = append(g.sst, s)
	}
	return nil
}

// parseBoundSheet decodes a BOUNDSHEET record: stream offset, hsState, sheet
// type, then the sheet name. BIFF5 names are kept raw until the code page is
// known.
func parseBoundSheet(body []byte, biff8 bool) (boundSheet, error) {
	if len(body) < 7 {
		return boundSheet{}, errors.New("short BOUNDSHEET record")
	}
	bs := boundSheet{offset: int(binary.LittleEndian.Uint32(body)), kind: body[5]}
	switch body[4] & 0x03 {
	case 1:
		bs.meta.Visibility = Hidden
	case 2:
		bs.meta.Visibility = VeryHidden
	}
	n := int(body[6])
	name := body[7:]
	if !biff8 {
		if len(name) < n {
			return bs, errors.New("short BOUNDSHEET name")
		}
		bs.name8 = name[:n]
		return bs, nil
	}
	if len(name) < 1 {
		return bs, errors.New("short BOUNDSHEET name")
	}
	highByte := name[0]&0x01 != 0
	name = name[1:]
	if !highByte {
		if len(name) < n {
			return bs, errors.New("short BOUNDSHEET name")
		}
		bs.meta.Name = decode8(name[:n], nil)
		return bs, nil
	}
	if len(name) < 2*n {
		return bs, errors.New("short BOUNDSHEET name")
	}
	units := make([]uint16, n)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(name[2*i:])
	}
	bs.meta.Name = string(utf16.Decode(units))
	return bs, nil
}

func (d *xlsDecoder) Format() Format                { return FormatXLS }
func (d *xlsDecoder) Sheets() []SheetMeta           { return d.sheets }
func (d *xlsDecoder) DateSystem() cell.DateSystem   { return d.sys }
func (d *xlsDecoder) Properties() map[string]string { return d.props }
func (d *xlsDecoder) Close() error                  { return nil }

// OpenRows decodes the cell records of one worksheet substream.
func (d *xlsDecoder) OpenRows(index int) (RowReader, error) {
	if index < 0 || index >= len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d out of range", index)
	}
	bs := d.globals.sheets[index]
	if bs.kind != 0 {
		// Chart and macro sheets have no cell table.
		return newSliceReader(nil, &Dimension{}), nil
	}
	start := d.substream(bs.offset)
	if start < 0 {
		return nil, fmt.Errorf("sheet %q: no BOF record at offset %d", bs.meta.Name, bs.offset)
	}
	rows, err := d.readCells(start)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", bs.meta.Name, err)
	}
	width := 0
	for i := range rows {
		rows[i] = trimRow(rows[i])
		width = max(width, len(rows[i]))
	}
	for len(rows) > 0 && len(rows[len(rows)-1]) == 0 {
		rows = rows[:len(rows)-1]
	}
	return newSliceReader(rows, &Dimension{Rows: len(rows), Cols: width}), nil
}

// substream returns the index of the BOF record at stream offset off, or -1.
func (d *xlsDecoder) substream(off int) int {
	for i, rec := range d.recs {
		if rec.off == off {
			if rec.id != biffBOF {
				return -1
			}
			return i
		}
	}
	return -1
}

// formulaString marks a FORMULA cell whose text result follows in a STRING
// record.
type formulaString struct {
	row, col int
	ok       bool
}

// readCells walks a worksheet substream from its BOF to the matching EOF.
// Records of embedded chart substreams are skipped.
func (d *xlsDecoder) readCells(start int) ([][]cell.Value, error) {
	var rows [][]cell.Value
	set := func(row, col int, v cell.Value) {
		for len(rows) <= row {
			rows = append(rows, nil)
		}
		rows[row] = placeCell(rows[row], col, v)
	}
	var pending formulaString
	depth := 0
	for _, rec := range d.recs[start:] {
		body := rec.data
		switch rec.id {
		case biffBOF:
			depth++
			continue
		case biffEOF:
			depth--
			if depth == 0 {
				return rows, nil
			}
			continue
		}
		if depth > 1 {
			continue
		}

		switch rec.id {
		case biffNumber:
			if len(body) < 14 {
				return nil, errors.New("short NUMBER record")
			}
			row, col, xf := cellHeader(body)
			f := math.Float64frombits(binary.LittleEndian.Uint64(body[6:]))
			set(row, col, d.number(f, xf, false))
		case biffRK:
			if len(body) < 10 {
				return nil, errors.New("short RK record")
			}
			row, col, xf := cellHeader(body)
			f, isInt := decodeRK(binary.LittleEndian.Uint32(body[6:]))
			set(row, col, d.number(f, xf, isInt))
		case biffMulRK:
			if len(body) < 6 {
				return nil, errors.New("short MULRK record")
			}
			row := int(binary.LittleEndian.Uint16(body))
			first := int(binary.LittleEndian.Uint16(body[2:]))
			for i, p := 0, 4; p+6 <= len(body)-2; i, p = i+1, p+6 {
				xf := int(binary.LittleEndian.Uint16(body[p:]))
				f, isInt := decodeRK(binary.LittleEndian.Uint32(body[p+2:]))
				set(row, first+i, d.number(f, xf, isInt))
			}
		case biffLabelSST:
			if len(body) < 10 {
				return nil, errors.New("short LABELSST record")
			}
			row, col, _ := cellHeader(body)
			idx := int(binary.LittleEndian.Uint32(body[6:]))
			if idx >= len(d.globals.sst) {
				return nil, fmt.Errorf("shared string %d out of range", idx)
			}
			set(row, col, cell.String(d.globals.sst[idx]))
		case biffLabel, biffRString:
			if len(body) < 8 {
				return nil, errors.New("short LABEL record")
			}
			row, col, _ := cellHeader(body)
			r := newBIFFReader(rec)
			_ = r.skip(6)
			s, err := d.readString(r)
			if err != nil {
				return nil, fmt.Errorf("LABEL record: %w", err)
			}
			set(row, col, cell.String(s))
		case biffBoolErr:
			if len(body) < 8 {
				return nil, errors.New("short BOOLERR record")
			}
			row, col, _ := cellHeader(body)
			set(row, col, boolOrError(body[6], body[7] != 0))
		case biffFormula:
			if len(body) < 14 {
				return nil, errors.New("short FORMULA record")
			}
			row, col, xf := cellHeader(body)
			res := body[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				f := math.Float64frombits(binary.LittleEndian.Uint64(res))
				set(row, col, d.number(f, xf, false))
				continue
			}
			switch res[0] {
			case 0:
				pending = formulaString{row: row, col: col, ok: true}
			case 1:
				set(row, col, cell.Bool(res[2] != 0))
			case 2:
				set(row, col, boolOrError(res[2], true))
			case 3:
				set(row, col, cell.String(""))
			}
		case biffString:
			if !pending.ok {
				continue
			}
			s, err := d.readString(newBIFFReader(rec))
			if err != nil {
				return nil, fmt.Errorf("STRING record: %w", err)
			}
			set(pending.row, pending.col, cell.String(s))
			pending = formulaString{}
		}
	}
	return nil, errors.New("worksheet substream has no EOF record")
}

// readString reads a string with a 16-bit character count.
func (d *xlsDecoder) readString(r *biffReader) (string, error) {
	cch, err := r.u16()
	if err != nil {
		return "", err
	}
	if d.globals.biff8 {
		return r.unicodeString(cch)
	}
	raw, err := r.bytes(cch)
	if err != nil {
		return "", err
	}
	return decode8(raw, d.enc), nil
}

// number types a numeric cell by the number format of its XF record.
func (d *xlsDecoder) number(f float64, xf int, isInt bool) cell.Value {
	class := ClassNumber
	if xf < len(d.classes) {
		class = d.classes[xf]
	}
	if class == ClassNumber && isInt {
		return cell.Int(int64(f))
	}
	return numericValue(f, class, d.sys)
}

func cellHeader(body []byte) (row, col, xf int) {
	return int(binary.LittleEndian.Uint16(body)),
		int(binary.LittleEndian.Uint16(body[2:])),
		int(binary.LittleEndian.Uint16(body[4:]))
}

// decodeRK decodes an RK number. isInt reports an integer that was stored
// without the divide-by-100 flag.
func decodeRK(rk uint32) (f float64, isInt bool) {
	if rk&0x02 != 0 {
		n := int32(rk) >> 2
		if rk&0x01 != 0 {
			return float64(n) / 100, false
		}
		return float64(n), true
	}
	f = math.Float64frombits(uint64(rk&0xFFFFFFFC) << 32)
	if rk&0x01 != 0 {
		f /= 100
	}
	return f, false
}

func boolOrError(b byte, isErr bool) cell.Value {
	if !isErr {
		return cell.Bool(b != 0)
	}
	if code, ok := biffErrorCodes[b]; ok {
		return cell.Error(code)
	}
	return cell.Error(cell.ErrorNA)
}
