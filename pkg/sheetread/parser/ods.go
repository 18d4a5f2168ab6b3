package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// ODSMimeType is the media type stored in the mimetype entry of an ods file.
const ODSMimeType = "application/vnd.oasis.opendocument.spreadsheet"

var errNoSpreadsheet = errors.New("document has no spreadsheet body")

// odfMetaNames maps office:meta children to property keys.
var odfMetaNames = map[string]string{
	"title":           "title",
	"subject":         "subject",
	"description":     "description",
	"keyword":         "keywords",
	"initial-creator": "creator",
	"creator":         "last_modified_by",
	"creation-date":   "created",
	"date":            "modified",
}

// odsDecoder reads OpenDocument spreadsheets, zipped or flat. Sheet content
// is streamed from the XML on every OpenRows call.
type odsDecoder struct {
	format  Format
	content []byte
	sheets  []SheetMeta
	sys     cell.DateSystem
	props   map[string]string
}

// NewODS opens a zipped OpenDocument spreadsheet.
func NewODS(data []byte) (Decoder, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	content, err := readZipFile(r, "content.xml")
	if err != nil {
		return nil, fmt.Errorf("content.xml: %w", err)
	}
	if content == nil {
		return nil, errors.New("missing content.xml")
	}
	d := &odsDecoder{format: FormatODS, content: content}
	scan, err := scanODF(content)
	if err != nil {
		return nil, fmt.Errorf("content.xml: %w", err)
	}
	d.apply(scan)

	meta, err := readZipFile(r, "meta.xml")
	if err != nil {
		return nil, fmt.Errorf("meta.xml: %w", err)
	}
	if meta != nil {
		metaScan, err := scanODF(meta)
		if err != nil && !errors.Is(err, errNoSpreadsheet) {
			return nil, fmt.Errorf("meta.xml: %w", err)
		}
		d.props = metaScan.props
	}
	return d, nil
}

// NewFlatODS opens a single-file XML OpenDocument spreadsheet.
func NewFlatODS(data []byte) (Decoder, error) {
	d := &odsDecoder{format: FormatFODS, content: data}
	scan, err := scanODF(data)
	if err != nil {
		return nil, err
	}
	d.apply(scan)
	return d, nil
}

func (d *odsDecoder) apply(scan odfScan) {
	for _, t := range scan.tables {
		meta := SheetMeta{Name: t.name}
		if scan.hiddenStyles[t.style] {
			meta.Visibility = Hidden
		}
		d.sheets = append(d.sheets, meta)
	}
	d.sys = cell.Date1900
	if scan.nullDate.Equal(time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)) {
		d.sys = cell.Date1904
	}
	d.props = scan.props
}

func (d *odsDecoder) Format() Format                { return d.format }
func (d *odsDecoder) Sheets() []SheetMeta           { return d.sheets }
func (d *odsDecoder) DateSystem() cell.DateSystem   { return d.sys }
func (d *odsDecoder) Properties() map[string]string { return d.props }
func (d *odsDecoder) Close() error                  { return nil }

func (d *odsDecoder) OpenRows(index int) (RowReader, error) {
	if index < 0 || index >= len(d.sheets) {
		return nil, fmt.Errorf("sheet index %d out of range", index)
	}
	decoder := newXMLDecoder(bytes.NewReader(d.content))
	if err := seekTable(decoder, index); err != nil {
		return nil, err
	}
	return &odsRows{dec: decoder, sys: d.sys}, nil
}

type odfTable struct {
	name  string
	style string
}

type odfScan struct {
	tables       []odfTable
	hiddenStyles map[string]bool
	nullDate     time.Time
	props        map[string]string
}

// scanODF walks a whole document once, collecting table names, table styles
// with display="false", the null date and office:meta properties. Table
// bodies are skipped.
func scanODF(data []byte) (odfScan, error) {
	scan := odfScan{hiddenStyles: make(map[string]bool), props: make(map[string]string)}
	decoder := newXMLDecoder(bytes.NewReader(data))

	var (
		rootSeen    bool
		spreadsheet bool
		inMeta      bool
		tableStyle  string
	)
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return scan, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			if !rootSeen {
				rootSeen = true
				switch t.Name.Local {
				case "document", "document-content", "document-meta":
				default:
					return scan, fmt.Errorf("unexpected root element %q", t.Name.Local)
				}
				continue
			}
			switch t.Name.Local {
			case "meta":
				inMeta = true
			case "spreadsheet":
				spreadsheet = true
			case "style":
				tableStyle = ""
				if attrValue(t, "family") == "table" {
					tableStyle = attrValue(t, "name")
				}
			case "table-properties":
				if tableStyle != "" && attrValue(t, "display") == "false" {
					scan.hiddenStyles[tableStyle] = true
				}
			case "null-date":
				if tm, _, ok := parseISODate(attrValue(t, "date-value")); ok {
					scan.nullDate = tm
				}
			case "table":
				if spreadsheet {
					scan.tables = append(scan.tables, odfTable{name: attrValue(t, "name"), style: attrValue(t, "style-name")})
					if err := decoder.Skip(); err != nil {
						return scan, err
					}
				}
			default:
				if key, ok := odfMetaNames[t.Name.Local]; ok && inMeta {
					text, err := readElementText(decoder)
					if err != nil {
						return scan, err
					}
					if text = strings.TrimSpace(text); text != "" {
						scan.props[key] = text
					}
				}
			}
		case xml.EndElement:
			if t.Name.Local == "meta" {
				inMeta = false
			}
		}
	}
	if !rootSeen {
		return scan, errors.New("empty document")
	}
	if !spreadsheet {
		return scan, errNoSpreadsheet
	}
	return scan, nil
}

// seekTable advances decoder to just inside the index-th table of the
// spreadsheet body.
func seekTable(decoder *xml.Decoder, index int) error {
	var spreadsheet bool
	n := 0
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return fmt.Errorf("table %d not found", index)
		}
		if err != nil {
			return err
		}
		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case se.Name.Local == "spreadsheet":
			spreadsheet = true
		case se.Name.Local == "table" && spreadsheet:
			if n == index {
				return nil
			}
			n++
			if err := decoder.Skip(); err != nil {
				return err
			}
		}
	}
}

func attrValue(se xml.StartElement, local string) string {
	for _, attr := range se.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}

func repeatAttr(se xml.StartElement, local string) (int, error) {
	s := attrValue(se, local)
	if s == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q", local, s)
	}
	return n, nil
}

// odsRows streams the rows of one table. Runs of empty rows are only emitted
// when data follows them, so trailing filler rows are never produced.
type odsRows struct {
	dec *xml.Decoder
	sys cell.DateSystem

	pendingEmpty  int
	pendingRow    []cell.Value
	pendingRepeat int
	idx           int
	cur           []cell.Value
	done          bool
	err           error
}

func (r *odsRows) Next() bool {
	for {
		if r.pendingEmpty > 0 {
			r.pendingEmpty--
			r.cur = nil
			r.idx++
			return true
		}
		if r.pendingRepeat > 0 {
			r.pendingRepeat--
			r.cur = r.pendingRow
			r.idx++
			return true
		}
		if r.done || r.err != nil {
			return false
		}
		r.advance()
	}
}

// advance reads tokens until the next table row or the end of the table.
func (r *odsRows) advance() {
	for {
		token, err := r.dec.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			r.err = err
			return
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "table-row":
				row, repeat, err := r.readRow(t)
				if err != nil {
					r.err = fmt.Errorf("row %d: %w", r.idx+r.pendingEmpty+1, err)
					return
				}
				if len(row) == 0 {
					r.pendingEmpty += repeat
					continue
				}
				r.pendingRow, r.pendingRepeat = row, repeat
				return
			case "table-row-group", "table-header-rows", "table-rows":
				// Rows nested in groups are read like top-level rows.
			default:
				if err := r.dec.Skip(); err != nil {
					r.err = err
					return
				}
			}
		case xml.EndElement:
			if t.Name.Local == "table" {
				// Trailing empty rows are padding, not data.
				r.pendingEmpty = 0
				r.done = true
				return
			}
		}
	}
}

// maxODSColumns is the widest row a table may fill with repeated cells.
const maxODSColumns = 16384

func (r *odsRows) readRow(se xml.StartElement) ([]cell.Value, int, error) {
	repeat, err := repeatAttr(se, "number-rows-repeated")
	if err != nil {
		return nil, 0, err
	}
	var row []cell.Value
	col := 0
	for {
		token, err := r.dec.Token()
		if err != nil {
			return nil, 0, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "table-cell", "covered-table-cell":
				v, n, err := r.readCell(t)
				if err != nil {
					return nil, 0, fmt.Errorf("column %d: %w", col+1, err)
				}
				if !v.IsEmpty() {
					if col+n > maxODSColumns {
						return nil, 0, fmt.Errorf("column %d: %d repeated cells run past column %d", col+1, n, maxODSColumns)
					}
					for k := 0; k < n; k++ {
						row = placeCell(row, col+k, v)
					}
				}
				col += n
			default:
				if err := r.dec.Skip(); err != nil {
					return nil, 0, err
				}
			}
		case xml.EndElement:
			return trimRow(row), repeat, nil
		}
	}
}

// readCell consumes one table-cell element and types its value.
func (r *odsRows) readCell(se xml.StartElement) (cell.Value, int, error) {
	repeat, err := repeatAttr(se, "number-columns-repeated")
	if err != nil {
		return cell.Value{}, 0, err
	}
	var valueType, calcType, formula string
	attrs := make(map[string]string, len(se.Attr))
	for _, attr := range se.Attr {
		switch {
		case attr.Name.Local == "value-type" && strings.Contains(attr.Name.Space, "calcext"):
			calcType = attr.Value
		case attr.Name.Local == "value-type":
			valueType = attr.Value
		case attr.Name.Local == "formula":
			formula = attr.Value
		default:
			attrs[attr.Name.Local] = attr.Value
		}
	}
	text, err := r.readCellText()
	if err != nil {
		return cell.Value{}, 0, err
	}

	if calcType == "error" || (valueType == "" && formula != "") {
		if code, ok := cell.ParseErrorCode(text); ok {
			return cell.Error(code), repeat, nil
		}
	}
	switch valueType {
	case "float", "percentage", "currency":
		f, err := strconv.ParseFloat(attrs["value"], 64)
		if err != nil {
			return cell.Value{}, 0, fmt.Errorf("invalid %s value %q", valueType, attrs["value"])
		}
		return cell.Float(f), repeat, nil
	case "boolean":
		return cell.Bool(attrs["boolean-value"] == "true"), repeat, nil
	case "date":
		t, dateOnly, ok := parseISODate(attrs["date-value"])
		if !ok {
			return cell.Value{}, 0, fmt.Errorf("invalid date-value %q", attrs["date-value"])
		}
		return cell.DateTimeOf(t, r.sys, dateOnly), repeat, nil
	case "time":
		d, err := parseISODuration(attrs["time-value"])
		if err != nil {
			return cell.Value{}, 0, err
		}
		return cell.DurationOf(d, r.sys), repeat, nil
	case "string":
		if s, ok := attrs["string-value"]; ok {
			return cell.String(s), repeat, nil
		}
		return cell.String(text), repeat, nil
	}
	if text != "" {
		return cell.String(text), repeat, nil
	}
	return cell.Empty(), repeat, nil
}

// readCellText joins the paragraphs of a cell, expanding text:s, text:tab and
// text:line-break. Annotations are skipped.
func (r *odsRows) readCellText() (string, error) {
	var sb strings.Builder
	paragraphs := 0
	depth := 1
	// paragraph is the depth of the open text:p, or 0 outside one.
	paragraph := 0
	for depth > 0 {
		token, err := r.dec.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "annotation":
				if err := r.dec.Skip(); err != nil {
					return "", err
				}
				continue
			case "p", "h":
				if paragraphs > 0 {
					sb.WriteByte('\n')
				}
				paragraphs++
				paragraph = depth + 1
			case "s":
				n, err := repeatAttr(t, "c")
				if err != nil {
					n = 1
				}
				sb.WriteString(strings.Repeat(" ", n))
			case "tab":
				sb.WriteByte('\t')
			case "line-break":
				sb.WriteByte('\n')
			}
			depth++
		case xml.EndElement:
			if depth == paragraph {
				paragraph = 0
			}
			depth--
		case xml.CharData:
			if paragraph > 0 {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func (r *odsRows) Row() []cell.Value { return r.cur }
func (r *odsRows) Err() error        { return r.err }
func (r *odsRows) Close() error {
	r.done = true
	return nil
}

// parseISODuration parses the ODF time-value form PnDTnHnMnS.
func parseISODuration(s string) (time.Duration, error) {
	orig := s
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid time-value %q", orig)
	}
	s = s[1:]
	var total float64
	inTime := false
	for s != "" {
		if s[0] == 'T' {
			inTime = true
			s = s[1:]
			continue
		}
		i := strings.IndexAny(s, "YMWDHS")
		if i <= 0 {
			return 0, fmt.Errorf("invalid time-value %q", orig)
		}
		n, err := strconv.ParseFloat(s[:i], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time-value %q", orig)
		}
		switch unit := s[i]; {
		case unit == 'D' && !inTime:
			total += n * 24 * 3600
		case unit == 'W' && !inTime:
			total += n * 7 * 24 * 3600
		case unit == 'H' && inTime:
			total += n * 3600
		case unit == 'M' && inTime:
			total += n * 60
		case unit == 'S' && inTime:
			total += n
		default:
			return 0, fmt.Errorf("unsupported time-value %q", orig)
		}
		s = s[i+1:]
	}
	d := time.Duration(total * float64(time.Second)).Round(time.Millisecond)
	if neg {
		d = -d
	}
	return d, nil
}
