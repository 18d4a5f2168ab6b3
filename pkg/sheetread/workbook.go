package sheetread

import (
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
	"github.com/ukaji3/sheetread-go/pkg/sheetread/parser"
)

// Format is the container format of a loaded document.
type Format = parser.Format

const (
	FormatXLSX = parser.FormatXLSX
	FormatXLS  = parser.FormatXLS
	FormatXLSB = parser.FormatXLSB
	FormatODS  = parser.FormatODS
	FormatFODS = parser.FormatFODS
)

// Visibility is a sheet's declared display state.
type Visibility = parser.Visibility

const (
	Visible    = parser.Visible
	Hidden     = parser.Hidden
	VeryHidden = parser.VeryHidden
)

// Dimension is the declared size of a sheet counted from A1.
type Dimension = parser.Dimension

// SheetInfo describes a sheet without decoding it.
type SheetInfo struct {
	Index      int
	Name       string
	Visibility Visibility
}

// Workbook is a loaded document. Sheet metadata is fixed at load time; sheet
// content is decoded on first access and cached.
type Workbook struct {
	dec    parser.Decoder
	sheets []parser.SheetMeta
	sys    cell.DateSystem
	props  map[string]string
	opts   Options
	log    *slog.Logger

	mu     sync.Mutex
	slots  []slot
	closed bool
}

// slot caches the outcome of decoding one sheet, errors included.
type slot struct {
	done  bool
	sheet *Sheet
	err   error
}

func newWorkbook(dec parser.Decoder, opts Options) *Workbook {
	sheets := dec.Sheets()
	return &Workbook{
		dec:    dec,
		sheets: sheets,
		sys:    dec.DateSystem(),
		props:  dec.Properties(),
		opts:   opts,
		log:    opts.logger().With("format", dec.Format()),
		slots:  make([]slot, len(sheets)),
	}
}

// Format returns the detected container format.
func (wb *Workbook) Format() Format {
	return wb.dec.Format()
}

// DateSystem returns the epoch convention of the document.
func (wb *Workbook) DateSystem() cell.DateSystem {
	return wb.sys
}

// Properties returns a copy of the document properties, keyed by
// "title", "creator", "created" and so on.
func (wb *Workbook) Properties() map[string]string {
	props := make(map[string]string, len(wb.props))
	maps.Copy(props, wb.props)
	return props
}

// SheetCount returns the number of sheets.
func (wb *Workbook) SheetCount() int {
	return len(wb.sheets)
}

// SheetNames returns the sheet names in declaration order.
func (wb *Workbook) SheetNames() []string {
	names := make([]string, len(wb.sheets))
	for i, meta := range wb.sheets {
		names[i] = meta.Name
	}
	return names
}

// Sheets returns every sheet's metadata in declaration order. Hidden sheets
// are included.
func (wb *Workbook) Sheets() []SheetInfo {
	infos := make([]SheetInfo, len(wb.sheets))
	for i, meta := range wb.sheets {
		infos[i] = SheetInfo{Index: i, Name: meta.Name, Visibility: meta.Visibility}
	}
	return infos
}

// PrintAreas returns the print areas declared for the named sheet as A1
// ranges. Only xlsx documents carry them.
func (wb *Workbook) PrintAreas(name string) []string {
	src, ok := wb.dec.(parser.PrintAreaSource)
	if !ok {
		return nil
	}
	return slices.Clone(src.PrintAreas(name))
}

// SheetByName returns the sheet with the given name. An exact match wins over
// a case-insensitive one.
func (wb *Workbook) SheetByName(name string) (*Sheet, error) {
	for i, meta := range wb.sheets {
		if meta.Name == name {
			return wb.SheetByIndex(i)
		}
	}
	for i, meta := range wb.sheets {
		if strings.EqualFold(meta.Name, name) {
			return wb.SheetByIndex(i)
		}
	}
	return nil, &SheetNotFoundError{Name: name}
}

// SheetByIndex returns the sheet at the 0-based index. A sheet is decoded at
// most once; later calls return the same *Sheet or the same error.
func (wb *Workbook) SheetByIndex(index int) (*Sheet, error) {
	if index < 0 || index >= len(wb.sheets) {
		return nil, &IndexOutOfRangeError{Index: index, Count: len(wb.sheets)}
	}

	wb.mu.Lock()
	defer wb.mu.Unlock()

	s := &wb.slots[index]
	if !s.done {
		s.sheet, s.err = wb.decode(index)
		s.done = true
	}
	return s.sheet, s.err
}

func (wb *Workbook) decode(index int) (*Sheet, error) {
	meta := wb.sheets[index]
	format := wb.dec.Format()
	if wb.closed {
		return nil, NewIOError("decode", meta.Name, errClosed)
	}

	reader, err := wb.dec.OpenRows(index)
	if err != nil {
		return nil, NewMalformedDocumentError(format, meta.Name, err)
	}
	sheet, err := newSheet(index, meta, format, reader, wb.log)
	if err != nil {
		return nil, err
	}
	wb.log.Debug("sheet opened", "sheet", meta.Name, "index", index, "materialized", sheet.IsMaterialized())

	if wb.opts.ShouldMaterialize() {
		if _, err := sheet.Materialize(); err != nil {
			return nil, err
		}
	}
	return sheet, nil
}

// Close releases the decoder and every open row reader. Sheets already
// materialized stay readable.
func (wb *Workbook) Close() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.closed {
		return nil
	}
	wb.closed = true
	for _, s := range wb.slots {
		if s.sheet != nil {
			s.sheet.release()
		}
	}
	return wb.dec.Close()
}
