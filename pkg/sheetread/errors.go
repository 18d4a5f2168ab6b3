package sheetread

import (
	"errors"
	"fmt"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// ErrUnsupportedFormat indicates the input is not a recognised spreadsheet container.
var ErrUnsupportedFormat = errors.New("unsupported format")

// ErrIO indicates the input could not be opened or read.
var ErrIO = errors.New("i/o error")

// ErrMalformedDocument indicates a recognised container whose content is corrupt.
var ErrMalformedDocument = errors.New("malformed document")

// ErrSheetNotFound indicates no sheet has the requested name.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrIndexOutOfRange indicates a sheet index outside the sheet list.
var ErrIndexOutOfRange = errors.New("sheet index out of range")

// ErrRowsConsumed indicates a request for rows a streaming sheet has already
// passed.
var ErrRowsConsumed = errors.New("rows already consumed")

// Cell coercion errors, re-exported so callers need a single import.
var (
	ErrTypeMismatch = cell.ErrTypeMismatch
	ErrEmptyCell    = cell.ErrEmptyCell
	ErrNotReady     = cell.ErrNotReady
)

// UnsupportedFormatError reports input that sniffing could not place.
type UnsupportedFormatError struct {
	Detail string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Detail == "" {
		return ErrUnsupportedFormat.Error()
	}
	return fmt.Sprintf("unsupported format: %s", e.Detail)
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

// NewUnsupportedFormatError creates a new UnsupportedFormatError.
func NewUnsupportedFormatError(detail string) *UnsupportedFormatError {
	return &UnsupportedFormatError{Detail: detail}
}

// IOError represents a failure to open or read the input.
type IOError struct {
	Op   string // "open", "read", "seek"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// NewIOError creates a new IOError.
func NewIOError(op, path string, err error) *IOError {
	return &IOError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// MalformedDocumentError represents corrupt content in a recognised container.
type MalformedDocumentError struct {
	Format Format
	// Sheet is empty for failures outside a single sheet.
	Sheet string
	Err   error
}

func (e *MalformedDocumentError) Error() string {
	if e.Sheet == "" {
		return fmt.Sprintf("malformed %s document: %v", e.Format, e.Err)
	}
	return fmt.Sprintf("malformed %s document in sheet %q: %v", e.Format, e.Sheet, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Err
}

func (e *MalformedDocumentError) Is(target error) bool {
	return target == ErrMalformedDocument
}

// NewMalformedDocumentError creates a new MalformedDocumentError.
func NewMalformedDocumentError(format Format, sheet string, err error) *MalformedDocumentError {
	return &MalformedDocumentError{
		Format: format,
		Sheet:  sheet,
		Err:    err,
	}
}

// SheetNotFoundError reports a lookup by an unknown name.
type SheetNotFoundError struct {
	Name string
}

func (e *SheetNotFoundError) Error() string {
	return fmt.Sprintf("sheet %q not found", e.Name)
}

func (e *SheetNotFoundError) Is(target error) bool {
	return target == ErrSheetNotFound
}

// IndexOutOfRangeError reports a lookup by an index outside [0, Count).
type IndexOutOfRangeError struct {
	Index int
	Count int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("sheet index %d out of range [0, %d)", e.Index, e.Count)
}

func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// ErrorKind is the closed set of failure categories.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnsupportedFormat
	KindIO
	KindMalformedDocument
	KindSheetNotFound
	KindIndexOutOfRange
	KindTypeMismatch
	KindEmptyCell
	KindNotReady
	KindRowsConsumed
)

var errorKindNames = [...]string{
	KindNone:              "none",
	KindUnsupportedFormat: "unsupported_format",
	KindIO:                "io",
	KindMalformedDocument: "malformed_document",
	KindSheetNotFound:     "sheet_not_found",
	KindIndexOutOfRange:   "index_out_of_range",
	KindTypeMismatch:      "type_mismatch",
	KindEmptyCell:         "empty_cell",
	KindNotReady:          "not_ready",
	KindRowsConsumed:      "rows_consumed",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(errorKindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return errorKindNames[k]
}

// KindOf classifies err. nil is KindNone; errors outside the taxonomy are
// reported as KindIO.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnsupportedFormat):
		return KindUnsupportedFormat
	case errors.Is(err, ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(err, ErrSheetNotFound):
		return KindSheetNotFound
	case errors.Is(err, ErrIndexOutOfRange):
		return KindIndexOutOfRange
	case errors.Is(err, ErrTypeMismatch):
		return KindTypeMismatch
	case errors.Is(err, ErrEmptyCell):
		return KindEmptyCell
	case errors.Is(err, ErrNotReady):
		return KindNotReady
	case errors.Is(err, ErrRowsConsumed):
		return KindRowsConsumed
	}
	return KindIO
}
