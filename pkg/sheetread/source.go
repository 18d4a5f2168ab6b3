package sheetread

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/parser"
)

// sniffWindow is how many leading bytes format detection looks at.
const sniffWindow = 512

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	cfbMagic      = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM       = []byte{0xEF, 0xBB, 0xBF}
)

// Open loads the spreadsheet at path. The file is read once and closed
// before Open returns.
func Open(path string, opts Options) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewIOError("open", path, err)
	}
	defer f.Close()
	return load(f, path, opts)
}

// OpenReader loads a spreadsheet from r, starting at its current offset. r is
// read to the end and not retained.
func OpenReader(r io.ReadSeeker, opts Options) (*Workbook, error) {
	return load(r, "", opts)
}

func load(r io.ReadSeeker, path string, opts Options) (*Workbook, error) {
	log := opts.logger()

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, NewIOError("seek", path, err)
	}
	head := make([]byte, sniffWindow)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, NewIOError("read", path, err)
	}
	head = head[:n]
	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, NewIOError("seek", path, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewIOError("read", path, err)
	}

	format, err := sniff(head, data)
	if err != nil {
		return nil, err
	}
	log.Debug("format detected", "path", path, "format", format, "bytes", len(data))

	dec, err := newDecoder(format, data, opts)
	if err != nil {
		return nil, NewMalformedDocumentError(format, "", err)
	}
	return newWorkbook(dec, opts), nil
}

// sniff identifies the container format from the leading bytes, looking into
// zip and compound-file directories where the magic alone is ambiguous.
func sniff(head, data []byte) (Format, error) {
	switch {
	case len(head) == 0:
		return "", NewUnsupportedFormatError("empty input")
	case bytes.HasPrefix(head, zipMagic), bytes.HasPrefix(head, zipEmptyMagic):
		return sniffZip(data)
	case bytes.HasPrefix(head, cfbMagic):
		return sniffCompound(data)
	case isBIFFRecord(head):
		return "", NewUnsupportedFormatError("bare BIFF record stream without a compound file container")
	case isXML(head):
		return FormatFODS, nil
	}
	return "", NewUnsupportedFormatError(fmt.Sprintf("unrecognised leading bytes % x", head[:min(len(head), 8)]))
}

func sniffZip(data []byte) (Format, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", NewMalformedDocumentError(FormatXLSX, "", err)
	}
	var isXLSB bool
	for _, f := range zr.File {
		switch f.Name {
		case "mimetype":
			mime, err := readMimetype(f)
			if err != nil {
				return "", NewMalformedDocumentError(FormatODS, "", err)
			}
			if strings.HasPrefix(mime, parser.ODSMimeType) {
				return FormatODS, nil
			}
			if strings.HasPrefix(mime, "application/vnd.oasis.opendocument.") {
				return "", NewUnsupportedFormatError("open document of type " + mime)
			}
		case "xl/workbook.bin":
			isXLSB = true
		}
	}
	if isXLSB {
		return FormatXLSB, nil
	}
	// Any other archive is handed to excelize, which reports what is missing.
	return FormatXLSX, nil
}

func readMimetype(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, 256))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func sniffCompound(data []byte) (Format, error) {
	doc, err := mscfb.New(bytes.NewReader(data))
	if err != nil {
		return "", NewMalformedDocumentError(FormatXLS, "", err)
	}
	return sniffEntries(doc.Next)
}

// sniffEntries walks the directory of a compound file. A directory that
// cannot be walked to its end is malformed, not unsupported.
func sniffEntries(next func() (*mscfb.File, error)) (Format, error) {
	for {
		entry, err := next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", NewMalformedDocumentError(FormatXLS, "", err)
		}
		switch entry.Name {
		case "Workbook", "Book":
			return FormatXLS, nil
		case "EncryptedPackage":
			return FormatXLSX, nil
		}
	}
	return "", NewUnsupportedFormatError("compound file without a workbook stream")
}

// isBIFFRecord reports whether head starts with a BIFF2-8 BOF record.
func isBIFFRecord(head []byte) bool {
	if len(head) < 4 || head[0] != 0x09 {
		return false
	}
	switch head[1] {
	case 0x00, 0x02, 0x04, 0x08:
		return true
	}
	return false
}

func isXML(head []byte) bool {
	head = bytes.TrimPrefix(head, utf8BOM)
	head = bytes.TrimLeft(head, " \t\r\n")
	return bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<office:document"))
}

// newDecoder dispatches to the decoder for format. Decoder panics on corrupt
// input are turned into errors as well.
func newDecoder(format Format, data []byte, opts Options) (dec parser.Decoder, err error) {
	defer func() {
		if r := recover(); r != nil {
			dec, err = nil, fmt.Errorf("decoder panic: %v", r)
		}
	}()
	switch format {
	case FormatXLSX:
		return parser.NewXLSX(data, opts.Password)
	case FormatXLS:
		return parser.NewXLS(data, opts.charset())
	case FormatXLSB:
		return parser.NewXLSB(data)
	case FormatODS:
		return parser.NewODS(data)
	case FormatFODS:
		return parser.NewFlatODS(data)
	}
	return nil, fmt.Errorf("no decoder for format %q", format)
}
