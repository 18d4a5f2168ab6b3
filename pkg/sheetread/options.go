// Package sheetread loads xlsx, xls, xlsb and ods spreadsheets read-only and
// exposes their sheets as grids of typed cell values.
package sheetread

import (
	"log/slog"
	"strings"
)

// Mode represents how sheets are decoded.
type Mode string

const (
	// ModeLazy streams rows on demand where the format allows it.
	ModeLazy Mode = "lazy"
	// ModeEager materializes every sheet when it is first opened.
	ModeEager Mode = "eager"
)

// DefaultCharset is the encoding assumed for 8-bit strings in xls files.
const DefaultCharset = "utf-8"

// Options configures loading behavior.
type Options struct {
	// Mode specifies the decode mode (lazy, eager).
	Mode Mode
	// Password decrypts encrypted xlsx packages.
	Password string
	// Charset names the encoding of 8-bit strings in xls files that declare
	// no code page. If empty, defaults to DefaultCharset.
	Charset string
	// Logger receives debug events. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Sheets restricts Extract to the named sheets (case-insensitive).
	// If empty, every sheet is extracted.
	Sheets []string
	// SkipHidden leaves hidden and very hidden sheets out of Extract.
	SkipHidden bool
}

// DefaultOptions returns default loading options.
func DefaultOptions() Options {
	return Options{
		Mode:    ModeLazy,
		Charset: DefaultCharset,
	}
}

// ShouldMaterialize returns whether sheets are materialized when opened.
func (o Options) ShouldMaterialize() bool {
	return o.Mode == ModeEager
}

// ShouldExtract returns whether Extract includes the sheet.
func (o Options) ShouldExtract(info SheetInfo) bool {
	if o.SkipHidden && info.Visibility != Visible {
		return false
	}
	if len(o.Sheets) == 0 {
		return true
	}
	for _, name := range o.Sheets {
		if strings.EqualFold(name, info.Name) {
			return true
		}
	}
	return false
}

func (o Options) charset() string {
	if o.Charset == "" {
		return DefaultCharset
	}
	return o.Charset
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
