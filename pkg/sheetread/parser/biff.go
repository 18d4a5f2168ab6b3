package parser

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// BIFF record ids.
const (
	biffFormula    = 0x0006
	biffEOF        = 0x000A
	biffDateMode   = 0x0022
	biffFilePass   = 0x002F
	biffContinue   = 0x003C
	biffCodePage   = 0x0042
	biffBoundSheet = 0x0085
	biffMulRK      = 0x00BD
	biffRString    = 0x00D6
	biffXF         = 0x00E0
	biffSST        = 0x00FC
	biffLabelSST   = 0x00FD
	biffNumber     = 0x0203
	biffLabel      = 0x0204
	biffBoolErr    = 0x0205
	biffString     = 0x0207
	biffRK         = 0x027E
	biffFormat     = 0x041E
	biffBOF        = 0x0809
)

var errShortRecord = errors.New("record data ends early")

// biffRecord is one record of a workbook stream together with the bodies of
// the CONTINUE records that follow it.
type biffRecord struct {
	id   uint16
	off  int
	data []byte
	cont [][]byte
}

// readBIFFRecords splits a workbook stream into records. Bytes after the last
// complete record header are ignored.
func readBIFFRecords(stream []byte) ([]biffRecord, error) {
	var recs []biffRecord
	for off := 0; off+4 <= len(stream); {
		id := binary.LittleEndian.Uint16(stream[off:])
		size := int(binary.LittleEndian.Uint16(stream[off+2:]))
		if off+4+size > len(stream) {
			return nil, fmt.Errorf("record 0x%04X at offset %d overruns the stream", id, off)
		}
		body := stream[off+4 : off+4+size]
		if id == biffContinue && len(recs) > 0 {
			last := &recs[len(recs)-1]
			last.cont = append(last.cont, body)
		} else {
			recs = append(recs, biffRecord{id: id, off: off, data: body})
		}
		off += 4 + size
	}
	return recs, nil
}

// biffReader reads a record body across its CONTINUE segments.
type biffReader struct {
	segs [][]byte
	seg  int
	pos  int
}

func newBIFFReader(rec biffRecord) *biffReader {
	segs := make([][]byte, 0, 1+len(rec.cont))
	segs = append(segs, rec.data)
	return &biffReader{segs: append(segs, rec.cont...)}
}

func (r *biffReader) remaining() int {
	n := len(r.segs[r.seg]) - r.pos
	for _, s := range r.segs[r.seg+1:] {
		n += len(s)
	}
	return n
}

func (r *biffReader) bytes(n int) ([]byte, error) {
	var out []byte
	for n > 0 {
		cur := r.segs[r.seg]
		if r.pos >= len(cur) {
			if r.seg+1 >= len(r.segs) {
				return nil, errShortRecord
			}
			r.seg++
			r.pos = 0
			continue
		}
		k := min(n, len(cur)-r.pos)
		out = append(out, cur[r.pos:r.pos+k]...)
		r.pos += k
		n -= k
	}
	return out, nil
}

func (r *biffReader) skip(n int) error {
	_, err := r.bytes(n)
	return err
}

func (r *biffReader) u8() (byte, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *biffReader) u16() (int, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint16(b)), nil
}

func (r *biffReader) u32() (int, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

// chars reads n characters. A string split by a CONTINUE record restarts with
// a new option byte that says whether the rest is compressed.
func (r *biffReader) chars(n int, high bool) (string, error) {
	units := make([]uint16, 0, n)
	for len(units) < n {
		cur := r.segs[r.seg]
		if r.pos >= len(cur) {
			if r.seg+1 >= len(r.segs) {
				return "", errShortRecord
			}
			r.seg++
			r.pos = 0
			flags, err := r.u8()
			if err != nil {
				return "", err
			}
			high = flags&0x01 != 0
			continue
		}
		if high {
			if r.pos+2 > len(cur) {
				return "", errShortRecord
			}
			units = append(units, binary.LittleEndian.Uint16(cur[r.pos:]))
			r.pos += 2
		} else {
			units = append(units, uint16(cur[r.pos]))
			r.pos++
		}
	}
	return string(utf16.Decode(units)), nil
}

// unicodeString reads the option byte and body of a BIFF8 string whose
// character count has already been read. Rich text runs and phonetic data
// are skipped.
func (r *biffReader) unicodeString(cch int) (string, error) {
	flags, err := r.u8()
	if err != nil {
		return "", err
	}
	var runs, ext int
	if flags&0x08 != 0 {
		if runs, err = r.u16(); err != nil {
			return "", err
		}
	}
	if flags&0x04 != 0 {
		if ext, err = r.u32(); err != nil {
			return "", err
		}
	}
	s, err := r.chars(cch, flags&0x01 != 0)
	if err != nil {
		return "", err
	}
	if err := r.skip(4 * runs); err != nil {
		return "", err
	}
	if err := r.skip(ext); err != nil {
		return "", err
	}
	return s, nil
}

// codepageEncoding maps a CODEPAGE record value to a decoder for 8-bit text.
// It returns nil for code pages without a known mapping.
func codepageEncoding(cp int) encoding.Encoding {
	switch cp {
	case 437:
		return charmap.CodePage437
	case 850:
		return charmap.CodePage850
	case 852:
		return charmap.CodePage852
	case 855:
		return charmap.CodePage855
	case 858:
		return charmap.CodePage858
	case 860:
		return charmap.CodePage860
	case 862:
		return charmap.CodePage862
	case 863:
		return charmap.CodePage863
	case 865:
		return charmap.CodePage865
	case 866:
		return charmap.CodePage866
	case 874:
		return charmap.Windows874
	case 932:
		return japanese.ShiftJIS
	case 936:
		return simplifiedchinese.GBK
	case 949:
		return korean.EUCKR
	case 950:
		return traditionalchinese.Big5
	case 1250:
		return charmap.Windows1250
	case 1251:
		return charmap.Windows1251
	case 367, 1252, 32769:
		return charmap.Windows1252
	case 1253:
		return charmap.Windows1253
	case 1254:
		return charmap.Windows1254
	case 1255:
		return charmap.Windows1255
	case 1256:
		return charmap.Windows1256
	case 1257:
		return charmap.Windows1257
	case 1258:
		return charmap.Windows1258
	case 10000, 32768:
		return charmap.Macintosh
	case 65001:
		return unicode.UTF8
	}
	return nil
}

// decode8 decodes 8-bit text. Without an encoding, or when decoding fails,
// every byte is read as Latin-1.
func decode8(b []byte, enc encoding.Encoding) string {
	if enc != nil {
		if s, err := enc.NewDecoder().Bytes(b); err == nil {
			return string(s)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
