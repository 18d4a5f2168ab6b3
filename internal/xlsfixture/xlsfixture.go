// Package xlsfixture builds small BIFF8 workbooks in memory for tests.
package xlsfixture

import (
	"encoding/binary"
	"math"
	"unicode/utf16"
)

// Record ids used by the builders.
const (
	BOF        = 0x0809
	EOF        = 0x000A
	Continue   = 0x003C
	CodePage   = 0x0042
	DateMode   = 0x0022
	BoundSheet = 0x0085
	Format     = 0x041E
	XF         = 0x00E0
	SST        = 0x00FC
	LabelSST   = 0x00FD
	Label      = 0x0204
	Number     = 0x0203
	RK         = 0x027E
	MulRK      = 0x00BD
	BoolErr    = 0x0205
	Formula    = 0x0006
	String     = 0x0207
)

// Sheet is one worksheet substream.
type Sheet struct {
	Name string
	// State is the BOUNDSHEET hsState: 0 visible, 1 hidden, 2 very hidden.
	State   byte
	Records [][]byte
}

// Record frames one record.
func Record(id uint16, parts ...[]byte) []byte {
	var body []byte
	for _, p := range parts {
		body = append(body, p...)
	}
	out := binary.LittleEndian.AppendUint16(nil, id)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(body)))
	return append(out, body...)
}

func U16(v int) []byte { return binary.LittleEndian.AppendUint16(nil, uint16(v)) }
func U32(v int) []byte { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }

func F64(f float64) []byte {
	return binary.LittleEndian.AppendUint64(nil, math.Float64bits(f))
}

// Cell is the row, column and XF index that start every cell record.
func Cell(row, col, xf int) []byte {
	return append(append(U16(row), U16(col)...), U16(xf)...)
}

// Chars encodes the option byte and characters of a BIFF8 string, compressed
// when every character fits in one byte.
func Chars(s string) []byte {
	units := utf16.Encode([]rune(s))
	wide := false
	for _, u := range units {
		if u > 0xFF {
			wide = true
		}
	}
	if !wide {
		out := []byte{0x00}
		for _, u := range units {
			out = append(out, byte(u))
		}
		return out
	}
	out := []byte{0x01}
	for _, u := range units {
		out = binary.LittleEndian.AppendUint16(out, u)
	}
	return out
}

// Str is a BIFF8 string with a 16-bit character count.
func Str(s string) []byte {
	return append(U16(len(utf16.Encode([]rune(s)))), Chars(s)...)
}

// RKInt encodes an integer RK value.
func RKInt(n int) []byte { return U32(n<<2 | 0x02) }

// RKCents encodes n/100 as an RK value.
func RKCents(n int) []byte { return U32(n<<2 | 0x03) }

// Workbook assembles a BIFF8 workbook stream: a globals substream holding
// globals followed by one BOUNDSHEET per sheet, then the sheet substreams.
// The stream is padded past the 4096-byte mini stream cutoff.
func Workbook(globals [][]byte, sheets []Sheet) []byte {
	bof := func(dt int) []byte { return Record(BOF, U16(0x0600), U16(dt), make([]byte, 12)) }

	head := bof(0x0005)
	for _, g := range globals {
		head = append(head, g...)
	}
	boundSize := 0
	for _, s := range sheets {
		boundSize += len(boundSheet(0, s))
	}
	offset := len(head) + boundSize + len(Record(EOF))

	var bodies []byte
	for _, s := range sheets {
		head = append(head, boundSheet(offset+len(bodies), s)...)
		bodies = append(bodies, bof(0x0010)...)
		for _, r := range s.Records {
			bodies = append(bodies, r...)
		}
		bodies = append(bodies, Record(EOF)...)
	}
	stream := append(append(head, Record(EOF)...), bodies...)
	for len(stream) < 4096 {
		stream = append(stream, Record(0x00EF, make([]byte, 256))...)
	}
	return stream
}

func boundSheet(offset int, s Sheet) []byte {
	units := utf16.Encode([]rune(s.Name))
	body := append(U32(offset), s.State, 0x00, byte(len(units)))
	return Record(BoundSheet, body, Chars(s.Name))
}

// Compound wraps a workbook stream in a version 3 compound file with a single
// "Workbook" stream. The stream must be at least 4096 bytes long and fit in
// 126 sectors.
func Compound(stream []byte) []byte {
	const (
		sector     = 512
		endOfChain = 0xFFFFFFFE
		free       = 0xFFFFFFFF
		fatSect    = 0xFFFFFFFD
		noStream   = 0xFFFFFFFF
	)
	n := (len(stream) + sector - 1) / sector

	header := make([]byte, sector)
	copy(header, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le := binary.LittleEndian
	le.PutUint16(header[24:], 0x003E)
	le.PutUint16(header[26:], 0x0003)
	le.PutUint16(header[28:], 0xFFFE)
	le.PutUint16(header[30:], 9)
	le.PutUint16(header[32:], 6)
	le.PutUint32(header[44:], 1) // FAT sectors
	le.PutUint32(header[48:], 1) // first directory sector
	le.PutUint32(header[56:], 4096)
	le.PutUint32(header[60:], endOfChain)
	le.PutUint32(header[68:], endOfChain)
	le.PutUint32(header[76:], 0)
	for i := 80; i < sector; i += 4 {
		le.PutUint32(header[i:], free)
	}

	fat := make([]byte, sector)
	for i := 0; i < sector; i += 4 {
		le.PutUint32(fat[i:], free)
	}
	le.PutUint32(fat[0:], fatSect)
	le.PutUint32(fat[4:], endOfChain)
	for i := 0; i < n; i++ {
		next := uint32(i + 3)
		if i == n-1 {
			next = endOfChain
		}
		le.PutUint32(fat[4*(i+2):], next)
	}

	dir := make([]byte, sector)
	entry := func(i int, name string, typ byte, child uint32, start uint32, size int) {
		e := dir[i*128 : (i+1)*128]
		units := utf16.Encode([]rune(name))
		for j, u := range units {
			le.PutUint16(e[2*j:], u)
		}
		le.PutUint16(e[64:], uint16(2*len(units)+2))
		e[66] = typ
		e[67] = 1 // black
		le.PutUint32(e[68:], noStream)
		le.PutUint32(e[72:], noStream)
		le.PutUint32(e[76:], child)
		le.PutUint32(e[116:], start)
		le.PutUint32(e[120:], uint32(size))
	}
	entry(0, "Root Entry", 5, 1, endOfChain, 0)
	entry(1, "Workbook", 2, noStream, 2, len(stream))
	for i := 2; i < 4; i++ {
		e := dir[i*128 : (i+1)*128]
		le.PutUint32(e[68:], noStream)
		le.PutUint32(e[72:], noStream)
		le.PutUint32(e[76:], noStream)
	}

	out := append(append(header, fat...), dir...)
	out = append(out, stream...)
	if pad := n*sector - len(stream); pad > 0 {
		out = append(out, make([]byte, pad)...)
	}
	return out
}
