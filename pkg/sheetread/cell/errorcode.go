package cell

import "strings"

// ErrorCode is a spreadsheet-native error such as #DIV/0!.
type ErrorCode uint8

const (
	ErrorDiv0 ErrorCode = iota + 1
	ErrorNA
	ErrorName
	ErrorNull
	ErrorNum
	ErrorRef
	ErrorValue
	ErrorGettingData
)

var errorLiterals = map[ErrorCode]string{
	ErrorDiv0:        "#DIV/0!",
	ErrorNA:          "#N/A",
	ErrorName:        "#NAME?",
	ErrorNull:        "#NULL!",
	ErrorNum:         "#NUM!",
	ErrorRef:         "#REF!",
	ErrorValue:       "#VALUE!",
	ErrorGettingData: "#GETTING_DATA",
}

func (c ErrorCode) String() string {
	if s, ok := errorLiterals[c]; ok {
		return s
	}
	return "#UNKNOWN!"
}

// MarshalText renders the code as its spreadsheet literal.
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseErrorCode maps a spreadsheet error literal to its code. Matching is
// case-insensitive and ignores surrounding space.
func ParseErrorCode(s string) (ErrorCode, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '#' {
		return 0, false
	}
	for code, lit := range errorLiterals {
		if strings.EqualFold(s, lit) {
			return code, true
		}
	}
	return 0, false
}
