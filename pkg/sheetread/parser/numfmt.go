package parser

import (
	"github.com/xuri/nfp"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// NumberClass is how a number format asks a numeric cell to be read.
type NumberClass int

const (
	ClassNumber NumberClass = iota
	ClassDate
	ClassDateTime
	ClassTime
	ClassDuration
)

// builtinDateFormats lists the built-in format ids that render dates or times.
var builtinDateFormats = map[int]NumberClass{
	14: ClassDate, 15: ClassDate, 16: ClassDate, 17: ClassDate,
	18: ClassTime, 19: ClassTime, 20: ClassTime, 21: ClassTime,
	22: ClassDateTime,
	27: ClassDate, 28: ClassDate, 29: ClassDate, 30: ClassDate, 31: ClassDate,
	32: ClassTime, 33: ClassTime, 34: ClassTime, 35: ClassTime, 36: ClassDate,
	45: ClassTime, 46: ClassDuration, 47: ClassTime,
	50: ClassDate, 51: ClassDate, 52: ClassDate, 53: ClassDate, 54: ClassDate,
	55: ClassDate, 56: ClassDate, 57: ClassDate, 58: ClassDate,
}

// ClassifyNumberFormat reports how a numeric cell with the given format is to
// be read. Built-in ids take precedence; otherwise the first section of the
// custom format code decides.
func ClassifyNumberFormat(id int, code string) NumberClass {
	if class, ok := builtinDateFormats[id]; ok {
		return class
	}
	if code == "" {
		return ClassNumber
	}
	p := nfp.NumberFormatParser()
	sections := p.Parse(code)
	if len(sections) == 0 {
		return ClassNumber
	}
	var hasDate, hasTime, hasM, elapsed bool
	for _, tok := range sections[0].Items {
		switch tok.TType {
		case nfp.TokenTypeElapsedDateTimes:
			elapsed = true
		case nfp.TokenTypeDateTimes:
			if tok.TValue == "" {
				continue
			}
			switch tok.TValue[0] {
			case 'h', 'H', 's', 'S', 'a', 'A':
				hasTime = true
			case 'm', 'M':
				hasM = true
			default:
				hasDate = true
			}
		}
	}
	// "m" is minutes next to hours or seconds and months otherwise.
	if hasM && (hasDate || !hasTime) {
		hasDate = true
	}
	switch {
	case elapsed:
		return ClassDuration
	case hasDate && hasTime:
		return ClassDateTime
	case hasDate:
		return ClassDate
	case hasTime:
		return ClassTime
	}
	return ClassNumber
}

// numericValue builds the cell value for a number read with the given class.
func numericValue(f float64, class NumberClass, sys cell.DateSystem) cell.Value {
	switch class {
	case ClassDate:
		if f >= 0 {
			return cell.DateTime(f, sys, true)
		}
	case ClassDateTime, ClassTime:
		if f >= 0 {
			return cell.DateTime(f, sys, false)
		}
	case ClassDuration:
		return cell.Duration(f, sys)
	}
	return cell.Float(f)
}
