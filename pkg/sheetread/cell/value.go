// Package cell defines the typed value held by a spreadsheet cell and the
// strict coercions from it to Go types.
package cell

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the active variant of a Value.
type Kind uint8

const (
	// KindEmpty is a blank cell. It is distinct from a zero-length string.
	KindEmpty Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindDateTime
	KindDuration
	KindError
)

var kindNames = [...]string{
	KindEmpty:    "empty",
	KindInt:      "int",
	KindFloat:    "float",
	KindString:   "string",
	KindBool:     "bool",
	KindDateTime: "datetime",
	KindDuration: "duration",
	KindError:    "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a single cell value. The zero Value is Empty.
//
// Date and duration values read from numeric serials keep the serial and the
// date system they were read in, so Serial returns exactly what the document
// stored. Values read from ISO timestamps keep the timestamp instead.
type Value struct {
	kind     Kind
	i        int64
	f        float64
	s        string
	b        bool
	t        time.Time
	d        time.Duration
	abs      bool
	dateOnly bool
	sys      DateSystem
	code     ErrorCode
}

// Empty returns the blank cell value.
func Empty() Value { return Value{} }

// Int returns an integer cell value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point cell value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String returns a text cell value. String("") is not Empty.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a boolean cell value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// DateTime returns a date/time value stored as a serial in the given date
// system. dateOnly marks values formatted without a time of day.
func DateTime(serial float64, sys DateSystem, dateOnly bool) Value {
	return Value{kind: KindDateTime, f: serial, sys: sys, dateOnly: dateOnly}
}

// DateTimeOf returns a date/time value holding an absolute timestamp. sys is
// the date system used when the serial form is requested.
func DateTimeOf(t time.Time, sys DateSystem, dateOnly bool) Value {
	return Value{kind: KindDateTime, t: t, abs: true, sys: sys, dateOnly: dateOnly}
}

// Duration returns an elapsed-time value stored as a number of days.
func Duration(days float64, sys DateSystem) Value {
	return Value{kind: KindDuration, f: days, sys: sys}
}

// DurationOf returns an elapsed-time value holding a time.Duration.
func DurationOf(d time.Duration, sys DateSystem) Value {
	return Value{kind: KindDuration, d: d, abs: true, sys: sys}
}

// Error returns a spreadsheet error value.
func Error(code ErrorCode) Value { return Value{kind: KindError, code: code} }

// Kind reports the active variant.
func (v Value) Kind() Kind { return v.kind }

// IsEmpty reports whether v is a blank cell.
func (v Value) IsEmpty() bool { return v.kind == KindEmpty }

// IsDateOnly reports whether a DateTime carries no time of day.
func (v Value) IsDateOnly() bool { return v.kind == KindDateTime && v.dateOnly }

// DateSystem returns the date system a DateTime or Duration was read in.
func (v Value) DateSystem() DateSystem { return v.sys }

func (v Value) mismatch(expected string) error {
	if v.kind == KindEmpty {
		return ErrEmptyCell
	}
	return &TypeMismatchError{Expected: expected, Actual: v.kind}
}

// Int returns the value as an int64. Floats convert only when integral and
// within range; anything else is a type mismatch rather than a truncation.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) || v.f != math.Trunc(v.f) {
			return 0, &TypeMismatchError{Expected: "int", Actual: v.kind, Reason: "non-integral value " + strconv.FormatFloat(v.f, 'g', -1, 64)}
		}
		if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, &TypeMismatchError{Expected: "int", Actual: v.kind, Reason: "value out of int64 range"}
		}
		return int64(v.f), nil
	}
	return 0, v.mismatch("int")
}

// IntOr is Int with def returned for an Empty cell.
func (v Value) IntOr(def int64) (int64, error) {
	if v.kind == KindEmpty {
		return def, nil
	}
	return v.Int()
}

// Float returns the value as a float64.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.f, nil
	case KindInt:
		return float64(v.i), nil
	}
	return 0, v.mismatch("float")
}

// FloatOr is Float with def returned for an Empty cell.
func (v Value) FloatOr(def float64) (float64, error) {
	if v.kind == KindEmpty {
		return def, nil
	}
	return v.Float()
}

// Text returns the value of a String cell.
func (v Value) Text() (string, error) {
	if v.kind == KindString {
		return v.s, nil
	}
	return "", v.mismatch("string")
}

// TextOr is Text with def returned for an Empty cell.
func (v Value) TextOr(def string) (string, error) {
	if v.kind == KindEmpty {
		return def, nil
	}
	return v.Text()
}

// Bool returns the value of a Bool cell.
func (v Value) Bool() (bool, error) {
	if v.kind == KindBool {
		return v.b, nil
	}
	return false, v.mismatch("bool")
}

// BoolOr is Bool with def returned for an Empty cell.
func (v Value) BoolOr(def bool) (bool, error) {
	if v.kind == KindEmpty {
		return def, nil
	}
	return v.Bool()
}

// Time returns the timestamp of a DateTime cell. Serial-backed values need a
// resolved date system and fail with ErrNotReady otherwise.
func (v Value) Time() (time.Time, error) {
	if v.kind != KindDateTime {
		return time.Time{}, v.mismatch("datetime")
	}
	if v.abs {
		return v.t, nil
	}
	if v.sys == DateSystemUnknown {
		return time.Time{}, ErrNotReady
	}
	return SerialToTime(v.f, v.sys)
}

// TimeOr is Time with def returned for an Empty cell.
func (v Value) TimeOr(def time.Time) (time.Time, error) {
	if v.kind == KindEmpty {
		return def, nil
	}
	return v.Time()
}

// Duration returns the elapsed time of a Duration cell.
func (v Value) Duration() (time.Duration, error) {
	if v.kind != KindDuration {
		return 0, v.mismatch("duration")
	}
	if v.abs {
		return v.d, nil
	}
	if v.sys == DateSystemUnknown {
		return 0, ErrNotReady
	}
	return DaysToDuration(v.f)
}

// Serial returns the native numeric offset of a DateTime or Duration: days
// since the date system's epoch, or elapsed days.
func (v Value) Serial() (float64, error) {
	switch v.kind {
	case KindDateTime:
		if !v.abs {
			if v.sys == DateSystemUnknown {
				return 0, ErrNotReady
			}
			return v.f, nil
		}
		if v.sys == DateSystemUnknown {
			return 0, ErrNotReady
		}
		return TimeToSerial(v.t, v.sys)
	case KindDuration:
		if v.sys == DateSystemUnknown {
			return 0, ErrNotReady
		}
		if v.abs {
			return v.d.Hours() / 24, nil
		}
		return v.f, nil
	}
	return 0, v.mismatch("datetime")
}

// CellError returns the error code of an Error cell. It is the only accessor
// that yields spreadsheet errors; every other accessor rejects them.
func (v Value) CellError() (ErrorCode, error) {
	if v.kind == KindError {
		return v.code, nil
	}
	return 0, v.mismatch("error")
}

// Interface returns v as a plain Go value: nil, int64, float64, string, bool,
// time.Time, time.Duration or ErrorCode. Dates that cannot be resolved are
// returned as their raw serial.
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindDateTime:
		if t, err := v.Time(); err == nil {
			return t
		}
		return v.f
	case KindDuration:
		if d, err := v.Duration(); err == nil {
			return d
		}
		return v.f
	case KindError:
		return v.code
	}
	return nil
}

// Equal reports whether two values hold the same variant and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindEmpty:
		return true
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBool:
		return v.b == o.b
	case KindError:
		return v.code == o.code
	case KindDateTime:
		if v.dateOnly != o.dateOnly {
			return false
		}
		if !v.abs && !o.abs && v.sys == o.sys {
			return v.f == o.f
		}
		vt, verr := v.Time()
		ot, oerr := o.Time()
		return verr == nil && oerr == nil && vt.Equal(ot)
	case KindDuration:
		vd, verr := v.Duration()
		od, oerr := o.Duration()
		return verr == nil && oerr == nil && vd == od
	}
	return false
}

// String renders v for display.
func (v Value) String() string {
	switch v.kind {
	case KindEmpty:
		return ""
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		if v.b {
			return "TRUE"
		}
		return "FALSE"
	case KindDateTime:
		t, err := v.Time()
		if err != nil {
			return strconv.FormatFloat(v.f, 'g', -1, 64)
		}
		if v.dateOnly {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.DateTime)
	case KindDuration:
		d, err := v.Duration()
		if err != nil {
			return strconv.FormatFloat(v.f, 'g', -1, 64)
		}
		return d.String()
	case KindError:
		return v.code.String()
	}
	return fmt.Sprintf("%v", v.kind)
}
