package cell

import (
	"errors"
	"fmt"
)

// ErrEmptyCell is returned when a strict accessor is used on an Empty cell.
var ErrEmptyCell = errors.New("empty cell")

// ErrNotReady is returned when a date or duration is converted before the
// document's date system has been resolved.
var ErrNotReady = errors.New("date system not resolved")

// ErrTypeMismatch matches every *TypeMismatchError through errors.Is.
var ErrTypeMismatch = errors.New("type mismatch")

// TypeMismatchError reports a coercion the cell's variant does not support.
type TypeMismatchError struct {
	Expected string
	Actual   Kind
	Reason   string
}

func (e *TypeMismatchError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("type mismatch: want %s, have %s (%s)", e.Expected, e.Actual, e.Reason)
	}
	return fmt.Sprintf("type mismatch: want %s, have %s", e.Expected, e.Actual)
}

func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}
