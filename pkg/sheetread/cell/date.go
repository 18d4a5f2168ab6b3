package cell

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateSystem is the epoch convention a workbook uses for numeric dates.
type DateSystem uint8

const (
	// DateSystemUnknown means the decoder has not resolved the date system.
	DateSystemUnknown DateSystem = iota
	// Date1900 counts days from 1899-12-31 and keeps the phantom 1900-02-29.
	Date1900
	// Date1904 counts days from 1904-01-01.
	Date1904
)

func (s DateSystem) String() string {
	switch s {
	case Date1900:
		return "1900"
	case Date1904:
		return "1904"
	}
	return "unknown"
}

// ErrInvalidSerial is returned for serials that do not map to a calendar date.
var ErrInvalidSerial = errors.New("invalid date serial")

const (
	msPerDay = 86400000

	// First serial in year 10000.
	serialTooLarge1900 = 2958466
	serialTooLarge1904 = serialTooLarge1900 - 1462

	// Largest whole number of days a time.Duration holds.
	maxDurationDays = 106751
)

var (
	epoch1900      = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC)
	epoch1900Leap  = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	epoch1904      = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	firstMarch1900 = time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)
)

func checkSerial(serial float64) error {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSerial, serial)
	}
	if serial < 0 {
		return fmt.Errorf("%w: negative serial %v", ErrInvalidSerial, serial)
	}
	return nil
}

// SerialToTime converts a serial date in the given system to a UTC time with
// millisecond resolution.
func SerialToTime(serial float64, sys DateSystem) (time.Time, error) {
	if err := checkSerial(serial); err != nil {
		return time.Time{}, err
	}
	var epoch time.Time
	switch sys {
	case Date1900:
		if serial >= serialTooLarge1900 {
			return time.Time{}, fmt.Errorf("%w: %v is past year 9999", ErrInvalidSerial, serial)
		}
		epoch = epoch1900
		if serial >= 60 {
			// Serial 60 is the nonexistent 1900-02-29.
			epoch = epoch1900Leap
		}
	case Date1904:
		if serial >= serialTooLarge1904 {
			return time.Time{}, fmt.Errorf("%w: %v is past year 9999", ErrInvalidSerial, serial)
		}
		epoch = epoch1904
	default:
		return time.Time{}, ErrNotReady
	}
	days := math.Floor(serial)
	ms := math.Round((serial - days) * msPerDay)
	return epoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond), nil
}

// TimeToSerial is the inverse of SerialToTime. The wall clock of t is used as
// is, regardless of its location.
func TimeToSerial(t time.Time, sys DateSystem) (float64, error) {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	var epoch time.Time
	switch sys {
	case Date1900:
		epoch = epoch1900
		if !t.Before(firstMarch1900) {
			epoch = epoch1900Leap
		}
	case Date1904:
		epoch = epoch1904
	default:
		return 0, ErrNotReady
	}
	if t.Before(epoch) {
		return 0, fmt.Errorf("%w: %s precedes the %s epoch", ErrInvalidSerial, t.Format(time.DateTime), sys)
	}
	if t.Year() > 9999 {
		return 0, fmt.Errorf("%w: %s is past year 9999", ErrInvalidSerial, t.Format(time.DateTime))
	}
	// time.Duration cannot span 8000 years, so count in Unix seconds.
	secs := t.Unix() - epoch.Unix()
	days := secs / 86400
	ms := (secs-days*86400)*1000 + int64(t.Nanosecond()/int(time.Millisecond))
	return float64(days) + float64(ms)/msPerDay, nil
}

// DaysToDuration converts elapsed days to a time.Duration with millisecond
// resolution.
func DaysToDuration(days float64) (time.Duration, error) {
	if math.IsNaN(days) || math.IsInf(days, 0) || math.Abs(days) >= maxDurationDays {
		return 0, fmt.Errorf("%w: duration of %v days", ErrInvalidSerial, days)
	}
	return time.Duration(math.Round(days*msPerDay)) * time.Millisecond, nil
}
