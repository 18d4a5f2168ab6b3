package cell

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialToTime(t *testing.T) {
	tests := []struct {
		name   string
		serial float64
		sys    DateSystem
		want   time.Time
	}{
		{"1900 serial 1", 1, Date1900, time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"1900 serial 59", 59, Date1900, time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"1900 serial 61", 61, Date1900, time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"1900 time only", 0.5, Date1900, time.Date(1899, 12, 31, 12, 0, 0, 0, time.UTC)},
		{"1900 unix epoch", 25569, Date1900, time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"1900 with time", 41235.45578, Date1900, time.Date(2012, 11, 22, 10, 56, 19, 392000000, time.UTC)},
		{"1904 serial 0", 0, Date1904, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"1904 serial 365", 365, Date1904, time.Date(1904, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"1904 serial 39813", 39813, Date1904, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SerialToTime(tt.serial, tt.sys)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
		})
	}
}

func TestSerialToTimeErrors(t *testing.T) {
	tests := []struct {
		name    string
		serial  float64
		sys     DateSystem
		wantErr error
	}{
		{"negative", -1, Date1900, ErrInvalidSerial},
		{"nan", math.NaN(), Date1900, ErrInvalidSerial},
		{"inf", math.Inf(1), Date1904, ErrInvalidSerial},
		{"year 10000 in 1900", 2958466, Date1900, ErrInvalidSerial},
		{"year 10000 in 1904", 2958466 - 1462, Date1904, ErrInvalidSerial},
		{"unknown system", 1, DateSystemUnknown, ErrNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SerialToTime(tt.serial, tt.sys)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTimeToSerial(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		sys  DateSystem
		want float64
	}{
		{"before phantom leap day", time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), Date1900, 59},
		{"after phantom leap day", time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), Date1900, 61},
		{"christmas 2023", time.Date(2023, 12, 25, 18, 0, 0, 0, time.UTC), Date1900, 45285.75},
		{"1904 base", time.Date(1904, 1, 2, 0, 0, 0, 0, time.UTC), Date1904, 1},
		{"far future", time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), Date1900, 2958465},
		{"location ignored", time.Date(2023, 12, 25, 0, 0, 0, 0, time.FixedZone("X", 3600)), Date1900, 45285},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TimeToSerial(tt.in, tt.sys)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := TimeToSerial(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC), Date1900)
	assert.ErrorIs(t, err, ErrInvalidSerial)
	_, err = TimeToSerial(time.Now(), DateSystemUnknown)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestWholeDaySerialsRoundTripThroughTime(t *testing.T) {
	for _, sys := range []DateSystem{Date1900, Date1904} {
		for serial := 61.0; serial < 80000; serial += 997 {
			tm, err := SerialToTime(serial, sys)
			require.NoError(t, err)
			back, err := TimeToSerial(tm, sys)
			require.NoError(t, err)
			assert.Equal(t, serial, back)
		}
	}
}

func TestDaysToDuration(t *testing.T) {
	d, err := DaysToDuration(1.0 / 24)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d)

	_, err = DaysToDuration(math.NaN())
	assert.ErrorIs(t, err, ErrInvalidSerial)
	_, err = DaysToDuration(1e9)
	assert.ErrorIs(t, err, ErrInvalidSerial)
}

func TestParseErrorCode(t *testing.T) {
	tests := []struct {
		input  string
		want   ErrorCode
		wantOK bool
	}{
		{"#DIV/0!", ErrorDiv0, true},
		{"#n/a", ErrorNA, true},
		{" #NAME? ", ErrorName, true},
		{"#NULL!", ErrorNull, true},
		{"#NUM!", ErrorNum, true},
		{"#REF!", ErrorRef, true},
		{"#VALUE!", ErrorValue, true},
		{"#GETTING_DATA", ErrorGettingData, true},
		{"#HASHTAG", 0, false},
		{"DIV/0!", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseErrorCode(tt.input)
		assert.Equal(t, tt.wantOK, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
	assert.Equal(t, "#DIV/0!", ErrorDiv0.String())
	assert.Equal(t, "#UNKNOWN!", ErrorCode(0).String())
}
