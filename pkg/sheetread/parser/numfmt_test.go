package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

func TestClassifyNumberFormat(t *testing.T) {
	tests := []struct {
		name string
		id   int
		code string
		want NumberClass
	}{
		{"general", 0, "", ClassNumber},
		{"builtin two decimals", 2, "", ClassNumber},
		{"builtin m/d/yy", 14, "", ClassDate},
		{"builtin h:mm", 20, "", ClassTime},
		{"builtin m/d/yy h:mm", 22, "", ClassDateTime},
		{"builtin [h]:mm:ss", 46, "", ClassDuration},
		{"custom iso date", 164, "yyyy-mm-dd", ClassDate},
		{"custom month name", 164, "mmm yyyy", ClassDate},
		{"custom minutes", 164, "hh:mm", ClassTime},
		{"custom am/pm", 164, "h:mm AM/PM", ClassTime},
		{"custom date and time", 164, "yyyy-mm-dd hh:mm:ss", ClassDateTime},
		{"custom elapsed hours", 164, "[h]:mm", ClassDuration},
		{"custom currency", 164, `"$"#,##0.00`, ClassNumber},
		{"custom percent", 164, "0.0%", ClassNumber},
		{"date only in negative section", 164, "0;yyyy-mm-dd", ClassNumber},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyNumberFormat(tt.id, tt.code))
		})
	}
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		name  string
		f     float64
		class NumberClass
		want  cell.Kind
	}{
		{"plain", 3.5, ClassNumber, cell.KindFloat},
		{"date", 45285, ClassDate, cell.KindDateTime},
		{"time", 0.5, ClassTime, cell.KindDateTime},
		{"negative date stays numeric", -1, ClassDate, cell.KindFloat},
		{"duration", 1.25, ClassDuration, cell.KindDuration},
		{"negative duration", -0.5, ClassDuration, cell.KindDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := numericValue(tt.f, tt.class, cell.Date1900)
			assert.Equal(t, tt.want, v.Kind())
		})
	}

	v := numericValue(45285, ClassDate, cell.Date1900)
	assert.True(t, v.IsDateOnly())
	serial, err := v.Serial()
	assert.NoError(t, err)
	assert.Equal(t, 45285.0, serial)
}
