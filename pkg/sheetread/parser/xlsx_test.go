package parser

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/cell"
)

// buildXLSX returns the bytes of a workbook written by excelize after fn has
// filled it.
func buildXLSX(t *testing.T, fn func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	fn(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func drain(t *testing.T, d Decoder, index int) [][]cell.Value {
	t.Helper()
	r, err := d.OpenRows(index)
	require.NoError(t, err)
	defer r.Close()
	var rows [][]cell.Value
	for r.Next() {
		rows = append(rows, r.Row())
	}
	require.NoError(t, r.Err())
	return rows
}

func TestXLSXSheets(t *testing.T) {
	data := buildXLSX(t, func(f *excelize.File) {
		f.SetSheetName("Sheet1", "Summary")
		_, _ = f.NewSheet("Data")
		_, _ = f.NewSheet("Scratch")
		_, _ = f.NewSheet("Macros")
		require.NoError(t, f.SetSheetVisible("Scratch", false))
		require.NoError(t, f.SetSheetVisible("Macros", false, true))
	})

	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()

	assert.Equal(t, FormatXLSX, d.Format())
	assert.Equal(t, cell.Date1900, d.DateSystem())
	assert.Equal(t, []SheetMeta{
		{Name: "Summary", Visibility: Visible},
		{Name: "Data", Visibility: Visible},
		{Name: "Scratch", Visibility: Hidden},
		{Name: "Macros", Visibility: VeryHidden},
	}, d.Sheets())
}

func TestXLSXCellTypes(t *testing.T) {
	data := buildXLSX(t, func(f *excelize.File) {
		dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
		require.NoError(t, err)
		custom := "[h]:mm"
		durStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &custom})
		require.NoError(t, err)

		require.NoError(t, f.SetCellValue("Sheet1", "A1", "name"))
		require.NoError(t, f.SetCellValue("Sheet1", "B1", 42))
		require.NoError(t, f.SetCellValue("Sheet1", "C1", 2.5))
		require.NoError(t, f.SetCellValue("Sheet1", "D1", true))
		require.NoError(t, f.SetCellValue("Sheet1", "E1", 45285))
		require.NoError(t, f.SetCellStyle("Sheet1", "E1", "E1", dateStyle))
		require.NoError(t, f.SetCellValue("Sheet1", "F1", 1.5))
		require.NoError(t, f.SetCellStyle("Sheet1", "F1", "F1", durStyle))
		require.NoError(t, f.SetCellValue("Sheet1", "B3", "after gap"))
	})

	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()

	rows := drain(t, d, 0)
	require.Len(t, rows, 3)

	first := rows[0]
	require.Len(t, first, 6)
	assert.Equal(t, cell.String("name"), first[0])
	assert.Equal(t, cell.Float(42), first[1])
	assert.Equal(t, cell.Float(2.5), first[2])
	assert.Equal(t, cell.Bool(true), first[3])

	assert.Equal(t, cell.KindDateTime, first[4].Kind())
	assert.True(t, first[4].IsDateOnly())
	tm, err := first[4].Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 25, 0, 0, 0, 0, time.UTC), tm)

	assert.Equal(t, cell.KindDuration, first[5].Kind())
	dur, err := first[5].Duration()
	require.NoError(t, err)
	assert.Equal(t, 36*time.Hour, dur)

	assert.Empty(t, rows[1])
	require.Len(t, rows[2], 2)
	assert.True(t, rows[2][0].IsEmpty())
	assert.Equal(t, cell.String("after gap"), rows[2][1])
}

func TestXLSXDate1904(t *testing.T) {
	data := buildXLSX(t, func(f *excelize.File) {
		on := true
		require.NoError(t, f.SetWorkbookProps(&excelize.WorkbookPropsOptions{Date1904: &on}))
		style, err := f.NewStyle(&excelize.Style{NumFmt: 14})
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Sheet1", "A1", 0))
		require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", style))
	})

	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, cell.Date1904, d.DateSystem())

	rows := drain(t, d, 0)
	require.Len(t, rows, 1)
	tm, err := rows[0][0].Time()
	require.NoError(t, err)
	assert.Equal(t, time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC), tm)
}

func TestXLSXProperties(t *testing.T) {
	data := buildXLSX(t, func(f *excelize.File) {
		require.NoError(t, f.SetDocProps(&excelize.DocProperties{
			Title:   "Quarterly budget",
			Creator: "finance",
		}))
	})

	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()

	props := d.Properties()
	assert.Equal(t, "Quarterly budget", props["title"])
	assert.Equal(t, "finance", props["creator"])
}

func TestXLSXOpenRowsOutOfRange(t *testing.T) {
	data := buildXLSX(t, func(*excelize.File) {})
	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()

	_, err = d.OpenRows(3)
	assert.Error(t, err)
}

func TestNewXLSXRejectsGarbage(t *testing.T) {
	_, err := NewXLSX([]byte("PK\x03\x04 not really a zip"), "")
	assert.Error(t, err)
}

// zipParts writes the named parts, in order, into a zip archive.
func zipParts(t *testing.T, parts ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(p[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestXLSXEmptyStrings(t *testing.T) {
	const main = `xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"`
	const rels = `xmlns="http://schemas.openxmlformats.org/package/2006/relationships"`
	const relType = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/"
	data := zipParts(t,
		[2]string{"[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
<Override PartName="/xl/sharedStrings.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sharedStrings+xml"/>
</Types>`},
		[2]string{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8"?>
<Relationships ` + rels + `><Relationship Id="rId1" Type="` + relType + `officeDocument" Target="xl/workbook.xml"/></Relationships>`},
		[2]string{"xl/workbook.xml", `<?xml version="1.0" encoding="UTF-8"?>
<workbook ` + main + ` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Blank" sheetId="1" r:id="rId1"/></sheets></workbook>`},
		[2]string{"xl/_rels/workbook.xml.rels", `<?xml version="1.0" encoding="UTF-8"?>
<Relationships ` + rels + `>
<Relationship Id="rId1" Type="` + relType + `worksheet" Target="worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="` + relType + `sharedStrings" Target="sharedStrings.xml"/>
</Relationships>`},
		[2]string{"xl/sharedStrings.xml", `<?xml version="1.0" encoding="UTF-8"?>
<sst ` + main + ` count="2" uniqueCount="2"><si><t></t></si><si><t>x</t></si></sst>`},
		[2]string{"xl/worksheets/sheet1.xml", `<?xml version="1.0" encoding="UTF-8"?>
<worksheet ` + main + `><sheetData><row r="1">
<c r="A1" t="s"><v>0</v></c>
<c r="C1" t="inlineStr"><is><t></t></is></c>
<c r="D1" t="s"><v>1</v></c>
</row></sheetData></worksheet>`},
	)

	d, err := NewXLSX(data, "")
	require.NoError(t, err)
	defer d.Close()

	rows := drain(t, d, 0)
	require.Len(t, rows, 1)
	assert.Equal(t, []cell.Value{cell.String(""), cell.Empty(), cell.String(""), cell.String("x")}, rows[0])
	assert.Equal(t, cell.KindString, rows[0][0].Kind())
}
