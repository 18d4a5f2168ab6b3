package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ukaji3/sheetread-go/pkg/sheetread/models"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Orders"))
	_, err := f.NewSheet("Archive 2023")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetVisible("Archive 2023", false))
	require.NoError(t, f.SetSheetRow("Orders", "A1", &[]interface{}{"sku", "qty"}))
	require.NoError(t, f.SetSheetRow("Orders", "A2", &[]interface{}{"X-1", 4}))
	require.NoError(t, f.SetCellValue("Archive 2023", "A1", "old"))

	path := filepath.Join(t.TempDir(), "orders.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunStdout(t *testing.T) {
	path := writeWorkbook(t)
	stdout, _, err := execute(t, path)
	require.NoError(t, err)

	var wb models.WorkbookData
	require.NoError(t, json.Unmarshal([]byte(stdout), &wb))
	assert.Equal(t, "orders.xlsx", wb.BookName)
	assert.Equal(t, "xlsx", wb.Format)
	require.Len(t, wb.Sheets, 2)
	assert.Equal(t, "Orders", wb.Sheets[0].Name)
	assert.Equal(t, "A1:B2", wb.Sheets[0].UsedRange)
	assert.Equal(t, "X-1", wb.Sheets[0].Rows[1].C["1"])
	assert.Equal(t, float64(4), wb.Sheets[0].Rows[1].C["2"])
}

func TestRunFlags(t *testing.T) {
	path := writeWorkbook(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"skip hidden", []string{"--skip-hidden"}, []string{"Orders"}},
		{"sheet", []string{"--sheet", "archive 2023"}, []string{"Archive 2023"}},
		{"eager", []string{"--mode", "eager"}, []string{"Orders", "Archive 2023"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, append(tt.args, path)...)
			require.NoError(t, err)

			var wb models.WorkbookData
			require.NoError(t, json.Unmarshal([]byte(stdout), &wb))
			var names []string
			for _, s := range wb.Sheets {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestRunOutputAndSheetsDir(t *testing.T) {
	path := writeWorkbook(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "book.json")
	sheetsDir := filepath.Join(dir, "sheets")

	stdout, _, err := execute(t, "--pretty", "-o", out, "--sheets-dir", sheetsDir, path)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"format\": \"xlsx\"")

	data, err = os.ReadFile(filepath.Join(sheetsDir, "01_Archive 2023.json"))
	require.NoError(t, err)
	var sheet models.SheetData
	require.NoError(t, json.Unmarshal(data, &sheet))
	assert.Equal(t, "hidden", sheet.Visibility)
	assert.FileExists(t, filepath.Join(sheetsDir, "00_Orders.json"))
}

func TestRunErrors(t *testing.T) {
	path := writeWorkbook(t)

	_, _, err := execute(t, "--mode", "turbo", path)
	assert.ErrorContains(t, err, "invalid mode")

	_, stderr, err := execute(t, filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorContains(t, err, "extraction failed")
	assert.Contains(t, stderr, "kind=io")

	junk := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(junk, []byte("plain text"), 0644))
	_, stderr, err = execute(t, junk)
	assert.Error(t, err)
	assert.Contains(t, stderr, "kind=unsupported_format")
}

func TestSheetFileName(t *testing.T) {
	assert.Equal(t, "03_Q1_Q2.json", sheetFileName(models.SheetData{Index: 3, Name: "Q1/Q2"}))
	assert.Equal(t, "12_a_b_c.json", sheetFileName(models.SheetData{Index: 12, Name: `a\b:c`}))
}
