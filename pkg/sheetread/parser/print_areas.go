package parser

import (
	"strings"

	"github.com/xuri/excelize/v2"
)

const printAreaName = "_xlnm.Print_Area"

// extractPrintAreas maps sheet names to the print areas defined for them.
// Areas are normalized to relative A1 ranges such as "A1:D10".
func extractPrintAreas(names []excelize.DefinedName) map[string][]string {
	result := make(map[string][]string)
	for _, dn := range names {
		if !strings.EqualFold(dn.Name, printAreaName) {
			continue
		}
		sheetName, areas := parsePrintAreaReference(dn.RefersTo)
		if dn.Scope != "" && dn.Scope != "Workbook" {
			sheetName = dn.Scope
		}
		if sheetName != "" && len(areas) > 0 {
			result[sheetName] = append(result[sheetName], areas...)
		}
	}
	return result
}

// parsePrintAreaReference parses a print area reference string.
// Format: 'Sheet Name'!$A$1:$D$10,'Sheet Name'!$F$1:$G$4
func parsePrintAreaReference(ref string) (string, []string) {
	var sheetName string
	var areas []string
	for _, part := range strings.Split(ref, ",") {
		part = strings.TrimSpace(part)
		idx := strings.LastIndex(part, "!")
		if idx < 0 {
			continue
		}
		if sheetName == "" {
			sheetName = unquoteSheetName(part[:idx])
		}
		if area, ok := normalizeRange(part[idx+1:]); ok {
			areas = append(areas, area)
		}
	}
	return sheetName, areas
}

func unquoteSheetName(name string) string {
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// normalizeRange turns $A$1:$D$10 into A1:D10. Whole row or column ranges
// are rejected.
func normalizeRange(rangeStr string) (string, bool) {
	parts := strings.Split(strings.ReplaceAll(rangeStr, "$", ""), ":")
	if len(parts) > 2 {
		return "", false
	}
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		col, row, err := excelize.CellNameToCoordinates(p)
		if err != nil {
			return "", false
		}
		name, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return "", false
		}
		refs = append(refs, name)
	}
	return strings.Join(refs, ":"), true
}
