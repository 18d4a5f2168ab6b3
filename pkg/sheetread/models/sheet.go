package models

// Dimension is the declared size of a sheet.
type Dimension struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// SheetData represents structured data for a single sheet.
type SheetData struct {
	// Name is the sheet name.
	Name string `json:"name"`
	// Index is the 0-based position of the sheet in the workbook.
	Index int `json:"index"`
	// Visibility is "visible", "hidden" or "veryHidden".
	Visibility string `json:"visibility"`
	// Dimension is the size the document declares, if any.
	Dimension *Dimension `json:"dimension,omitempty"`
	// UsedRange is the A1-style box around the non-empty cells.
	UsedRange string `json:"used_range,omitempty"`
	// PrintAreas lists the print areas as A1 ranges.
	PrintAreas []string `json:"print_areas,omitempty"`
	// Rows contains rows holding at least one non-empty cell.
	Rows []CellRow `json:"rows,omitempty"`
}
