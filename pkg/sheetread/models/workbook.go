package models

// WorkbookData represents workbook-level container with per-sheet data.
type WorkbookData struct {
	// BookName is the workbook file name (no path).
	BookName string `json:"book_name,omitempty"`
	// Format is the detected container format.
	Format string `json:"format"`
	// DateSystem is "1900" or "1904".
	DateSystem string `json:"date_system"`
	// Properties holds document properties such as title and creator.
	Properties map[string]string `json:"properties,omitempty"`
	// Sheets lists the extracted sheets in declaration order.
	Sheets []SheetData `json:"sheets"`
}
