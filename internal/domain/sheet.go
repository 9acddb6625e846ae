package domain

// SheetData is a rectangular table read from a spreadsheet. The first row of
// the raw response becomes Headers; the rest become Rows.
type SheetData struct {
	SheetID string
	Headers []string
	Rows    [][]string
}

// TotalRows counts data rows; the header row is not data.
func (d *SheetData) TotalRows() int {
	return len(d.Rows)
}

// BrandData is one resolved row from the Brand Master sheet, cached per
// thread so a later deposit-invoice request can reuse it.
type BrandData struct {
	CompanyName string
	Address     string
	Phone       string
	Email       string
	Fields      map[string]string // header -> cell, for display
}
