package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/simp-lee/salesboard/internal/domain"
)

const (
	// CSVFileName and WorkbookFileName are the download names of the exports.
	CSVFileName      = "sales.csv"
	WorkbookFileName = "sales.xlsx"

	CSVContentType      = "text/csv"
	WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// WorkbookSheet is the only sheet in the exported workbook.
	WorkbookSheet = "Sales"
)

const csvHeader = "ID,Name,Course,Price,Date"

// workbookHeader uses the record field names, unlike the CSV header.
var workbookHeader = []any{"id", "name", "course", "price", "saleDate"}

// ToDelimitedText renders view as comma-separated text: one header line and
// one line per record, joined by "\n" with no trailing newline. Fields are
// written verbatim; values containing commas or newlines are not quoted.
func ToDelimitedText(view []domain.Sale) string {
	var b strings.Builder
	b.WriteString(csvHeader)
	for _, s := range view {
		b.WriteByte('\n')
		b.WriteString(string(s.ID))
		b.WriteByte(',')
		b.WriteString(s.Name)
		b.WriteByte(',')
		b.WriteString(s.Course)
		b.WriteByte(',')
		b.WriteString(FormatNumber(s.Price))
		b.WriteByte(',')
		b.WriteString(s.SaleDate)
	}
	return b.String()
}

// FormatNumber writes f in its shortest round-trip form: 100 as "100", 99.5 as
// "99.5". Magnitudes of 1e21 and above, or below 1e-6, use exponent notation
// without padding: "1e+21", "1.5e-7".
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	if abs := math.Abs(f); abs < 1e21 && abs >= 1e-6 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	mantissa, exp, _ := strings.Cut(strconv.FormatFloat(f, 'e', -1, 64), "e")
	return mantissa + "e" + exp[:1] + strings.TrimLeft(exp[1:], "0")
}

// ToWorkbookBytes renders view as an xlsx workbook with a single "Sales" sheet.
func ToWorkbookBytes(view []domain.Sale) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), WorkbookSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := workbookHeader
	if err := f.SetSheetRow(WorkbookSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, s := range view {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		row := []any{workbookID(s.ID), s.Name, s.Course, s.Price, s.SaleDate}
		if err := f.SetSheetRow(WorkbookSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// workbookID keeps numeric IDs as numeric cells.
func workbookID(id domain.SaleID) any {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return n
	}
	return string(id)
}
