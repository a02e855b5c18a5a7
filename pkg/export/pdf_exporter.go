package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular PDF. Wide tables switch to
// landscape so a full school week fits on one page.
type PDFExporter struct {
	// LandscapeFrom is the column count at which pages turn landscape.
	LandscapeFrom int
}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{LandscapeFrom: 6}
}

// Render creates a PDF document with an optional title, the table body and notes.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}

	orientation, width := "P", 190.0
	if e.LandscapeFrom > 0 && len(data.Headers) >= e.LandscapeFrom {
		orientation, width = "L", 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	colWidth := width / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			align := ""
			if i > 0 {
				align = "C"
			}
			pdf.CellFormat(colWidth, 7, row[header], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(data.Notes) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 8)
		for _, note := range data.Notes {
			pdf.CellFormat(0, 5, note, "", 1, "", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
