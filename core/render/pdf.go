// PDF renderer. Headings are sized by level, numbering tokens are bold.
// Text goes through a cp1252 translator so Portuguese accents survive the
// core fonts.

package render

import (
	"bytes"
	"strings"

	"github.com/gaurav-prasanna/constpipe/core"
	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer renders documents as a PDF.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render converts documents into PDF bytes.
func (r *PDFRenderer) Render(docs []core.IndexedDocument, meta core.ExportMetadata) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	if meta.Title != "" {
		pdf.SetFont("Helvetica", "B", 18)
		pdf.MultiCell(0, 8, tr(meta.Title), "", "C", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.MultiCell(0, 5, tr("Fonte: "+meta.Source), "", "L", false)
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(6)

	for _, d := range docs {
		if level := headingLevel(d.Kind); level > 0 {
			renderHeading(pdf, tr(d.Text), level)
			continue
		}

		indent := 0.0
		switch d.Kind {
		case core.KindItem:
			indent = 6
		case core.KindSubitem:
			indent = 12
		}
		pdf.SetX(pdf.GetX() + indent)
		if d.Number != "" {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.Write(5, tr(d.Number+" "))
		}
		pdf.SetFont("Helvetica", "", 10)
		pdf.Write(5, tr(strings.TrimSpace(d.Text)))
		pdf.Ln(7)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Extension returns the file extension for PDF output.
func (r *PDFRenderer) Extension() string {
	return ".pdf"
}

// renderHeading sets the font size based on heading level and writes text.
func renderHeading(pdf *gofpdf.Fpdf, text string, level int) {
	sizes := map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}
	size, ok := sizes[level]
	if !ok {
		size = 10
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", size)
	pdf.MultiCell(0, size*0.6, text, "", "C", false)
	pdf.Ln(2)
}
