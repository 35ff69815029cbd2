package render

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// GofpdfBackend is the last-resort backend. It ignores the HTML body and lays
// out the plain-text digest lines instead, so a report always has a PDF form
// even without external tooling.
type GofpdfBackend struct{}

// NewGofpdfBackend constructs the fallback backend.
func NewGofpdfBackend() *GofpdfBackend {
	return &GofpdfBackend{}
}

// Name identifies the backend in logs.
func (b *GofpdfBackend) Name() string {
	return "gofpdf"
}

// Render produces a simple document from the digest lines.
func (b *GofpdfBackend) Render(ctx context.Context, doc Document) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")), "", 1, "", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	for _, line := range doc.Lines {
		if line == "" {
			pdf.Ln(3)
			continue
		}
		pdf.MultiCell(0, 6, line, "", "", false)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
