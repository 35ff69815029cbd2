package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// WkhtmltopdfBackend shells out to the wkhtmltopdf binary, feeding HTML on
// stdin and reading the PDF from stdout.
type WkhtmltopdfBackend struct {
	binaryPath string
}

// NewWkhtmltopdfBackend constructs the backend. An empty path falls back to
// whatever "wkhtmltopdf" resolves to on PATH.
func NewWkhtmltopdfBackend(binaryPath string) *WkhtmltopdfBackend {
	if binaryPath == "" {
		binaryPath = "wkhtmltopdf"
	}
	return &WkhtmltopdfBackend{binaryPath: binaryPath}
}

// Name identifies the backend in logs.
func (b *WkhtmltopdfBackend) Name() string {
	return "wkhtmltopdf"
}

// Render converts the document's HTML body into PDF bytes.
func (b *WkhtmltopdfBackend) Render(ctx context.Context, doc Document) ([]byte, error) {
	if doc.HTML == "" {
		return nil, fmt.Errorf("document has no html body")
	}
	if _, err := exec.LookPath(b.binaryPath); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf not available: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.binaryPath,
		"--page-size", "A4",
		"--margin-top", "10mm",
		"--margin-right", "10mm",
		"--margin-bottom", "10mm",
		"--margin-left", "10mm",
		"--encoding", "UTF-8",
		"--quiet",
		"-", "-",
	)
	cmd.Stdin = bytes.NewReader([]byte(doc.HTML))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("wkhtmltopdf: %w (%s)", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
