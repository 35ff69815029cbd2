package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Record is one data row keyed by header name.
type Record map[string]string

// ParseResult carries the parsed table plus bookkeeping counters.
type ParseResult struct {
	Records     []Record
	TotalRows   int
	SkippedRows int
	Columns     []string
	Format      string
}

// HasColumn reports whether the parsed table carries the named header.
func (r *ParseResult) HasColumn(name string) bool {
	for _, col := range r.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// ParserConfig bounds parsing behaviour.
type ParserConfig struct {
	MaxFileSize    int64
	SkipEmptyRows  bool
	TrimWhitespace bool
}

// DefaultParserConfig returns sensible parsing defaults.
func DefaultParserConfig() *ParserConfig {
	return &ParserConfig{
		MaxFileSize:    20 * 1024 * 1024,
		SkipEmptyRows:  true,
		TrimWhitespace: true,
	}
}

// Parser reads one tabular document from a stream.
type Parser interface {
	ParseStream(ctx context.Context, r io.Reader) (*ParseResult, error)
	SupportedFormats() []string
}

// ForFilename picks a parser by file extension.
func ForFilename(filename string, config *ParserConfig) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return NewExcelParser(config), nil
	case ".csv":
		return NewCSVParser(config), nil
	default:
		return nil, fmt.Errorf("unsupported spreadsheet format: %s", filepath.Ext(filename))
	}
}

// bound wraps the stream with the configured size cap. Zero or negative
// means unbounded.
func (c *ParserConfig) bound(r io.Reader) io.Reader {
	if c.MaxFileSize <= 0 {
		return r
	}
	return &boundedReader{r: r, limit: c.MaxFileSize}
}

// boundedReader fails once more than limit bytes have been read.
type boundedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return n, fmt.Errorf("input exceeds %d byte limit", b.limit)
	}
	return n, err
}

// isEmptyRow checks if a row contains only empty strings.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
