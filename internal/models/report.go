package models

import "time"

// ReportFormat identifies the file format of a generated report.
type ReportFormat string

const (
	ReportFormatPDF  ReportFormat = "pdf"
	ReportFormatHTML ReportFormat = "html"
)

// Report is a generated document tied to one technician. The format reflects
// what was actually produced, which may differ from what was requested when
// PDF rendering degrades to HTML.
type Report struct {
	ID           string       `db:"id" json:"id"`
	TechnicianID string       `db:"technician_id" json:"technician_id"`
	Filename     string       `db:"filename" json:"filename"`
	Format       ReportFormat `db:"format" json:"format"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}
