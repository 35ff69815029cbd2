package models

import "time"

// ImportBatch represents one uploaded spreadsheet and everything derived
// from it. Deleting a batch cascades to its technicians, trip records,
// distance summaries and reports.
type ImportBatch struct {
	ID               string    `db:"id" json:"id"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StoredFilename   string    `db:"stored_filename" json:"-"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
	Processed        bool      `db:"processed" json:"processed"`
	RowCount         *int      `db:"row_count" json:"row_count,omitempty"`
}
