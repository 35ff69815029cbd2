package dto

import (
	"strconv"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// IngestResult summarises a successful spreadsheet import.
type IngestResult struct {
	BatchID         string `json:"batch_id"`
	RowCount        int    `json:"row_count"`
	TechnicianCount int    `json:"technician_count"`
	DuplicateCount  int    `json:"duplicate_count"`
}

// BatchStats carries headline numbers for a batch overview.
type BatchStats struct {
	RecordCount     int             `json:"record_count"`
	TechnicianCount int             `json:"technician_count"`
	DuplicateCount  int             `json:"duplicate_count"`
	TripTypes       []TripTypeTally `json:"trip_types,omitempty"`
	DateRange       *DateRange      `json:"date_range,omitempty"`
}

// BatchOverview combines batch metadata, stats and a data sample.
type BatchOverview struct {
	Batch       models.ImportBatch  `json:"batch"`
	Technicians []models.Technician `json:"technicians"`
	Stats       BatchStats          `json:"stats"`
	SampleRows  []TripRow           `json:"sample_rows"`
}

// TripRow is one trip record formatted for display.
type TripRow struct {
	ID           int64  `json:"id"`
	TechnicianID int64  `json:"technician_id"`
	TripType     string `json:"trip_type"`
	CreatedAt    string `json:"created_at"`
	Location     string `json:"location"`
	Latitude     string `json:"latitude"`
	Longitude    string `json:"longitude"`
	Duplicate    bool   `json:"duplicate"`
}

// DateRange is a formatted min/max timestamp pair.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DisplayTimeLayout is the timestamp format used in API payloads and reports.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// NewTripRow formats a joined trip record for display. Missing coordinates
// render as "N/A", present ones with six decimal places.
func NewTripRow(record models.TripRecordDetail) TripRow {
	row := TripRow{
		ID:           record.ID,
		TechnicianID: record.TechnicianNumber,
		TripType:     record.TripType,
		CreatedAt:    record.CreatedAt.Format(DisplayTimeLayout),
		Latitude:     FormatCoordinate(record.Latitude),
		Longitude:    FormatCoordinate(record.Longitude),
		Duplicate:    record.Duplicate,
	}
	if record.Location != nil {
		row.Location = *record.Location
	}
	return row
}

// FormatCoordinate renders a coordinate with six decimal places, or "N/A"
// when absent.
func FormatCoordinate(value *float64) string {
	if value == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*value, 'f', 6, 64)
}
