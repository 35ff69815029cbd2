package dto

// GenerateReportRequest selects the desired output format.
type GenerateReportRequest struct {
	Format string `json:"format" binding:"required,oneof=pdf html"`
}

// ReportResponse describes a generated report.
type ReportResponse struct {
	ID           string `json:"id"`
	TechnicianID int64  `json:"technician_id"`
	Format       string `json:"format"`
	Filename     string `json:"filename"`
	CreatedAt    string `json:"created_at"`
	Message      string `json:"message,omitempty"`
}

// DuplicateRecordsPage is a paginated slice of flagged records.
type DuplicateRecordsPage struct {
	Records    []TripRow `json:"records"`
	TotalCount int       `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}
