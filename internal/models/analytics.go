package models

// TripTypeTally is a grouped count of records per event category.
type TripTypeTally struct {
	TripType string `db:"trip_type" json:"trip_type"`
	Count    int    `db:"count" json:"count"`
}

// TripRecordDetail is a trip record joined with its technician's sheet number.
type TripRecordDetail struct {
	TripRecord
	TechnicianNumber int64 `db:"technician_number" json:"technician_number"`
}

// TechnicianDistance joins a distance summary with the technician number.
type TechnicianDistance struct {
	TechnicianID  int64   `db:"technician_id" json:"technician_id"`
	TotalDistance float64 `db:"total_distance" json:"total_distance"`
	PointCount    int     `db:"point_count" json:"point_count"`
}
