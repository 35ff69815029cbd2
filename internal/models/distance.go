package models

// DistanceSummary holds the computed travel distance for one technician.
// There is at most one row per technician; recomputation deletes and
// recreates it rather than updating in place.
type DistanceSummary struct {
	ID            string  `db:"id" json:"id"`
	TechnicianID  string  `db:"technician_id" json:"technician_id"`
	TotalDistance float64 `db:"total_distance" json:"total_distance"`
	PointCount    int     `db:"point_count" json:"point_count"`
}
