package dto

// DistanceResult reports a computed distance for one technician.
type DistanceResult struct {
	TechnicianID  int64   `json:"technician_id"`
	TotalDistance float64 `json:"total_distance"`
	PointCount    int     `json:"point_count"`
}

// TechnicianDistanceSummary extends a result with the per-point average.
type TechnicianDistanceSummary struct {
	TechnicianID  int64   `json:"technician_id"`
	TotalDistance float64 `json:"total_distance"`
	PointCount    int     `json:"point_count"`
	AvgDistance   float64 `json:"avg_distance"`
}

// BatchDistanceSummary aggregates distance data across a batch.
type BatchDistanceSummary struct {
	TotalTechnicians int              `json:"total_technicians"`
	AvgDistance      float64          `json:"avg_distance"`
	MaxDistance      float64          `json:"max_distance"`
	MinDistance      float64          `json:"min_distance"`
	Technicians      []DistanceResult `json:"technicians"`
}

// TripLocation is one ordered geotagged point with a display label.
type TripLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"long"`
	Time      string  `json:"time"`
	TripType  string  `json:"trip_type"`
}
