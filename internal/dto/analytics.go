package dto

// TripTypeTally is a plain count for one event category.
type TripTypeTally struct {
	TripType string `json:"trip_type"`
	Count    int    `json:"count"`
}

// TripTypeShare is a count plus its share of the total, in percent.
type TripTypeShare struct {
	TripType   string  `json:"trip_type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// PunchHourBucket is one hour-of-day bucket in the punch-in histogram.
type PunchHourBucket struct {
	Hour  int    `json:"hour"`
	Count int    `json:"count"`
	Label string `json:"label"`
}

// PunchPair is a matched punch-in/punch-out on one calendar date.
type PunchPair struct {
	Date          string  `json:"date"`
	PunchIn       string  `json:"punch_in"`
	PunchOut      string  `json:"punch_out"`
	DurationHours float64 `json:"duration_hours"`
}

// PunchPairStats aggregates matched pair durations.
type PunchPairStats struct {
	TotalPairs  int     `json:"total_pairs"`
	AvgDuration float64 `json:"avg_duration"`
	MaxDuration float64 `json:"max_duration"`
	MinDuration float64 `json:"min_duration"`
	TotalHours  float64 `json:"total_hours"`
}

// PunchAnalysis combines the pair list with its statistics.
type PunchAnalysis struct {
	Pairs []PunchPair    `json:"pairs"`
	Stats PunchPairStats `json:"stats"`
}

// TechnicianSummary is the per-technician headline view.
type TechnicianSummary struct {
	TechnicianID  int64           `json:"technician_id"`
	TotalRecords  int             `json:"total_records"`
	PunchInCount  int             `json:"punch_in_count"`
	PunchOutCount int             `json:"punch_out_count"`
	TripTypes     []TripTypeTally `json:"trip_types"`
	DateRange     *DateRange      `json:"date_range,omitempty"`
}

// DailyPunchLog lists raw punch times grouped by calendar date.
type DailyPunchLog struct {
	Date          string   `json:"date"`
	PunchInTimes  []string `json:"punch_in_times"`
	PunchOutTimes []string `json:"punch_out_times"`
}

// TimelineEvent is one trip record formatted for timeline rendering.
type TimelineEvent struct {
	ID          int64  `json:"id"`
	TripType    string `json:"trip_type"`
	CreatedAt   string `json:"created_at"`
	Location    string `json:"location"`
	Coordinates string `json:"coordinates,omitempty"`
}

// DuplicateSummary describes flagged records within a batch.
type DuplicateSummary struct {
	TotalRecords     int             `json:"total_records"`
	DuplicateCount   int             `json:"duplicate_count"`
	DuplicatePercent float64         `json:"duplicate_percent"`
	TripTypes        []TripTypeTally `json:"trip_types"`
}
