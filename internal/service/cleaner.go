package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tripwatch/tripwatch-api/pkg/spreadsheet"
)

// CleanedRow is one spreadsheet row normalised into typed fields.
type CleanedRow struct {
	TechnicianID int64
	TripType     string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	Location     *string
	Latitude     *float64
	Longitude    *float64
}

// coordinateAliases maps shorthand column names onto canonical ones. An
// alias is consulted only when the sheet has no canonical column at all.
var coordinateAliases = map[string]string{
	"lat":  "latitude",
	"long": "longitude",
	"lng":  "longitude",
}

// timestampLayouts are tried in order when parsing time columns.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02",
}

// Cleaner normalises raw spreadsheet rows. It is stateless and safe for
// concurrent use.
type Cleaner struct{}

// NewCleaner constructs a Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// CleanRow validates and converts a raw row. Rows missing a technician id
// or a creation timestamp are rejected; every other field that fails to
// parse comes back nil or empty rather than failing the row.
func (c *Cleaner) CleanRow(rec spreadsheet.Record) (CleanedRow, error) {
	row := CleanedRow{}

	techRaw := strings.TrimSpace(rec["technician_id"])
	if techRaw == "" {
		return row, fmt.Errorf("missing technician_id")
	}
	// Sheets exported from numeric columns often carry a trailing ".0".
	techRaw = strings.TrimSuffix(techRaw, ".0")
	techID, err := strconv.ParseInt(techRaw, 10, 64)
	if err != nil {
		return row, fmt.Errorf("invalid technician_id %q", rec["technician_id"])
	}
	row.TechnicianID = techID

	// Event categories are not validated here. Unknown or empty values are
	// stored as-is and later behave as an unrecognised category.
	row.TripType = strings.ToLower(strings.TrimSpace(rec["trip_type"]))

	createdAt, err := parseTimestamp(rec["created_at"])
	if err != nil {
		return row, fmt.Errorf("invalid created_at %q", rec["created_at"])
	}
	row.CreatedAt = createdAt

	if updated, err := parseTimestamp(rec["updated_at"]); err == nil {
		row.UpdatedAt = &updated
	}

	if location := strings.TrimSpace(rec["location"]); location != "" {
		row.Location = &location
	}

	// Each coordinate stands on its own. A record may carry only one half;
	// distance computation requires both and skips such records itself.
	row.Latitude = parseCoordinate(rec, "latitude", 90)
	row.Longitude = parseCoordinate(rec, "longitude", 180)

	return row, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// parseCoordinate reads one coordinate column. Unparseable or out-of-range
// values come back nil.
func parseCoordinate(rec spreadsheet.Record, canonical string, bound float64) *float64 {
	raw, ok := rec[canonical]
	if !ok {
		for alias, target := range coordinateAliases {
			if target == canonical {
				if v, aliased := rec[alias]; aliased {
					raw = v
					break
				}
			}
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.Abs(value) > bound {
		return nil
	}
	return &value
}
