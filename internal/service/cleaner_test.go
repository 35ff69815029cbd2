package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch-api/pkg/spreadsheet"
)

func TestCleanRowFullRecord(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "42",
		"trip_type":     " Punch_In ",
		"created_at":    "2026-03-02 08:15:00",
		"updated_at":    "2026-03-02 08:16:00",
		"location":      "Depot North",
		"latitude":      "52.52",
		"longitude":     "13.405",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(42), row.TechnicianID)
	assert.Equal(t, "punch_in", row.TripType)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC), row.CreatedAt)
	require.NotNil(t, row.UpdatedAt)
	require.NotNil(t, row.Location)
	assert.Equal(t, "Depot North", *row.Location)
	require.NotNil(t, row.Latitude)
	assert.InDelta(t, 52.52, *row.Latitude, 1e-9)
}

func TestCleanRowCoordinateAliases(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "start_trip",
		"created_at":    "2026-03-02T09:00:00Z",
		"lat":           "1.5",
		"long":          "103.8",
	})
	require.NoError(t, err)
	require.NotNil(t, row.Latitude)
	assert.InDelta(t, 1.5, *row.Latitude, 1e-9)
	require.NotNil(t, row.Longitude)
	assert.InDelta(t, 103.8, *row.Longitude, 1e-9)
}

func TestCleanRowCanonicalColumnWinsOverAlias(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "end_trip",
		"created_at":    "2026-03-02 10:00",
		"latitude":      "50.0",
		"lat":           "-90.0",
		"longitude":     "8.0",
	})
	require.NoError(t, err)
	require.NotNil(t, row.Latitude)
	assert.InDelta(t, 50.0, *row.Latitude, 1e-9)
}

func TestCleanRowKeepsLoneCoordinate(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "pickup",
		"created_at":    "2026-03-02",
		"latitude":      "50.0",
	})
	require.NoError(t, err)
	require.NotNil(t, row.Latitude)
	assert.InDelta(t, 50.0, *row.Latitude, 1e-9)
	assert.Nil(t, row.Longitude)
}

func TestCleanRowNonNumericCoordinateBecomesNil(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "delivery",
		"created_at":    "2026-03-02 11:00:00",
		"latitude":      "n/a",
		"longitude":     "13.4",
	})
	require.NoError(t, err)
	assert.Nil(t, row.Latitude)
	require.NotNil(t, row.Longitude)
	assert.InDelta(t, 13.4, *row.Longitude, 1e-9)
}

func TestCleanRowOutOfRangeCoordinatesBecomeNil(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "delivery",
		"created_at":    "2026-03-02 11:00:00",
		"latitude":      "95.0",
		"longitude":     "-180.0",
	})
	require.NoError(t, err)
	assert.Nil(t, row.Latitude)
	require.NotNil(t, row.Longitude)
	assert.InDelta(t, -180.0, *row.Longitude, 1e-9)

	row, err = cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "delivery",
		"created_at":    "2026-03-02 11:00:00",
		"longitude":     "181.0",
	})
	require.NoError(t, err)
	assert.Nil(t, row.Longitude)
}

func TestCleanRowEmptyCanonicalColumnIgnoresAlias(t *testing.T) {
	// The alias substitutes for a missing column, not for an empty cell.
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"trip_type":     "pickup",
		"created_at":    "2026-03-02 11:00:00",
		"latitude":      "",
		"lat":           "5.0",
	})
	require.NoError(t, err)
	assert.Nil(t, row.Latitude)
}

func TestCleanRowEmptyTripTypePassesThrough(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "7",
		"created_at":    "2026-03-02 11:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "", row.TripType)
}

func TestCleanRowTechnicianIDWithDecimalSuffix(t *testing.T) {
	cleaner := NewCleaner()

	row, err := cleaner.CleanRow(spreadsheet.Record{
		"technician_id": "42.0",
		"trip_type":     "punch_out",
		"created_at":    "2026-03-02 17:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), row.TechnicianID)
}

func TestCleanRowRejectsInvalidRequiredFields(t *testing.T) {
	cleaner := NewCleaner()

	cases := map[string]spreadsheet.Record{
		"missing technician": {"trip_type": "punch_in", "created_at": "2026-03-02 08:00:00"},
		"bad technician":     {"technician_id": "abc", "trip_type": "punch_in", "created_at": "2026-03-02 08:00:00"},
		"bad timestamp":      {"technician_id": "1", "trip_type": "punch_in", "created_at": "soon"},
		"empty timestamp":    {"technician_id": "1", "trip_type": "punch_in"},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := cleaner.CleanRow(rec)
			assert.Error(t, err)
		})
	}
}
