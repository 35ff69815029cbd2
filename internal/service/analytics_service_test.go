package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
)

type analyticsTripRepoMock struct {
	tallies    []models.TripTypeTally
	dupTallies []models.TripTypeTally
	total      int
	duplicates int
	punchIns   []models.TripRecord
	punchOuts  []models.TripRecord
	records    []models.TripRecord
	dupPage    []models.TripRecordDetail
}

func (m *analyticsTripRepoMock) CountActiveByType(_ context.Context, _, _ string) ([]models.TripTypeTally, error) {
	return m.tallies, nil
}

func (m *analyticsTripRepoMock) CountDuplicatesByType(_ context.Context, _, _ string) ([]models.TripTypeTally, error) {
	return m.dupTallies, nil
}

func (m *analyticsTripRepoMock) CountByBatch(_ context.Context, _, _ string, duplicatesOnly bool) (int, error) {
	if duplicatesOnly {
		return m.duplicates, nil
	}
	return m.total, nil
}

func (m *analyticsTripRepoMock) ListActivePunches(_ context.Context, _, _ string, tripType models.TripType) ([]models.TripRecord, error) {
	if tripType == models.TripTypePunchIn {
		return m.punchIns, nil
	}
	return m.punchOuts, nil
}

func (m *analyticsTripRepoMock) ListActiveByTechnician(_ context.Context, _ string) ([]models.TripRecord, error) {
	return m.records, nil
}

func (m *analyticsTripRepoMock) ListDuplicatesPage(_ context.Context, _, _ string, _, _ int) ([]models.TripRecordDetail, int, error) {
	return m.dupPage, len(m.dupPage), nil
}

type analyticsTechRepoMock struct {
	technician *models.Technician
}

func (m *analyticsTechRepoMock) FindByID(_ context.Context, _ string) (*models.Technician, error) {
	if m.technician == nil {
		return nil, sql.ErrNoRows
	}
	return m.technician, nil
}

func (m *analyticsTechRepoMock) FindByNumber(_ context.Context, _ string, _ int64) (*models.Technician, error) {
	if m.technician == nil {
		return nil, sql.ErrNoRows
	}
	return m.technician, nil
}

func punch(tripType string, technicianID string, ts time.Time) models.TripRecord {
	return models.TripRecord{TripType: tripType, TechnicianID: technicianID, CreatedAt: ts}
}

func TestTripTypeDistribution(t *testing.T) {
	trips := &analyticsTripRepoMock{tallies: []models.TripTypeTally{
		{TripType: "punch_in", Count: 3},
		{TripType: "punch_out", Count: 1},
	}}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	shares, err := svc.TripTypeDistribution(context.Background(), "b1", "")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.InDelta(t, 75.0, shares[0].Percentage, 1e-9)
	assert.InDelta(t, 25.0, shares[1].Percentage, 1e-9)
}

func TestTripTypeDistributionEmptyBatch(t *testing.T) {
	svc := NewAnalyticsService(&analyticsTripRepoMock{}, &analyticsTechRepoMock{}, nil, nil)

	shares, err := svc.TripTypeDistribution(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Empty(t, shares)
}

func TestPunchHourHistogramAlwaysHas24Buckets(t *testing.T) {
	trips := &analyticsTripRepoMock{punchIns: []models.TripRecord{
		punch("punch_in", "tech-1", at(8, 0)),
		punch("punch_in", "tech-1", at(8, 45)),
		punch("punch_in", "tech-1", at(17, 5)),
	}}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	buckets, err := svc.PunchHourHistogram(context.Background(), "b1", "")
	require.NoError(t, err)
	require.Len(t, buckets, 24)
	assert.Equal(t, "0:00", buckets[0].Label)
	assert.Equal(t, "8:00", buckets[8].Label)
	assert.Equal(t, 2, buckets[8].Count)
	assert.Equal(t, 1, buckets[17].Count)
	assert.Zero(t, buckets[12].Count)
}

func TestPunchPairingGreedySameDate(t *testing.T) {
	trips := &analyticsTripRepoMock{
		punchIns: []models.TripRecord{
			punch("punch_in", "tech-1", at(8, 0)),
			punch("punch_in", "tech-1", at(9, 0)),
		},
		punchOuts: []models.TripRecord{
			punch("punch_out", "tech-1", at(8, 30)),
			punch("punch_out", "tech-1", at(17, 0)),
		},
	}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	analysis, err := svc.PunchPairing(context.Background(), "b1", "")
	require.NoError(t, err)
	require.Len(t, analysis.Pairs, 2)
	assert.InDelta(t, 0.5, analysis.Pairs[0].DurationHours, 1e-9)
	assert.InDelta(t, 8.0, analysis.Pairs[1].DurationHours, 1e-9)

	stats := analysis.Stats
	assert.Equal(t, 2, stats.TotalPairs)
	assert.InDelta(t, 8.5, stats.TotalHours, 1e-9)
	assert.InDelta(t, 4.25, stats.AvgDuration, 1e-9)
	assert.InDelta(t, 8.0, stats.MaxDuration, 1e-9)
	assert.InDelta(t, 0.5, stats.MinDuration, 1e-9)
}

func TestPunchPairingIgnoresUnmatchedAndCrossDate(t *testing.T) {
	trips := &analyticsTripRepoMock{
		punchIns: []models.TripRecord{
			// Punch-out is the day after, so no pair forms.
			punch("punch_in", "tech-1", at(22, 0)),
		},
		punchOuts: []models.TripRecord{
			punch("punch_out", "tech-1", at(6, 0).Add(24*time.Hour)),
		},
	}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	analysis, err := svc.PunchPairing(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.Pairs)
	assert.Zero(t, analysis.Stats.TotalPairs)
	assert.Zero(t, analysis.Stats.AvgDuration)
}

func TestPunchPairingDoesNotCrossTechnicians(t *testing.T) {
	trips := &analyticsTripRepoMock{
		punchIns:  []models.TripRecord{punch("punch_in", "tech-1", at(8, 0))},
		punchOuts: []models.TripRecord{punch("punch_out", "tech-2", at(17, 0))},
	}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	analysis, err := svc.PunchPairing(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.Pairs)
}

func TestPunchPairingOutBeforeInDoesNotMatch(t *testing.T) {
	trips := &analyticsTripRepoMock{
		punchIns:  []models.TripRecord{punch("punch_in", "tech-1", at(9, 0))},
		punchOuts: []models.TripRecord{punch("punch_out", "tech-1", at(8, 0))},
	}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	analysis, err := svc.PunchPairing(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Empty(t, analysis.Pairs)
}

func TestTechnicianSummary(t *testing.T) {
	technicians := &analyticsTechRepoMock{technician: &models.Technician{ID: "tech-1", TechnicianID: 42}}
	trips := &analyticsTripRepoMock{records: []models.TripRecord{
		punch("punch_in", "tech-1", at(8, 0)),
		punch("punch_out", "tech-1", at(17, 0)),
		punch("start_trip", "tech-1", at(9, 0)),
		punch("punch_in", "tech-1", at(8, 0).Add(24*time.Hour)),
	}}
	svc := NewAnalyticsService(trips, technicians, nil, nil)

	summary, err := svc.TechnicianSummary(context.Background(), "tech-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), summary.TechnicianID)
	assert.Equal(t, 4, summary.TotalRecords)
	assert.Equal(t, 2, summary.PunchInCount)
	assert.Equal(t, 1, summary.PunchOutCount)
	require.NotNil(t, summary.DateRange)
	assert.Equal(t, "2026-03-02 08:00:00", summary.DateRange.Start)
	assert.Equal(t, "2026-03-03 08:00:00", summary.DateRange.End)
	require.NotEmpty(t, summary.TripTypes)
	assert.Equal(t, "punch_in", summary.TripTypes[0].TripType)
}

func TestTechnicianSummaryUnknownTechnician(t *testing.T) {
	svc := NewAnalyticsService(&analyticsTripRepoMock{}, &analyticsTechRepoMock{}, nil, nil)

	_, err := svc.TechnicianSummary(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDailyPunchLogGroupsByDate(t *testing.T) {
	technicians := &analyticsTechRepoMock{technician: &models.Technician{ID: "tech-1", TechnicianID: 42}}
	trips := &analyticsTripRepoMock{records: []models.TripRecord{
		punch("punch_in", "tech-1", at(8, 0)),
		punch("start_trip", "tech-1", at(9, 0)),
		punch("punch_out", "tech-1", at(17, 0)),
		punch("punch_in", "tech-1", at(8, 30).Add(24*time.Hour)),
	}}
	svc := NewAnalyticsService(trips, technicians, nil, nil)

	logs, err := svc.DailyPunchLog(context.Background(), "tech-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "2026-03-02", logs[0].Date)
	assert.Equal(t, []string{"08:00:00"}, logs[0].PunchInTimes)
	assert.Equal(t, []string{"17:00:00"}, logs[0].PunchOutTimes)
	assert.Equal(t, []string{"08:30:00"}, logs[1].PunchInTimes)
	assert.Empty(t, logs[1].PunchOutTimes)
}

func TestTimelineFormatsCoordinates(t *testing.T) {
	technicians := &analyticsTechRepoMock{technician: &models.Technician{ID: "tech-1", TechnicianID: 42}}
	located := punch("start_trip", "tech-1", at(9, 0))
	located.ID = 5
	located.Location = ptrStr("Depot")
	located.Latitude = ptrF64(52.52)
	located.Longitude = ptrF64(13.405)
	trips := &analyticsTripRepoMock{records: []models.TripRecord{
		punch("punch_in", "tech-1", at(8, 0)),
		located,
	}}
	svc := NewAnalyticsService(trips, technicians, nil, nil)

	events, err := svc.Timeline(context.Background(), "tech-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Empty(t, events[0].Coordinates)
	assert.Equal(t, "Depot", events[1].Location)
	assert.Equal(t, "52.520000, 13.405000", events[1].Coordinates)
}

func TestDuplicateSummaryPercentGuard(t *testing.T) {
	svc := NewAnalyticsService(&analyticsTripRepoMock{}, &analyticsTechRepoMock{}, nil, nil)

	summary, err := svc.DuplicateSummary(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Zero(t, summary.DuplicatePercent)
}

func TestDuplicateSummary(t *testing.T) {
	trips := &analyticsTripRepoMock{
		total:      8,
		duplicates: 2,
		dupTallies: []models.TripTypeTally{{TripType: "punch_in", Count: 2}},
	}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	summary, err := svc.DuplicateSummary(context.Background(), "b1", "")
	require.NoError(t, err)
	assert.Equal(t, 8, summary.TotalRecords)
	assert.Equal(t, 2, summary.DuplicateCount)
	assert.InDelta(t, 25.0, summary.DuplicatePercent, 1e-9)
	require.Len(t, summary.TripTypes, 1)
}

func TestDuplicateRecordsPagination(t *testing.T) {
	trips := &analyticsTripRepoMock{dupPage: []models.TripRecordDetail{
		{TripRecord: models.TripRecord{ID: 1, TripType: "punch_in", CreatedAt: at(8, 0), Duplicate: true}, TechnicianNumber: 42},
	}}
	svc := NewAnalyticsService(trips, &analyticsTechRepoMock{}, nil, nil)

	page, err := svc.DuplicateRecords(context.Background(), "b1", "", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Records, 1)
	assert.Equal(t, int64(42), page.Records[0].TechnicianID)
	assert.Equal(t, "N/A", page.Records[0].Latitude)
	assert.True(t, page.Records[0].Duplicate)
}
