package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
)

type distanceTripRepoMock struct {
	points map[string][]models.TripRecord
}

func (m *distanceTripRepoMock) ListGeotagged(_ context.Context, technicianID string) ([]models.TripRecord, error) {
	return m.points[technicianID], nil
}

type distanceTechRepoMock struct {
	technicians map[string]*models.Technician
}

func (m *distanceTechRepoMock) FindByID(_ context.Context, id string) (*models.Technician, error) {
	technician, ok := m.technicians[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return technician, nil
}

func (m *distanceTechRepoMock) FindByNumber(_ context.Context, batchID string, number int64) (*models.Technician, error) {
	for _, technician := range m.technicians {
		if technician.BatchID == batchID && technician.TechnicianID == number {
			return technician, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *distanceTechRepoMock) ListByBatch(_ context.Context, _ string) ([]models.Technician, error) {
	var out []models.Technician
	for _, technician := range m.technicians {
		out = append(out, *technician)
	}
	return out, nil
}

type distanceSummaryRepoMock struct {
	replaced []*models.DistanceSummary
	stored   map[string]*models.DistanceSummary
	byBatch  []models.TechnicianDistance
}

func (m *distanceSummaryRepoMock) Replace(_ context.Context, summary *models.DistanceSummary) error {
	m.replaced = append(m.replaced, summary)
	return nil
}

func (m *distanceSummaryRepoMock) FindByTechnician(_ context.Context, technicianID string) (*models.DistanceSummary, error) {
	summary, ok := m.stored[technicianID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return summary, nil
}

func (m *distanceSummaryRepoMock) ListByBatch(_ context.Context, _ string) ([]models.TechnicianDistance, error) {
	return m.byBatch, nil
}

func geoPoint(id int64, lat, lon float64, hour int) models.TripRecord {
	return models.TripRecord{ID: id, TripType: "start_trip", Latitude: ptrF64(lat), Longitude: ptrF64(lon), CreatedAt: at(hour, 0)}
}

func TestComputeForTechnicianSumsConsecutiveLegs(t *testing.T) {
	trips := &distanceTripRepoMock{points: map[string][]models.TripRecord{
		// One degree of latitude twice, out and back.
		"tech-1": {geoPoint(1, 0, 0, 8), geoPoint(2, 1, 0, 9), geoPoint(3, 0, 0, 10)},
	}}
	technicians := &distanceTechRepoMock{technicians: map[string]*models.Technician{"tech-1": {ID: "tech-1", TechnicianID: 42}}}
	summaries := &distanceSummaryRepoMock{}
	svc := NewDistanceService(trips, technicians, summaries, nil, nil)

	result, err := svc.ComputeForTechnician(context.Background(), "tech-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.TechnicianID)
	assert.Equal(t, 3, result.PointCount)
	assert.InDelta(t, 222.4, result.TotalDistance, 0.5)

	require.Len(t, summaries.replaced, 1)
	assert.Equal(t, result.TotalDistance, summaries.replaced[0].TotalDistance)
}

func TestComputeForTechnicianFewPointsStoresZero(t *testing.T) {
	technicians := &distanceTechRepoMock{technicians: map[string]*models.Technician{"tech-1": {ID: "tech-1", TechnicianID: 42}}}

	for name, points := range map[string][]models.TripRecord{
		"no points":  nil,
		"one point":  {geoPoint(1, 10, 10, 8)},
		"same place": {geoPoint(1, 10, 10, 8), geoPoint(2, 10, 10, 9)},
	} {
		t.Run(name, func(t *testing.T) {
			trips := &distanceTripRepoMock{points: map[string][]models.TripRecord{"tech-1": points}}
			summaries := &distanceSummaryRepoMock{}
			svc := NewDistanceService(trips, technicians, summaries, nil, nil)

			result, err := svc.ComputeForTechnician(context.Background(), "tech-1")
			require.NoError(t, err)
			assert.Zero(t, result.TotalDistance)
			assert.Equal(t, len(points), result.PointCount)
			require.Len(t, summaries.replaced, 1)
		})
	}
}

func TestComputeForNumberScopedToBatch(t *testing.T) {
	trips := &distanceTripRepoMock{points: map[string][]models.TripRecord{
		"tech-1": {geoPoint(1, 0, 0, 8), geoPoint(2, 1, 0, 9)},
	}}
	technicians := &distanceTechRepoMock{technicians: map[string]*models.Technician{
		"tech-1": {ID: "tech-1", TechnicianID: 42, BatchID: "b1"},
	}}
	svc := NewDistanceService(trips, technicians, &distanceSummaryRepoMock{}, nil, nil)

	result, err := svc.ComputeForNumber(context.Background(), "b1", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.TechnicianID)

	// The same sheet number under another batch is a different technician.
	_, err = svc.ComputeForNumber(context.Background(), "b2", 42)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestComputeForTechnicianUnknownTechnician(t *testing.T) {
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, &distanceSummaryRepoMock{}, nil, nil)

	_, err := svc.ComputeForTechnician(context.Background(), "missing")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestSummaryAggregatesBatch(t *testing.T) {
	summaries := &distanceSummaryRepoMock{byBatch: []models.TechnicianDistance{
		{TechnicianID: 7, TotalDistance: 10, PointCount: 4},
		{TechnicianID: 42, TotalDistance: 30, PointCount: 12},
	}}
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, summaries, nil, nil)

	summary, err := svc.Summary(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalTechnicians)
	assert.InDelta(t, 20.0, summary.AvgDistance, 1e-9)
	assert.InDelta(t, 30.0, summary.MaxDistance, 1e-9)
	assert.InDelta(t, 10.0, summary.MinDistance, 1e-9)
	require.Len(t, summary.Technicians, 2)
}

func TestSummaryEmptyBatch(t *testing.T) {
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, &distanceSummaryRepoMock{}, nil, nil)

	summary, err := svc.Summary(context.Background(), "b1")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalTechnicians)
	assert.Zero(t, summary.AvgDistance)
	assert.Empty(t, summary.Technicians)
}

func TestLocationsFallBackToPositionalNames(t *testing.T) {
	named := geoPoint(1, 1, 1, 8)
	named.Location = ptrStr("Depot")
	trips := &distanceTripRepoMock{points: map[string][]models.TripRecord{
		"tech-1": {named, geoPoint(2, 2, 2, 9)},
	}}
	technicians := &distanceTechRepoMock{technicians: map[string]*models.Technician{"tech-1": {ID: "tech-1", TechnicianID: 42}}}
	svc := NewDistanceService(trips, technicians, &distanceSummaryRepoMock{}, nil, nil)

	locations, err := svc.Locations(context.Background(), "tech-1")
	require.NoError(t, err)
	require.Len(t, locations, 2)
	assert.Equal(t, "Depot", locations[0].Name)
	assert.Equal(t, "Point 2", locations[1].Name)
	assert.Equal(t, "start_trip", locations[1].TripType)
}

func TestTechnicianSummaryMissingReadsZero(t *testing.T) {
	technicians := &distanceTechRepoMock{technicians: map[string]*models.Technician{"tech-1": {ID: "tech-1", TechnicianID: 42}}}
	svc := NewDistanceService(&distanceTripRepoMock{}, technicians, &distanceSummaryRepoMock{}, nil, nil)

	summary, err := svc.TechnicianSummary(context.Background(), "tech-1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), summary.TechnicianID)
	assert.Zero(t, summary.TotalDistance)
	assert.Zero(t, summary.AvgDistance)
}

func TestExportCSV(t *testing.T) {
	summaries := &distanceSummaryRepoMock{byBatch: []models.TechnicianDistance{
		{TechnicianID: 42, TotalDistance: 12.5, PointCount: 6},
	}}
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, summaries, nil, nil)

	data, err := svc.Export(context.Background(), "b1", "csv")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "technician_id,total_distance_km,point_count", lines[0])
	assert.Equal(t, "42,12.50,6", lines[1])
}

func TestExportPDF(t *testing.T) {
	summaries := &distanceSummaryRepoMock{byBatch: []models.TechnicianDistance{
		{TechnicianID: 42, TotalDistance: 12.5, PointCount: 6},
	}}
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, summaries, nil, nil)

	data, err := svc.Export(context.Background(), "b1", "pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := NewDistanceService(&distanceTripRepoMock{}, &distanceTechRepoMock{}, &distanceSummaryRepoMock{}, nil, nil)

	_, err := svc.Export(context.Background(), "b1", "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export format")
}
