package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

type dedupTripRepoMock struct {
	records    map[string][]models.TripRecord
	resetCalls []string
	marked     [][]int64
}

func (m *dedupTripRepoMock) ResetDuplicates(_ context.Context, batchID string) error {
	m.resetCalls = append(m.resetCalls, batchID)
	return nil
}

func (m *dedupTripRepoMock) ListByTechnician(_ context.Context, technicianID string) ([]models.TripRecord, error) {
	return m.records[technicianID], nil
}

func (m *dedupTripRepoMock) MarkDuplicates(_ context.Context, ids []int64) error {
	m.marked = append(m.marked, ids)
	return nil
}

type dedupTechnicianRepoMock struct {
	technicians []models.Technician
}

func (m *dedupTechnicianRepoMock) ListByBatch(_ context.Context, _ string) ([]models.Technician, error) {
	return m.technicians, nil
}

func ptrStr(s string) *string   { return &s }
func ptrF64(f float64) *float64 { return &f }
func at(h, m int) time.Time     { return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC) }

func TestDedupFlagsLaterRecordsWithSameIdentity(t *testing.T) {
	trips := &dedupTripRepoMock{records: map[string][]models.TripRecord{
		"tech-1": {
			{ID: 1, TripType: "punch_in", Location: ptrStr("Depot"), Latitude: ptrF64(1), Longitude: ptrF64(2), CreatedAt: at(8, 0)},
			{ID: 2, TripType: "punch_in", Location: ptrStr("Depot"), Latitude: ptrF64(1), Longitude: ptrF64(2), CreatedAt: at(9, 0)},
			{ID: 3, TripType: "punch_in", Location: ptrStr("Depot"), Latitude: ptrF64(1), Longitude: ptrF64(2), CreatedAt: at(10, 0)},
			{ID: 4, TripType: "punch_out", Location: ptrStr("Depot"), Latitude: ptrF64(1), Longitude: ptrF64(2), CreatedAt: at(17, 0)},
		},
	}}
	technicians := &dedupTechnicianRepoMock{technicians: []models.Technician{{ID: "tech-1", TechnicianID: 42}}}
	svc := NewDedupService(trips, technicians, nil, nil, nil)

	flagged, err := svc.Run(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, flagged)
	require.Len(t, trips.marked, 1)
	assert.Equal(t, []int64{2, 3}, trips.marked[0])
	assert.Equal(t, []string{"b1"}, trips.resetCalls)
}

func TestDedupTimestampsAreNotPartOfIdentity(t *testing.T) {
	// Same place, same category, different days: still one duplicate.
	trips := &dedupTripRepoMock{records: map[string][]models.TripRecord{
		"tech-1": {
			{ID: 1, TripType: "pickup", Location: ptrStr("Site A"), CreatedAt: at(8, 0)},
			{ID: 2, TripType: "pickup", Location: ptrStr("Site A"), CreatedAt: at(8, 0).Add(48 * time.Hour)},
		},
	}}
	technicians := &dedupTechnicianRepoMock{technicians: []models.Technician{{ID: "tech-1"}}}
	svc := NewDedupService(trips, technicians, nil, nil, nil)

	flagged, err := svc.Run(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)
	assert.Equal(t, []int64{2}, trips.marked[0])
}

func TestDedupDistinguishesAbsentFromZeroCoordinates(t *testing.T) {
	trips := &dedupTripRepoMock{records: map[string][]models.TripRecord{
		"tech-1": {
			{ID: 1, TripType: "punch_in", CreatedAt: at(8, 0)},
			{ID: 2, TripType: "punch_in", Latitude: ptrF64(0), Longitude: ptrF64(0), CreatedAt: at(8, 5)},
		},
	}}
	technicians := &dedupTechnicianRepoMock{technicians: []models.Technician{{ID: "tech-1"}}}
	svc := NewDedupService(trips, technicians, nil, nil, nil)

	flagged, err := svc.Run(context.Background(), "b1")
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestDedupLoneLatitudeDistinguishesRecords(t *testing.T) {
	// A record may carry only one coordinate half. Two records that differ
	// only in that half are distinct.
	trips := &dedupTripRepoMock{records: map[string][]models.TripRecord{
		"tech-1": {
			{ID: 1, TripType: "punch_in", Location: ptrStr("Depot"), Latitude: ptrF64(10), CreatedAt: at(8, 0)},
			{ID: 2, TripType: "punch_in", Location: ptrStr("Depot"), Latitude: ptrF64(20), CreatedAt: at(9, 0)},
		},
	}}
	technicians := &dedupTechnicianRepoMock{technicians: []models.Technician{{ID: "tech-1"}}}
	svc := NewDedupService(trips, technicians, nil, nil, nil)

	flagged, err := svc.Run(context.Background(), "b1")
	require.NoError(t, err)
	assert.Zero(t, flagged)
}

func TestDedupDoesNotCrossTechnicians(t *testing.T) {
	shared := models.TripRecord{TripType: "punch_in", Location: ptrStr("Depot"), CreatedAt: at(8, 0)}
	first := shared
	first.ID = 1
	second := shared
	second.ID = 2
	trips := &dedupTripRepoMock{records: map[string][]models.TripRecord{
		"tech-1": {first},
		"tech-2": {second},
	}}
	technicians := &dedupTechnicianRepoMock{technicians: []models.Technician{{ID: "tech-1"}, {ID: "tech-2"}}}
	svc := NewDedupService(trips, technicians, nil, nil, nil)

	flagged, err := svc.Run(context.Background(), "b1")
	require.NoError(t, err)
	assert.Zero(t, flagged)
}
