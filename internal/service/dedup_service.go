package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// DedupTripRepository describes the trip persistence required by DedupService.
type DedupTripRepository interface {
	ResetDuplicates(ctx context.Context, batchID string) error
	ListByTechnician(ctx context.Context, technicianID string) ([]models.TripRecord, error)
	MarkDuplicates(ctx context.Context, ids []int64) error
}

// DedupTechnicianRepository lists the technicians of a batch.
type DedupTechnicianRepository interface {
	ListByBatch(ctx context.Context, batchID string) ([]models.Technician, error)
}

// DedupService flags repeated trip records. Two records of the same
// technician count as duplicates when they share event category, location
// and coordinates; timestamps are deliberately not part of the identity.
type DedupService struct {
	trips       DedupTripRepository
	technicians DedupTechnicianRepository
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewDedupService constructs a DedupService.
func NewDedupService(trips DedupTripRepository, technicians DedupTechnicianRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *DedupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DedupService{trips: trips, technicians: technicians, cache: cache, metrics: metrics, logger: logger}
}

// Run recomputes duplicate flags for an entire batch from scratch and
// returns the number of records flagged. Existing flags are cleared first so
// repeated runs always converge on the same result.
func (s *DedupService) Run(ctx context.Context, batchID string) (int, error) {
	if err := s.trips.ResetDuplicates(ctx, batchID); err != nil {
		return 0, fmt.Errorf("reset duplicate flags: %w", err)
	}

	technicians, err := s.technicians.ListByBatch(ctx, batchID)
	if err != nil {
		return 0, fmt.Errorf("list technicians: %w", err)
	}

	flagged := 0
	for _, technician := range technicians {
		count, err := s.runForTechnician(ctx, technician.ID)
		if err != nil {
			return 0, fmt.Errorf("deduplicate technician %d: %w", technician.TechnicianID, err)
		}
		flagged += count
	}

	if s.metrics != nil {
		s.metrics.RecordDuplicatesFlagged(flagged)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, analyticsCachePattern(batchID)); err != nil {
			s.logger.Warn("invalidate analytics cache", zap.String("batch_id", batchID), zap.Error(err))
		}
	}

	s.logger.Info("deduplication finished",
		zap.String("batch_id", batchID),
		zap.Int("technicians", len(technicians)),
		zap.Int("flagged", flagged))
	return flagged, nil
}

// runForTechnician keeps the earliest record of each identity group. Records
// arrive ordered by creation time with the insertion id as tie break, so the
// first occurrence of a key is the one that survives.
func (s *DedupService) runForTechnician(ctx context.Context, technicianID string) (int, error) {
	records, err := s.trips.ListByTechnician(ctx, technicianID)
	if err != nil {
		return 0, err
	}

	seen := make(map[string]bool, len(records))
	var duplicateIDs []int64
	for _, record := range records {
		key := dedupKey(record)
		if seen[key] {
			duplicateIDs = append(duplicateIDs, record.ID)
			continue
		}
		seen[key] = true
	}

	if err := s.trips.MarkDuplicates(ctx, duplicateIDs); err != nil {
		return 0, err
	}
	return len(duplicateIDs), nil
}

// dedupKey builds the identity of a record. Absent optional fields are kept
// distinct from empty or zero values.
func dedupKey(record models.TripRecord) string {
	var b strings.Builder
	b.WriteString(record.TripType)
	b.WriteByte('\x1f')
	if record.Location != nil {
		b.WriteString(*record.Location)
	} else {
		b.WriteByte('\x00')
	}
	b.WriteByte('\x1f')
	writeCoordinate(&b, record.Latitude)
	b.WriteByte('\x1f')
	writeCoordinate(&b, record.Longitude)
	return b.String()
}

func writeCoordinate(b *strings.Builder, value *float64) {
	if value == nil {
		b.WriteByte('\x00')
		return
	}
	b.WriteString(strconv.FormatFloat(*value, 'g', -1, 64))
}

func analyticsCachePattern(batchID string) string {
	return "tripwatch:batch:" + batchID + ":*"
}
