package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/export"
	"github.com/tripwatch/tripwatch-api/pkg/geo"
)

// DistanceTripRepository lists the points used for distance computation.
type DistanceTripRepository interface {
	ListGeotagged(ctx context.Context, technicianID string) ([]models.TripRecord, error)
}

// DistanceTechnicianRepository resolves technicians for distance work.
type DistanceTechnicianRepository interface {
	FindByID(ctx context.Context, id string) (*models.Technician, error)
	FindByNumber(ctx context.Context, batchID string, number int64) (*models.Technician, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Technician, error)
}

// DistanceSummaryRepository persists computed summaries.
type DistanceSummaryRepository interface {
	Replace(ctx context.Context, summary *models.DistanceSummary) error
	FindByTechnician(ctx context.Context, technicianID string) (*models.DistanceSummary, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.TechnicianDistance, error)
}

// DistanceService computes great-circle travel distance from ordered
// geotagged records and maintains the stored summaries.
type DistanceService struct {
	trips       DistanceTripRepository
	technicians DistanceTechnicianRepository
	summaries   DistanceSummaryRepository
	csvExporter *export.CSVExporter
	pdfExporter *export.PDFExporter
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewDistanceService constructs a DistanceService.
func NewDistanceService(trips DistanceTripRepository, technicians DistanceTechnicianRepository, summaries DistanceSummaryRepository, metrics *MetricsService, logger *zap.Logger) *DistanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistanceService{
		trips:       trips,
		technicians: technicians,
		summaries:   summaries,
		csvExporter: export.NewCSVExporter(),
		pdfExporter: export.NewPDFExporter(),
		metrics:     metrics,
		logger:      logger,
	}
}

// ComputeForTechnician recomputes and stores the distance summary of one
// technician. Fewer than two qualifying points yields a zero distance; the
// summary is stored regardless so reads never see a stale value.
func (s *DistanceService) ComputeForTechnician(ctx context.Context, technicianID string) (*dto.DistanceResult, error) {
	technician, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}

	points, err := s.trips.ListGeotagged(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for i := 1; i < len(points); i++ {
		prev, curr := points[i-1], points[i]
		total += geo.HaversineKm(*prev.Latitude, *prev.Longitude, *curr.Latitude, *curr.Longitude)
	}
	total = roundKm(total)

	start := time.Now()
	summary := &models.DistanceSummary{
		TechnicianID:  technicianID,
		TotalDistance: total,
		PointCount:    len(points),
	}
	if err := s.summaries.Replace(ctx, summary); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("distance_replace", time.Since(start))
	}

	return &dto.DistanceResult{
		TechnicianID:  technician.TechnicianID,
		TotalDistance: total,
		PointCount:    len(points),
	}, nil
}

// ComputeForNumber resolves a batch-scoped sheet number and recomputes that
// technician only. A number belonging to a different batch is not found.
func (s *DistanceService) ComputeForNumber(ctx context.Context, batchID string, number int64) (*dto.DistanceResult, error) {
	technician, err := s.technicians.FindByNumber(ctx, batchID, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician %d: %w", number, err)
	}
	return s.ComputeForTechnician(ctx, technician.ID)
}

// ComputeForBatch recomputes every technician of a batch.
func (s *DistanceService) ComputeForBatch(ctx context.Context, batchID string) ([]dto.DistanceResult, error) {
	technicians, err := s.technicians.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	results := make([]dto.DistanceResult, 0, len(technicians))
	for _, technician := range technicians {
		result, err := s.ComputeForTechnician(ctx, technician.ID)
		if err != nil {
			return nil, fmt.Errorf("compute distance for technician %d: %w", technician.TechnicianID, err)
		}
		results = append(results, *result)
	}

	s.logger.Info("batch distances computed", zap.String("batch_id", batchID), zap.Int("technicians", len(results)))
	return results, nil
}

// Summary aggregates the stored summaries of a batch.
func (s *DistanceService) Summary(ctx context.Context, batchID string) (*dto.BatchDistanceSummary, error) {
	rows, err := s.summaries.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	summary := &dto.BatchDistanceSummary{TotalTechnicians: len(rows)}
	if len(rows) == 0 {
		return summary, nil
	}

	totalSum := 0.0
	summary.MinDistance = rows[0].TotalDistance
	for _, row := range rows {
		summary.Technicians = append(summary.Technicians, dto.DistanceResult{
			TechnicianID:  row.TechnicianID,
			TotalDistance: row.TotalDistance,
			PointCount:    row.PointCount,
		})
		totalSum += row.TotalDistance
		if row.TotalDistance > summary.MaxDistance {
			summary.MaxDistance = row.TotalDistance
		}
		if row.TotalDistance < summary.MinDistance {
			summary.MinDistance = row.TotalDistance
		}
	}
	summary.AvgDistance = roundKm(totalSum / float64(len(rows)))
	return summary, nil
}

// TechnicianSummary returns the stored summary of one technician with the
// per-leg average. Missing summaries read as zero rather than an error.
func (s *DistanceService) TechnicianSummary(ctx context.Context, technicianID string) (*dto.TechnicianDistanceSummary, error) {
	technician, err := s.technicians.FindByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}

	out := &dto.TechnicianDistanceSummary{TechnicianID: technician.TechnicianID}
	summary, err := s.summaries.FindByTechnician(ctx, technicianID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, nil
		}
		return nil, err
	}
	out.TotalDistance = summary.TotalDistance
	out.PointCount = summary.PointCount
	if summary.PointCount > 1 {
		out.AvgDistance = roundKm(summary.TotalDistance / float64(summary.PointCount-1))
	}
	return out, nil
}

// Locations returns a technician's ordered geotagged points for map display.
// Unnamed places get a positional label.
func (s *DistanceService) Locations(ctx context.Context, technicianID string) ([]dto.TripLocation, error) {
	if _, err := s.technicians.FindByID(ctx, technicianID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find technician: %w", err)
	}

	points, err := s.trips.ListGeotagged(ctx, technicianID)
	if err != nil {
		return nil, err
	}

	locations := make([]dto.TripLocation, 0, len(points))
	for i, point := range points {
		name := fmt.Sprintf("Point %d", i+1)
		if point.Location != nil && *point.Location != "" {
			name = *point.Location
		}
		locations = append(locations, dto.TripLocation{
			Name:      name,
			Latitude:  *point.Latitude,
			Longitude: *point.Longitude,
			Time:      point.CreatedAt.Format(dto.DisplayTimeLayout),
			TripType:  point.TripType,
		})
	}
	return locations, nil
}

// Export renders the batch's distance summaries as a downloadable file.
// Supported formats are "csv" and "pdf".
func (s *DistanceService) Export(ctx context.Context, batchID, format string) ([]byte, error) {
	rows, err := s.summaries.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{
		Headers: []string{"technician_id", "total_distance_km", "point_count"},
		Numeric: []string{"total_distance_km", "point_count"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"technician_id":     strconv.FormatInt(row.TechnicianID, 10),
			"total_distance_km": strconv.FormatFloat(row.TotalDistance, 'f', 2, 64),
			"point_count":       strconv.Itoa(row.PointCount),
		})
	}

	switch format {
	case "pdf":
		return s.pdfExporter.Render(dataset, "Travel distances")
	case "csv":
		return s.csvExporter.Render(dataset)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "export format must be csv or pdf")
	}
}

func roundKm(v float64) float64 {
	return math.Round(v*100) / 100
}
