package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch-api/internal/dto"
	"github.com/tripwatch/tripwatch-api/internal/models"
	appErrors "github.com/tripwatch/tripwatch-api/pkg/errors"
	"github.com/tripwatch/tripwatch-api/pkg/spreadsheet"
)

// defaultFlushSize is the number of buffered rows written per insert.
const defaultFlushSize = 1000

// IngestBatchRepository describes batch persistence required by IngestService.
type IngestBatchRepository interface {
	Create(ctx context.Context, batch *models.ImportBatch) error
	FindByID(ctx context.Context, id string) (*models.ImportBatch, error)
	List(ctx context.Context) ([]models.ImportBatch, error)
	MarkProcessed(ctx context.Context, id string, rowCount int) error
	Delete(ctx context.Context, id string) error
}

// IngestTechnicianRepository describes technician persistence required by IngestService.
type IngestTechnicianRepository interface {
	Create(ctx context.Context, technician *models.Technician) error
	ListByBatch(ctx context.Context, batchID string) ([]models.Technician, error)
	CountByBatch(ctx context.Context, batchID string) (int, error)
}

// IngestTripRepository describes trip persistence required by IngestService.
type IngestTripRepository interface {
	BulkInsert(ctx context.Context, records []models.TripRecord) error
	CountByBatch(ctx context.Context, batchID, technicianID string, duplicatesOnly bool) (int, error)
	CountActiveByType(ctx context.Context, batchID, technicianID string) ([]models.TripTypeTally, error)
	SampleByBatch(ctx context.Context, batchID string, limit int) ([]models.TripRecordDetail, error)
	DateRange(ctx context.Context, batchID string) (*time.Time, *time.Time, error)
}

// FileStore abstracts where uploaded spreadsheets live.
type FileStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// Deduplicator runs duplicate detection over a batch.
type Deduplicator interface {
	Run(ctx context.Context, batchID string) (int, error)
}

// IngestService turns uploaded spreadsheets into batches of trip records.
type IngestService struct {
	batches     IngestBatchRepository
	technicians IngestTechnicianRepository
	trips       IngestTripRepository
	store       FileStore
	dedup       Deduplicator
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	flushSize   int
}

// NewIngestService constructs an IngestService.
func NewIngestService(batches IngestBatchRepository, technicians IngestTechnicianRepository, trips IngestTripRepository, store FileStore, dedup Deduplicator, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *IngestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		batches:     batches,
		technicians: technicians,
		trips:       trips,
		store:       store,
		dedup:       dedup,
		cache:       cache,
		metrics:     metrics,
		logger:      logger,
		flushSize:   defaultFlushSize,
	}
}

// Ingest stores the uploaded file, parses and cleans every row, persists the
// batch and runs duplicate detection. The whole import is discarded when any
// row fails required-field validation.
func (s *IngestService) Ingest(ctx context.Context, originalFilename string, r io.Reader) (*dto.IngestResult, error) {
	parser, err := spreadsheet.ForFilename(originalFilename, spreadsheet.DefaultParserConfig())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrIngest.Code, appErrors.ErrIngest.Status, err.Error())
	}

	batch := &models.ImportBatch{
		ID:               uuid.NewString(),
		OriginalFilename: filepath.Base(originalFilename),
	}
	batch.StoredFilename = batch.ID + "_" + batch.OriginalFilename

	if _, err := s.store.SaveStream(batch.StoredFilename, r); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		_ = s.store.Delete(batch.StoredFilename)
		return nil, fmt.Errorf("create batch: %w", err)
	}

	rowCount, technicianCount, err := s.importRows(ctx, batch, parser)
	if err != nil {
		s.discard(ctx, batch)
		return nil, err
	}

	if err := s.batches.MarkProcessed(ctx, batch.ID, rowCount); err != nil {
		return nil, fmt.Errorf("mark batch processed: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordRowsIngested(rowCount)
	}

	duplicates, err := s.dedup.Run(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("deduplicate batch: %w", err)
	}

	s.logger.Info("spreadsheet ingested",
		zap.String("batch_id", batch.ID),
		zap.String("filename", batch.OriginalFilename),
		zap.Int("rows", rowCount),
		zap.Int("technicians", technicianCount),
		zap.Int("duplicates", duplicates))

	return &dto.IngestResult{
		BatchID:         batch.ID,
		RowCount:        rowCount,
		TechnicianCount: technicianCount,
		DuplicateCount:  duplicates,
	}, nil
}

func (s *IngestService) importRows(ctx context.Context, batch *models.ImportBatch, parser spreadsheet.Parser) (int, int, error) {
	file, err := s.store.Open(batch.StoredFilename)
	if err != nil {
		return 0, 0, fmt.Errorf("reopen upload: %w", err)
	}
	defer file.Close() //nolint:errcheck

	result, err := parser.ParseStream(ctx, file)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrIngest.Code, appErrors.ErrIngest.Status, "unreadable spreadsheet")
	}

	cleaner := NewCleaner()
	technicianIDs := make(map[int64]string)
	buffer := make([]models.TripRecord, 0, s.flushSize)

	for i, rec := range result.Records {
		row, err := cleaner.CleanRow(rec)
		if err != nil {
			return 0, 0, appErrors.Wrap(err, appErrors.ErrIngest.Code, appErrors.ErrIngest.Status, fmt.Sprintf("row %d: %v", i+1, err))
		}

		techID, ok := technicianIDs[row.TechnicianID]
		if !ok {
			technician := &models.Technician{TechnicianID: row.TechnicianID, BatchID: batch.ID}
			if err := s.technicians.Create(ctx, technician); err != nil {
				return 0, 0, fmt.Errorf("create technician %d: %w", row.TechnicianID, err)
			}
			techID = technician.ID
			technicianIDs[row.TechnicianID] = techID
		}

		buffer = append(buffer, models.TripRecord{
			TechnicianID: techID,
			TripType:     row.TripType,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
			Location:     row.Location,
			Latitude:     row.Latitude,
			Longitude:    row.Longitude,
		})
		if len(buffer) >= s.flushSize {
			if err := s.trips.BulkInsert(ctx, buffer); err != nil {
				return 0, 0, err
			}
			buffer = buffer[:0]
		}
	}
	if err := s.trips.BulkInsert(ctx, buffer); err != nil {
		return 0, 0, err
	}

	return len(result.Records), len(technicianIDs), nil
}

// discard removes the partial batch after a failed import. The database
// cascade takes technicians and trip records with it.
func (s *IngestService) discard(ctx context.Context, batch *models.ImportBatch) {
	if err := s.batches.Delete(ctx, batch.ID); err != nil {
		s.logger.Warn("discard failed batch", zap.String("batch_id", batch.ID), zap.Error(err))
	}
	if err := s.store.Delete(batch.StoredFilename); err != nil {
		s.logger.Warn("discard stored upload", zap.String("filename", batch.StoredFilename), zap.Error(err))
	}
}

// Overview returns batch metadata together with headline stats and a sample
// of the stored rows.
func (s *IngestService) Overview(ctx context.Context, batchID string) (*dto.BatchOverview, error) {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}

	technicians, err := s.technicians.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	recordCount, err := s.trips.CountByBatch(ctx, batchID, "", false)
	if err != nil {
		return nil, err
	}
	duplicateCount, err := s.trips.CountByBatch(ctx, batchID, "", true)
	if err != nil {
		return nil, err
	}
	tallies, err := s.trips.CountActiveByType(ctx, batchID, "")
	if err != nil {
		return nil, err
	}

	stats := dto.BatchStats{
		RecordCount:     recordCount,
		TechnicianCount: len(technicians),
		DuplicateCount:  duplicateCount,
	}
	for _, tally := range tallies {
		stats.TripTypes = append(stats.TripTypes, dto.TripTypeTally{TripType: tally.TripType, Count: tally.Count})
	}

	minAt, maxAt, err := s.trips.DateRange(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if minAt != nil && maxAt != nil {
		stats.DateRange = &dto.DateRange{
			Start: minAt.Format(dto.DisplayTimeLayout),
			End:   maxAt.Format(dto.DisplayTimeLayout),
		}
	}

	sample, err := s.trips.SampleByBatch(ctx, batchID, 10)
	if err != nil {
		return nil, err
	}
	overview := &dto.BatchOverview{Batch: *batch, Technicians: technicians, Stats: stats}
	for _, record := range sample {
		overview.SampleRows = append(overview.SampleRows, dto.NewTripRow(record))
	}
	return overview, nil
}

// List returns all batches, newest first.
func (s *IngestService) List(ctx context.Context) ([]models.ImportBatch, error) {
	return s.batches.List(ctx)
}

// Technicians returns the technicians of a batch.
func (s *IngestService) Technicians(ctx context.Context, batchID string) ([]models.Technician, error) {
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return s.technicians.ListByBatch(ctx, batchID)
}

// Delete removes a batch, its stored upload and any cached analytics.
func (s *IngestService) Delete(ctx context.Context, batchID string) error {
	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("find batch: %w", err)
	}
	if err := s.batches.Delete(ctx, batchID); err != nil {
		return err
	}
	if err := s.store.Delete(batch.StoredFilename); err != nil {
		s.logger.Warn("delete stored upload", zap.String("filename", batch.StoredFilename), zap.Error(err))
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, analyticsCachePattern(batchID)); err != nil {
			s.logger.Warn("invalidate analytics cache", zap.String("batch_id", batchID), zap.Error(err))
		}
	}
	return nil
}
