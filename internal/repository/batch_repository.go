package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// BatchRepository manages persistence for import batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs a BatchRepository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new import batch record.
func (r *BatchRepository) Create(ctx context.Context, batch *models.ImportBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.UploadedAt.IsZero() {
		batch.UploadedAt = time.Now().UTC()
	}

	const query = `INSERT INTO import_batches (id, original_filename, stored_filename, uploaded_at, processed, row_count)
		VALUES (:id, :original_filename, :stored_filename, :uploaded_at, :processed, :row_count)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create import batch: %w", err)
	}
	return nil
}

// FindByID fetches a batch by ID.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.ImportBatch, error) {
	const query = `SELECT id, original_filename, stored_filename, uploaded_at, processed, row_count FROM import_batches WHERE id = $1`
	var batch models.ImportBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, err
	}
	return &batch, nil
}

// List returns batches ordered newest first.
func (r *BatchRepository) List(ctx context.Context) ([]models.ImportBatch, error) {
	const query = `SELECT id, original_filename, stored_filename, uploaded_at, processed, row_count FROM import_batches ORDER BY uploaded_at DESC`
	var batches []models.ImportBatch
	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}

// MarkProcessed flags the batch processed and records the ingested row count.
func (r *BatchRepository) MarkProcessed(ctx context.Context, id string, rowCount int) error {
	const query = `UPDATE import_batches SET processed = TRUE, row_count = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, rowCount); err != nil {
		return fmt.Errorf("mark batch processed: %w", err)
	}
	return nil
}

// Delete removes the batch. Technicians, trip records, distance summaries
// and reports go with it via ON DELETE CASCADE.
func (r *BatchRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM import_batches WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete import batch: %w", err)
	}
	return nil
}
