package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// DistanceRepository manages persistence for distance summaries.
type DistanceRepository struct {
	db *sqlx.DB
}

// NewDistanceRepository constructs a DistanceRepository.
func NewDistanceRepository(db *sqlx.DB) *DistanceRepository {
	return &DistanceRepository{db: db}
}

// Replace deletes any existing summary for the technician and inserts the
// new one, so recomputation never leaves a stale row behind.
func (r *DistanceRepository) Replace(ctx context.Context, summary *models.DistanceSummary) error {
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}

	const deleteQuery = `DELETE FROM distance_summaries WHERE technician_id = $1`
	if _, err := r.db.ExecContext(ctx, deleteQuery, summary.TechnicianID); err != nil {
		return fmt.Errorf("delete distance summary: %w", err)
	}

	const insertQuery = `INSERT INTO distance_summaries (id, technician_id, total_distance, point_count)
		VALUES (:id, :technician_id, :total_distance, :point_count)`
	if _, err := r.db.NamedExecContext(ctx, insertQuery, summary); err != nil {
		return fmt.Errorf("insert distance summary: %w", err)
	}
	return nil
}

// FindByTechnician fetches the summary of one technician.
func (r *DistanceRepository) FindByTechnician(ctx context.Context, technicianID string) (*models.DistanceSummary, error) {
	const query = `SELECT id, technician_id, total_distance, point_count FROM distance_summaries WHERE technician_id = $1`
	var summary models.DistanceSummary
	if err := r.db.GetContext(ctx, &summary, query, technicianID); err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListByBatch returns every summary in a batch joined with the technician's
// sheet number, ordered by that number.
func (r *DistanceRepository) ListByBatch(ctx context.Context, batchID string) ([]models.TechnicianDistance, error) {
	const query = `SELECT tech.technician_id, ds.total_distance, ds.point_count
		FROM distance_summaries ds
		JOIN technicians tech ON tech.id = ds.technician_id
		WHERE tech.batch_id = $1
		ORDER BY tech.technician_id ASC`
	var summaries []models.TechnicianDistance
	if err := r.db.SelectContext(ctx, &summaries, query, batchID); err != nil {
		return nil, fmt.Errorf("list distance summaries: %w", err)
	}
	return summaries, nil
}
