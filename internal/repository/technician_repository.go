package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// TechnicianRepository manages persistence for batch-scoped technicians.
type TechnicianRepository struct {
	db *sqlx.DB
}

// NewTechnicianRepository constructs a TechnicianRepository.
func NewTechnicianRepository(db *sqlx.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

// Create inserts a new technician record.
func (r *TechnicianRepository) Create(ctx context.Context, technician *models.Technician) error {
	if technician.ID == "" {
		technician.ID = uuid.NewString()
	}
	const query = `INSERT INTO technicians (id, technician_id, batch_id) VALUES (:id, :technician_id, :batch_id)`
	if _, err := r.db.NamedExecContext(ctx, query, technician); err != nil {
		return fmt.Errorf("create technician: %w", err)
	}
	return nil
}

// FindByID fetches a technician by ID.
func (r *TechnicianRepository) FindByID(ctx context.Context, id string) (*models.Technician, error) {
	const query = `SELECT id, technician_id, batch_id FROM technicians WHERE id = $1`
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, id); err != nil {
		return nil, err
	}
	return &technician, nil
}

// FindByNumber fetches the technician with the given sheet number within a batch.
func (r *TechnicianRepository) FindByNumber(ctx context.Context, batchID string, technicianID int64) (*models.Technician, error) {
	const query = `SELECT id, technician_id, batch_id FROM technicians WHERE batch_id = $1 AND technician_id = $2`
	var technician models.Technician
	if err := r.db.GetContext(ctx, &technician, query, batchID, technicianID); err != nil {
		return nil, err
	}
	return &technician, nil
}

// ListByBatch returns all technicians of a batch ordered by sheet number.
func (r *TechnicianRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Technician, error) {
	const query = `SELECT id, technician_id, batch_id FROM technicians WHERE batch_id = $1 ORDER BY technician_id ASC`
	var technicians []models.Technician
	if err := r.db.SelectContext(ctx, &technicians, query, batchID); err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	return technicians, nil
}

// CountByBatch returns the number of technicians in a batch.
func (r *TechnicianRepository) CountByBatch(ctx context.Context, batchID string) (int, error) {
	const query = `SELECT COUNT(*) FROM technicians WHERE batch_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, batchID); err != nil {
		return 0, fmt.Errorf("count technicians: %w", err)
	}
	return count, nil
}
