package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// ReportRepository manages persistence for generated reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report row.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO reports (id, technician_id, filename, format, created_at)
		VALUES (:id, :technician_id, :filename, :format, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID fetches a report by ID.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT id, technician_id, filename, format, created_at FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListByBatch returns every report generated for technicians of a batch,
// newest first.
func (r *ReportRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Report, error) {
	const query = `SELECT rep.id, rep.technician_id, rep.filename, rep.format, rep.created_at
		FROM reports rep
		JOIN technicians tech ON tech.id = rep.technician_id
		WHERE tech.batch_id = $1
		ORDER BY rep.created_at DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, batchID); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ListByTechnician returns a technician's reports, newest first.
func (r *ReportRepository) ListByTechnician(ctx context.Context, technicianID string) ([]models.Report, error) {
	const query = `SELECT id, technician_id, filename, format, created_at FROM reports
		WHERE technician_id = $1 ORDER BY created_at DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, technicianID); err != nil {
		return nil, fmt.Errorf("list technician reports: %w", err)
	}
	return reports, nil
}

// Delete removes a report row.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM reports WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}
