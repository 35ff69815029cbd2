package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

// tripColumns is the canonical select list for trip records.
const tripColumns = "id, technician_id, trip_type, created_at, updated_at, location, latitude, longitude, duplicate"

// TripRepository manages persistence for trip records.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository constructs a TripRepository.
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// BulkInsert writes a buffer of trip records in one statement. Callers flush
// in chunks; ids are assigned by the database in insertion order, which is
// what makes the (created_at, id) sort deterministic.
func (r *TripRepository) BulkInsert(ctx context.Context, records []models.TripRecord) error {
	if len(records) == 0 {
		return nil
	}
	const query = `INSERT INTO trip_records (technician_id, trip_type, created_at, updated_at, location, latitude, longitude, duplicate)
		VALUES (:technician_id, :trip_type, :created_at, :updated_at, :location, :latitude, :longitude, :duplicate)`
	if _, err := r.db.NamedExecContext(ctx, query, records); err != nil {
		return fmt.Errorf("bulk insert trip records: %w", err)
	}
	return nil
}

// ListByTechnician returns every record of a technician, flagged ones
// included, in deterministic time order.
func (r *TripRepository) ListByTechnician(ctx context.Context, technicianID string) ([]models.TripRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_records WHERE technician_id = $1 ORDER BY created_at ASC, id ASC`, tripColumns)
	var records []models.TripRecord
	if err := r.db.SelectContext(ctx, &records, query, technicianID); err != nil {
		return nil, fmt.Errorf("list trip records: %w", err)
	}
	return records, nil
}

// ListActiveByTechnician returns a technician's non-duplicate records in
// deterministic time order.
func (r *TripRepository) ListActiveByTechnician(ctx context.Context, technicianID string) ([]models.TripRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_records WHERE technician_id = $1 AND duplicate = FALSE ORDER BY created_at ASC, id ASC`, tripColumns)
	var records []models.TripRecord
	if err := r.db.SelectContext(ctx, &records, query, technicianID); err != nil {
		return nil, fmt.Errorf("list active trip records: %w", err)
	}
	return records, nil
}

// ListGeotagged returns the qualifying points for distance computation:
// non-duplicate records with both coordinates present, time-ordered.
func (r *TripRepository) ListGeotagged(ctx context.Context, technicianID string) ([]models.TripRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM trip_records
		WHERE technician_id = $1 AND duplicate = FALSE AND latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY created_at ASC, id ASC`, tripColumns)
	var records []models.TripRecord
	if err := r.db.SelectContext(ctx, &records, query, technicianID); err != nil {
		return nil, fmt.Errorf("list geotagged trip records: %w", err)
	}
	return records, nil
}

// ListActivePunches returns non-duplicate punch records of one kind, scoped
// to a batch and optionally one technician.
func (r *TripRepository) ListActivePunches(ctx context.Context, batchID, technicianID string, tripType models.TripType) ([]models.TripRecord, error) {
	query := fmt.Sprintf(`SELECT t.%s FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1 AND t.trip_type = $2 AND t.duplicate = FALSE`, joinedTripColumns())
	args := []interface{}{batchID, string(tripType)}
	if technicianID != "" {
		query += " AND t.technician_id = $3"
		args = append(args, technicianID)
	}
	query += " ORDER BY t.created_at ASC, t.id ASC"

	var records []models.TripRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list punch records: %w", err)
	}
	return records, nil
}

// CountActiveByType groups non-duplicate records per event category.
func (r *TripRepository) CountActiveByType(ctx context.Context, batchID, technicianID string) ([]models.TripTypeTally, error) {
	query := `SELECT t.trip_type, COUNT(*) AS count FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1 AND t.duplicate = FALSE`
	args := []interface{}{batchID}
	if technicianID != "" {
		query += " AND t.technician_id = $2"
		args = append(args, technicianID)
	}
	query += " GROUP BY t.trip_type ORDER BY count DESC"

	var tallies []models.TripTypeTally
	if err := r.db.SelectContext(ctx, &tallies, query, args...); err != nil {
		return nil, fmt.Errorf("count trip types: %w", err)
	}
	return tallies, nil
}

// CountDuplicatesByType groups flagged records per event category.
func (r *TripRepository) CountDuplicatesByType(ctx context.Context, batchID, technicianID string) ([]models.TripTypeTally, error) {
	query := `SELECT t.trip_type, COUNT(*) AS count FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1 AND t.duplicate = TRUE`
	args := []interface{}{batchID}
	if technicianID != "" {
		query += " AND t.technician_id = $2"
		args = append(args, technicianID)
	}
	query += " GROUP BY t.trip_type ORDER BY count DESC"

	var tallies []models.TripTypeTally
	if err := r.db.SelectContext(ctx, &tallies, query, args...); err != nil {
		return nil, fmt.Errorf("count duplicate trip types: %w", err)
	}
	return tallies, nil
}

// CountByBatch counts records in a batch, optionally per technician and
// optionally restricted to flagged duplicates.
func (r *TripRepository) CountByBatch(ctx context.Context, batchID, technicianID string, duplicatesOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1`
	args := []interface{}{batchID}
	if technicianID != "" {
		query += fmt.Sprintf(" AND t.technician_id = $%d", len(args)+1)
		args = append(args, technicianID)
	}
	if duplicatesOnly {
		query += " AND t.duplicate = TRUE"
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count trip records: %w", err)
	}
	return count, nil
}

// SampleByBatch returns the first rows of a batch for the overview page.
func (r *TripRepository) SampleByBatch(ctx context.Context, batchID string, limit int) ([]models.TripRecordDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT t.%s, tech.technician_id AS technician_number FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1
		ORDER BY t.created_at ASC, t.id ASC LIMIT %d`, joinedTripColumns(), limit)
	var records []models.TripRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, batchID); err != nil {
		return nil, fmt.Errorf("sample trip records: %w", err)
	}
	return records, nil
}

// ListDuplicatesPage returns one page of flagged records with the total count.
func (r *TripRepository) ListDuplicatesPage(ctx context.Context, batchID, technicianID string, page, pageSize int) ([]models.TripRecordDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	base := `FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1 AND t.duplicate = TRUE`
	args := []interface{}{batchID}
	if technicianID != "" {
		base += " AND t.technician_id = $2"
		args = append(args, technicianID)
	}

	query := fmt.Sprintf("SELECT t.%s, tech.technician_id AS technician_number %s ORDER BY tech.technician_id ASC, t.created_at ASC, t.id ASC LIMIT %d OFFSET %d",
		joinedTripColumns(), base, pageSize, offset)
	var records []models.TripRecordDetail
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list duplicate records: %w", err)
	}

	countQuery := "SELECT COUNT(*) " + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count duplicate records: %w", err)
	}

	return records, total, nil
}

// DateRange returns the min and max timestamps of a batch's records.
func (r *TripRepository) DateRange(ctx context.Context, batchID string) (*time.Time, *time.Time, error) {
	const query = `SELECT MIN(t.created_at) AS min_at, MAX(t.created_at) AS max_at FROM trip_records t
		JOIN technicians tech ON tech.id = t.technician_id
		WHERE tech.batch_id = $1`
	var row struct {
		MinAt *time.Time `db:"min_at"`
		MaxAt *time.Time `db:"max_at"`
	}
	if err := r.db.GetContext(ctx, &row, query, batchID); err != nil {
		return nil, nil, fmt.Errorf("batch date range: %w", err)
	}
	return row.MinAt, row.MaxAt, nil
}

// MarkDuplicates sets the duplicate flag on the given record ids.
func (r *TripRepository) MarkDuplicates(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE trip_records SET duplicate = TRUE WHERE id = ANY($1)`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("mark duplicates: %w", err)
	}
	return nil
}

// ResetDuplicates clears all duplicate flags within a batch so detection can
// recompute from scratch.
func (r *TripRepository) ResetDuplicates(ctx context.Context, batchID string) error {
	const query = `UPDATE trip_records SET duplicate = FALSE
		WHERE technician_id IN (SELECT id FROM technicians WHERE batch_id = $1)`
	if _, err := r.db.ExecContext(ctx, query, batchID); err != nil {
		return fmt.Errorf("reset duplicates: %w", err)
	}
	return nil
}

func joinedTripColumns() string {
	return "id, t.technician_id, t.trip_type, t.created_at, t.updated_at, t.location, t.latitude, t.longitude, t.duplicate"
}
