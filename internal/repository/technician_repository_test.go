package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch-api/internal/models"
)

func TestTechnicianRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTechnicianRepository(db)

	mock.ExpectExec("INSERT INTO technicians").
		WithArgs(sqlmock.AnyArg(), int64(42), "b1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	technician := &models.Technician{TechnicianID: 42, BatchID: "b1"}
	require.NoError(t, repo.Create(context.Background(), technician))
	assert.NotEmpty(t, technician.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTechnicianRepositoryFindByNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTechnicianRepository(db)

	rows := sqlmock.NewRows([]string{"id", "technician_id", "batch_id"}).
		AddRow("tech-1", int64(42), "b1")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, technician_id, batch_id FROM technicians WHERE batch_id = $1 AND technician_id = $2")).
		WithArgs("b1", int64(42)).
		WillReturnRows(rows)

	technician, err := repo.FindByNumber(context.Background(), "b1", 42)
	require.NoError(t, err)
	assert.Equal(t, "tech-1", technician.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTechnicianRepositoryListAndCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTechnicianRepository(db)

	rows := sqlmock.NewRows([]string{"id", "technician_id", "batch_id"}).
		AddRow("tech-1", int64(7), "b1").
		AddRow("tech-2", int64(42), "b1")
	mock.ExpectQuery("SELECT .+ FROM technicians WHERE batch_id = .+ ORDER BY technician_id ASC").
		WithArgs("b1").
		WillReturnRows(rows)

	technicians, err := repo.ListByBatch(context.Background(), "b1")
	require.NoError(t, err)
	require.Len(t, technicians, 2)
	assert.Equal(t, int64(7), technicians[0].TechnicianID)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM technicians WHERE batch_id = $1")).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountByBatch(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
