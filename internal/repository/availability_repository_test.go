package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
)

func TestAvailabilityRepositoryListRaw(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "tutor_id", "start_time", "end_time", "mode", "is_emergency"}).
		AddRow("slot-1", "u1", start, start.Add(time.Hour), "online", false)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, tutor_id, start_time, end_time, mode, is_emergency FROM tutor_availability")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	records, err := repo.ListRaw(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "u1", records[0]["tutor_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryInsertGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor_availability")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	slot := &models.TutorAvailability{
		TutorID:   "u1",
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
		Mode:      "online",
	}
	require.NoError(t, repo.Insert(context.Background(), slot))
	require.NotEmpty(t, slot.ID)
	require.False(t, slot.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDeleteMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tutor_availability")).
		WithArgs("slot-9", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "slot-9", "u1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
