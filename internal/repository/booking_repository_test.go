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

func TestBookingRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	booking := &models.Booking{
		SlotID:    "slot-1",
		TutorID:   "tutor-1",
		StudentID: "student-1",
		StartTime: time.Now().Add(time.Hour),
		EndTime:   time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	require.NotEmpty(t, booking.ID)
	require.Equal(t, models.BookingStatusConfirmed, booking.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindActiveBySlot(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "slot_id", "tutor_id", "student_id", "start_time", "end_time", "status", "created_at", "updated_at"}).
		AddRow("b1", "slot-1", "tutor-1", "student-1", now, now.Add(time.Hour), "confirmed", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE slot_id = $1 AND status = 'confirmed'")).
		WithArgs("slot-1").
		WillReturnRows(rows)

	booking, err := repo.FindActiveBySlot(context.Background(), "slot-1")
	require.NoError(t, err)
	require.Equal(t, "b1", booking.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryFindActiveBySlotEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM bookings WHERE slot_id = $1")).
		WithArgs("slot-free").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActiveBySlot(context.Background(), "slot-free")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status")).
		WithArgs("b1", models.BookingStatusCancelled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "b1", models.BookingStatusCancelled))
	require.NoError(t, mock.ExpectationsWereMet())
}
