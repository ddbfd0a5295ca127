package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// BookingRepository persists slot bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// Create inserts a booking row.
func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = now
	}
	booking.UpdatedAt = now
	if booking.Status == "" {
		booking.Status = models.BookingStatusConfirmed
	}
	const query = `INSERT INTO bookings (id, slot_id, tutor_id, student_id, start_time, end_time, status, created_at, updated_at)
VALUES (:id, :slot_id, :tutor_id, :student_id, :start_time, :end_time, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

// GetByID returns a single booking.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	const query = `SELECT id, slot_id, tutor_id, student_id, start_time, end_time, status, created_at, updated_at
FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &booking, nil
}

// FindActiveBySlot returns the confirmed booking holding a slot, if any.
func (r *BookingRepository) FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error) {
	const query = `SELECT id, slot_id, tutor_id, student_id, start_time, end_time, status, created_at, updated_at
FROM bookings WHERE slot_id = $1 AND status = 'confirmed' LIMIT 1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, slotID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find booking by slot: %w", err)
	}
	return &booking, nil
}

// ListByUser returns bookings where the user is student or tutor.
func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	const query = `SELECT id, slot_id, tutor_id, student_id, start_time, end_time, status, created_at, updated_at
FROM bookings WHERE student_id = $1 OR tutor_id = $1 ORDER BY start_time DESC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, userID); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// ListBetween returns bookings overlapping a window (used by exports).
func (r *BookingRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	const query = `SELECT id, slot_id, tutor_id, student_id, start_time, end_time, status, created_at, updated_at
FROM bookings WHERE start_time >= $1 AND start_time < $2 ORDER BY start_time ASC`
	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("list bookings between: %w", err)
	}
	return bookings, nil
}

// UpdateStatus moves a booking through its lifecycle.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	const query = `UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	return nil
}
