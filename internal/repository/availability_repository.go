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

// AvailabilityRepository persists tutor availability slots.
//
// The read path for the public schedule returns raw column maps instead of a
// typed struct: the table has been populated by several generations of
// clients with drifting column usage, and the slot normalizer owns the job
// of shaping whatever is there into canonical slots.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListRaw returns every upcoming slot row as a raw key/value record.
func (r *AvailabilityRepository) ListRaw(ctx context.Context, from time.Time) ([]map[string]interface{}, error) {
	const query = `SELECT id, tutor_id, start_time, end_time, mode, is_emergency FROM tutor_availability
WHERE end_time > $1 ORDER BY start_time ASC`
	rows, err := r.db.QueryxContext(ctx, query, from)
	if err != nil {
		return nil, fmt.Errorf("list availability rows: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var records []map[string]interface{}
	for rows.Next() {
		record := map[string]interface{}{}
		if err := rows.MapScan(record); err != nil {
			return nil, fmt.Errorf("scan availability row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability rows: %w", err)
	}
	return records, nil
}

// ListByTutor returns a tutor's own slots in typed form.
func (r *AvailabilityRepository) ListByTutor(ctx context.Context, tutorID string) ([]models.TutorAvailability, error) {
	const query = `SELECT id, tutor_id, start_time, end_time, mode, is_emergency, created_at FROM tutor_availability
WHERE tutor_id = $1 ORDER BY start_time ASC`
	var slots []models.TutorAvailability
	if err := r.db.SelectContext(ctx, &slots, query, tutorID); err != nil {
		return nil, fmt.Errorf("list tutor slots: %w", err)
	}
	return slots, nil
}

// GetByID returns a single stored slot.
func (r *AvailabilityRepository) GetByID(ctx context.Context, id string) (*models.TutorAvailability, error) {
	const query = `SELECT id, tutor_id, start_time, end_time, mode, is_emergency, created_at FROM tutor_availability WHERE id = $1`
	var slot models.TutorAvailability
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return &slot, nil
}

// Insert stores a new slot row.
func (r *AvailabilityRepository) Insert(ctx context.Context, slot *models.TutorAvailability) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO tutor_availability (id, tutor_id, start_time, end_time, mode, is_emergency, created_at)
VALUES (:id, :tutor_id, :start_time, :end_time, :mode, :is_emergency, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

// Delete removes a slot owned by the given tutor. Returns sql.ErrNoRows when
// nothing matched, so callers can distinguish missing from foreign rows.
func (r *AvailabilityRepository) Delete(ctx context.Context, id, tutorID string) error {
	const query = `DELETE FROM tutor_availability WHERE id = $1 AND tutor_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, tutorID)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete slot result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
