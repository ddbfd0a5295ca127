package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// ProfileRepository persists private learner/tutor profiles keyed by user id.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID returns the profile for a principal.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	const query = `SELECT id, full_name, program, year, contact, courses, rate_cents, preferred_role, created_at, updated_at
FROM profiles WHERE id = $1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}

// Upsert creates or replaces the profile row. The write is idempotent so a
// lazy first-access create and a form save share one code path.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.Profile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if profile.Courses == nil {
		profile.Courses = []string{}
	}
	const query = `INSERT INTO profiles (id, full_name, program, year, contact, courses, rate_cents, preferred_role, created_at, updated_at)
VALUES (:id, :full_name, :program, :year, :contact, :courses, :rate_cents, :preferred_role, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE
SET full_name = EXCLUDED.full_name,
    program = EXCLUDED.program,
    year = EXCLUDED.year,
    contact = EXCLUDED.contact,
    courses = EXCLUDED.courses,
    rate_cents = EXCLUDED.rate_cents,
    preferred_role = EXCLUDED.preferred_role,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// UpdatePreferredRole flips only the preferred_role column.
func (r *ProfileRepository) UpdatePreferredRole(ctx context.Context, id string, role models.Role) error {
	const query = `UPDATE profiles SET preferred_role = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("update preferred role: %w", err)
	}
	return nil
}
