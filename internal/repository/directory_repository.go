package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// DirectoryRepository persists the public tutor directory.
type DirectoryRepository struct {
	db *sqlx.DB
}

// NewDirectoryRepository constructs the repository.
func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetByProfileID returns the directory row for a principal.
func (r *DirectoryRepository) GetByProfileID(ctx context.Context, profileID string) (*models.DirectoryEntry, error) {
	const query = `SELECT profile_id, full_name, program, year, courses, rate_cents, contact, is_listed, updated_at
FROM public_profiles WHERE profile_id = $1`
	var entry models.DirectoryEntry
	if err := r.db.GetContext(ctx, &entry, query, profileID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get directory entry: %w", err)
	}
	return &entry, nil
}

// Upsert creates or replaces the directory row for a principal.
func (r *DirectoryRepository) Upsert(ctx context.Context, entry *models.DirectoryEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	if entry.Courses == nil {
		entry.Courses = []string{}
	}
	const query = `INSERT INTO public_profiles (profile_id, full_name, program, year, courses, rate_cents, contact, is_listed, updated_at)
VALUES (:profile_id, :full_name, :program, :year, :courses, :rate_cents, :contact, :is_listed, :updated_at)
ON CONFLICT (profile_id) DO UPDATE
SET full_name = EXCLUDED.full_name,
    program = EXCLUDED.program,
    year = EXCLUDED.year,
    courses = EXCLUDED.courses,
    rate_cents = EXCLUDED.rate_cents,
    contact = EXCLUDED.contact,
    is_listed = EXCLUDED.is_listed,
    updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("upsert directory entry: %w", err)
	}
	return nil
}

// SetListed toggles visibility without touching display fields. Rows are
// hidden rather than deleted when a tutor switches back to learner mode.
func (r *DirectoryRepository) SetListed(ctx context.Context, profileID string, listed bool) error {
	const query = `UPDATE public_profiles SET is_listed = $2, updated_at = $3 WHERE profile_id = $1`
	if _, err := r.db.ExecContext(ctx, query, profileID, listed, time.Now().UTC()); err != nil {
		return fmt.Errorf("set directory listed: %w", err)
	}
	return nil
}

// List returns visible directory entries with total count.
func (r *DirectoryRepository) List(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, int, error) {
	baseQuery := `FROM public_profiles WHERE is_listed = TRUE`
	var conditions []string
	var args []interface{}

	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(courses)", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(program) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count directory entries: %w", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT profile_id, full_name, program, year, courses, rate_cents, contact, is_listed, updated_at %s
ORDER BY full_name ASC LIMIT $%d OFFSET $%d`, baseQuery, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	var entries []models.DirectoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list directory entries: %w", err)
	}
	return entries, total, nil
}
