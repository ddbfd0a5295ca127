package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// ReportRepository persists moderation reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusOpen
	}
	const query = `INSERT INTO reports (id, reporter_id, target_type, target_id, reason, status, created_at)
VALUES (:id, :reporter_id, :target_type, :target_id, :reason, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// GetByID returns a single report.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT id, reporter_id, target_type, target_id, reason, status, resolved_by, resolution_note, created_at, resolved_at
FROM reports WHERE id = $1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return &report, nil
}

// List returns reports matching the filter with total count.
func (r *ReportRepository) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	baseQuery := `FROM reports WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.TargetType != nil {
		conditions = append(conditions, fmt.Sprintf("target_type = $%d", len(args)+1))
		args = append(args, *filter.TargetType)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
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

	query := fmt.Sprintf(`SELECT id, reporter_id, target_type, target_id, reason, status, resolved_by, resolution_note, created_at, resolved_at %s
ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, baseQuery, len(args)+1, len(args)+2)
	args = append(args, pageSize, offset)

	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}

// Resolve closes a report with a moderator note.
func (r *ReportRepository) Resolve(ctx context.Context, id, moderatorID, note string, resolvedAt time.Time) error {
	const query = `UPDATE reports SET status = 'resolved', resolved_by = $2, resolution_note = $3, resolved_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, moderatorID, note, resolvedAt); err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	return nil
}

// ListBetween returns reports filed inside a window (used by exports).
func (r *ReportRepository) ListBetween(ctx context.Context, from, to time.Time) ([]models.Report, error) {
	const query = `SELECT id, reporter_id, target_type, target_id, reason, status, resolved_by, resolution_note, created_at, resolved_at
FROM reports WHERE created_at >= $1 AND created_at < $2 ORDER BY created_at ASC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, from, to); err != nil {
		return nil, fmt.Errorf("list reports between: %w", err)
	}
	return reports, nil
}
