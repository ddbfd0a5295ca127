package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error)
	Resolve(ctx context.Context, id, moderatorID, note string, resolvedAt time.Time) error
}

// FileReportRequest is the payload for reporting marketplace content.
type FileReportRequest struct {
	TargetType string `json:"target_type" validate:"required,oneof=request reply directory"`
	TargetID   string `json:"target_id" validate:"required"`
	Reason     string `json:"reason" validate:"required,max=2000"`
}

// ResolveReportRequest is the payload for closing a report.
type ResolveReportRequest struct {
	Note string `json:"note" validate:"omitempty,max=2000"`
}

// ReportPage is a paginated slice of moderation reports.
type ReportPage struct {
	Reports    []models.Report   `json:"reports"`
	Pagination models.Pagination `json:"pagination"`
}

// ReportService manages moderation reports.
type ReportService struct {
	repo      reportRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(repo reportRepository, validate *validator.Validate, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ReportService{repo: repo, validator: validate, logger: logger}
}

// File records a new open report from the reporter.
func (s *ReportService) File(ctx context.Context, reporterID string, req FileReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	report := &models.Report{
		ID:         uuid.NewString(),
		ReporterID: reporterID,
		TargetType: models.ReportTargetType(req.TargetType),
		TargetID:   req.TargetID,
		Reason:     strings.TrimSpace(req.Reason),
		Status:     models.ReportStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store report")
	}
	return report, nil
}

// List returns the moderation queue.
func (s *ReportService) List(ctx context.Context, filter models.ReportFilter) (*ReportPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	reports, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return &ReportPage{
		Reports: reports,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}, nil
}

// Resolve closes an open report with a moderator note.
func (s *ReportService) Resolve(ctx context.Context, reportID, moderatorID string, req ResolveReportRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}

	report, err := s.repo.GetByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	if report.Status == models.ReportStatusResolved {
		return appErrors.Clone(appErrors.ErrConflict, "report is already resolved")
	}

	if err := s.repo.Resolve(ctx, reportID, moderatorID, strings.TrimSpace(req.Note), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve report")
	}
	return nil
}
