package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/repository"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
	"github.com/thi-tutors/tutor-api/pkg/export"
	"github.com/thi-tutors/tutor-api/pkg/jobs"
	"github.com/thi-tutors/tutor-api/pkg/storage"
)

const exportJobType = "export"

type exportJobRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id string) (*models.ExportJob, error)
	Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error
	ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error)
	ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error)
}

type exportBookingRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
}

type exportReportRepository interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]models.Report, error)
}

type exportQueue interface {
	Enqueue(job jobs.Job) error
}

// CreateExportRequest is the payload for requesting a data export.
type CreateExportRequest struct {
	Type   string     `json:"type" validate:"required,oneof=bookings reports"`
	Format string     `json:"format" validate:"required,oneof=csv pdf"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// ExportDownload resolves a signed token to a file on disk.
type ExportDownload struct {
	Path        string
	Filename    string
	ContentType string
}

// ExportService runs asynchronous CSV/PDF exports of marketplace data.
// Jobs are persisted, dispatched to a worker queue, rendered to local
// storage, and downloaded via short-lived signed tokens.
type ExportService struct {
	jobsRepo  exportJobRepository
	bookings  exportBookingRepository
	reports   exportReportRepository
	queue     exportQueue
	store     *storage.LocalStorage
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validator.Validate
	logger    *zap.Logger
	fileTTL   time.Duration
}

// NewExportService constructs an ExportService. The queue is attached later
// via SetQueue because the queue handler needs the service itself.
func NewExportService(jobsRepo exportJobRepository, bookings exportBookingRepository, reports exportReportRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, validate *validator.Validate, logger *zap.Logger, fileTTL time.Duration) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if fileTTL <= 0 {
		fileTTL = 24 * time.Hour
	}
	return &ExportService{
		jobsRepo:  jobsRepo,
		bookings:  bookings,
		reports:   reports,
		store:     store,
		signer:    signer,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
		fileTTL:   fileTTL,
	}
}

// SetQueue wires the dispatch queue.
func (s *ExportService) SetQueue(queue exportQueue) {
	s.queue = queue
}

// CreateJob persists a new export job and dispatches it to the queue.
func (s *ExportService) CreateJob(ctx context.Context, userID string, req CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload")
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export range end precedes its start")
	}

	job := &models.ExportJob{
		Type:      models.ExportType(req.Type),
		Params:    models.ExportJobParams{Format: models.ExportFormat(req.Format), From: req.From, To: req.To},
		Status:    models.ExportStatusQueued,
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobsRepo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}

	if err := s.dispatch(job.ID); err != nil {
		s.logger.Warn("export job created but dispatch failed, awaiting recovery", zap.String("job_id", job.ID), zap.Error(err))
	}
	return job, nil
}

// GetStatus returns a job for its owner or a moderator.
func (s *ExportService) GetStatus(ctx context.Context, jobID, callerID string, callerRole models.UserRole) (*models.ExportJob, error) {
	job, err := s.jobsRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export job")
	}
	if job.CreatedBy != callerID && callerRole != models.RoleModerator && callerRole != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to view this export job")
	}
	return job, nil
}

// ResolveDownload validates a signed token and resolves the stored file.
func (s *ExportService) ResolveDownload(token string) (*ExportDownload, error) {
	jobID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download token")
	}

	path := s.store.Path(relPath)
	if _, err := os.Stat(path); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
	}

	contentType := "text/csv"
	if len(relPath) > 4 && relPath[len(relPath)-4:] == ".pdf" {
		contentType = "application/pdf"
	}
	return &ExportDownload{
		Path:        path,
		Filename:    fmt.Sprintf("export-%s%s", jobID, relPath[len(relPath)-4:]),
		ContentType: contentType,
	}, nil
}

// ProcessJob is the queue handler rendering one export job.
func (s *ExportService) ProcessJob(ctx context.Context, qj jobs.Job) error {
	jobID, _ := qj.Payload.(string)
	if jobID == "" {
		jobID = qj.ID
	}

	job, err := s.jobsRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load export job %s: %w", jobID, err)
	}
	if job.Status == models.ExportStatusFinished {
		return nil
	}

	s.setStatus(ctx, job.ID, models.ExportStatusProcessing, 10, nil, nil)

	data, err := s.collect(ctx, job)
	if err != nil {
		s.fail(ctx, job.ID, err)
		return err
	}
	s.setStatus(ctx, job.ID, models.ExportStatusProcessing, 60, nil, nil)

	var payload []byte
	ext := ".csv"
	switch job.Params.Format {
	case models.ExportFormatPDF:
		ext = ".pdf"
		payload, err = s.pdf.Render(data, fmt.Sprintf("%s export", job.Type))
	default:
		payload, err = s.csv.Render(data)
	}
	if err != nil {
		s.fail(ctx, job.ID, err)
		return err
	}

	filename := job.ID + ext
	if _, err := s.store.Save(filename, payload); err != nil {
		s.fail(ctx, job.ID, err)
		return err
	}

	token, _, err := s.signer.Generate(job.ID, filename)
	if err != nil {
		s.fail(ctx, job.ID, err)
		return err
	}
	resultURL := "/exports/download?token=" + token
	now := time.Now().UTC()
	s.setStatus(ctx, job.ID, models.ExportStatusFinished, 100, &resultURL, &now)
	return nil
}

// RecoverQueued re-dispatches jobs that were queued when the process died.
func (s *ExportService) RecoverQueued(ctx context.Context) {
	queued, err := s.jobsRepo.ListQueued(ctx, 50)
	if err != nil {
		s.logger.Warn("failed to list queued export jobs", zap.Error(err))
		return
	}
	for _, job := range queued {
		if err := s.dispatch(job.ID); err != nil {
			s.logger.Warn("failed to requeue export job", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}

// CleanupExpired deletes stored files for jobs finished before the TTL.
func (s *ExportService) CleanupExpired(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.fileTTL)
	finished, err := s.jobsRepo.ListFinishedBefore(ctx, cutoff, 100)
	if err != nil {
		s.logger.Warn("failed to list finished export jobs", zap.Error(err))
		return
	}
	for _, job := range finished {
		for _, ext := range []string{".csv", ".pdf"} {
			if err := s.store.Delete(job.ID + ext); err != nil && !os.IsNotExist(err) {
				s.logger.Warn("failed to delete export file", zap.String("job_id", job.ID), zap.Error(err))
			}
		}
		empty := ""
		s.setStatus(ctx, job.ID, models.ExportStatusFinished, 100, &empty, nil)
	}

	// Sweep orphans whose job rows are gone.
	if _, err := s.store.CleanupOlderThan(s.fileTTL); err != nil {
		s.logger.Warn("export storage sweep failed", zap.Error(err))
	}
}

func (s *ExportService) dispatch(jobID string) error {
	if s.queue == nil {
		return errors.New("export queue not attached")
	}
	return s.queue.Enqueue(jobs.Job{ID: jobID, Type: exportJobType, Payload: jobID})
}

func (s *ExportService) collect(ctx context.Context, job *models.ExportJob) (export.Table, error) {
	from := time.Time{}
	to := time.Now().UTC().AddDate(1, 0, 0)
	if job.Params.From != nil {
		from = job.Params.From.UTC()
	}
	if job.Params.To != nil {
		to = job.Params.To.UTC()
	}

	switch job.Type {
	case models.ExportTypeBookings:
		rows, err := s.bookings.ListBetween(ctx, from, to)
		if err != nil {
			return export.Table{}, fmt.Errorf("collect bookings: %w", err)
		}
		return bookingsTable(rows), nil
	case models.ExportTypeReports:
		rows, err := s.reports.ListBetween(ctx, from, to)
		if err != nil {
			return export.Table{}, fmt.Errorf("collect reports: %w", err)
		}
		return reportsTable(rows), nil
	default:
		return export.Table{}, fmt.Errorf("unsupported export type %q", job.Type)
	}
}

func (s *ExportService) setStatus(ctx context.Context, jobID string, status models.ExportStatus, progress int, resultURL *string, finishedAt *time.Time) {
	err := s.jobsRepo.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:     &status,
		Progress:   &progress,
		ResultURL:  resultURL,
		FinishedAt: finishedAt,
	})
	if err != nil {
		s.logger.Warn("failed to update export job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *ExportService) fail(ctx context.Context, jobID string, cause error) {
	status := models.ExportStatusFailed
	message := cause.Error()
	now := time.Now().UTC()
	err := s.jobsRepo.Update(ctx, jobID, repository.UpdateExportJobParams{
		Status:       &status,
		ErrorMessage: &message,
		FinishedAt:   &now,
	})
	if err != nil {
		s.logger.Warn("failed to mark export job failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func bookingsTable(rows []models.Booking) export.Table {
	table := export.Table{Headers: []string{"id", "slot_id", "tutor_id", "student_id", "start", "end", "status"}}
	for _, b := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"id":         b.ID,
			"slot_id":    b.SlotID,
			"tutor_id":   b.TutorID,
			"student_id": b.StudentID,
			"start":      b.StartTime.UTC().Format(time.RFC3339),
			"end":        b.EndTime.UTC().Format(time.RFC3339),
			"status":     string(b.Status),
		})
	}
	return table
}

func reportsTable(rows []models.Report) export.Table {
	table := export.Table{Headers: []string{"id", "reporter_id", "target_type", "target_id", "status", "created_at", "resolved"}}
	for _, r := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"id":          r.ID,
			"reporter_id": r.ReporterID,
			"target_type": string(r.TargetType),
			"target_id":   r.TargetID,
			"status":      string(r.Status),
			"created_at":  r.CreatedAt.UTC().Format(time.RFC3339),
			"resolved":    strconv.FormatBool(r.Status == models.ReportStatusResolved),
		})
	}
	return table
}
