package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/repository"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
	"github.com/thi-tutors/tutor-api/pkg/jobs"
	"github.com/thi-tutors/tutor-api/pkg/storage"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func (s *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if j, ok := s.jobs[id]; ok {
		copied := *j
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, j := range s.jobs {
		if j.Status == models.ExportStatusQueued {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	var out []models.ExportJob
	for _, j := range s.jobs {
		if j.Status == models.ExportStatusFinished && j.FinishedAt != nil && j.FinishedAt.Before(cutoff) {
			out = append(out, *j)
		}
	}
	return out, nil
}

type exportBookingRepoStub struct {
	rows []models.Booking
}

func (s *exportBookingRepoStub) ListBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	return s.rows, nil
}

type exportReportRepoStub struct {
	rows []models.Report
}

func (s *exportReportRepoStub) ListBetween(ctx context.Context, from, to time.Time) ([]models.Report, error) {
	return s.rows, nil
}

type exportQueueStub struct {
	enqueued []jobs.Job
}

func (s *exportQueueStub) Enqueue(job jobs.Job) error {
	s.enqueued = append(s.enqueued, job)
	return nil
}

func newExportFixture(t *testing.T) (*ExportService, *exportJobRepoStub, *exportQueueStub) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	repo := &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
	bookings := &exportBookingRepoStub{rows: []models.Booking{
		{ID: "b-1", SlotID: "slot-1", TutorID: "tutor-1", StudentID: "student-1", Status: models.BookingStatusConfirmed},
	}}
	reports := &exportReportRepoStub{}

	svc := NewExportService(repo, bookings, reports, store, signer, nil, nil, time.Hour)
	queue := &exportQueueStub{}
	svc.SetQueue(queue)
	return svc, repo, queue
}

func TestExportServiceCreateJobDispatches(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "user-1", CreateExportRequest{Type: "bookings", Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].Payload)
	assert.Contains(t, repo.jobs, job.ID)
}

func TestExportServiceCreateJobRejectsInvertedRange(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	from := time.Now()
	to := from.Add(-time.Hour)
	_, err := svc.CreateJob(context.Background(), "user-1", CreateExportRequest{Type: "bookings", Format: "csv", From: &from, To: &to})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportServiceProcessJobRendersCSV(t *testing.T) {
	svc, repo, queue := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "user-1", CreateExportRequest{Type: "bookings", Format: "csv"})
	require.NoError(t, err)

	require.NoError(t, svc.ProcessJob(context.Background(), queue.enqueued[0]))

	stored := repo.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	require.True(t, strings.HasPrefix(*stored.ResultURL, "/exports/download?token="))

	token := strings.TrimPrefix(*stored.ResultURL, "/exports/download?token=")
	download, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", download.ContentType)

	data, err := os.ReadFile(download.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "b-1")
}

func TestExportServiceGetStatusOwnership(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	job, err := svc.CreateJob(context.Background(), "user-1", CreateExportRequest{Type: "reports", Format: "pdf"})
	require.NoError(t, err)

	_, err = svc.GetStatus(context.Background(), job.ID, "someone-else", models.RoleMember)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	got, err := svc.GetStatus(context.Background(), job.ID, "mod-1", models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
}

func TestExportServiceResolveDownloadRejectsBadToken(t *testing.T) {
	svc, _, _ := newExportFixture(t)

	_, err := svc.ResolveDownload("not-a-token")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}
