package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type reportRepoStub struct {
	reports map[string]*models.Report
}

func (s *reportRepoStub) Create(ctx context.Context, report *models.Report) error {
	s.reports[report.ID] = report
	return nil
}

func (s *reportRepoStub) GetByID(ctx context.Context, id string) (*models.Report, error) {
	if r, ok := s.reports[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *reportRepoStub) List(ctx context.Context, filter models.ReportFilter) ([]models.Report, int, error) {
	var out []models.Report
	for _, r := range s.reports {
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *reportRepoStub) Resolve(ctx context.Context, id, moderatorID, note string, resolvedAt time.Time) error {
	if r, ok := s.reports[id]; ok {
		r.Status = models.ReportStatusResolved
		r.ResolvedBy = &moderatorID
		r.ResolutionNote = &note
		r.ResolvedAt = &resolvedAt
	}
	return nil
}

func TestReportServiceFile(t *testing.T) {
	repo := &reportRepoStub{reports: map[string]*models.Report{}}
	svc := NewReportService(repo, nil, nil)

	report, err := svc.File(context.Background(), "user-1", FileReportRequest{
		TargetType: "request",
		TargetID:   "req-1",
		Reason:     "  spam listing  ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusOpen, report.Status)
	assert.Equal(t, "spam listing", report.Reason)
}

func TestReportServiceFileRejectsUnknownTarget(t *testing.T) {
	svc := NewReportService(&reportRepoStub{reports: map[string]*models.Report{}}, nil, nil)

	_, err := svc.File(context.Background(), "user-1", FileReportRequest{TargetType: "booking", TargetID: "b-1", Reason: "x"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestReportServiceResolveOnce(t *testing.T) {
	repo := &reportRepoStub{reports: map[string]*models.Report{}}
	svc := NewReportService(repo, nil, nil)

	report, err := svc.File(context.Background(), "user-1", FileReportRequest{TargetType: "reply", TargetID: "rep-1", Reason: "abuse"})
	require.NoError(t, err)

	require.NoError(t, svc.Resolve(context.Background(), report.ID, "mod-1", ResolveReportRequest{Note: "removed"}))
	stored := repo.reports[report.ID]
	assert.Equal(t, models.ReportStatusResolved, stored.Status)
	require.NotNil(t, stored.ResolvedBy)
	assert.Equal(t, "mod-1", *stored.ResolvedBy)

	err = svc.Resolve(context.Background(), report.ID, "mod-2", ResolveReportRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestReportServiceResolveMissing(t *testing.T) {
	svc := NewReportService(&reportRepoStub{reports: map[string]*models.Report{}}, nil, nil)

	err := svc.Resolve(context.Background(), "nope", "mod-1", ResolveReportRequest{})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
