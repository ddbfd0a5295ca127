package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type requestRepoStub struct {
	requests map[string]*models.HelpRequest
	replies  map[string][]models.Reply
}

func newRequestRepoStub() *requestRepoStub {
	return &requestRepoStub{requests: map[string]*models.HelpRequest{}, replies: map[string][]models.Reply{}}
}

func (s *requestRepoStub) Create(ctx context.Context, req *models.HelpRequest) error {
	s.requests[req.ID] = req
	return nil
}

func (s *requestRepoStub) GetByID(ctx context.Context, id string) (*models.HelpRequest, error) {
	if r, ok := s.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *requestRepoStub) List(ctx context.Context, filter models.RequestFilter) ([]models.HelpRequest, int, error) {
	var out []models.HelpRequest
	for _, r := range s.requests {
		if filter.Course != "" && r.Course != filter.Course {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *requestRepoStub) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	if r, ok := s.requests[id]; ok {
		r.Status = status
	}
	return nil
}

func (s *requestRepoStub) CreateReply(ctx context.Context, reply *models.Reply) error {
	s.replies[reply.RequestID] = append(s.replies[reply.RequestID], *reply)
	return nil
}

func (s *requestRepoStub) ListReplies(ctx context.Context, requestID string) ([]models.Reply, error) {
	return s.replies[requestID], nil
}

func TestRequestServiceCreateAndGet(t *testing.T) {
	repo := newRequestRepoStub()
	svc := NewRequestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), "student-1", CreateRequestRequest{
		Course:        "CS101",
		Title:         "pointers and slices",
		MinOfferCents: 1500,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusOpen, created.Status)
	assert.NotEmpty(t, created.ID)

	detail, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, detail.Request.ID)
	assert.Empty(t, detail.Replies)
}

func TestRequestServiceCreateRequiresTitle(t *testing.T) {
	svc := NewRequestService(newRequestRepoStub(), nil, nil)

	_, err := svc.Create(context.Background(), "student-1", CreateRequestRequest{Course: "CS101"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestRequestServiceReplyOnClosedRequest(t *testing.T) {
	repo := newRequestRepoStub()
	svc := NewRequestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), "student-1", CreateRequestRequest{Course: "CS101", Title: "help"})
	require.NoError(t, err)

	reply, err := svc.Reply(context.Background(), created.ID, "tutor-1", CreateReplyRequest{Body: "happy to help"})
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", reply.AuthorID)

	require.NoError(t, svc.Close(context.Background(), created.ID, "student-1", models.RoleMember))

	_, err = svc.Reply(context.Background(), created.ID, "tutor-1", CreateReplyRequest{Body: "still around?"})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRequestClosed.Code, appErr.Code)
}

func TestRequestServiceCloseAuthorization(t *testing.T) {
	repo := newRequestRepoStub()
	svc := NewRequestService(repo, nil, nil)

	created, err := svc.Create(context.Background(), "student-1", CreateRequestRequest{Course: "CS101", Title: "help"})
	require.NoError(t, err)

	err = svc.Close(context.Background(), created.ID, "stranger", models.RoleMember)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)

	// moderators may close requests they do not own
	require.NoError(t, svc.Close(context.Background(), created.ID, "mod-1", models.RoleModerator))
	assert.Equal(t, models.RequestStatusClosed, repo.requests[created.ID].Status)

	// closing an already closed request is a no-op
	require.NoError(t, svc.Close(context.Background(), created.ID, "student-1", models.RoleMember))
}

func TestRequestServiceGetMissing(t *testing.T) {
	svc := NewRequestService(newRequestRepoStub(), nil, nil)

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
