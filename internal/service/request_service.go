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

type requestRepository interface {
	Create(ctx context.Context, req *models.HelpRequest) error
	GetByID(ctx context.Context, id string) (*models.HelpRequest, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.HelpRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error
	CreateReply(ctx context.Context, reply *models.Reply) error
	ListReplies(ctx context.Context, requestID string) ([]models.Reply, error)
}

// CreateRequestRequest is the payload for posting a help request.
type CreateRequestRequest struct {
	Course        string `json:"course" validate:"required,max=80"`
	Title         string `json:"title" validate:"required,max=160"`
	Description   string `json:"description" validate:"omitempty,max=4000"`
	MinOfferCents int    `json:"min_offer_cents" validate:"min=0"`
}

// CreateReplyRequest is the payload for replying under a request.
type CreateReplyRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

// RequestPage is a paginated slice of help requests.
type RequestPage struct {
	Requests   []models.HelpRequest `json:"requests"`
	Pagination models.Pagination    `json:"pagination"`
}

// RequestDetail is a request together with its reply thread.
type RequestDetail struct {
	Request models.HelpRequest `json:"request"`
	Replies []models.Reply     `json:"replies"`
}

// RequestService manages help requests and their reply threads.
type RequestService struct {
	repo      requestRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo requestRepository, validate *validator.Validate, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RequestService{repo: repo, validator: validate, logger: logger}
}

// Create posts a new open help request for the student.
func (s *RequestService) Create(ctx context.Context, studentID string, req CreateRequestRequest) (*models.HelpRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	now := time.Now().UTC()
	request := &models.HelpRequest{
		ID:            uuid.NewString(),
		StudentID:     studentID,
		Course:        strings.TrimSpace(req.Course),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		MinOfferCents: req.MinOfferCents,
		Status:        models.RequestStatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}
	return request, nil
}

// List returns requests matching the filter.
func (s *RequestService) List(ctx context.Context, filter models.RequestFilter) (*RequestPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return &RequestPage{
		Requests: requests,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}, nil
}

// Get returns a request with its reply thread.
func (s *RequestService) Get(ctx context.Context, id string) (*RequestDetail, error) {
	request, err := s.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	replies, err := s.repo.ListReplies(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list replies")
	}
	return &RequestDetail{Request: *request, Replies: replies}, nil
}

// Reply appends a message to an open request's thread.
func (s *RequestService) Reply(ctx context.Context, requestID, authorID string, req CreateReplyRequest) (*models.Reply, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reply payload")
	}

	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrRequestClosed, "cannot reply to a closed request")
	}

	reply := &models.Reply{
		ID:        uuid.NewString(),
		RequestID: requestID,
		AuthorID:  authorID,
		Body:      strings.TrimSpace(req.Body),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateReply(ctx, reply); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store reply")
	}
	return reply, nil
}

// Close marks a request closed. Only the owner or a moderator may close it.
func (s *RequestService) Close(ctx context.Context, requestID, callerID string, callerRole models.UserRole) error {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if request.StudentID != callerID && callerRole != models.RoleModerator && callerRole != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only the request owner or a moderator can close it")
	}
	if request.Status == models.RequestStatusClosed {
		return nil
	}
	if err := s.repo.UpdateStatus(ctx, requestID, models.RequestStatusClosed); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close request")
	}
	return nil
}

func (s *RequestService) getRequest(ctx context.Context, id string) (*models.HelpRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}
