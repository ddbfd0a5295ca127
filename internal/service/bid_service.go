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

type bidRepository interface {
	Upsert(ctx context.Context, bid *models.Bid) error
	GetByID(ctx context.Context, id string) (*models.Bid, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Bid, error)
	UpdateStatus(ctx context.Context, id string, status models.BidStatus) error
}

type bidRequestRepository interface {
	GetByID(ctx context.Context, id string) (*models.HelpRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error
}

type bidProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// PlaceBidRequest is the payload for bidding on a help request.
type PlaceBidRequest struct {
	AmountCents int    `json:"amount_cents" validate:"min=0"`
	Message     string `json:"message" validate:"omitempty,max=2000"`
}

// BidService manages tutor bids on help requests.
type BidService struct {
	bids      bidRepository
	requests  bidRequestRepository
	profiles  bidProfileRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBidService constructs a BidService.
func NewBidService(bids bidRepository, requests bidRequestRepository, profiles bidProfileRepository, validate *validator.Validate, logger *zap.Logger) *BidService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &BidService{bids: bids, requests: requests, profiles: profiles, validator: validate, logger: logger}
}

// Place submits a bid on an open request. The bidder must currently operate
// as a tutor and the amount must meet the request's minimum offer. A repeat
// bid from the same tutor replaces the earlier one.
func (s *BidService) Place(ctx context.Context, requestID, tutorID string, req PlaceBidRequest) (*models.Bid, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bid payload")
	}

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.Status != models.RequestStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrRequestClosed, "cannot bid on a closed request")
	}
	if request.StudentID == tutorID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot bid on your own request")
	}
	if req.AmountCents < request.MinOfferCents {
		return nil, appErrors.Clone(appErrors.ErrValidation, "bid is below the request's minimum offer")
	}

	profile, err := s.profiles.GetByID(ctx, tutorID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bidder profile")
	}
	if profile == nil || models.NormalizeRole(string(profile.PreferredRole)) != models.RoleTutor {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "switch to the tutor role to place bids")
	}

	now := time.Now().UTC()
	bid := &models.Bid{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		TutorID:     tutorID,
		AmountCents: req.AmountCents,
		Message:     strings.TrimSpace(req.Message),
		Status:      models.BidStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.bids.Upsert(ctx, bid); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store bid")
	}
	return bid, nil
}

// ListForRequest returns all bids on a request.
func (s *BidService) ListForRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	bids, err := s.bids.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bids")
	}
	return bids, nil
}

// Accept marks a bid accepted and closes its request. Only the request owner
// may accept.
func (s *BidService) Accept(ctx context.Context, bidID, callerID string) (*models.Bid, error) {
	bid, err := s.getBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if bid.Status != models.BidStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "bid is no longer active")
	}

	request, err := s.requests.GetByID(ctx, bid.RequestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if request.StudentID != callerID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the request owner can accept a bid")
	}
	if request.Status != models.RequestStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrRequestClosed, "request is already closed")
	}

	if err := s.bids.UpdateStatus(ctx, bidID, models.BidStatusAccepted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept bid")
	}
	if err := s.requests.UpdateStatus(ctx, bid.RequestID, models.RequestStatusClosed); err != nil {
		s.logger.Error("bid accepted but request close failed", zap.String("bid_id", bidID), zap.String("request_id", bid.RequestID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close request")
	}

	bid.Status = models.BidStatusAccepted
	return bid, nil
}

// Withdraw retracts the caller's own bid.
func (s *BidService) Withdraw(ctx context.Context, bidID, callerID string) error {
	bid, err := s.getBid(ctx, bidID)
	if err != nil {
		return err
	}
	if bid.TutorID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the bidder can withdraw a bid")
	}
	if bid.Status != models.BidStatusActive {
		return appErrors.Clone(appErrors.ErrConflict, "bid is no longer active")
	}
	if err := s.bids.UpdateStatus(ctx, bidID, models.BidStatusWithdrawn); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to withdraw bid")
	}
	return nil
}

func (s *BidService) getBid(ctx context.Context, id string) (*models.Bid, error) {
	bid, err := s.bids.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "bid not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bid")
	}
	return bid, nil
}
