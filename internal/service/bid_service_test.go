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

type bidRepoStub struct {
	bids map[string]*models.Bid
}

func newBidRepoStub() *bidRepoStub {
	return &bidRepoStub{bids: map[string]*models.Bid{}}
}

func (s *bidRepoStub) Upsert(ctx context.Context, bid *models.Bid) error {
	// replace an earlier bid from the same tutor on the same request
	for id, existing := range s.bids {
		if existing.RequestID == bid.RequestID && existing.TutorID == bid.TutorID {
			delete(s.bids, id)
		}
	}
	s.bids[bid.ID] = bid
	return nil
}

func (s *bidRepoStub) GetByID(ctx context.Context, id string) (*models.Bid, error) {
	if b, ok := s.bids[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bidRepoStub) ListByRequest(ctx context.Context, requestID string) ([]models.Bid, error) {
	var out []models.Bid
	for _, b := range s.bids {
		if b.RequestID == requestID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *bidRepoStub) UpdateStatus(ctx context.Context, id string, status models.BidStatus) error {
	if b, ok := s.bids[id]; ok {
		b.Status = status
	}
	return nil
}

type bidRequestRepoStub struct {
	requests map[string]*models.HelpRequest
}

func (s *bidRequestRepoStub) GetByID(ctx context.Context, id string) (*models.HelpRequest, error) {
	if r, ok := s.requests[id]; ok {
		return r, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bidRequestRepoStub) UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error {
	if r, ok := s.requests[id]; ok {
		r.Status = status
	}
	return nil
}

type bidProfileRepoStub struct {
	profiles map[string]*models.Profile
}

func (s *bidProfileRepoStub) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	if p, ok := s.profiles[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func openRequest(id, studentID string, minOffer int) *models.HelpRequest {
	return &models.HelpRequest{
		ID:            id,
		StudentID:     studentID,
		Title:         "need help with pointers",
		Course:        "CS101",
		MinOfferCents: minOffer,
		Status:        models.RequestStatusOpen,
		CreatedAt:     time.Now().UTC(),
	}
}

func tutorProfile(id string) *models.Profile {
	return &models.Profile{
		ID:            id,
		PreferredRole: models.RoleTutor,
		Contact:       strPtr(id + "@thi.de"),
		Courses:       []string{"CS101"},
	}
}

func newBidFixture() (*BidService, *bidRepoStub, *bidRequestRepoStub, *bidProfileRepoStub) {
	bids := newBidRepoStub()
	requests := &bidRequestRepoStub{requests: map[string]*models.HelpRequest{
		"req-1": openRequest("req-1", "student-1", 1500),
	}}
	profiles := &bidProfileRepoStub{profiles: map[string]*models.Profile{
		"tutor-1": tutorProfile("tutor-1"),
	}}
	return NewBidService(bids, requests, profiles, nil, nil), bids, requests, profiles
}

func TestBidServicePlace(t *testing.T) {
	svc, bids, _, _ := newBidFixture()

	bid, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000, Message: "  can do tonight  "})
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusActive, bid.Status)
	assert.Equal(t, "can do tonight", bid.Message)
	assert.Len(t, bids.bids, 1)
}

func TestBidServicePlaceReplacesEarlierBid(t *testing.T) {
	svc, bids, _, _ := newBidFixture()

	_, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000})
	require.NoError(t, err)
	second, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2500})
	require.NoError(t, err)

	require.Len(t, bids.bids, 1)
	assert.Equal(t, second.AmountCents, bids.bids[second.ID].AmountCents)
}

func TestBidServicePlaceBelowMinimum(t *testing.T) {
	svc, _, _, _ := newBidFixture()

	_, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 1000})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBidServicePlaceRequiresTutorRole(t *testing.T) {
	svc, _, _, profiles := newBidFixture()
	profiles.profiles["learner-1"] = &models.Profile{ID: "learner-1", PreferredRole: models.RoleLearner}

	_, err := svc.Place(context.Background(), "req-1", "learner-1", PlaceBidRequest{AmountCents: 2000})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBidServicePlaceOnClosedRequest(t *testing.T) {
	svc, _, requests, _ := newBidFixture()
	requests.requests["req-1"].Status = models.RequestStatusClosed

	_, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrRequestClosed.Code, appErr.Code)
}

func TestBidServicePlaceOnOwnRequest(t *testing.T) {
	svc, _, _, profiles := newBidFixture()
	profiles.profiles["student-1"] = tutorProfile("student-1")

	_, err := svc.Place(context.Background(), "req-1", "student-1", PlaceBidRequest{AmountCents: 2000})
	require.Error(t, err)
}

func TestBidServiceAcceptClosesRequest(t *testing.T) {
	svc, bids, requests, _ := newBidFixture()
	bid, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000})
	require.NoError(t, err)

	accepted, err := svc.Accept(context.Background(), bid.ID, "student-1")
	require.NoError(t, err)
	assert.Equal(t, models.BidStatusAccepted, accepted.Status)
	assert.Equal(t, models.BidStatusAccepted, bids.bids[bid.ID].Status)
	assert.Equal(t, models.RequestStatusClosed, requests.requests["req-1"].Status)
}

func TestBidServiceAcceptOwnerOnly(t *testing.T) {
	svc, _, _, _ := newBidFixture()
	bid, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), bid.ID, "someone-else")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestBidServiceWithdraw(t *testing.T) {
	svc, bids, _, _ := newBidFixture()
	bid, err := svc.Place(context.Background(), "req-1", "tutor-1", PlaceBidRequest{AmountCents: 2000})
	require.NoError(t, err)

	require.Error(t, svc.Withdraw(context.Background(), bid.ID, "someone-else"))
	require.NoError(t, svc.Withdraw(context.Background(), bid.ID, "tutor-1"))
	assert.Equal(t, models.BidStatusWithdrawn, bids.bids[bid.ID].Status)

	// withdrawn bids cannot be withdrawn again or accepted
	require.Error(t, svc.Withdraw(context.Background(), bid.ID, "tutor-1"))
	_, err = svc.Accept(context.Background(), bid.ID, "student-1")
	require.Error(t, err)
}
