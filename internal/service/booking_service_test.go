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

type bookingRepoStub struct {
	bookings map[string]*models.Booking
	bySlot   map[string]*models.Booking
	created  []*models.Booking
}

func newBookingRepoStub() *bookingRepoStub {
	return &bookingRepoStub{bookings: map[string]*models.Booking{}, bySlot: map[string]*models.Booking{}}
}

func (s *bookingRepoStub) Create(ctx context.Context, booking *models.Booking) error {
	s.created = append(s.created, booking)
	s.bookings[booking.ID] = booking
	s.bySlot[booking.SlotID] = booking
	return nil
}

func (s *bookingRepoStub) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := s.bookings[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingRepoStub) FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error) {
	if b, ok := s.bySlot[slotID]; ok && b.Status == models.BookingStatusConfirmed {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var out []models.Booking
	for _, b := range s.bookings {
		if b.StudentID == userID || b.TutorID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (s *bookingRepoStub) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if b, ok := s.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

type bookingSlotStub struct {
	slots map[string]*models.TutorAvailability
}

func (s *bookingSlotStub) GetByID(ctx context.Context, id string) (*models.TutorAvailability, error) {
	if slot, ok := s.slots[id]; ok {
		return slot, nil
	}
	return nil, sql.ErrNoRows
}

func futureSlot(id, tutorID string) *models.TutorAvailability {
	return &models.TutorAvailability{
		ID:        id,
		TutorID:   tutorID,
		StartTime: time.Now().Add(24 * time.Hour),
		EndTime:   time.Now().Add(25 * time.Hour),
		Mode:      "online",
	}
}

func TestBookingServiceBook(t *testing.T) {
	slots := &bookingSlotStub{slots: map[string]*models.TutorAvailability{"slot-1": futureSlot("slot-1", "tutor-1")}}
	repo := newBookingRepoStub()
	svc := NewBookingService(repo, slots, nil, nil)

	booking, err := svc.Book(context.Background(), "slot-1", "student-1")
	require.NoError(t, err)
	assert.Equal(t, "tutor-1", booking.TutorID)
	assert.Equal(t, models.BookingStatusConfirmed, booking.Status)
}

func TestBookingServiceRejectsUnpersistedSlot(t *testing.T) {
	// a fallback slot id never resolves to a stored row
	slots := &bookingSlotStub{slots: map[string]*models.TutorAvailability{}}
	svc := NewBookingService(newBookingRepoStub(), slots, nil, nil)

	_, err := svc.Book(context.Background(), "demo-tutor-1-2030-01-01T10:00:00.000Z", "student-1")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrSlotNotBookable.Code, appErr.Code)
}

func TestBookingServiceRejectsOwnSlot(t *testing.T) {
	slots := &bookingSlotStub{slots: map[string]*models.TutorAvailability{"slot-1": futureSlot("slot-1", "tutor-1")}}
	svc := NewBookingService(newBookingRepoStub(), slots, nil, nil)

	_, err := svc.Book(context.Background(), "slot-1", "tutor-1")
	require.Error(t, err)
}

func TestBookingServiceRejectsDoubleBooking(t *testing.T) {
	slots := &bookingSlotStub{slots: map[string]*models.TutorAvailability{"slot-1": futureSlot("slot-1", "tutor-1")}}
	repo := newBookingRepoStub()
	svc := NewBookingService(repo, slots, nil, nil)

	_, err := svc.Book(context.Background(), "slot-1", "student-1")
	require.NoError(t, err)

	_, err = svc.Book(context.Background(), "slot-1", "student-2")
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestBookingServiceCancelByParticipantOnly(t *testing.T) {
	slots := &bookingSlotStub{slots: map[string]*models.TutorAvailability{"slot-1": futureSlot("slot-1", "tutor-1")}}
	repo := newBookingRepoStub()
	svc := NewBookingService(repo, slots, nil, nil)

	booking, err := svc.Book(context.Background(), "slot-1", "student-1")
	require.NoError(t, err)

	err = svc.Cancel(context.Background(), booking.ID, "stranger")
	require.Error(t, err)

	require.NoError(t, svc.Cancel(context.Background(), booking.ID, "tutor-1"))
	assert.Equal(t, models.BookingStatusCancelled, repo.bookings[booking.ID].Status)

	// cancelling twice is a no-op
	require.NoError(t, svc.Cancel(context.Background(), booking.ID, "student-1"))
}
