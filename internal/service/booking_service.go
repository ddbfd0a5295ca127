package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
}

type bookingSlotRepository interface {
	GetByID(ctx context.Context, id string) (*models.TutorAvailability, error)
}

// BookingService books persisted availability slots for students. Slots that
// only exist as fallback placeholders have no stored row and can never be
// booked.
type BookingService struct {
	bookings bookingRepository
	slots    bookingSlotRepository
	cache    *CacheService
	logger   *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(bookings bookingRepository, slots bookingSlotRepository, cache *CacheService, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{bookings: bookings, slots: slots, cache: cache, logger: logger}
}

// Book confirms a booking for the student on the given slot id.
func (s *BookingService) Book(ctx context.Context, slotID, studentID string) (*models.Booking, error) {
	slot, err := s.slots.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrSlotNotBookable, "this slot cannot be booked")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load slot")
	}
	if slot.TutorID == studentID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot book your own slot")
	}
	if !slot.EndTime.After(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is in the past")
	}

	if existing, err := s.bookings.FindActiveBySlot(ctx, slotID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check slot availability")
		}
	} else if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "slot is already booked")
	}

	now := time.Now().UTC()
	booking := &models.Booking{
		ID:        uuid.NewString(),
		SlotID:    slot.ID,
		TutorID:   slot.TutorID,
		StudentID: studentID,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Status:    models.BookingStatusConfirmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store booking")
	}

	s.invalidate(ctx)
	return booking, nil
}

// Cancel marks a booking cancelled. Either participant may cancel.
func (s *BookingService) Cancel(ctx context.Context, bookingID, callerID string) error {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.StudentID != callerID && booking.TutorID != callerID {
		return appErrors.Clone(appErrors.ErrForbidden, "only a participant can cancel a booking")
	}
	if booking.Status == models.BookingStatusCancelled {
		return nil
	}
	if err := s.bookings.UpdateStatus(ctx, bookingID, models.BookingStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel booking")
	}
	s.invalidate(ctx)
	return nil
}

// ListMine returns bookings where the caller is student or tutor.
func (s *BookingService) ListMine(ctx context.Context, userID string) ([]models.Booking, error) {
	bookings, err := s.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	return bookings, nil
}

func (s *BookingService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "availability:*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
