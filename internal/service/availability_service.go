package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

const availabilityCacheKey = "availability:public"

type availabilityRepository interface {
	ListRaw(ctx context.Context, from time.Time) ([]map[string]interface{}, error)
	ListByTutor(ctx context.Context, tutorID string) ([]models.TutorAvailability, error)
	GetByID(ctx context.Context, id string) (*models.TutorAvailability, error)
	Insert(ctx context.Context, slot *models.TutorAvailability) error
	Delete(ctx context.Context, id, tutorID string) error
}

type availabilityDirectoryRepository interface {
	List(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, int, error)
}

// CreateSlotRequest is the payload for publishing a tutoring window.
type CreateSlotRequest struct {
	Start       time.Time `json:"start" validate:"required"`
	End         time.Time `json:"end" validate:"required"`
	Mode        string    `json:"mode" validate:"omitempty,oneof=online in-person in_person"`
	IsEmergency bool      `json:"is_emergency"`
}

// AvailabilityService serves the public availability feed and lets tutors
// manage their own slots. The public read path never fails hard: any storage
// error or empty result degrades to deterministic placeholder slots.
type AvailabilityService struct {
	repo         availabilityRepository
	directory    availabilityDirectoryRepository
	cache        *CacheService
	validator    *validator.Validate
	logger       *zap.Logger
	fallbackDays int
	cacheTTL     time.Duration
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(repo availabilityRepository, directory availabilityDirectoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, fallbackDays int, cacheTTL time.Duration) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if fallbackDays <= 0 {
		fallbackDays = 10
	}
	return &AvailabilityService{
		repo:         repo,
		directory:    directory,
		cache:        cache,
		validator:    validate,
		logger:       logger,
		fallbackDays: fallbackDays,
		cacheTTL:     cacheTTL,
	}
}

// ListPublic returns the normalized upcoming slots for all tutors. Rows are
// read in raw form so records written by older clients with drifting column
// names still surface. When the read fails or yields nothing, deterministic
// fallback slots seeded from the listed directory are returned instead.
func (s *AvailabilityService) ListPublic(ctx context.Context) ([]models.AvailabilitySlot, error) {
	var cached []models.AvailabilitySlot
	if hit, err := s.cache.Get(ctx, availabilityCacheKey, &cached); err == nil && hit {
		return cached, nil
	}

	now := time.Now().UTC()
	records, err := s.repo.ListRaw(ctx, now)
	if err != nil {
		s.logger.Warn("availability read failed, serving fallback slots", zap.Error(err))
		return s.fallback(ctx, now), nil
	}

	slots := NormalizeSlots(records)
	if len(slots) == 0 {
		return s.fallback(ctx, now), nil
	}

	if err := s.cache.Set(ctx, availabilityCacheKey, slots, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache availability", zap.Error(err))
	}
	return slots, nil
}

// ListOwn returns the caller's stored slots.
func (s *AvailabilityService) ListOwn(ctx context.Context, tutorID string) ([]models.TutorAvailability, error) {
	slots, err := s.repo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability")
	}
	return slots, nil
}

// CreateSlot stores a new tutoring window for the caller.
func (s *AvailabilityService) CreateSlot(ctx context.Context, tutorID string, req CreateSlotRequest) (*models.TutorAvailability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}
	if !req.End.After(req.Start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot end must be after its start")
	}

	slot := &models.TutorAvailability{
		ID:          uuid.NewString(),
		TutorID:     tutorID,
		StartTime:   req.Start.UTC(),
		EndTime:     req.End.UTC(),
		Mode:        string(normalizeSlotMode(req.Mode)),
		IsEmergency: req.IsEmergency,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store slot")
	}

	s.invalidate(ctx)
	return slot, nil
}

// DeleteSlot removes one of the caller's slots.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, tutorID, slotID string) error {
	if err := s.repo.Delete(ctx, slotID, tutorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete slot")
	}
	s.invalidate(ctx)
	return nil
}

func (s *AvailabilityService) fallback(ctx context.Context, now time.Time) []models.AvailabilitySlot {
	var tutorIDs []string
	if s.directory != nil {
		entries, _, err := s.directory.List(ctx, models.DirectoryFilter{Page: 1, PageSize: 6})
		if err != nil {
			s.logger.Warn("directory read failed while seeding fallback", zap.Error(err))
		}
		for _, entry := range entries {
			tutorIDs = append(tutorIDs, entry.ProfileID)
		}
	}
	return FallbackSlots(tutorIDs, s.fallbackDays, now)
}

func (s *AvailabilityService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "availability:*"); err != nil {
		s.logger.Warn("failed to invalidate availability cache", zap.Error(err))
	}
}
