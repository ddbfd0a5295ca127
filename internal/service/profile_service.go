package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type profileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type profileDirectoryRepository interface {
	Upsert(ctx context.Context, entry *models.DirectoryEntry) error
	SetListed(ctx context.Context, profileID string, listed bool) error
}

// UpdateProfileRequest is the payload for editing one's own profile.
type UpdateProfileRequest struct {
	FullName  *string  `json:"full_name" validate:"omitempty,max=120"`
	Program   *string  `json:"program" validate:"omitempty,max=120"`
	Year      *int     `json:"year" validate:"omitempty,min=1,max=10"`
	Contact   *string  `json:"contact" validate:"omitempty,max=200"`
	Courses   []string `json:"courses" validate:"omitempty,dive,max=80"`
	RateCents *int     `json:"rate_cents" validate:"omitempty,min=0"`
}

// ProfileService manages the private profile record and keeps the public
// directory mirror in sync for tutors.
type ProfileService struct {
	profiles  profileRepository
	directory profileDirectoryRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles profileRepository, directory profileDirectoryRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProfileService{profiles: profiles, directory: directory, cache: cache, validator: validate, logger: logger}
}

// Get returns the caller's profile.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	profile.PreferredRole = models.NormalizeRole(string(profile.PreferredRole))
	return profile, nil
}

// Update edits the caller's profile. When the caller operates as a tutor the
// directory mirror is refreshed and its visibility re-evaluated: a tutor is
// listed only while courses and contact are both present.
func (s *ProfileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	current, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			current = &models.Profile{ID: userID, PreferredRole: models.RoleLearner}
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
		}
	}

	applyProfileUpdate(current, req)
	current.UpdatedAt = time.Now().UTC()
	if err := s.profiles.Upsert(ctx, current); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store profile")
	}

	if models.NormalizeRole(string(current.PreferredRole)) == models.RoleTutor {
		if err := s.mirrorDirectory(ctx, current); err != nil {
			s.logger.Warn("failed to refresh directory entry", zap.String("profile_id", userID), zap.Error(err))
		}
		s.invalidateDirectory(ctx)
	}

	return current, nil
}

func (s *ProfileService) mirrorDirectory(ctx context.Context, profile *models.Profile) error {
	entry := &models.DirectoryEntry{
		ProfileID: profile.ID,
		FullName:  profile.FullName,
		Program:   profile.Program,
		Year:      profile.Year,
		Courses:   profile.Courses,
		RateCents: profile.RateCents,
		Contact:   profile.Contact,
		IsListed:  profile.ListableAsTutor(),
		UpdatedAt: time.Now().UTC(),
	}
	return s.directory.Upsert(ctx, entry)
}

func (s *ProfileService) invalidateDirectory(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "directory:*"); err != nil {
		s.logger.Warn("failed to invalidate directory cache", zap.Error(err))
	}
}

func applyProfileUpdate(profile *models.Profile, req UpdateProfileRequest) {
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		profile.FullName = &trimmed
	}
	if req.Program != nil {
		trimmed := strings.TrimSpace(*req.Program)
		profile.Program = &trimmed
	}
	if req.Year != nil {
		profile.Year = req.Year
	}
	if req.Contact != nil {
		trimmed := strings.TrimSpace(*req.Contact)
		profile.Contact = &trimmed
	}
	if req.Courses != nil {
		courses := make([]string, 0, len(req.Courses))
		for _, c := range req.Courses {
			if trimmed := strings.TrimSpace(c); trimmed != "" {
				courses = append(courses, trimmed)
			}
		}
		profile.Courses = courses
	}
	if req.RateCents != nil {
		profile.RateCents = req.RateCents
	}
}
