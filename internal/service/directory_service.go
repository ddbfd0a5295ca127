package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

type directoryRepository interface {
	List(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, int, error)
	GetByProfileID(ctx context.Context, profileID string) (*models.DirectoryEntry, error)
}

// DirectoryPage is a paginated slice of the public tutor listing.
type DirectoryPage struct {
	Entries    []models.DirectoryEntry `json:"entries"`
	Pagination models.Pagination       `json:"pagination"`
}

// DirectoryService serves the public tutor directory with a short-lived
// cache in front of it.
type DirectoryService struct {
	repo     directoryRepository
	cache    *CacheService
	logger   *zap.Logger
	cacheTTL time.Duration
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(repo directoryRepository, cache *CacheService, logger *zap.Logger, cacheTTL time.Duration) *DirectoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{repo: repo, cache: cache, logger: logger, cacheTTL: cacheTTL}
}

// List returns listed tutors matching the filter.
func (s *DirectoryService) List(ctx context.Context, filter models.DirectoryFilter) (*DirectoryPage, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	key := fmt.Sprintf("directory:list:%s:%s:%d:%d", filter.Course, filter.Search, filter.Page, filter.PageSize)
	var cached DirectoryPage
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tutors")
	}

	page := &DirectoryPage{
		Entries: entries,
		Pagination: models.Pagination{
			Page:       filter.Page,
			PageSize:   filter.PageSize,
			TotalCount: total,
		},
	}
	if err := s.cache.Set(ctx, key, page, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache directory page", zap.String("key", key), zap.Error(err))
	}
	return page, nil
}
