package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/thi-tutors/tutor-api/internal/models"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
)

// RoleSession holds the cached marketplace role and profile snapshot for one
// authenticated principal. It is created at sign-in, refreshed on demand and
// torn down at sign-out; a single in-flight flag serializes role switches.
type RoleSession struct {
	mu          sync.Mutex
	principalID string
	email       string
	role        models.Role
	profile     *models.Profile
	switching   bool
}

// NewRoleSession builds a session in the learner baseline.
func NewRoleSession(principalID, email string) *RoleSession {
	return &RoleSession{
		principalID: principalID,
		email:       email,
		role:        models.RoleLearner,
	}
}

// PrincipalID returns the owning principal's identifier.
func (s *RoleSession) PrincipalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.principalID
}

// Role returns the locally cached role.
func (s *RoleSession) Role() models.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// Profile returns a copy of the cached profile snapshot, or nil.
func (s *RoleSession) Profile() *models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.profile == nil {
		return nil
	}
	cp := *s.profile
	return &cp
}

// SetLocal overrides the cached role without any remote effect. It exists
// for transient theming ahead of remote confirmation and is never a
// substitute for SwitchRole.
func (s *RoleSession) SetLocal(next models.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = next
}

func (s *RoleSession) apply(profile *models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = profile
	if profile != nil {
		s.role = models.NormalizeRole(string(profile.PreferredRole))
	}
}

func (s *RoleSession) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = models.RoleLearner
	s.profile = nil
}

// beginSwitch sets the in-flight flag; false means a switch is pending.
func (s *RoleSession) beginSwitch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.switching {
		return false
	}
	s.switching = true
	return true
}

func (s *RoleSession) endSwitch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switching = false
}

type roleProfileStore interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) error
}

type roleDirectoryStore interface {
	Upsert(ctx context.Context, entry *models.DirectoryEntry) error
	SetListed(ctx context.Context, profileID string, listed bool) error
}

// RoleService reconciles a session's cached role with the profile and public
// directory rows. Directory visibility obeys one invariant on every
// transition: a listed entry exists only while the principal is in tutor
// mode with at least one course and a contact on file.
type RoleService struct {
	profiles  roleProfileStore
	directory roleDirectoryStore
	cache     *CacheService
	logger    *zap.Logger
}

// NewRoleService constructs the service.
func NewRoleService(profiles roleProfileStore, directory roleDirectoryStore, cache *CacheService, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoleService{profiles: profiles, directory: directory, cache: cache, logger: logger}
}

// Refresh pulls authoritative remote state into the session. It is the
// single reconciliation point: called on session start and after every
// mutating operation. A missing profile is created lazily with learner
// defaults and the contact seeded from the principal's email. On remote
// failure the prior cached state is left untouched.
func (s *RoleService) Refresh(ctx context.Context, session *RoleSession) (*models.Profile, error) {
	if session == nil || session.PrincipalID() == "" {
		if session != nil {
			session.reset()
		}
		return nil, nil
	}

	id := session.PrincipalID()
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("profile load failed", zap.String("profile_id", id), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unable to load profile")
		}

		defaults := &models.Profile{
			ID:            id,
			PreferredRole: models.RoleLearner,
			Courses:       []string{},
		}
		if email := session.email; email != "" {
			defaults.Contact = &email
		}
		if err := s.profiles.Upsert(ctx, defaults); err != nil {
			s.logger.Warn("profile bootstrap failed", zap.String("profile_id", id), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unable to load profile")
		}
		profile, err = s.profiles.GetByID(ctx, id)
		if err != nil {
			s.logger.Warn("profile re-read failed", zap.String("profile_id", id), zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "unable to load profile")
		}
	}

	profile.PreferredRole = models.NormalizeRole(string(profile.PreferredRole))
	session.apply(profile)
	return session.Profile(), nil
}

// SwitchRole transitions the session to the requested role. The local role
// flips optimistically, then the profile and directory rows are updated in
// order; any failure rolls the local role back and surfaces the error while
// leaving the remote state as far as it got (the next Refresh reconciles).
// Switching to the current role is a no-op; a concurrent switch returns a
// conflict.
func (s *RoleService) SwitchRole(ctx context.Context, session *RoleSession, next models.Role) error {
	if session == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "sign in to switch roles")
	}
	if next != models.RoleLearner && next != models.RoleTutor {
		return appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}

	prev := session.Role()
	if next == prev {
		return nil
	}
	if !session.beginSwitch() {
		return appErrors.ErrSwitchInFlight
	}
	defer session.endSwitch()

	// Snapshot before the optimistic flip; directory fields mirror the
	// profile as it was when the switch began.
	snapshot := session.Profile()
	session.SetLocal(next)

	if err := s.applySwitch(ctx, session, snapshot, next); err != nil {
		session.SetLocal(prev)
		return err
	}

	if _, err := s.Refresh(ctx, session); err != nil {
		// The switch itself committed; reconciliation will be retried on the
		// next load.
		s.logger.Warn("post-switch refresh failed", zap.String("profile_id", session.PrincipalID()), zap.Error(err))
	}
	s.invalidateDirectory(ctx)
	return nil
}

func (s *RoleService) applySwitch(ctx context.Context, session *RoleSession, snapshot *models.Profile, next models.Role) error {
	id := session.PrincipalID()
	if id == "" {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "sign in to switch roles")
	}

	profile := snapshot
	if profile == nil {
		profile = &models.Profile{ID: id, Courses: []string{}}
	}
	profile.PreferredRole = next
	if err := s.profiles.Upsert(ctx, profile); err != nil {
		return switchError(err)
	}

	if next == models.RoleTutor {
		entry := &models.DirectoryEntry{
			ProfileID: id,
			FullName:  profile.FullName,
			Program:   profile.Program,
			Year:      profile.Year,
			Courses:   profile.Courses,
			RateCents: profile.RateCents,
			Contact:   profile.Contact,
			IsListed:  snapshot.ListableAsTutor(),
		}
		if err := s.directory.Upsert(ctx, entry); err != nil {
			return switchError(err)
		}
		return nil
	}

	if err := s.directory.SetListed(ctx, id, false); err != nil {
		return switchError(err)
	}
	return nil
}

func (s *RoleService) invalidateDirectory(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "directory:*"); err != nil {
		s.logger.Warn("directory cache invalidation failed", zap.Error(err))
	}
}

func switchError(err error) error {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "could not switch role"
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}
