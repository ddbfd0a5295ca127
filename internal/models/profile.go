package models

import (
	"time"

	"github.com/lib/pq"
)

// Role is the marketplace mode a principal operates in. It lives on the
// profile row as preferred_role and drives navigation and data visibility.
type Role string

const (
	RoleLearner Role = "learner"
	RoleTutor   Role = "tutor"
)

// NormalizeRole maps any stored value other than the literal tutor role to
// learner. Legacy rows have carried values like "student" and "helper".
func NormalizeRole(raw string) Role {
	if raw == string(RoleTutor) {
		return RoleTutor
	}
	return RoleLearner
}

// Profile is the private learner/tutor preference record keyed by user id.
type Profile struct {
	ID            string         `db:"id" json:"id"`
	FullName      *string        `db:"full_name" json:"full_name,omitempty"`
	Program       *string        `db:"program" json:"program,omitempty"`
	Year          *int           `db:"year" json:"year,omitempty"`
	Contact       *string        `db:"contact" json:"contact,omitempty"`
	Courses       pq.StringArray `db:"courses" json:"courses"`
	RateCents     *int           `db:"rate_cents" json:"rate_cents,omitempty"`
	PreferredRole Role           `db:"preferred_role" json:"preferred_role"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// ListableAsTutor reports whether the profile carries enough data for a
// visible directory entry: at least one course and a non-empty contact.
func (p *Profile) ListableAsTutor() bool {
	if p == nil {
		return false
	}
	return len(p.Courses) > 0 && p.Contact != nil && *p.Contact != ""
}

// DirectoryEntry is the public tutor listing row, distinct from the private
// profile. It is only ever hidden (is_listed=false), never deleted.
type DirectoryEntry struct {
	ProfileID string         `db:"profile_id" json:"profile_id"`
	FullName  *string        `db:"full_name" json:"full_name,omitempty"`
	Program   *string        `db:"program" json:"program,omitempty"`
	Year      *int           `db:"year" json:"year,omitempty"`
	Courses   pq.StringArray `db:"courses" json:"courses"`
	RateCents *int           `db:"rate_cents" json:"rate_cents,omitempty"`
	Contact   *string        `db:"contact" json:"contact,omitempty"`
	IsListed  bool           `db:"is_listed" json:"is_listed"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// DirectoryFilter captures filtering options for the public tutor listing.
type DirectoryFilter struct {
	Course   string
	Search   string
	Page     int
	PageSize int
}
