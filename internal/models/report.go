package models

import "time"

// ReportTargetType identifies what kind of content was reported.
type ReportTargetType string

const (
	ReportTargetRequest   ReportTargetType = "request"
	ReportTargetReply     ReportTargetType = "reply"
	ReportTargetDirectory ReportTargetType = "directory"
)

// ReportStatus captures the moderation lifecycle.
type ReportStatus string

const (
	ReportStatusOpen     ReportStatus = "open"
	ReportStatusResolved ReportStatus = "resolved"
)

// Report is a user-filed moderation report against marketplace content.
type Report struct {
	ID             string           `db:"id" json:"id"`
	ReporterID     string           `db:"reporter_id" json:"reporter_id"`
	TargetType     ReportTargetType `db:"target_type" json:"target_type"`
	TargetID       string           `db:"target_id" json:"target_id"`
	Reason         string           `db:"reason" json:"reason"`
	Status         ReportStatus     `db:"status" json:"status"`
	ResolvedBy     *string          `db:"resolved_by" json:"resolved_by,omitempty"`
	ResolutionNote *string          `db:"resolution_note" json:"resolution_note,omitempty"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	ResolvedAt     *time.Time       `db:"resolved_at" json:"resolved_at,omitempty"`
}

// ReportFilter captures moderation queue filtering.
type ReportFilter struct {
	Status     *ReportStatus
	TargetType *ReportTargetType
	Page       int
	PageSize   int
}
