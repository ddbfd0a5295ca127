package models

import "time"

// BidStatus captures the bid lifecycle on a help request.
type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusWithdrawn BidStatus = "withdrawn"
)

// Bid is a tutor's offer on an open help request. A tutor holds at most one
// active bid per request; re-submitting replaces the previous one.
type Bid struct {
	ID          string    `db:"id" json:"id"`
	RequestID   string    `db:"request_id" json:"request_id"`
	TutorID     string    `db:"tutor_id" json:"tutor_id"`
	AmountCents int       `db:"amount_cents" json:"amount_cents"`
	Message     string    `db:"message" json:"message"`
	Status      BidStatus `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
