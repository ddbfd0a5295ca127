package models

import "time"

// RequestStatus captures the help request lifecycle.
type RequestStatus string

const (
	RequestStatusOpen   RequestStatus = "open"
	RequestStatusClosed RequestStatus = "closed"
)

// HelpRequest is a student's posted request with a minimum offer.
type HelpRequest struct {
	ID            string        `db:"id" json:"id"`
	StudentID     string        `db:"student_id" json:"student_id"`
	Course        string        `db:"course" json:"course"`
	Title         string        `db:"title" json:"title"`
	Description   string        `db:"description" json:"description"`
	MinOfferCents int           `db:"min_offer_cents" json:"min_offer_cents"`
	Status        RequestStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestFilter captures list filtering options.
type RequestFilter struct {
	Course    string
	Status    *RequestStatus
	StudentID string
	Search    string
	Page      int
	PageSize  int
}

// Reply is a threaded message under a help request.
type Reply struct {
	ID        string    `db:"id" json:"id"`
	RequestID string    `db:"request_id" json:"request_id"`
	AuthorID  string    `db:"author_id" json:"author_id"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
