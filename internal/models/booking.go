package models

import "time"

// BookingStatus captures the booking lifecycle.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking ties a student to a persisted availability slot.
type Booking struct {
	ID        string        `db:"id" json:"id"`
	SlotID    string        `db:"slot_id" json:"slot_id"`
	TutorID   string        `db:"tutor_id" json:"tutor_id"`
	StudentID string        `db:"student_id" json:"student_id"`
	StartTime time.Time     `db:"start_time" json:"start_time"`
	EndTime   time.Time     `db:"end_time" json:"end_time"`
	Status    BookingStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
