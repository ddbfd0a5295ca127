package models

import "time"

// SlotMode distinguishes online from in-person tutoring windows.
type SlotMode string

const (
	SlotModeOnline   SlotMode = "online"
	SlotModeInPerson SlotMode = "in-person"
)

// AvailabilitySlot is the canonical tutoring time window served to clients.
// Start and End are ISO 8601 strings in UTC at millisecond precision so the
// representation round-trips through JSON without drift.
//
// Persisted is true only when the slot is backed by a real row id; fallback
// and otherwise synthesized slots carry Persisted=false and must be rejected
// by booking flows. Callers must consult this flag rather than inferring
// bookability from the shape of the id.
type AvailabilitySlot struct {
	ID          string   `json:"id"`
	TutorID     string   `json:"tutor_id"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Mode        SlotMode `json:"mode"`
	IsEmergency bool     `json:"is_emergency"`
	Persisted   bool     `json:"persisted"`
}

// TutorAvailability is the stored slot row owned by a tutor.
type TutorAvailability struct {
	ID          string    `db:"id" json:"id"`
	TutorID     string    `db:"tutor_id" json:"tutor_id"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	Mode        string    `db:"mode" json:"mode"`
	IsEmergency bool      `db:"is_emergency" json:"is_emergency"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
