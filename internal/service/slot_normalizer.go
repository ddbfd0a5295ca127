package service

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/thi-tutors/tutor-api/internal/models"
)

// The availability table has accumulated several historical column shapes
// as clients evolved. Each logical field resolves through an ordered list
// of candidate keys; the first present, non-nil value wins.
var (
	slotTutorKeys = []string{"tutor_id", "tutorId", "profile_id", "helper_id", "user_id"}
	slotStartKeys = []string{"start_time", "startTime", "start", "from", "start_utc"}
	slotEndKeys   = []string{"end_time", "endTime", "end", "to", "end_utc"}
)

// slotTimeLayout is the canonical wire format for slot timestamps: UTC at
// millisecond precision. Re-parsing a canonical value always yields the same
// instant.
const slotTimeLayout = "2006-01-02T15:04:05.000Z"

// NormalizeSlot shapes an arbitrarily-keyed raw record into a canonical
// AvailabilitySlot. It returns false when the record is unusable (missing
// tutor id, start, or end, or an unparseable timestamp); such records are
// dropped by callers, never defaulted. The function is pure and safe to run
// over a list, filtering failures.
func NormalizeSlot(raw map[string]interface{}) (*models.AvailabilitySlot, bool) {
	if raw == nil {
		return nil, false
	}

	tutorID, ok := firstString(raw, slotTutorKeys)
	if !ok || tutorID == "" {
		return nil, false
	}
	start, ok := firstTimestamp(raw, slotStartKeys)
	if !ok {
		return nil, false
	}
	end, ok := firstTimestamp(raw, slotEndKeys)
	if !ok {
		return nil, false
	}

	startISO := start.UTC().Format(slotTimeLayout)
	endISO := end.UTC().Format(slotTimeLayout)

	slot := &models.AvailabilitySlot{
		TutorID:     tutorID,
		Start:       startISO,
		End:         endISO,
		Mode:        normalizeSlotMode(raw["mode"]),
		IsEmergency: truthy(raw["is_emergency"]) || truthy(raw["priority"]),
	}

	if id, ok := stringValue(raw["id"]); ok && id != "" {
		slot.ID = id
		slot.Persisted = true
	} else {
		// Synthesized ids carry no row reference and must never reach the
		// booking path; Persisted stays false.
		slot.ID = tutorID + "-" + startISO
	}

	return slot, true
}

// NormalizeSlots maps NormalizeSlot over raw records, dropping failures.
func NormalizeSlots(records []map[string]interface{}) []models.AvailabilitySlot {
	slots := make([]models.AvailabilitySlot, 0, len(records))
	for _, record := range records {
		if slot, ok := NormalizeSlot(record); ok {
			slots = append(slots, *slot)
		}
	}
	return slots
}

// fallbackTutorIDs seed the demo schedule when no tutors are known at all.
var fallbackTutorIDs = []string{"demo-tutor-1", "demo-tutor-2"}

// FallbackSlots synthesizes a deterministic placeholder schedule for display
// when the store holds no availability. For each of the first six tutor ids
// (index i) and each day offset, one 1-hour slot starts at 10 + (i%4)*2
// local time; mode alternates by tutor parity and exactly one slot, the
// first tutor's first day, is flagged emergency. Output is fully determined
// by (tutorIDs, days, now). Nothing here is ever persisted.
func FallbackSlots(tutorIDs []string, days int, now time.Time) []models.AvailabilitySlot {
	if len(tutorIDs) == 0 {
		tutorIDs = fallbackTutorIDs
	}
	if len(tutorIDs) > 6 {
		tutorIDs = tutorIDs[:6]
	}
	if days <= 0 {
		days = 10
	}

	slots := make([]models.AvailabilitySlot, 0, len(tutorIDs)*days)
	for i, tutorID := range tutorIDs {
		hour := 10 + (i%4)*2
		mode := models.SlotModeOnline
		if i%2 == 1 {
			mode = models.SlotModeInPerson
		}
		for offset := 0; offset < days; offset++ {
			day := now.AddDate(0, 0, offset)
			start := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
			startISO := start.UTC().Format(slotTimeLayout)
			slots = append(slots, models.AvailabilitySlot{
				ID:          tutorID + "-" + startISO,
				TutorID:     tutorID,
				Start:       startISO,
				End:         start.Add(time.Hour).UTC().Format(slotTimeLayout),
				Mode:        mode,
				IsEmergency: i == 0 && offset == 0,
				Persisted:   false,
			})
		}
	}
	return slots
}

func normalizeSlotMode(v interface{}) models.SlotMode {
	s, ok := stringValue(v)
	if !ok {
		return models.SlotModeOnline
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in-person", "in_person":
		return models.SlotModeInPerson
	default:
		return models.SlotModeOnline
	}
}

func firstString(raw map[string]interface{}, keys []string) (string, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return stringValue(v)
		}
	}
	return "", false
}

func firstTimestamp(raw map[string]interface{}, keys []string) (time.Time, bool) {
	for _, key := range keys {
		if v, ok := raw[key]; ok && v != nil {
			return coerceTimestamp(v)
		}
	}
	return time.Time{}, false
}

func stringValue(v interface{}) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case []byte:
		return string(value), true
	case json.Number:
		return value.String(), true
	case int:
		return strconv.Itoa(value), true
	case int64:
		return strconv.FormatInt(value, 10), true
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64), true
	default:
		return "", false
	}
}

// epochMillisThreshold separates second from millisecond epochs; anything
// above it cannot be a plausible date in seconds.
const epochMillisThreshold = 1e12

func coerceTimestamp(v interface{}) (time.Time, bool) {
	switch value := v.(type) {
	case time.Time:
		return value, true
	case *time.Time:
		if value == nil {
			return time.Time{}, false
		}
		return *value, true
	case int:
		return epochToTime(float64(value)), true
	case int64:
		return epochToTime(float64(value)), true
	case float64:
		return epochToTime(value), true
	case json.Number:
		if f, err := value.Float64(); err == nil {
			return epochToTime(f), true
		}
		return parseTimestampString(value.String())
	case string:
		return parseTimestampString(value)
	case []byte:
		return parseTimestampString(string(value))
	default:
		return time.Time{}, false
	}
}

func epochToTime(f float64) time.Time {
	if f >= epochMillisThreshold {
		return time.UnixMilli(int64(f)).UTC()
	}
	return time.Unix(int64(f), 0).UTC()
}

var slotTimeParseLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestampString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range slotTimeParseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// truthy coerces heterogeneous flag representations into a bool, defaulting
// to false for anything unrecognized.
func truthy(v interface{}) bool {
	switch value := v.(type) {
	case bool:
		return value
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		return err == nil && parsed
	case []byte:
		parsed, err := strconv.ParseBool(strings.TrimSpace(string(value)))
		return err == nil && parsed
	case json.Number:
		f, err := value.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}
