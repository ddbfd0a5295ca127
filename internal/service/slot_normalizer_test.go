package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
)

func TestNormalizeSlotCanonicalRecord(t *testing.T) {
	raw := map[string]interface{}{
		"profile_id": "u1",
		"start":      "2024-01-01T10:00:00Z",
		"end":        "2024-01-01T11:00:00Z",
		"priority":   true,
	}

	slot, ok := NormalizeSlot(raw)
	require.True(t, ok)

	assert.Equal(t, "u1-2024-01-01T10:00:00.000Z", slot.ID)
	assert.Equal(t, "u1", slot.TutorID)
	assert.Equal(t, "2024-01-01T10:00:00.000Z", slot.Start)
	assert.Equal(t, "2024-01-01T11:00:00.000Z", slot.End)
	assert.Equal(t, models.SlotModeOnline, slot.Mode)
	assert.True(t, slot.IsEmergency)
	assert.False(t, slot.Persisted)
}

func TestNormalizeSlotIdempotent(t *testing.T) {
	raw := map[string]interface{}{
		"tutorId":      "t9",
		"startTime":    int64(1717236000000),
		"endTime":      int64(1717239600000),
		"mode":         "in_person",
		"is_emergency": "true",
	}

	first, ok := NormalizeSlot(raw)
	require.True(t, ok)

	again, ok := NormalizeSlot(map[string]interface{}{
		"tutor_id":     first.TutorID,
		"start_time":   first.Start,
		"end_time":     first.End,
		"mode":         string(first.Mode),
		"is_emergency": first.IsEmergency,
	})
	require.True(t, ok)

	assert.Equal(t, first.Start, again.Start)
	assert.Equal(t, first.End, again.End)
	assert.Equal(t, first.TutorID, again.TutorID)
	assert.Equal(t, first.Mode, again.Mode)
	assert.Equal(t, first.IsEmergency, again.IsEmergency)
}

func TestNormalizeSlotAliasEquivalence(t *testing.T) {
	variants := []map[string]interface{}{
		{"tutor_id": "u2", "start_time": "2024-03-05T09:00:00Z", "end_time": "2024-03-05T10:00:00Z"},
		{"tutorId": "u2", "startTime": "2024-03-05T09:00:00Z", "endTime": "2024-03-05T10:00:00Z"},
		{"profile_id": "u2", "start": "2024-03-05T09:00:00Z", "end": "2024-03-05T10:00:00Z"},
		{"helper_id": "u2", "from": "2024-03-05T09:00:00Z", "to": "2024-03-05T10:00:00Z"},
		{"user_id": "u2", "start_utc": "2024-03-05T09:00:00Z", "end_utc": "2024-03-05T10:00:00Z"},
	}

	var reference *models.AvailabilitySlot
	for i, raw := range variants {
		slot, ok := NormalizeSlot(raw)
		require.True(t, ok, "variant %d", i)
		if reference == nil {
			reference = slot
			continue
		}
		assert.Equal(t, *reference, *slot, "variant %d", i)
	}
}

func TestNormalizeSlotDropsIncompleteRecords(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"missing tutor": {"start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z"},
		"missing start": {"tutor_id": "u1", "end": "2024-01-01T11:00:00Z"},
		"missing end":   {"tutor_id": "u1", "start": "2024-01-01T10:00:00Z"},
		"bad timestamp": {"tutor_id": "u1", "start": "not-a-date", "end": "2024-01-01T11:00:00Z"},
		"nil record":    nil,
	}

	for name, raw := range cases {
		_, ok := NormalizeSlot(raw)
		assert.False(t, ok, name)
	}
}

func TestNormalizeSlotModeHandling(t *testing.T) {
	base := map[string]interface{}{
		"tutor_id": "u1",
		"start":    "2024-01-01T10:00:00Z",
		"end":      "2024-01-01T11:00:00Z",
	}

	slot, ok := NormalizeSlot(base)
	require.True(t, ok)
	assert.Equal(t, models.SlotModeOnline, slot.Mode)

	for _, raw := range []string{"in-person", "in_person", "IN-PERSON"} {
		withMode := map[string]interface{}{}
		for k, v := range base {
			withMode[k] = v
		}
		withMode["mode"] = raw
		slot, ok := NormalizeSlot(withMode)
		require.True(t, ok)
		assert.Equal(t, models.SlotModeInPerson, slot.Mode, raw)
	}
}

func TestNormalizeSlotPersistedFlag(t *testing.T) {
	raw := map[string]interface{}{
		"id":       "row-42",
		"tutor_id": "u1",
		"start":    "2024-01-01T10:00:00Z",
		"end":      "2024-01-01T11:00:00Z",
	}

	slot, ok := NormalizeSlot(raw)
	require.True(t, ok)
	assert.True(t, slot.Persisted)
	assert.Equal(t, "row-42", slot.ID)
}

func TestNormalizeSlotsFiltersFailures(t *testing.T) {
	records := []map[string]interface{}{
		{"tutor_id": "u1", "start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z"},
		{"start": "2024-01-01T10:00:00Z", "end": "2024-01-01T11:00:00Z"},
		{"tutor_id": "u2", "start": "2024-01-02T10:00:00Z", "end": "2024-01-02T11:00:00Z"},
	}

	slots := NormalizeSlots(records)
	require.Len(t, slots, 2)
	assert.Equal(t, "u1", slots[0].TutorID)
	assert.Equal(t, "u2", slots[1].TutorID)
}

func TestFallbackSlotsDeterministic(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	tutorIDs := []string{"a", "b", "c"}

	first := FallbackSlots(tutorIDs, 5, now)
	second := FallbackSlots(tutorIDs, 5, now)

	require.Equal(t, first, second)
	assert.Len(t, first, 15)
}

func TestFallbackSlotsShape(t *testing.T) {
	now := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	slots := FallbackSlots([]string{"a", "b"}, 3, now)
	require.Len(t, slots, 6)

	emergencies := 0
	for _, slot := range slots {
		assert.False(t, slot.Persisted)
		if slot.IsEmergency {
			emergencies++
		}
	}
	assert.Equal(t, 1, emergencies)

	// first tutor, first day is the emergency slot
	assert.True(t, slots[0].IsEmergency)
	assert.Equal(t, "a", slots[0].TutorID)
	assert.Equal(t, "2024-06-01T10:00:00.000Z", slots[0].Start)
	assert.Equal(t, "2024-06-01T11:00:00.000Z", slots[0].End)
	assert.Equal(t, models.SlotModeOnline, slots[0].Mode)

	// second tutor starts two hours later, in person
	assert.Equal(t, "2024-06-01T12:00:00.000Z", slots[3].Start)
	assert.Equal(t, models.SlotModeInPerson, slots[3].Mode)
}

func TestFallbackSlotsDefaultsAndCap(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	defaulted := FallbackSlots(nil, 2, now)
	require.Len(t, defaulted, 4)
	assert.Equal(t, "demo-tutor-1", defaulted[0].TutorID)
	assert.Equal(t, "demo-tutor-2", defaulted[2].TutorID)

	many := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	capped := FallbackSlots(many, 1, now)
	assert.Len(t, capped, 6)
}
