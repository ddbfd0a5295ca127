package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/models"
)

type availabilityRepoStub struct {
	raw     []map[string]interface{}
	rawErr  error
	byTutor []models.TutorAvailability
	byID    map[string]*models.TutorAvailability
	deleted []string
}

func (s *availabilityRepoStub) ListRaw(ctx context.Context, from time.Time) ([]map[string]interface{}, error) {
	return s.raw, s.rawErr
}

func (s *availabilityRepoStub) ListByTutor(ctx context.Context, tutorID string) ([]models.TutorAvailability, error) {
	return s.byTutor, nil
}

func (s *availabilityRepoStub) GetByID(ctx context.Context, id string) (*models.TutorAvailability, error) {
	if slot, ok := s.byID[id]; ok {
		return slot, nil
	}
	return nil, errors.New("not found")
}

func (s *availabilityRepoStub) Insert(ctx context.Context, slot *models.TutorAvailability) error {
	s.byTutor = append(s.byTutor, *slot)
	return nil
}

func (s *availabilityRepoStub) Delete(ctx context.Context, id, tutorID string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type availabilityDirectoryStub struct {
	entries []models.DirectoryEntry
	err     error
}

func (s *availabilityDirectoryStub) List(ctx context.Context, filter models.DirectoryFilter) ([]models.DirectoryEntry, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	return s.entries, len(s.entries), nil
}

func TestAvailabilityServiceListPublicNormalizes(t *testing.T) {
	repo := &availabilityRepoStub{raw: []map[string]interface{}{
		{"id": "slot-1", "tutor_id": "u1", "start_time": "2030-01-01T10:00:00Z", "end_time": "2030-01-01T11:00:00Z"},
	}}
	svc := NewAvailabilityService(repo, &availabilityDirectoryStub{}, nil, nil, nil, 10, time.Minute)

	slots, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "slot-1", slots[0].ID)
	assert.True(t, slots[0].Persisted)
	assert.Equal(t, "2030-01-01T10:00:00.000Z", slots[0].Start)
}

func TestAvailabilityServiceFallbackOnReadError(t *testing.T) {
	repo := &availabilityRepoStub{rawErr: errors.New("db down")}
	directory := &availabilityDirectoryStub{entries: []models.DirectoryEntry{{ProfileID: "tutor-a"}}}
	svc := NewAvailabilityService(repo, directory, nil, nil, nil, 3, time.Minute)

	slots, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	require.Len(t, slots, 3)
	for _, slot := range slots {
		assert.Equal(t, "tutor-a", slot.TutorID)
		assert.False(t, slot.Persisted)
	}
}

func TestAvailabilityServiceFallbackOnEmptyStore(t *testing.T) {
	repo := &availabilityRepoStub{}
	directory := &availabilityDirectoryStub{err: errors.New("also down")}
	svc := NewAvailabilityService(repo, directory, nil, nil, nil, 2, time.Minute)

	slots, err := svc.ListPublic(context.Background())
	require.NoError(t, err)
	// demo placeholders when no tutors are known at all
	require.Len(t, slots, 4)
	assert.Equal(t, "demo-tutor-1", slots[0].TutorID)
}

func TestAvailabilityServiceCreateSlotValidatesOrder(t *testing.T) {
	repo := &availabilityRepoStub{}
	svc := NewAvailabilityService(repo, &availabilityDirectoryStub{}, nil, nil, nil, 10, time.Minute)

	now := time.Now()
	_, err := svc.CreateSlot(context.Background(), "u1", CreateSlotRequest{
		Start: now.Add(2 * time.Hour),
		End:   now.Add(time.Hour),
	})
	require.Error(t, err)

	slot, err := svc.CreateSlot(context.Background(), "u1", CreateSlotRequest{
		Start: now.Add(time.Hour),
		End:   now.Add(2 * time.Hour),
		Mode:  "in_person",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", slot.TutorID)
	assert.Equal(t, string(models.SlotModeInPerson), slot.Mode)
	assert.NotEmpty(t, slot.ID)
}
