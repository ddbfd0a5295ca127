package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/thi-tutors/tutor-api/internal/middleware"
	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/service"
)

type bookingRepoStub struct {
	bookings map[string]*models.Booking
	active   map[string]*models.Booking
}

func (m *bookingRepoStub) Create(ctx context.Context, booking *models.Booking) error {
	m.bookings[booking.ID] = booking
	m.active[booking.SlotID] = booking
	return nil
}

func (m *bookingRepoStub) GetByID(ctx context.Context, id string) (*models.Booking, error) {
	if b, ok := m.bookings[id]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *bookingRepoStub) FindActiveBySlot(ctx context.Context, slotID string) (*models.Booking, error) {
	if b, ok := m.active[slotID]; ok {
		return b, nil
	}
	return nil, sql.ErrNoRows
}

func (m *bookingRepoStub) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return nil, nil
}

func (m *bookingRepoStub) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if b, ok := m.bookings[id]; ok {
		b.Status = status
	}
	return nil
}

type slotRepoStub struct {
	slots map[string]*models.TutorAvailability
}

func (m *slotRepoStub) GetByID(ctx context.Context, id string) (*models.TutorAvailability, error) {
	if s, ok := m.slots[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func newBookingHandler() (*BookingHandler, *bookingRepoStub) {
	repo := &bookingRepoStub{bookings: map[string]*models.Booking{}, active: map[string]*models.Booking{}}
	slots := &slotRepoStub{slots: map[string]*models.TutorAvailability{
		"slot-1": {
			ID:        "slot-1",
			TutorID:   "tutor-1",
			StartTime: time.Now().Add(24 * time.Hour),
			EndTime:   time.Now().Add(25 * time.Hour),
			Mode:      "online",
		},
	}}
	svc := service.NewBookingService(repo, slots, nil, nil)
	return NewBookingHandler(svc), repo
}

func TestBookingHandlerBook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newBookingHandler()

	payload, _ := json.Marshal(map[string]string{"slot_id": "slot-1"})
	c, w := newGinContext(http.MethodPost, "/bookings", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleMember})

	handler.Book(c)
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestBookingHandlerBookUnknownSlot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newBookingHandler()

	payload, _ := json.Marshal(map[string]string{"slot_id": "demo-tutor-1-2030-01-01T10:00:00.000Z"})
	c, w := newGinContext(http.MethodPost, "/bookings", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleMember})

	handler.Book(c)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBookingHandlerBookRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newBookingHandler()

	payload, _ := json.Marshal(map[string]string{"slot_id": "slot-1"})
	c, w := newGinContext(http.MethodPost, "/bookings", payload)

	handler.Book(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookingHandlerCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, repo := newBookingHandler()
	repo.bookings["b-1"] = &models.Booking{ID: "b-1", SlotID: "slot-1", TutorID: "tutor-1", StudentID: "student-1", Status: models.BookingStatusConfirmed}

	c, w := newGinContext(http.MethodDelete, "/bookings/b-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "b-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleMember})

	handler.Cancel(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, models.BookingStatusCancelled, repo.bookings["b-1"].Status)
}
