package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/service"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
	"github.com/thi-tutors/tutor-api/pkg/response"
)

// ProfileHandler serves the caller's profile and role switching.
type ProfileHandler struct {
	profiles *service.ProfileService
	roles    *service.RoleService
	sessions *service.RoleSessions
}

// NewProfileHandler creates a new handler.
func NewProfileHandler(profiles *service.ProfileService, roles *service.RoleService, sessions *service.RoleSessions) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, roles: roles, sessions: sessions}
}

// Get godoc
// @Summary Get own profile
// @Description Return the caller's profile and current marketplace role
// @Tags Profile
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /profile [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session := h.sessions.Acquire(claims.UserID, claims.Email)
	profile, err := h.roles.Refresh(c.Request.Context(), session)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"profile": profile, "role": session.Role()}, nil)
}

// Update godoc
// @Summary Update own profile
// @Description Edit profile fields; tutors are re-listed in the directory when complete
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body service.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /profile [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	// keep the in-memory role session in step with the stored profile
	session := h.sessions.Acquire(claims.UserID, claims.Email)
	if _, err := h.roles.Refresh(c.Request.Context(), session); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, profile, nil)
}

// SwitchRole godoc
// @Summary Switch marketplace role
// @Description Switch between learner and tutor modes
// @Tags Profile
// @Accept json
// @Produce json
// @Param payload body object true "Role payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /profile/role [post]
func (h *ProfileHandler) SwitchRole(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "role required"))
		return
	}

	session := h.sessions.Acquire(claims.UserID, claims.Email)
	if err := h.roles.SwitchRole(c.Request.Context(), session, models.Role(payload.Role)); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"role": session.Role()}, nil)
}
