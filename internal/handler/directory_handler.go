package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/thi-tutors/tutor-api/internal/models"
	"github.com/thi-tutors/tutor-api/internal/service"
	"github.com/thi-tutors/tutor-api/pkg/response"
)

// DirectoryHandler serves the public tutor listing.
type DirectoryHandler struct {
	service *service.DirectoryService
}

// NewDirectoryHandler creates a new handler.
func NewDirectoryHandler(svc *service.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{service: svc}
}

// List godoc
// @Summary List tutors
// @Description Public tutor directory with course and text filtering
// @Tags Directory
// @Produce json
// @Param course query string false "Filter by course"
// @Param q query string false "Search name or program"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /tutors [get]
func (h *DirectoryHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	filter := models.DirectoryFilter{
		Course:   c.Query("course"),
		Search:   c.Query("q"),
		Page:     page,
		PageSize: pageSize,
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result.Entries, &result.Pagination)
}
