package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thi-tutors/tutor-api/internal/service"
	appErrors "github.com/thi-tutors/tutor-api/pkg/errors"
	"github.com/thi-tutors/tutor-api/pkg/response"
)

// BidHandler serves tutor bids on help requests.
type BidHandler struct {
	service *service.BidService
}

// NewBidHandler creates a new handler.
func NewBidHandler(svc *service.BidService) *BidHandler {
	return &BidHandler{service: svc}
}

// Place godoc
// @Summary Bid on a request
// @Description Submit or replace the caller's bid on an open request
// @Tags Bids
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body service.PlaceBidRequest true "Bid payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/bids [post]
func (h *BidHandler) Place(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bid payload"))
		return
	}

	bid, err := h.service.Place(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, bid)
}

// ListForRequest godoc
// @Summary List bids on a request
// @Tags Bids
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/bids [get]
func (h *BidHandler) ListForRequest(c *gin.Context) {
	bids, err := h.service.ListForRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bids, nil)
}

// Accept godoc
// @Summary Accept a bid
// @Description Request owner accepts a bid, closing the request
// @Tags Bids
// @Produce json
// @Param id path string true "Bid id"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bids/{id}/accept [post]
func (h *BidHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	bid, err := h.service.Accept(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bid, nil)
}

// Withdraw godoc
// @Summary Withdraw a bid
// @Tags Bids
// @Produce json
// @Param id path string true "Bid id"
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /bids/{id} [delete]
func (h *BidHandler) Withdraw(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Withdraw(c.Request.Context(), c.Param("id"), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
