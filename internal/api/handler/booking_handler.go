package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/renthub/pkg/response"
)

type createBookingRequest struct {
	ListingID      string    `json:"listing_id" binding:"required"`
	GuestAccountID string    `json:"guest_account_id" binding:"required"`
	StartDate      time.Time `json:"start_date" binding:"required"`
	EndDate        time.Time `json:"end_date" binding:"required"`
	AmountCents    int64     `json:"amount_cents" binding:"min=0"`
}

// CreateBooking 新建预订
// @Summary 新建预订
// @Tags 预订
// @Accept json
// @Produce json
// @Param request body createBookingRequest true "预订信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/bookings [post]
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	booking, err := h.bookingSvc.Create(c.Request.Context(), req.ListingID, req.GuestAccountID, req.StartDate, req.EndDate, req.AmountCents)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, booking)
}

// ConfirmBooking 确认预订
// @Summary 确认预订
// @Tags 预订
// @Param id path string true "预订ID"
// @Success 200 {object} response.Response
// @Router /api/v1/bookings/{id}/confirm [post]
func (h *Handler) ConfirmBooking(c *gin.Context) {
	if err := h.bookingSvc.Confirm(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
