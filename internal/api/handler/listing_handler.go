package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/renthub/pkg/response"
)

type createListingRequest struct {
	HostAccountID string `json:"host_account_id" binding:"required"`
	Title         string `json:"title" binding:"required,max=128"`
	NightlyCents  int64  `json:"nightly_cents" binding:"min=0"`
	CheckInDay    int    `json:"check_in_day" binding:"min=0,max=6"`
}

// CreateListing 新建房源
// @Summary 新建房源
// @Tags 房源
// @Accept json
// @Produce json
// @Param request body createListingRequest true "房源信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/listings [post]
func (h *Handler) CreateListing(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	listing, err := h.listingSvc.Create(c.Request.Context(), req.HostAccountID, req.Title, req.NightlyCents, req.CheckInDay)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, listing)
}

// DeactivateListing 下架房源
// @Summary 下架房源
// @Tags 房源
// @Param id path string true "房源ID"
// @Success 200 {object} response.Response
// @Router /api/v1/listings/{id}/deactivate [post]
func (h *Handler) DeactivateListing(c *gin.Context) {
	if err := h.listingSvc.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
