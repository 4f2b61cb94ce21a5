package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/renthub/pkg/response"
)

type signupRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Signup 用户注册（主库落地后台触发遗留平台同步）
// @Summary 注册
// @Tags 用户
// @Accept json
// @Produce json
// @Param request body signupRequest true "注册信息"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	user, err := h.signupSvc.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	// 响应不等同步结果；legacy_id 之后由后台补齐
	response.Success(c, gin.H{"id": user.ID, "username": user.Username})
}
