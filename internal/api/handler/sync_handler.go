package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/renthub/internal/model"
	"github.com/d60-Lab/renthub/pkg/response"
)

// ListSyncItems 按状态查队列项（运维视角）
// @Summary 查看同步队列
// @Tags 同步
// @Param status query string false "状态" default(failed)
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Success 200 {object} response.Response{data=map[string]interface{}}
// @Router /api/v1/sync/items [get]
func (h *Handler) ListSyncItems(c *gin.Context) {
	status := model.SyncStatus(c.DefaultQuery("status", string(model.SyncStatusFailed)))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	items, err := h.queue.ListByStatus(c.Request.Context(), status, (page-1)*pageSize, pageSize)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, gin.H{"page": page, "page_size": pageSize, "list": items})
}

// RequeueSyncItem 人工修复：把钉死的 failed 项重置回 pending
// @Summary 重新入队失败项
// @Tags 同步
// @Param id path string true "队列项ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /api/v1/sync/items/{id}/requeue [post]
func (h *Handler) RequeueSyncItem(c *gin.Context) {
	if err := h.queue.Requeue(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.syncSvc.Kick()
	response.Success(c, nil)
}

// SyncTick 外部调度器的 HTTP 触发口（cron 打这个端点即可）
// @Summary 触发一次同步节拍
// @Tags 同步
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/sync/tick [post]
func (h *Handler) SyncTick(c *gin.Context) {
	if err := h.controller.Tick(c.Request.Context()); err != nil {
		response.InternalError(c, err)
		return
	}
	response.Success(c, nil)
}
