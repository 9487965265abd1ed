package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kaiwu-tech/pm-backend/internal/middleware"
	"github.com/kaiwu-tech/pm-backend/internal/repository"
	"github.com/kaiwu-tech/pm-backend/internal/service"
	"github.com/kaiwu-tech/pm-backend/pkg/response"
)

// NotificationHandler 通知处理器
type NotificationHandler struct {
	notifService service.NotificationService
}

// NewNotificationHandler 创建通知处理器
func NewNotificationHandler(notifSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifService: notifSvc}
}

// ListNotifications 列出当前用户的通知
// GET /api/v1/notifications
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	onlyUnread := c.Query("unread") == "true"
	pagination := &repository.Pagination{Page: page, PageSize: pageSize}

	notifications, total, err := h.notifService.ListByUser(c.Request.Context(), userID, onlyUnread, pagination)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}

	response.Success(c, gin.H{
		"list":      notifications,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// CountUnread 统计未读通知数
// GET /api/v1/notifications/unread-count
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	count, err := h.notifService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.Success(c, gin.H{"count": count})
}

// MarkRead 标记通知为已读
// PUT /api/v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.notifService.MarkRead(c.Request.Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, service.ErrNotificationNotFound) {
			response.Error(c, response.CodeNotificationNotFound)
		} else {
			response.Error(c, response.CodeServerError)
		}
		return
	}
	response.SuccessWithMsg(c, "通知已读", nil)
}

// MarkAllRead 标记全部通知为已读
// PUT /api/v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	if err := h.notifService.MarkAllRead(c.Request.Context(), userID); err != nil {
		response.Error(c, response.CodeServerError)
		return
	}
	response.SuccessWithMsg(c, "全部通知已读", nil)
}
