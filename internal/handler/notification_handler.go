package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resource-portal-go/internal/service"
)

// NotificationHandler serves the caller's inbox.
type NotificationHandler struct {
	notificationService service.NotificationService
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(notificationService service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List accepts ?unread=true to return unread notifications only.
func (h *NotificationHandler) List(c *gin.Context) {
	unreadOnly := c.Query("unread") == "true"
	items, err := h.notificationService.List(c.Request.Context(), currentUser(c), unreadOnly)
	if err != nil {
		respondError(c, "ListNotifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// UnreadCount handles GET /api/resources/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.notificationService.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "UnreadCount", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

// MarkRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationService.MarkRead(c.Request.Context(), currentUser(c), c.Param("id")); err != nil {
		respondError(c, "MarkRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead marks every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.notificationService.MarkAllRead(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, "MarkAllRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}
