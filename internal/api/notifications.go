package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/commons/internal/service"
)

// NotificationAPI serves /notifications
type NotificationAPI struct {
	notifications *service.NotificationService
}

// NewNotificationAPI creates a new notification API
func NewNotificationAPI(notifications *service.NotificationService) *NotificationAPI {
	return &NotificationAPI{notifications: notifications}
}

// List handles GET /notifications
func (a *NotificationAPI) List(c *gin.Context) (interface{}, error) {
	return a.notifications.List(c.Request.Context(), actorFrom(c))
}

// UnreadCount handles GET /notifications/unread-count
func (a *NotificationAPI) UnreadCount(c *gin.Context) (interface{}, error) {
	count, err := a.notifications.UnreadCount(c.Request.Context(), actorFrom(c))
	if err != nil {
		return nil, err
	}
	return gin.H{"count": count}, nil
}

// MarkRead handles POST /notifications/:id/read
func (a *NotificationAPI) MarkRead(c *gin.Context) (interface{}, error) {
	id := c.Param("id")
	if err := a.notifications.MarkRead(c.Request.Context(), actorFrom(c), id); err != nil {
		return nil, err
	}
	return gin.H{"id": id, "read": true}, nil
}

// MarkAllRead handles POST /notifications/read-all
func (a *NotificationAPI) MarkAllRead(c *gin.Context) (interface{}, error) {
	updated, err := a.notifications.MarkAllRead(c.Request.Context(), actorFrom(c))
	if err != nil {
		return nil, err
	}
	return gin.H{"updated": updated}, nil
}
