package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
	"github.com/campuslink/commons/pkg/logging"
	"github.com/campuslink/commons/pkg/telemetry"
)

// notificationListLimit caps GET /notifications
const notificationListLimit = 100

// Event describes one interaction that may notify a recipient
type Event struct {
	Type        string
	RecipientID string
	Actor       Actor
	PostID      string
	PostTitle   string
	CommentID   *string
}

func (e Event) message() string {
	switch e.Type {
	case models.NotifyTypeLike:
		return fmt.Sprintf("%s liked your post %q", e.Actor.Name, e.PostTitle)
	case models.NotifyTypeComment:
		return fmt.Sprintf("%s commented on your post %q", e.Actor.Name, e.PostTitle)
	case models.NotifyTypeReply:
		return fmt.Sprintf("%s replied to your comment on %q", e.Actor.Name, e.PostTitle)
	default:
		return e.Actor.Name + " interacted with your post"
	}
}

// wants reports whether the recipient's preferences allow this type
func wants(settings models.NotificationSettings, kind string) bool {
	switch kind {
	case models.NotifyTypeLike:
		return settings.Likes
	case models.NotifyTypeComment:
		return settings.Comments
	case models.NotifyTypeReply:
		return settings.Replies
	default:
		return settings.System
	}
}

// Notifier appends notifications as a best-effort side effect of interactions
type Notifier struct {
	users         storage.UserStore
	notifications storage.NotificationStore
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotifier creates a notifier
func NewNotifier(users storage.UserStore, notifications storage.NotificationStore) *Notifier {
	return &Notifier{
		users:         users,
		notifications: notifications,
		logger:        logging.WithComponent("notifier"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Notify writes a notification for evt. It never fails the caller: a
// skipped or dropped write is counted and, when dropped, logged.
func (n *Notifier) Notify(ctx context.Context, evt Event) {
	ctx, span := telemetry.StartSpan(ctx, "notifier.notify")
	defer span.End()

	if evt.RecipientID == "" || evt.RecipientID == evt.Actor.ID {
		telemetry.RecordNotification(ctx, evt.Type, telemetry.OutcomeSkipped)
		return
	}

	recipient, err := n.users.GetUser(ctx, evt.RecipientID)
	if err != nil {
		n.drop(ctx, evt, err)
		return
	}
	if recipient.IsDeleted || !wants(recipient.NotificationSettings, evt.Type) {
		telemetry.RecordNotification(ctx, evt.Type, telemetry.OutcomeSkipped)
		return
	}

	now := n.now()
	notification := &models.Notification{
		ID:          uuid.NewString(),
		RecipientID: evt.RecipientID,
		ActorID:     evt.Actor.ID,
		ActorName:   evt.Actor.Name,
		Type:        evt.Type,
		PostID:      evt.PostID,
		CommentID:   evt.CommentID,
		Message:     evt.message(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := n.notifications.CreateNotification(ctx, notification); err != nil {
		n.drop(ctx, evt, err)
		return
	}
	telemetry.RecordNotification(ctx, evt.Type, telemetry.OutcomeWritten)
}

func (n *Notifier) drop(ctx context.Context, evt Event, err error) {
	telemetry.RecordNotification(ctx, evt.Type, telemetry.OutcomeDropped)
	n.logger.Warn("Notification dropped",
		zap.String("type", evt.Type),
		zap.String("post_id", evt.PostID),
		zap.String("recipient_id", evt.RecipientID),
		zap.Error(err),
	)
}

// NotificationService is the read side of the notification sink
type NotificationService struct {
	store storage.NotificationStore
}

// NewNotificationService creates a notification service
func NewNotificationService(store storage.NotificationStore) *NotificationService {
	return &NotificationService{store: store}
}

// List returns the actor's notifications newest first
func (s *NotificationService) List(ctx context.Context, actor Actor) ([]*models.Notification, error) {
	list, err := s.store.ListNotifications(ctx, actor.ID, notificationListLimit)
	if err != nil {
		return nil, fromStorage(err, "notifications")
	}
	return nonNil(list), nil
}

// MarkRead marks one of the actor's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, id string) error {
	return fromStorage(s.store.MarkNotificationRead(ctx, id, actor.ID), "notification")
}

// MarkAllRead marks all of the actor's notifications read
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, actor.ID)
	if err != nil {
		return 0, fromStorage(err, "notifications")
	}
	return n, nil
}

// UnreadCount counts the actor's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int, error) {
	n, err := s.store.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, fromStorage(err, "notifications")
	}
	return n, nil
}
