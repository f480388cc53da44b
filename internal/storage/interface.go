package storage

import (
	"context"
	"errors"
	"time"

	"github.com/campuslink/commons/internal/models"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned on a duplicate unique key or a concurrent write to the same entity
	ErrConflict = errors.New("storage: conflict")
)

// Order selects the sort policy of ListPosts
type Order int

const (
	// OrderNewest sorts by creation time descending
	OrderNewest Order = iota
	// OrderTrending sorts by like count descending, then creation time descending
	OrderTrending
)

// PostQuery filters and sorts a post listing.
type PostQuery struct {
	AuthorID       string
	ExcludeAuthors []string
	Order          Order
	Limit          int // <= 0 means no limit

	// Before and BeforeID form a (created_at, id) cursor for the newest
	// order: posts created earlier, or at the same instant with a larger id.
	// An empty BeforeID keeps only posts created strictly earlier.
	Before   *time.Time
	BeforeID string
}

// After reports whether a post sorts after the cursor in q
func (q PostQuery) After(createdAt time.Time, id string) bool {
	if q.Before == nil {
		return true
	}
	if createdAt.Before(*q.Before) {
		return true
	}
	return q.BeforeID != "" && createdAt.Equal(*q.Before) && id > q.BeforeID
}

// PostPatch is a partial post update. Nil fields are left untouched.
type PostPatch struct {
	Title *string
	Body  *string
}

// PostGuard authorizes a mutation against the current stored post.
// A non-nil error aborts the mutation and is returned unchanged.
type PostGuard func(post *models.Post) error

// CommentGuard authorizes a mutation of one comment of the current stored post
type CommentGuard func(post *models.Post, comment *models.Comment) error

// UserStore persists users and their block-lists
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// UpdateUser saves profile, settings and deletion state. The block-list is not touched.
	UpdateUser(ctx context.Context, user *models.User) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	ToggleBlock(ctx context.Context, userID, targetID string) (blocked bool, err error)
	ListBlocked(ctx context.Context, userID string) ([]*models.User, error)
}

// PostStore persists posts with their embedded comments, replies and likes.
// Every mutation is atomic with respect to the post it touches.
type PostStore interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, patch PostPatch, guard PostGuard) (*models.Post, error)
	DeletePost(ctx context.Context, id string, guard PostGuard) error
	ListPosts(ctx context.Context, q PostQuery) ([]*models.Post, error)

	// ToggleLike adds userID to the liker set when absent and removes it otherwise
	ToggleLike(ctx context.Context, postID, userID string) (post *models.Post, liked bool, err error)
	AppendComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error)
	AppendReply(ctx context.Context, postID, commentID string, reply *models.Reply) (*models.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string, guard CommentGuard) error
	CountLikesGiven(ctx context.Context, userID string) (int, error)
}

// NotificationStore persists fan-out notifications
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	// ListNotifications returns newest first
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientID string) error
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// Store is the full persistence contract implemented by each backend
type Store interface {
	UserStore
	PostStore
	NotificationStore

	Health(ctx context.Context) error
	Close() error
}
