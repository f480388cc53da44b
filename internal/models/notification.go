package models

import "time"

// Notification type constants
const (
	NotifyTypeLike    = "like"
	NotifyTypeComment = "comment"
	NotifyTypeReply   = "reply"
)

// Notification is one fan-out event targeted at a single recipient
type Notification struct {
	ID          string    `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	RecipientID string    `gorm:"type:varchar(36);not null;index:notifications_recipient_ix,priority:1;column:recipient_id" json:"recipientId"`
	ActorID     string    `gorm:"type:varchar(36);not null;column:actor_id" json:"actorId"`
	ActorName   string    `gorm:"type:varchar(100);not null;column:actor_name" json:"actorName"`
	Type        string    `gorm:"type:varchar(16);not null;column:type" json:"type"`
	PostID      string    `gorm:"type:varchar(36);not null;column:post_id" json:"postId"`
	CommentID   *string   `gorm:"type:varchar(36);column:comment_id" json:"commentId,omitempty"`
	Message     string    `gorm:"type:text;not null;column:message" json:"message"`
	Read        bool      `gorm:"not null;default:false;column:read" json:"read"`
	CreatedAt   time.Time `gorm:"not null;index:notifications_recipient_ix,priority:2;column:created_at" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// AllModels lists every persisted entity in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&UserBlock{},
		&Post{},
		&PostLike{},
		&Comment{},
		&Reply{},
		&Notification{},
	}
}
