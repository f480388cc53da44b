package models

import "time"

// NotificationSettings holds per-type notification preferences
type NotificationSettings struct {
	Likes    bool `gorm:"not null;column:likes" json:"likes"`
	Comments bool `gorm:"not null;column:comments" json:"comments"`
	Replies  bool `gorm:"not null;column:replies" json:"replies"`
	System   bool `gorm:"not null;column:system" json:"system"`
}

// DefaultNotificationSettings enables every notification type
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{Likes: true, Comments: true, Replies: true, System: true}
}

// User represents a registered campus member
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	Name         string `gorm:"type:varchar(100);not null;column:name" json:"name"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex:users_email_ux;column:email" json:"email"`
	PasswordHash string `gorm:"type:varchar(100);not null;column:password_hash" json:"passwordHash"`

	// Profile fields
	Major      string   `gorm:"type:varchar(100);not null;default:'';column:major" json:"major"`
	Department string   `gorm:"type:varchar(100);not null;default:'';column:department" json:"department"`
	Year       string   `gorm:"type:varchar(20);not null;default:'';column:year" json:"year"`
	Bio        string   `gorm:"type:text;not null;default:'';column:bio" json:"bio"`
	Interests  []string `gorm:"serializer:json;type:text;column:interests" json:"interests"`

	NotificationSettings NotificationSettings `gorm:"embedded;embeddedPrefix:notify_" json:"notificationSettings"`

	IsDeleted bool      `gorm:"not null;default:false;index:users_deleted_ix;column:is_deleted" json:"isDeleted"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`

	// Embedded in the document store; loaded from user_blocks by the relational store
	BlockedUsers []string `gorm:"-" json:"blockedUsers"`
}

// TableName specifies the table name for User
func (User) TableName() string {
	return "users"
}

// HasBlocked reports whether id is on the user's block-list
func (u *User) HasBlocked(id string) bool {
	for _, b := range u.BlockedUsers {
		if b == id {
			return true
		}
	}
	return false
}

// UserBlock is a one-directional block relation
type UserBlock struct {
	BlockerID string    `gorm:"primaryKey;type:varchar(36);column:blocker_id"`
	BlockedID string    `gorm:"primaryKey;type:varchar(36);index:user_blocks_blocked_ix;column:blocked_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`

	Blocker *User `gorm:"foreignKey:BlockerID;references:ID;constraint:OnDelete:CASCADE"`
	Blocked *User `gorm:"foreignKey:BlockedID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for UserBlock
func (UserBlock) TableName() string {
	return "user_blocks"
}
