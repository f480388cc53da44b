package models

import "time"

// Post is a user-authored text post. Comments and likes belong to it.
type Post struct {
	ID       string `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	AuthorID string `gorm:"type:varchar(36);not null;index:posts_author_ix;column:author_id" json:"authorId"`

	// Snapshot of the author at creation time
	AuthorName  string `gorm:"type:varchar(100);not null;column:author_name" json:"authorName"`
	AuthorEmail string `gorm:"type:varchar(255);not null;column:author_email" json:"authorEmail"`

	Title      string    `gorm:"type:varchar(300);not null;column:title" json:"title"`
	Body       string    `gorm:"type:text;not null;column:body" json:"body"`
	Edited     bool      `gorm:"not null;default:false;column:edited" json:"edited"`
	LikesCount int       `gorm:"not null;default:0;index:posts_trending_ix,priority:1;column:likes_count" json:"likesCount"`
	CreatedAt  time.Time `gorm:"not null;index:posts_created_ix;index:posts_trending_ix,priority:2;column:created_at" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null;column:updated_at" json:"updatedAt"`

	// Liker ids, embedded in the document store and loaded from post_likes otherwise
	Likes    []string  `gorm:"-" json:"likes"`
	Comments []Comment `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE" json:"comments"`

	LikeRecords []PostLike `gorm:"foreignKey:PostID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Post
func (Post) TableName() string {
	return "posts"
}

// LikedBy reports whether userID is in the liker set
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// FindComment returns the comment with the given id, or nil
func (p *Post) FindComment(commentID string) *Comment {
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			return &p.Comments[i]
		}
	}
	return nil
}

// PostLike records one user's like on a post
type PostLike struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36);column:post_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index:post_likes_user_ix;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostLike
func (PostLike) TableName() string {
	return "post_likes"
}

// Comment is embedded in a post and kept in insertion order
type Comment struct {
	ID        string    `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	PostID    string    `gorm:"type:varchar(36);not null;index:comments_post_ix;column:post_id" json:"postId"`
	UserID    string    `gorm:"type:varchar(36);not null;column:user_id" json:"userId"`
	UserName  string    `gorm:"type:varchar(100);not null;column:user_name" json:"userName"`
	UserEmail string    `gorm:"type:varchar(255);not null;column:user_email" json:"userEmail"`
	Text      string    `gorm:"type:text;not null;column:text" json:"text"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"createdAt"`

	Replies []Reply `gorm:"foreignKey:CommentID;references:ID;constraint:OnDelete:CASCADE" json:"replies"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// Reply is embedded in a comment. Replies are only removed with their comment.
type Reply struct {
	ID        string    `gorm:"primaryKey;type:varchar(36);column:id" json:"id"`
	CommentID string    `gorm:"type:varchar(36);not null;index:replies_comment_ix;column:comment_id" json:"commentId"`
	UserID    string    `gorm:"type:varchar(36);not null;column:user_id" json:"userId"`
	UserName  string    `gorm:"type:varchar(100);not null;column:user_name" json:"userName"`
	UserEmail string    `gorm:"type:varchar(255);not null;column:user_email" json:"userEmail"`
	Text      string    `gorm:"type:text;not null;column:text" json:"text"`
	CreatedAt time.Time `gorm:"not null;column:created_at" json:"createdAt"`
}

// TableName specifies the table name for Reply
func (Reply) TableName() string {
	return "replies"
}
