package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// mapError translates GORM errors into storage sentinels
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return storage.ErrConflict
	default:
		return err
	}
}

// Store implements storage.Store on PostgreSQL
type Store struct {
	*UserRepository
	*PostRepository
	*NotificationRepository

	conn *DB
}

var _ storage.Store = (*Store)(nil)

// NewStore creates a relational store over an open connection
func NewStore(conn *DB) *Store {
	repo := NewRepository(conn.DB)
	return &Store{
		UserRepository:         NewUserRepository(repo),
		PostRepository:         NewPostRepository(repo),
		NotificationRepository: NewNotificationRepository(repo),
		conn:                   conn,
	}
}

// Health checks database health
func (s *Store) Health(ctx context.Context) error {
	return s.conn.Health(ctx)
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.conn.Close()
}

// UserRepository provides user-related database operations
type UserRepository struct {
	*Repository
}

// NewUserRepository creates a new user repository
func NewUserRepository(repo *Repository) *UserRepository {
	return &UserRepository{Repository: repo}
}

func (r *UserRepository) loadBlocked(tx *gorm.DB, user *models.User) error {
	return tx.Model(&models.UserBlock{}).
		Where("blocker_id = ?", user.ID).
		Order("created_at ASC").
		Pluck("blocked_id", &user.BlockedUsers).Error
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error)
}

// GetUser retrieves a user with its block-list
func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, "id = ?", id)
}

// GetUserByEmail retrieves a user by email
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, "email = ?", email)
}

func (r *UserRepository) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	tx := r.db.WithContext(ctx)
	var user models.User
	if err := tx.Where(query, arg).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	if err := r.loadBlocked(tx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateUser saves profile, settings and deletion state
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	res := r.db.WithContext(ctx).Model(&models.User{ID: user.ID}).
		Select("name", "password_hash", "major", "department", "year", "bio", "interests",
			"notify_likes", "notify_comments", "notify_replies", "notify_system",
			"is_deleted", "updated_at").
		Updates(user)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListUsers returns every user with block-lists attached
func (r *UserRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	tx := r.db.WithContext(ctx)

	var users []*models.User
	if err := tx.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, err
	}

	var blocks []models.UserBlock
	if err := tx.Order("created_at ASC").Find(&blocks).Error; err != nil {
		return nil, err
	}
	byBlocker := make(map[string][]string)
	for _, b := range blocks {
		byBlocker[b.BlockerID] = append(byBlocker[b.BlockerID], b.BlockedID)
	}
	for _, u := range users {
		u.BlockedUsers = byBlocker[u.ID]
	}
	return users, nil
}

// ToggleBlock inserts or removes a block relation
func (r *UserRepository) ToggleBlock(ctx context.Context, userID, targetID string) (bool, error) {
	var blocked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id IN ?", []string{userID, targetID}).Count(&count).Error; err != nil {
			return err
		}
		if count < 2 {
			return storage.ErrNotFound
		}

		res := tx.Where("blocker_id = ? AND blocked_id = ?", userID, targetID).Delete(&models.UserBlock{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			blocked = false
			return nil
		}

		blocked = true
		return tx.Omit(clause.Associations).Create(&models.UserBlock{
			BlockerID: userID,
			BlockedID: targetID,
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	return blocked, mapError(err)
}

// ListBlocked returns the users on userID's block-list
func (r *UserRepository) ListBlocked(ctx context.Context, userID string) ([]*models.User, error) {
	tx := r.db.WithContext(ctx)
	blockedIDs := tx.Model(&models.UserBlock{}).Select("blocked_id").Where("blocker_id = ?", userID)

	var users []*models.User
	if err := tx.Where("id IN (?)", blockedIDs).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

func withThread(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Comments.Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		})
}

// attachLikes fills the liker set of each post with one query
func attachLikes(tx *gorm.DB, posts ...*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var likes []models.PostLike
	if err := tx.Where("post_id IN ?", ids).Order("created_at ASC").Find(&likes).Error; err != nil {
		return err
	}
	byPost := make(map[string][]string, len(posts))
	for _, l := range likes {
		byPost[l.PostID] = append(byPost[l.PostID], l.UserID)
	}
	for _, p := range posts {
		p.Likes = byPost[p.ID]
	}
	return nil
}

func loadPost(tx *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	if err := withThread(tx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, mapError(err)
	}
	if err := attachLikes(tx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// lockPost takes a row lock on the post for the rest of the transaction
func lockPost(tx *gorm.DB, id string) (*models.Post, error) {
	var post models.Post
	if err := selectForUpdate(tx, id, &post).Error; err != nil {
		return nil, mapError(err)
	}
	return &post, nil
}

func selectForUpdate(tx *gorm.DB, id string, dest *models.Post) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(dest)
}

func removeLike(tx *gorm.DB, postID, userID string) *gorm.DB {
	return tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
}

func insertLike(tx *gorm.DB, postID, userID string) *gorm.DB {
	return tx.Create(&models.PostLike{PostID: postID, UserID: userID, CreatedAt: time.Now().UTC()})
}

// adjustLikes moves likes_count by delta in SQL so concurrent writers never overwrite each other
func adjustLikes(tx *gorm.DB, postID string, delta int) *gorm.DB {
	return tx.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("likes_count", gorm.Expr("likes_count + ?", delta))
}

// CreatePost creates a new post
func (r *PostRepository) CreatePost(ctx context.Context, post *models.Post) error {
	post.LikesCount = 0
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error)
}

// GetPost retrieves a post with comments, replies and likes
func (r *PostRepository) GetPost(ctx context.Context, id string) (*models.Post, error) {
	return loadPost(r.db.WithContext(ctx), id)
}

// UpdatePost applies patch under a row lock and marks the post edited
func (r *PostRepository) UpdatePost(ctx context.Context, id string, patch storage.PostPatch, guard storage.PostGuard) (*models.Post, error) {
	var out *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(post); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"edited":     true,
			"updated_at": time.Now().UTC(),
		}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Body != nil {
			updates["body"] = *patch.Body
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		out, err = loadPost(tx, id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// DeletePost removes a post with its comments, replies and likes
func (r *PostRepository) DeletePost(ctx context.Context, id string, guard storage.PostGuard) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, id)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(post); err != nil {
				return err
			}
		}

		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Post{}).Error
	})
	return mapError(err)
}

// postListQuery applies the filters, ordering and limit of q
func postListQuery(tx *gorm.DB, q storage.PostQuery) *gorm.DB {
	query := tx.Model(&models.Post{})

	if q.AuthorID != "" {
		query = query.Where("author_id = ?", q.AuthorID)
	}
	if len(q.ExcludeAuthors) > 0 {
		query = query.Where("author_id NOT IN ?", q.ExcludeAuthors)
	}
	switch {
	case q.Before != nil && q.BeforeID != "":
		query = query.Where("(created_at < ? OR (created_at = ? AND id > ?))", *q.Before, *q.Before, q.BeforeID)
	case q.Before != nil:
		query = query.Where("created_at < ?", *q.Before)
	}
	if q.Order == storage.OrderTrending {
		query = query.Order("likes_count DESC")
	}
	query = query.Order("created_at DESC").Order("id ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	return query
}

// ListPosts filters, sorts and limits posts in SQL
func (r *PostRepository) ListPosts(ctx context.Context, q storage.PostQuery) ([]*models.Post, error) {
	tx := r.db.WithContext(ctx)

	var posts []*models.Post
	if err := withThread(postListQuery(tx, q)).Find(&posts).Error; err != nil {
		return nil, err
	}
	if err := attachLikes(tx, posts...); err != nil {
		return nil, err
	}
	return posts, nil
}

// ToggleLike inserts or removes the like row and adjusts likes_count
func (r *PostRepository) ToggleLike(ctx context.Context, postID, userID string) (*models.Post, bool, error) {
	var (
		out   *models.Post
		liked bool
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}

		res := removeLike(tx, postID, userID)
		if res.Error != nil {
			return res.Error
		}

		delta := -1
		if res.RowsAffected == 0 {
			if err := insertLike(tx, postID, userID).Error; err != nil {
				return err
			}
			delta = 1
		}
		liked = delta > 0

		if err := adjustLikes(tx, postID, delta).Error; err != nil {
			return err
		}

		var err error
		out, err = loadPost(tx, postID)
		return err
	})
	if err != nil {
		return nil, false, mapError(err)
	}
	return out, liked, nil
}

// AppendComment inserts a comment under a row lock on its post
func (r *PostRepository) AppendComment(ctx context.Context, postID string, comment *models.Comment) (*models.Post, error) {
	var out *models.Post
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		comment.PostID = postID
		if err := tx.Omit(clause.Associations).Create(comment).Error; err != nil {
			return err
		}

		var err error
		out, err = loadPost(tx, postID)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

// AppendReply inserts a reply under a row lock on the post
func (r *PostRepository) AppendReply(ctx context.Context, postID, commentID string, reply *models.Reply) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockPost(tx, postID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error; err != nil {
			return err
		}

		reply.CommentID = commentID
		if err := tx.Create(reply).Error; err != nil {
			return err
		}

		return tx.Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).Where("id = ?", commentID).First(&comment).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &comment, nil
}

// DeleteComment removes a comment and its replies under a row lock on the post
func (r *PostRepository) DeleteComment(ctx context.Context, postID, commentID string, guard storage.CommentGuard) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		post, err := lockPost(tx, postID)
		if err != nil {
			return err
		}

		var comment models.Comment
		if err := tx.Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error; err != nil {
			return err
		}
		if guard != nil {
			if err := guard(post, &comment); err != nil {
				return err
			}
		}

		if err := tx.Where("comment_id = ?", commentID).Delete(&models.Reply{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", commentID).Delete(&models.Comment{}).Error
	})
	return mapError(err)
}

// CountLikesGiven counts posts liked by userID
func (r *PostRepository) CountLikesGiven(ctx context.Context, userID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// NotificationRepository provides notification-related database operations
type NotificationRepository struct {
	*Repository
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(repo *Repository) *NotificationRepository {
	return &NotificationRepository{Repository: repo}
}

// CreateNotification creates a notification
func (r *NotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return mapError(r.db.WithContext(ctx).Create(n).Error)
}

// ListNotifications returns the recipient's notifications newest first
func (r *NotificationRepository) ListNotifications(ctx context.Context, recipientID string, limit int) ([]*models.Notification, error) {
	query := r.db.WithContext(ctx).Where("recipient_id = ?", recipientID).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var out []*models.Notification
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotificationRead marks one of the recipient's notifications read
func (r *NotificationRepository) MarkNotificationRead(ctx context.Context, id, recipientID string) error {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{"read": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification read
func (r *NotificationRepository) MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Updates(map[string]interface{}{"read": true, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("mark all read: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}

// CountUnread counts the recipient's unread notifications
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND read = ?", recipientID, false).
		Count(&count).Error
	return int(count), err
}
