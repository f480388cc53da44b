package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/storage"
	"github.com/campuslink/commons/pkg/config"
	"github.com/campuslink/commons/pkg/logging"
	"github.com/campuslink/commons/pkg/telemetry"
)

// PostService owns posts, their embedded comments and replies, likes and feeds
type PostService struct {
	posts    storage.PostStore
	notifier *Notifier
	cache    TrendingCache
	feed     config.FeedConfig
	logger   *zap.Logger
	now      func() time.Time
}

// NewPostService creates a post service. c may be nil.
func NewPostService(posts storage.PostStore, notifier *Notifier, c TrendingCache, feed config.FeedConfig) *PostService {
	return &PostService{
		posts:    posts,
		notifier: notifier,
		cache:    c,
		feed:     feed,
		logger:   logging.WithComponent("posts"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new post authored by actor
func (s *PostService) Create(ctx context.Context, actor Actor, title, body string) (*PostView, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.create")
	defer span.End()

	title = CleanText(title)
	if title == "" {
		return nil, ValidationError("title is required")
	}
	if CleanText(body) == "" {
		return nil, ValidationError("body is required")
	}

	now := s.now()
	post := &models.Post{
		ID:          uuid.NewString(),
		AuthorID:    actor.ID,
		AuthorName:  actor.Name,
		AuthorEmail: actor.Email,
		Title:       title,
		Body:        strings.TrimSpace(body),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fromStorage(err, "post")
	}
	s.invalidateTrending(ctx)

	return newPostView(post, actor), nil
}

// Get returns one post. Comments and replies by blocked users are hidden
// and AuthorBlocked flags a blocked author.
func (s *PostService) Get(ctx context.Context, actor Actor, id string) (*PostView, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, fromStorage(err, "post")
	}
	return newPostView(post, actor), nil
}

// Edit applies the provided fields. Any successful edit marks the post edited.
func (s *PostService) Edit(ctx context.Context, actor Actor, id string, title, body *string) (*PostView, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.edit")
	defer span.End()

	if title == nil && body == nil {
		return nil, ValidationError("title or body is required")
	}

	var patch storage.PostPatch
	if title != nil {
		cleaned := CleanText(*title)
		if cleaned == "" {
			return nil, ValidationError("title cannot be empty")
		}
		patch.Title = &cleaned
	}
	if body != nil {
		if CleanText(*body) == "" {
			return nil, ValidationError("body cannot be empty")
		}
		trimmed := strings.TrimSpace(*body)
		patch.Body = &trimmed
	}

	post, err := s.posts.UpdatePost(ctx, id, patch, authorOnly(actor, "edit"))
	if err != nil {
		return nil, fromStorage(err, "post")
	}
	s.invalidateTrending(ctx)
	return newPostView(post, actor), nil
}

// Delete removes a post with everything embedded in it
func (s *PostService) Delete(ctx context.Context, actor Actor, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.delete")
	defer span.End()

	if err := s.posts.DeletePost(ctx, id, authorOnly(actor, "delete")); err != nil {
		return fromStorage(err, "post")
	}
	s.invalidateTrending(ctx)
	return nil
}

// DeleteComment removes a comment and its replies. The comment's author
// and the post's author may do this.
func (s *PostService) DeleteComment(ctx context.Context, actor Actor, postID, commentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "posts.delete_comment")
	defer span.End()

	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return fromStorage(err, "post")
	}

	guard := func(post *models.Post, comment *models.Comment) error {
		if actor.ID != comment.UserID && actor.ID != post.AuthorID {
			return Forbidden("not allowed to delete this comment")
		}
		return nil
	}
	if err := s.posts.DeleteComment(ctx, postID, commentID, guard); err != nil {
		return fromStorage(err, "comment")
	}
	s.invalidateTrending(ctx)
	return nil
}

func authorOnly(actor Actor, action string) storage.PostGuard {
	return func(post *models.Post) error {
		if post.AuthorID != actor.ID {
			return Forbidden("only the author can %s this post", action)
		}
		return nil
	}
}
