package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/pkg/telemetry"
)

// LikeResult is the outcome of a like toggle
type LikeResult struct {
	PostID     string `json:"postId"`
	Liked      bool   `json:"liked"`
	LikesCount int    `json:"likesCount"`
}

// CommentResult is the post's thread after a comment was appended
type CommentResult struct {
	PostID        string           `json:"postId"`
	CommentsCount int              `json:"commentsCount"`
	Comments      []models.Comment `json:"comments"`
}

// ReplyResult is the comment's replies after a reply was appended
type ReplyResult struct {
	PostID    string         `json:"postId"`
	CommentID string         `json:"commentId"`
	Replies   []models.Reply `json:"replies"`
	Reply     models.Reply   `json:"reply"`
}

// ToggleLike likes the post when actor has not liked it and unlikes it otherwise.
// Only a new like notifies the author.
func (s *PostService) ToggleLike(ctx context.Context, actor Actor, postID string) (*LikeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.toggle_like")
	defer span.End()

	post, liked, err := s.posts.ToggleLike(ctx, postID, actor.ID)
	if err != nil {
		return nil, fromStorage(err, "post")
	}
	s.invalidateTrending(ctx)

	if liked {
		telemetry.RecordInteraction(ctx, "like")
		s.notifier.Notify(ctx, Event{
			Type:        models.NotifyTypeLike,
			RecipientID: post.AuthorID,
			Actor:       actor,
			PostID:      post.ID,
			PostTitle:   post.Title,
		})
	} else {
		telemetry.RecordInteraction(ctx, "unlike")
	}

	return &LikeResult{PostID: post.ID, Liked: liked, LikesCount: post.LikesCount}, nil
}

// AddComment appends a comment and notifies the post's author
func (s *PostService) AddComment(ctx context.Context, actor Actor, postID, text string) (*CommentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.add_comment")
	defer span.End()

	text = CleanText(text)
	if text == "" {
		return nil, ValidationError("comment text is required")
	}

	comment := &models.Comment{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Text:      text,
		CreatedAt: s.now(),
	}
	post, err := s.posts.AppendComment(ctx, postID, comment)
	if err != nil {
		return nil, fromStorage(err, "post")
	}
	s.invalidateTrending(ctx)
	telemetry.RecordInteraction(ctx, "comment")

	s.notifier.Notify(ctx, Event{
		Type:        models.NotifyTypeComment,
		RecipientID: post.AuthorID,
		Actor:       actor,
		PostID:      post.ID,
		PostTitle:   post.Title,
		CommentID:   &comment.ID,
	})

	return &CommentResult{
		PostID:        post.ID,
		CommentsCount: len(post.Comments),
		Comments:      normalizeComments(actor.visibility().FilterComments(post.Comments)),
	}, nil
}

// ReplyToComment appends a reply and notifies the comment's author
func (s *PostService) ReplyToComment(ctx context.Context, actor Actor, postID, commentID, text string) (*ReplyResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "posts.reply")
	defer span.End()

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, fromStorage(err, "post")
	}
	if post.FindComment(commentID) == nil {
		return nil, NotFound("comment not found")
	}

	text = CleanText(text)
	if text == "" {
		return nil, ValidationError("reply text is required")
	}

	reply := &models.Reply{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		UserName:  actor.Name,
		UserEmail: actor.Email,
		Text:      text,
		CreatedAt: s.now(),
	}
	comment, err := s.posts.AppendReply(ctx, postID, commentID, reply)
	if err != nil {
		return nil, fromStorage(err, "comment")
	}
	s.invalidateTrending(ctx)
	telemetry.RecordInteraction(ctx, "reply")

	notifyCommentID := comment.ID
	s.notifier.Notify(ctx, Event{
		Type:        models.NotifyTypeReply,
		RecipientID: comment.UserID,
		Actor:       actor,
		PostID:      postID,
		PostTitle:   post.Title,
		CommentID:   &notifyCommentID,
	})

	return &ReplyResult{
		PostID:    postID,
		CommentID: comment.ID,
		Replies:   nonNil(actor.visibility().FilterReplies(comment.Replies)),
		Reply:     *reply,
	}, nil
}
