package service

import (
	"github.com/samber/lo"

	"github.com/campuslink/commons/internal/models"
)

// Visibility hides content authored by users on an actor's block-list
type Visibility struct {
	blocked map[string]struct{}
}

// NewVisibility builds a filter from a block-list
func NewVisibility(blockedUsers []string) Visibility {
	return Visibility{
		blocked: lo.SliceToMap(blockedUsers, func(id string) (string, struct{}) {
			return id, struct{}{}
		}),
	}
}

// Hides reports whether content by authorID is hidden
func (v Visibility) Hides(authorID string) bool {
	_, ok := v.blocked[authorID]
	return ok
}

// FilterPosts drops posts by blocked authors
func (v Visibility) FilterPosts(posts []*models.Post) []*models.Post {
	if len(v.blocked) == 0 {
		return posts
	}
	return lo.Filter(posts, func(p *models.Post, _ int) bool {
		return !v.Hides(p.AuthorID)
	})
}

// FilterComments drops comments and replies by blocked authors
func (v Visibility) FilterComments(comments []models.Comment) []models.Comment {
	visible := lo.Filter(comments, func(c models.Comment, _ int) bool {
		return !v.Hides(c.UserID)
	})
	return lo.Map(visible, func(c models.Comment, _ int) models.Comment {
		c.Replies = v.FilterReplies(c.Replies)
		return c
	})
}

// FilterReplies drops replies by blocked authors
func (v Visibility) FilterReplies(replies []models.Reply) []models.Reply {
	return lo.Filter(replies, func(r models.Reply, _ int) bool {
		return !v.Hides(r.UserID)
	})
}
