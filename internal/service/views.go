package service

import (
	"time"

	"github.com/campuslink/commons/internal/models"
)

// Actor is the authenticated user a request runs as
type Actor struct {
	ID           string
	Name         string
	Email        string
	BlockedUsers []string
}

// ActorFromUser snapshots the fields requests need from a user
func ActorFromUser(u *models.User) Actor {
	return Actor{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		BlockedUsers: append([]string(nil), u.BlockedUsers...),
	}
}

func (a Actor) visibility() Visibility {
	return NewVisibility(a.BlockedUsers)
}

// PostView is a post as returned to one actor
type PostView struct {
	ID            string           `json:"id"`
	AuthorID      string           `json:"authorId"`
	AuthorName    string           `json:"authorName"`
	AuthorEmail   string           `json:"authorEmail"`
	Title         string           `json:"title"`
	Body          string           `json:"body"`
	BodyHTML      string           `json:"bodyHtml"`
	Edited        bool             `json:"edited"`
	Likes         []string         `json:"likes"`
	LikesCount    int              `json:"likesCount"`
	LikedByMe     bool             `json:"likedByMe"`
	CommentsCount int              `json:"commentsCount"`
	Comments      []models.Comment `json:"comments"`
	AuthorBlocked bool             `json:"authorBlocked"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// newPostView filters the thread for actor. Counts cover the whole
// stored thread while lists only carry what actor may see.
func newPostView(p *models.Post, actor Actor) *PostView {
	vis := actor.visibility()
	return &PostView{
		ID:            p.ID,
		AuthorID:      p.AuthorID,
		AuthorName:    p.AuthorName,
		AuthorEmail:   p.AuthorEmail,
		Title:         p.Title,
		Body:          p.Body,
		BodyHTML:      RenderMarkdown(p.Body),
		Edited:        p.Edited,
		Likes:         nonNil(p.Likes),
		LikesCount:    len(p.Likes),
		LikedByMe:     p.LikedBy(actor.ID),
		CommentsCount: len(p.Comments),
		Comments:      normalizeComments(vis.FilterComments(p.Comments)),
		AuthorBlocked: vis.Hides(p.AuthorID),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func newPostViews(posts []*models.Post, actor Actor) []*PostView {
	out := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostView(p, actor))
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// normalizeComments makes empty collections encode as [] rather than null
func normalizeComments(comments []models.Comment) []models.Comment {
	comments = nonNil(comments)
	for i := range comments {
		comments[i].Replies = nonNil(comments[i].Replies)
	}
	return comments
}

// PublicProfile is what any member may see about another
type PublicProfile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Major      string    `json:"major"`
	Department string    `json:"department"`
	Year       string    `json:"year"`
	Bio        string    `json:"bio"`
	Interests  []string  `json:"interests"`
	CreatedAt  time.Time `json:"createdAt"`
}

func newPublicProfile(u *models.User) PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		Major:      u.Major,
		Department: u.Department,
		Year:       u.Year,
		Bio:        u.Bio,
		Interests:  nonNil(u.Interests),
		CreatedAt:  u.CreatedAt,
	}
}

// Stats summarises a user's activity
type Stats struct {
	PostsCount            int `json:"postsCount"`
	LikesGivenCount       int `json:"likesGivenCount"`
	LikesReceivedCount    int `json:"likesReceivedCount"`
	CommentsReceivedCount int `json:"commentsReceivedCount"`
}

// Profile is the owner's view of their own account
type Profile struct {
	PublicProfile
	NotificationSettings models.NotificationSettings `json:"notificationSettings"`
	BlockedUsers         []string                    `json:"blockedUsers"`
	Stats                *Stats                      `json:"stats,omitempty"`
}

func newProfile(u *models.User) *Profile {
	return &Profile{
		PublicProfile:        newPublicProfile(u),
		NotificationSettings: u.NotificationSettings,
		BlockedUsers:         nonNil(u.BlockedUsers),
	}
}
