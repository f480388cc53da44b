package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/commons/internal/service"
)

// PostAPI serves /posts
type PostAPI struct {
	posts *service.PostService
}

// NewPostAPI creates a new post API
func NewPostAPI(posts *service.PostService) *PostAPI {
	return &PostAPI{posts: posts}
}

type createPostRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

type editPostRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

// Create handles POST /posts
func (a *PostAPI) Create(c *gin.Context) (interface{}, error) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("title and body are required")
	}
	return a.posts.Create(c.Request.Context(), actorFrom(c), req.Title, req.Body)
}

// Get handles GET /posts/:id
func (a *PostAPI) Get(c *gin.Context) (interface{}, error) {
	return a.posts.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
}

// Edit handles PUT /posts/:id
func (a *PostAPI) Edit(c *gin.Context) (interface{}, error) {
	var req editPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("invalid request body")
	}
	return a.posts.Edit(c.Request.Context(), actorFrom(c), c.Param("id"), req.Title, req.Body)
}

// Delete handles DELETE /posts/:id
func (a *PostAPI) Delete(c *gin.Context) (interface{}, error) {
	id := c.Param("id")
	if err := a.posts.Delete(c.Request.Context(), actorFrom(c), id); err != nil {
		return nil, err
	}
	return gin.H{"id": id, "deleted": true}, nil
}

// ToggleLike handles POST /posts/:id/like
func (a *PostAPI) ToggleLike(c *gin.Context) (interface{}, error) {
	return a.posts.ToggleLike(c.Request.Context(), actorFrom(c), c.Param("id"))
}

// AddComment handles POST /posts/:id/comment
func (a *PostAPI) AddComment(c *gin.Context) (interface{}, error) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("comment text is required")
	}
	return a.posts.AddComment(c.Request.Context(), actorFrom(c), c.Param("id"), req.Text)
}

// Reply handles POST /posts/:id/comment/:commentId/reply
func (a *PostAPI) Reply(c *gin.Context) (interface{}, error) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("reply text is required")
	}
	return a.posts.ReplyToComment(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("commentId"), req.Text)
}

// DeleteComment handles DELETE /posts/:id/comment/:commentId
func (a *PostAPI) DeleteComment(c *gin.Context) (interface{}, error) {
	postID, commentID := c.Param("id"), c.Param("commentId")
	if err := a.posts.DeleteComment(c.Request.Context(), actorFrom(c), postID, commentID); err != nil {
		return nil, err
	}
	return gin.H{"postId": postID, "commentId": commentID, "deleted": true}, nil
}

// Feed handles GET /posts/feed?limit=&before=&beforeId=
func (a *PostAPI) Feed(c *gin.Context) (interface{}, error) {
	var params service.FeedParams

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return nil, service.ValidationError("limit must be a non-negative integer")
		}
		params.Limit = limit
	}
	if raw := c.Query("before"); raw != "" {
		before, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, service.ValidationError("before must be an RFC3339 timestamp")
		}
		params.Before = &before
	}
	if id := c.Query("beforeId"); id != "" {
		if params.Before == nil {
			return nil, service.ValidationError("beforeId requires before")
		}
		params.BeforeID = id
	}

	return a.posts.Feed(c.Request.Context(), actorFrom(c), params)
}

// Trending handles GET /posts/trending/all
func (a *PostAPI) Trending(c *gin.Context) (interface{}, error) {
	return a.posts.Trending(c.Request.Context(), actorFrom(c))
}

// Mine handles GET /posts/mine
func (a *PostAPI) Mine(c *gin.Context) (interface{}, error) {
	return a.posts.Mine(c.Request.Context(), actorFrom(c))
}
