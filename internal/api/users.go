package api

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/commons/internal/service"
)

// UserAPI serves /users
type UserAPI struct {
	users *service.UserService
}

// NewUserAPI creates a new user API
func NewUserAPI(users *service.UserService) *UserAPI {
	return &UserAPI{users: users}
}

type updateProfileRequest struct {
	Major      *string         `json:"major"`
	Department *string         `json:"department"`
	Year       *string         `json:"year"`
	Bio        *string         `json:"bio"`
	Interests  json.RawMessage `json:"interests"`
}

type updateAccountRequest struct {
	Name                 *string                             `json:"name"`
	NotificationSettings *service.NotificationSettingsUpdate `json:"notificationSettings"`
}

// parseInterests accepts a JSON array of strings or a comma-separated string
func parseInterests(raw json.RawMessage) (*[]string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return &list, nil
	}
	var csv string
	if err := json.Unmarshal(raw, &csv); err != nil {
		return nil, service.ValidationError("interests must be a list or a comma-separated string")
	}
	parsed := service.ParseInterests(csv)
	return &parsed, nil
}

// Me handles GET /users/me
func (a *UserAPI) Me(c *gin.Context) (interface{}, error) {
	return a.users.Me(c.Request.Context(), actorFrom(c))
}

// UpdateProfile handles PUT /users/me/profile
func (a *UserAPI) UpdateProfile(c *gin.Context) (interface{}, error) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("invalid request body")
	}
	interests, err := parseInterests(req.Interests)
	if err != nil {
		return nil, err
	}
	return a.users.UpdateProfile(c.Request.Context(), actorFrom(c), service.ProfileUpdate{
		Major:      req.Major,
		Department: req.Department,
		Year:       req.Year,
		Bio:        req.Bio,
		Interests:  interests,
	})
}

// Settings handles GET /users/settings
func (a *UserAPI) Settings(c *gin.Context) (interface{}, error) {
	return a.users.Settings(c.Request.Context(), actorFrom(c))
}

// UpdateAccount handles PUT /users/settings/account
func (a *UserAPI) UpdateAccount(c *gin.Context) (interface{}, error) {
	var req updateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("invalid request body")
	}
	return a.users.UpdateAccount(c.Request.Context(), actorFrom(c), req.Name, req.NotificationSettings)
}

// PublicProfile handles GET /users/:id/public
func (a *UserAPI) PublicProfile(c *gin.Context) (interface{}, error) {
	return a.users.PublicProfile(c.Request.Context(), c.Param("id"))
}

// Blocked handles GET /users/blocked
func (a *UserAPI) Blocked(c *gin.Context) (interface{}, error) {
	return a.users.Blocked(c.Request.Context(), actorFrom(c))
}

// ToggleBlock handles POST /users/:id/block
func (a *UserAPI) ToggleBlock(c *gin.Context) (interface{}, error) {
	return a.users.ToggleBlock(c.Request.Context(), actorFrom(c), c.Param("id"))
}

// Discover handles GET /users/discover?q=
func (a *UserAPI) Discover(c *gin.Context) (interface{}, error) {
	return a.users.Discover(c.Request.Context(), actorFrom(c), c.Query("q"))
}

// DeleteAccount handles DELETE /users/me
func (a *UserAPI) DeleteAccount(c *gin.Context) (interface{}, error) {
	if err := a.users.DeleteAccount(c.Request.Context(), actorFrom(c)); err != nil {
		return nil, err
	}
	return gin.H{"message": "Account has been deactivated."}, nil
}
