package api

import (
	"github.com/gin-gonic/gin"

	"github.com/campuslink/commons/internal/service"
)

// AuthAPI serves /auth
type AuthAPI struct {
	accounts *service.AccountService
}

// NewAuthAPI creates a new auth API
func NewAuthAPI(accounts *service.AccountService) *AuthAPI {
	return &AuthAPI{accounts: accounts}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register handles POST /auth/register
func (a *AuthAPI) Register(c *gin.Context) (interface{}, error) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("name, email, password required")
	}
	return a.accounts.Register(c.Request.Context(), req.Name, req.Email, req.Password)
}

// Login handles POST /auth/login
func (a *AuthAPI) Login(c *gin.Context) (interface{}, error) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, service.ValidationError("email and password required")
	}
	return a.accounts.Login(c.Request.Context(), req.Email, req.Password)
}

// Logout handles POST /auth/logout
func (a *AuthAPI) Logout(c *gin.Context) (interface{}, error) {
	if err := a.accounts.Logout(c.Request.Context(), c.GetString(tokenKey)); err != nil {
		return nil, err
	}
	return gin.H{"loggedOut": true}, nil
}
