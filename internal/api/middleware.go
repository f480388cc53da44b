package api

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuslink/commons/internal/models"
	"github.com/campuslink/commons/internal/service"
)

const (
	actorKey = "actor"
	tokenKey = "token"
)

// Authenticator resolves bearer tokens to members
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// RequireAuth resolves the bearer token and stores the actor on the context
func (h *Handler) RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			h.sendError(c, service.Unauthenticated("missing bearer token"))
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.sendError(c, err)
			return
		}

		c.Set(actorKey, service.ActorFromUser(user))
		c.Set(tokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// actorFrom returns the actor set by RequireAuth
func actorFrom(c *gin.Context) service.Actor {
	actor, _ := c.MustGet(actorKey).(service.Actor)
	return actor
}
