package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/service"
	"github.com/campuslink/commons/pkg/logging"
)

const healthTimeout = 2 * time.Second

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Services bundles the domain services the API exposes
type Services struct {
	Accounts      *service.AccountService
	Users         *service.UserService
	Posts         *service.PostService
	Notifications *service.NotificationService
}

// Router sets up API routes
type Router struct {
	handler *Handler
	svc     Services
	checks  map[string]HealthChecker
	logger  *zap.Logger
}

// NewRouter creates a new API router. The health endpoints run checks.
func NewRouter(svc Services, checks map[string]HealthChecker) *Router {
	return &Router{
		handler: NewHandler(),
		svc:     svc,
		checks:  checks,
		logger:  logging.GetLogger().With(zap.String("component", "api-router")),
	}
}

// NewEngine builds a gin engine with recovery, tracing and request logging
func NewEngine(r *Router, serviceName string) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(logging.GinMiddleware(logging.WithComponent("http")))
	engine.NoRoute(notFoundRoute)

	r.SetupRoutes(engine)
	return engine
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	h := r.handler

	// Health check endpoints
	engine.GET("/health", r.healthHandler)
	engine.GET("/.well-known/healthcheck.json", r.healthHandler)

	authAPI := NewAuthAPI(r.svc.Accounts)
	postAPI := NewPostAPI(r.svc.Posts)
	userAPI := NewUserAPI(r.svc.Users)
	notifyAPI := NewNotificationAPI(r.svc.Notifications)

	requireAuth := h.RequireAuth(r.svc.Accounts)

	authGroup := engine.Group("/auth")
	authGroup.POST("/register", h.Wrap("auth.register", http.StatusCreated, authAPI.Register))
	authGroup.POST("/login", h.Wrap("auth.login", http.StatusOK, authAPI.Login))
	authGroup.POST("/logout", requireAuth, h.Wrap("auth.logout", http.StatusOK, authAPI.Logout))

	posts := engine.Group("/posts", requireAuth)
	posts.POST("", h.Wrap("posts.create", http.StatusCreated, postAPI.Create))
	posts.GET("/feed", h.Wrap("posts.feed", http.StatusOK, postAPI.Feed))
	posts.GET("/mine", h.Wrap("posts.mine", http.StatusOK, postAPI.Mine))
	posts.GET("/trending/all", h.Wrap("posts.trending", http.StatusOK, postAPI.Trending))
	posts.GET("/:id", h.Wrap("posts.get", http.StatusOK, postAPI.Get))
	posts.PUT("/:id", h.Wrap("posts.edit", http.StatusOK, postAPI.Edit))
	posts.DELETE("/:id", h.Wrap("posts.delete", http.StatusOK, postAPI.Delete))
	posts.POST("/:id/like", h.Wrap("posts.like", http.StatusOK, postAPI.ToggleLike))
	posts.POST("/:id/comment", h.Wrap("posts.comment", http.StatusCreated, postAPI.AddComment))
	posts.POST("/:id/comment/:commentId/reply", h.Wrap("posts.reply", http.StatusCreated, postAPI.Reply))
	posts.DELETE("/:id/comment/:commentId", h.Wrap("posts.delete_comment", http.StatusOK, postAPI.DeleteComment))

	users := engine.Group("/users", requireAuth)
	users.GET("/me", h.Wrap("users.me", http.StatusOK, userAPI.Me))
	users.DELETE("/me", h.Wrap("users.delete", http.StatusOK, userAPI.DeleteAccount))
	users.PUT("/me/profile", h.Wrap("users.profile", http.StatusOK, userAPI.UpdateProfile))
	users.GET("/settings", h.Wrap("users.settings", http.StatusOK, userAPI.Settings))
	users.PUT("/settings/account", h.Wrap("users.account", http.StatusOK, userAPI.UpdateAccount))
	users.GET("/blocked", h.Wrap("users.blocked", http.StatusOK, userAPI.Blocked))
	users.GET("/discover", h.Wrap("users.discover", http.StatusOK, userAPI.Discover))
	users.GET("/:id/public", h.Wrap("users.public", http.StatusOK, userAPI.PublicProfile))
	users.POST("/:id/block", h.Wrap("users.block", http.StatusOK, userAPI.ToggleBlock))

	notifications := engine.Group("/notifications", requireAuth)
	notifications.GET("", h.Wrap("notifications.list", http.StatusOK, notifyAPI.List))
	notifications.GET("/unread-count", h.Wrap("notifications.unread", http.StatusOK, notifyAPI.UnreadCount))
	notifications.POST("/read-all", h.Wrap("notifications.read_all", http.StatusOK, notifyAPI.MarkAllRead))
	notifications.POST("/:id/read", h.Wrap("notifications.read", http.StatusOK, notifyAPI.MarkRead))
}

// healthHandler runs the health check of every registered dependency
func (r *Router) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(r.checks))
	for name, check := range r.checks {
		if err := check.Health(ctx); err != nil {
			r.logger.Warn("Health check failed", zap.String("dependency", name), zap.Error(err))
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	c.JSON(status, gin.H{
		"status":       http.StatusText(status),
		"service":      "commons-api",
		"dependencies": deps,
	})
}
