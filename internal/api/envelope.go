package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campuslink/commons/internal/service"
	"github.com/campuslink/commons/pkg/logging"
	"github.com/campuslink/commons/pkg/telemetry"
)

// Response is the envelope of every API reply
type Response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// HandlerFunc handles one endpoint and returns the envelope payload
type HandlerFunc func(c *gin.Context) (interface{}, error)

// Handler turns HandlerFuncs into gin handlers that speak the envelope
type Handler struct {
	logger *zap.Logger
}

// NewHandler creates a new envelope handler
func NewHandler() *Handler {
	return &Handler{
		logger: logging.GetLogger().With(zap.String("component", "api")),
	}
}

// Wrap adapts fn, replying with status on success
func (h *Handler) Wrap(name string, status int, fn HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "api."+name)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		data, err := fn(c)
		if err != nil {
			h.sendError(c, err)
			return
		}
		h.sendResponse(c, status, data)
	}
}

// sendResponse sends a successful envelope
func (h *Handler) sendResponse(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{OK: true, Data: data})
}

// sendError maps err onto a status. Internal details are logged, never sent.
func (h *Handler) sendError(c *gin.Context, err error) {
	kind := service.KindOf(err)
	status := StatusFor(kind)

	message := internalMessage
	if kind != service.KindInternal {
		message = publicMessage(err)
	} else {
		h.logger.Error("Request failed",
			zap.String("route", c.FullPath()),
			zap.Any("request_id", c.Value("request_id")),
			zap.Error(err),
		)
	}

	c.AbortWithStatusJSON(status, Response{OK: false, Error: message})
}

func notFoundRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, Response{OK: false, Error: "route not found"})
}
