package api

import (
	"errors"
	"net/http"

	"github.com/campuslink/commons/internal/service"
)

const internalMessage = "internal server error"

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindForbidden:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(err error) string {
	var e *service.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return internalMessage
}
