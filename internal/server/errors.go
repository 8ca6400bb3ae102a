package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	errorValidation   = "VALIDATION_ERROR"
	errorNotFound     = "NOT_FOUND"
	errorConflict     = "CONFLICT"
	errorInternal     = "INTERNAL_ERROR"
	errorUnauthorized = "UNAUTHORIZED"

	internalErrorMessage = "internal error"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// respondError translates a classified error into its HTTP status and body.
// Unclassified errors become a generic 500.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var serviceErr *tracking.ServiceError
	hasServiceErr := errors.As(err, &serviceErr)

	body := errorResponse{}
	if hasServiceErr {
		body.Code = serviceErr.Code()
	}
	message := func() string {
		if hasServiceErr {
			return serviceErr.Message()
		}
		return err.Error()
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, tracking.ErrValidation):
		status = http.StatusBadRequest
		body.Error = errorValidation
		body.Message = message()
	case errors.Is(err, tracking.ErrNotFound):
		status = http.StatusNotFound
		body.Error = errorNotFound
		body.Message = message()
	case errors.Is(err, tracking.ErrConflict):
		status = http.StatusConflict
		body.Error = errorConflict
		body.Message = message()
	default:
		body.Error = errorInternal
		body.Message = internalErrorMessage
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(requestIDContextKey)),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorUnauthorized, Message: message})
}
