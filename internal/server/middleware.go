package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader     = "X-Request-Id"
	requestIDContextKey = "dailytrack_request_id"
	subjectContextKey   = "dailytrack_subject"
)

var errInvalidAuthorization = errors.New("authorization header missing or invalid")

func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDContextKey, requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", c.GetString(requestIDContextKey)),
		}
		if subject := c.GetString(subjectContextKey); subject != "" {
			fields = append(fields, zap.String("subject", subject))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("http request", fields...)
			return
		}
		logger.Info("http request", fields...)
	}
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	token, err := auth.TokenFromRequest(c.Request)
	if err != nil {
		abortUnauthorized(c, errInvalidAuthorization.Error())
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		abortUnauthorized(c, "invalid or expired token")
		return
	}
	c.Set(subjectContextKey, subject)
	c.Next()
}
