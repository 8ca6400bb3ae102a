package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	apiBasePath              = "/api/v1"
	defaultHeartbeatInterval = 15 * time.Second
)

var errMissingTrackingService = errors.New("tracking service dependency required")

// TokenValidator checks bearer tokens and returns the authenticated subject.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// Dependencies wires the HTTP layer. A nil Tokens disables authentication.
type Dependencies struct {
	Tracking          *tracking.Service
	Tokens            TokenValidator
	Events            *EventDispatcher
	Logger            *zap.Logger
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Tracking == nil {
		return nil, errMissingTrackingService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	events := deps.Events
	if events == nil {
		events = NewEventDispatcher()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(logger))
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		tracking:          deps.Tracking,
		tokens:            deps.Tokens,
		events:            events,
		logger:            logger,
		heartbeatInterval: heartbeat,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group(apiBasePath)
	if deps.Tokens != nil {
		api.Use(handler.authorizeRequest)
	}

	api.GET("/topics", handler.handleListTopics)
	api.POST("/topics", handler.handleCreateTopic)
	api.GET("/topics/:id", handler.handleGetTopic)
	api.PATCH("/topics/:id", handler.handleUpdateTopic)
	api.DELETE("/topics/:id", handler.handleDeleteTopic)

	api.GET("/daily-tracks", handler.handleListDailyTracks)
	api.POST("/daily-tracks", handler.handleCreateDailyTrack)
	api.GET("/daily-tracks/:id", handler.handleGetDailyTrack)
	api.PATCH("/daily-tracks/:id", handler.handleUpdateDailyTrack)
	api.DELETE("/daily-tracks/:id", handler.handleDeleteDailyTrack)

	api.GET("/events", handler.handleEventStream)

	return router, nil
}

type httpHandler struct {
	tracking          *tracking.Service
	tokens            TokenValidator
	events            *EventDispatcher
	logger            *zap.Logger
	heartbeatInterval time.Duration
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Authorization", "Content-Type", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			origins = nil
			break
		}
		origins = append(origins, origin)
	}
	if !cfg.AllowAllOrigins {
		if len(origins) == 0 {
			cfg.AllowAllOrigins = true
		} else {
			cfg.AllowOrigins = origins
		}
	}
	return cors.New(cfg)
}

func (h *httpHandler) publish(resource, action string, id tracking.RecordID) {
	if h.events == nil {
		return
	}
	h.events.Publish(ChangeEvent{
		Resource:  resource,
		Action:    action,
		ID:        id.String(),
		Timestamp: time.Now().UTC(),
	})
}
