package server

import (
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleEventStream(c *gin.Context) {
	resource := c.Query("resource")
	if !validResourceFilter(resource) {
		h.respondError(c, tracking.NewValidationError("resource", "must be topic or daily_track"))
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.events.Subscribe(ctx, resource)
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent(eventTypeHeartbeat, gin.H{"source": eventSourceBackend, "timestamp": time.Now().UTC()})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(eventTypeChange, event)
			c.Writer.Flush()
		case tick := <-ticker.C:
			c.SSEvent(eventTypeHeartbeat, gin.H{"source": eventSourceBackend, "timestamp": tick.UTC()})
			c.Writer.Flush()
		}
	}
}
