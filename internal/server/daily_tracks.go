package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
)

type createDailyTrackRequest struct {
	StartTime string  `json:"start_time"`
	TopicID   *string `json:"topic_id"`
	Comment   *string `json:"comment"`
}

func (h *httpHandler) handleListDailyTracks(c *gin.Context) {
	startDate, err := queryDate(c, "start_date")
	if err != nil {
		h.respondError(c, err)
		return
	}
	endDate, err := queryDate(c, "end_date")
	if err != nil {
		h.respondError(c, err)
		return
	}
	topicID, err := queryID(c, "topic_id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	tracks, err := h.tracking.ListDailyTracks(c.Request.Context(), tracking.DailyTrackFilter{
		StartDate: startDate,
		EndDate:   endDate,
		TopicID:   topicID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking.ToExternalDailyTracks(tracks))
}

func (h *httpHandler) handleCreateDailyTrack(c *gin.Context) {
	var request createDailyTrackRequest
	if err := decodeJSONBody(c, &request); err != nil {
		h.respondError(c, err)
		return
	}
	startTime, err := parseStartTime(request.StartTime)
	if err != nil {
		h.respondError(c, err)
		return
	}
	topicID, err := parseOptionalID("topic_id", request.TopicID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	track, err := h.tracking.CreateDailyTrack(c.Request.Context(), tracking.CreateDailyTrackInput{
		StartTime: startTime,
		TopicID:   topicID,
		Comment:   request.Comment,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceDailyTrack, ActionCreated, track.ID)
	c.JSON(http.StatusCreated, tracking.ToExternalDailyTrack(track))
}

func (h *httpHandler) handleGetDailyTrack(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	track, err := h.tracking.GetDailyTrack(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking.ToExternalDailyTrack(track))
}

func (h *httpHandler) handleUpdateDailyTrack(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fields, err := decodePatch(c, "topic_id", "comment")
	if err != nil {
		h.respondError(c, err)
		return
	}

	input := tracking.UpdateDailyTrackInput{}
	topic, err := readPatchField(fields, "topic_id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	switch {
	case topic.clear:
		input.ClearTopic = true
	case topic.present:
		topicID, err := parseID("topic_id", topic.value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.TopicID = &topicID
	}

	comment, err := readPatchField(fields, "comment")
	if err != nil {
		h.respondError(c, err)
		return
	}
	switch {
	case comment.clear:
		input.ClearComment = true
	case comment.present:
		input.Comment = &comment.value
	}

	track, err := h.tracking.UpdateDailyTrack(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceDailyTrack, ActionUpdated, track.ID)
	c.JSON(http.StatusOK, tracking.ToExternalDailyTrack(track))
}

func (h *httpHandler) handleDeleteDailyTrack(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.tracking.DeleteDailyTrack(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceDailyTrack, ActionDeleted, id)
	c.Status(http.StatusNoContent)
}

func parseStartTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, tracking.NewValidationError("start_time", "is required")
	}
	parsed, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, tracking.NewValidationError("start_time", fmt.Sprintf("invalid RFC3339 timestamp %q", raw))
	}
	return parsed, nil
}
