package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
)

type createTopicRequest struct {
	TopicName     string  `json:"topic_name"`
	ParentTopicID *string `json:"parent_topic_id"`
}

func (h *httpHandler) handleListTopics(c *gin.Context) {
	parentID, err := queryID(c, "parent_topic_id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	topics, err := h.tracking.ListTopics(c.Request.Context(), tracking.TopicFilter{ParentTopicID: parentID})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking.ToExternalTopics(topics))
}

func (h *httpHandler) handleCreateTopic(c *gin.Context) {
	var request createTopicRequest
	if err := decodeJSONBody(c, &request); err != nil {
		h.respondError(c, err)
		return
	}
	parentID, err := parseOptionalID("parent_topic_id", request.ParentTopicID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	topic, err := h.tracking.CreateTopic(c.Request.Context(), tracking.CreateTopicInput{
		TopicName:     request.TopicName,
		ParentTopicID: parentID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceTopic, ActionCreated, topic.ID)
	c.JSON(http.StatusCreated, tracking.ToExternalTopic(topic))
}

func (h *httpHandler) handleGetTopic(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	topic, err := h.tracking.GetTopic(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tracking.ToExternalTopic(topic))
}

func (h *httpHandler) handleUpdateTopic(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	fields, err := decodePatch(c, "topic_name", "parent_topic_id")
	if err != nil {
		h.respondError(c, err)
		return
	}

	input := tracking.UpdateTopicInput{}
	name, err := readPatchField(fields, "topic_name")
	if err != nil {
		h.respondError(c, err)
		return
	}
	if name.present {
		if name.clear {
			h.respondError(c, tracking.NewValidationError("topic_name", "must not be empty"))
			return
		}
		input.TopicName = &name.value
	}

	parent, err := readPatchField(fields, "parent_topic_id")
	if err != nil {
		h.respondError(c, err)
		return
	}
	switch {
	case parent.clear:
		input.ClearParent = true
	case parent.present:
		parentID, err := parseID("parent_topic_id", parent.value)
		if err != nil {
			h.respondError(c, err)
			return
		}
		input.ParentTopicID = &parentID
	}

	topic, err := h.tracking.UpdateTopic(c.Request.Context(), id, input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceTopic, ActionUpdated, topic.ID)
	c.JSON(http.StatusOK, tracking.ToExternalTopic(topic))
}

func (h *httpHandler) handleDeleteTopic(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.tracking.DeleteTopic(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	h.publish(ResourceTopic, ActionDeleted, id)
	c.Status(http.StatusNoContent)
}
