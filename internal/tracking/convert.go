package tracking

import "time"

// TopicView is the API representation of a topic.
type TopicView struct {
	ID            string    `json:"id"`
	TopicName     string    `json:"topic_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	ParentTopicID *string   `json:"parent_topic_id,omitempty"`
}

// DailyTrackView is the API representation of a daily track.
type DailyTrackView struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	TopicID   *string   `json:"topic_id,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
}

// ToExternalTopic maps a stored topic to its API representation.
func ToExternalTopic(row Topic) TopicView {
	createdAt := asUTC(row.CreatedAt)
	return TopicView{
		ID:            row.ID.String(),
		TopicName:     row.TopicName,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedOrCreated(row.UpdatedAt, createdAt),
		ParentTopicID: externalID(row.ParentTopicID),
	}
}

// ToExternalTopics maps a slice of stored topics, never returning nil.
func ToExternalTopics(rows []Topic) []TopicView {
	views := make([]TopicView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ToExternalTopic(row))
	}
	return views
}

// ToExternalDailyTrack maps a stored daily track to its API representation.
func ToExternalDailyTrack(row DailyTrack) DailyTrackView {
	createdAt := asUTC(row.CreatedAt)
	var comment *string
	if row.Comment != nil {
		value := *row.Comment
		comment = &value
	}
	return DailyTrackView{
		ID:        row.ID.String(),
		StartTime: asUTC(row.StartTime),
		CreatedAt: createdAt,
		UpdatedAt: updatedOrCreated(row.UpdatedAt, createdAt),
		TopicID:   externalID(row.TopicID),
		Comment:   comment,
	}
}

// ToExternalDailyTracks maps a slice of stored daily tracks, never returning nil.
func ToExternalDailyTracks(rows []DailyTrack) []DailyTrackView {
	views := make([]DailyTrackView, 0, len(rows))
	for _, row := range rows {
		views = append(views, ToExternalDailyTrack(row))
	}
	return views
}

func externalID(id *RecordID) *string {
	if id == nil {
		return nil
	}
	value := id.String()
	return &value
}

func updatedOrCreated(updatedAt *time.Time, createdAt time.Time) time.Time {
	if updatedAt == nil || updatedAt.IsZero() {
		return createdAt
	}
	return asUTC(*updatedAt)
}

// asUTC treats stored timestamps as UTC wall clock values.
func asUTC(value time.Time) time.Time {
	return time.Date(value.Year(), value.Month(), value.Day(), value.Hour(), value.Minute(), value.Second(), value.Nanosecond(), time.UTC)
}
