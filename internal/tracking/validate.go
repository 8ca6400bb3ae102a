package tracking

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTopicNameLength = 255
	// DateLayout is the calendar date format accepted by the list filters.
	DateLayout = "2006-01-02"
)

// Validate checks the input. The name is stored exactly as supplied.
func (in *CreateTopicInput) Validate() error {
	if err := validateTopicName(in.TopicName); err != nil {
		return err
	}
	if in.ParentTopicID != nil && in.ParentTopicID.IsZero() {
		return NewValidationError("parent_topic_id", "must not be the zero id")
	}
	return nil
}

// Validate checks the input.
func (in *UpdateTopicInput) Validate() error {
	if in.TopicName == nil && in.ParentTopicID == nil && !in.ClearParent {
		return NewValidationError("body", "at least one field must be provided")
	}
	if in.ParentTopicID != nil && in.ClearParent {
		return NewValidationError("parent_topic_id", "cannot set and clear the parent at once")
	}
	if in.TopicName != nil {
		return validateTopicName(*in.TopicName)
	}
	return nil
}

// Validate checks slot alignment and normalizes the start time to UTC minute precision.
func (in *CreateDailyTrackInput) Validate() error {
	start, err := AlignStartTime(in.StartTime)
	if err != nil {
		return err
	}
	in.StartTime = start
	if in.TopicID != nil && in.TopicID.IsZero() {
		return NewValidationError("topic_id", "must not be the zero id")
	}
	return nil
}

// Validate checks that the update changes something and is not contradictory.
func (in *UpdateDailyTrackInput) Validate() error {
	if in.TopicID == nil && !in.ClearTopic && in.Comment == nil && !in.ClearComment {
		return NewValidationError("body", "at least one field must be provided")
	}
	if in.TopicID != nil && in.ClearTopic {
		return NewValidationError("topic_id", "cannot set and clear the topic at once")
	}
	if in.Comment != nil && in.ClearComment {
		return NewValidationError("comment", "cannot set and clear the comment at once")
	}
	return nil
}

// Validate rejects ranges whose start date falls after the end date.
func (f DailyTrackFilter) Validate() error {
	if f.StartDate != nil && f.EndDate != nil && f.StartDate.After(*f.EndDate) {
		return NewValidationError("start_date", "must not be after end_date")
	}
	return nil
}

// AlignStartTime returns the UTC start of the 30-minute slot described by value.
// The minute component must be 0 or 30; seconds are discarded.
func AlignStartTime(value time.Time) (time.Time, error) {
	if value.IsZero() {
		return time.Time{}, NewValidationError("start_time", "is required")
	}
	utc := value.UTC()
	if minute := utc.Minute(); minute != 0 && minute != 30 {
		return time.Time{}, NewValidationError("start_time", fmt.Sprintf("minute must be 00 or 30, got %02d", minute))
	}
	return utc.Truncate(time.Minute), nil
}

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(field, raw string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, NewValidationError(field, fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", raw))
	}
	return parsed, nil
}

// DayBounds returns the first and last second of the calendar day containing date.
func DayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, time.UTC)
	return start, end
}

func validateTopicName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("topic_name", "must not be empty")
	}
	if utf8.RuneCountInString(name) > maxTopicNameLength {
		return NewValidationError("topic_name", fmt.Sprintf("must be at most %d characters", maxTopicNameLength))
	}
	return nil
}
