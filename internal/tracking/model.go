package tracking

import "time"

// Topic is a persisted topic row. Topics form a tree through ParentTopicID.
type Topic struct {
	ID            RecordID   `gorm:"column:id;primaryKey;not null"`
	TopicName     string     `gorm:"column:topic_name;size:255;not null;uniqueIndex:idx_topic_name"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt     *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	ParentTopicID *RecordID  `gorm:"column:parent_topic_id;index:idx_topic_parent"`
	Parent        *Topic     `gorm:"foreignKey:ParentTopicID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (Topic) TableName() string {
	return "topic"
}

// DailyTrack is a persisted 30-minute slot, optionally attributed to a topic.
type DailyTrack struct {
	ID        RecordID   `gorm:"column:id;primaryKey;not null"`
	StartTime time.Time  `gorm:"column:start_time;not null;uniqueIndex:idx_daily_track_start_time"`
	CreatedAt time.Time  `gorm:"column:created_at;not null;autoCreateTime:false"`
	UpdatedAt *time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	TopicID   *RecordID  `gorm:"column:topic_id;index:idx_daily_track_topic"`
	Comment   *string    `gorm:"column:comment;type:text"`
	Topic     *Topic     `gorm:"foreignKey:TopicID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

// TableName provides the explicit table binding for GORM.
func (DailyTrack) TableName() string {
	return "daily_track"
}

// Models lists every row type owned by this package, in migration order.
func Models() []any {
	return []any{&Topic{}, &DailyTrack{}}
}

// TopicFilter narrows ListTopics.
type TopicFilter struct {
	ParentTopicID *RecordID
}

// DailyTrackFilter narrows ListDailyTracks. Dates are inclusive calendar days in UTC.
type DailyTrackFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	TopicID   *RecordID
}

// CreateTopicInput describes a new topic.
type CreateTopicInput struct {
	TopicName     string
	ParentTopicID *RecordID
}

// UpdateTopicInput describes a partial topic modification. Nil fields are left untouched.
type UpdateTopicInput struct {
	TopicName     *string
	ParentTopicID *RecordID
	ClearParent   bool
}

// CreateDailyTrackInput describes a new daily track.
type CreateDailyTrackInput struct {
	StartTime time.Time
	TopicID   *RecordID
	Comment   *string
}

// UpdateDailyTrackInput describes a partial daily track modification. The start time is immutable.
type UpdateDailyTrackInput struct {
	TopicID      *RecordID
	ClearTopic   bool
	Comment      *string
	ClearComment bool
}
