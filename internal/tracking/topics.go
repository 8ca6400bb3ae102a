package tracking

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxTopicDepth bounds the ancestor walk performed when re-parenting a topic.
const maxTopicDepth = 1024

// ListTopics returns every topic, optionally restricted to the children of one parent.
func (s *Service) ListTopics(ctx context.Context, filter TopicFilter) ([]Topic, error) {
	if err := s.ready(opListTopics); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&Topic{})
	if filter.ParentTopicID != nil {
		query = query.Where("parent_topic_id = ?", *filter.ParentTopicID)
	}

	topics := make([]Topic, 0)
	if err := query.Order("created_at ASC").Order("id ASC").Find(&topics).Error; err != nil {
		return nil, s.fail(opListTopics, reasonQueryFailed, err)
	}
	return topics, nil
}

// CreateTopic inserts a new topic with a fresh random identifier.
func (s *Service) CreateTopic(ctx context.Context, input CreateTopicInput) (Topic, error) {
	if err := s.ready(opCreateTopic); err != nil {
		return Topic{}, err
	}
	if err := input.Validate(); err != nil {
		return Topic{}, s.rejectInvalid(opCreateTopic, err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Topic{}, s.fail(opCreateTopic, reasonIDGeneration, err)
	}

	topic := Topic{
		ID:            id,
		TopicName:     input.TopicName,
		CreatedAt:     s.now(),
		ParentTopicID: input.ParentTopicID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if topic.ParentTopicID != nil {
			if err := s.requireTopic(tx, opCreateTopic, "parent_not_found", *topic.ParentTopicID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(&topic).Error; err != nil {
			if IsUniqueViolation(err) {
				return duplicateTopicName(opCreateTopic, topic.TopicName, err)
			}
			return s.fail(opCreateTopic, reasonInsertFailed, err, zap.String("topic_name", topic.TopicName))
		}
		return nil
	})
	if err != nil {
		return Topic{}, s.classify(opCreateTopic, err)
	}

	s.loggerOrDefault().Debug("topic created", zap.String("topic_id", topic.ID.String()))
	return topic, nil
}

// GetTopic loads one topic by identifier.
func (s *Service) GetTopic(ctx context.Context, id RecordID) (Topic, error) {
	if err := s.ready(opGetTopic); err != nil {
		return Topic{}, err
	}
	topic, err := s.loadTopic(s.db.WithContext(ctx), opGetTopic, id)
	if err != nil {
		return Topic{}, err
	}
	return topic, nil
}

// UpdateTopic renames or re-parents a topic and stamps updated_at.
func (s *Service) UpdateTopic(ctx context.Context, id RecordID, input UpdateTopicInput) (Topic, error) {
	if err := s.ready(opUpdateTopic); err != nil {
		return Topic{}, err
	}
	if err := input.Validate(); err != nil {
		return Topic{}, s.rejectInvalid(opUpdateTopic, err)
	}

	var updated Topic
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadTopic(tx, opUpdateTopic, id); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": s.now()}
		if input.TopicName != nil {
			updates["topic_name"] = *input.TopicName
		}
		if input.ClearParent {
			updates["parent_topic_id"] = nil
		}
		if input.ParentTopicID != nil {
			parentID := *input.ParentTopicID
			if err := s.requireTopic(tx, opUpdateTopic, "parent_not_found", parentID); err != nil {
				return err
			}
			if err := s.rejectCycle(tx, id, parentID); err != nil {
				return err
			}
			updates["parent_topic_id"] = parentID
		}

		if err := tx.Model(&Topic{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if IsUniqueViolation(err) && input.TopicName != nil {
				return duplicateTopicName(opUpdateTopic, *input.TopicName, err)
			}
			return s.fail(opUpdateTopic, reasonUpdateFailed, err, zap.String("topic_id", id.String()))
		}

		reloaded, err := s.loadTopic(tx, opUpdateTopic, id)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return Topic{}, s.classify(opUpdateTopic, err)
	}
	return updated, nil
}

// DeleteTopic removes a topic that no other topic or daily track references.
func (s *Service) DeleteTopic(ctx context.Context, id RecordID) error {
	if err := s.ready(opDeleteTopic); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadTopic(tx, opDeleteTopic, id); err != nil {
			return err
		}

		var children int64
		if err := tx.Model(&Topic{}).Where("parent_topic_id = ?", id).Count(&children).Error; err != nil {
			return s.fail(opDeleteTopic, reasonQueryFailed, err)
		}
		if children > 0 {
			return topicInUse(id, fmt.Sprintf("topic %s has %d child topics", id, children))
		}

		var tracks int64
		if err := tx.Model(&DailyTrack{}).Where("topic_id = ?", id).Count(&tracks).Error; err != nil {
			return s.fail(opDeleteTopic, reasonQueryFailed, err)
		}
		if tracks > 0 {
			return topicInUse(id, fmt.Sprintf("topic %s is referenced by %d daily tracks", id, tracks))
		}

		if err := tx.Where("id = ?", id).Delete(&Topic{}).Error; err != nil {
			return s.fail(opDeleteTopic, reasonDeleteFailed, err, zap.String("topic_id", id.String()))
		}
		return nil
	})
	if err != nil {
		return s.classify(opDeleteTopic, err)
	}
	return nil
}

func (s *Service) loadTopic(db *gorm.DB, operation string, id RecordID) (Topic, error) {
	var topic Topic
	err := db.Where("id = ?", id).Take(&topic).Error
	if isRecordNotFound(err) {
		return Topic{}, topicNotFound(operation, reasonNotFound, id)
	}
	if err != nil {
		return Topic{}, s.fail(operation, reasonQueryFailed, err, zap.String("topic_id", id.String()))
	}
	return topic, nil
}

func (s *Service) requireTopic(tx *gorm.DB, operation, reason string, id RecordID) error {
	var count int64
	if err := tx.Model(&Topic{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return s.fail(operation, reasonQueryFailed, err, zap.String("topic_id", id.String()))
	}
	if count == 0 {
		return topicNotFound(operation, reason, id)
	}
	return nil
}

// rejectCycle walks the ancestors of parentID and fails when id is among them.
func (s *Service) rejectCycle(tx *gorm.DB, id, parentID RecordID) error {
	current := parentID
	for depth := 0; depth < maxTopicDepth; depth++ {
		if current == id {
			cause := NewValidationError("parent_topic_id", fmt.Sprintf("topic %s cannot become its own ancestor", id))
			return newServiceError(opUpdateTopic, "parent_cycle", cause.Error(), cause)
		}
		var ancestor Topic
		err := tx.Model(&Topic{}).Select("id", "parent_topic_id").Where("id = ?", current).Take(&ancestor).Error
		if isRecordNotFound(err) || (err == nil && ancestor.ParentTopicID == nil) {
			return nil
		}
		if err != nil {
			return s.fail(opUpdateTopic, reasonQueryFailed, err)
		}
		current = *ancestor.ParentTopicID
	}
	cause := NewValidationError("parent_topic_id", "topic hierarchy is too deep")
	return newServiceError(opUpdateTopic, "parent_cycle", cause.Error(), cause)
}

// classify keeps already classified errors and wraps anything else as a transaction failure.
func (s *Service) classify(operation string, err error) error {
	if passThrough(err) {
		return err
	}
	return s.fail(operation, "transaction_failed", err)
}

func topicNotFound(operation, reason string, id RecordID) error {
	message := fmt.Sprintf("topic %s not found", id)
	return newServiceError(operation, reason, message, fmt.Errorf("%w: %s", ErrNotFound, message))
}

func duplicateTopicName(operation, name string, cause error) error {
	message := fmt.Sprintf("topic with name '%s' already exists", name)
	return newServiceError(operation, "duplicate_name", message, fmt.Errorf("%w: %s: %v", ErrConflict, message, cause))
}

func topicInUse(id RecordID, message string) error {
	return newServiceError(opDeleteTopic, "topic_in_use", message, fmt.Errorf("%w: %s", ErrConflict, message))
}
