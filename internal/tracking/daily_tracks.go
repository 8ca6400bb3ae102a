package tracking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListDailyTracks returns daily tracks ordered by start time, filtered by an
// inclusive UTC date range and an optional topic.
func (s *Service) ListDailyTracks(ctx context.Context, filter DailyTrackFilter) ([]DailyTrack, error) {
	if err := s.ready(opListDailyTracks); err != nil {
		return nil, err
	}
	if err := filter.Validate(); err != nil {
		return nil, s.rejectInvalid(opListDailyTracks, err)
	}

	query := s.db.WithContext(ctx).Model(&DailyTrack{})
	if filter.StartDate != nil {
		from, _ := DayBounds(*filter.StartDate)
		query = query.Where("start_time >= ?", from)
	}
	if filter.EndDate != nil {
		_, to := DayBounds(*filter.EndDate)
		query = query.Where("start_time <= ?", to)
	}
	if filter.TopicID != nil {
		query = query.Where("topic_id = ?", *filter.TopicID)
	}

	tracks := make([]DailyTrack, 0)
	if err := query.Order("start_time ASC").Find(&tracks).Error; err != nil {
		return nil, s.fail(opListDailyTracks, reasonQueryFailed, err)
	}
	return tracks, nil
}

// CreateDailyTrack records a 30-minute slot. Only one track may exist per start time.
func (s *Service) CreateDailyTrack(ctx context.Context, input CreateDailyTrackInput) (DailyTrack, error) {
	if err := s.ready(opCreateDailyTrack); err != nil {
		return DailyTrack{}, err
	}
	if err := input.Validate(); err != nil {
		return DailyTrack{}, s.rejectInvalid(opCreateDailyTrack, err)
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return DailyTrack{}, s.fail(opCreateDailyTrack, reasonIDGeneration, err)
	}

	track := DailyTrack{
		ID:        id,
		StartTime: input.StartTime,
		CreatedAt: s.now(),
		TopicID:   input.TopicID,
		Comment:   input.Comment,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if track.TopicID != nil {
			if err := s.requireTopic(tx, opCreateDailyTrack, "topic_not_found", *track.TopicID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(&track).Error; err != nil {
			if IsUniqueViolation(err) {
				return duplicateSlot(track.StartTime, err)
			}
			return s.fail(opCreateDailyTrack, reasonInsertFailed, err, zap.Time("start_time", track.StartTime))
		}
		return nil
	})
	if err != nil {
		return DailyTrack{}, s.classify(opCreateDailyTrack, err)
	}

	s.loggerOrDefault().Debug("daily track created",
		zap.String("daily_track_id", track.ID.String()),
		zap.Time("start_time", track.StartTime))
	return track, nil
}

// GetDailyTrack loads one daily track by identifier.
func (s *Service) GetDailyTrack(ctx context.Context, id RecordID) (DailyTrack, error) {
	if err := s.ready(opGetDailyTrack); err != nil {
		return DailyTrack{}, err
	}
	return s.loadDailyTrack(s.db.WithContext(ctx), opGetDailyTrack, id)
}

// UpdateDailyTrack changes the topic or comment of a daily track.
func (s *Service) UpdateDailyTrack(ctx context.Context, id RecordID, input UpdateDailyTrackInput) (DailyTrack, error) {
	if err := s.ready(opUpdateDailyTrack); err != nil {
		return DailyTrack{}, err
	}
	if err := input.Validate(); err != nil {
		return DailyTrack{}, s.rejectInvalid(opUpdateDailyTrack, err)
	}

	var updated DailyTrack
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.loadDailyTrack(tx, opUpdateDailyTrack, id); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": s.now()}
		switch {
		case input.ClearTopic:
			updates["topic_id"] = nil
		case input.TopicID != nil:
			if err := s.requireTopic(tx, opUpdateDailyTrack, "topic_not_found", *input.TopicID); err != nil {
				return err
			}
			updates["topic_id"] = *input.TopicID
		}
		switch {
		case input.ClearComment:
			updates["comment"] = nil
		case input.Comment != nil:
			updates["comment"] = *input.Comment
		}

		if err := tx.Model(&DailyTrack{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return s.fail(opUpdateDailyTrack, reasonUpdateFailed, err, zap.String("daily_track_id", id.String()))
		}

		reloaded, err := s.loadDailyTrack(tx, opUpdateDailyTrack, id)
		if err != nil {
			return err
		}
		updated = reloaded
		return nil
	})
	if err != nil {
		return DailyTrack{}, s.classify(opUpdateDailyTrack, err)
	}
	return updated, nil
}

// DeleteDailyTrack removes a daily track.
func (s *Service) DeleteDailyTrack(ctx context.Context, id RecordID) error {
	if err := s.ready(opDeleteDailyTrack); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&DailyTrack{})
	if result.Error != nil {
		return s.fail(opDeleteDailyTrack, reasonDeleteFailed, result.Error, zap.String("daily_track_id", id.String()))
	}
	if result.RowsAffected == 0 {
		return dailyTrackNotFound(opDeleteDailyTrack, id)
	}
	return nil
}

func (s *Service) loadDailyTrack(db *gorm.DB, operation string, id RecordID) (DailyTrack, error) {
	var track DailyTrack
	err := db.Where("id = ?", id).Take(&track).Error
	if isRecordNotFound(err) {
		return DailyTrack{}, dailyTrackNotFound(operation, id)
	}
	if err != nil {
		return DailyTrack{}, s.fail(operation, reasonQueryFailed, err, zap.String("daily_track_id", id.String()))
	}
	return track, nil
}

func dailyTrackNotFound(operation string, id RecordID) error {
	message := fmt.Sprintf("daily track %s not found", id)
	return newServiceError(operation, reasonNotFound, message, fmt.Errorf("%w: %s", ErrNotFound, message))
}

func duplicateSlot(start time.Time, cause error) error {
	message := fmt.Sprintf("a record already exists for time period %s", start.UTC().Format(time.RFC3339))
	return newServiceError(opCreateDailyTrack, "duplicate_start_time", message, fmt.Errorf("%w: %s: %v", ErrConflict, message, cause))
}
