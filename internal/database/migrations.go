package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationClearOrphanedTopicReferences = "2024-03-01_clear_orphaned_topic_references"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationClearOrphanedTopicReferences, apply: clearOrphanedTopicReferences},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// clearOrphanedTopicReferences nulls topic references left behind by stores
// that ran without foreign key enforcement.
func clearOrphanedTopicReferences(db *gorm.DB) error {
	existing := db.Model(&tracking.Topic{}).Select("id")
	if err := db.Model(&tracking.DailyTrack{}).
		Where("topic_id IS NOT NULL AND topic_id NOT IN (?)", existing).
		Update("topic_id", nil).Error; err != nil {
		return err
	}
	return db.Model(&tracking.Topic{}).
		Where("parent_topic_id IS NOT NULL AND parent_topic_id NOT IN (?)", db.Table("(?) AS known", existing).Select("id")).
		Update("parent_topic_id", nil).Error
}
