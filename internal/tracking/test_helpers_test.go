package tracking

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// steppingClock returns a fixed base time that advances one second per call.
type steppingClock struct {
	mu      sync.Mutex
	current time.Time
}

func newSteppingClock(start time.Time) *steppingClock {
	return &steppingClock{current: start}
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	value := c.current
	c.current = c.current.Add(time.Second)
	return value
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracking.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDatabase(t)
	clock := newSteppingClock(time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC))
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    clock.Now,
		Logger:   zap.NewNop(),
	})
	require.NoError(t, err)
	return service, db
}

func mustRecordID(t *testing.T, raw string) RecordID {
	t.Helper()
	id, err := ParseRecordID(raw)
	require.NoError(t, err)
	return id
}

func stringPointer(value string) *string {
	return &value
}

func requireServiceCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	require.Equal(t, code, serviceErr.Code())
}
