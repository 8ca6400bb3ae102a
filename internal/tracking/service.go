package tracking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig describes the dependencies of the tracking service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service owns persistence for topics and daily tracks. Writes run inside a
// single transaction and rely on unique indexes to reject duplicates.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService validates the configuration and constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, reasonMissingDB, "", errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	idProvider := cfg.IDProvider
	if idProvider == nil {
		idProvider = NewUUIDProvider()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: idProvider,
		logger:     logger,
	}, nil
}

// Ping verifies that the underlying database answers.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.ready(opPing); err != nil {
		return err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return newServiceError(opPing, reasonQueryFailed, "", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return newServiceError(opPing, reasonQueryFailed, "", err)
	}
	return nil
}

func (s *Service) ready(operation string) error {
	if s == nil || s.db == nil {
		s.logError(operation, reasonMissingDB, errMissingDatabase)
		return newServiceError(operation, reasonMissingDB, "", errMissingDatabase)
	}
	if s.idProvider == nil {
		s.logError(operation, "missing_id_provider", errMissingIDProvider)
		return newServiceError(operation, "missing_id_provider", "", errMissingIDProvider)
	}
	return nil
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// rejectInvalid wraps a validation failure without logging it at error level.
func (s *Service) rejectInvalid(operation string, err error) error {
	s.loggerOrDefault().Debug("tracking input rejected",
		zap.String("operation", operation),
		zap.Error(err))
	return newServiceError(operation, reasonInvalidInput, err.Error(), err)
}

// fail logs an unexpected storage failure and wraps it.
func (s *Service) fail(operation, reason string, err error, fields ...zap.Field) error {
	s.logError(operation, reason, err, fields...)
	return newServiceError(operation, reason, "", err)
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil {
		return noOpLogger
	}
	if s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("tracking service error", attrs...)
}

// passThrough keeps errors that are already classified intact when they
// bubble out of a transaction callback.
func passThrough(err error) bool {
	var serviceErr *ServiceError
	return errors.As(err, &serviceErr)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
