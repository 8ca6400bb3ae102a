package tracking

import (
	"errors"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Sentinel errors classifying every failure the service reports to callers.
var (
	ErrValidation = errors.New("tracking: validation failed")
	ErrNotFound   = errors.New("tracking: not found")
	ErrConflict   = errors.New("tracking: conflict")
)

const mysqlDuplicateEntry = 1062

// ServiceError carries a stable machine code, a client-facing message and the cause.
type ServiceError struct {
	code    string
	message string
	err     error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the operation scoped error code, e.g. tracking.create_topic.duplicate_name.
func (e *ServiceError) Code() string {
	return e.code
}

// Message returns text that is safe to show to API clients.
func (e *ServiceError) Message() string {
	return e.message
}

const (
	opServiceNew        = "tracking.service.new"
	opListTopics        = "tracking.list_topics"
	opCreateTopic       = "tracking.create_topic"
	opGetTopic          = "tracking.get_topic"
	opUpdateTopic       = "tracking.update_topic"
	opDeleteTopic       = "tracking.delete_topic"
	opListDailyTracks   = "tracking.list_daily_tracks"
	opCreateDailyTrack  = "tracking.create_daily_track"
	opGetDailyTrack     = "tracking.get_daily_track"
	opUpdateDailyTrack  = "tracking.update_daily_track"
	opDeleteDailyTrack  = "tracking.delete_daily_track"
	opPing              = "tracking.ping"
	reasonMissingDB     = "missing_database"
	reasonQueryFailed   = "query_failed"
	reasonInsertFailed  = "insert_failed"
	reasonUpdateFailed  = "update_failed"
	reasonDeleteFailed  = "delete_failed"
	reasonInvalidInput  = "invalid_input"
	reasonNotFound      = "not_found"
	reasonIDGeneration  = "id_generation_failed"
	internalErrorString = "internal error"
)

func newServiceError(operation, reason, message string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	if message == "" {
		message = internalErrorString
	}
	return &ServiceError{code: code, message: message, err: cause}
}

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	parts := make([]string, 0, len(e.Errors))
	for _, fieldErr := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message))
	}
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Errors: []FieldError{{Field: field, Message: message}}}
}

// IsUniqueViolation reports whether err comes from a unique index rejecting a write.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
