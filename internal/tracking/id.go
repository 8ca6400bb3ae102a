package tracking

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

const recordIDLength = 16

// ErrInvalidRecordID indicates that an identifier could not be parsed or scanned.
var ErrInvalidRecordID = errors.New("tracking: invalid record id")

// RecordID is a random 128-bit identifier persisted as a 16 byte binary column.
type RecordID uuid.UUID

// ParseRecordID parses the canonical textual form of a record identifier.
func ParseRecordID(raw string) (RecordID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RecordID{}, fmt.Errorf("%w: empty", ErrInvalidRecordID)
	}
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return RecordID{}, fmt.Errorf("%w: %q", ErrInvalidRecordID, raw)
	}
	return RecordID(parsed), nil
}

// String returns the canonical UUID text of the identifier.
func (id RecordID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the identifier is unset.
func (id RecordID) IsZero() bool {
	return id == RecordID{}
}

// Value stores the identifier as raw bytes.
func (id RecordID) Value() (driver.Value, error) {
	raw := make([]byte, recordIDLength)
	copy(raw, id[:])
	return raw, nil
}

// Scan loads the identifier from a binary column. Anything that is not exactly
// 16 bytes is rejected.
func (id *RecordID) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("%w: unsupported column type %T", ErrInvalidRecordID, src)
	}
	if len(raw) != recordIDLength {
		return fmt.Errorf("%w: stored value has %d bytes", ErrInvalidRecordID, len(raw))
	}
	copy(id[:], raw)
	return nil
}

// GormDBDataType picks the binary column type for the active dialect.
func (RecordID) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "mysql":
		return "BINARY(16)"
	default:
		return "BLOB"
	}
}

// IDProvider issues identifiers for new rows.
type IDProvider interface {
	NewID() (RecordID, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues random UUIDv4 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (RecordID, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return RecordID{}, err
	}
	return RecordID(value), nil
}

func recordIDPointer(id RecordID) *RecordID {
	v := id
	return &v
}
