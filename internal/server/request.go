package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
)

// patchField is one member of a PATCH body. A null or empty string clears the value.
type patchField struct {
	present bool
	clear   bool
	value   string
}

func pathID(c *gin.Context) (tracking.RecordID, error) {
	return parseID("id", c.Param("id"))
}

func parseID(field, raw string) (tracking.RecordID, error) {
	id, err := tracking.ParseRecordID(raw)
	if err != nil {
		return tracking.RecordID{}, tracking.NewValidationError(field, fmt.Sprintf("invalid UUID %q", raw))
	}
	return id, nil
}

func parseOptionalID(field string, raw *string) (*tracking.RecordID, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	id, err := parseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryID(c *gin.Context, field string) (*tracking.RecordID, error) {
	raw, ok := c.GetQuery(field)
	if !ok {
		return nil, nil
	}
	id, err := parseID(field, raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryDate(c *gin.Context, field string) (*time.Time, error) {
	raw, ok := c.GetQuery(field)
	if !ok {
		return nil, nil
	}
	date, err := tracking.ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func decodeJSONBody(c *gin.Context, target any) error {
	if err := c.ShouldBindJSON(target); err != nil {
		return tracking.NewValidationError("body", "invalid JSON body")
	}
	return nil
}

// decodePatch reads a JSON object and rejects members outside allowed.
func decodePatch(c *gin.Context, allowed ...string) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if err := decodeJSONBody(c, &fields); err != nil {
		return nil, err
	}
	permitted := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		permitted[name] = struct{}{}
	}
	unknown := make([]string, 0)
	for name := range fields {
		if _, ok := permitted[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, tracking.NewValidationError(unknown[0], fmt.Sprintf("cannot be updated, allowed fields: %s", strings.Join(allowed, ", ")))
	}
	return fields, nil
}

func readPatchField(fields map[string]json.RawMessage, name string) (patchField, error) {
	raw, ok := fields[name]
	if !ok {
		return patchField{}, nil
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return patchField{present: true, clear: true}, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return patchField{}, tracking.NewValidationError(name, "must be a string or null")
	}
	return patchField{present: true, clear: value == "", value: value}, nil
}
