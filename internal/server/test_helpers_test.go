package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/config"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/database"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type testAPI struct {
	handler http.Handler
	service *tracking.Service
	events  *EventDispatcher
}

func newTestService(t *testing.T) *tracking.Service {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "server.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access pool: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	service, err := tracking.NewService(tracking.ServiceConfig{Database: db, Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("failed to build tracking service: %v", err)
	}
	return service
}

func newTestAPI(t *testing.T, tokens TokenValidator) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service := newTestService(t)
	events := NewEventDispatcher()
	handler, err := NewHTTPHandler(Dependencies{
		Tracking:          service,
		Tokens:            tokens,
		Events:            events,
		Logger:            zap.NewNop(),
		AllowedOrigins:    []string{"*"},
		HeartbeatInterval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return testAPI{handler: handler, service: service, events: events}
}

func (api testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	request := httptest.NewRequest(method, path, reader)
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	api.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeErrorBody(t *testing.T, body []byte) errorResponse {
	t.Helper()
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("failed to decode error body %s: %v", string(body), err)
	}
	return payload
}

func decodeJSON[T any](t *testing.T, body []byte) T {
	t.Helper()
	var payload T
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("failed to decode body %s: %v", string(body), err)
	}
	return payload
}

func expectStatus(t *testing.T, recorder *httptest.ResponseRecorder, status int) {
	t.Helper()
	if recorder.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, recorder.Code, recorder.Body.String())
	}
}
