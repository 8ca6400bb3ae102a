package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/auth"
	"github.com/MarcoPoloResearchLab/dailytrack/backend/internal/tracking"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHTTPHandlerRequiresTrackingService(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingTrackingService) {
		t.Fatalf("expected missing service error, got %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	api := newTestAPI(t, stubTokenValidator{validateErr: auth.ErrInvalidToken})

	recorder := api.do(t, http.MethodGet, "/healthz", "")
	expectStatus(t, recorder, http.StatusOK)
	if recorder.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected body %s", recorder.Body.String())
	}
	if recorder.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestHealthReportsDownWithoutDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	context, _ := gin.CreateTestContext(recorder)
	context.Request = httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)

	handler := &httpHandler{tracking: &tracking.Service{}, logger: zap.NewNop()}
	handler.handleHealth(context)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected service unavailable, got %d", recorder.Code)
	}
}

func TestRespondErrorIncludesServiceErrorCode(testContext *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := httptest.NewRecorder()
	context, _ := gin.CreateTestContext(recorder)
	context.Request = httptest.NewRequest(http.MethodGet, "/api/v1/topics", http.NoBody)

	core, logs := observer.New(zapcore.DebugLevel)
	handler := &httpHandler{
		tracking: &tracking.Service{},
		logger:   zap.New(core),
	}

	handler.handleListTopics(context)

	if recorder.Code != http.StatusInternalServerError {
		testContext.Fatalf("expected internal server error, got %d", recorder.Code)
	}
	payload := decodeErrorBody(testContext, recorder.Body.Bytes())
	if payload.Error != errorInternal || payload.Message != internalErrorMessage {
		testContext.Fatalf("unexpected payload %#v", payload)
	}
	if payload.Code != "tracking.list_topics.missing_database" {
		testContext.Fatalf("unexpected service error code %q", payload.Code)
	}
	if logs.FilterMessage("request failed").Len() != 1 {
		testContext.Fatalf("expected failure to be logged")
	}
}

func TestAPIRequiresTokenWhenAuthEnabled(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	api := newTestAPI(t, issuer)

	expectStatus(t, api.do(t, http.MethodGet, "/api/v1/topics", ""), http.StatusUnauthorized)
	expectStatus(t, api.do(t, http.MethodGet, "/healthz", ""), http.StatusOK)

	token, _, err := issuer.IssueToken(context.Background(), "operator")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	request := httptest.NewRequest(http.MethodGet, "/api/v1/topics", http.NoBody)
	request.Header.Set("Authorization", "Bearer "+token)
	recorder := httptest.NewRecorder()
	api.handler.ServeHTTP(recorder, request)
	expectStatus(t, recorder, http.StatusOK)
}

func TestEventStreamEmitsChangeEvents(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte("test-signing-secret"),
		Issuer:        auth.DefaultIssuer,
		Audience:      auth.DefaultAudience,
		TokenTTL:      time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to construct issuer: %v", err)
	}
	api := newTestAPI(t, issuer)
	server := httptest.NewServer(api.handler)
	t.Cleanup(server.Close)

	token, _, err := issuer.IssueToken(context.Background(), "operator")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	streamRequest, err := http.NewRequestWithContext(streamCtx, http.MethodGet, server.URL+"/api/v1/events?resource=daily_track&access_token="+token, http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if !strings.HasPrefix(streamResp.Header.Get("Content-Type"), "text/event-stream") {
		t.Fatalf("unexpected content type %q", streamResp.Header.Get("Content-Type"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for api.events.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	createRequest := httptest.NewRequest(http.MethodPost, "/api/v1/daily-tracks", strings.NewReader(`{"start_time":"2024-01-01T09:00:00Z"}`))
	createRequest.Header.Set("Authorization", "Bearer "+token)
	createRequest.Header.Set("Content-Type", "application/json")
	createRecorder := httptest.NewRecorder()
	api.handler.ServeHTTP(createRecorder, createRequest)
	expectStatus(t, createRecorder, http.StatusCreated)
	created := decodeJSON[tracking.DailyTrackView](t, createRecorder.Body.Bytes())

	type readResult struct {
		line string
		err  error
	}
	lines := make(chan readResult)
	go func() {
		reader := bufio.NewReader(streamResp.Body)
		for {
			line, err := reader.ReadString('\n')
			select {
			case lines <- readResult{line: line, err: err}:
			case <-streamCtx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	currentEventType := ""
	timeout := time.After(5 * time.Second)
	for {
		select {
		case <-timeout:
			t.Fatal("timed out waiting for change event")
		case res := <-lines:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != eventTypeChange {
				continue
			}
			var event ChangeEvent
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &event); err != nil {
				t.Fatalf("failed to decode event payload: %v", err)
			}
			if event.Resource != ResourceDailyTrack || event.Action != ActionCreated || event.ID != created.ID {
				t.Fatalf("unexpected event %#v", event)
			}
			return
		}
	}
}

func TestEventStreamRejectsUnknownResource(t *testing.T) {
	api := newTestAPI(t, nil)
	expectStatus(t, api.do(t, http.MethodGet, "/api/v1/events?resource=notes", ""), http.StatusBadRequest)
}

func TestRequestLoggerRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(requestLogger(zap.New(core)))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	request := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
	request.Header.Set(requestIDHeader, "req-42")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("expected request id to be echoed")
	}
	entries := logs.FilterMessage("http request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-42" || fields["status"] != int64(http.StatusTeapot) {
		t.Fatalf("unexpected log fields %#v", fields)
	}
}
