package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	apiBasePath    = "/api/v1"
	defaultTimeout = 30 * time.Second
)

var errMissingServerAddress = errors.New("server address is required")

// APIError is returned for non-2xx responses. Body holds the raw response payload.
type APIError struct {
	StatusCode int
	ErrorCode  string
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d %s: %s", e.StatusCode, e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("api error %d", e.StatusCode)
}

// Config configures the API client.
type Config struct {
	ServerAddress string
	Token         string
	HTTPClient    *http.Client
}

// Client calls the daily track HTTP API and returns raw JSON payloads.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// New builds a Client. A server address without a scheme is treated as http.
func New(cfg Config) (*Client, error) {
	address := strings.TrimSpace(cfg.ServerAddress)
	if address == "" {
		return nil, errMissingServerAddress
	}
	if !strings.Contains(address, "://") {
		address = "http://" + address
	}
	baseURL, err := url.Parse(strings.TrimRight(address, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server address: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
	}, nil
}

// TopicPatch describes a PATCH body. Empty strings clear the target field.
type TopicPatch struct {
	TopicName     *string `json:"topic_name,omitempty"`
	ParentTopicID *string `json:"parent_topic_id,omitempty"`
}

// DailyTrackPatch describes a PATCH body. Empty strings clear the target field.
type DailyTrackPatch struct {
	TopicID *string `json:"topic_id,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// DailyTrackQuery narrows ListDailyTracks.
type DailyTrackQuery struct {
	StartDate string
	EndDate   string
	TopicID   string
}

func (c *Client) CreateTopic(ctx context.Context, name, parentTopicID string) ([]byte, error) {
	body := map[string]any{"topic_name": name}
	if parentTopicID != "" {
		body["parent_topic_id"] = parentTopicID
	}
	return c.do(ctx, http.MethodPost, "/topics", nil, body)
}

func (c *Client) ListTopics(ctx context.Context, parentTopicID string) ([]byte, error) {
	query := url.Values{}
	if parentTopicID != "" {
		query.Set("parent_topic_id", parentTopicID)
	}
	return c.do(ctx, http.MethodGet, "/topics", query, nil)
}

func (c *Client) GetTopic(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/topics/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateTopic(ctx context.Context, id string, patch TopicPatch) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, "/topics/"+url.PathEscape(id), nil, patch)
}

func (c *Client) DeleteTopic(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/topics/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) CreateDailyTrack(ctx context.Context, startTime, topicID string, comment *string) ([]byte, error) {
	body := map[string]any{"start_time": startTime}
	if topicID != "" {
		body["topic_id"] = topicID
	}
	if comment != nil {
		body["comment"] = *comment
	}
	return c.do(ctx, http.MethodPost, "/daily-tracks", nil, body)
}

func (c *Client) ListDailyTracks(ctx context.Context, filter DailyTrackQuery) ([]byte, error) {
	query := url.Values{}
	if filter.StartDate != "" {
		query.Set("start_date", filter.StartDate)
	}
	if filter.EndDate != "" {
		query.Set("end_date", filter.EndDate)
	}
	if filter.TopicID != "" {
		query.Set("topic_id", filter.TopicID)
	}
	return c.do(ctx, http.MethodGet, "/daily-tracks", query, nil)
}

func (c *Client) GetDailyTrack(ctx context.Context, id string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/daily-tracks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateDailyTrack(ctx context.Context, id string, patch DailyTrackPatch) ([]byte, error) {
	return c.do(ctx, http.MethodPatch, "/daily-tracks/"+url.PathEscape(id), nil, patch)
}

func (c *Client) DeleteDailyTrack(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/daily-tracks/"+url.PathEscape(id), nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + apiBasePath + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target.Path, err)
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		apiErr := &APIError{StatusCode: response.StatusCode, Body: payload}
		var decoded struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(payload, &decoded) == nil {
			apiErr.ErrorCode = decoded.Error
			apiErr.Message = decoded.Message
		}
		return nil, apiErr
	}
	return payload, nil
}
