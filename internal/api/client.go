package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/abhisek/missionkit/internal/content"
)

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig points at a local reference server.
func DefaultConfig() Config {
	return Config{BaseURL: "http://localhost:8080", Timeout: 15 * time.Second}
}

// ConfigFromEnv reads MISSIONKIT_API_URL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if u := os.Getenv("MISSIONKIT_API_URL"); u != "" {
		cfg.BaseURL = u
	}
	return cfg
}

var _ content.Source = (*Client)(nil)

// Client talks to the persistence and content collaborators over HTTP.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a Client. A nil hc gets a client with cfg.Timeout.
func NewClient(cfg Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{base: strings.TrimRight(cfg.BaseURL, "/"), http: hc}
}

// CreateSession opens a remote session and returns its id.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (string, error) {
	var resp CreateSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/game-sessions", req, &resp); err != nil {
		return "", err
	}
	if resp.SessionID == "" {
		return "", &Error{Status: http.StatusBadGateway, Message: "response missing session_id"}
	}
	return resp.SessionID, nil
}

// FinalizeSession submits the final result of a session.
func (c *Client) FinalizeSession(ctx context.Context, sessionID string, req FinalizeSessionRequest) error {
	return c.do(ctx, http.MethodPut, "/api/game-sessions/"+url.PathEscape(sessionID), req, nil)
}

// GetSession fetches a stored session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	var rec SessionRecord
	if err := c.do(ctx, http.MethodGet, "/api/game-sessions/"+url.PathEscape(sessionID), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByTopic fetches the content bank of a topic. It makes Client a
// content.Source.
func (c *Client) ListByTopic(ctx context.Context, topicID string) ([]content.Item, error) {
	var items ContentResponse
	err := c.do(ctx, http.MethodGet, "/api/topics/"+url.PathEscape(topicID)+"/content", nil, &items)
	if StatusOf(err) == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", content.ErrTopicNotFound, topicID)
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return errorFrom(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := ""
	var eb ErrorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
