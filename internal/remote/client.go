// Package remote is the HTTP client for the hosted sync backend. Every call
// here is safe to retry: the backend keys session creation on the client UID
// and set mutations on order/set-number addressing.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound marks a response where the entity no longer exists remotely.
// The sync processor treats it as success for delete-like operations.
var ErrNotFound = errors.New("remote entity not found")

// Config holds sync backend configuration
type Config struct {
	BaseURL string
	APIKey  string
}

// Client is the sync backend API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new sync backend client
func NewClient(cfg Config) *Client {
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateSessionRequest mirrors the backend's session creation body.
type CreateSessionRequest struct {
	ClientUID   string                  `json:"client_uid"`
	UserID      string                  `json:"user_id"`
	RoutineID   string                  `json:"routine_id"`
	RoutineName string                  `json:"routine_name"`
	Date        string                  `json:"date"`
	StartTime   time.Time               `json:"start_time"`
	Exercises   []CreateSessionExercise `json:"exercises"`
}

type CreateSessionExercise struct {
	ExerciseID string             `json:"exercise_id"`
	Name       string             `json:"name"`
	Order      int                `json:"order"`
	Sets       []CreateSessionSet `json:"sets"`
}

type CreateSessionSet struct {
	SetID     string  `json:"set_id"`
	SetNumber int     `json:"set_number"`
	Reps      int     `json:"reps"`
	Weight    float64 `json:"weight"`
	Unit      string  `json:"unit"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

// CreateSession pushes a new session and returns the server-assigned id.
func (c *Client) CreateSession(ctx context.Context, req CreateSessionRequest) (string, error) {
	var resp createSessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sessions", req, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// UpdateSetRequest carries only the fields being changed.
type UpdateSetRequest struct {
	Reps        *int       `json:"reps,omitempty"`
	Weight      *float64   `json:"weight,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// UpdateSet patches one set, addressed by session, exercise order and set
// number so ordering of queue delivery does not matter.
func (c *Client) UpdateSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, req UpdateSetRequest) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%d/sets/%d", remoteSessionID, exerciseOrder, setNumber)
	return c.do(ctx, http.MethodPatch, path, req, nil)
}

// AddSet appends an extra set to an exercise.
func (c *Client) AddSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, unit string) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%d/sets", remoteSessionID, exerciseOrder)
	body := map[string]any{
		"set_number": setNumber,
		"unit":       unit,
	}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

// UpdateExerciseNote replaces the personal note on an exercise.
func (c *Client) UpdateExerciseNote(ctx context.Context, remoteSessionID string, exerciseOrder int, note string) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/exercises/%d/note", remoteSessionID, exerciseOrder)
	body := map[string]any{"note": note}
	return c.do(ctx, http.MethodPut, path, body, nil)
}

// FinalizeSession terminates a session as completed or abandoned.
func (c *Client) FinalizeSession(ctx context.Context, remoteSessionID string, endTime time.Time, status string) error {
	path := fmt.Sprintf("/api/v1/sessions/%s/finalize", remoteSessionID)
	body := map[string]any{
		"end_time": endTime,
		"status":   status,
	}
	return c.do(ctx, http.MethodPost, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sync backend error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
