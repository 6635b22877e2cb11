// Package api is the wire contract of the persistence and content
// collaborators, and an HTTP client for it.
package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/abhisek/missionkit/internal/content"
)

// CreateSessionRequest opens a remote session record. Score, counts and
// details are always zero-valued at creation.
type CreateSessionRequest struct {
	StudentID    string          `json:"student_id"`
	TopicID      string          `json:"topic_id"`
	GameTypeID   string          `json:"game_type_id"`
	Score        int             `json:"score"`
	Completed    bool            `json:"completed"`
	CorrectCount int             `json:"correct_count"`
	WrongCount   int             `json:"wrong_count"`
	Details      json.RawMessage `json:"details"`
}

// NewCreateSessionRequest builds the create payload for a learner.
func NewCreateSessionRequest(studentID, topicID, gameTypeID string) CreateSessionRequest {
	return CreateSessionRequest{
		StudentID:  studentID,
		TopicID:    topicID,
		GameTypeID: gameTypeID,
		Details:    json.RawMessage(`{}`),
	}
}

// CreateSessionResponse carries the id used for every later call.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// FinalizeSessionRequest closes a session with its standardized details.
type FinalizeSessionRequest struct {
	Score           int             `json:"score"`
	Completed       bool            `json:"completed"`
	DurationSeconds int             `json:"duration_seconds"`
	CorrectCount    int             `json:"correct_count"`
	WrongCount      int             `json:"wrong_count"`
	Details         json.RawMessage `json:"details"`
}

// Validate checks the invariants the collaborator enforces.
func (r FinalizeSessionRequest) Validate() error {
	switch {
	case r.Score < 0:
		return fmt.Errorf("score must be >= 0, got %d", r.Score)
	case r.DurationSeconds < 0:
		return fmt.Errorf("duration_seconds must be >= 0, got %d", r.DurationSeconds)
	case r.CorrectCount < 0 || r.WrongCount < 0:
		return fmt.Errorf("counts must be >= 0")
	case !r.Completed:
		return fmt.Errorf("completed must be true")
	}
	return nil
}

// SessionRecord is the stored form of a session.
type SessionRecord struct {
	SessionID       string          `json:"session_id"`
	StudentID       string          `json:"student_id"`
	TopicID         string          `json:"topic_id"`
	GameTypeID      string          `json:"game_type_id"`
	Score           int             `json:"score"`
	Completed       bool            `json:"completed"`
	DurationSeconds int             `json:"duration_seconds"`
	CorrectCount    int             `json:"correct_count"`
	WrongCount      int             `json:"wrong_count"`
	Details         json.RawMessage `json:"details"`
	CreatedAt       time.Time       `json:"created_at"`
	FinalizedAt     *time.Time      `json:"finalized_at,omitempty"`
}

// ContentResponse is the body of a topic content fetch.
type ContentResponse []content.Item

// ErrorBody is the JSON shape of error responses.
type ErrorBody struct {
	Error string `json:"error"`
}
