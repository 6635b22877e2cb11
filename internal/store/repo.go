package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/abhisek/missionkit/internal/content"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit   int       // max results (0 = unlimited)
	After   int64     // sequence > After
	Before  int64     // sequence < Before
	From    time.Time // timestamp >= From
	To      time.Time // timestamp <= To
	Purpose string    // exact purpose match when set
}

// GameSession is a stored learner session.
type GameSession struct {
	ID              string
	Sequence        int64
	StudentID       string
	TopicID         string
	GameTypeID      string
	Score           int
	Completed       bool
	DurationSeconds int
	CorrectCount    int
	WrongCount      int
	Details         json.RawMessage
	CreatedAt       time.Time
	FinalizedAt     *time.Time
}

// FinalizeData is the final result of a session.
type FinalizeData struct {
	Score           int
	DurationSeconds int
	CorrectCount    int
	WrongCount      int
	Details         json.RawMessage
}

// SessionFilter narrows session listings.
type SessionFilter struct {
	StudentID string
	TopicID   string
	Completed *bool
	Limit     int
}

// SessionRepo persists game sessions.
type SessionRepo interface {
	// Create stores a new, open session. ID and CreatedAt must be set.
	Create(ctx context.Context, s *GameSession) error

	// Get returns the session with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*GameSession, error)

	// Finalize completes an open session. It returns ErrNotFound for unknown
	// ids and ErrAlreadyFinalized for completed sessions.
	Finalize(ctx context.Context, id string, data FinalizeData) (*GameSession, error)

	// List returns sessions newest first.
	List(ctx context.Context, f SessionFilter) ([]*GameSession, error)
}

// ContentRepo persists topic content banks. It satisfies content.Source.
type ContentRepo interface {
	content.Source

	// ReplaceTopic swaps the whole bank of a topic in one transaction.
	ReplaceTopic(ctx context.Context, topicID string, items []content.Item) error

	// Topics lists topic ids with their item counts.
	Topics(ctx context.Context) (map[string]int, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEvent is a stored LLM request event.
type LLMEvent struct {
	ID        int64 // the event's global sequence
	Timestamp time.Time
	LLMRequestEventData
}

// LLMUsage aggregates LLM events by a key.
type LLMUsage struct {
	Purpose      string
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// EventRepo provides append and query access to recorded events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEvent, error)

	// GetLLMEvent returns one event, or nil when it does not exist.
	GetLLMEvent(ctx context.Context, id int64) (*LLMEvent, error)

	// LLMUsageByPurpose aggregates token usage per purpose.
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}
