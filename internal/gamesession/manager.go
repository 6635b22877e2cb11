// Package gamesession orchestrates one learner session against the remote
// persistence collaborator: it creates the session, accumulates score and
// records while play runs, evaluates the result and submits it.
package gamesession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/evaluator"
	"github.com/abhisek/missionkit/internal/llm"
	"github.com/abhisek/missionkit/internal/logging"
	"github.com/abhisek/missionkit/internal/tracker"
)

// SessionStore is the remote persistence collaborator.
type SessionStore interface {
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (string, error)
	FinalizeSession(ctx context.Context, sessionID string, req api.FinalizeSessionRequest) error
}

// Coach writes an optional learner-facing note for an evaluated session.
type Coach interface {
	Note(ctx context.Context, details evaluator.StandardizedDetails) (string, error)
}

// Identity names the learner, topic and game of a session.
type Identity struct {
	StudentID  string
	TopicID    string
	GameTypeID string
}

// SessionData is the live state of the active session.
type SessionData struct {
	SessionID    string
	StudentID    string
	TopicID      string
	GameTypeID   string
	Score        int
	CorrectCount int
	WrongCount   int
	Items        []tracker.AnswerRecord
	StartTime    time.Time
}

func (d SessionData) clone() SessionData {
	d.Items = tracker.Clone(d.Items)
	return d
}

// EndExtras carries optional inputs to EndSession.
type EndExtras struct {
	// Completed is false when the learner quit before a natural end.
	Completed bool
	// Duration overrides the wall-clock duration, e.g. to exclude pauses.
	Duration time.Duration
	// Criteria overrides the manager's evaluation criteria.
	Criteria *evaluator.Criteria
}

// Config tunes a Manager.
type Config struct {
	// FinalizeAttempts is the total number of submit attempts, at most one retry.
	FinalizeAttempts int
	RetryDelay       time.Duration
	CoachTimeout     time.Duration
	Criteria         *evaluator.Criteria
}

// DefaultConfig returns the standard settings.
func DefaultConfig() Config {
	return Config{
		FinalizeAttempts: 2,
		RetryDelay:       500 * time.Millisecond,
		CoachTimeout:     5 * time.Second,
	}
}

// Option configures a Manager.
type Option func(*Manager)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg }
}

// WithCoach enables coach notes.
func WithCoach(c Coach) Option {
	return func(m *Manager) { m.coach = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

type endResult struct {
	sessionID string
	details   evaluator.StandardizedDetails
	err       error
}

// Manager runs at most one session at a time. It is safe for concurrent use
// and satisfies lifecycle.Sink.
type Manager struct {
	mu     sync.Mutex
	store  SessionStore
	coach  Coach
	logger *slog.Logger
	now    func() time.Time
	cfg    Config

	data *SessionData
	last *endResult
}

// NewManager creates a Manager backed by store.
func NewManager(store SessionStore, opts ...Option) *Manager {
	m := &Manager{store: store, cfg: DefaultConfig(), now: time.Now}
	for _, o := range opts {
		o(m)
	}
	m.logger = logging.OrDiscard(m.logger)
	m.cfg.FinalizeAttempts = min(2, max(1, m.cfg.FinalizeAttempts))
	return m
}

// StartSession creates the remote session record. Until it succeeds no
// score or record is accepted.
func (m *Manager) StartSession(ctx context.Context, id Identity) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data != nil {
		return "", ErrSessionActive
	}

	req := api.NewCreateSessionRequest(id.StudentID, id.TopicID, id.GameTypeID)
	sessionID, err := m.store.CreateSession(ctx, req)
	if err == nil && sessionID == "" {
		err = errors.New("empty session id")
	}
	if err != nil {
		m.logger.Error("session start failed",
			"student_id", id.StudentID, "topic_id", id.TopicID, "game_type", id.GameTypeID, "error", err)
		return "", &SessionStartFailure{Err: err}
	}

	m.data = &SessionData{
		SessionID:  sessionID,
		StudentID:  id.StudentID,
		TopicID:    id.TopicID,
		GameTypeID: id.GameTypeID,
		StartTime:  m.now(),
	}
	m.last = nil
	m.logger.Info("session started", "session_id", sessionID, "game_type", id.GameTypeID)
	return sessionID, nil
}

// Ready reports whether a session is active.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data != nil
}

// UpdateScore applies delta with a floor of zero and tallies the answer.
func (m *Manager) UpdateScore(delta int, isCorrect bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return ErrSessionNotStarted
	}
	m.data.Score = max(0, m.data.Score+delta)
	if isCorrect {
		m.data.CorrectCount++
	} else {
		m.data.WrongCount++
	}
	return nil
}

// RecordItem appends an interaction record.
func (m *Manager) RecordItem(rec tracker.AnswerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return ErrSessionNotStarted
	}
	m.data.Items = append(m.data.Items, rec)
	return nil
}

// Snapshot returns a copy of the active session's data.
func (m *Manager) Snapshot() (SessionData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return SessionData{}, false
	}
	return m.data.clone(), true
}

// EndSession evaluates the session, submits it and discards the live data.
// The evaluated details are returned even when submission fails. Calling it
// again returns the first call's outcome without submitting twice.
func (m *Manager) EndSession(ctx context.Context, extras *EndExtras) (evaluator.StandardizedDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		if m.last != nil {
			return m.last.details, m.last.err
		}
		return evaluator.StandardizedDetails{}, ErrSessionNotStarted
	}
	if extras == nil {
		extras = &EndExtras{Completed: true}
	}

	snap := m.data.clone()
	duration := extras.Duration
	if duration <= 0 {
		duration = m.now().Sub(snap.StartTime)
	}
	criteria := m.cfg.Criteria
	if extras.Criteria != nil {
		criteria = extras.Criteria
	}

	details := evaluator.Evaluate(evaluator.Input{
		Score:           snap.Score,
		Accuracy:        evaluator.Accuracy(snap.CorrectCount, snap.WrongCount),
		CorrectCount:    snap.CorrectCount,
		WrongCount:      snap.WrongCount,
		DurationSeconds: duration.Seconds(),
		Completed:       extras.Completed,
		Answers:         snap.Items,
	}, criteria)
	if details.Fallback {
		m.logger.Warn("evaluation fell back to conservative result", "session_id", snap.SessionID)
	}

	if m.coach != nil {
		details.Review.CoachNote = m.coachNote(ctx, snap.SessionID, details)
	}

	err := m.submit(ctx, snap, details)

	m.data = nil
	m.last = &endResult{sessionID: snap.SessionID, details: details, err: err}
	return details, err
}

// Abandon flushes a best-effort result for a session the learner left.
func (m *Manager) Abandon(ctx context.Context) error {
	_, err := m.EndSession(ctx, &EndExtras{Completed: false})
	if errors.Is(err, ErrSessionNotStarted) {
		return nil
	}
	return err
}

func (m *Manager) coachNote(ctx context.Context, sessionID string, details evaluator.StandardizedDetails) string {
	cctx, cancel := context.WithTimeout(llm.Tag(ctx, llm.RequestTag{SessionID: sessionID}), m.cfg.CoachTimeout)
	defer cancel()

	note, err := m.coach.Note(cctx, details)
	if err != nil {
		m.logger.Warn("coach note skipped", "session_id", sessionID, "error", err)
		return ""
	}
	return note
}

func (m *Manager) submit(ctx context.Context, snap SessionData, details evaluator.StandardizedDetails) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return &SessionEndFailure{SessionID: snap.SessionID, Err: fmt.Errorf("encode details: %w", err)}
	}
	req := api.FinalizeSessionRequest{
		Score:           max(0, snap.Score),
		Completed:       true,
		DurationSeconds: details.Summary.DurationSeconds,
		CorrectCount:    snap.CorrectCount,
		WrongCount:      snap.WrongCount,
		Details:         raw,
	}

	var lastErr error
	attempts := 0
	for attempt := range m.cfg.FinalizeAttempts {
		attempts++
		lastErr = m.store.FinalizeSession(ctx, snap.SessionID, req)
		if lastErr != nil && attempt > 0 && alreadyFinalized(lastErr) {
			// An earlier attempt was stored but its reply was lost.
			m.logger.Info("session already finalized by earlier attempt", "session_id", snap.SessionID, "attempt", attempt+1)
			lastErr = nil
		}
		if lastErr == nil {
			m.logger.Info("session finalized",
				"session_id", snap.SessionID,
				"score", req.Score,
				"score_final", details.Summary.ScoreFinal,
				"performance", string(details.Summary.Performance),
				"passed", details.Summary.Passed,
			)
			return nil
		}
		m.logger.Warn("session finalize failed", "session_id", snap.SessionID, "attempt", attempt+1, "error", lastErr)

		if attempt == m.cfg.FinalizeAttempts-1 || ctx.Err() != nil || !retryable(lastErr) {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(m.cfg.RetryDelay):
		}
		if ctx.Err() != nil {
			lastErr = errors.Join(lastErr, ctx.Err())
			break
		}
	}

	m.logger.Error("session result not submitted", "session_id", snap.SessionID, "attempts", attempts, "error", lastErr)
	return &SessionEndFailure{SessionID: snap.SessionID, Attempts: attempts, Err: lastErr}
}
