package gamesession

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/missionkit/internal/api"
	"github.com/abhisek/missionkit/internal/store"
)

// LocalStore is a SessionStore on the local database. Preview and
// simulation runs use it when no remote collaborator is configured.
type LocalStore struct {
	repo store.SessionRepo
	now  func() time.Time
}

// NewLocalStore wraps repo.
func NewLocalStore(repo store.SessionRepo) *LocalStore {
	return &LocalStore{repo: repo, now: time.Now}
}

func (l *LocalStore) CreateSession(ctx context.Context, req api.CreateSessionRequest) (string, error) {
	gs := &store.GameSession{
		ID:         uuid.NewString(),
		StudentID:  req.StudentID,
		TopicID:    req.TopicID,
		GameTypeID: req.GameTypeID,
		Details:    json.RawMessage(`{}`),
		CreatedAt:  l.now(),
	}
	if err := l.repo.Create(ctx, gs); err != nil {
		return "", err
	}
	return gs.ID, nil
}

func (l *LocalStore) FinalizeSession(ctx context.Context, sessionID string, req api.FinalizeSessionRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	_, err := l.repo.Finalize(ctx, sessionID, store.FinalizeData{
		Score:           req.Score,
		DurationSeconds: req.DurationSeconds,
		CorrectCount:    req.CorrectCount,
		WrongCount:      req.WrongCount,
		Details:         req.Details,
	})
	return err
}
