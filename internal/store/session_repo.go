package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"
)

const tableSessions = "game_sessions"

var sessionColumns = []string{
	"id", "sequence", "student_id", "topic_id", "game_type_id", "score", "completed",
	"duration_seconds", "correct_count", "wrong_count", "details", "created_at", "finalized_at",
}

// sessionRepo implements SessionRepo with the ent SQL builder.
type sessionRepo struct {
	s *Store
}

func (r *sessionRepo) Create(ctx context.Context, gs *GameSession) error {
	seqNum, err := r.s.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	details := gs.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query, args := entsql.Dialect(r.s.dialect).
		Insert(tableSessions).
		Columns(sessionColumns[:12]...).
		Values(gs.ID, seqNum, gs.StudentID, gs.TopicID, gs.GameTypeID, gs.Score, boolInt(gs.Completed),
			gs.DurationSeconds, gs.CorrectCount, gs.WrongCount, string(details), millis(gs.CreatedAt)).
		Query()
	if _, err := r.s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save game session: %w", err)
	}
	gs.Sequence = seqNum
	return nil
}

func (r *sessionRepo) Get(ctx context.Context, id string) (*GameSession, error) {
	query, args := entsql.Dialect(r.s.dialect).
		Select(sessionColumns...).
		From(entsql.Table(tableSessions)).
		Where(entsql.EQ("id", id)).
		Query()

	gs, err := scanSession(r.s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query game session: %w", err)
	}
	return gs, nil
}

func (r *sessionRepo) Finalize(ctx context.Context, id string, data FinalizeData) (*GameSession, error) {
	details := data.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	query, args := entsql.Dialect(r.s.dialect).
		Update(tableSessions).
		Set("score", data.Score).
		Set("completed", 1).
		Set("duration_seconds", data.DurationSeconds).
		Set("correct_count", data.CorrectCount).
		Set("wrong_count", data.WrongCount).
		Set("details", string(details)).
		Set("finalized_at", millis(r.s.now())).
		Where(entsql.And(entsql.EQ("id", id), entsql.EQ("completed", 0))).
		Query()

	res, err := r.s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("finalize game session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("finalize game session: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyFinalized
	}
	return r.Get(ctx, id)
}

func (r *sessionRepo) List(ctx context.Context, f SessionFilter) ([]*GameSession, error) {
	sel := entsql.Dialect(r.s.dialect).
		Select(sessionColumns...).
		From(entsql.Table(tableSessions))

	var preds []*entsql.Predicate
	if f.StudentID != "" {
		preds = append(preds, entsql.EQ("student_id", f.StudentID))
	}
	if f.TopicID != "" {
		preds = append(preds, entsql.EQ("topic_id", f.TopicID))
	}
	if f.Completed != nil {
		preds = append(preds, entsql.EQ("completed", boolInt(*f.Completed)))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("sequence"))
	if f.Limit > 0 {
		sel.Limit(f.Limit)
	}

	query, args := sel.Query()
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list game sessions: %w", err)
	}
	defer rows.Close()

	var out []*GameSession
	for rows.Next() {
		gs, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game session: %w", err)
		}
		out = append(out, gs)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*GameSession, error) {
	var (
		gs        GameSession
		details   string
		created   int64
		finalized sql.NullInt64
	)
	err := row.Scan(&gs.ID, &gs.Sequence, &gs.StudentID, &gs.TopicID, &gs.GameTypeID, &gs.Score,
		&gs.Completed, &gs.DurationSeconds, &gs.CorrectCount, &gs.WrongCount, &details, &created, &finalized)
	if err != nil {
		return nil, err
	}
	gs.Details = json.RawMessage(details)
	gs.CreatedAt = fromMillis(created)
	if finalized.Valid {
		t := fromMillis(finalized.Int64)
		gs.FinalizedAt = &t
	}
	return &gs, nil
}
