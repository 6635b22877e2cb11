package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Tables are created with portable DDL. Booleans and timestamps are stored
// as integers (unix milliseconds) so both dialects scan them the same way.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		sequence BIGINT NOT NULL,
		student_id TEXT NOT NULL,
		topic_id TEXT NOT NULL,
		game_type_id TEXT NOT NULL,
		score INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		correct_count INTEGER NOT NULL DEFAULT 0,
		wrong_count INTEGER NOT NULL DEFAULT 0,
		details TEXT NOT NULL DEFAULT '{}',
		created_at BIGINT NOT NULL,
		finalized_at BIGINT
	)`,
	`CREATE INDEX IF NOT EXISTS game_sessions_student ON game_sessions (student_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS content_items (
		topic_id TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		is_correct INTEGER NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		item_type TEXT NOT NULL,
		rule_tag TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (topic_id, id)
	)`,
	`CREATE TABLE IF NOT EXISTS llm_request_events (
		sequence BIGINT PRIMARY KEY,
		timestamp BIGINT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms BIGINT NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS global_sequence (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		next_val BIGINT NOT NULL DEFAULT 1
	)`,
}

func migrate(ctx context.Context, db *sql.DB) error {
	for _, ddl := range tables {
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
