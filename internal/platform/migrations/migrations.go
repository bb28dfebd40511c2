// Package migrations applies the database schema at startup. Statements are
// idempotent and run in order; there is no down path.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		friends JSONB NOT NULL DEFAULT '[]',
		achievements JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT users_username_key UNIQUE (username),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS meditations (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		difficulty TEXT NOT NULL,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		audio_url TEXT NOT NULL DEFAULT '',
		created_by TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS practice_sessions (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		meditation_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ,
		ended_at TIMESTAMPTZ,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		cycle_count INTEGER NOT NULL DEFAULT 0,
		pattern TEXT NOT NULL DEFAULT '',
		muscle_groups JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS practice_sessions_user_kind_idx
		ON practice_sessions (user_id, kind)`,
	`CREATE TABLE IF NOT EXISTS stress_assessments (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		stress_level INTEGER NOT NULL CHECK (stress_level BETWEEN 1 AND 10),
		symptoms JSONB NOT NULL DEFAULT '[]',
		triggers JSONB NOT NULL DEFAULT '[]',
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_definitions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		criteria TEXT NOT NULL,
		target INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS achievement_progress (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		achievement_id UUID NOT NULL REFERENCES achievement_definitions (id) ON DELETE CASCADE,
		current INTEGER NOT NULL DEFAULT 0,
		target INTEGER NOT NULL,
		completed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL,
		CONSTRAINT achievement_progress_user_achievement_key UNIQUE (user_id, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_sessions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		host_id UUID NOT NULL,
		meditation_id TEXT NOT NULL DEFAULT '',
		scheduled_at TIMESTAMPTZ NOT NULL,
		participants JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL REFERENCES group_sessions (id) ON DELETE CASCADE,
		sender_id TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS chat_messages_session_idx
		ON chat_messages (session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS friend_requests (
		id UUID PRIMARY KEY,
		from_user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		to_user_id UUID NOT NULL REFERENCES users (id) ON DELETE CASCADE,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Apply executes all migration statements in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
