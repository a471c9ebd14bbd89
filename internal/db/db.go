package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type DB struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

// RunMigrations creates the tables used by settlement events.
func (db *DB) RunMigrations(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS warikan_events (
			id BIGSERIAL PRIMARY KEY,
			guild_id BIGINT NOT NULL,
			channel_id TEXT NOT NULL,
			organizer_id TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			rounding_precision INT NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			closed_at TIMESTAMP
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_warikan_events_active_channel
			ON warikan_events(channel_id) WHERE status = 'active';
		CREATE INDEX IF NOT EXISTS idx_warikan_events_guild_id ON warikan_events(guild_id);

		CREATE TABLE IF NOT EXISTS warikan_members (
			event_id BIGINT NOT NULL REFERENCES warikan_events(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL DEFAULT 1,
			PRIMARY KEY (event_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS warikan_payments (
			id BIGSERIAL PRIMARY KEY,
			event_id BIGINT NOT NULL REFERENCES warikan_events(id) ON DELETE CASCADE,
			payer_id TEXT NOT NULL,
			beneficiary_id TEXT,
			amount DOUBLE PRECISION NOT NULL,
			memo TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_warikan_payments_event_id ON warikan_payments(event_id);

		CREATE TABLE IF NOT EXISTS warikan_settlement_tasks (
			id BIGSERIAL PRIMARY KEY,
			event_id BIGINT NOT NULL REFERENCES warikan_events(id) ON DELETE CASCADE,
			payer_id TEXT NOT NULL,
			payee_id TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_warikan_settlement_tasks_event_id ON warikan_settlement_tasks(event_id);

		CREATE TABLE IF NOT EXISTS warikan_reminders (
			event_id BIGINT PRIMARY KEY REFERENCES warikan_events(id) ON DELETE CASCADE,
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			interval_minutes INT NOT NULL,
			next_due_at TIMESTAMP,
			last_sent_at TIMESTAMP
		);
	`)
	return err
}
