package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_messages (
	id        BIGSERIAL PRIMARY KEY,
	username  TEXT NOT NULL,
	room_name TEXT NOT NULL,
	message   TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS chat_messages_room_idx ON chat_messages (room_name);

CREATE TABLE IF NOT EXISTS direct_messages (
	id        BIGSERIAL PRIMARY KEY,
	sender    TEXT NOT NULL,
	recipient TEXT NOT NULL,
	message   TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS direct_messages_recipient_idx ON direct_messages (recipient);
`

// PostgresStore persists messages in PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the given DSN and ensures the message tables
// exist.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create message tables: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// SaveChatMessage inserts a room message row.
func (s *PostgresStore) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO chat_messages (username, room_name, message, timestamp) VALUES ($1, $2, $3, $4)`,
		msg.Username, msg.RoomName, msg.Message, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save chat message: %w", err)
	}
	return nil
}

// SaveDirectMessage inserts a direct message row.
func (s *PostgresStore) SaveDirectMessage(ctx context.Context, msg *DirectMessage) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO direct_messages (sender, recipient, message, timestamp) VALUES ($1, $2, $3, $4)`,
		msg.Sender, msg.Recipient, msg.Message, msg.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("save direct message: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
