package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lox/rook/internal/game"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS game_events (
	id      BIGSERIAL PRIMARY KEY,
	ts      TIMESTAMPTZ NOT NULL,
	game_id UUID NOT NULL,
	hand_id UUID NOT NULL,
	event   TEXT NOT NULL,
	payload JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS game_events_game_id ON game_events (game_id, id);
`

// PostgresSink inserts every event as a row of the game_events table
type PostgresSink struct {
	pool *pgxpool.Pool
}

// DialPostgres connects to dsn and creates the events table if needed
func DialPostgres(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	if _, err := pool.Exec(ctx, createEventsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create game_events table: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Name() string {
	return "postgres"
}

func (s *PostgresSink) Write(ctx context.Context, ev game.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.EventType(), err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_events (ts, game_id, hand_id, event, payload) VALUES ($1, $2, $3, $4, $5)`,
		ev.Timestamp(), ev.GameID(), ev.HandID(), string(ev.EventType()), payload)
	return err
}

// Events returns every event recorded for a game, oldest first
func (s *PostgresSink) Events(ctx context.Context, gameID uuid.UUID) ([]json.RawMessage, error) {
	rows, err := s.pool.Query(ctx, `SELECT payload FROM game_events WHERE game_id = $1 ORDER BY id`, gameID)
	if err != nil {
		return nil, err
	}
	payloads, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, err
	}
	events := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		events[i] = p
	}
	return events, nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
