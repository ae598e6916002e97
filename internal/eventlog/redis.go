package eventlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lox/rook/internal/game"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisChannel is the pub/sub channel events are published on
const DefaultRedisChannel = "rook:events"

// RedisSink publishes every event on a channel and appends it to a per-game
// list so late subscribers can replay a game.
type RedisSink struct {
	client  *redis.Client
	channel string
}

// DialRedis connects to the server at url (redis://...) and checks it
// responds
func DialRedis(ctx context.Context, url, channel string) (*RedisSink, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisSink(client, channel), nil
}

// NewRedisSink wraps an existing client
func NewRedisSink(client *redis.Client, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{client: client, channel: channel}
}

func (s *RedisSink) Name() string {
	return "redis:" + s.channel
}

// Write publishes the event and appends it to the game's list in one
// transaction
func (s *RedisSink) Write(ctx context.Context, ev game.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.EventType(), err)
	}

	pipe := s.client.TxPipeline()
	pipe.Publish(ctx, s.channel, data)
	pipe.RPush(ctx, s.listKey(ev.GameID()), data)
	_, err = pipe.Exec(ctx)
	return err
}

// Events returns every event recorded for a game, oldest first
func (s *RedisSink) Events(ctx context.Context, gameID uuid.UUID) ([]json.RawMessage, error) {
	values, err := s.client.LRange(ctx, s.listKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	events := make([]json.RawMessage, len(values))
	for i, v := range values {
		events[i] = json.RawMessage(v)
	}
	return events, nil
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}

func (s *RedisSink) listKey(gameID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", s.channel, gameID)
}
