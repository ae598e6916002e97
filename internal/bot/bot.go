package bot

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/rook/internal/client"
	"github.com/lox/rook/internal/game"
)

// Bot plays one seat over a client connection
type Bot struct {
	player   game.Player
	strategy Strategy
	client   *client.Client
	clock    quartz.Clock
	delay    time.Duration
	logger   *log.Logger
}

// Option configures a Bot
type Option func(*Bot)

// WithStrategy replaces the default strategy
func WithStrategy(s Strategy) Option {
	return func(b *Bot) {
		b.strategy = s
	}
}

// WithDelay makes the bot pause before each action, so people can follow
// the game
func WithDelay(d time.Duration) Option {
	return func(b *Bot) {
		b.delay = d
	}
}

// WithClock sets the clock used for the delay
func WithClock(clock quartz.Clock) Option {
	return func(b *Bot) {
		b.clock = clock
	}
}

// New creates a bot playing as player. The client must already be
// announced as that player.
func New(player game.Player, cl *client.Client, logger *log.Logger, opts ...Option) *Bot {
	b := &Bot{
		player:   player,
		strategy: DefaultStrategy(),
		client:   cl,
		clock:    quartz.NewReal(),
		logger:   logger.WithPrefix("bot").With("player", player),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run acts on every state the server sends until ctx is done or the
// connection closes. Rejected actions are logged and the bot waits for the
// next state.
func (b *Bot) Run(ctx context.Context) error {
	for {
		var state game.State
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-b.client.States():
			if !ok {
				return client.ErrClosed
			}
			state = b.latest(s)
		}

		action, ok := b.strategy.Decide(state, b.player)
		if !ok {
			continue
		}
		if err := b.wait(ctx); err != nil {
			return nil
		}

		b.logger.Debug("Acting", "type", action.Type, "data", action.Data)
		err := b.client.Send(ctx, action.Type, action.Data)
		var reqErr *client.RequestError
		switch {
		case err == nil:
		case errors.As(err, &reqErr):
			b.logger.Warn("Action rejected", "type", action.Type, "code", reqErr.Code, "error", reqErr.Message)
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// latest skips states that have already been superseded
func (b *Bot) latest(state game.State) game.State {
	for {
		select {
		case s, ok := <-b.client.States():
			if !ok {
				return state
			}
			state = s
		default:
			return state
		}
	}
}

func (b *Bot) wait(ctx context.Context) error {
	if b.delay <= 0 {
		return nil
	}
	timer := b.clock.NewTimer(b.delay, "bot", "delay")
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
