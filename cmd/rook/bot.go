package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/rook/internal/bot"
	"github.com/lox/rook/internal/client"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/server"
)

// BotCmd connects a computer player to a running server
type BotCmd struct {
	URL      string        `default:"ws://localhost:3001/ws" help:"Server URL"`
	Player   string        `short:"p" required:"" help:"Player to play as"`
	Seat     string        `short:"s" help:"Seat to take before playing (north, east, south or west)"`
	Delay    time.Duration `default:"500ms" help:"Pause before each action"`
	LogLevel string        `short:"l" default:"info" help:"Log level (debug|info|warn|error)"`
}

func (c *BotCmd) Run() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	logger := newLogger(level)

	var seat *game.Seat
	if c.Seat != "" {
		s, err := game.ParseSeat(c.Seat)
		if err != nil {
			return err
		}
		seat = &s
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	dialCtx, dialCancel := context.WithTimeout(ctx, 10*time.Second)
	defer dialCancel()

	cl, err := client.Dial(dialCtx, c.URL, logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	player := game.Player(c.Player)
	if err := cl.Announce(dialCtx, player); err != nil {
		return fmt.Errorf("announce failed: %w", err)
	}
	if seat != nil {
		if err := cl.Send(dialCtx, server.MessageTypeSit, server.SitData{Seat: *seat}); err != nil {
			return fmt.Errorf("failed to sit at %s: %w", *seat, err)
		}
	}

	logger.Info("Bot playing", "player", player, "url", c.URL)
	return bot.New(player, cl, logger, bot.WithDelay(c.Delay)).Run(ctx)
}
