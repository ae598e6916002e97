package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lox/rook/internal/client"
	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/server"
)

// SendCmd announces a player and sends a single command
type SendCmd struct {
	URL     string        `default:"ws://localhost:3001/ws" help:"Server URL"`
	Player  string        `short:"p" required:"" help:"Player to act as"`
	Timeout time.Duration `default:"5s" help:"How long to wait for the server"`
	Debug   bool          `help:"Enable debug logging"`

	Command string   `arg:"" help:"One of: state, sit <seat>, stand, bid <amount>, pass, nest <trumps> <card>..., play <card>, new-hand, new-game"`
	Args    []string `arg:"" optional:"" help:"Command arguments"`
}

func (c *SendCmd) Run() error {
	level := log.WarnLevel
	if c.Debug {
		level = log.DebugLevel
	}
	logger := newLogger(level)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	cl, err := client.Dial(ctx, c.URL, logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	if c.Command == "state" {
		return printState(ctx, cl)
	}

	msgType, data, err := parseCommand(c.Command, c.Args)
	if err != nil {
		return err
	}
	if err := cl.Announce(ctx, game.Player(c.Player)); err != nil {
		return fmt.Errorf("announce failed: %w", err)
	}
	if err := cl.Send(ctx, msgType, data); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

// printState prints the snapshot the server sends on connect
func printState(ctx context.Context, cl *client.Client) error {
	select {
	case state, ok := <-cl.States():
		if !ok {
			return client.ErrClosed
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseCommand turns command line words into a message
func parseCommand(command string, args []string) (server.MessageType, any, error) {
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", command, n, len(args))
		}
		return nil
	}

	switch strings.ToLower(command) {
	case "sit":
		if err := want(1); err != nil {
			return "", nil, err
		}
		seat, err := game.ParseSeat(args[0])
		if err != nil {
			return "", nil, err
		}
		return server.MessageTypeSit, server.SitData{Seat: seat}, nil
	case "stand":
		return server.MessageTypeStand, nil, want(0)
	case "bid":
		if err := want(1); err != nil {
			return "", nil, err
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil {
			return "", nil, fmt.Errorf("invalid bid %q", args[0])
		}
		return server.MessageTypeBid, server.BidData{Amount: amount}, nil
	case "pass":
		return server.MessageTypePass, nil, want(0)
	case "nest":
		if err := want(1 + deck.NestSize); err != nil {
			return "", nil, err
		}
		trumps, err := deck.ParseColor(args[0])
		if err != nil {
			return "", nil, err
		}
		cards, err := deck.ParseCards(args[1:])
		if err != nil {
			return "", nil, err
		}
		return server.MessageTypeChooseNest, server.ChooseNestData{Trumps: trumps, Nest: cards}, nil
	case "play":
		if err := want(1); err != nil {
			return "", nil, err
		}
		card, err := deck.ParseCard(args[0])
		if err != nil {
			return "", nil, err
		}
		return server.MessageTypePlay, server.PlayData{Card: card}, nil
	case "new-hand":
		return server.MessageTypeStartNewHand, nil, want(0)
	case "new-game":
		return server.MessageTypeStartNewGame, nil, want(0)
	default:
		return "", nil, fmt.Errorf("unknown command %q", command)
	}
}
