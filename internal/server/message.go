package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	msg := &Message{
		Type:      messageType,
		Timestamp: time.Now(),
	}
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = dataBytes
	}
	return msg, nil
}

// Client → Server Messages

type AnnounceData struct {
	Player game.Player `json:"player"`
}

type SitData struct {
	Seat game.Seat `json:"seat"`
}

type BidData struct {
	Amount int `json:"amount"`
}

type ChooseNestData struct {
	Trumps deck.Color  `json:"trumps"`
	Nest   []deck.Card `json:"nest"`
}

type PlayData struct {
	Card deck.Card `json:"card"`
}

// Server → Client Messages

type AckData struct {
	RequestID string `json:"requestId,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Command decodes a game command message sent by player
func Command(msg *Message, player game.Player) (game.Command, error) {
	cmd := game.Command{Player: player}

	decode := func(v any) error {
		if len(msg.Data) == 0 {
			return fmt.Errorf("missing %s data", msg.Type)
		}
		if err := json.Unmarshal(msg.Data, v); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", msg.Type, err)
		}
		return nil
	}

	switch msg.Type {
	case MessageTypeSit:
		var data SitData
		if err := decode(&data); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Seat = game.CommandSit, data.Seat
	case MessageTypeStand:
		cmd.Type = game.CommandStand
	case MessageTypeBid:
		var data BidData
		if err := decode(&data); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Amount = game.CommandBid, data.Amount
	case MessageTypePass:
		cmd.Type = game.CommandPass
	case MessageTypeChooseNest:
		var data ChooseNestData
		if err := decode(&data); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Trumps, cmd.Discards = game.CommandChooseNest, data.Trumps, data.Nest
	case MessageTypePlay:
		var data PlayData
		if err := decode(&data); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.Card = game.CommandPlay, data.Card
	case MessageTypeStartNewHand:
		cmd.Type = game.CommandStartNewHand
	case MessageTypeStartNewGame:
		cmd.Type = game.CommandStartNewGame
	default:
		return cmd, fmt.Errorf("%w: %s", errUnknownType, msg.Type)
	}
	return cmd, nil
}

var errUnknownType = errors.New("unknown message type")

// ErrorCode classifies an engine error for the wire
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrWrongPhase):
		return CodeWrongPhase
	case errors.Is(err, game.ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, game.ErrSeating):
		return CodeSeating
	case errors.Is(err, game.ErrIllegalMove):
		return CodeIllegalMove
	case errors.Is(err, game.ErrBusy):
		return CodeBusy
	case errors.Is(err, game.ErrUnknownPlayer):
		return CodeUnknownPlayer
	default:
		return CodeInternal
	}
}
