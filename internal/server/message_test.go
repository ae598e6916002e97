package server

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMessage(t *testing.T, msgType MessageType, data any) *Message {
	t.Helper()
	msg, err := NewMessage(msgType, data)
	require.NoError(t, err)
	return msg
}

func TestCommandDecoding(t *testing.T) {
	red10 := deck.NewCard(deck.Red, 10)
	nest := []deck.Card{deck.Rook, red10}

	tests := []struct {
		msg  *Message
		want game.Command
	}{
		{mustMessage(t, MessageTypeSit, SitData{Seat: game.West}), game.Command{Type: game.CommandSit, Seat: game.West}},
		{mustMessage(t, MessageTypeStand, nil), game.Command{Type: game.CommandStand}},
		{mustMessage(t, MessageTypeBid, BidData{Amount: 85}), game.Command{Type: game.CommandBid, Amount: 85}},
		{mustMessage(t, MessageTypePass, nil), game.Command{Type: game.CommandPass}},
		{mustMessage(t, MessageTypeChooseNest, ChooseNestData{Trumps: deck.Yellow, Nest: nest}),
			game.Command{Type: game.CommandChooseNest, Trumps: deck.Yellow, Discards: nest}},
		{mustMessage(t, MessageTypePlay, PlayData{Card: red10}), game.Command{Type: game.CommandPlay, Card: red10}},
		{mustMessage(t, MessageTypeStartNewHand, nil), game.Command{Type: game.CommandStartNewHand}},
		{mustMessage(t, MessageTypeStartNewGame, nil), game.Command{Type: game.CommandStartNewGame}},
	}

	for _, tt := range tests {
		t.Run(tt.msg.Type.String(), func(t *testing.T) {
			cmd, err := Command(tt.msg, "bill")
			require.NoError(t, err)
			tt.want.Player = "bill"
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestCommandWireFormat(t *testing.T) {
	raw := `{"type":"choose_nest","data":{"trumps":"black","nest":[{"rook":true},{"rook":false,"color":"green","number":5}]},"requestId":"7"}`
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	cmd, err := Command(&msg, "maia")
	require.NoError(t, err)
	assert.Equal(t, deck.Black, cmd.Trumps)
	assert.Equal(t, []deck.Card{deck.Rook, deck.NewCard(deck.Green, 5)}, cmd.Discards)
	assert.Equal(t, "7", msg.RequestID)
}

func TestCommandErrors(t *testing.T) {
	_, err := Command(mustMessage(t, MessageTypeBid, nil), "bill")
	assert.ErrorContains(t, err, "missing bid data")

	_, err = Command(mustMessage(t, MessageTypeSit, SitData{}), "bill")
	assert.NoError(t, err, "north is the zero seat")

	_, err = Command(&Message{Type: MessageTypeSit, Data: json.RawMessage(`{"seat":"middle"}`)}, "bill")
	assert.ErrorContains(t, err, "failed to parse sit data")

	_, err = Command(mustMessage(t, "dance", nil), "bill")
	assert.ErrorIs(t, err, errUnknownType)
}

func TestErrorCode(t *testing.T) {
	tests := map[error]string{
		game.ErrWrongPhase:    CodeWrongPhase,
		game.ErrNotYourTurn:   CodeNotYourTurn,
		game.ErrSeating:       CodeSeating,
		game.ErrIllegalMove:   CodeIllegalMove,
		game.ErrBusy:          CodeBusy,
		game.ErrUnknownPlayer: CodeUnknownPlayer,
		fmt.Errorf("boom"):    CodeInternal,
	}
	for err, code := range tests {
		wrapped := fmt.Errorf("%w: detail", err)
		assert.Equal(t, code, ErrorCode(wrapped), err.Error())
	}
}
