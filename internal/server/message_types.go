package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeAnnounce     MessageType = "announce"
	MessageTypeSit          MessageType = "sit"
	MessageTypeStand        MessageType = "stand"
	MessageTypeBid          MessageType = "bid"
	MessageTypePass         MessageType = "pass"
	MessageTypeChooseNest   MessageType = "choose_nest"
	MessageTypePlay         MessageType = "play"
	MessageTypeStartNewHand MessageType = "start_new_hand"
	MessageTypeStartNewGame MessageType = "start_new_game"

	// Server to client messages
	MessageTypeState MessageType = "state"
	MessageTypeAck   MessageType = "ack"
	MessageTypeError MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Error codes carried in ErrorData
const (
	CodeInvalidMessage = "invalid_message"
	CodeUnknownType    = "unknown_message_type"
	CodeNotAnnounced   = "not_announced"
	CodeWrongPhase     = "wrong_phase"
	CodeNotYourTurn    = "not_your_turn"
	CodeSeating        = "seating"
	CodeIllegalMove    = "illegal_move"
	CodeBusy           = "busy"
	CodeUnknownPlayer  = "unknown_player"
	CodeInternal       = "internal"
)
