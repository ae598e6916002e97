package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/lox/rook/internal/deck"
)

// EventType names a record in the game event log
type EventType string

const (
	EventNewGame      EventType = "newGame"
	EventDealt        EventType = "dealt"
	EventBid          EventType = "bid"
	EventPassed       EventType = "passed"
	EventWonBid       EventType = "wonBid"
	EventChoseNest    EventType = "choseNest"
	EventPlayed       EventType = "played"
	EventWonTrick     EventType = "wonTrick"
	EventHandFinished EventType = "handFinished"
	EventWonGame      EventType = "wonGame"
)

func (et EventType) String() string {
	return string(et)
}

// Event is a timestamped record of something that happened in a game
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	GameID() uuid.UUID
	HandID() uuid.UUID
}

// Recorder receives every event the engine emits. Record is called while the
// engine holds its lock and must not block.
type Recorder interface {
	Record(Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// Header is common to every event. TS is milliseconds since the Unix epoch.
type Header struct {
	TS   int64     `json:"ts"`
	Type EventType `json:"event"`
	Game uuid.UUID `json:"game"`
	Hand uuid.UUID `json:"hand"`
}

func (h Header) EventType() EventType { return h.Type }
func (h Header) Timestamp() time.Time { return time.UnixMilli(h.TS) }
func (h Header) GameID() uuid.UUID    { return h.Game }
func (h Header) HandID() uuid.UUID    { return h.Hand }

// NewGameEvent is recorded when scores are reset for a new game
type NewGameEvent struct {
	Header
}

// DealtEvent is recorded when a hand is dealt
type DealtEvent struct {
	Header
	Seats  BySeat[Player] `json:"seats"`
	Dealer Player         `json:"dealer"`
	Cards  Hands          `json:"cards"`
	Nest   []deck.Card    `json:"nest"`
}

// BidEvent is recorded when a player bids
type BidEvent struct {
	Header
	Player Player `json:"player"`
	Amount int    `json:"amount"`
}

// PassedEvent is recorded when a player passes
type PassedEvent struct {
	Header
	Player Player `json:"player"`
}

// WonBidEvent is recorded when the auction closes
type WonBidEvent struct {
	Header
	Player Player `json:"player"`
	Seat   Seat   `json:"seat"`
	Amount int    `json:"amount"`
}

// ChoseNestEvent is recorded when the bid winner discards and names trumps
type ChoseNestEvent struct {
	Header
	Player Player      `json:"player"`
	Cards  []deck.Card `json:"cards"`
	Nest   []deck.Card `json:"nest"`
	Trumps deck.Color  `json:"trumps"`
}

// PlayedEvent is recorded for every card played to a trick
type PlayedEvent struct {
	Header
	Player Player    `json:"player"`
	Card   deck.Card `json:"card"`
}

// WonTrickEvent is recorded when a completed trick is awarded
type WonTrickEvent struct {
	Header
	Player    Player `json:"player"`
	Played    Trick  `json:"played"`
	PointsWon int    `json:"pointsWon"`
}

// HandFinishedEvent is recorded when a hand is scored
type HandFinishedEvent struct {
	Header
	NorthSouthDelta int `json:"north_south_delta"`
	EastWestDelta   int `json:"east_west_delta"`
}

// WonGameEvent is recorded when a team passes the winning score
type WonGameEvent struct {
	Header
	Team            Team `json:"team"`
	NorthSouthScore int  `json:"north_south_score"`
	EastWestScore   int  `json:"east_west_score"`
}
