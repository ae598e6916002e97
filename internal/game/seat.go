package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Seat is one of the four fixed positions at the table
type Seat int

const (
	North Seat = iota
	East
	South
	West
)

// Seats lists every seat in turn order
var Seats = [4]Seat{North, East, South, West}

// String returns the seat name used on the wire
func (s Seat) String() string {
	switch s {
	case North:
		return "north"
	case East:
		return "east"
	case South:
		return "south"
	case West:
		return "west"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four seats
func (s Seat) Valid() bool {
	return s >= North && s <= West
}

// Next returns the seat that acts after s
func (s Seat) Next() Seat {
	return (s + 1) % Seat(len(Seats))
}

// Partner returns the seat across the table
func (s Seat) Partner() Seat {
	return (s + 2) % Seat(len(Seats))
}

// Team returns the partnership s belongs to
func (s Seat) Team() Team {
	if s == North || s == South {
		return NorthSouth
	}
	return EastWest
}

// ParseSeat parses a seat name (case-insensitive)
func ParseSeat(s string) (Seat, error) {
	for _, seat := range Seats {
		if strings.EqualFold(strings.TrimSpace(s), seat.String()) {
			return seat, nil
		}
	}
	return North, fmt.Errorf("invalid seat: %q", s)
}

func (s Seat) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid seat: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Seat) UnmarshalText(text []byte) error {
	parsed, err := ParseSeat(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Team is one of the two fixed partnerships
type Team int

const (
	NorthSouth Team = iota
	EastWest
)

func (t Team) String() string {
	if t == NorthSouth {
		return "north_south"
	}
	return "east_west"
}

// Other returns the opposing team
func (t Team) Other() Team {
	return 1 - t
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Player is the name of a participant from the configured roster
type Player string

// DefaultPlayers is the roster used when none is configured
var DefaultPlayers = []Player{"bill", "deborah", "josh", "maia"}

// MarshalJSON encodes the empty player (an empty seat) as null
func (p Player) MarshalJSON() ([]byte, error) {
	if p == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(p))
}

func (p *Player) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = Player(s)
	return nil
}

// BySeat holds one value per seat. It encodes as a JSON object keyed by seat
// name, in turn order.
type BySeat[T any] [4]T

func (b BySeat[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, seat := range Seats {
		if i > 0 {
			buf.WriteByte(',')
		}
		fmt.Fprintf(&buf, "%q:", seat.String())
		value, err := json.Marshal(b[seat])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", seat, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (b *BySeat[T]) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		seat, err := ParseSeat(key)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(value, &b[seat]); err != nil {
			return fmt.Errorf("%s: %w", seat, err)
		}
	}
	return nil
}
