package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Bid is one seat's standing bid. The zero value means the seat has not bid
// yet.
type Bid struct {
	Amount int
	Passed bool
}

// PassedBid is the bid of a seat that has dropped out of the auction
var PassedBid = Bid{Passed: true}

// Unset reports whether the seat has not acted yet
func (b Bid) Unset() bool {
	return !b.Passed && b.Amount == 0
}

// Placed reports whether the seat holds a numeric bid
func (b Bid) Placed() bool {
	return !b.Passed && b.Amount > 0
}

func (b Bid) String() string {
	switch {
	case b.Passed:
		return "passed"
	case b.Amount > 0:
		return fmt.Sprintf("%d", b.Amount)
	default:
		return "-"
	}
}

// MarshalJSON encodes an unset bid as null, a pass as "passed" and a placed
// bid as its amount.
func (b Bid) MarshalJSON() ([]byte, error) {
	switch {
	case b.Passed:
		return []byte(`"passed"`), nil
	case b.Amount > 0:
		return json.Marshal(b.Amount)
	default:
		return []byte("null"), nil
	}
}

func (b *Bid) UnmarshalJSON(data []byte) error {
	switch {
	case bytes.Equal(data, []byte("null")):
		*b = Bid{}
		return nil
	case bytes.Equal(data, []byte(`"passed"`)):
		*b = PassedBid
		return nil
	}
	var amount int
	if err := json.Unmarshal(data, &amount); err != nil {
		return fmt.Errorf("invalid bid %s", data)
	}
	*b = Bid{Amount: amount}
	return nil
}

// RookHolder records who held the Rook after the nest exchange: a seat, or
// the discarded nest.
type RookHolder struct {
	Seat   Seat
	InNest bool
}

// NestHolder is the RookHolder for a Rook discarded into the nest
var NestHolder = RookHolder{InNest: true}

func (r RookHolder) String() string {
	if r.InNest {
		return "nest"
	}
	return r.Seat.String()
}

func (r RookHolder) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RookHolder) UnmarshalText(text []byte) error {
	if string(text) == "nest" {
		*r = NestHolder
		return nil
	}
	seat, err := ParseSeat(string(text))
	if err != nil {
		return err
	}
	*r = RookHolder{Seat: seat}
	return nil
}
