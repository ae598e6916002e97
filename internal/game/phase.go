package game

import (
	"encoding/json"
	"fmt"

	"github.com/lox/rook/internal/deck"
)

// PhaseKind names the stage of a hand
type PhaseKind string

const (
	PhasePreDeal PhaseKind = "pre-deal"
	PhaseBid     PhaseKind = "bid"
	PhaseNest    PhaseKind = "nest"
	PhaseTricks  PhaseKind = "tricks"
	PhaseDone    PhaseKind = "done"
)

func (k PhaseKind) String() string {
	return string(k)
}

// Phase is the per-stage payload of a State. It is implemented only by the
// phase types in this package.
type Phase interface {
	Kind() PhaseKind
	clone() Phase
}

// Hands holds every seat's cards
type Hands = BySeat[[]deck.Card]

// Trick holds one card per seat once all four have played
type Trick = BySeat[deck.Card]

// PreDealPhase is the state before the first hand of a game is dealt
type PreDealPhase struct{}

// BidPhase is the auction. Turn is the seat expected to bid or pass.
type BidPhase struct {
	Cards Hands       `json:"cards"`
	Nest  []deck.Card `json:"nest"`
	Turn  Seat        `json:"turn"`
	Bids  BySeat[Bid] `json:"bids"`
}

// NestPhase is the exchange where the bid winner, holding the nest, discards
// back down to a full hand and names trumps.
type NestPhase struct {
	Cards  Hands `json:"cards"`
	Bid    int   `json:"bid"`
	WonBid Seat  `json:"wonBid"`
}

// TricksPhase is trick play. Played holds the cards of the trick in progress;
// PreviousTrick is the most recently completed trick, if any.
type TricksPhase struct {
	Cards         Hands              `json:"cards"`
	Trumps        deck.Color         `json:"trumps"`
	Nest          []deck.Card        `json:"nest"`
	Rook          RookHolder         `json:"rook"`
	Bid           int                `json:"bid"`
	WonBid        Seat               `json:"wonBid"`
	Leader        Seat               `json:"leader"`
	Turn          Seat               `json:"turn"`
	PreviousTrick *Trick             `json:"previousTrick"`
	Played        BySeat[*deck.Card] `json:"played"`
	Points        BySeat[int]        `json:"points"`
}

// DonePhase summarises a finished hand
type DonePhase struct {
	Bid             int         `json:"bid"`
	WonBid          Seat        `json:"wonBid"`
	Rook            RookHolder  `json:"rook"`
	Points          BySeat[int] `json:"points"`
	LastTrick       Trick       `json:"lastTrick"`
	NorthSouthDelta int         `json:"north_south_delta"`
	EastWestDelta   int         `json:"east_west_delta"`
}

func (*PreDealPhase) Kind() PhaseKind { return PhasePreDeal }
func (*BidPhase) Kind() PhaseKind     { return PhaseBid }
func (*NestPhase) Kind() PhaseKind    { return PhaseNest }
func (*TricksPhase) Kind() PhaseKind  { return PhaseTricks }
func (*DonePhase) Kind() PhaseKind    { return PhaseDone }

func (p *PreDealPhase) clone() Phase { return &PreDealPhase{} }

func (p *BidPhase) clone() Phase {
	c := *p
	c.Cards = cloneHands(p.Cards)
	c.Nest = cloneCards(p.Nest)
	return &c
}

func (p *NestPhase) clone() Phase {
	c := *p
	c.Cards = cloneHands(p.Cards)
	return &c
}

func (p *TricksPhase) clone() Phase {
	c := *p
	c.Cards = cloneHands(p.Cards)
	c.Nest = cloneCards(p.Nest)
	if p.PreviousTrick != nil {
		trick := *p.PreviousTrick
		c.PreviousTrick = &trick
	}
	for i, card := range p.Played {
		if card != nil {
			played := *card
			c.Played[i] = &played
		}
	}
	return &c
}

func (p *DonePhase) clone() Phase {
	c := *p
	return &c
}

// Each phase encodes with a "phase" discriminator alongside its own fields.

func (p *PreDealPhase) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Phase PhaseKind `json:"phase"`
	}{p.Kind()})
}

func (p *BidPhase) MarshalJSON() ([]byte, error) {
	type alias BidPhase
	return json.Marshal(struct {
		Phase PhaseKind `json:"phase"`
		*alias
	}{p.Kind(), (*alias)(p)})
}

func (p *NestPhase) MarshalJSON() ([]byte, error) {
	type alias NestPhase
	return json.Marshal(struct {
		Phase PhaseKind `json:"phase"`
		*alias
	}{p.Kind(), (*alias)(p)})
}

func (p *TricksPhase) MarshalJSON() ([]byte, error) {
	type alias TricksPhase
	return json.Marshal(struct {
		Phase PhaseKind `json:"phase"`
		*alias
	}{p.Kind(), (*alias)(p)})
}

func (p *DonePhase) MarshalJSON() ([]byte, error) {
	type alias DonePhase
	return json.Marshal(struct {
		Phase PhaseKind `json:"phase"`
		*alias
	}{p.Kind(), (*alias)(p)})
}

// DecodePhase decodes a phase using its "phase" discriminator
func DecodePhase(data []byte) (Phase, error) {
	var head struct {
		Phase PhaseKind `json:"phase"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var p Phase
	switch head.Phase {
	case PhasePreDeal:
		return &PreDealPhase{}, nil
	case PhaseBid:
		p = &BidPhase{}
	case PhaseNest:
		p = &NestPhase{}
	case PhaseTricks:
		p = &TricksPhase{}
	case PhaseDone:
		p = &DonePhase{}
	default:
		return nil, fmt.Errorf("unknown phase %q", head.Phase)
	}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("invalid %s phase: %w", head.Phase, err)
	}
	return p, nil
}

func cloneCards(cards []deck.Card) []deck.Card {
	return append([]deck.Card{}, cards...)
}

func cloneHands(hands Hands) Hands {
	var c Hands
	for i, cards := range hands {
		c[i] = cloneCards(cards)
	}
	return c
}
