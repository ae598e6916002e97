// Package bot is a computer player. Strategy decides what a seat should do
// given a table state; Bot drives a strategy over a client connection.
package bot

import (
	"slices"

	"github.com/lox/rook/internal/deck"
	"github.com/lox/rook/internal/game"
	"github.com/lox/rook/internal/server"
)

// Action is a message the bot wants to send
type Action struct {
	Type server.MessageType
	Data any
}

// Strategy is a simple rule based player. It bids on the strength of its
// hand, names its longest color trumps and tries to win tricks cheaply.
type Strategy struct {
	// DealerBid is the amount the dealer wins with when everyone else
	// passes; opening bids start here.
	DealerBid int
	// MaxBid caps the bidding
	MaxBid int
	// Step is the raise over the current highest bid
	Step int
}

// DefaultStrategy returns a strategy for the standard rules
func DefaultStrategy() Strategy {
	cfg := game.DefaultConfig()
	return Strategy{DealerBid: cfg.DealerBid, MaxBid: cfg.MaxBid, Step: 5}
}

// Decide returns the action player should take in state, if it is their
// move
func (s Strategy) Decide(state game.State, player game.Player) (Action, bool) {
	seat, ok := state.SeatOf(player)
	if !ok || state.Busy {
		return Action{}, false
	}

	switch phase := state.Phase.(type) {
	case *game.BidPhase:
		if phase.Turn != seat {
			return Action{}, false
		}
		return s.bid(phase, seat), true
	case *game.NestPhase:
		if phase.WonBid != seat {
			return Action{}, false
		}
		trumps, discards := s.nest(phase.Cards[seat])
		return Action{server.MessageTypeChooseNest, server.ChooseNestData{Trumps: trumps, Nest: discards}}, true
	case *game.TricksPhase:
		if phase.Turn != seat || phase.Played[seat] != nil || len(phase.Cards[seat]) == 0 {
			return Action{}, false
		}
		return Action{server.MessageTypePlay, server.PlayData{Card: s.play(phase, seat)}}, true
	default:
		return Action{}, false
	}
}

// bidLimit estimates how many points a hand can take
func (s Strategy) bidLimit(hand []deck.Card) int {
	limit := s.DealerBid - s.Step
	longest := 0
	for _, color := range deck.Colors {
		longest = max(longest, len(cardsOf(hand, color)))
	}
	for _, c := range hand {
		switch {
		case c.Rook:
			limit += 15
		case c.Rank == deck.MaxRank:
			limit += 5
		}
	}
	limit += max(0, longest-3) * 5
	return min(limit, s.MaxBid)
}

func (s Strategy) bid(phase *game.BidPhase, seat game.Seat) Action {
	next := max(game.HighestBid(phase.Bids, seat)+s.Step, s.DealerBid)
	if next <= s.bidLimit(phase.Cards[seat]) {
		return Action{server.MessageTypeBid, server.BidData{Amount: next}}
	}
	return Action{Type: server.MessageTypePass}
}

// nest names the strongest color trumps and discards the cheapest cards
// outside it
func (s Strategy) nest(hand []deck.Card) (deck.Color, []deck.Card) {
	trumps := deck.Black
	bestScore := -1
	for _, color := range deck.Colors {
		score := 0
		for _, c := range cardsOf(hand, color) {
			score += 10 + int(c.Rank)
		}
		if score > bestScore {
			trumps, bestScore = color, score
		}
	}

	candidates := slices.Clone(hand)
	slices.SortStableFunc(candidates, func(a, b deck.Card) int {
		return discardCost(a, trumps) - discardCost(b, trumps)
	})
	return trumps, candidates[:deck.NestSize]
}

// discardCost orders cards from most to least expendable
func discardCost(c deck.Card, trumps deck.Color) int {
	cost := value(c)
	if c.Rook || c.Color == trumps {
		cost += 10000
	}
	return cost
}

func (s Strategy) play(phase *game.TricksPhase, seat game.Seat) deck.Card {
	hand := phase.Cards[seat]
	trumps := phase.Trumps

	leaderCard := phase.Played[phase.Leader]
	if leaderCard == nil {
		// Lead the strongest card outside trumps, or the weakest trump
		var offColor []deck.Card
		for _, c := range hand {
			if !c.Rook && c.Color != trumps {
				offColor = append(offColor, c)
			}
		}
		if len(offColor) > 0 {
			return slices.MaxFunc(offColor, byRank)
		}
		return slices.MinFunc(hand, byValue)
	}

	lead := leaderCard.ColorUnder(trumps)
	var best *deck.Card
	winner := phase.Leader
	for at := phase.Leader; ; {
		if c := phase.Played[at]; c != nil && game.Beats(best, *c, lead, trumps) {
			best, winner = c, at
		}
		if at = at.Next(); at == phase.Leader {
			break
		}
	}

	options := hand
	if following := cardsUnder(hand, lead, trumps); len(following) > 0 {
		options = following
	}

	// Leave a trick the partner is already taking
	if winner == seat.Partner() {
		return slices.MinFunc(options, byValue)
	}

	var winning []deck.Card
	for _, c := range options {
		if game.Beats(best, c, lead, trumps) {
			winning = append(winning, c)
		}
	}
	if len(winning) > 0 {
		return slices.MinFunc(winning, byRank)
	}
	return slices.MinFunc(options, byValue)
}

// value ranks cards by what they are worth to keep
func value(c deck.Card) int {
	if c.Rook {
		return 20*100 + int(deck.MaxRank) + 1
	}
	return c.Points()*100 + int(c.Rank)
}

func byValue(a, b deck.Card) int {
	return value(a) - value(b)
}

// byRank orders by rank with the Rook highest
func byRank(a, b deck.Card) int {
	rank := func(c deck.Card) int {
		if c.Rook {
			return int(deck.MaxRank) + 1
		}
		return int(c.Rank)
	}
	return rank(a) - rank(b)
}

func cardsOf(hand []deck.Card, color deck.Color) []deck.Card {
	var cards []deck.Card
	for _, c := range hand {
		if !c.Rook && c.Color == color {
			cards = append(cards, c)
		}
	}
	return cards
}

func cardsUnder(hand []deck.Card, color, trumps deck.Color) []deck.Card {
	var cards []deck.Card
	for _, c := range hand {
		if c.ColorUnder(trumps) == color {
			cards = append(cards, c)
		}
	}
	return cards
}
