package game

import (
	"fmt"

	"github.com/lox/rook/internal/deck"
)

// Beats reports whether card c takes a trick currently held by best, given
// the lead color and trumps. A nil best is beaten by anything.
//
// The Rook beats everything. A trump beats any non-trump and loses to a
// higher trump. A lead-colored card beats off-color cards and loses to a
// higher lead-colored card. Cards that are neither trump nor lead color never
// win once a lead or trump card is held.
func Beats(best *deck.Card, c deck.Card, lead, trumps deck.Color) bool {
	switch {
	case best == nil:
		return true
	case best.Rook:
		return false
	case c.Rook:
		return true
	case best.Color == trumps:
		return c.Color == trumps && c.Rank > best.Rank
	case c.Color == trumps:
		return true
	case best.Color != lead:
		return true
	case c.Color != lead:
		return false
	default:
		return c.Rank > best.Rank
	}
}

// TrickWinner returns the seat whose card takes a completed trick. The lead
// color is the color of the leader's card, with the Rook counting as trumps.
func TrickWinner(trick Trick, leader Seat, trumps deck.Color) (Seat, error) {
	seen := make(map[deck.Card]bool, len(trick))
	for _, seat := range Seats {
		card := trick[seat]
		if !card.Valid() || seen[card] {
			return North, fmt.Errorf("%w: trick %v holds an invalid or repeated card %s", ErrInvariant, trick, card)
		}
		seen[card] = true
	}

	lead := trick[leader].ColorUnder(trumps)
	var best *deck.Card
	winner := leader
	for _, seat := range Seats {
		card := trick[seat]
		if Beats(best, card, lead, trumps) {
			best = &card
			winner = seat
		}
	}

	for _, seat := range Seats {
		if seat != winner && Beats(best, trick[seat], lead, trumps) {
			return North, fmt.Errorf("%w: no unique winner of trick %v", ErrInvariant, trick)
		}
	}
	return winner, nil
}

// AuctionRules are the bid limits of a game
type AuctionRules struct {
	DealerBid int
	MaxBid    int
}

// BidOutcome is the result of checking the auction after a bid or pass.
// When Won is false, Turn is the next seat to act.
type BidOutcome struct {
	Won    bool
	Winner Seat
	Amount int
	Turn   Seat
}

// ResolveBids decides whether the auction is over after the seat at turn has
// acted. The checks run in order:
//
//  1. If every seat other than the dealer has passed, the dealer wins at the
//     dealer bid.
//  2. If any seat has not acted yet, the auction moves to the next seat.
//  3. If exactly one seat has not passed, it wins at its own bid.
//  4. If some seat has bid the maximum, it wins at the maximum.
//  5. Otherwise the auction moves to the next seat that has not passed.
func ResolveBids(bids BySeat[Bid], turn, dealer Seat, rules AuctionRules) BidOutcome {
	if othersPassed(bids, dealer) {
		return BidOutcome{Won: true, Winner: dealer, Amount: rules.DealerBid}
	}

	for _, bid := range bids {
		if bid.Unset() {
			return BidOutcome{Turn: turn.Next()}
		}
	}

	var standing []Seat
	for _, seat := range Seats {
		if !bids[seat].Passed {
			standing = append(standing, seat)
		}
	}
	if len(standing) == 1 {
		seat := standing[0]
		return BidOutcome{Won: true, Winner: seat, Amount: bids[seat].Amount}
	}

	for _, seat := range standing {
		if bids[seat].Amount >= rules.MaxBid {
			return BidOutcome{Won: true, Winner: seat, Amount: rules.MaxBid}
		}
	}

	next := turn.Next()
	for bids[next].Passed {
		next = next.Next()
	}
	return BidOutcome{Turn: next}
}

func othersPassed(bids BySeat[Bid], dealer Seat) bool {
	for _, seat := range Seats {
		if seat != dealer && !bids[seat].Passed {
			return false
		}
	}
	return true
}

// HighestBid returns the largest amount bid by any seat other than except
func HighestBid(bids BySeat[Bid], except Seat) int {
	highest := 0
	for _, seat := range Seats {
		if seat != except && bids[seat].Placed() && bids[seat].Amount > highest {
			highest = bids[seat].Amount
		}
	}
	return highest
}

// ScoreDeltas returns the score change of each team for a finished hand. The
// bidding team scores its points if they reach the bid and loses the bid
// otherwise. The other team always scores its points.
func ScoreDeltas(bidder Team, bid int, points BySeat[int]) [2]int {
	var totals [2]int
	for _, seat := range Seats {
		totals[seat.Team()] += points[seat]
	}
	deltas := totals
	if totals[bidder] < bid {
		deltas[bidder] = -bid
	}
	return deltas
}

// GameWinner returns the team that has won the game, if any. A team wins when
// its score reaches target and the scores are not tied; the higher score
// takes it when both teams cross together.
func GameWinner(northSouth, eastWest, target int) (Team, bool) {
	if northSouth < target && eastWest < target {
		return NorthSouth, false
	}
	switch {
	case northSouth > eastWest:
		return NorthSouth, true
	case eastWest > northSouth:
		return EastWest, true
	default:
		return NorthSouth, false
	}
}
