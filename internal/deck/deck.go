package deck

import (
	rand "math/rand/v2"
)

const (
	// Size is the number of cards in a full deck: the Rook plus 4 colors of 11 ranks
	Size = 1 + len(Colors)*int(MaxRank-MinRank+1)

	// Hands is the number of hands dealt
	Hands = 4

	// HandSize is the number of cards dealt to each hand
	HandSize = 10

	// NestSize is the number of cards left over after dealing
	NestSize = Size - Hands*HandSize

	// TotalPoints is the sum of every card's point value
	TotalPoints = 120
)

// All returns the full deck in canonical order
func All() []Card {
	cards := make([]Card, 0, Size)
	cards = append(cards, Rook)
	for _, color := range Colors {
		for rank := MinRank; rank <= MaxRank; rank++ {
			cards = append(cards, NewCard(color, rank))
		}
	}
	return cards
}

// Deck holds the 45 cards and the random source used to shuffle them
type Deck struct {
	cards [Size]Card
	rng   *rand.Rand
}

// NewDeck creates a full deck in canonical order. Call Shuffle before dealing.
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	copy(d.cards[:], All())
	return d
}

// Shuffle walks every position and swaps it with a uniformly chosen position
// anywhere in the deck.
func (d *Deck) Shuffle() {
	for i := range d.cards {
		j := d.rng.IntN(len(d.cards))
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal slices the deck into four hands of HandSize cards and the nest. The
// returned slices are fresh copies and do not alias the deck.
func (d *Deck) Deal() (hands [Hands][]Card, nest []Card) {
	for i := range hands {
		hands[i] = append([]Card(nil), d.cards[i*HandSize:(i+1)*HandSize]...)
	}
	nest = append([]Card(nil), d.cards[Hands*HandSize:]...)
	return hands, nest
}

// Cards returns a copy of the deck in its current order
func (d *Deck) Cards() []Card {
	return append([]Card(nil), d.cards[:]...)
}
