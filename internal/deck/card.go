package deck

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Color represents the color of a normal card. The Rook has no color of its
// own; it takes whatever color is trump.
type Color int

const (
	NoColor Color = iota
	Black
	Green
	Red
	Yellow
)

// Colors lists the four real colors in canonical order.
var Colors = [4]Color{Black, Green, Red, Yellow}

// String returns the lower-case color name used on the wire
func (c Color) String() string {
	switch c {
	case Black:
		return "black"
	case Green:
		return "green"
	case Red:
		return "red"
	case Yellow:
		return "yellow"
	default:
		return "none"
	}
}

// Valid reports whether c is one of the four real colors
func (c Color) Valid() bool {
	return c >= Black && c <= Yellow
}

// ParseColor parses a color name (case-insensitive)
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "black":
		return Black, nil
	case "green":
		return Green, nil
	case "red":
		return Red, nil
	case "yellow":
		return Yellow, nil
	default:
		return NoColor, fmt.Errorf("invalid color: %q", s)
	}
}

func (c Color) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid color: %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Rank is the number printed on a normal card
type Rank int

const (
	MinRank Rank = 4
	MaxRank Rank = 14
)

// Valid reports whether r is printed on some card of the deck
func (r Rank) Valid() bool {
	return r >= MinRank && r <= MaxRank
}

// Card is either the Rook or a colored card with a rank. Cards are values and
// compare with ==; the Rook always has a zero color and rank.
type Card struct {
	Rook  bool
	Color Color
	Rank  Rank
}

// Rook is the single wild card
var Rook = Card{Rook: true}

// NewCard creates a normal card
func NewCard(color Color, rank Rank) Card {
	return Card{Color: color, Rank: rank}
}

// Valid reports whether the card exists in the deck
func (c Card) Valid() bool {
	if c.Rook {
		return c.Color == NoColor && c.Rank == 0
	}
	return c.Color.Valid() && c.Rank.Valid()
}

// Points returns the card's scoring value: Rook 20, fives 5, tens and
// fourteens 10, everything else nothing.
func (c Card) Points() int {
	if c.Rook {
		return 20
	}
	switch c.Rank {
	case 5:
		return 5
	case 10, 14:
		return 10
	default:
		return 0
	}
}

// ColorUnder returns the card's color when trumps is the trump color
func (c Card) ColorUnder(trumps Color) Color {
	if c.Rook {
		return trumps
	}
	return c.Color
}

// String returns the text form of the card, e.g. "rook" or "red10"
func (c Card) String() string {
	if c.Rook {
		return "rook"
	}
	return c.Color.String() + strconv.Itoa(int(c.Rank))
}

// ParseCard parses the text form produced by String
func ParseCard(s string) (Card, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "rook" {
		return Rook, nil
	}

	split := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if split <= 0 {
		return Card{}, fmt.Errorf("invalid card: %q", s)
	}

	color, err := ParseColor(s[:split])
	if err != nil {
		return Card{}, fmt.Errorf("invalid card %q: %w", s, err)
	}
	n, err := strconv.Atoi(s[split:])
	if err != nil || !Rank(n).Valid() {
		return Card{}, fmt.Errorf("invalid card %q: rank must be between %d and %d", s, MinRank, MaxRank)
	}
	return NewCard(color, Rank(n)), nil
}

// ParseCards parses a list of cards in text form
func ParseCards(ss []string) ([]Card, error) {
	cards := make([]Card, 0, len(ss))
	for _, s := range ss {
		c, err := ParseCard(s)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// wireCard is the JSON shape clients exchange
type wireCard struct {
	Rook   bool   `json:"rook"`
	Color  *Color `json:"color,omitempty"`
	Number *Rank  `json:"number,omitempty"`
}

func (c Card) MarshalJSON() ([]byte, error) {
	if c.Rook {
		return json.Marshal(wireCard{Rook: true})
	}
	color, rank := c.Color, c.Rank
	return json.Marshal(wireCard{Color: &color, Number: &rank})
}

func (c *Card) UnmarshalJSON(data []byte) error {
	var w wireCard
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Rook {
		*c = Rook
		return nil
	}
	if w.Color == nil || w.Number == nil {
		return fmt.Errorf("card requires color and number")
	}
	parsed := NewCard(*w.Color, *w.Number)
	if !parsed.Valid() {
		return fmt.Errorf("invalid card: %s", parsed)
	}
	*c = parsed
	return nil
}

// PointsIn sums the point value of the given cards
func PointsIn(cards []Card) int {
	total := 0
	for _, c := range cards {
		total += c.Points()
	}
	return total
}

// Contains reports whether card is in cards
func Contains(cards []Card, card Card) bool {
	for _, c := range cards {
		if c == card {
			return true
		}
	}
	return false
}

// Without returns a new slice holding cards minus every card in remove
func Without(cards []Card, remove ...Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if !Contains(remove, c) {
			out = append(out, c)
		}
	}
	return out
}
