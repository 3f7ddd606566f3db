package poker

import (
	"encoding/json"
	"fmt"
	"math/rand"
)

// Suit represents a card suit
type Suit string

const (
	Spades   Suit = "♠"
	Hearts   Suit = "♥"
	Diamonds Suit = "♦"
	Clubs    Suit = "♣"
)

// Value represents a card value
type Value string

const (
	Ace   Value = "A"
	Two   Value = "2"
	Three Value = "3"
	Four  Value = "4"
	Five  Value = "5"
	Six   Value = "6"
	Seven Value = "7"
	Eight Value = "8"
	Nine  Value = "9"
	Ten   Value = "10"
	Jack  Value = "J"
	Queen Value = "Q"
	King  Value = "K"
)

var (
	allSuits  = []Suit{Spades, Hearts, Diamonds, Clubs}
	allValues = []Value{Ace, Two, Three, Four, Five, Six, Seven, Eight, Nine, Ten, Jack, Queen, King}
)

// Card represents a playing card
type Card struct {
	suit  Suit
	value Value
}

// NewCard creates a card from its suit and value.
func NewCard(suit Suit, value Value) Card {
	return Card{suit: suit, value: value}
}

// ParseCard parses short notation such as "As", "Td" or "10h".
func ParseCard(s string) (Card, error) {
	if len(s) < 2 {
		return Card{}, fmt.Errorf("invalid card %q", s)
	}
	var c Card
	v, err := parseValue(s[:len(s)-1])
	if err != nil {
		return Card{}, err
	}
	st, err := parseSuit(s[len(s)-1:])
	if err != nil {
		return Card{}, err
	}
	c.value, c.suit = v, st
	return c, nil
}

// MustParseCards parses a space separated card list and panics on error.
// It is meant for tests and fixtures.
func MustParseCards(cards ...string) []Card {
	out := make([]Card, 0, len(cards))
	for _, s := range cards {
		c, err := ParseCard(s)
		if err != nil {
			panic(err)
		}
		out = append(out, c)
	}
	return out
}

func parseSuit(s string) (Suit, error) {
	switch s {
	case "♠", "s", "S":
		return Spades, nil
	case "♥", "h", "H":
		return Hearts, nil
	case "♦", "d", "D":
		return Diamonds, nil
	case "♣", "c", "C":
		return Clubs, nil
	}
	return "", fmt.Errorf("invalid suit: %s", s)
}

func parseValue(s string) (Value, error) {
	switch s {
	case "A", "a":
		return Ace, nil
	case "K", "k":
		return King, nil
	case "Q", "q":
		return Queen, nil
	case "J", "j":
		return Jack, nil
	case "10", "T", "t":
		return Ten, nil
	case "9", "8", "7", "6", "5", "4", "3", "2":
		return Value(s), nil
	}
	return "", fmt.Errorf("invalid value: %s", s)
}

// CardJSON represents a card for JSON serialization
type CardJSON struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// MarshalJSON implements json.Marshaler interface for Card
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(CardJSON{
		Suit:  string(c.suit),
		Value: string(c.value),
	})
}

// UnmarshalJSON implements json.Unmarshaler interface for Card
func (c *Card) UnmarshalJSON(data []byte) error {
	var cj CardJSON
	if err := json.Unmarshal(data, &cj); err != nil {
		return err
	}
	suit, err := parseSuit(cj.Suit)
	if err != nil {
		return err
	}
	value, err := parseValue(cj.Value)
	if err != nil {
		return err
	}
	c.suit, c.value = suit, value
	return nil
}

// String returns a string representation of the card
func (c Card) String() string {
	return string(c.value) + string(c.suit)
}

// GetSuit returns the card's suit
func (c Card) GetSuit() Suit {
	return c.suit
}

// GetValue returns the card's value
func (c Card) GetValue() Value {
	return c.value
}

// Deck represents a deck of cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck creates a new shuffled deck of cards with the given random number generator
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.Reset()
	return d
}

// Reset refills the deck with all 52 cards and shuffles it.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for _, suit := range allSuits {
		for _, value := range allValues {
			d.cards = append(d.cards, Card{suit: suit, value: value})
		}
	}
	d.Shuffle()
}

// Shuffle randomizes the order of cards in the deck
func (d *Deck) Shuffle() {
	d.rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
}

// Draw removes and returns the top card from the deck
func (d *Deck) Draw() (Card, bool) {
	if len(d.cards) == 0 {
		return Card{}, false
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, true
}

// Size returns the number of cards remaining in the deck
func (d *Deck) Size() int {
	return len(d.cards)
}

// Stack puts cards on top of the deck in the given order. Used to script
// hands in tests.
func (d *Deck) Stack(cards []Card) {
	rest := make([]Card, 0, len(d.cards))
	for _, c := range d.cards {
		keep := true
		for _, s := range cards {
			if c == s {
				keep = false
				break
			}
		}
		if keep {
			rest = append(rest, c)
		}
	}
	d.cards = append(append([]Card{}, cards...), rest...)
}
