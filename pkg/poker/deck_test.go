package poker

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(1)))
	require.Equal(t, 52, d.Size())

	seen := make(map[Card]bool)
	for d.Size() > 0 {
		c, ok := d.Draw()
		require.True(t, ok)
		require.False(t, seen[c], "duplicate card %s", c)
		seen[c] = true
	}
	_, ok := d.Draw()
	assert.False(t, ok)
}

func TestDeckShuffleIsSeeded(t *testing.T) {
	a := NewDeck(rand.New(rand.NewSource(7)))
	b := NewDeck(rand.New(rand.NewSource(7)))
	for i := 0; i < 52; i++ {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		require.Equal(t, ca, cb)
	}
}

func TestDeckStack(t *testing.T) {
	d := NewDeck(rand.New(rand.NewSource(3)))
	top := MustParseCards("As", "Kd", "2c")
	d.Stack(top)
	assert.Equal(t, 52, d.Size())
	for _, want := range top {
		got, _ := d.Draw()
		assert.Equal(t, want, got)
	}
}

func TestParseCard(t *testing.T) {
	tests := []struct {
		in    string
		value Value
		suit  Suit
		err   bool
	}{
		{"As", Ace, Spades, false},
		{"Td", Ten, Diamonds, false},
		{"10h", Ten, Hearts, false},
		{"2♣", Two, Clubs, false},
		{"1s", "", "", true},
		{"Ax", "", "", true},
		{"A", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			c, err := ParseCard(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.value, c.GetValue())
			assert.Equal(t, tc.suit, c.GetSuit())
		})
	}
}

func TestCardJSON(t *testing.T) {
	c := NewCard(Hearts, Queen)
	b, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"suit":"♥","value":"Q"}`, string(b))

	var back Card
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, c, back)
	assert.Equal(t, "Q♥", back.String())
}
