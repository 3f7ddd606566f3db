// Package agent provides rule-based players and a driver that plays a
// tournament to the end with them.
package agent

import (
	"math/rand"

	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/tournament"
)

// Agent picks an action for the awaited seat.
type Agent interface {
	Name() string
	Act(obs tournament.Observation, mask poker.ActionMask) poker.Action
}

// Style is a set of tendencies for a rule-based agent. All values are
// probabilities.
type Style struct {
	Name          string
	PlayFrequency float64 // continue with the hand at all
	Aggression    float64 // raise rather than call when continuing
	Bluff         float64 // raise when not continuing
	CallRate      float64 // call rather than fold when not continuing
}

var (
	TightAggressive = Style{Name: "TAG", PlayFrequency: 0.3, Aggression: 0.8, Bluff: 0.15, CallRate: 0.2}
	LooseAggressive = Style{Name: "LAG", PlayFrequency: 0.6, Aggression: 0.8, Bluff: 0.3, CallRate: 0.4}
	Rock            = Style{Name: "Rock", PlayFrequency: 0.2, Aggression: 0.1, Bluff: 0.02, CallRate: 0.1}
	Fish            = Style{Name: "Fish", PlayFrequency: 0.8, Aggression: 0.05, Bluff: 0.05, CallRate: 0.9}
)

// RuleBased plays a Style with its own random source.
type RuleBased struct {
	style Style
	rng   *rand.Rand
}

// NewRuleBased creates an agent playing style, seeded for reproducibility.
func NewRuleBased(style Style, seed int64) *RuleBased {
	return &RuleBased{style: style, rng: rand.New(rand.NewSource(seed))}
}

func (a *RuleBased) Name() string { return a.style.Name }

func (a *RuleBased) Act(obs tournament.Observation, mask poker.ActionMask) poker.Action {
	s := a.style
	play := s.PlayFrequency
	// Big bets relative to the stack scare everyone a little.
	if obs.Stack > 0 && obs.ToCall*2 > obs.Stack {
		play /= 2
	}

	if a.rng.Float64() < play {
		if a.rng.Float64() < s.Aggression && mask.Allows(poker.ActionRaise) {
			return poker.ActionRaise
		}
		if mask.Allows(poker.ActionCall) {
			return poker.ActionCall
		}
	}
	if a.rng.Float64() < s.Bluff && mask.Allows(poker.ActionRaise) {
		return poker.ActionRaise
	}
	if a.rng.Float64() < s.CallRate && mask.Allows(poker.ActionCall) {
		return poker.ActionCall
	}
	return Passive(mask)
}

// Random picks uniformly among legal actions.
type Random struct {
	rng *rand.Rand
}

// NewRandom creates a seeded random agent.
func NewRandom(seed int64) *Random {
	return &Random{rng: rand.New(rand.NewSource(seed))}
}

func (a *Random) Name() string { return "Random" }

func (a *Random) Act(_ tournament.Observation, mask poker.ActionMask) poker.Action {
	legal := mask.Legal()
	if len(legal) == 0 {
		return poker.ActionCall
	}
	return legal[a.rng.Intn(len(legal))]
}

// Passive folds when facing a bet and checks otherwise.
func Passive(mask poker.ActionMask) poker.Action {
	switch {
	case mask.Allows(poker.ActionFold):
		return poker.ActionFold
	case mask.Allows(poker.ActionCall):
		return poker.ActionCall
	}
	return poker.ActionRaise
}

// MixedRoster returns n agents cycling through the four styles. Agent i
// is seeded with seed+i.
func MixedRoster(n int, seed int64) []Agent {
	styles := []Style{TightAggressive, LooseAggressive, Rock, Fish}
	out := make([]Agent, n)
	for i := range out {
		out[i] = NewRuleBased(styles[i%len(styles)], seed+int64(i))
	}
	return out
}
