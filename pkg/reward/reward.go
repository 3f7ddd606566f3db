// Package reward maps tournament results to scalar rewards for training.
package reward

import (
	"github.com/vctt94/pokertourney/pkg/tournament"
)

var (
	tier9  = []float64{500, 300, 200, 150, 100, 75, 50, 25, 10}
	tier18 = []float64{1000, 600, 400, 300, 200, 150, 100, 75, 50, 40, 30, 25, 20, 15, 12, 10, 8, 6}
	tier27 = []float64{1500, 900, 600, 450, 300, 225, 150, 110, 75, 60, 45, 38, 30, 25, 20, 18, 15, 12,
		10, 8, 7, 6, 5, 4, 3, 2, 1}
)

// Paytable returns the placement reward for every place from 1 to total.
// Small fields use fixed tiers; larger fields use a curve that is steep at
// the top and flat past the bubble.
func Paytable(total int) []float64 {
	if total <= 0 {
		return nil
	}
	var tier []float64
	switch {
	case total <= 9:
		tier = tier9
	case total <= 18:
		tier = tier18
	case total <= 27:
		tier = tier27
	}
	if tier != nil {
		out := make([]float64, total)
		copy(out, tier)
		return out
	}

	out := make([]float64, total)
	half := total / 2
	for i := range out {
		switch {
		case i == 0:
			out[i] = 2000
		case i < 3:
			out[i] = float64(1200 - i*300)
		case i < 9:
			out[i] = float64(600 - (i-3)*50)
		case i < half:
			out[i] = float64(max(50, 300-(i-9)*10))
		default:
			out[i] = float64(max(1, 50-(i-half)))
		}
	}
	return out
}

// Placement returns the reward for finishing in place out of total.
func Placement(place, total int) float64 {
	table := Paytable(total)
	if place < 1 || place > len(table) {
		return 0
	}
	return table[place-1]
}

// Weights scales the parts of the shaped reward.
type Weights struct {
	StackChange float64 // per chip won or lost
	Survival    float64 // per action while still in the hand
	Progression float64 // per blind level survived, every step
	Placement   float64 // multiplier on the paytable
}

// DefaultWeights are the weights the policy was tuned with.
var DefaultWeights = Weights{StackChange: 0.1, Survival: 0.5, Progression: 2, Placement: 1}

// Shaped combines chip movement, survival and the placement paytable.
type Shaped struct {
	Weights Weights
}

// NewShaped returns a policy using DefaultWeights.
func NewShaped() *Shaped {
	return &Shaped{Weights: DefaultWeights}
}

// Reward implements tournament.RewardPolicy.
func (s *Shaped) Reward(ev tournament.RewardEvent) float64 {
	w := s.Weights
	r := w.StackChange * float64(ev.StackAfter-ev.StackBefore)
	if ev.Eliminated || ev.Won {
		r += w.Placement * Placement(ev.Place, ev.TotalPlayers)
	}
	if ev.Alive && ev.InHand && ev.StackBefore > 0 && ev.StackAfter > 0 {
		r += w.Survival
	}
	if ev.Alive && ev.BlindLevel > 0 {
		r += w.Progression * float64(ev.BlindLevel)
	}
	return r
}

var _ tournament.RewardPolicy = (*Shaped)(nil)
