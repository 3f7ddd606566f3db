package poker

// Pot represents a pot of chips in the hand
type Pot struct {
	Amount      int64  // Total amount in the pot
	Eligibility []bool // seat-aligned mask of players who can win it
}

// NewPot creates a new empty pot for nSeats seats
func NewPot(nSeats int) *Pot {
	return &Pot{Eligibility: make([]bool, nSeats)}
}

// IsEligible checks if a seat is eligible to win this pot
func (p *Pot) IsEligible(seat int) bool {
	return seat >= 0 && seat < len(p.Eligibility) && p.Eligibility[seat]
}

// EligibleSeats returns the eligible seats in seat order.
func (p *Pot) EligibleSeats() []int {
	var out []int
	for i, ok := range p.Eligibility {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// PotManager tracks what every seat has put in during a hand and splits it
// into a main pot followed by side pots.
type PotManager struct {
	Pots        []*Pot
	CurrentBets []int64 // this betting round
	TotalBets   []int64 // across all rounds
	Dead        int64   // antes and other dead money, added to the main pot
}

// NewPotManager creates a pot manager for nSeats seats
func NewPotManager(nSeats int) *PotManager {
	return &PotManager{
		Pots:        []*Pot{NewPot(nSeats)},
		CurrentBets: make([]int64, nSeats),
		TotalBets:   make([]int64, nSeats),
	}
}

// AddBet records chips put in by a seat during the current round.
func (pm *PotManager) AddBet(seat int, amount int64) {
	pm.CurrentBets[seat] += amount
	pm.TotalBets[seat] += amount
}

// AddDead records chips that belong to the pot without counting as a bet.
func (pm *PotManager) AddDead(amount int64) {
	pm.Dead += amount
}

// ResetCurrentBets resets the current bets for a new betting round
func (pm *PotManager) ResetCurrentBets() {
	for i := range pm.CurrentBets {
		pm.CurrentBets[i] = 0
	}
}

// GetCurrentBet returns the current round bet for a seat
func (pm *PotManager) GetCurrentBet(seat int) int64 {
	return pm.CurrentBets[seat]
}

// GetTotalBet returns the total bet for a seat across all rounds
func (pm *PotManager) GetTotalBet(seat int) int64 {
	return pm.TotalBets[seat]
}

// GetTotalPot returns every chip committed to the hand.
func (pm *PotManager) GetTotalPot() int64 {
	total := pm.Dead
	for _, b := range pm.TotalBets {
		total += b
	}
	return total
}

// BuildPotsFromTotals rebuilds main/side pots from TotalBets. folded marks
// seats that can no longer win anything.
func (pm *PotManager) BuildPotsFromTotals(folded []bool) {
	n := len(pm.TotalBets)

	var levels []int64
	for _, b := range pm.TotalBets {
		if b <= 0 {
			continue
		}
		dup := false
		for _, l := range levels {
			if l == b {
				dup = true
				break
			}
		}
		if !dup {
			levels = append(levels, b)
		}
	}
	// sort ascending (tiny in-place sort)
	for i := 0; i < len(levels); i++ {
		for j := i + 1; j < len(levels); j++ {
			if levels[i] > levels[j] {
				levels[i], levels[j] = levels[j], levels[i]
			}
		}
	}

	pots := make([]*Pot, 0, len(levels))
	prev := int64(0)
	for _, lvl := range levels {
		p := NewPot(n)
		for i := 0; i < n; i++ {
			tb := pm.TotalBets[i]
			if tb > prev {
				c := tb
				if c > lvl {
					c = lvl
				}
				p.Amount += c - prev
			}
			if tb >= lvl && !folded[i] {
				p.Eligibility[i] = true
			}
		}
		pots = append(pots, p)
		prev = lvl
	}
	if len(pots) == 0 {
		pots = append(pots, NewPot(n))
	}
	pots[0].Amount += pm.Dead

	// Layers nobody live can win (folded overage) roll into the pot below,
	// as do layers contested by the same players.
	merged := pots[:1]
	for _, p := range pots[1:] {
		last := merged[len(merged)-1]
		if len(p.EligibleSeats()) == 0 || sameEligibility(p, last) {
			last.Amount += p.Amount
			continue
		}
		merged = append(merged, p)
	}
	pm.Pots = merged
}

func sameEligibility(a, b *Pot) bool {
	for i := range a.Eligibility {
		if a.Eligibility[i] != b.Eligibility[i] {
			return false
		}
	}
	return true
}
