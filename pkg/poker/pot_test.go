package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPotsFromTotals(t *testing.T) {
	pm := NewPotManager(4)
	pm.AddBet(0, 30)
	pm.AddBet(1, 100)
	pm.AddBet(2, 100)
	pm.AddBet(3, 60)
	pm.AddDead(20)
	require.Equal(t, int64(310), pm.GetTotalPot())

	// seat 3 folded after putting in 60
	pm.BuildPotsFromTotals([]bool{false, false, false, true})
	require.Len(t, pm.Pots, 2)

	assert.Equal(t, int64(30*4+20), pm.Pots[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, pm.Pots[0].EligibleSeats())

	// the 60 level has nobody live at exactly 60, it still belongs to seats 1 and 2
	assert.Equal(t, int64(30*3+40*2), pm.Pots[1].Amount)
	assert.Equal(t, []int{1, 2}, pm.Pots[1].EligibleSeats())

	var sum int64
	for _, p := range pm.Pots {
		sum += p.Amount
	}
	assert.Equal(t, pm.GetTotalPot(), sum)
}

func TestFoldedOverageMergesDown(t *testing.T) {
	pm := NewPotManager(3)
	pm.AddBet(0, 50)  // all-in
	pm.AddBet(1, 200) // folded to a bet
	pm.AddBet(2, 100)

	pm.BuildPotsFromTotals([]bool{false, true, false})
	require.Len(t, pm.Pots, 2)
	assert.Equal(t, int64(150), pm.Pots[0].Amount)
	assert.Equal(t, int64(200), pm.Pots[1].Amount)
	assert.True(t, pm.Pots[1].IsEligible(2))
	assert.False(t, pm.Pots[1].IsEligible(1))
}

func TestResetCurrentBets(t *testing.T) {
	pm := NewPotManager(2)
	pm.AddBet(0, 10)
	pm.ResetCurrentBets()
	assert.Zero(t, pm.GetCurrentBet(0))
	assert.Equal(t, int64(10), pm.GetTotalBet(0))
}
