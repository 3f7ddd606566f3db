package tournament

import (
	"errors"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// view seats players from seat 0 and uses seat order as the blind order.
func view(id, capacity int, players ...int) TableView {
	seats := make([]int, capacity)
	for i := range seats {
		seats[i] = EmptySeat
	}
	copy(seats, players)
	return TableView{ID: id, Seats: seats, BlindOrder: append([]int(nil), players...)}
}

func ids(from, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = from + i
	}
	return out
}

func balancerFor(maxPer, minPer, threshold int, strict bool) *Balancer {
	cfg := DefaultConfig()
	cfg.MaxPlayersPerTable = maxPer
	cfg.MinPlayersPerTable = minPer
	cfg.TableBalancingThreshold = threshold
	cfg.StrictBalance = strict
	return NewBalancer(cfg, slog.Disabled)
}

// sizesAfter applies a plan to views and returns the resulting counts by table id.
func sizesAfter(views []TableView, plan MigrationPlan) map[int]int {
	sizes := make(map[int]int)
	for _, v := range views {
		sizes[v.ID] = v.Count()
	}
	for _, m := range plan.Moves {
		sizes[m.From]--
		sizes[m.To]++
	}
	for _, id := range plan.Broken {
		delete(sizes, id)
	}
	return sizes
}

func TestBalancerTopsUpDepletedTableWithOneMove(t *testing.T) {
	b := balancerFor(9, 2, 7, false)
	views := []TableView{
		view(0, 9, ids(0, 9)...),
		view(1, 9, ids(9, 9)...),
		view(2, 9, ids(18, 6)...),
	}

	plan, err := b.Plan(views)
	require.NoError(t, err)
	require.Len(t, plan.Moves, 1)
	assert.Empty(t, plan.Broken)

	m := plan.Moves[0]
	assert.Equal(t, Move{PlayerID: 0, From: 0, To: 2, Seat: 6, Reason: ReasonBalance}, m)
	assert.Equal(t, map[int]int{0: 8, 1: 9, 2: 7}, sizesAfter(views, plan))
}

func TestBalancerMovesNextBigBlindToLowestFreeSeat(t *testing.T) {
	b := balancerFor(9, 2, 5, false)
	donor := view(0, 9, ids(0, 9)...)
	donor.BlindOrder = []int{4, 5, 6, 7, 8, 0, 1, 2, 3}
	short := TableView{ID: 1, Seats: []int{EmptySeat, 20, EmptySeat, 21, 22, 23, EmptySeat, EmptySeat, EmptySeat},
		BlindOrder: []int{22, 23, 20, 21}}

	plan, err := b.Plan([]TableView{donor, short})
	require.NoError(t, err)
	require.Len(t, plan.Moves, 1)
	assert.Equal(t, 4, plan.Moves[0].PlayerID)
	assert.Equal(t, 0, plan.Moves[0].Seat)
}

func TestBalancerFinalTableMerge(t *testing.T) {
	b := balancerFor(9, 2, 5, false)
	views := []TableView{
		view(0, 9, ids(0, 3)...),
		view(1, 9, ids(10, 4)...),
		view(2, 9, ids(20, 2)...),
	}
	plan, err := b.Plan(views)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 2}, plan.Broken)
	assert.Equal(t, map[int]int{1: 9}, sizesAfter(views, plan))
	for _, m := range plan.Moves {
		assert.Equal(t, 1, m.To)
		assert.Equal(t, ReasonFinalTable, m.Reason)
	}

	seats := map[int]bool{}
	for _, m := range plan.Moves {
		assert.False(t, seats[m.Seat], "seat %d assigned twice", m.Seat)
		assert.GreaterOrEqual(t, m.Seat, 4)
		seats[m.Seat] = true
	}
}

func TestBalancerBreaksFewestFirst(t *testing.T) {
	b := balancerFor(9, 2, 5, false)
	views := []TableView{
		view(0, 9, ids(0, 6)...),
		view(1, 9, ids(10, 5)...),
		view(2, 9, ids(20, 5)...),
		view(3, 9, ids(30, 6)...),
	}
	// 22 players need 3 tables; table 1 is the lowest id among the smallest
	plan, err := b.Plan(views)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, plan.Broken)

	sizes := sizesAfter(views, plan)
	assert.Len(t, sizes, 3)
	lo, hi := 99, 0
	for _, n := range sizes {
		lo, hi = min(lo, n), max(hi, n)
	}
	assert.LessOrEqual(t, hi-lo, 1)
}

func TestBalancerNoopWhenBalanced(t *testing.T) {
	b := balancerFor(9, 2, 5, false)
	plan, err := b.Plan([]TableView{view(0, 9, ids(0, 9)...), view(1, 9, ids(9, 8)...)})
	require.NoError(t, err)
	assert.True(t, plan.Empty())

	plan, err = b.Plan([]TableView{view(0, 9, ids(0, 2)...)})
	require.NoError(t, err)
	assert.True(t, plan.Empty(), "a lone final table is never touched")
}

func TestBalancerLevelsWhenTableCannotBeFilled(t *testing.T) {
	b := balancerFor(9, 2, 7, false)

	views := []TableView{
		view(0, 9, ids(0, 4)...),
		view(1, 9, ids(10, 7)...),
	}
	plan, err := b.Plan(views)
	require.NoError(t, err)
	assert.Empty(t, plan.Broken)
	require.Len(t, plan.Moves, 1)
	assert.Equal(t, Move{PlayerID: 10, From: 1, To: 0, Seat: 4, Reason: ReasonBalance}, plan.Moves[0])
	assert.Equal(t, map[int]int{0: 5, 1: 6}, sizesAfter(views, plan))

	views = []TableView{
		view(0, 9, ids(0, 5)...),
		view(1, 9, ids(10, 8)...),
		view(2, 9, ids(20, 7)...),
	}
	plan, err = b.Plan(views)
	require.NoError(t, err)
	assert.Empty(t, plan.Broken)
	require.Len(t, plan.Moves, 1)
	assert.Equal(t, 1, plan.Moves[0].From)
	assert.Equal(t, 0, plan.Moves[0].To)
	assert.Equal(t, map[int]int{0: 6, 1: 7, 2: 7}, sizesAfter(views, plan))
}

func TestBalancerStrictLevelsTables(t *testing.T) {
	b := balancerFor(9, 2, 7, true)
	views := []TableView{
		view(0, 9, ids(0, 9)...),
		view(1, 9, ids(9, 9)...),
		view(2, 9, ids(18, 6)...),
	}
	plan, err := b.Plan(views)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 8, 1: 8, 2: 8}, sizesAfter(views, plan))
}

func TestBalancerEmptyTableIsFatal(t *testing.T) {
	b := balancerFor(9, 2, 5, false)
	_, err := b.Plan([]TableView{view(0, 9, ids(0, 5)...), view(1, 9)})
	assert.True(t, errors.Is(err, ErrEmptyTable))
}

func TestBalancerDoesNotMutateInput(t *testing.T) {
	b := balancerFor(9, 2, 7, false)
	views := []TableView{view(0, 9, ids(0, 9)...), view(1, 9, ids(9, 5)...)}
	before := append([]int(nil), views[0].Seats...)
	_, err := b.Plan(views)
	require.NoError(t, err)
	assert.Equal(t, before, views[0].Seats)
}
