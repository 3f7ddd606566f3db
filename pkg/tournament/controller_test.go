package tournament

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/decred/slog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vctt94/pokertourney/pkg/poker"
)

// fakeWorld scripts hands for fakeTable: every hand completes on the first
// action and busts the players queued for that table.
type fakeWorld struct {
	busts  map[int][]int
	tables map[int]*fakeTable
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{busts: make(map[int][]int), tables: make(map[int]*fakeTable)}
}

func (w *fakeWorld) factory(id, capacity int, _ int64, _ slog.Logger) Table {
	t := &fakeTable{world: w, id: id, seats: make([]int, capacity), stacks: make(map[int]int64)}
	for i := range t.seats {
		t.seats[i] = EmptySeat
	}
	w.tables[id] = t
	return t
}

type fakeTable struct {
	world  *fakeWorld
	id     int
	seats  []int
	stacks map[int]int64
	inHand bool
	hands  int
}

func (t *fakeTable) ID() int       { return t.id }
func (t *fakeTable) Capacity() int { return len(t.seats) }

func (t *fakeTable) SeatAt(pid, seat int, stack int64) error {
	if t.inHand {
		return poker.ErrHandInProgress
	}
	if t.seats[seat] != EmptySeat {
		return poker.ErrSeatTaken
	}
	t.seats[seat] = pid
	t.stacks[pid] = stack
	return nil
}

func (t *fakeTable) Unseat(pid int) (int64, error) {
	if t.inHand {
		return 0, poker.ErrHandInProgress
	}
	for i, p := range t.seats {
		if p == pid {
			t.seats[i] = EmptySeat
			s := t.stacks[pid]
			delete(t.stacks, pid)
			return s, nil
		}
	}
	return 0, poker.ErrSeatEmpty
}

func (t *fakeTable) Seats() []int { return append([]int(nil), t.seats...) }

func (t *fakeTable) BlindOrder() []int {
	var out []int
	for _, p := range t.seats {
		if p != EmptySeat {
			out = append(out, p)
		}
	}
	return out
}

func (t *fakeTable) ActivePlayerCount() int { return len(t.BlindOrder()) }
func (t *fakeTable) HandInProgress() bool   { return t.inHand }

func (t *fakeTable) StartHand(poker.BlindLevel) (poker.HandOutcome, error) {
	t.inHand = true
	t.hands++
	return poker.HandOutcome{Hand: t.hands}, nil
}

func (t *fakeTable) ApplyAction(pid int, a poker.Action) (poker.HandOutcome, error) {
	t.inHand = false
	out := poker.HandOutcome{Hand: t.hands, Complete: true, Deltas: map[int]int64{}}
	busts := t.world.busts[t.id]
	delete(t.world.busts, t.id)

	busted := map[int]bool{}
	for _, b := range busts {
		busted[b] = true
	}
	var winner int = -1
	for _, p := range t.BlindOrder() {
		if !busted[p] {
			winner = p
			break
		}
	}
	for i, b := range busts {
		seat := -1
		for s, p := range t.seats {
			if p == b {
				seat = s
			}
		}
		out.Eliminated = append(out.Eliminated, poker.Bust{PlayerID: b, Seat: seat, StartStack: t.stacks[b] + int64(i)})
		t.stacks[winner] += t.stacks[b]
		t.stacks[b] = 0
	}
	out.Winners = []int{winner}
	return out, nil
}

func (t *fakeTable) LegalActions(pid int) poker.ActionMask {
	if act, ok := t.ActingPlayer(); ok && act == pid {
		return poker.ActionMask{true, true, true}
	}
	return poker.ActionMask{}
}

func (t *fakeTable) ActingPlayer() (int, bool) {
	if !t.inHand {
		return 0, false
	}
	return t.BlindOrder()[0], true
}

func (t *fakeTable) Stack(pid int) int64 { return t.stacks[pid] }
func (t *fakeTable) Bet(int) int64       { return 0 }
func (t *fakeTable) ToCall(int) int64    { return 0 }
func (t *fakeTable) InHand(int) bool     { return t.inHand }
func (t *fakeTable) Pot() int64          { return 0 }

func tableSizes(c *Controller) map[int]int {
	out := make(map[int]int)
	for _, v := range c.Tables() {
		out[v.ID] = v.Count()
	}
	return out
}

func smallConfig(players, maxPer int) Config {
	cfg := DefaultConfig()
	cfg.TotalPlayers = players
	cfg.MaxPlayersPerTable = maxPer
	cfg.TableBalancingThreshold = 2
	return cfg
}

func TestResetDistributesEvenly(t *testing.T) {
	tests := []struct {
		players, maxPer int
		want            map[int]int
	}{
		{27, 9, map[int]int{0: 9, 1: 9, 2: 9}},
		{10, 9, map[int]int{0: 5, 1: 5}},
		{20, 6, map[int]int{0: 5, 1: 5, 2: 5, 3: 5}},
		{23, 9, map[int]int{0: 8, 1: 8, 2: 7}},
		{2, 9, map[int]int{0: 2}},
	}
	for _, tc := range tests {
		c := NewController(Options{})
		_, info, err := c.Reset(smallConfig(tc.players, tc.maxPer))
		require.NoError(t, err)
		assert.Equal(t, tc.want, tableSizes(c), "%d players / %d max", tc.players, tc.maxPer)
		assert.Equal(t, 0, info.TableID, "first hand is dealt at the lowest table")
		assert.True(t, info.ActionMask.Any())
	}
}

func TestResetSeatsByAscendingID(t *testing.T) {
	c := NewController(Options{})
	_, _, err := c.Reset(smallConfig(12, 6))
	require.NoError(t, err)
	for _, p := range c.Players() {
		assert.Equal(t, p.ID/6, p.TableID)
		assert.Equal(t, p.ID%6, p.Seat)
	}
}

func TestResetShuffleIsSeeded(t *testing.T) {
	cfg := smallConfig(18, 9)
	cfg.ShuffleSeats = true
	cfg.Seed = 99

	a, b := NewController(Options{}), NewController(Options{})
	_, _, err := a.Reset(cfg)
	require.NoError(t, err)
	_, _, err = b.Reset(cfg)
	require.NoError(t, err)
	assert.Equal(t, a.Tables(), b.Tables())
}

func TestResetRejectsBadConfig(t *testing.T) {
	c := NewController(Options{})
	cfg := DefaultConfig()
	cfg.MinPlayersPerTable = 10

	_, _, err := c.Reset(cfg)
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Empty(t, c.Tables())
	assert.False(t, c.Started())

	_, err = c.Step(poker.ActionCall)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestStepRejectsIllegalAction(t *testing.T) {
	c := NewController(Options{})
	_, _, err := c.Reset(smallConfig(9, 9))
	require.NoError(t, err)

	before := c.Stats()
	pid, _ := c.ActingPlayer()

	_, err = c.Step(poker.Action(7))
	var ierr *IllegalActionError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, c.LegalActionMask(), ierr.Mask)
	assert.Equal(t, before, c.Stats())
	after, _ := c.ActingPlayer()
	assert.Equal(t, pid, after)
}

func TestThresholdRebalanceMovesOnePlayer(t *testing.T) {
	w := newFakeWorld()
	c := NewController(Options{TableFactory: w.factory})
	cfg := smallConfig(27, 9)
	cfg.TableBalancingThreshold = 7

	_, _, err := c.Reset(cfg)
	require.NoError(t, err)
	require.Equal(t, map[int]int{0: 9, 1: 9, 2: 9}, tableSizes(c))

	w.busts[2] = []int{18, 19, 20}
	var res StepResult
	for i := 0; i < 3; i++ {
		res, err = c.Step(poker.ActionCall)
		require.NoError(t, err)
		require.True(t, res.Info.HandComplete)
	}

	require.Len(t, res.Info.Eliminations, 3)
	require.Len(t, res.Info.Moves, 1)
	assert.Equal(t, 0, res.Info.Moves[0].From)
	assert.Equal(t, 2, res.Info.Moves[0].To)
	assert.Equal(t, map[int]int{0: 8, 1: 9, 2: 7}, tableSizes(c))

	// all three went out in hand 3, the one who started with the least first
	for _, r := range res.Info.Eliminations {
		assert.Equal(t, 3, r.Hand)
	}
	assert.Equal(t, []int{18, 19, 20}, []int{
		res.Info.Eliminations[0].PlayerID,
		res.Info.Eliminations[1].PlayerID,
		res.Info.Eliminations[2].PlayerID,
	})
	assert.Equal(t, 27, res.Info.Eliminations[0].Place)
	assert.Equal(t, 25, res.Info.Eliminations[2].Place)
}

func TestFinalTableMergeAndTermination(t *testing.T) {
	w := newFakeWorld()
	c := NewController(Options{TableFactory: w.factory})
	_, _, err := c.Reset(smallConfig(12, 6))
	require.NoError(t, err)

	w.busts[0] = []int{1, 2, 3}
	_, err = c.Step(poker.ActionCall)
	require.NoError(t, err)
	assert.Equal(t, 2, len(c.Tables()))

	w.busts[1] = []int{7, 8, 9}
	res, err := c.Step(poker.ActionCall)
	require.NoError(t, err)
	require.Len(t, c.Tables(), 1, "6 players fit at one table")
	assert.Equal(t, []int{1}, res.Info.Broken)
	assert.Equal(t, 0, c.Tables()[0].ID)
	assert.Equal(t, 6, c.Tables()[0].Count())

	for !res.Terminated {
		left := c.Tables()[0].BlindOrder
		w.busts[c.Tables()[0].ID] = left[1:]
		res, err = c.Step(poker.ActionCall)
		require.NoError(t, err)
	}
	assert.True(t, c.TournamentFinished())
	assert.Equal(t, "FINISHED", res.Info.State)
	assert.Len(t, c.Eliminations(), 11)
	assert.NotEqual(t, -1, res.Info.Winner)

	st := c.Standings()
	require.Len(t, st, 12)
	assert.Equal(t, res.Info.Winner, st[0].PlayerID)
	for i, s := range st {
		assert.Equal(t, i+1, s.Place)
	}

	_, err = c.Step(poker.ActionCall)
	var terr *EpisodeTerminatedError
	require.True(t, errors.As(err, &terr))
	assert.False(t, terr.Truncated)
}

func TestTruncation(t *testing.T) {
	c := NewController(Options{})
	cfg := smallConfig(6, 6)
	cfg.MaxHands = 2
	_, _, err := c.Reset(cfg)
	require.NoError(t, err)

	var res StepResult
	for !res.Truncated && !res.Terminated {
		res, err = c.Step(poker.ActionCall)
		require.NoError(t, err)
	}
	assert.True(t, res.Truncated)
	assert.Equal(t, 2, c.HandsPlayed())

	_, err = c.Step(poker.ActionCall)
	var terr *EpisodeTerminatedError
	require.True(t, errors.As(err, &terr))
	assert.True(t, terr.Truncated)

	// Reset starts a fresh episode on the same controller
	_, _, err = c.Reset(smallConfig(6, 6))
	require.NoError(t, err)
	assert.Equal(t, 0, c.HandsPlayed())
	assert.Equal(t, "AWAITING_ACTION", c.State())
}

func TestSingleBlindLevelStaysAtZero(t *testing.T) {
	c := NewController(Options{})
	cfg := smallConfig(10, 9)
	cfg.BlindsSchedule = BlindLevels{{SmallBlind: 10, BigBlind: 20}}
	cfg.HandsPerBlindLevel = 5
	cfg.MaxHands = 40
	_, _, err := c.Reset(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	for {
		res, err := c.Step(randomAction(rng, c.LegalActionMask()))
		require.NoError(t, err)
		require.Equal(t, 0, res.Info.BlindLevel)
		require.Equal(t, 0, c.Stats().BlindLevel)
		if res.Terminated || res.Truncated {
			break
		}
	}
}

func randomAction(rng *rand.Rand, mask poker.ActionMask) poker.Action {
	for {
		r := rng.Intn(10)
		a := poker.ActionCall
		switch {
		case r < 2:
			a = poker.ActionFold
		case r < 4:
			a = poker.ActionRaise
		}
		if mask.Allows(a) {
			return a
		}
	}
}

// TestRandomTournamentsHoldInvariants plays complete tournaments with real
// tables and checks the global properties after every step.
func TestRandomTournamentsHoldInvariants(t *testing.T) {
	configs := []Config{
		smallConfig(20, 6),
		smallConfig(27, 9),
		smallConfig(2, 9),
	}
	configs[0].HandsPerBlindLevel = 3
	configs[1].HandsPerBlindLevel = 2
	configs[1].TableBalancingThreshold = 7
	configs[1].StrictBalance = true

	for i, cfg := range configs {
		cfg.Seed = int64(i + 1)
		c := NewController(Options{})
		_, _, err := c.Reset(cfg)
		require.NoError(t, err)
		rng := rand.New(rand.NewSource(int64(i)))
		prevLevel := 0

		for steps := 0; ; steps++ {
			require.Less(t, steps, 500000, "tournament did not finish")

			active := -1
			var seatsBefore []int
			if pid, ok := c.ActingPlayer(); ok {
				active = c.Players()[pid].TableID
				for _, v := range c.Tables() {
					if v.ID == active {
						seatsBefore = v.Seats
					}
				}
			}

			res, err := c.Step(randomAction(rng, c.LegalActionMask()))
			require.NoError(t, err)

			st := c.Stats()
			require.Equal(t, cfg.TotalChips(), st.TotalChips)
			require.GreaterOrEqual(t, st.BlindLevel, prevLevel)
			require.Equal(t, cfg.Schedule().LevelIndex(st.HandsPlayed), st.BlindLevel)
			prevLevel = st.BlindLevel

			if !res.Info.HandComplete {
				for _, v := range c.Tables() {
					if v.ID == active {
						require.Equal(t, seatsBefore, v.Seats, "seating changed mid-hand")
					}
				}
			}
			for _, n := range st.TableCounts {
				require.LessOrEqual(t, n, cfg.MaxPlayersPerTable)
			}
			if cfg.StrictBalance && len(st.TableCounts) > 1 {
				lo, hi := cfg.MaxPlayersPerTable, 0
				for _, n := range st.TableCounts {
					lo, hi = min(lo, n), max(hi, n)
				}
				require.LessOrEqual(t, hi-lo, 1)
			}

			if res.Terminated {
				break
			}
		}

		recs := c.Eliminations()
		require.Len(t, recs, cfg.TotalPlayers-1)
		seen := map[int]bool{}
		for _, r := range recs {
			require.False(t, seen[r.PlayerID])
			seen[r.PlayerID] = true
		}
		withChips := 0
		for _, p := range c.Players() {
			if p.Stack > 0 {
				withChips++
				assert.Equal(t, cfg.TotalChips(), p.Stack)
				assert.False(t, seen[p.ID])
			}
		}
		assert.Equal(t, 1, withChips)
	}
}

// orbit follows one player from the moment they sit down until every seat
// has had the big blind once or the table loses a player.
type orbit struct {
	playerID  int
	size      int
	start     int
	bigBlinds int
	moved     bool
}

type blindRecorder struct {
	started bool
	orbits  []orbit
}

func (r *blindRecorder) factory(id, capacity int, seed int64, log slog.Logger) Table {
	return &blindTable{Table: NewEngineTable(id, capacity, seed, log), rec: r, open: make(map[int]*orbit)}
}

// blindTable notes who is due the big blind before each hand starts.
type blindTable struct {
	Table
	rec   *blindRecorder
	hands int
	open  map[int]*orbit
}

func (t *blindTable) SeatAt(pid, seat int, stack int64) error {
	if err := t.Table.SeatAt(pid, seat, stack); err != nil {
		return err
	}
	t.open[pid] = &orbit{playerID: pid, size: t.ActivePlayerCount(), start: t.hands, moved: t.rec.started}
	return nil
}

func (t *blindTable) Unseat(pid int) (int64, error) {
	t.closeAll()
	return t.Table.Unseat(pid)
}

func (t *blindTable) StartHand(level poker.BlindLevel) (poker.HandOutcome, error) {
	t.rec.started = true
	order := t.BlindOrder()
	t.hands++
	for pid, o := range t.open {
		if t.hands-o.start > o.size {
			t.close(pid)
		} else if len(order) > 0 && order[0] == pid {
			o.bigBlinds++
		}
	}
	return t.Table.StartHand(level)
}

func (t *blindTable) close(pid int) {
	t.rec.orbits = append(t.rec.orbits, *t.open[pid])
	delete(t.open, pid)
}

func (t *blindTable) closeAll() {
	for pid := range t.open {
		t.close(pid)
	}
}

// TestMovedPlayerPostsOneBigBlindPerOrbit checks that a player seated at a
// new table takes the big blind by seat position only, never twice before
// the rest of the table has had it.
func TestMovedPlayerPostsOneBigBlindPerOrbit(t *testing.T) {
	rec := &blindRecorder{}
	c := NewController(Options{TableFactory: rec.factory})
	cfg := smallConfig(27, 9)
	cfg.TableBalancingThreshold = 7
	cfg.HandsPerBlindLevel = 3
	cfg.Seed = 11
	_, _, err := c.Reset(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(11))
	moves := 0
	for steps := 0; ; steps++ {
		require.Less(t, steps, 500000, "tournament did not finish")
		res, err := c.Step(randomAction(rng, c.LegalActionMask()))
		require.NoError(t, err)
		moves += len(res.Info.Moves)
		if res.Terminated || res.Truncated {
			break
		}
	}
	require.Positive(t, moves)

	movedOrbits := 0
	for _, o := range rec.orbits {
		assert.LessOrEqual(t, o.bigBlinds, 1, "player %d posted the big blind %d times within %d hands",
			o.playerID, o.bigBlinds, o.size)
		if o.moved {
			movedOrbits++
		}
	}
	assert.Positive(t, movedOrbits)
}
