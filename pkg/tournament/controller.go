package tournament

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/slog"

	"github.com/vctt94/pokertourney/pkg/poker"
	"github.com/vctt94/pokertourney/pkg/statemachine"
)

// Player is the controller's record of one entrant. TableID and Seat are
// -1 once the player is eliminated.
type Player struct {
	ID      int   `json:"id"`
	Stack   int64 `json:"stack"`
	TableID int   `json:"table_id"`
	Seat    int   `json:"seat"`
	Alive   bool  `json:"alive"`
}

// Options configures collaborators of a Controller. The zero value plays
// real hands with NewEngineTable and rewards chip deltas.
type Options struct {
	Log          slog.Logger
	TableLog     slog.Logger
	BalancerLog  slog.Logger
	TableFactory TableFactory
	Reward       RewardPolicy
}

// Controller runs one tournament at a time. Only one table has a hand in
// progress at any moment and every change to seating, blinds or the
// ledger happens between hands. A Controller is not safe for concurrent
// use.
type Controller struct {
	log         slog.Logger
	tableLog    slog.Logger
	balancerLog slog.Logger
	newTable    TableFactory
	reward      RewardPolicy

	cfg      Config
	schedule BlindSchedule
	balancer *Balancer
	ledger   *Ledger
	players  []Player
	tables   map[int]Table

	handsPlayed int
	levelIndex  int
	active      int // table with the hand in progress, -1 between hands
	cursor      int // last table to finish a hand

	sm *statemachine.StateMachine[Controller]
}

// NewController creates an idle controller. Call Reset to start.
func NewController(opts Options) *Controller {
	c := &Controller{
		log:         opts.Log,
		tableLog:    opts.TableLog,
		balancerLog: opts.BalancerLog,
		newTable:    opts.TableFactory,
		reward:      opts.Reward,
		active:      -1,
		cursor:      -1,
	}
	if c.log == nil {
		c.log = slog.Disabled
	}
	if c.tableLog == nil {
		c.tableLog = slog.Disabled
	}
	if c.balancerLog == nil {
		c.balancerLog = slog.Disabled
	}
	if c.newTable == nil {
		c.newTable = NewEngineTable
	}
	if c.reward == nil {
		c.reward = ChipDelta{}
	}
	c.sm = statemachine.NewStateMachine(c, stateIdle).
		Name(stateIdle, "IDLE").
		Name(stateAwaitingAction, "AWAITING_ACTION").
		Name(stateFinished, "FINISHED").
		Name(stateTruncated, "TRUNCATED")
	return c
}

func stateIdle(c *Controller) statemachine.StateFn[Controller] {
	return stateIdle
}

func stateAwaitingAction(c *Controller) statemachine.StateFn[Controller] {
	if c.TournamentFinished() {
		return stateFinished
	}
	if c.cfg.MaxHands > 0 && c.handsPlayed >= c.cfg.MaxHands && c.active < 0 {
		return stateTruncated
	}
	return stateAwaitingAction
}

func stateFinished(c *Controller) statemachine.StateFn[Controller] {
	return stateFinished
}

func stateTruncated(c *Controller) statemachine.StateFn[Controller] {
	return stateTruncated
}

// Reset validates cfg, seats a new field and starts the first hand.
func (c *Controller) Reset(cfg Config) (Observation, Info, error) {
	if err := cfg.Validate(); err != nil {
		return Observation{}, Info{}, err
	}

	c.cfg = cfg
	c.schedule = cfg.Schedule()
	c.balancer = NewBalancer(cfg, c.balancerLog)
	c.ledger = NewLedger(cfg.TotalPlayers)
	c.players = make([]Player, cfg.TotalPlayers)
	c.tables = make(map[int]Table)
	c.handsPlayed = 0
	c.levelIndex = 0
	c.active = -1
	c.cursor = -1

	order := make([]int, cfg.TotalPlayers)
	for i := range order {
		order[i] = i
		c.players[i] = Player{ID: i, Stack: cfg.StartingStack, TableID: -1, Seat: -1, Alive: true}
	}
	if cfg.ShuffleSeats {
		rng := rand.New(rand.NewSource(cfg.Seed))
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	// Split into the fewest tables with sizes within one of each other.
	n := cfg.InitialTables()
	base, extra := cfg.TotalPlayers/n, cfg.TotalPlayers%n
	next := 0
	for id := 0; id < n; id++ {
		t := c.newTable(id, cfg.MaxPlayersPerTable, cfg.Seed+int64(id), c.tableLog)
		size := base
		if id < extra {
			size++
		}
		for seat := 0; seat < size; seat++ {
			pid := order[next]
			next++
			if err := t.SeatAt(pid, seat, cfg.StartingStack); err != nil {
				c.fatal("initial seating failed", err)
			}
			c.players[pid].TableID = id
			c.players[pid].Seat = seat
		}
		c.tables[id] = t
	}

	c.log.Infof("Tournament started: %d players at %d tables, %d chips each",
		cfg.TotalPlayers, n, cfg.StartingStack)

	c.sm.SetState(stateAwaitingAction)
	info := Info{}
	c.advance(&info)
	c.checkInvariants()

	pid, _ := c.ActingPlayer()
	return c.observe(pid), c.fillInfo(info), nil
}

// Step applies one action for the awaited seat and runs every hand
// boundary that follows from it.
func (c *Controller) Step(a poker.Action) (StepResult, error) {
	switch {
	case c.sm.Is(stateIdle):
		return StepResult{}, ErrNotStarted
	case c.sm.Is(stateFinished):
		return StepResult{}, &EpisodeTerminatedError{}
	case c.sm.Is(stateTruncated):
		return StepResult{}, &EpisodeTerminatedError{Truncated: true}
	}

	t := c.tables[c.active]
	pid, ok := t.ActingPlayer()
	if !ok {
		c.fatal("no awaited seat", fmt.Errorf("table %d has a hand without an actor", c.active))
	}
	mask := t.LegalActions(pid)
	if !mask.Allows(a) {
		return StepResult{}, &IllegalActionError{Action: a, Mask: mask}
	}

	before := c.players[pid].Stack
	levelBefore := c.levelIndex

	out, err := t.ApplyAction(pid, a)
	if err != nil {
		c.fatal("engine rejected a legal action", err)
	}
	c.syncStacks(t)

	info := Info{}
	if out.Complete {
		c.completeHand(t, out, &info)
	}
	c.advance(&info)
	c.checkInvariants()

	p := c.players[pid]
	ev := RewardEvent{
		PlayerID:     pid,
		StackBefore:  before,
		StackAfter:   p.Stack,
		HandComplete: info.HandComplete,
		InHand:       p.Alive && c.tables[p.TableID].InHand(pid),
		Alive:        p.Alive,
		Eliminated:   !p.Alive,
		BlindLevel:   c.levelIndex,
		LevelChanged: c.levelIndex != levelBefore,
		TotalPlayers: c.cfg.TotalPlayers,
	}
	if place, ok := c.ledger.Place(pid); ok {
		ev.Place = place
	} else if c.TournamentFinished() && p.Alive {
		ev.Won = true
		ev.Place = 1
	}

	res := StepResult{
		Reward:     c.reward.Reward(ev),
		Terminated: c.sm.Is(stateFinished),
		Truncated:  c.sm.Is(stateTruncated),
		Info:       c.fillInfo(info),
	}
	if next, ok := c.ActingPlayer(); ok {
		res.Observation = c.observe(next)
	} else {
		res.Observation = c.observe(pid)
	}
	return res, nil
}

// advance starts hands, round robin over the tables, until a decision is
// pending or the episode is over. Hands that need no decisions, such as
// every player all-in from the blinds, complete here.
func (c *Controller) advance(info *Info) {
	for {
		c.sm.Dispatch(nil)
		if !c.sm.Is(stateAwaitingAction) || c.active >= 0 {
			return
		}
		t := c.nextTable()
		out, err := t.StartHand(c.schedule.Levels[c.levelIndex])
		if err != nil {
			c.fatal(fmt.Sprintf("table %d could not start a hand", t.ID()), err)
		}
		c.active = t.ID()
		c.syncStacks(t)
		if out.Complete {
			c.completeHand(t, out, info)
		}
	}
}

// nextTable returns the first table after the cursor able to play.
func (c *Controller) nextTable() Table {
	ids := c.tableIDs()
	start := sort.SearchInts(ids, c.cursor+1)
	for k := 0; k < len(ids); k++ {
		t := c.tables[ids[(start+k)%len(ids)]]
		if t.ActivePlayerCount() >= 2 {
			return t
		}
	}
	c.fatal("no table can deal a hand", fmt.Errorf("%d players alive", c.alive()))
	return nil
}

// completeHand runs the between-hands bookkeeping in order: eliminations,
// hand count and blinds, balancing.
func (c *Controller) completeHand(t Table, out poker.HandOutcome, info *Info) {
	c.active = -1
	c.cursor = t.ID()
	info.HandComplete = true

	hand := c.handsPlayed + 1
	recs, err := c.ledger.RecordHand(hand, t.ID(), out.Eliminated)
	if err != nil {
		c.fatal("ledger rejected eliminations", err)
	}
	for _, r := range recs {
		if _, err := t.Unseat(r.PlayerID); err != nil {
			c.fatal("failed to unseat eliminated player", err)
		}
		p := &c.players[r.PlayerID]
		p.Alive, p.TableID, p.Seat = false, -1, -1
		c.log.Infof("Player %d eliminated at table %d in hand %d, finishes %d",
			r.PlayerID, r.TableID, r.Hand, r.Place)
	}
	info.Eliminations = append(info.Eliminations, recs...)

	c.handsPlayed = hand
	level := c.schedule.LevelIndex(c.handsPlayed)
	if level < c.levelIndex {
		c.fatal("blind level went backwards", fmt.Errorf("%d -> %d", c.levelIndex, level))
	}
	if level != c.levelIndex {
		c.log.Infof("Blinds up to level %d: %s", level, c.schedule.Levels[level])
	}
	c.levelIndex = level

	c.rebalance(info)

	if c.TournamentFinished() {
		for _, p := range c.players {
			if p.Alive {
				c.log.Infof("Tournament finished after %d hands, winner player %d", c.handsPlayed, p.ID)
			}
		}
	}
}

// rebalance asks the balancer for a plan and applies it.
func (c *Controller) rebalance(info *Info) {
	if c.alive() <= 1 {
		return
	}
	ids := c.tableIDs()
	views := make([]TableView, 0, len(ids))
	for _, id := range ids {
		views = append(views, snapshot(c.tables[id]))
	}
	plan, err := c.balancer.Plan(views)
	if err != nil {
		c.fatal("balancer failed", err)
	}
	for _, m := range plan.Moves {
		from, to := c.tables[m.From], c.tables[m.To]
		stack, err := from.Unseat(m.PlayerID)
		if err != nil {
			c.fatal("failed to unseat moved player", err)
		}
		if err := to.SeatAt(m.PlayerID, m.Seat, stack); err != nil {
			c.fatal("failed to seat moved player", err)
		}
		p := &c.players[m.PlayerID]
		p.TableID, p.Seat = m.To, m.Seat
	}
	for _, id := range plan.Broken {
		delete(c.tables, id)
		c.log.Debugf("Table %d closed, %d tables left", id, len(c.tables))
	}
	info.Moves = append(info.Moves, plan.Moves...)
	info.Broken = append(info.Broken, plan.Broken...)
}

func (c *Controller) syncStacks(t Table) {
	for _, pid := range t.Seats() {
		if pid != EmptySeat {
			c.players[pid].Stack = t.Stack(pid)
		}
	}
}

func (c *Controller) tableIDs() []int {
	ids := make([]int, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (c *Controller) alive() int {
	n := 0
	for _, p := range c.players {
		if p.Alive {
			n++
		}
	}
	return n
}

// ActingPlayer returns the awaited player.
func (c *Controller) ActingPlayer() (int, bool) {
	if c.active < 0 {
		return -1, false
	}
	return c.tables[c.active].ActingPlayer()
}

// LegalActionMask returns the awaited seat's legal actions. The mask is
// empty when no seat is awaited.
func (c *Controller) LegalActionMask() poker.ActionMask {
	pid, ok := c.ActingPlayer()
	if !ok {
		return poker.ActionMask{}
	}
	return c.tables[c.active].LegalActions(pid)
}

// TournamentFinished reports whether exactly one player is left.
func (c *Controller) TournamentFinished() bool {
	return c.players != nil && c.alive() == 1
}

// Started reports whether Reset has succeeded at least once.
func (c *Controller) Started() bool { return !c.sm.Is(stateIdle) }

// State names the controller's lifecycle state.
func (c *Controller) State() string { return c.sm.CurrentName() }

// Config returns the active configuration.
func (c *Controller) Config() Config { return c.cfg }

// HandsPlayed returns the number of completed hands.
func (c *Controller) HandsPlayed() int { return c.handsPlayed }

// Players returns a copy of every player record indexed by id.
func (c *Controller) Players() []Player { return append([]Player(nil), c.players...) }

// Eliminations returns the ledger in elimination order.
func (c *Controller) Eliminations() []EliminationRecord {
	if c.ledger == nil {
		return nil
	}
	return c.ledger.Records()
}

// Tables returns the current seating by table id.
func (c *Controller) Tables() []TableView {
	ids := c.tableIDs()
	out := make([]TableView, 0, len(ids))
	for _, id := range ids {
		out = append(out, snapshot(c.tables[id]))
	}
	return out
}

// Observe builds the observation for any player.
func (c *Controller) Observe(playerID int) Observation {
	if playerID < 0 || playerID >= len(c.players) {
		return Observation{PlayerID: playerID, TableID: -1, BlindLevel: c.levelIndex}
	}
	return c.observe(playerID)
}

func (c *Controller) observe(pid int) Observation {
	if pid < 0 || pid >= len(c.players) {
		return Observation{PlayerID: -1, TableID: -1, BlindLevel: c.levelIndex}
	}
	p := c.players[pid]
	obs := Observation{PlayerID: pid, Stack: p.Stack, TableID: p.TableID, BlindLevel: c.levelIndex}
	if !p.Alive {
		return obs
	}
	t := c.tables[p.TableID]
	obs.ToCall = t.ToCall(pid)
	obs.Pot = t.Pot()
	obs.Bet = t.Bet(pid)
	obs.InHand = t.InHand(pid)
	obs.PlayersAtTable = t.ActivePlayerCount()
	return obs
}

func (c *Controller) fillInfo(info Info) Info {
	info.PlayerID = -1
	info.TableID = c.active
	info.Winner = -1
	if pid, ok := c.ActingPlayer(); ok {
		info.PlayerID = pid
		info.ActionMask = c.tables[c.active].LegalActions(pid)
	}
	info.HandsPlayed = c.handsPlayed
	info.BlindLevel = c.levelIndex
	info.Blinds = c.schedule.Levels[c.levelIndex]
	if c.TournamentFinished() {
		for _, p := range c.players {
			if p.Alive {
				info.Winner = p.ID
			}
		}
	}
	info.State = c.sm.CurrentName()
	return info
}

// Stats returns a snapshot of tournament progress.
func (c *Controller) Stats() Stats {
	s := Stats{
		TableCounts: make(map[int]int),
		ChipLeader:  -1,
		State:       c.sm.CurrentName(),
	}
	if c.players == nil {
		return s
	}
	var chips int64
	for _, p := range c.players {
		chips += p.Stack
		if !p.Alive {
			continue
		}
		s.RemainingPlayers++
		s.TableCounts[p.TableID]++
		if p.Stack > s.ChipLeaderStack || s.ChipLeader < 0 {
			s.ChipLeader, s.ChipLeaderStack = p.ID, p.Stack
		}
	}
	if c.active >= 0 {
		chips += c.tables[c.active].Pot()
	}
	s.EliminatedPlayers = c.ledger.Len()
	s.ActiveTables = len(c.tables)
	s.BlindLevel = c.levelIndex
	s.Blinds = c.schedule.Levels[c.levelIndex]
	s.HandsPlayed = c.handsPlayed
	s.TotalChips = chips
	if s.RemainingPlayers > 0 {
		s.AverageStack = float64(c.cfg.TotalChips()) / float64(s.RemainingPlayers)
	}
	return s
}

// Standings ranks every player: survivors by chips, then the ledger by
// finishing place.
func (c *Controller) Standings() []Standing {
	var alive []Player
	for _, p := range c.players {
		if p.Alive {
			alive = append(alive, p)
		}
	}
	sort.SliceStable(alive, func(i, j int) bool {
		if alive[i].Stack != alive[j].Stack {
			return alive[i].Stack > alive[j].Stack
		}
		return alive[i].ID < alive[j].ID
	})

	out := make([]Standing, 0, len(c.players))
	for i, p := range alive {
		out = append(out, Standing{Place: i + 1, PlayerID: p.ID, Stack: p.Stack})
	}
	recs := c.Eliminations()
	sort.Slice(recs, func(i, j int) bool { return recs[i].Place < recs[j].Place })
	for _, r := range recs {
		out = append(out, Standing{Place: r.Place, PlayerID: r.PlayerID, Hand: r.Hand})
	}
	return out
}

// checkInvariants panics when the tournament state is inconsistent.
func (c *Controller) checkInvariants() {
	var chips int64
	seated := 0
	for _, p := range c.players {
		if p.Stack < 0 {
			c.fatal("negative stack", fmt.Errorf("player %d has %d", p.ID, p.Stack))
		}
		chips += p.Stack
		if !p.Alive {
			if p.TableID != -1 {
				c.fatal("eliminated player still seated", fmt.Errorf("player %d at table %d", p.ID, p.TableID))
			}
			continue
		}
		t, ok := c.tables[p.TableID]
		if !ok {
			c.fatal("alive player at missing table", fmt.Errorf("player %d table %d", p.ID, p.TableID))
		}
		if seats := t.Seats(); p.Seat < 0 || p.Seat >= len(seats) || seats[p.Seat] != p.ID {
			c.fatal("seat map out of sync", fmt.Errorf("player %d seat %d table %d", p.ID, p.Seat, p.TableID))
		}
	}
	for _, t := range c.tables {
		n := 0
		for _, pid := range t.Seats() {
			if pid != EmptySeat {
				n++
			}
		}
		if n > c.cfg.MaxPlayersPerTable {
			c.fatal("table over capacity", fmt.Errorf("table %d has %d", t.ID(), n))
		}
		seated += n
	}
	if c.active >= 0 {
		chips += c.tables[c.active].Pot()
	}
	if chips != c.cfg.TotalChips() {
		c.fatal("chip count drifted", fmt.Errorf("have %d, want %d", chips, c.cfg.TotalChips()))
	}
	if alive := c.alive(); seated != alive || alive+c.ledger.Len() != c.cfg.TotalPlayers {
		c.fatal("player accounting out of sync",
			fmt.Errorf("seated %d alive %d eliminated %d", seated, alive, c.ledger.Len()))
	}
}

// dumpState is what gets printed when an invariant breaks.
type dumpState struct {
	State        string
	HandsPlayed  int
	BlindLevel   int
	ActiveTable  int
	Players      []Player
	Tables       []TableView
	Eliminations []EliminationRecord
}

// Dump returns a human readable dump of the whole tournament state.
func (c *Controller) Dump() string {
	return spew.Sdump(dumpState{
		State:        c.sm.CurrentName(),
		HandsPlayed:  c.handsPlayed,
		BlindLevel:   c.levelIndex,
		ActiveTable:  c.active,
		Players:      c.players,
		Tables:       c.Tables(),
		Eliminations: c.Eliminations(),
	})
}

func (c *Controller) fatal(what string, err error) {
	c.log.Criticalf("Invariant violation: %s: %v", what, err)
	panic(fmt.Sprintf("tournament: %s: %v\n%s", what, err, c.Dump()))
}
