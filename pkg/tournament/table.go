package tournament

import (
	"fmt"

	"github.com/decred/slog"

	"github.com/vctt94/pokertourney/pkg/poker"
)

// Table is what the controller needs from a single-table engine.
type Table interface {
	ID() int
	Capacity() int

	// Seating, only between hands.
	SeatAt(playerID, seat int, stack int64) error
	Unseat(playerID int) (int64, error)
	Seats() []int // player id per seat, EmptySeat when free
	BlindOrder() []int

	ActivePlayerCount() int
	HandInProgress() bool
	StartHand(level poker.BlindLevel) (poker.HandOutcome, error)
	ApplyAction(playerID int, a poker.Action) (poker.HandOutcome, error)
	LegalActions(playerID int) poker.ActionMask
	ActingPlayer() (int, bool)

	// Observation queries.
	Stack(playerID int) int64
	Bet(playerID int) int64
	ToCall(playerID int) int64
	InHand(playerID int) bool
	Pot() int64
}

// TableFactory builds the table for id. The controller uses NewEngineTable
// unless Options provides one.
type TableFactory func(id, capacity int, seed int64, log slog.Logger) Table

// engineTable adapts *poker.Engine to Table.
type engineTable struct {
	id     int
	engine *poker.Engine
}

// NewEngineTable is the default TableFactory.
func NewEngineTable(id, capacity int, seed int64, log slog.Logger) Table {
	return &engineTable{
		id:     id,
		engine: poker.NewEngine(poker.EngineConfig{Seats: capacity, Seed: seed, Log: log}),
	}
}

func (t *engineTable) ID() int       { return t.id }
func (t *engineTable) Capacity() int { return t.engine.Seats() }

func (t *engineTable) SeatAt(playerID, seat int, stack int64) error {
	return t.engine.Sit(seat, playerID, stack)
}

func (t *engineTable) Unseat(playerID int) (int64, error) {
	seat, ok := t.engine.SeatOf(playerID)
	if !ok {
		return 0, fmt.Errorf("player %d not at table %d", playerID, t.id)
	}
	return t.engine.Stand(seat)
}

func (t *engineTable) Seats() []int {
	out := make([]int, t.engine.Seats())
	for i := range out {
		pid, ok := t.engine.PlayerAt(i)
		if !ok {
			pid = EmptySeat
		}
		out[i] = pid
	}
	return out
}

func (t *engineTable) BlindOrder() []int      { return t.engine.BlindOrder() }
func (t *engineTable) ActivePlayerCount() int { return t.engine.ActivePlayerCount() }
func (t *engineTable) HandInProgress() bool   { return t.engine.HandInProgress() }
func (t *engineTable) Pot() int64             { return t.engine.Pot() }

func (t *engineTable) StartHand(level poker.BlindLevel) (poker.HandOutcome, error) {
	return t.engine.StartHand(level)
}

func (t *engineTable) ApplyAction(playerID int, a poker.Action) (poker.HandOutcome, error) {
	seat, ok := t.engine.SeatOf(playerID)
	if !ok {
		return poker.HandOutcome{}, fmt.Errorf("player %d not at table %d", playerID, t.id)
	}
	return t.engine.ApplyAction(seat, a)
}

func (t *engineTable) LegalActions(playerID int) poker.ActionMask {
	seat, ok := t.engine.SeatOf(playerID)
	if !ok {
		return poker.ActionMask{}
	}
	return t.engine.LegalActions(seat)
}

func (t *engineTable) ActingPlayer() (int, bool) {
	seat := t.engine.ToAct()
	if seat < 0 {
		return 0, false
	}
	return t.engine.PlayerAt(seat)
}

func (t *engineTable) seat(playerID int) int {
	seat, _ := t.engine.SeatOf(playerID)
	return seat
}

func (t *engineTable) Stack(playerID int) int64 {
	if s := t.seat(playerID); s >= 0 {
		return t.engine.Stack(s)
	}
	return 0
}

func (t *engineTable) Bet(playerID int) int64 {
	if s := t.seat(playerID); s >= 0 {
		return t.engine.Bet(s)
	}
	return 0
}

func (t *engineTable) ToCall(playerID int) int64 {
	if s := t.seat(playerID); s >= 0 {
		return t.engine.ToCall(s)
	}
	return 0
}

func (t *engineTable) InHand(playerID int) bool {
	if s := t.seat(playerID); s >= 0 {
		return t.engine.InHand(s)
	}
	return false
}

// snapshot captures a table for the balancer.
func snapshot(t Table) TableView {
	return TableView{ID: t.ID(), Seats: t.Seats(), BlindOrder: t.BlindOrder()}
}
