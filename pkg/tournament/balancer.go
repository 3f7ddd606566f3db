package tournament

import (
	"fmt"
	"sort"

	"github.com/decred/slog"
)

// EmptySeat marks a free seat in TableView.Seats.
const EmptySeat = -1

// TableView is the balancer's read-only picture of one table between hands.
type TableView struct {
	ID         int
	Seats      []int // player id per seat index, EmptySeat when free
	BlindOrder []int // seated players, next big blind first
}

// Count returns the number of seated players.
func (v TableView) Count() int {
	n := 0
	for _, pid := range v.Seats {
		if pid != EmptySeat {
			n++
		}
	}
	return n
}

// MoveReason says which balancing pass produced a move.
type MoveReason string

const (
	ReasonFinalTable MoveReason = "final-table"
	ReasonBreak      MoveReason = "break"
	ReasonBalance    MoveReason = "balance"
)

// Move relocates one player. Seat is the seat index at the destination.
type Move struct {
	PlayerID int        `json:"player_id"`
	From     int        `json:"from"`
	To       int        `json:"to"`
	Seat     int        `json:"seat"`
	Reason   MoveReason `json:"reason"`
}

// MigrationPlan lists moves to apply in order and the tables they empty.
type MigrationPlan struct {
	Moves  []Move `json:"moves,omitempty"`
	Broken []int  `json:"broken,omitempty"`
}

// Empty reports whether the plan does nothing.
func (p MigrationPlan) Empty() bool { return len(p.Moves) == 0 && len(p.Broken) == 0 }

// Balancer decides table moves. It holds no tournament state.
type Balancer struct {
	maxPerTable int
	floor       int
	strict      bool
	log         slog.Logger
}

// NewBalancer creates a balancer for cfg. Tables are topped up once they
// drop below the larger of the balancing threshold and the table minimum.
func NewBalancer(cfg Config, log slog.Logger) *Balancer {
	floor := cfg.TableBalancingThreshold
	if cfg.MinPlayersPerTable > floor {
		floor = cfg.MinPlayersPerTable
	}
	if floor > cfg.MaxPlayersPerTable {
		floor = cfg.MaxPlayersPerTable
	}
	if log == nil {
		log = slog.Disabled
	}
	return &Balancer{
		maxPerTable: cfg.MaxPlayersPerTable,
		floor:       floor,
		strict:      cfg.StrictBalance,
		log:         log,
	}
}

type planTable struct {
	id     int
	seats  []int
	order  []int
	broken bool
}

func (t *planTable) count() int { return len(t.order) }
func (t *planTable) room() int  { return len(t.seats) - len(t.order) }

type planner struct {
	tables []*planTable
	plan   MigrationPlan
}

// Plan returns the moves needed to rebalance tables. It never mutates its
// input.
func (b *Balancer) Plan(views []TableView) (MigrationPlan, error) {
	p := &planner{}
	total := 0
	for _, v := range views {
		n := v.Count()
		if n == 0 {
			return MigrationPlan{}, fmt.Errorf("table %d: %w", v.ID, ErrEmptyTable)
		}
		t := &planTable{id: v.ID, seats: append([]int(nil), v.Seats...)}
		// The blind order should list every seated player; fall back to
		// seat order for anyone missing.
		listed := make(map[int]bool, n)
		for _, pid := range v.BlindOrder {
			if !listed[pid] {
				t.order = append(t.order, pid)
				listed[pid] = true
			}
		}
		for _, pid := range v.Seats {
			if pid != EmptySeat && !listed[pid] {
				t.order = append(t.order, pid)
			}
		}
		p.tables = append(p.tables, t)
		total += n
	}
	sort.Slice(p.tables, func(i, j int) bool { return p.tables[i].id < p.tables[j].id })

	if len(p.tables) <= 1 {
		return MigrationPlan{}, nil
	}

	if total <= b.maxPerTable {
		dest := p.largest(nil)
		for _, t := range p.live() {
			if t != dest {
				if err := p.empty(t, func(*planTable) *planTable { return dest }, ReasonFinalTable); err != nil {
					return MigrationPlan{}, err
				}
			}
		}
		b.logPlan(p.plan)
		return p.plan, nil
	}

	target := (total + b.maxPerTable - 1) / b.maxPerTable
	for len(p.live()) > target {
		if err := p.breakTable(p.smallest(nil)); err != nil {
			return MigrationPlan{}, err
		}
	}

	if err := b.fillDepleted(p); err != nil {
		return MigrationPlan{}, err
	}
	if b.strict {
		if err := p.level(); err != nil {
			return MigrationPlan{}, err
		}
	}

	b.logPlan(p.plan)
	return p.plan, nil
}

// fillDepleted tops up the most depleted table from the largest tables,
// or breaks it when the others cannot spare enough players. When neither
// is possible the tables are levelled to within one player.
func (b *Balancer) fillDepleted(p *planner) error {
	for guard := 0; guard < 4*len(p.tables)*b.maxPerTable; guard++ {
		live := p.live()
		if len(live) <= 1 {
			return nil
		}
		var dep *planTable
		for _, t := range live {
			if t.count() < b.floor && (dep == nil || t.count() < dep.count()) {
				dep = t
			}
		}
		if dep == nil {
			return nil
		}

		need := b.floor - dep.count()
		surplus, room := 0, 0
		for _, t := range live {
			if t == dep {
				continue
			}
			if t.count() > b.floor {
				surplus += t.count() - b.floor
			}
			room += t.room()
		}

		switch {
		case surplus >= need:
			for k := 0; k < need; k++ {
				donor := p.largest(dep)
				if err := p.move(donor, dep, ReasonBalance); err != nil {
					return err
				}
			}
		case room >= dep.count():
			if err := p.breakTable(dep); err != nil {
				return err
			}
		default:
			b.log.Debugf("Table %d stays below %d players: no donors and no room to break it, levelling",
				dep.id, b.floor)
			return p.level()
		}
	}
	return nil
}

func (b *Balancer) logPlan(plan MigrationPlan) {
	for _, m := range plan.Moves {
		b.log.Debugf("Move player %d from table %d to table %d seat %d (%s)",
			m.PlayerID, m.From, m.To, m.Seat, m.Reason)
	}
	for _, id := range plan.Broken {
		b.log.Infof("Table %d broken", id)
	}
}

func (p *planner) live() []*planTable {
	out := make([]*planTable, 0, len(p.tables))
	for _, t := range p.tables {
		if !t.broken {
			out = append(out, t)
		}
	}
	return out
}

// largest returns the most populous live table other than skip, lowest id
// on ties.
func (p *planner) largest(skip *planTable) *planTable {
	var best *planTable
	for _, t := range p.live() {
		if t != skip && (best == nil || t.count() > best.count()) {
			best = t
		}
	}
	return best
}

// smallest returns the least populous live table other than skip with a
// free seat when skip is set, lowest id on ties.
func (p *planner) smallest(skip *planTable) *planTable {
	var best *planTable
	for _, t := range p.live() {
		if t == skip || (skip != nil && t.room() == 0) {
			continue
		}
		if best == nil || t.count() < best.count() {
			best = t
		}
	}
	return best
}

// move takes the player due to post the big blind next at from and seats
// them at the lowest free seat of to.
func (p *planner) move(from, to *planTable, reason MoveReason) error {
	if from == nil || to == nil || from.count() == 0 {
		return fmt.Errorf("no player to move")
	}
	seat := -1
	for i, pid := range to.seats {
		if pid == EmptySeat {
			seat = i
			break
		}
	}
	if seat < 0 {
		return fmt.Errorf("table %d is full", to.id)
	}

	pid := from.order[0]
	from.order = from.order[1:]
	for i, occ := range from.seats {
		if occ == pid {
			from.seats[i] = EmptySeat
		}
	}
	to.seats[seat] = pid
	to.order = append(to.order, pid)

	p.plan.Moves = append(p.plan.Moves, Move{
		PlayerID: pid, From: from.id, To: to.id, Seat: seat, Reason: reason,
	})
	return nil
}

func (p *planner) empty(t *planTable, dest func(*planTable) *planTable, reason MoveReason) error {
	for t.count() > 0 {
		if err := p.move(t, dest(t), reason); err != nil {
			return fmt.Errorf("breaking table %d: %w", t.id, err)
		}
	}
	t.broken = true
	p.plan.Broken = append(p.plan.Broken, t.id)
	return nil
}

// breakTable spreads a table's players one at a time over the smallest
// remaining tables.
func (p *planner) breakTable(t *planTable) error {
	return p.empty(t, p.smallest, ReasonBreak)
}

// level moves players from the largest to the smallest table until sizes
// differ by at most one.
func (p *planner) level() error {
	for {
		big := p.largest(nil)
		small := p.smallest(nil)
		if big == nil || small == nil || big.count()-small.count() <= 1 {
			return nil
		}
		if err := p.move(big, small, ReasonBalance); err != nil {
			return err
		}
	}
}
