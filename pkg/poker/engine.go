package poker

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/decred/slog"
)

var (
	ErrHandInProgress = errors.New("hand in progress")
	ErrNoHand         = errors.New("no hand in progress")
	ErrNotYourTurn    = errors.New("not this seat's turn")
	ErrIllegalAction  = errors.New("illegal action")
	ErrSeatTaken      = errors.New("seat taken")
	ErrSeatEmpty      = errors.New("seat empty")
	ErrTableFull      = errors.New("table full")
	ErrNotEnoughSeats = errors.New("fewer than two players with chips")
)

// Seat is one chair at the table.
type Seat struct {
	PlayerID   int
	Occupied   bool
	Stack      int64
	StartStack int64 // stack before the current hand's forced bets
	Hole       []Card
	InHand     bool // dealt into the current hand
	Folded     bool
	AllIn      bool
	Acted      bool
}

// Bust is a player who ended a hand with no chips.
type Bust struct {
	PlayerID   int
	Seat       int
	StartStack int64
}

// HandOutcome reports what an engine call did to the current hand.
// Deltas, Eliminated and Winners are only set once Complete is true.
type HandOutcome struct {
	Hand       int
	Complete   bool
	Deltas     map[int]int64 // player id -> end stack minus start stack
	Eliminated []Bust
	Winners    []int
	Pot        int64
	Board      []Card
}

// EngineConfig configures a single-table engine.
type EngineConfig struct {
	Seats int
	Seed  int64
	Rand  *rand.Rand // overrides Seed when set
	Log   slog.Logger
}

// Engine plays no-limit hold'em hands at one table. It is not safe for
// concurrent use.
type Engine struct {
	log   slog.Logger
	seats []Seat
	rng   *rand.Rand
	deck  *Deck

	nextDeck []Card
	board    []Card
	pots     *PotManager

	level      BlindLevel
	phase      Phase
	button     int
	sbSeat     int
	bbSeat     int
	currentBet int64
	minRaise   int64
	toAct      int
	handNumber int
}

// NewEngine creates an empty table.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Seats < 2 {
		cfg.Seats = 2
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}
	log := cfg.Log
	if log == nil {
		log = slog.Disabled
	}
	return &Engine{
		log:    log,
		seats:  make([]Seat, cfg.Seats),
		rng:    rng,
		deck:   NewDeck(rng),
		pots:   NewPotManager(cfg.Seats),
		button: -1,
		sbSeat: -1,
		bbSeat: -1,
		toAct:  -1,
	}
}

// Seats returns the seat capacity.
func (e *Engine) Seats() int { return len(e.seats) }

// Seat returns a copy of the seat at index i.
func (e *Engine) Seat(i int) Seat {
	s := e.seats[i]
	s.Hole = append([]Card(nil), s.Hole...)
	return s
}

// Sit places a player on a specific free seat.
func (e *Engine) Sit(seat, playerID int, stack int64) error {
	if e.HandInProgress() {
		return ErrHandInProgress
	}
	if seat < 0 || seat >= len(e.seats) {
		return fmt.Errorf("seat %d out of range", seat)
	}
	if e.seats[seat].Occupied {
		return fmt.Errorf("seat %d: %w", seat, ErrSeatTaken)
	}
	e.seats[seat] = Seat{PlayerID: playerID, Occupied: true, Stack: stack, StartStack: stack}
	return nil
}

// SitAnywhere places a player on the lowest free seat and returns it.
func (e *Engine) SitAnywhere(playerID int, stack int64) (int, error) {
	for i := range e.seats {
		if !e.seats[i].Occupied {
			return i, e.Sit(i, playerID, stack)
		}
	}
	return -1, ErrTableFull
}

// Stand removes the player at seat and returns their remaining stack.
func (e *Engine) Stand(seat int) (int64, error) {
	if e.HandInProgress() {
		return 0, ErrHandInProgress
	}
	if seat < 0 || seat >= len(e.seats) || !e.seats[seat].Occupied {
		return 0, fmt.Errorf("seat %d: %w", seat, ErrSeatEmpty)
	}
	stack := e.seats[seat].Stack
	e.seats[seat] = Seat{}
	return stack, nil
}

// SeatOf returns the seat holding playerID.
func (e *Engine) SeatOf(playerID int) (int, bool) {
	for i, s := range e.seats {
		if s.Occupied && s.PlayerID == playerID {
			return i, true
		}
	}
	return -1, false
}

// PlayerAt returns the player id sitting at seat.
func (e *Engine) PlayerAt(seat int) (int, bool) {
	if seat < 0 || seat >= len(e.seats) || !e.seats[seat].Occupied {
		return 0, false
	}
	return e.seats[seat].PlayerID, true
}

// Occupied returns the number of occupied seats.
func (e *Engine) Occupied() int {
	n := 0
	for _, s := range e.seats {
		if s.Occupied {
			n++
		}
	}
	return n
}

// ActivePlayerCount counts seated players who still own chips, including
// chips committed to the hand in progress.
func (e *Engine) ActivePlayerCount() int {
	n := 0
	for i, s := range e.seats {
		if s.Occupied && (s.Stack > 0 || (e.HandInProgress() && e.pots.GetTotalBet(i) > 0)) {
			n++
		}
	}
	return n
}

func (e *Engine) HandInProgress() bool { return e.phase != PhaseWaiting }
func (e *Engine) Phase() Phase        { return e.phase }
func (e *Engine) Button() int         { return e.button }
func (e *Engine) HandNumber() int     { return e.handNumber }
func (e *Engine) Level() BlindLevel   { return e.level }

// ToAct returns the seat whose decision is pending, or -1.
func (e *Engine) ToAct() int {
	if !e.HandInProgress() {
		return -1
	}
	return e.toAct
}

// Board returns the community cards dealt so far.
func (e *Engine) Board() []Card { return append([]Card(nil), e.board...) }

// Pot returns every chip committed to the current hand.
func (e *Engine) Pot() int64 {
	if !e.HandInProgress() {
		return 0
	}
	return e.pots.GetTotalPot()
}

// Stack returns the chips a seat has behind.
func (e *Engine) Stack(seat int) int64 { return e.seats[seat].Stack }

// Bet returns the seat's contribution to the current betting round.
func (e *Engine) Bet(seat int) int64 {
	if !e.HandInProgress() {
		return 0
	}
	return e.pots.GetCurrentBet(seat)
}

// ToCall returns what the seat owes to stay in, capped at its stack.
func (e *Engine) ToCall(seat int) int64 {
	if !e.HandInProgress() || !e.live(seat) {
		return 0
	}
	owe := e.currentBet - e.pots.GetCurrentBet(seat)
	if owe > e.seats[seat].Stack {
		owe = e.seats[seat].Stack
	}
	if owe < 0 {
		owe = 0
	}
	return owe
}

// InHand reports whether the seat holds live cards in the current hand.
func (e *Engine) InHand(seat int) bool {
	return e.HandInProgress() && e.live(seat)
}

// SetNextDeck stacks cards on top of the deck for the next hand. Hole cards
// are dealt one at a time starting left of the button, then five board
// cards. No burns.
func (e *Engine) SetNextDeck(cards []Card) {
	e.nextDeck = append([]Card(nil), cards...)
}

func (e *Engine) live(i int) bool {
	s := e.seats[i]
	return s.Occupied && s.InHand && !s.Folded
}

func (e *Engine) canAct(i int) bool {
	return e.live(i) && !e.seats[i].AllIn
}

func (e *Engine) needsAction(i int) bool {
	return e.canAct(i) && (!e.seats[i].Acted || e.pots.GetCurrentBet(i) < e.currentBet)
}

func (e *Engine) liveCount() int {
	n := 0
	for i := range e.seats {
		if e.live(i) {
			n++
		}
	}
	return n
}

func (e *Engine) canActCount() int {
	n := 0
	for i := range e.seats {
		if e.canAct(i) {
			n++
		}
	}
	return n
}

// seatsAfter returns seats satisfying ok in clockwise order starting after
// from. from itself comes last when it qualifies.
func (e *Engine) seatsAfter(from int, ok func(int) bool) []int {
	n := len(e.seats)
	out := make([]int, 0, n)
	for k := 1; k <= n; k++ {
		i := ((from+k)%n + n) % n
		if ok(i) {
			out = append(out, i)
		}
	}
	return out
}

func (e *Engine) funded(i int) bool {
	return e.seats[i].Occupied && e.seats[i].Stack > 0
}

// BlindOrder lists the seated players with chips by how soon they will post
// the big blind.
func (e *Engine) BlindOrder() []int {
	var seq []int
	if e.bbSeat < 0 {
		candidates := e.seatsAfter(e.button, e.funded)
		if len(candidates) == 0 {
			return nil
		}
		btn := candidates[0]
		seq = e.seatsAfter(btn, e.funded)
		if len(seq) > 2 {
			seq = append(seq[1:], seq[0])
		}
	} else {
		seq = e.seatsAfter(e.bbSeat, e.funded)
	}
	out := make([]int, 0, len(seq))
	for _, i := range seq {
		out = append(out, e.seats[i].PlayerID)
	}
	return out
}

// blindSeats picks the button and blinds for the next hand. After the first
// hand the big blind moves to the next funded seat, and the small blind and
// button take the funded seats before it.
func (e *Engine) blindSeats() (button, sb, bb int) {
	if e.bbSeat < 0 {
		button = e.seatsAfter(e.button, e.funded)[0]
		order := e.seatsAfter(button, e.funded)
		if len(order) == 2 {
			return button, button, order[0]
		}
		return button, order[0], order[1]
	}
	bb = e.seatsAfter(e.bbSeat, e.funded)[0]
	seq := e.seatsAfter(bb, e.funded)
	sb = seq[len(seq)-2]
	if len(seq) == 2 {
		return sb, sb, bb
	}
	return seq[len(seq)-3], sb, bb
}

func (e *Engine) post(seat int, amount int64) {
	s := &e.seats[seat]
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	e.pots.AddBet(seat, amount)
	if s.Stack == 0 {
		s.AllIn = true
	}
}

// StartHand moves the blinds, posts forced bets and deals. The hand may
// complete immediately when nobody is able to act.
func (e *Engine) StartHand(level BlindLevel) (HandOutcome, error) {
	if e.HandInProgress() {
		return HandOutcome{}, ErrHandInProgress
	}
	dealt := e.seatsAfter(e.button, e.funded)
	if len(dealt) < 2 {
		return HandOutcome{}, ErrNotEnoughSeats
	}

	e.handNumber++
	e.level = level
	e.button, e.sbSeat, e.bbSeat = e.blindSeats()
	e.board = e.board[:0]
	e.pots = NewPotManager(len(e.seats))
	for i := range e.seats {
		s := &e.seats[i]
		s.StartStack = s.Stack
		s.Hole = nil
		s.Folded, s.AllIn, s.Acted = false, false, false
		s.InHand = e.funded(i)
	}

	order := e.seatsAfter(e.button, func(i int) bool { return e.seats[i].InHand })

	e.deck.Reset()
	if len(e.nextDeck) > 0 {
		e.deck.Stack(e.nextDeck)
		e.nextDeck = nil
	}
	for round := 0; round < 2; round++ {
		for _, i := range order {
			c, _ := e.deck.Draw()
			e.seats[i].Hole = append(e.seats[i].Hole, c)
		}
	}

	if level.Ante > 0 {
		bb := &e.seats[e.bbSeat]
		ante := level.Ante
		if ante > bb.Stack {
			ante = bb.Stack
		}
		bb.Stack -= ante
		e.pots.AddDead(ante)
		if bb.Stack == 0 {
			bb.AllIn = true
		}
	}
	e.post(e.sbSeat, level.SmallBlind)
	e.post(e.bbSeat, level.BigBlind)

	e.currentBet = 0
	for i := range e.seats {
		if b := e.pots.GetCurrentBet(i); b > e.currentBet {
			e.currentBet = b
		}
	}
	e.minRaise = level.BigBlind
	if e.minRaise < 1 {
		e.minRaise = 1
	}
	e.phase = PhasePreFlop

	e.log.Debugf("Hand %d: button=%d sb=%d bb=%d level=%s players=%d",
		e.handNumber, e.button, e.sbSeat, e.bbSeat, level, len(order))

	return e.progress(e.bbSeat)
}

// LegalActions returns the mask for seat. Only the seat to act has legal
// actions. A seat that already acted may not raise again unless a full
// raise reopened the betting.
func (e *Engine) LegalActions(seat int) ActionMask {
	var m ActionMask
	if !e.HandInProgress() || seat != e.toAct || !e.canAct(seat) {
		return m
	}
	toCall := e.currentBet - e.pots.GetCurrentBet(seat)
	m[ActionFold] = toCall > 0
	m[ActionCall] = true
	if e.seats[seat].Stack > toCall && !e.seats[seat].Acted {
		for i := range e.seats {
			if i != seat && e.canAct(i) {
				m[ActionRaise] = true
				break
			}
		}
	}
	return m
}

// ApplyAction applies a decision for the seat to act.
func (e *Engine) ApplyAction(seat int, a Action) (HandOutcome, error) {
	if !e.HandInProgress() {
		return HandOutcome{}, ErrNoHand
	}
	if seat != e.toAct {
		return HandOutcome{}, fmt.Errorf("seat %d (waiting on %d): %w", seat, e.toAct, ErrNotYourTurn)
	}
	if !e.LegalActions(seat).Allows(a) {
		return HandOutcome{}, fmt.Errorf("%s: %w", a, ErrIllegalAction)
	}

	s := &e.seats[seat]
	bet := e.pots.GetCurrentBet(seat)
	switch a {
	case ActionFold:
		s.Folded = true
	case ActionCall:
		e.post(seat, e.currentBet-bet)
	case ActionRaise:
		raiseTo := e.currentBet + e.minRaise
		if limit := bet + s.Stack; raiseTo > limit {
			raiseTo = limit
		}
		inc := raiseTo - e.currentBet
		full := inc >= e.minRaise
		if full {
			e.minRaise = inc
		}
		e.post(seat, raiseTo-bet)
		e.currentBet = raiseTo
		// A short all-in raise only asks the others to call the difference.
		if full {
			for i := range e.seats {
				if i != seat {
					e.seats[i].Acted = false
				}
			}
		}
	}
	s.Acted = true

	e.log.Tracef("Hand %d: seat %d %s (bet %d, pot %d)", e.handNumber, seat, a,
		e.pots.GetCurrentBet(seat), e.pots.GetTotalPot())

	return e.progress(seat)
}

func (e *Engine) roundClosed() bool {
	n := e.canActCount()
	if n == 0 {
		return true
	}
	if n == 1 {
		for i := range e.seats {
			if e.canAct(i) {
				return e.pots.GetCurrentBet(i) >= e.currentBet
			}
		}
	}
	for i := range e.seats {
		if e.needsAction(i) {
			return false
		}
	}
	return true
}

// progress advances streets until a decision is needed or the hand ends.
func (e *Engine) progress(from int) (HandOutcome, error) {
	for {
		if e.liveCount() == 1 {
			return e.finish(false), nil
		}
		if !e.roundClosed() {
			next := e.seatsAfter(from, e.needsAction)
			e.toAct = next[0]
			return HandOutcome{Hand: e.handNumber, Pot: e.pots.GetTotalPot()}, nil
		}
		if e.phase == PhaseRiver {
			return e.finish(true), nil
		}
		e.nextStreet()
		from = e.button
	}
}

func (e *Engine) nextStreet() {
	e.pots.ResetCurrentBets()
	e.currentBet = 0
	e.minRaise = e.level.BigBlind
	if e.minRaise < 1 {
		e.minRaise = 1
	}
	for i := range e.seats {
		e.seats[i].Acted = false
	}
	deal := 1
	if e.phase == PhasePreFlop {
		deal = 3
	}
	for k := 0; k < deal; k++ {
		c, _ := e.deck.Draw()
		e.board = append(e.board, c)
	}
	e.phase++
}

// finish pays out the pot and closes the hand.
func (e *Engine) finish(showdown bool) HandOutcome {
	total := e.pots.GetTotalPot()
	winners := map[int]bool{}

	if !showdown {
		for i := range e.seats {
			if e.live(i) {
				e.seats[i].Stack += total
				winners[i] = true
			}
		}
	} else {
		e.phase = PhaseShowdown
		folded := make([]bool, len(e.seats))
		values := make(map[int]HandValue)
		for i := range e.seats {
			if e.live(i) {
				values[i] = EvaluateHand(e.seats[i].Hole, e.board)
			} else {
				folded[i] = true
			}
		}
		e.pots.BuildPotsFromTotals(folded)
		for _, pot := range e.pots.Pots {
			eligible := pot.EligibleSeats()
			if len(eligible) == 0 {
				for i := range values {
					eligible = append(eligible, i)
				}
			}
			for _, i := range e.awardPot(pot.Amount, eligible, values) {
				winners[i] = true
			}
		}
	}

	out := HandOutcome{
		Hand:     e.handNumber,
		Complete: true,
		Deltas:   make(map[int]int64),
		Pot:      total,
		Board:    e.Board(),
	}
	for i := range e.seats {
		s := &e.seats[i]
		if !s.InHand {
			continue
		}
		out.Deltas[s.PlayerID] = s.Stack - s.StartStack
		if s.Stack == 0 {
			out.Eliminated = append(out.Eliminated, Bust{PlayerID: s.PlayerID, Seat: i, StartStack: s.StartStack})
		}
	}
	for _, i := range e.seatsAfter(e.button, func(i int) bool { return winners[i] }) {
		out.Winners = append(out.Winners, e.seats[i].PlayerID)
	}

	e.log.Debugf("Hand %d complete: pot=%d winners=%v busted=%d", e.handNumber, total, out.Winners, len(out.Eliminated))

	e.phase = PhaseWaiting
	e.toAct = -1
	e.pots = NewPotManager(len(e.seats))
	for i := range e.seats {
		e.seats[i].InHand = false
	}
	return out
}

// awardPot splits amount among the best hands in eligible. Odd chips go one
// at a time to winners starting left of the button.
func (e *Engine) awardPot(amount int64, eligible []int, values map[int]HandValue) []int {
	if amount == 0 || len(eligible) == 0 {
		return nil
	}
	var best []int
	for _, i := range eligible {
		if len(best) == 0 {
			best = []int{i}
			continue
		}
		switch CompareHands(values[i], values[best[0]]) {
		case 1:
			best = []int{i}
		case 0:
			best = append(best, i)
		}
	}
	isBest := map[int]bool{}
	for _, i := range best {
		isBest[i] = true
	}
	ordered := e.seatsAfter(e.button, func(i int) bool { return isBest[i] })

	share := amount / int64(len(ordered))
	rem := amount % int64(len(ordered))
	for k, i := range ordered {
		e.seats[i].Stack += share
		if int64(k) < rem {
			e.seats[i].Stack++
		}
	}
	return ordered
}
