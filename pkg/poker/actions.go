package poker

import (
	"fmt"
	"strings"
)

// Action is one of the three discrete decisions a seat can take.
type Action int

const (
	ActionFold Action = iota
	ActionCall        // check when nothing is owed
	ActionRaise       // minimum legal raise, or all-in when short
)

// NumActions is the size of the action space.
const NumActions = 3

func (a Action) String() string {
	switch a {
	case ActionFold:
		return "fold"
	case ActionCall:
		return "call"
	case ActionRaise:
		return "raise"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Valid reports whether a is inside the action space.
func (a Action) Valid() bool {
	return a >= ActionFold && a < NumActions
}

// ParseAction accepts the action names plus "check" as an alias for call.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fold", "f":
		return ActionFold, nil
	case "call", "check", "c":
		return ActionCall, nil
	case "raise", "bet", "r":
		return ActionRaise, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// ActionMask flags which actions are currently legal, indexed by Action.
type ActionMask [NumActions]bool

// Allows reports whether a is legal under the mask.
func (m ActionMask) Allows(a Action) bool {
	return a.Valid() && m[a]
}

// Any reports whether at least one action is legal.
func (m ActionMask) Any() bool {
	return m[ActionFold] || m[ActionCall] || m[ActionRaise]
}

// Legal returns the legal actions in index order.
func (m ActionMask) Legal() []Action {
	var out []Action
	for i, ok := range m {
		if ok {
			out = append(out, Action(i))
		}
	}
	return out
}

func (m ActionMask) String() string {
	parts := make([]string, 0, NumActions)
	for _, a := range m.Legal() {
		parts = append(parts, a.String())
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// BlindLevel holds the forced bets for a hand. Ante is a big-blind ante
// paid by the big blind before posting and goes straight into the pot.
type BlindLevel struct {
	SmallBlind int64 `json:"small_blind"`
	BigBlind   int64 `json:"big_blind"`
	Ante       int64 `json:"ante,omitempty"`
}

func (l BlindLevel) String() string {
	if l.Ante > 0 {
		return fmt.Sprintf("%d/%d (ante %d)", l.SmallBlind, l.BigBlind, l.Ante)
	}
	return fmt.Sprintf("%d/%d", l.SmallBlind, l.BigBlind)
}

// Phase is the street a hand is on.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreFlop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
)

func (p Phase) String() string {
	switch p {
	case PhasePreFlop:
		return "PREFLOP"
	case PhaseFlop:
		return "FLOP"
	case PhaseTurn:
		return "TURN"
	case PhaseRiver:
		return "RIVER"
	case PhaseShowdown:
		return "SHOWDOWN"
	}
	return "WAITING"
}
