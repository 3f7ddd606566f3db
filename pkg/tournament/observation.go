package tournament

import "github.com/vctt94/pokertourney/pkg/poker"

// ObservationSize is the length of Observation.Vector.
const ObservationSize = 8

// Observation is what the awaited seat sees.
type Observation struct {
	PlayerID       int   `json:"player_id"`
	Stack          int64 `json:"stack"`
	ToCall         int64 `json:"to_call"`
	Pot            int64 `json:"pot"`
	Bet            int64 `json:"bet"`
	InHand         bool  `json:"in_hand"`
	TableID        int   `json:"table_id"`
	PlayersAtTable int   `json:"players_at_table"`
	BlindLevel     int   `json:"blind_level"`
}

// Vector flattens the observation in a fixed field order. PlayerID is not
// part of it.
func (o Observation) Vector() [ObservationSize]float32 {
	inHand := float32(0)
	if o.InHand {
		inHand = 1
	}
	return [ObservationSize]float32{
		float32(o.Stack),
		float32(o.ToCall),
		float32(o.Pot),
		float32(o.Bet),
		inHand,
		float32(o.TableID),
		float32(o.PlayersAtTable),
		float32(o.BlindLevel),
	}
}

// Info carries everything that happened during a Reset or Step beyond the
// observation itself.
type Info struct {
	PlayerID     int                 `json:"player_id"` // awaited player, -1 when none
	TableID      int                 `json:"table_id"`
	ActionMask   poker.ActionMask    `json:"action_mask"`
	HandsPlayed  int                 `json:"hands_played"`
	BlindLevel   int                 `json:"blind_level"`
	Blinds       poker.BlindLevel    `json:"blinds"`
	HandComplete bool                `json:"hand_complete"`
	Eliminations []EliminationRecord `json:"eliminations,omitempty"`
	Moves        []Move              `json:"moves,omitempty"`
	Broken       []int               `json:"broken,omitempty"`
	Winner       int                 `json:"winner"` // -1 until the tournament ends
	State        string              `json:"state"`
}

// StepResult is the outcome of one Step.
type StepResult struct {
	Observation Observation `json:"observation"`
	Reward      float64     `json:"reward"`
	Terminated  bool        `json:"terminated"`
	Truncated   bool        `json:"truncated"`
	Info        Info        `json:"info"`
}

// RewardEvent describes one step from the acting player's point of view.
type RewardEvent struct {
	PlayerID     int
	StackBefore  int64
	StackAfter   int64
	HandComplete bool
	InHand       bool
	Alive        bool
	Eliminated   bool
	Won          bool
	Place        int // set when Eliminated or Won
	BlindLevel   int
	LevelChanged bool
	TotalPlayers int
}

// RewardPolicy turns a step into a scalar reward.
type RewardPolicy interface {
	Reward(ev RewardEvent) float64
}

// ChipDelta rewards the change in the acting player's stack.
type ChipDelta struct{}

func (ChipDelta) Reward(ev RewardEvent) float64 {
	return float64(ev.StackAfter - ev.StackBefore)
}
