package tournament

import "github.com/vctt94/pokertourney/pkg/poker"

// Stats is a read-only snapshot of tournament progress.
type Stats struct {
	RemainingPlayers  int              `json:"remaining_players"`
	EliminatedPlayers int              `json:"eliminated_players"`
	ActiveTables      int              `json:"active_tables"`
	TableCounts       map[int]int      `json:"table_counts"`
	BlindLevel        int              `json:"blind_level"`
	Blinds            poker.BlindLevel `json:"blinds"`
	HandsPlayed       int              `json:"hands_played"`
	AverageStack      float64          `json:"average_stack"`
	ChipLeader        int              `json:"chip_leader"`
	ChipLeaderStack   int64            `json:"chip_leader_stack"`
	TotalChips        int64            `json:"total_chips"`
	State             string           `json:"state"`
}

// Standing is one row of the results table. Players still alive are
// ranked by chips until the tournament ends.
type Standing struct {
	Place    int   `json:"place"`
	PlayerID int   `json:"player_id"`
	Hand     int   `json:"hand"` // hand of elimination, 0 for players still in
	Stack    int64 `json:"stack"`
}
