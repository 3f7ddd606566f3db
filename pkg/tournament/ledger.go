package tournament

import (
	"fmt"
	"sort"

	"github.com/vctt94/pokertourney/pkg/poker"
)

// EliminationRecord is one bust. Place is the finishing position: the first
// player out finishes last (Place == total players) and the winner, place
// 1, is never recorded.
type EliminationRecord struct {
	PlayerID   int   `json:"player_id"`
	Place      int   `json:"place"`
	Hand       int   `json:"hand"`
	TableID    int   `json:"table_id"`
	StartStack int64 `json:"start_stack"`
}

// Ledger is the append-only elimination order.
type Ledger struct {
	total   int
	records []EliminationRecord
	byID    map[int]int
}

// NewLedger creates an empty ledger for a field of total players.
func NewLedger(total int) *Ledger {
	return &Ledger{total: total, byID: make(map[int]int)}
}

// RecordHand appends every bust of one hand. Players busting in the same
// hand are ordered by the stack they started the hand with, smallest first,
// then by descending player id; the earlier entry takes the worse place.
func (l *Ledger) RecordHand(hand, tableID int, busts []poker.Bust) ([]EliminationRecord, error) {
	if len(busts) == 0 {
		return nil, nil
	}
	ordered := append([]poker.Bust(nil), busts...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].StartStack != ordered[j].StartStack {
			return ordered[i].StartStack < ordered[j].StartStack
		}
		return ordered[i].PlayerID > ordered[j].PlayerID
	})

	seen := make(map[int]bool, len(ordered))
	for _, b := range ordered {
		if _, ok := l.byID[b.PlayerID]; ok || seen[b.PlayerID] {
			return nil, fmt.Errorf("player %d eliminated twice", b.PlayerID)
		}
		seen[b.PlayerID] = true
	}
	if len(l.records)+len(ordered) > l.total-1 {
		return nil, fmt.Errorf("%d eliminations would leave no winner", len(l.records)+len(ordered))
	}

	added := make([]EliminationRecord, 0, len(ordered))
	for _, b := range ordered {
		rec := EliminationRecord{
			PlayerID:   b.PlayerID,
			Place:      l.total - len(l.records),
			Hand:       hand,
			TableID:    tableID,
			StartStack: b.StartStack,
		}
		l.byID[b.PlayerID] = len(l.records)
		l.records = append(l.records, rec)
		added = append(added, rec)
	}
	return added, nil
}

// Records returns the eliminations in the order they happened.
func (l *Ledger) Records() []EliminationRecord {
	return append([]EliminationRecord(nil), l.records...)
}

// Len returns the number of eliminated players.
func (l *Ledger) Len() int { return len(l.records) }

// Place returns the finishing place of an eliminated player.
func (l *Ledger) Place(playerID int) (int, bool) {
	i, ok := l.byID[playerID]
	if !ok {
		return 0, false
	}
	return l.records[i].Place, true
}

// Complete reports whether everyone but the winner has been recorded.
func (l *Ledger) Complete() bool { return len(l.records) == l.total-1 }
