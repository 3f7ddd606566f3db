package tournament

import "github.com/vctt94/pokertourney/pkg/poker"

// BlindSchedule maps hands played to the global blind level.
type BlindSchedule struct {
	Levels        []poker.BlindLevel
	HandsPerLevel int
}

// LevelIndex returns the level for n completed hands, clamped at the last
// entry.
func (s BlindSchedule) LevelIndex(n int) int {
	if len(s.Levels) == 0 || s.HandsPerLevel <= 0 || n < 0 {
		return 0
	}
	idx := n / s.HandsPerLevel
	if idx > len(s.Levels)-1 {
		idx = len(s.Levels) - 1
	}
	return idx
}

// Level returns the blinds in effect after n completed hands.
func (s BlindSchedule) Level(n int) poker.BlindLevel {
	if len(s.Levels) == 0 {
		return poker.BlindLevel{}
	}
	return s.Levels[s.LevelIndex(n)]
}

// HandsUntilNextLevel returns how many hands remain at the current level,
// or -1 when the schedule is on its last level.
func (s BlindSchedule) HandsUntilNextLevel(n int) int {
	idx := s.LevelIndex(n)
	if idx >= len(s.Levels)-1 {
		return -1
	}
	return (idx+1)*s.HandsPerLevel - n
}

// DefaultBlindSchedule is an 18 level turbo structure with big blind antes
// from the third level on.
func DefaultBlindSchedule() []poker.BlindLevel {
	pairs := [][2]int64{
		{10, 20}, {20, 40}, {30, 60}, {40, 80}, {50, 100}, {60, 120},
		{80, 160}, {100, 200}, {150, 300}, {250, 500}, {400, 800}, {600, 1200},
		{1000, 2000}, {1500, 3000}, {2500, 5000}, {4000, 8000}, {6000, 12000}, {10000, 20000},
	}
	levels := make([]poker.BlindLevel, len(pairs))
	for i, p := range pairs {
		levels[i] = poker.BlindLevel{SmallBlind: p[0], BigBlind: p[1]}
		if i >= 2 {
			levels[i].Ante = p[1]
		}
	}
	return levels
}
