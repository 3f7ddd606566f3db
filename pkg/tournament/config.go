package tournament

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vctt94/pokertourney/pkg/poker"
)

// Config holds the tournament settings.
type Config struct {
	TotalPlayers            int         `yaml:"total_players" json:"total_players"`
	MaxPlayersPerTable      int         `yaml:"max_players_per_table" json:"max_players_per_table"`
	MinPlayersPerTable      int         `yaml:"min_players_per_table" json:"min_players_per_table"`
	StartingStack           int64       `yaml:"starting_stack" json:"starting_stack"`
	HandsPerBlindLevel      int         `yaml:"hands_per_blind_level" json:"hands_per_blind_level"`
	TableBalancingThreshold int         `yaml:"table_balancing_threshold" json:"table_balancing_threshold"`
	BlindsSchedule          BlindLevels `yaml:"blinds_schedule" json:"blinds_schedule"`

	Seed          int64 `yaml:"seed" json:"seed"`
	ShuffleSeats  bool  `yaml:"shuffle_seats" json:"shuffle_seats"`   // seeded shuffle of the initial draw
	StrictBalance bool  `yaml:"strict_balance" json:"strict_balance"` // keep every table within one player
	MaxHands      int   `yaml:"max_hands" json:"max_hands"`           // truncate after this many hands, 0 for none
}

// BlindLevels is a blind schedule that reads from YAML as a list of
// [small, big] or [small, big, ante] entries.
type BlindLevels []poker.BlindLevel

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BlindLevels) UnmarshalYAML(node *yaml.Node) error {
	var raw [][]int64
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("blinds_schedule: %w", err)
	}
	return b.fromRaw(raw)
}

// MarshalYAML implements yaml.Marshaler.
func (b BlindLevels) MarshalYAML() (interface{}, error) {
	return b.raw(), nil
}

func (b *BlindLevels) fromRaw(raw [][]int64) error {
	out := make(BlindLevels, 0, len(raw))
	for i, entry := range raw {
		switch len(entry) {
		case 2:
			out = append(out, poker.BlindLevel{SmallBlind: entry[0], BigBlind: entry[1]})
		case 3:
			out = append(out, poker.BlindLevel{SmallBlind: entry[0], BigBlind: entry[1], Ante: entry[2]})
		default:
			return fmt.Errorf("blinds_schedule[%d]: want [small, big] or [small, big, ante], got %d values", i, len(entry))
		}
	}
	*b = out
	return nil
}

func (b BlindLevels) raw() [][]int64 {
	raw := make([][]int64, 0, len(b))
	for _, l := range b {
		if l.Ante > 0 {
			raw = append(raw, []int64{l.SmallBlind, l.BigBlind, l.Ante})
		} else {
			raw = append(raw, []int64{l.SmallBlind, l.BigBlind})
		}
	}
	return raw
}

// UnmarshalJSON accepts the same list form as the YAML encoding.
func (b *BlindLevels) UnmarshalJSON(data []byte) error {
	var raw [][]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("blinds_schedule: %w", err)
	}
	return b.fromRaw(raw)
}

// MarshalJSON implements json.Marshaler.
func (b BlindLevels) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.raw())
}

// DefaultConfig returns a 99 player turbo tournament.
func DefaultConfig() Config {
	return Config{
		TotalPlayers:            99,
		MaxPlayersPerTable:      9,
		MinPlayersPerTable:      2,
		StartingStack:           1000,
		HandsPerBlindLevel:      9,
		TableBalancingThreshold: 5,
		BlindsSchedule:          DefaultBlindSchedule(),
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration and returns a *ConfigurationError for
// the first problem found.
func (c Config) Validate() error {
	bad := func(field, format string, args ...interface{}) error {
		return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
	}
	switch {
	case c.TotalPlayers < 2:
		return bad("total_players", "must be at least 2, got %d", c.TotalPlayers)
	case c.MinPlayersPerTable < 2:
		return bad("min_players_per_table", "must be at least 2, got %d", c.MinPlayersPerTable)
	case c.MaxPlayersPerTable < c.MinPlayersPerTable:
		return bad("max_players_per_table", "%d is below min_players_per_table %d",
			c.MaxPlayersPerTable, c.MinPlayersPerTable)
	case c.StartingStack <= 0:
		return bad("starting_stack", "must be positive, got %d", c.StartingStack)
	case c.HandsPerBlindLevel <= 0:
		return bad("hands_per_blind_level", "must be positive, got %d", c.HandsPerBlindLevel)
	case c.TableBalancingThreshold < 0 || c.TableBalancingThreshold > c.MaxPlayersPerTable:
		return bad("table_balancing_threshold", "must be between 0 and %d, got %d",
			c.MaxPlayersPerTable, c.TableBalancingThreshold)
	case len(c.BlindsSchedule) == 0:
		return bad("blinds_schedule", "must not be empty")
	case c.MaxHands < 0:
		return bad("max_hands", "must not be negative, got %d", c.MaxHands)
	}

	var prev poker.BlindLevel
	for i, l := range c.BlindsSchedule {
		field := fmt.Sprintf("blinds_schedule[%d]", i)
		if l.SmallBlind <= 0 || l.BigBlind <= 0 || l.Ante < 0 {
			return bad(field, "blinds must be positive, got %s", l)
		}
		if l.SmallBlind > l.BigBlind {
			return bad(field, "small blind %d exceeds big blind %d", l.SmallBlind, l.BigBlind)
		}
		if i > 0 && (l.SmallBlind < prev.SmallBlind || l.BigBlind < prev.BigBlind) {
			return bad(field, "schedule decreases from %s to %s", prev, l)
		}
		prev = l
	}

	// Stacks are int64; the whole field must fit.
	if c.StartingStack > (1<<62)/int64(c.TotalPlayers) {
		return bad("starting_stack", "total chips overflow")
	}
	return nil
}

// Schedule returns the blind schedule described by the config.
func (c Config) Schedule() BlindSchedule {
	return BlindSchedule{Levels: append([]poker.BlindLevel(nil), c.BlindsSchedule...), HandsPerLevel: c.HandsPerBlindLevel}
}

// TotalChips is the chip count that stays constant for the whole event.
func (c Config) TotalChips() int64 {
	return int64(c.TotalPlayers) * c.StartingStack
}

// InitialTables returns the number of tables needed to seat everyone.
func (c Config) InitialTables() int {
	return (c.TotalPlayers + c.MaxPlayersPerTable - 1) / c.MaxPlayersPerTable
}
