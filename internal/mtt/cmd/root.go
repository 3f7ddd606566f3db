// Package cmd holds the mtt command line.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/vctt94/pokertourney/pkg/logging"
	"github.com/vctt94/pokertourney/pkg/tournament"
	"github.com/vctt94/pokertourney/pkg/utils"
)

// env is shared by every subcommand once the root has run.
type env struct {
	dataDir    string
	logBackend *logging.LogBackend
}

func (e *env) dbPath(flag string) string {
	if flag != "" {
		return utils.ExpandPath(flag)
	}
	return filepath.Join(e.dataDir, "mtt.db")
}

// Root builds the mtt command tree.
func Root() *cobra.Command {
	e := &env{}
	var (
		dataDir    string
		debugLevel string
		logToFile  bool
		quiet      bool
	)

	root := &cobra.Command{
		Use:   "mtt",
		Short: "Multi-table poker tournament simulator",
		Long: heredoc.Doc(`
			mtt runs elimination poker tournaments over many tables. Players
			are seated at random, blinds rise on a schedule, tables are
			balanced and broken as players bust, and the last player with
			chips wins.

			Tournaments can be simulated locally with scripted agents, watched
			in the terminal, or hosted over gRPC for remote drivers.
		`),
		Args: cobra.NoArgs,

		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e.dataDir = utils.ExpandPath(dataDir)
			if err := utils.EnsureDataDirExists(e.dataDir); err != nil {
				return err
			}
			cfg := logging.LogConfig{DebugLevel: debugLevel, Quiet: quiet}
			if logToFile {
				cfg.LogFile = filepath.Join(e.dataDir, "logs", "mtt.log")
			}
			lb, err := logging.NewLogBackend(cfg)
			if err != nil {
				return err
			}
			e.logBackend = lb
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logBackend != nil {
				e.logBackend.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&dataDir, "datadir", utils.DefaultDataDir(), "Directory for the results database and logs")
	root.PersistentFlags().StringVar(&debugLevel, "debuglevel", "info", "Logging level: trace, debug, info, warn, error, critical, off")
	root.PersistentFlags().BoolVar(&logToFile, "logfile", true, "Also write logs to <datadir>/logs/mtt.log")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Do not print log lines to stdout")

	root.AddCommand(Simulate(e))
	root.AddCommand(Watch(e))
	root.AddCommand(Serve(e))
	root.AddCommand(Remote(e))
	root.AddCommand(Results(e))
	root.AddCommand(ConfigCmd())
	return root
}

// configFlags are the tournament settings every command that starts a
// tournament accepts. Flags override values from --config.
type configFlags struct {
	path      string
	players   int
	perTable  int
	stack     int64
	handsPer  int
	threshold int
	seed      int64
	maxHands  int
	shuffle   bool
	strict    bool
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.path, "config", "c", "", "YAML tournament config")
	fs.IntVarP(&f.players, "players", "n", 0, "Total players")
	fs.IntVar(&f.perTable, "max-per-table", 0, "Seats per table")
	fs.Int64Var(&f.stack, "stack", 0, "Starting stack")
	fs.IntVar(&f.handsPer, "hands-per-level", 0, "Hands per blind level")
	fs.IntVar(&f.threshold, "threshold", 0, "Table balancing threshold")
	fs.Int64Var(&f.seed, "seed", 0, "Seed for seating and decks")
	fs.IntVar(&f.maxHands, "max-hands", 0, "Truncate after this many hands")
	fs.BoolVar(&f.shuffle, "shuffle", false, "Draw initial seats at random")
	fs.BoolVar(&f.strict, "strict", false, "Keep tables within one player of each other")
}

func (f *configFlags) load(cmd *cobra.Command) (tournament.Config, error) {
	cfg := tournament.DefaultConfig()
	if f.path != "" {
		var err error
		if cfg, err = tournament.LoadConfig(utils.ExpandPath(f.path)); err != nil {
			return cfg, err
		}
	}
	fs := cmd.Flags()
	if fs.Changed("players") {
		cfg.TotalPlayers = f.players
	}
	if fs.Changed("max-per-table") {
		cfg.MaxPlayersPerTable = f.perTable
	}
	if fs.Changed("stack") {
		cfg.StartingStack = f.stack
	}
	if fs.Changed("hands-per-level") {
		cfg.HandsPerBlindLevel = f.handsPer
	}
	if fs.Changed("threshold") {
		cfg.TableBalancingThreshold = f.threshold
	}
	if fs.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fs.Changed("max-hands") {
		cfg.MaxHands = f.maxHands
	}
	if fs.Changed("shuffle") {
		cfg.ShuffleSeats = f.shuffle
	}
	if fs.Changed("strict") {
		cfg.StrictBalance = f.strict
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
