package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/vctt94/pokertourney/pkg/agent"
	"github.com/vctt94/pokertourney/pkg/reward"
	"github.com/vctt94/pokertourney/pkg/tournament"
	"github.com/vctt94/pokertourney/pkg/utils"
)

const spinnerCharSet = 14

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	winnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Simulate plays tournaments locally with scripted agents.
func Simulate(e *env) *cobra.Command {
	var (
		flags configFlags
		runs  int
		top   int
		dump  bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play tournaments with scripted agents",
		Long: heredoc.Doc(`
			simulate plays one or more tournaments to the end with a mixed
			roster of rule-based agents and prints the final standings.
			Each run uses the configured seed plus the run number.
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			wins := make(map[string]int)
			for run := 0; run < runs; run++ {
				runCfg := cfg
				runCfg.Seed = cfg.Seed + int64(run)
				res, c, err := simulateOnce(ctx, e, runCfg)
				if err != nil {
					return err
				}
				printResult(cmd, run, runCfg, res, top)
				if dump {
					fmt.Fprintln(cmd.OutOrStdout(), c.Dump())
				}
				if res.Winner >= 0 {
					roster := agent.MixedRoster(runCfg.TotalPlayers, runCfg.Seed)
					wins[roster[res.Winner].Name()]++
				}
			}
			if runs > 1 {
				printWins(cmd, wins, runs)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&runs, "runs", 1, "Number of tournaments to play")
	cmd.Flags().IntVar(&top, "top", 10, "Standings rows to print")
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the final controller state")
	return cmd
}

func simulateOnce(ctx context.Context, e *env, cfg tournament.Config) (agent.Result, *tournament.Controller, error) {
	c := tournament.NewController(tournament.Options{
		Log:         e.logBackend.Logger("TRNY"),
		TableLog:    e.logBackend.Logger("TBLE"),
		BalancerLog: e.logBackend.Logger("BLNC"),
		Reward:      reward.NewShaped(),
	})
	r := agent.NewRunner(e.logBackend.Logger("AGNT"), agent.MixedRoster(cfg.TotalPlayers, cfg.Seed))

	s := spinner.New(spinner.CharSets[spinnerCharSet], 100*time.Millisecond)
	s.Suffix = fmt.Sprintf(" playing %d players (seed %d)", cfg.TotalPlayers, cfg.Seed)
	s.Writer = os.Stderr
	s.Start()
	res, err := r.Run(ctx, c, cfg)
	s.Stop()
	return res, c, err
}

func printResult(cmd *cobra.Command, run int, cfg tournament.Config, res agent.Result, top int) {
	out := cmd.OutOrStdout()
	status := "finished"
	if res.Truncated {
		status = "truncated"
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Run %d: %s after %d hands, %d steps",
		run+1, status, res.HandsPlayed, res.Steps)))
	if res.Winner >= 0 {
		fmt.Fprintln(out, winnerStyle.Render(fmt.Sprintf("Winner: player %d", res.Winner)))
	}

	roster := agent.MixedRoster(cfg.TotalPlayers, cfg.Seed)
	rows := res.Standings
	if top > 0 && len(rows) > top {
		rows = rows[:top]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-7s %-7s %-6s %-6s %10s %9s\n", "Place", "Player", "Agent", "Hand", "Stack", "Reward")
	for _, s := range rows {
		hand := "-"
		if s.Hand > 0 {
			hand = fmt.Sprint(s.Hand)
		}
		fmt.Fprintf(&b, "%-7s %-7d %-6s %-6s %10d %9.2f\n", utils.FormatPlace(s.Place), s.PlayerID,
			roster[s.PlayerID].Name(), hand, s.Stack, res.Rewards[s.PlayerID])
	}
	fmt.Fprint(out, b.String())
	if len(rows) < len(res.Standings) {
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("... %d more", len(res.Standings)-len(rows))))
	}
	fmt.Fprintln(out)
}

func printWins(cmd *cobra.Command, wins map[string]int, runs int) {
	names := make([]string, 0, len(wins))
	for n := range wins {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if wins[names[i]] != wins[names[j]] {
			return wins[names[i]] > wins[names[j]]
		}
		return names[i] < names[j]
	})
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render("Wins by agent style"))
	for _, n := range names {
		fmt.Fprintf(out, "%-6s %d/%d\n", n, wins[n], runs)
	}
}
