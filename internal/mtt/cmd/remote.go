package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vctt94/pokertourney/pkg/agent"
	"github.com/vctt94/pokertourney/pkg/server"
)

// Remote drives a session on a server with scripted agents.
func Remote(e *env) *cobra.Command {
	var (
		flags configFlags
		addr  string
		keep  bool
		top   int
	)
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Play a tournament on a running server",
		Long: heredoc.Doc(`
			remote creates a session on an mtt server and plays it to the
			end with scripted agents. The session id is printed first so
			the tournament can be followed with "mtt watch --addr --session".
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			log := e.logBackend.Logger("AGNT")
			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return err
			}
			defer conn.Close()
			client := server.NewClient(conn)

			reset, err := client.Reset(ctx, "", cfg)
			if err != nil {
				return err
			}
			id := reset.SessionID
			fmt.Fprintf(cmd.OutOrStdout(), "session %s\n", id)
			if !keep {
				defer client.Close(ctx, id)
			}

			roster := agent.MixedRoster(cfg.TotalPlayers, cfg.Seed)
			s := spinner.New(spinner.CharSets[spinnerCharSet], 100*time.Millisecond)
			s.Writer = os.Stderr
			s.Start()
			defer s.Stop()

			obs, mask := reset.Observation, reset.Info.ActionMask
			steps := 0
			for {
				a := roster[obs.PlayerID%len(roster)]
				action := a.Act(obs, mask)
				if !mask.Allows(action) {
					action = agent.Passive(mask)
				}
				res, err := client.Step(ctx, id, action)
				if err != nil {
					return fmt.Errorf("step %d: %w", steps, err)
				}
				steps++
				if res.Info.HandComplete {
					s.Suffix = fmt.Sprintf(" hand %d, level %d", res.Info.HandsPlayed, res.Info.BlindLevel+1)
				}
				if res.Terminated || res.Truncated {
					s.Stop()
					log.Infof("Session %s over after %d steps", id, steps)
					standings, err := client.Standings(ctx, id)
					if err != nil {
						return err
					}
					printResult(cmd, 0, cfg, agent.Result{
						Steps:       steps,
						HandsPlayed: res.Info.HandsPlayed,
						Terminated:  res.Terminated,
						Truncated:   res.Truncated,
						Winner:      res.Info.Winner,
						Standings:   standings,
					}, top)
					return nil
				}
				obs, mask = res.Observation, res.Info.ActionMask
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "Server address")
	cmd.Flags().BoolVar(&keep, "keep", false, "Leave the session open on the server")
	cmd.Flags().IntVar(&top, "top", 10, "Standings rows to print")
	return cmd
}
