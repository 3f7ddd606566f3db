package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vctt94/pokertourney/pkg/agent"
	"github.com/vctt94/pokertourney/pkg/server"
	"github.com/vctt94/pokertourney/pkg/tournament"
	"github.com/vctt94/pokertourney/pkg/ui"
)

// Watch follows a tournament in the terminal.
func Watch(e *env) *cobra.Command {
	var (
		flags   configFlags
		delay   time.Duration
		addr    string
		session string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a tournament hand by hand in the terminal",
		Long: heredoc.Doc(`
			watch plays a tournament locally with scripted agents and shows
			every table, the blinds and the eliminations as hands complete.

			With --addr and --session it follows a session on a running
			server instead.
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			// The dashboard owns the terminal.
			e.logBackend.SetQuiet(true)

			if addr != "" {
				if session == "" {
					return fmt.Errorf("--session is required with --addr")
				}
				conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return err
				}
				defer conn.Close()
				stream, err := server.NewClient(conn).Watch(ctx, session)
				if err != nil {
					return err
				}
				return ui.Run(ctx, "mtt - session "+session, ui.NewRemoteSource(stream), delay)
			}

			cfg, err := flags.load(cmd)
			if err != nil {
				return err
			}
			c := tournament.NewController(tournament.Options{
				Log:         e.logBackend.Logger("TRNY"),
				TableLog:    e.logBackend.Logger("TBLE"),
				BalancerLog: e.logBackend.Logger("BLNC"),
			})
			src, err := ui.NewLocalSource(c, cfg, agent.MixedRoster(cfg.TotalPlayers, cfg.Seed))
			if err != nil {
				return err
			}
			title := fmt.Sprintf("mtt - %d players, %d per table", cfg.TotalPlayers, cfg.MaxPlayersPerTable)
			return ui.Run(ctx, title, src, delay)
		},
	}
	flags.register(cmd)
	cmd.Flags().DurationVar(&delay, "delay", 300*time.Millisecond, "Pause between hands")
	cmd.Flags().StringVar(&addr, "addr", "", "Server to watch instead of playing locally")
	cmd.Flags().StringVar(&session, "session", "", "Session id to watch on --addr")
	return cmd
}
