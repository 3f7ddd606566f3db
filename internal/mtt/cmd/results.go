package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/vctt94/pokertourney/pkg/server"
	"github.com/vctt94/pokertourney/pkg/utils"
)

// Results lists stored tournaments.
func Results(e *env) *cobra.Command {
	var (
		dbPath string
		addr   string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "results [id]",
		Short: "List stored tournaments or show one",
		Long: heredoc.Doc(`
			results reads the results database, or a server's with --addr.
			Without arguments it lists recent tournaments; with an id it
			prints the elimination order of that tournament.
		`),
		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				list func(limit int) ([]server.Result, error)
				one  func(id string) (server.Result, error)
			)
			if addr != "" {
				conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return err
				}
				defer conn.Close()
				client := server.NewClient(conn)
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				list = func(limit int) ([]server.Result, error) { return client.Results(ctx, limit) }
				one = func(id string) (server.Result, error) { return client.Result(ctx, id) }
			} else {
				db, err := server.NewDatabase(e.dbPath(dbPath))
				if err != nil {
					return err
				}
				defer db.Close()
				srv := server.NewServer(db, e.logBackend)
				defer srv.Stop()
				list, one = srv.Results, srv.Result
			}

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				res, err := one(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Tournament %s", res.ID)))
				fmt.Fprintf(out, "%d players, %d hands, finished %s\n",
					res.TotalPlayers, res.HandsPlayed, res.FinishedAt.Local().Format(time.DateTime))
				if res.Winner >= 0 {
					fmt.Fprintln(out, winnerStyle.Render(fmt.Sprintf("1st     player %d", res.Winner)))
				} else {
					fmt.Fprintln(out, dimStyle.Render("truncated before a winner"))
				}
				for _, el := range res.Eliminations {
					fmt.Fprintf(out, "%-7s player %-5d hand %-6d table %d\n",
						utils.FormatPlace(el.Place), el.PlayerID, el.Hand, el.TableID)
				}
				return nil
			}

			results, err := list(limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(out, dimStyle.Render("No tournaments stored."))
				return nil
			}
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-40s %8s %7s %7s  %s", "ID", "Players", "Hands", "Winner", "Finished")))
			for _, r := range results {
				winner := "-"
				if r.Winner >= 0 {
					winner = fmt.Sprint(r.Winner)
				}
				fmt.Fprintf(out, "%-40s %8d %7d %7s  %s\n", r.ID, r.TotalPlayers, r.HandsPlayed, winner,
					r.FinishedAt.Local().Format(time.DateTime))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Results database (default <datadir>/mtt.db)")
	cmd.Flags().StringVar(&addr, "addr", "", "Ask a server instead of reading the database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Tournaments to list")
	return cmd
}
