package cmd

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/vctt94/pokertourney/pkg/server"
)

// Serve hosts tournament sessions over gRPC.
func Serve(e *env) *cobra.Command {
	var (
		listen   string
		dbPath   string
		portFile string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host tournament sessions over gRPC",
		Long: heredoc.Doc(`
			serve exposes the mtt.TournamentService. Clients create sessions
			with Reset, drive them with Step and follow them with Watch.
			Finished tournaments are stored in the results database.
		`),
		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			log := e.logBackend.Logger("SRVR")

			db, err := server.NewDatabase(e.dbPath(dbPath))
			if err != nil {
				return fmt.Errorf("failed to init db: %w", err)
			}
			defer db.Close()

			srv := server.NewServer(db, e.logBackend)
			defer srv.Stop()

			lis, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen: %w", err)
			}
			if portFile != "" {
				_, p, _ := net.SplitHostPort(lis.Addr().String())
				if err := os.WriteFile(portFile, []byte(p), 0600); err != nil {
					return err
				}
			}

			grpcSrv := grpc.NewServer()
			server.RegisterTournamentService(grpcSrv, srv)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-sig
				log.Infof("Shutting down")
				grpcSrv.GracefulStop()
			}()

			log.Infof("Listening on %s", lis.Addr())
			return grpcSrv.Serve(lis)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:50051", "Address to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "", "Results database (default <datadir>/mtt.db)")
	cmd.Flags().StringVar(&portFile, "portfile", "", "If set, write the selected port to this file")
	return cmd
}
