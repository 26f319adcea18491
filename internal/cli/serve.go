package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/atelier/internal/server"
	"github.com/example/atelier/internal/wire"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Long: `Run the HTTP API and websocket change feed used by the web client.

The server exposes project, chat and artifact endpoints under /api and
streams row changes over /ws. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			listen := addr
			if listen == "" {
				listen = wire.Cfg().Addr()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(
				wire.ProjectService(),
				wire.ChatService(),
				wire.PipelineService(),
				wire.ProjectRepo(),
				wire.ArtifactRepo(),
				wire.Bus(),
				listen,
			)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8085)")
	return cmd
}
