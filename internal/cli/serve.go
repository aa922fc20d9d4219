package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Dicklesworthstone/cmdlens/internal/execx"
	"github.com/Dicklesworthstone/cmdlens/internal/serve"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Serve exposes parsing, inspection, and discovery over a local REST API:

  GET  /api/v1/clis              Ranked CLIs on the search path
  GET  /api/v1/structure/{name}  A tool's probed command structure
  POST /api/v1/parse             Parse help text from the request body`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Serve.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Serve.Port = servePort
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve.New(cfg, &execx.Runner{}).Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 8745, "Listen port")
}
