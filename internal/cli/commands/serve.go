package commands

import (
	"github.com/spf13/cobra"

	"github.com/gridsight-labs/gridsight/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		Long: `Start an HTTP API over the dashboard: validation reports, metric
snapshots scoped by a drill-down filter, and hierarchy metadata. Filter
positions travel as URL query parameters, so any dashboard view is
linkable.`,
		Example: `  # Serve on the default address
  gridsight serve

  # Custom address
  gridsight serve --addr :9000

  # Query a drill-down position
  curl 'localhost:8090/api/metrics?filter=<encoded path>'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, addr string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if addr == "" {
		addr = cmdCtx.Cfg.GetServeConfig().Addr
	}

	srv := server.New(cmdCtx.Engine, cmdCtx.Logger)
	cmdCtx.Renderer.Printf("serving %s on %s\n", cmdCtx.Engine.Document().Name, addr)
	return srv.ListenAndServe(addr)
}
