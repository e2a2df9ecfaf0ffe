package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/index"
	"github.com/abramin/compatlens/internal/metrics"
	"github.com/abramin/compatlens/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the compatlens lookup server",
	Long: `Start a local HTTP server answering lookups against the active lists.

The server provides:
- Lookup by canonical ID or raw list line
- Parsing of raw list lines
- Entry counts per kind
- Prometheus metrics on /metrics`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		provider, closeLists, err := index.ListProvider(cfg, ProjectDir())
		if err != nil {
			return err
		}
		defer closeLists()

		rec := metrics.New()
		lists := catalog.NewLazy(provider,
			catalog.WithLogger(logger),
			catalog.OnBuild(rec.ObserveBuild),
		)
		// Fail at startup rather than on the first request.
		if _, err := lists.GetContext(cmd.Context()); err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:    port,
			Lists:   lists,
			Metrics: rec,
			Logger:  logger,
		})
		return srv.Start(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "port to run the server on")
}
