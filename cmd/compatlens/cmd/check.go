package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abramin/compatlens/internal/catalog"
	"github.com/abramin/compatlens/internal/index"
	"github.com/abramin/compatlens/internal/metrics"
	"github.com/abramin/compatlens/internal/report"
)

// ErrFindings is returned by check --fail-on-findings when something was
// reported.
var ErrFindings = errors.New("incompatible references found")

var (
	checkFormat    string
	failOnFindings bool
	checkWorkers   int
	checkTests     bool
	metricsFile    string
)

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check a Go project for references to listed entities",
	Long: `Load and type-check every package below path and report each reference
to an entity on the active incompatibility lists.

The active lists are the files under lists.files and the imported list store
(see "compatlens list import"), both resolved under path. path defaults to
--dir. The built-in list is used when neither is configured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ProjectDir()
		if len(args) > 0 {
			path = args[0]
		}

		format, err := report.ParseFormat(checkFormat)
		if err != nil {
			return err
		}

		cfg := GetConfig()
		if cmd.Flags().Changed("workers") {
			cfg.Analysis.Workers = checkWorkers
		}
		if checkTests {
			cfg.Analysis.Tests = true
		}

		provider, closeLists, err := index.ListProvider(cfg, path)
		if err != nil {
			return err
		}
		defer closeLists()

		lazyOpts := []catalog.LazyOption{catalog.WithLogger(logger)}
		indexOpts := []index.Option{index.WithLogger(logger)}
		var rec *metrics.Recorder
		if metricsFile != "" {
			rec = metrics.New()
			lazyOpts = append(lazyOpts, catalog.OnBuild(rec.ObserveBuild))
			indexOpts = append(indexOpts, index.WithObserver(rec))
		}

		lists := catalog.NewLazy(provider, lazyOpts...)
		indexer := index.NewIndexer(cfg, path, lists, indexOpts...)
		result, err := indexer.Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("check failed: %w", err)
		}

		if rec != nil {
			if err := rec.WriteFile(metricsFile); err != nil {
				return fmt.Errorf("writing metrics: %w", err)
			}
		}

		if err := report.Write(cmd.OutOrStdout(), result, format); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}

		if failOnFindings && len(result.Diagnostics) > 0 {
			return ErrFindings
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "output format: text or json")
	checkCmd.Flags().BoolVar(&failOnFindings, "fail-on-findings", false, "exit non-zero when anything is reported")
	checkCmd.Flags().IntVarP(&checkWorkers, "workers", "w", 0, "packages checked concurrently (default GOMAXPROCS)")
	checkCmd.Flags().BoolVar(&checkTests, "tests", false, "include test files")
	checkCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
}
