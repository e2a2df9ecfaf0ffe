package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/abramin/compatlens/internal/config"
	"github.com/abramin/compatlens/internal/logging"
)

var (
	cfgFile    string
	projectDir string
	logLevel   string
	cfg        *config.Config
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "compatlens",
	Short: "compatlens - find uses of incompatible APIs in Go projects",
	Long: `compatlens checks Go code against lists of entities (packages, types,
functions, methods, fields) that are unsupported or deprecated on a target
platform.

A reference is reported when the entity itself is listed, or when its
package, its declaring type, an embedded base, an embedded interface or a
type argument is.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(projectDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		if cfg.Logging.Format == "json" {
			logger = logging.NewJSON(os.Stderr, logging.LevelFromString(level))
		} else {
			logger = logging.New(os.Stderr, logging.LevelFromString(level))
		}
		return nil
	},
}

// Execute runs the root command. An interrupt cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is compatlens.yaml in --dir)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "project directory holding compatlens.yaml and the list store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error or off")
}

// ProjectDir returns the directory given by --dir.
func ProjectDir() string {
	return projectDir
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}
