// Package cmd implements the constpipe CLI using Cobra.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gaurav-prasanna/constpipe/core/config"
	"github.com/gaurav-prasanna/constpipe/core/logging"
	"github.com/spf13/cobra"
)

// Persistent flag variables.
var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
)

// Loaded by the root PersistentPreRunE for every subcommand.
var (
	cfg          *config.Config
	logger       *slog.Logger
	closeLogging = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "constpipe",
	Short: "constpipe ingests the Brazilian constitution into a search index",
	Long: `constpipe fetches the published HTML of the constitution, classifies every
text block into its structural place (title, chapter, section, article,
paragraph, item), builds one cross-referenced record per block and loads the
records into a search index.

Usage:
  constpipe ingest [source] [flags]
  constpipe export [source] --format markdown|json|pdf|markdown-source
  constpipe search <query>
  constpipe check
  constpipe serve`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) { closeLogging() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default: ./constpipe.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Also write JSON logs to this file (rotated)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration, applies the persistent flags and installs
// the logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		loaded.Logging.Level = flagLogLevel
	}
	if flagLogFile != "" {
		loaded.Logging.File = flagLogFile
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, cleanup, err := logging.Setup(logging.Config{
		Level:     loaded.Logging.Level,
		FilePath:  loaded.Logging.File,
		MaxSizeMB: loaded.Logging.MaxSizeMB,
		MaxFiles:  loaded.Logging.MaxFiles,
		Stderr:    os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	slog.SetDefault(l)

	cfg, logger, closeLogging = loaded, l, cleanup
	return nil
}
