// Package cmd implements the CLI for cuehook-watcher.
package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuehook/cuehook/internal/config"
	"github.com/cuehook/cuehook/internal/observability"
	"github.com/cuehook/cuehook/internal/watcher"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagViper holds CLI-flag overrides for the few settings that make sense
// to tweak per invocation without editing the ambient config file.
var flagViper = viper.New()

var rootCmd = &cobra.Command{
	Use:   "cuehook-watcher <config.json>",
	Short: "Watch an RTP stream for slate/content transitions and fire HTTP actions",
	Long: `cuehook-watcher consumes an RTP video stream, classifies each frame as
a configured slate or regular content, and fires the HTTP call actions
configured for each observed transition, with a debounce window to
absorb brief flicker around a cut point.

Ambient process configuration (logging, metrics, HTTP client tuning) is
read from environment variables prefixed CUEHOOK_, or from a config file
discovered the usual way. The single positional argument is the path to
the watcher's own JSON document: RTP source, transitions and actions.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides CUEHOOK_LOGGING_LEVEL")
	rootCmd.PersistentFlags().String("log-format", "", "log format (text, json), overrides CUEHOOK_LOGGING_FORMAT")
	rootCmd.PersistentFlags().String("ambient-config", "", "path to the ambient config file (optional; env vars and defaults otherwise)")

	flagViper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	flagViper.BindPFlag("log-format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing command: %w", err)
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ambientPath, _ := cmd.Flags().GetString("ambient-config")
	ambient, err := config.Load(ambientPath)
	if err != nil {
		return fmt.Errorf("loading ambient config: %w", err)
	}

	if level := flagViper.GetString("log-level"); level != "" {
		ambient.Logging.Level = strings.ToLower(level)
	}
	if format := flagViper.GetString("log-format"); format != "" {
		ambient.Logging.Format = strings.ToLower(format)
	}

	logger := observability.NewLogger(ambient.Logging)
	observability.SetDefault(logger)

	watcherCfg, err := config.LoadWatcherConfig(args[0], ambient.Ingest.AllowedSchemes, ambient.Ingest.AllowedExtensions)
	if err != nil {
		return fmt.Errorf("loading watcher config: %w", err)
	}

	logger.Info("cuehook-watcher starting",
		"config", args[0],
		"transitions", len(watcherCfg.Transitions),
		"ingest", fmt.Sprintf("%s:%d", watcherCfg.Source.IngestIP, watcherCfg.Source.IngestPort),
	)

	w := watcher.New(watcherCfg, ambient, logger)
	if err := w.Run(context.Background()); err != nil {
		return fmt.Errorf("running watcher: %w", err)
	}

	logger.Info("cuehook-watcher stopped cleanly")
	return nil
}
