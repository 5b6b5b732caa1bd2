package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/audioplayer/media"
	"github.com/tailored-agentic-units/audioplayer/observability"
	"github.com/tailored-agentic-units/audioplayer/player"
)

var rootCmd = &cobra.Command{
	Use:   "audioplayer",
	Short: "Stream audio with observed playback state",
	Long: `audioplayer streams an audio resource over HTTP and reports every change in
player and item state as structured log events.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (.json, .toml, .yaml)")
	rootCmd.PersistentFlags().String("url", "", "Stream URL (overrides config)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose logging to stderr")
}

// loadConfig layers the config file and flag overrides over the defaults.
func loadConfig(cmd *cobra.Command) (*player.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	url, _ := cmd.Flags().GetString("url")

	cfg := player.DefaultConfig()
	if configFile != "" {
		loaded, err := player.LoadConfig(configFile)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	if url != "" {
		cfg.URL = url
	}
	return &cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = observability.LevelVerbose.SlogLevel()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newPlayer builds the controller. Events go to the logger and, when reg is
// non-nil, to a Prometheus counter registered with it. The observer named in
// the config is kept unless it is the default slog observer.
func newPlayer(cmd *cobra.Command, reg prometheus.Registerer) (*player.Player, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cmd)
	observers := []observability.Observer{observability.NewSlogObserver(logger)}

	if cfg.Observer != "" && cfg.Observer != "slog" {
		named, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, err
		}
		observers = append(observers, named)
	}

	if reg != nil {
		metrics, err := observability.NewMetricsObserver("audioplayer", reg)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		observers = append(observers, metrics)
	}

	return player.New(cfg,
		player.WithObserver(observability.NewMultiObserver(observers...)),
		player.WithHTTPClient(media.NewHTTPClient(cfg.Media, logger)),
	)
}
