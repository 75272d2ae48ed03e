package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/cris2986/calendar-pulse/internal/adapter/output"
	"github.com/cris2986/calendar-pulse/internal/config"
	"github.com/cris2986/calendar-pulse/internal/store"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose      bool
		configPath   string
		storeBackend string
		storePath    string
		format       string
	}
	logger *slog.Logger

	// queueStore backs the notification queue for the current command
	queueStore store.KV
	queue      *store.Queue
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Notification capture bridge for calendar-pulse",
	Long: `pulse captures notifications from messaging and mail apps and hands
them to the calendar-pulse web layer.

Notifications from WhatsApp, Gmail and SMS apps are delivered live while a
consumer is connected, and queued (up to 100, oldest dropped first) while
none is. Run "pulse serve" to start the bridge daemon.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration
		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if cmd.Flags().Changed("store") {
			cfg.Store.Backend = globalOpts.storeBackend
		}
		if cmd.Flags().Changed("store-path") {
			cfg.Store.Path = globalOpts.storePath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if _, err := output.ParseFormat(globalOpts.format); err != nil {
			return err
		}

		// Setup logging
		setupLogger(cfg.Log.Level)

		queueStore, err = openStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open queue store: %w", err)
		}
		queue = store.NewQueue(queueStore, logger)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeStore()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// The post-run hook is skipped when a command fails.
		_ = closeStore()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/calendar-pulse/config.toml)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storeBackend, "store", config.DefaultStoreBackend,
		"Queue store backend (file, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.storePath, "store-path", "",
		"Path to the queue store (default: ~/.local/share/calendar-pulse/queue.json or queue.db)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.format, "format", "f", string(output.FormatPlain),
		"Output format (json, yaml, plain)")
}

// setupLogger configures the global slog logger.
func setupLogger(levelName string) {
	level, err := config.ParseLevel(levelName)
	if err != nil {
		level = slog.LevelInfo
	}
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// closeStore releases the queue store, if open.
func closeStore() error {
	if queueStore == nil {
		return nil
	}
	err := queueStore.Close()
	queueStore = nil
	queue = nil
	return err
}

// formatter returns the formatter selected by --format.
func formatter() output.Formatter {
	return output.NewFormatter(output.FormatType(globalOpts.format), output.DefaultFormatterOptions())
}
