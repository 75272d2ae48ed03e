package main

import (
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cris2986/calendar-pulse/internal/bridge"
	"github.com/cris2986/calendar-pulse/internal/config"
	"github.com/cris2986/calendar-pulse/internal/core"
	"github.com/cris2986/calendar-pulse/internal/listener"
	"github.com/cris2986/calendar-pulse/internal/store"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and drain the notification queue",
	Long: `Inspect and drain the queue of notifications captured while no
consumer was connected.

The queue holds at most 100 notifications; the oldest are dropped first.`,
}

var queueSizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the number of queued notifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter().FormatResult(cmd.OutOrStdout(), queueController().GetQueueSize())
	},
}

var peekOpts struct {
	since  string
	pkg    string
	filter string
	limit  int
	sortBy string
}

var queuePeekCmd = &cobra.Command{
	Use:   "peek",
	Short: "Print queued notifications without removing them",
	Long: `Print queued notifications without removing them.

Examples:
  # Everything, oldest first
  pulse queue peek

  # WhatsApp messages from the last hour, newest first
  pulse queue peek --package com.whatsapp --since 1h --sort timestamp:desc

  # Messages that look like plans
  pulse queue peek --filter 'text~=(?i)\b(tomorrow|tonight|meet)\b'`,
	RunE: runQueuePeek,
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Print and clear queued notifications",
	Long: `Print all queued notifications, oldest first, and clear the queue.

The queue is cleared even when its contents cannot be decoded; in that case
the command fails and nothing is printed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := queueController().GetQueuedNotifications()
		if res.Error != "" {
			return errors.New(res.Error)
		}
		return formatter().Format(cmd.OutOrStdout(), res.Notifications)
	},
}

var queueWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the queue size whenever another process changes it",
	Long: `Watch the file-backed queue and print its size after every change,
for example while "pulse serve" or "pulse inject" is running elsewhere.

Only the file store backend can be watched.`,
	RunE: runQueueWatch,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueSizeCmd, queuePeekCmd, queueDrainCmd, queueWatchCmd)

	queuePeekCmd.Flags().StringVar(&peekOpts.since, "since", "",
		"Only show notifications from the last duration (e.g. 1h, 2d, 1w)")
	queuePeekCmd.Flags().StringVar(&peekOpts.pkg, "package", "",
		"Only show notifications from this package")
	queuePeekCmd.Flags().StringVar(&peekOpts.filter, "filter", "",
		"Filter expression (e.g. 'title~alice,timestamp>1h')")
	queuePeekCmd.Flags().IntVarP(&peekOpts.limit, "limit", "n", 0,
		"Maximum number of notifications (0 = all)")
	queuePeekCmd.Flags().StringVar(&peekOpts.sortBy, "sort", "",
		"Sort field and order, e.g. timestamp:desc (queue, timestamp, package, title)")
}

func runQueuePeek(cmd *cobra.Command, args []string) error {
	since, err := core.ParseDuration(peekOpts.since)
	if err != nil {
		return fmt.Errorf("invalid --since: %w", err)
	}
	expr, err := core.ParseFilter(peekOpts.filter)
	if err != nil {
		return fmt.Errorf("invalid --filter: %w", err)
	}

	fieldName, orderName, _ := strings.Cut(peekOpts.sortBy, ":")
	field, err := core.ParseSortField(fieldName)
	if err != nil {
		return err
	}
	order, err := core.ParseSortOrder(orderName)
	if err != nil {
		return err
	}

	records, err := queue.Peek()
	if err != nil {
		return err
	}

	records = core.FilterWithExpr(records, expr)
	core.Sort(records, core.SortOptions{Field: field, Order: order})
	records = core.Filter(records, core.FilterOptions{
		Since:   since,
		Package: peekOpts.pkg,
		Limit:   peekOpts.limit,
	})

	return formatter().Format(cmd.OutOrStdout(), records)
}

// queueController returns a controller over the queue with no live consumer.
func queueController() *bridge.Controller {
	return newController(cfg, queue, listener.NewRegistry(logger), nil, logger)
}

func runQueueWatch(cmd *cobra.Command, args []string) error {
	if cfg.Store.Backend != config.StoreBackendFile {
		return fmt.Errorf("queue watch requires the %q store backend, got %q",
			config.StoreBackendFile, cfg.Store.Backend)
	}
	path, err := storePath(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	f := formatter()
	controller := queueController()

	printSize := func() {
		if err := f.FormatResult(out, controller.GetQueueSize()); err != nil {
			logger.Warn("failed to write queue size", "error", err)
		}
	}

	watcher, err := store.NewQueueWatcher(path, printSize, logger)
	if err != nil {
		return fmt.Errorf("failed to create queue watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	defer watcher.Stop()

	printSize()
	<-ctx.Done()
	return nil
}
