package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/cris2986/calendar-pulse/internal/adapter/input"
	"github.com/cris2986/calendar-pulse/internal/listener"
)

var injectOpts struct {
	packageName string
	title       string
	text        string
	bigText     string
	postTime    int64
	source      string
}

// injectResult reports what happened to injected notifications.
type injectResult struct {
	Outcome  string         `json:"outcome,omitempty"`
	Outcomes map[string]int `json:"outcomes,omitempty"`
	Size     int            `json:"size"`
}

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Feed a synthetic notification through the listener",
	Long: `Feed a synthetic notification through the listener pipeline.

The notification is filtered and shaped exactly like one posted by the OS.
No live consumer is connected in this process, so an accepted notification
is queued.

Examples:
  # Queue a WhatsApp message
  pulse inject --package com.whatsapp --title Alice --text "Dinner at 8?"

  # Expanded text wins when it is longer
  pulse inject --package com.google.android.gm --title "Standup" \
    --text "Moved" --big-text "Moved to 10:30 tomorrow"

  # Replay a batch of records, e.g. from "pulse queue drain -f json"
  pulse queue drain -f json | pulse inject --from stdin`,
	RunE: runInject,
}

func init() {
	rootCmd.AddCommand(injectCmd)

	injectCmd.Flags().StringVar(&injectOpts.packageName, "package", "",
		"Source package name (e.g. com.whatsapp)")
	injectCmd.Flags().StringVar(&injectOpts.title, "title", "",
		"Notification title")
	injectCmd.Flags().StringVar(&injectOpts.text, "text", "",
		"Short notification text")
	injectCmd.Flags().StringVar(&injectOpts.bigText, "big-text", "",
		"Expanded notification text")
	injectCmd.Flags().Int64Var(&injectOpts.postTime, "time", 0,
		"Post time in milliseconds since epoch (default: now)")
	injectCmd.Flags().StringVar(&injectOpts.source, "from", "",
		"Read events from an input source instead of flags (stdin)")
}

func runInject(cmd *cobra.Command, args []string) error {
	service := listener.NewService(listener.NewRegistry(logger), queue, logger)
	service.OnCreate()
	defer service.OnDestroy()

	if injectOpts.source != "" {
		return injectFrom(cmd, service)
	}
	if injectOpts.packageName == "" {
		return errors.New("--package is required unless --from is set")
	}

	extras := make(map[string]string)
	if injectOpts.title != "" {
		extras[listener.ExtraTitle] = injectOpts.title
	}
	if injectOpts.text != "" {
		extras[listener.ExtraText] = injectOpts.text
	}
	if injectOpts.bigText != "" {
		extras[listener.ExtraBigText] = injectOpts.bigText
	}

	postTime := injectOpts.postTime
	if postTime == 0 {
		postTime = time.Now().UnixMilli()
	}

	outcome := service.OnNotificationPosted(listener.Event{
		PackageName: injectOpts.packageName,
		Extras:      extras,
		PostTime:    postTime,
	})

	size, err := queue.Size()
	if err != nil {
		logger.Warn("failed to read queue size", "error", err)
	}

	return formatter().FormatResult(cmd.OutOrStdout(), injectResult{
		Outcome: outcome.String(),
		Size:    size,
	})
}

// injectFrom posts every event read from the configured input source.
func injectFrom(cmd *cobra.Command, service *listener.Service) error {
	adapter, err := input.NewAdapter(injectOpts.source)
	if err != nil {
		return err
	}
	if _, ok := adapter.(*input.StdinAdapter); ok {
		adapter = input.NewStdinAdapterWithReader(cmd.InOrStdin())
	}

	events, err := adapter.Import(cmd.Context())
	if err != nil {
		return err
	}

	outcomes := make(map[string]int)
	for _, ev := range events {
		outcomes[service.OnNotificationPosted(ev).String()]++
	}
	logger.Debug("injected events", "source", adapter.Name(), "count", len(events))

	size, err := queue.Size()
	if err != nil {
		logger.Warn("failed to read queue size", "error", err)
	}

	return formatter().FormatResult(cmd.OutOrStdout(), injectResult{
		Outcomes: outcomes,
		Size:     size,
	})
}
