package main

import (
	"github.com/spf13/cobra"
)

var listeningCmd = &cobra.Command{
	Use:   "listening",
	Short: "Start or stop listening",
	Long: `Start or stop listening.

Both commands are advisory: capture is driven by the OS delivering
notifications to the listener, so start only checks that access is granted.`,
}

var listeningStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Check access before listening",
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter().FormatResult(cmd.OutOrStdout(), queueController().StartListening())
	},
}

var listeningStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop listening",
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter().FormatResult(cmd.OutOrStdout(), queueController().StopListening())
	},
}

func init() {
	rootCmd.AddCommand(listeningCmd)
	listeningCmd.AddCommand(listeningStartCmd, listeningStopCmd)
}
