package main

import (
	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Check or request notification access",
	Long: `Check or request notification access.

Access is granted when the enabled-listeners setting (a colon-separated list
of package/class entries) contains an entry for this application's package.`,
}

var permissionCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether notification access is granted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return formatter().FormatResult(cmd.OutOrStdout(), queueController().IsPermissionGranted())
	},
}

var permissionRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Open the notification listener settings screen",
	Long: `Open the notification listener settings screen using
settings.open_command.

Always reports opened: true; whether access was granted can only be checked
afterwards with "pulse permission check".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		res := queueController().RequestPermission(cmd.Context())
		return formatter().FormatResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(permissionCmd)
	permissionCmd.AddCommand(permissionCheckCmd, permissionRequestCmd)
}
