package main

import (
	"github.com/spf13/cobra"
	"github.com/terassyi/fbinstall/internal/plan"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [manifests...]",
	Short: "Stop the service and remove Filebeat",
	Long: `Stop and disable the service, remove the package, then delete
/etc/filebeat and /var/log/filebeat. The paths are fixed and do not
follow a resource's confDir or logDir.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConverge(cmd, args, plan.LifecycleDelete)
	},
}

func init() {
	deleteCmd.Flags().BoolVarP(&applyQuiet, "quiet", "q", false, "Only print the final report")
	deleteCmd.Flags().StringVarP(&applyOutput, "output", "o", "text", "Report format (text, json, yaml)")
}
