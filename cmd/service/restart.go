package service

import (
	"furnace/cmd/root"
	"furnace/services"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "重启所有服务",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return root.RunOperation("restart", func(rec *services.Reconciler) *services.Report {
			return rec.Restart(cmd.Context())
		})
	},
}

func init() {
	root.RootCmd.AddCommand(restartCmd)

	restartCmd.Example = `  furnace restart`
}
