package service

import (
	"furnace/cmd/root"
	"furnace/services"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "停止web服务器和php-fpm",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return root.RunOperation("stop", func(rec *services.Reconciler) *services.Report {
			return rec.Stop(cmd.Context())
		})
	},
}

func init() {
	root.RootCmd.AddCommand(stopCmd)
}
