package service

import (
	"furnace/cmd/root"
	"furnace/services"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动所有recipe的服务",
	Long:  "Start php-fpm for every php version in use, write the vhost configs, then start or reload the web servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return root.RunOperation("serve", func(rec *services.Reconciler) *services.Report {
			return rec.Serve(cmd.Context())
		})
	},
}

func init() {
	serveCmd.Flags().SortFlags = false
	root.RootCmd.AddCommand(serveCmd)
}
