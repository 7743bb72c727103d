package service

import (
	"furnace/cmd/root"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "初始化furnace目录",
	Long:  "Create ~/.furnace, copy the default runtime catalog, write nginx.conf and detect the installed web servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)
		return root.PrintReport(rec.Install(cmd.Context()))
	},
}

func init() {
	root.RootCmd.AddCommand(installCmd)
}
