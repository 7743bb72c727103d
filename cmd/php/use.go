package php

import (
	"os"

	"furnace/cmd/root"

	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <version>",
	Short: "切换php版本",
	Long: `Switch the php version of the recipe of the current directory.
Outside any cooked project the global default php version is changed instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)
		_, rep := rec.UsePHP(cmd.Context(), wd, args[0])
		return root.PrintReport(rep)
	},
}

func init() {
	phpCmd.AddCommand(useCmd)

	useCmd.Example = `  cd /srv/blog && furnace php use 8.3`
}
