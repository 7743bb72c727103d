package recipe

import (
	"fmt"
	"os"

	"furnace/cmd/root"
	"furnace/internal/models"

	"github.com/spf13/cobra"
)

var optDisposeName string

var disposeCmd = &cobra.Command{
	Use:   "dispose",
	Short: "删除recipe及其配置",
	Long:  "Remove a recipe, its rendered configs and its back-reference. Without --name the recipe of the current directory is disposed.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)

		name := optDisposeName
		if name == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			rc, err := rec.Store().ResolveDir(wd)
			if err != nil {
				return err
			}
			if rc == nil {
				return fmt.Errorf("%w: %s is not cooked, pass --name", models.ErrNotFound, wd)
			}
			name = rc.Name
		}
		return root.PrintReport(rec.Dispose(cmd.Context(), name))
	},
}

func init() {
	disposeCmd.Flags().StringVar(&optDisposeName, "name", "", "Recipe name (default: recipe of the current directory)")
	root.RootCmd.AddCommand(disposeCmd)
}
