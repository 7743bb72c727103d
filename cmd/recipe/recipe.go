package recipe

import (
	"furnace/cmd/root"

	"github.com/spf13/cobra"
)

var recipeCmd = &cobra.Command{
	Use:   "recipe",
	Short: "管理recipe",
	Long:  "Inspect the projects registered with `furnace cook`",
}

func init() {
	root.RootCmd.AddCommand(recipeCmd)
}
