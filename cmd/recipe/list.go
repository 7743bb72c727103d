package recipe

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"furnace/cmd/root"
	"furnace/internal/models"
	"furnace/internal/utils"

	"github.com/iancoleman/orderedmap"

	"github.com/spf13/cobra"
)

var optListJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出所有recipe",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		recipes, err := rec.Store().List()
		if err != nil {
			return err
		}
		if optListJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(recipes)
		}
		printRecipes(os.Stdout, recipes)
		return nil
	},
}

type Recipe_Columns struct {
	Name      string `json:"name"`
	Site      string `json:"site"`
	PHP       string `json:"php"`
	ServeWith string `json:"serve_with"`
	Path      string `json:"path"`
}

func printRecipes(out io.Writer, recipes []models.Recipe) {
	if len(recipes) == 0 {
		fmt.Fprintln(out, "没有找到recipe")
		return
	}
	var dataList []*orderedmap.OrderedMap
	for _, r := range recipes {
		row := Recipe_Columns{
			Name:      r.Name,
			Site:      r.Site,
			PHP:       r.PHPVersion,
			ServeWith: string(r.ServeWith),
			Path:      r.Path,
		}
		recordMap, _ := utils.StructToOrderedMap(row)
		dataList = append(dataList, recordMap)
	}
	utils.WriteFormat(out, dataList)
}

func init() {
	listCmd.Flags().BoolVar(&optListJSON, "json", false, "Print recipes as JSON")
	recipeCmd.AddCommand(listCmd)
}
