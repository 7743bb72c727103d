package recipe

import (
	"fmt"
	"os"

	"furnace/cmd/root"
	"furnace/internal/models"
	"furnace/services"

	"github.com/spf13/cobra"
)

var optCook services.CookOptions
var optServeWith string

var cookCmd = &cobra.Command{
	Use:   "cook [dir]",
	Short: "把项目注册为recipe并立即生效",
	Long: `Register a project directory (default: current directory) and apply it.
Re-cooking a project updates its recipe in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := optCook
		opts.ServeWith = models.BackendKind(optServeWith)
		if len(args) > 0 {
			opts.Dir = args[0]
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			opts.Dir = wd
		}
		switch opts.ServeWith {
		case "", models.BackendNginx, models.BackendApache:
		default:
			return fmt.Errorf("%w: unknown backend %q, use nginx or apache", models.ErrNotFound, optServeWith)
		}

		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)
		rc, rep := rec.Cook(cmd.Context(), opts)
		if rc != nil {
			fmt.Printf("http://%s -> %s\n", rc.Site, rc.DocumentRoot())
		}
		return root.PrintReport(rep)
	},
}

func init() {
	cookCmd.Flags().SortFlags = false
	cookCmd.Flags().StringVar(&optCook.Name, "name", "", "Recipe name (default: directory name)")
	cookCmd.Flags().StringVar(&optCook.PHPVersion, "php", "", "php version (default: composer.json, then php.default)")
	cookCmd.Flags().StringVar(&optServeWith, "serve-with", "", "Web server: nginx or apache (default: nginx)")
	cookCmd.Flags().StringVar(&optCook.Site, "site", "", "Host name (default: <name>.<tld>)")
	root.RootCmd.AddCommand(cookCmd)

	cookCmd.Example = `  furnace cook
  furnace cook /srv/blog --php 8.3 --serve-with apache`
}
