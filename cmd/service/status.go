package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"furnace/cmd/root"
	"furnace/internal/models"

	"github.com/spf13/cobra"
)

var (
	optDiff bool
	optJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看环境状态",
	Long:  "Show recipes, php runtimes and web servers. --diff prints how on-disk configs differ from freshly rendered ones.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)

		st, err := rec.Status(cmd.Context(), optDiff)
		if err != nil {
			return err
		}
		if optJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}
		printStatus(os.Stdout, st, optDiff)
		return nil
	},
}

/**
 * Print a status snapshot as tables
 * @param {io.Writer} out - Destination
 * @param {*models.SystemStatus} st - Snapshot
 * @param {bool} withDiff - Append the diff of every drifted config
 */
func printStatus(out io.Writer, st *models.SystemStatus, withDiff bool) {
	fmt.Fprintln(out, "=== Recipes ===")
	if len(st.Recipes) == 0 {
		fmt.Fprintln(out, "没有找到recipe")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSITE\tPHP\tSERVE WITH\tFPM\tCONFIG\tPATH")
		for _, rs := range st.Recipes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", rs.Recipe.Name, rs.Recipe.Site, rs.Recipe.PHPVersion,
				rs.Recipe.ServeWith, fpmState(rs), confState(rs), rs.Recipe.Path)
		}
		w.Flush()
	}

	fmt.Fprintln(out, "\n=== PHP ===")
	if len(st.Runtimes) == 0 {
		fmt.Fprintln(out, "没有安装php")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tSOCKET")
		for _, rt := range st.Runtimes {
			fmt.Fprintf(w, "%s\t%s\t%s\n", rt.Version, rt.State, rt.SocketPath)
		}
		w.Flush()
	}

	fmt.Fprintln(out, "\n=== Web servers ===")
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tSTATUS\tRECIPES")
	for _, b := range st.Backends {
		fmt.Fprintf(w, "%s\t%s\t%d\n", b.Kind, b.Status, b.Recipes)
	}
	w.Flush()

	if !withDiff {
		return
	}
	for _, rs := range st.Recipes {
		if rs.Diff == "" {
			continue
		}
		fmt.Fprintf(out, "\n--- %s\n", rs.ConfPath)
		fmt.Fprint(out, rs.Diff)
	}
}

func fpmState(rs models.RecipeStatus) string {
	if !rs.Recipe.HasPHPVersion() {
		return "-"
	}
	if rs.PHPRunning {
		return string(models.StatusRunning)
	}
	return string(models.StatusStopped)
}

func confState(rs models.RecipeStatus) string {
	switch {
	case !rs.Rendered:
		return "missing"
	case rs.Drifted:
		return "drifted"
	default:
		return "ok"
	}
}

func init() {
	statusCmd.Flags().SortFlags = false
	statusCmd.Flags().BoolVar(&optDiff, "diff", false, "Show config drift")
	statusCmd.Flags().BoolVar(&optJSON, "json", false, "Print the snapshot as JSON")
	root.RootCmd.AddCommand(statusCmd)
}
