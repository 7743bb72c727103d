package php

import (
	"fmt"

	"furnace/cmd/root"
	"furnace/internal/models"
	"furnace/internal/utils"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <version>",
	Short: "安装指定版本的php",
	Long:  "Install a php version from the runtime catalog (~/.furnace/repository.yml)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version := utils.NormalizePHPVersion(args[0])
		if version == models.UnknownPHPVersion {
			return fmt.Errorf("%w: invalid php version %q", models.ErrNotFound, args[0])
		}
		paths, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		defer root.Finish(paths)

		runtimes := rec.Runtimes()
		if runtimes.State(version) != models.RuntimeNotInstalled {
			fmt.Printf("php %s is already installed\n", version)
			return nil
		}
		fmt.Printf("Installing php %s ...\n", version)
		if err := runtimes.Install(cmd.Context(), version); err != nil {
			return fmt.Errorf("install php %s: %w", version, err)
		}
		fmt.Printf("php %s installed in %s\n", version, runtimes.Runtime(version).InstallDir)
		return nil
	},
}

func init() {
	phpCmd.AddCommand(installCmd)

	installCmd.Example = `  furnace php install 8.3`
}
