package php

import (
	"furnace/cmd/root"

	"github.com/spf13/cobra"
)

var phpCmd = &cobra.Command{
	Use:   "php",
	Short: "管理php运行时",
	Long:  "Install, list and switch the php versions used by recipes",
}

func init() {
	root.RootCmd.AddCommand(phpCmd)
}
