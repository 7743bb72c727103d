package php

import (
	"fmt"

	"furnace/cmd/root"
	"furnace/internal/utils"

	"github.com/iancoleman/orderedmap"
	"github.com/spf13/cobra"
)

var optAvailable bool

type Runtime_Columns struct {
	Version    string `json:"version"`
	State      string `json:"state"`
	InstallDir string `json:"install_dir"`
	Socket     string `json:"socket"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "列出已安装的php版本",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, rec, err := root.NewReconciler()
		if err != nil {
			return err
		}
		if optAvailable {
			versions, err := rec.Runtimes().Available()
			if err != nil {
				return err
			}
			for _, v := range versions {
				fmt.Println(v)
			}
			return nil
		}

		runtimes, err := rec.Runtimes().List()
		if err != nil {
			return err
		}
		if len(runtimes) == 0 {
			fmt.Println("没有安装php, 使用 `furnace php install <version>` 安装")
			return nil
		}
		var dataList []*orderedmap.OrderedMap
		for _, rt := range runtimes {
			row := Runtime_Columns{
				Version:    rt.Version,
				State:      string(rt.State),
				InstallDir: rt.InstallDir,
				Socket:     rt.SocketPath,
			}
			recordMap, _ := utils.StructToOrderedMap(row)
			dataList = append(dataList, recordMap)
		}
		utils.PrintFormat(dataList)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&optAvailable, "available", false, "List the versions offered by the catalog")
	phpCmd.AddCommand(listCmd)
}
