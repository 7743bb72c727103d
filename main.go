package main

import (
	"context"
	"fmt"
	"os"

	_ "furnace/cmd"
	"furnace/cmd/root"
	"furnace/internal/config"
	"furnace/internal/env"
	"furnace/internal/logger"
)

func main() {
	// 检查是否是服务器模式
	env.Daemon = len(os.Args) > 1 && os.Args[1] == "server"

	_, cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// 根据运行模式初始化日志系统, 服务器模式同时输出到控制台
	logger.InitLogger(cfg.Log.Path, cfg.Log.Level, env.Daemon)

	if err := root.RootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Fatal(err)
	}
	os.Exit(0)
}
