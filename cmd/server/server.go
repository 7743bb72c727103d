package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"furnace/cmd/root"
	"furnace/controllers"
	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/middleware"
	"furnace/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var optMonitorInterval time.Duration

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务",
	Long:  "Serve the furnace status/control API on server.address and ~/.furnace/furnace.sock",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return startServer(ctx)
	},
}

func startServer(ctx context.Context) error {
	paths, cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	rec := services.NewDefaultReconciler(paths, cfg)
	svc := services.NewServer(rec, paths, root.SoftwareVer)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware(), middleware.AuthMiddleware(cfg.Server.Secret, "/healthz"))
	controllers.NewAPIController(svc).RegisterRoutes(router)
	controllers.NewRecipeController(svc).RegisterRoutes(router)

	listeners, err := CreateListeners(ListenAddrs(cfg.Server.Address, paths.Root))
	if len(listeners) == 0 {
		return fmt.Errorf("no listener could be created: %w", err)
	}
	if err != nil {
		logger.Warnf("Some listeners failed: %v", err)
	}

	go svc.StartMonitoring(ctx, optMonitorInterval)

	httpServer := &http.Server{Handler: router}
	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		logger.Infof("furnace server listening on %s://%s", l.Addr().Network(), l.Addr().String())
		go func(l net.Listener) {
			if err := httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}(l)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down furnace server")
	case serveErr = <-errCh:
		logger.Errorf("furnace server failed: %v", serveErr)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warnf("Shutdown: %v", shutdownErr)
	}
	if dumpErr := services.DumpMetrics(paths.MetricsDir); dumpErr != nil {
		logger.Warnf("Metrics dump failed: %v", dumpErr)
	}
	return serveErr
}

func init() {
	serverCmd.Flags().DurationVar(&optMonitorInterval, "monitor-interval", 30*time.Second, "Status refresh interval")
	root.RootCmd.AddCommand(serverCmd)
}
