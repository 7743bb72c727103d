package services

import (
	"context"
	"sync"
	"time"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
)

/**
 * Server backs `furnace server`: it serializes reconcile calls coming from the API
 * @property {*Reconciler} rec - Reconciler shared by all requests
 * @property {time.Time} startTime - When the server started
 */
type Server struct {
	rec       *Reconciler
	paths     config.Paths
	version   string
	startTime time.Time
	mutex     sync.Mutex
}

func NewServer(rec *Reconciler, paths config.Paths, version string) *Server {
	return &Server{
		rec:       rec,
		paths:     paths,
		version:   version,
		startTime: time.Now(),
	}
}

func (s *Server) Serve(ctx context.Context) *Report {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Serve(ctx)
}

func (s *Server) Stop(ctx context.Context) *Report {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Stop(ctx)
}

func (s *Server) Restart(ctx context.Context) *Report {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Restart(ctx)
}

func (s *Server) Cook(ctx context.Context, opts CookOptions) (*models.Recipe, *Report) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Cook(ctx, opts)
}

func (s *Server) Dispose(ctx context.Context, name string) *Report {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Dispose(ctx, name)
}

func (s *Server) Status(ctx context.Context, withDiff bool) (*models.SystemStatus, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.rec.Status(ctx, withDiff)
}

func (s *Server) Recipes() ([]models.Recipe, error) {
	return s.rec.Store().List()
}

func (s *Server) Recipe(name string) (*models.Recipe, error) {
	return s.rec.Store().Get(name)
}

func (s *Server) Runtimes() ([]models.Runtime, error) {
	return s.rec.Runtimes().List()
}

/**
 * StartMonitoring 周期性刷新状态指标
 * @param {context.Context} ctx - Stops the loop when cancelled
 * @param {time.Duration} interval - Refresh period
 * @description
 * - Each round takes a status snapshot (which updates the gauges) and dumps the textfile
 */
func (s *Server) StartMonitoring(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Status(ctx, false); err != nil {
				logger.Warnf("Status refresh failed: %v", err)
			}
			if err := DumpMetrics(s.paths.MetricsDir); err != nil {
				logger.Warnf("Metrics dump failed: %v", err)
			}
		}
	}
}

// GetHealthz answers the readiness probe.
func (s *Server) GetHealthz() models.HealthResponse {
	recipes, _ := s.rec.Store().List()
	return models.HealthResponse{
		Version:   s.version,
		StartTime: s.startTime.Format(time.RFC3339),
		Status:    "UP",
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Recipes:   len(recipes),
	}
}
