package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

/**
 * NginxService runs a private nginx instance rooted at ~/.furnace/nginx
 * @property {string} dir - nginx prefix directory
 * @property {string} binary - nginx executable
 * @description
 * - Every command passes `-p <dir> -c nginx.conf`
 * - Recipe configs live in servers/<name>.conf
 */
type NginxService struct {
	dir         string
	binary      string
	port        int
	renderer    *Renderer
	runner      utils.CommandRunner
	stopTimeout time.Duration
}

func NewNginxService(paths config.Paths, cfg *config.AppConfig, renderer *Renderer, runner utils.CommandRunner) *NginxService {
	binary := cfg.Nginx.Binary
	if binary == "" {
		binary = "nginx"
	}
	return &NginxService{
		dir:         paths.NginxDir,
		binary:      binary,
		port:        cfg.Site.Listen,
		renderer:    renderer,
		runner:      runner,
		stopTimeout: 10 * time.Second,
	}
}

func (s *NginxService) Kind() models.BackendKind {
	return models.BackendNginx
}

func (s *NginxService) DetectInstalled() bool {
	_, err := s.runner.LookPath(s.binary)
	return err == nil
}

func (s *NginxService) ConfPath(name string) string {
	return filepath.Join(s.dir, "servers", name+".conf")
}

func (s *NginxService) MainConfPath() string {
	return filepath.Join(s.dir, "nginx.conf")
}

func (s *NginxService) PidFile() string {
	return filepath.Join(s.dir, "logs", "nginx.pid")
}

/**
 * Make sure nginx.conf and fastcgi_params exist
 * @returns {bool} Returns true if a file was created
 * @description
 * - Existing files are left alone so user edits survive
 */
func (s *NginxService) EnsureMainConf() (bool, error) {
	created := false
	if !utils.PathExists(s.MainConfPath()) {
		text, err := s.renderer.RenderNginxMain()
		if err != nil {
			return false, err
		}
		if err := writeRendered(s.MainConfPath(), filepath.Join(s.dir, "logs"), text); err != nil {
			return false, err
		}
		created = true
	}
	params := filepath.Join(s.dir, "fastcgi_params")
	if !utils.PathExists(params) {
		if err := utils.WriteFileAtomic(params, FastCGIParams(), 0644); err != nil {
			return created, models.IOError("write", params, err)
		}
		created = true
	}
	if err := os.MkdirAll(filepath.Join(s.dir, "servers"), 0755); err != nil {
		return created, models.IOError("mkdir", filepath.Join(s.dir, "servers"), err)
	}
	return created, nil
}

func (s *NginxService) WriteConf(recipe models.Recipe, socketPath string) error {
	if _, err := s.EnsureMainConf(); err != nil {
		return err
	}
	text, err := s.renderer.Render(recipe, socketPath, models.BackendNginx)
	if err != nil {
		return err
	}
	return writeRendered(s.ConfPath(recipe.Name), s.renderer.LogsDir(models.BackendNginx), text)
}

func (s *NginxService) ReadConf(name string) ([]byte, error) {
	return readConf(s.ConfPath(name))
}

func (s *NginxService) RestoreConf(name string, prev []byte) error {
	if prev == nil {
		return s.RemoveConf(name)
	}
	path := s.ConfPath(name)
	if err := utils.WriteFileAtomic(path, prev, 0644); err != nil {
		return models.IOError("restore", path, err)
	}
	return nil
}

func (s *NginxService) RemoveConf(name string) error {
	path := s.ConfPath(name)
	if err := utils.RemoveIfExists(path); err != nil {
		return models.IOError("remove", path, err)
	}
	return nil
}

func (s *NginxService) args(extra ...string) []string {
	return append([]string{"-p", s.dir + string(os.PathSeparator), "-c", "nginx.conf"}, extra...)
}

func (s *NginxService) Validate(ctx context.Context) error {
	if _, err := s.EnsureMainConf(); err != nil {
		return err
	}
	_, _, err := s.runner.Run(ctx, s.binary, s.args("-t")...)
	return err
}

func (s *NginxService) IsRunning() bool {
	return utils.LivePid(s.PidFile()) != 0
}

/**
 * Start nginx
 * @param {context.Context} ctx - Bounds the external commands
 * @returns {error} Returns models.ErrResourceUnavailable when the port is taken
 * @description
 * - Configuration is validated first, a failed test never starts nginx
 * - Already running is success
 */
func (s *NginxService) Start(ctx context.Context) error {
	if s.IsRunning() {
		return nil
	}
	if err := s.Validate(ctx); err != nil {
		return err
	}
	if _, _, err := s.runner.Run(ctx, s.binary, s.args()...); err != nil {
		return portConflict(models.BackendNginx, s.port, err)
	}
	logger.Infof("nginx started with prefix %s", s.dir)
	return nil
}

// Reload validates the configuration and signals the running master.
func (s *NginxService) Reload(ctx context.Context) error {
	if !s.IsRunning() {
		return s.Start(ctx)
	}
	if err := s.Validate(ctx); err != nil {
		return err
	}
	if _, _, err := s.runner.Run(ctx, s.binary, s.args("-s", "reload")...); err != nil {
		return err
	}
	logger.Infof("nginx reloaded")
	return nil
}

/**
 * Stop nginx
 * @param {context.Context} ctx - Bounds the external commands
 * @returns {error} Returns error if nginx refused to stop
 * @description
 * - Sends `-s quit` and waits for the master to remove its pid file
 * - Escalates to signals when the master does not exit in time
 */
func (s *NginxService) Stop(ctx context.Context) error {
	pid := utils.LivePid(s.PidFile())
	if pid == 0 {
		return nil
	}
	if _, _, err := s.runner.Run(ctx, s.binary, s.args("-s", "quit")...); err != nil {
		logger.Warnf("nginx -s quit failed: %v", err)
	}
	deadline := time.Now().Add(s.stopTimeout)
	for utils.PathExists(s.PidFile()) && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	if !utils.PathExists(s.PidFile()) {
		logger.Infof("nginx (PID: %d) stopped", pid)
		return nil
	}
	if err := utils.TerminateProcess(pid, "nginx", s.stopTimeout); err != nil {
		return fmt.Errorf("stop nginx: %w", err)
	}
	return utils.RemoveIfExists(s.PidFile())
}
