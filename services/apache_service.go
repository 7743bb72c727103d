package services

import (
	"context"
	"os"
	"path/filepath"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

// ApacheService drives the system apache through apachectl.
type ApacheService struct {
	dir          string
	binary       string
	sitesEnabled string
	pidFile      string
	port         int
	renderer     *Renderer
	runner       utils.CommandRunner
}

func NewApacheService(paths config.Paths, cfg *config.AppConfig, renderer *Renderer, runner utils.CommandRunner) *ApacheService {
	binary := cfg.Apache.Binary
	if binary == "" {
		binary = "apachectl"
	}
	return &ApacheService{
		dir:          paths.ApacheDir,
		binary:       binary,
		sitesEnabled: cfg.Apache.SitesEnabled,
		pidFile:      cfg.Apache.PidFile,
		port:         cfg.Site.Listen,
		renderer:     renderer,
		runner:       runner,
	}
}

func (s *ApacheService) Kind() models.BackendKind {
	return models.BackendApache
}

func (s *ApacheService) DetectInstalled() bool {
	_, err := s.runner.LookPath(s.binary)
	return err == nil
}

func (s *ApacheService) ConfPath(name string) string {
	return filepath.Join(s.dir, name+".conf")
}

// EnabledPath is the symlink apache actually loads.
func (s *ApacheService) EnabledPath(name string) string {
	return filepath.Join(s.sitesEnabled, "furnace-"+name+".conf")
}

/**
 * Write the virtual host of a recipe and enable it
 * @param {models.Recipe} recipe - Recipe to render
 * @param {string} socketPath - php-fpm socket
 * @returns {error} Returns error if the file or the sites-enabled link cannot be written
 */
func (s *ApacheService) WriteConf(recipe models.Recipe, socketPath string) error {
	text, err := s.renderer.Render(recipe, socketPath, models.BackendApache)
	if err != nil {
		return err
	}
	path := s.ConfPath(recipe.Name)
	if err := writeRendered(path, s.renderer.LogsDir(models.BackendApache), text); err != nil {
		return err
	}
	return s.enable(recipe.Name)
}

func (s *ApacheService) enable(name string) error {
	if err := os.MkdirAll(s.sitesEnabled, 0755); err != nil {
		return models.IOError("mkdir", s.sitesEnabled, err)
	}
	if err := utils.ReplaceSymlink(s.ConfPath(name), s.EnabledPath(name)); err != nil {
		return models.IOError("symlink", s.EnabledPath(name), err)
	}
	return nil
}

func (s *ApacheService) ReadConf(name string) ([]byte, error) {
	return readConf(s.ConfPath(name))
}

func (s *ApacheService) RestoreConf(name string, prev []byte) error {
	if prev == nil {
		return s.RemoveConf(name)
	}
	path := s.ConfPath(name)
	if err := utils.WriteFileAtomic(path, prev, 0644); err != nil {
		return models.IOError("restore", path, err)
	}
	return s.enable(name)
}

func (s *ApacheService) RemoveConf(name string) error {
	for _, path := range []string{s.EnabledPath(name), s.ConfPath(name)} {
		if err := utils.RemoveIfExists(path); err != nil {
			return models.IOError("remove", path, err)
		}
	}
	return nil
}

func (s *ApacheService) Validate(ctx context.Context) error {
	_, _, err := s.runner.Run(ctx, s.binary, "configtest")
	return err
}

// IsRunning checks the pid file without touching it, the file belongs to the system apache.
func (s *ApacheService) IsRunning() bool {
	pid, err := utils.ReadPidFile(s.pidFile)
	if err != nil || pid == 0 {
		return false
	}
	running, _ := utils.IsProcessRunning(pid)
	return running
}

func (s *ApacheService) Start(ctx context.Context) error {
	if s.IsRunning() {
		return nil
	}
	if err := s.Validate(ctx); err != nil {
		return err
	}
	if _, _, err := s.runner.Run(ctx, s.binary, "start"); err != nil {
		return portConflict(models.BackendApache, s.port, err)
	}
	logger.Infof("apache started")
	return nil
}

/**
 * Reload apache
 * @param {context.Context} ctx - Bounds the external commands
 * @returns {error} Returns *models.ToolError if the configuration test fails
 * @description
 * - Runs configtest, then graceful
 * - Falls back to stop and start when graceful fails
 */
func (s *ApacheService) Reload(ctx context.Context) error {
	if !s.IsRunning() {
		return s.Start(ctx)
	}
	if err := s.Validate(ctx); err != nil {
		return err
	}
	_, _, err := s.runner.Run(ctx, s.binary, "graceful")
	if err == nil {
		logger.Infof("apache reloaded")
		return nil
	}
	logger.Warnf("apachectl graceful failed, restarting: %v", err)
	if err := s.Stop(ctx); err != nil {
		return err
	}
	if _, _, err := s.runner.Run(ctx, s.binary, "start"); err != nil {
		return portConflict(models.BackendApache, s.port, err)
	}
	return nil
}

func (s *ApacheService) Stop(ctx context.Context) error {
	if !s.IsRunning() {
		return nil
	}
	_, _, err := s.runner.Run(ctx, s.binary, "stop")
	return err
}
