package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

var (
	ErrDownloadFailed = errors.New("download failed")
	ErrExtractFailed  = errors.New("extract failed")
	ErrBinaryMissing  = fmt.Errorf("binary %w", models.ErrNotFound)
)

const (
	poolConfigName = "furnace-php-fpm.conf"
	pidFileName    = "php-fpm.pid"
	prefixLinkName = "prefix"
)

// HealthProbe tells whether a php-fpm socket accepts connections.
type HealthProbe interface {
	Alive(socketPath string) bool
}

// UnixSocketProbe connect-probes the socket.
type UnixSocketProbe struct {
	Timeout time.Duration
}

func (p UnixSocketProbe) Alive(socketPath string) bool {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 500 * time.Millisecond
	}
	return utils.ProbeUnixSocket(socketPath, timeout)
}

/**
 * RuntimeManager installs and runs php-fpm, one runtime per version
 * @property {config.Paths} paths - State tree, runtimes live in ~/.furnace/php/<version>
 * @property {config.PHPConfig} php - Pool user, group and catalog location
 * @description
 * - Install never happens implicitly, serve only starts what is installed
 * - Liveness is a connect probe on the socket, never the bare socket file
 */
type RuntimeManager struct {
	paths        config.Paths
	php          config.PHPConfig
	renderer     *Renderer
	runner       utils.CommandRunner
	probe        HealthProbe
	procs        ProcessControl
	platform     string
	fallbacks    []string
	startTimeout time.Duration
}

func NewRuntimeManager(paths config.Paths, php config.PHPConfig, renderer *Renderer, runner utils.CommandRunner, probe HealthProbe, procs ProcessControl) *RuntimeManager {
	return &RuntimeManager{
		paths:    paths,
		php:      php,
		renderer: renderer,
		runner:   runner,
		probe:    probe,
		procs:    procs,
		platform: DetectPlatform(),
		fallbacks: []string{
			"/opt/homebrew/opt/php@%s/sbin/php-fpm",
			"/usr/local/opt/php@%s/sbin/php-fpm",
			"/usr/sbin/php-fpm%s",
		},
		startTimeout: 5 * time.Second,
	}
}

func (m *RuntimeManager) installDir(version string) string {
	return m.paths.RuntimeDir(version)
}

// Runtime describes one version and its current state.
func (m *RuntimeManager) Runtime(version string) models.Runtime {
	dir := m.installDir(version)
	rt := models.Runtime{
		Version:    version,
		InstallDir: dir,
		PoolConfig: filepath.Join(dir, poolConfigName),
		SocketPath: m.paths.SocketPath(version),
		PidFile:    filepath.Join(dir, pidFileName),
		State:      models.RuntimeNotInstalled,
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return rt
	}
	rt.State = models.RuntimeInstalled
	if utils.PathExists(rt.PoolConfig) {
		rt.State = models.RuntimeConfigured
	}
	if m.probe.Alive(rt.SocketPath) {
		rt.State = models.RuntimeRunning
	}
	return rt
}

func (m *RuntimeManager) State(version string) models.RuntimeState {
	return m.Runtime(version).State
}

func (m *RuntimeManager) IsRunning(version string) bool {
	return m.probe.Alive(m.paths.SocketPath(version))
}

/**
 * List installed runtimes
 * @returns {[]models.Runtime} Returns runtimes sorted by version number
 */
func (m *RuntimeManager) List() ([]models.Runtime, error) {
	entries, err := os.ReadDir(m.paths.PHPDir)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Runtime{}, nil
	}
	if err != nil {
		return nil, models.IOError("list", m.paths.PHPDir, err)
	}
	var versions []string
	for _, e := range entries {
		if utils.ValidPHPVersion(e.Name()) {
			versions = append(versions, e.Name())
		}
	}
	sortVersions(versions)
	runtimes := []models.Runtime{}
	for _, v := range versions {
		if rt := m.Runtime(v); rt.State != models.RuntimeNotInstalled {
			runtimes = append(runtimes, rt)
		}
	}
	return runtimes, nil
}

/**
 * Install a php version from the catalog
 * @param {context.Context} ctx - Cancels downloads and package manager commands
 * @param {string} version - MAJOR.MINOR version
 * @returns {error} Returns ErrCatalogEntryNotFound, ErrDownloadFailed, ErrExtractFailed,
 * ErrBinaryMissing or *models.ToolError
 * @description
 * - Installing an installed version is a no-op
 * - Archives are unpacked into a staging directory that only replaces the install dir once verified
 */
func (m *RuntimeManager) Install(ctx context.Context, version string) error {
	if !utils.ValidPHPVersion(version) {
		return fmt.Errorf("%w: invalid php version %q", models.ErrNotFound, version)
	}
	if m.State(version) != models.RuntimeNotInstalled {
		logger.Infof("php %s already installed in %s", version, m.installDir(version))
		return nil
	}
	catalog, err := LoadCatalog(m.catalogPath())
	if err != nil {
		return err
	}
	src, err := LookupSource(catalog, version, m.platform)
	if err != nil {
		return err
	}

	switch {
	case src.URL != "":
		err = m.installArchive(ctx, version, src)
	case src.Command != "":
		err = m.installCommand(ctx, version, src)
	default:
		err = m.installLink(version, src.Link)
	}
	if err != nil {
		return err
	}
	logger.Infof("php %s installed in %s", version, m.installDir(version))
	return nil
}

func (m *RuntimeManager) catalogPath() string {
	if m.php.Catalog != "" {
		return m.php.Catalog
	}
	return m.paths.CatalogFile
}

// Available lists the versions the catalog offers, newest last.
func (m *RuntimeManager) Available() ([]string, error) {
	catalog, err := LoadCatalog(m.catalogPath())
	if err != nil {
		return nil, err
	}
	return CatalogVersions(catalog), nil
}

func (m *RuntimeManager) installArchive(ctx context.Context, version string, src *models.PHPSource) error {
	archiveType := src.ArchiveType
	if archiveType == "" {
		return fmt.Errorf("%w: php %s: missing archive type for %s", ErrExtractFailed, version, src.URL)
	}
	dir := m.installDir(version)
	staging := dir + ".partial"
	archive := filepath.Join(m.paths.PHPDir, ".download", "php-"+version+"."+archiveType)
	defer os.RemoveAll(filepath.Dir(archive))
	defer os.RemoveAll(staging)

	logger.Infof("Downloading php %s from %s", version, src.URL)
	if err := utils.GetFile(ctx, src.URL, archive); err != nil {
		return fmt.Errorf("%w: php %s: %v", ErrDownloadFailed, version, err)
	}
	os.RemoveAll(staging)
	if err := utils.ExtractArchive(archive, archiveType, staging); err != nil {
		return fmt.Errorf("%w: php %s: %v", ErrExtractFailed, version, err)
	}
	for _, bin := range m.requiredBinaries() {
		if !utils.PathExists(filepath.Join(staging, bin)) {
			return fmt.Errorf("%w: php %s: %s not found in archive", ErrBinaryMissing, version, bin)
		}
	}
	if err := os.Rename(staging, dir); err != nil {
		return models.IOError("rename", staging, err)
	}
	return nil
}

func (m *RuntimeManager) requiredBinaries() []string {
	if m.platform == "windows" {
		return []string{"php.exe"}
	}
	return []string{filepath.Join("bin", "php"), filepath.Join("sbin", "php-fpm")}
}

/**
 * Install through the host package manager
 * @description
 * - The command is a template, {{.Version}} expands to the version
 * - After `brew install` the brew prefix is linked into the install dir
 */
func (m *RuntimeManager) installCommand(ctx context.Context, version string, src *models.PHPSource) error {
	name, args, err := utils.GetCommandLine(src.Command, struct{ Version string }{Version: version})
	if err != nil {
		return fmt.Errorf("php %s: %w", version, err)
	}
	logger.Infof("Running install command: %s", utils.CommandString(name, args))
	if _, _, err := m.runner.Run(ctx, name, args...); err != nil {
		return err
	}
	if m.platform == "macos" && filepath.Base(name) == "brew" && len(args) > 0 && args[0] == "install" {
		out, _, err := m.runner.Run(ctx, name, "--prefix", "php@"+version)
		if err != nil {
			return err
		}
		return m.installLink(version, strings.TrimSpace(string(out)))
	}
	return m.createInstallDir(version)
}

func (m *RuntimeManager) installLink(version, prefix string) error {
	if fi, err := os.Stat(prefix); err != nil || !fi.IsDir() {
		return fmt.Errorf("%w: php %s: prefix %q does not exist", ErrBinaryMissing, version, prefix)
	}
	if err := m.createInstallDir(version); err != nil {
		return err
	}
	link := filepath.Join(m.installDir(version), prefixLinkName)
	if err := utils.ReplaceSymlink(prefix, link); err != nil {
		return models.IOError("symlink", link, err)
	}
	return nil
}

func (m *RuntimeManager) createInstallDir(version string) error {
	dir := m.installDir(version)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return models.IOError("mkdir", dir, err)
	}
	return nil
}

/**
 * Write the php-fpm configuration of a version
 * @param {string} version - Installed version
 * @returns {bool} Returns true if the file changed
 * @returns {error} Returns models.ErrNotFound when the version is not installed
 */
func (m *RuntimeManager) Configure(version string) (bool, error) {
	rt := m.Runtime(version)
	if rt.State == models.RuntimeNotInstalled {
		return false, fmt.Errorf("%w: php %s is not installed", models.ErrNotFound, version)
	}
	text, err := m.renderer.RenderPool(PoolData{
		Version:  version,
		User:     m.php.User,
		Group:    m.php.Group,
		Socket:   rt.SocketPath,
		PidFile:  rt.PidFile,
		ErrorLog: filepath.Join(rt.InstallDir, "php-fpm.log"),
	})
	if err != nil {
		return false, err
	}
	if cur, err := os.ReadFile(rt.PoolConfig); err == nil && string(cur) == text {
		return false, nil
	}
	if err := utils.WriteFileAtomic(rt.PoolConfig, []byte(text), 0644); err != nil {
		return false, models.IOError("write", rt.PoolConfig, err)
	}
	return true, nil
}

// FindBinary locates php-fpm for version, the install dir first, then well known system paths.
func (m *RuntimeManager) FindBinary(version string) (string, error) {
	dir := m.installDir(version)
	name := "php-fpm"
	if runtime.GOOS == "windows" {
		name = "php-cgi.exe"
	}
	var candidates []string
	for _, base := range []string{dir, filepath.Join(dir, prefixLinkName)} {
		candidates = append(candidates,
			filepath.Join(base, "sbin", name),
			filepath.Join(base, "sbin", name+version),
			filepath.Join(base, "bin", name))
	}
	for _, f := range m.fallbacks {
		candidates = append(candidates, fmt.Sprintf(f, version))
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: php-fpm for php %s", ErrBinaryMissing, version)
}

/**
 * Start php-fpm for a version
 * @param {context.Context} ctx - Bounds the launch
 * @param {string} version - Installed version
 * @returns {error} Returns models.ErrNotFound if not installed, ErrBinaryMissing if no php-fpm exists,
 * models.ErrResourceUnavailable if the socket never comes up
 * @description
 * - Running is success
 * - A process left over without a live socket is stopped first
 * - A stale socket file is removed before launch
 */
func (m *RuntimeManager) Start(ctx context.Context, version string) error {
	if m.IsRunning(version) {
		return nil
	}
	rt := m.Runtime(version)
	if rt.State == models.RuntimeNotInstalled {
		return fmt.Errorf("%w: php %s is not installed", models.ErrNotFound, version)
	}
	if rt.State == models.RuntimeInstalled {
		if _, err := m.Configure(version); err != nil {
			return err
		}
	}
	if pid := utils.LivePid(rt.PidFile); pid != 0 {
		logger.Warnf("php-fpm %s (PID: %d) has no live socket, stopping it", version, pid)
		if err := m.procs.Terminate(ctx, pid, "php-fpm "+version); err != nil {
			return err
		}
		utils.RemoveIfExists(rt.PidFile)
	}
	if err := utils.RemoveIfExists(rt.SocketPath); err != nil {
		return models.IOError("remove", rt.SocketPath, err)
	}

	bin, err := m.FindBinary(version)
	if err != nil {
		return err
	}
	args := []string{"--nodaemonize", "--fpm-config", rt.PoolConfig}
	if _, err := m.procs.Launch(ctx, "php-fpm "+version, bin, args, rt.PidFile); err != nil {
		return err
	}

	deadline := time.Now().Add(m.startTimeout)
	for !m.IsRunning(version) {
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: php-fpm %s did not open %s", models.ErrResourceUnavailable, version, rt.SocketPath)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	logger.Infof("php-fpm %s listening on %s", version, rt.SocketPath)
	return nil
}

/**
 * Stop php-fpm for a version
 * @param {context.Context} ctx - Bounds the shutdown
 * @param {string} version - php version
 * @returns {bool} Returns true if a process was stopped
 * @description
 * - No pid file is success
 * - The pid file and the socket are removed afterwards
 */
func (m *RuntimeManager) Stop(ctx context.Context, version string) (bool, error) {
	rt := m.Runtime(version)
	pid := utils.LivePid(rt.PidFile)
	stopped := false
	if pid != 0 {
		if err := m.procs.Terminate(ctx, pid, "php-fpm "+version); err != nil {
			return false, err
		}
		stopped = true
	}
	for _, path := range []string{rt.PidFile, rt.SocketPath} {
		if err := utils.RemoveIfExists(path); err != nil {
			return stopped, models.IOError("remove", path, err)
		}
	}
	return stopped, nil
}
