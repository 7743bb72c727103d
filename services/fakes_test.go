package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"furnace/internal/config"
	"furnace/internal/models"
	"furnace/internal/utils"
)

type fakeCall struct {
	Name string
	Args []string
}

func (c fakeCall) String() string {
	return utils.CommandString(c.Name, c.Args)
}

// fakeRunner records commands; hook decides their outcome.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []fakeCall
	missing map[string]bool
	hook    func(name string, args []string) ([]byte, []byte, error)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{missing: map[string]bool{}}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fakeCall{Name: name, Args: append([]string(nil), args...)})
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		return hook(name, args)
	}
	return nil, nil, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[name] {
		return "", os.ErrNotExist
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) Calls() []fakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeCall(nil), f.calls...)
}

// Count returns how many recorded command lines contain substr.
func (f *fakeRunner) Count(substr string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(c.String(), substr) {
			n++
		}
	}
	return n
}

// nginxOp classifies an nginx invocation: test, start, reload or quit.
func nginxOp(args []string) string {
	for i, a := range args {
		if a == "-t" {
			return "test"
		}
		if a == "-s" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return "start"
}

type fakeProbe struct {
	mu    sync.Mutex
	alive map[string]bool
}

func newFakeProbe() *fakeProbe {
	return &fakeProbe{alive: map[string]bool{}}
}

func (p *fakeProbe) Alive(socketPath string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.alive[socketPath]
}

func (p *fakeProbe) Set(socketPath string, alive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alive[socketPath] = alive
}

// fakeProcs pretends to run php-fpm: the socket next to the pool config comes alive on launch.
type fakeProcs struct {
	mu         sync.Mutex
	probe      *fakeProbe
	launched   []string
	terminated []string
	sockets    map[string]string
}

func newFakeProcs(probe *fakeProbe) *fakeProcs {
	return &fakeProcs{probe: probe, sockets: map[string]string{}}
}

func (p *fakeProcs) Launch(ctx context.Context, title, command string, args []string, pidFile string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var pool string
	for i, a := range args {
		if a == "--fpm-config" && i+1 < len(args) {
			pool = args[i+1]
		}
	}
	socket := filepath.Join(filepath.Dir(pool), "php-fpm.sock")
	p.sockets[title] = socket
	p.launched = append(p.launched, title)
	p.probe.Set(socket, true)
	if err := utils.WritePidFile(pidFile, os.Getpid()); err != nil {
		return 0, err
	}
	return os.Getpid(), nil
}

func (p *fakeProcs) Terminate(ctx context.Context, pid int, title string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminated = append(p.terminated, title)
	if socket, ok := p.sockets[title]; ok {
		p.probe.Set(socket, false)
	}
	return nil
}

func (p *fakeProcs) Launched() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.launched...)
}

func (p *fakeProcs) Terminated() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.terminated...)
}

type testEnv struct {
	dir      string
	paths    config.Paths
	cfg      *config.AppConfig
	runner   *fakeRunner
	probe    *fakeProbe
	procs    *fakeProcs
	renderer *Renderer
	store    *RecipeStore
	runtimes *RuntimeManager
	nginx    *NginxService
	apache   *ApacheService
	rec      *Reconciler

	// nginxTestFails makes `nginx -t` fail with nginxTestOutput.
	nginxTestFails  bool
	nginxTestOutput string
}

func testConfig(dir string) *config.AppConfig {
	return &config.AppConfig{
		Site:   config.SiteConfig{TLD: "test", Listen: 80},
		PHP:    config.PHPConfig{User: "dev", Group: "staff"},
		Nginx:  config.NginxConfig{Binary: "nginx"},
		Apache: config.ApacheConfig{
			Binary:       "apachectl",
			SitesEnabled: filepath.Join(dir, "etc", "apache2", "sites-enabled"),
			PidFile:      filepath.Join(dir, "run", "apache2.pid"),
		},
		DNS: config.DNSConfig{Enabled: true},
	}
}

/**
 * newTestEnv builds a reconciler over a temporary home with fake processes
 * @description
 * - nginx start writes a pid file holding the test's own pid, quit removes it
 * - apachectl start/stop maintain the configured pid file the same way
 */
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	e := &testEnv{dir: dir}
	e.paths = config.NewPaths(filepath.Join(dir, "home"))
	e.cfg = testConfig(dir)
	e.runner = newFakeRunner()
	e.probe = newFakeProbe()
	e.procs = newFakeProcs(e.probe)
	e.renderer = NewRenderer(e.paths, e.cfg.Site)
	e.store = NewRecipeStore(e.paths, e.cfg.Site.TLD)
	e.runtimes = NewRuntimeManager(e.paths, e.cfg.PHP, e.renderer, e.runner, e.probe, e.procs)
	e.runtimes.platform = "linux"
	e.runtimes.fallbacks = nil
	e.runtimes.startTimeout = 200 * time.Millisecond
	e.nginx = NewNginxService(e.paths, e.cfg, e.renderer, e.runner)
	e.nginx.stopTimeout = 2 * time.Second
	e.apache = NewApacheService(e.paths, e.cfg, e.renderer, e.runner)
	e.rec = NewReconciler(e.paths, e.cfg, e.store, e.runtimes, e.renderer, e.nginx, e.apache)

	e.runner.hook = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "nginx":
			switch nginxOp(args) {
			case "test":
				if e.nginxTestFails {
					return nil, []byte(e.nginxTestOutput), &models.ToolError{Tool: name, Args: args, ExitCode: 1, Output: e.nginxTestOutput}
				}
			case "start":
				return nil, nil, utils.WritePidFile(e.nginx.PidFile(), os.Getpid())
			case "quit":
				return nil, nil, os.Remove(e.nginx.PidFile())
			}
		case "apachectl":
			switch args[0] {
			case "start":
				return nil, nil, utils.WritePidFile(e.cfg.Apache.PidFile, os.Getpid())
			case "stop":
				return nil, nil, os.Remove(e.cfg.Apache.PidFile)
			}
		}
		return nil, nil, nil
	}
	return e
}

// installRuntime lays out a php install dir the way an archive install would.
func (e *testEnv) installRuntime(t *testing.T, version string) {
	t.Helper()
	dir := e.paths.RuntimeDir(version)
	for _, bin := range []string{"bin/php", "sbin/php-fpm"} {
		path := filepath.Join(dir, bin)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0755))
	}
}

// project creates a project directory below the test root.
func (e *testEnv) project(t *testing.T, rel string) string {
	t.Helper()
	dir := filepath.Join(e.dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "public"), 0755))
	return dir
}
