package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"furnace/internal/config"
	"furnace/internal/models"
)

/**
 * TestCookAndServeBlog 注册项目并启动服务
 * @description
 * - php 8.3 已安装，项目位于 srv/blog
 * - cook 之后 php-fpm 与 nginx 都处于运行状态
 * - 配置文件指向 8.3 的 socket
 */
func TestCookAndServeBlog(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")

	rc, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	require.NotNil(t, rc)
	assert.Equal(t, "blog", rc.Name)
	assert.Equal(t, "blog.test", rc.Site)
	assert.Equal(t, models.BackendNginx, rc.ServeWith)

	assert.True(t, fileIsSymlink(BackRefPath(dir)))
	conf, err := os.ReadFile(e.nginx.ConfPath("blog"))
	require.NoError(t, err)
	assert.Contains(t, string(conf), "server_name blog.test;")
	assert.Contains(t, string(conf), "root "+dir+"/public;")
	assert.Contains(t, string(conf), "fastcgi_pass unix:"+e.paths.SocketPath("8.3")+";")

	assert.True(t, e.runtimes.IsRunning("8.3"))
	assert.True(t, e.nginx.IsRunning())
	assert.FileExists(t, ResolverSnippetPath(e.paths.DnsmasqDir, "test"))

	// php-fpm comes up before nginx is started
	assert.Equal(t, []string{"php-fpm 8.3"}, e.procs.Launched())

	tests := countOp(e.runner, "test")
	rep = e.rec.Serve(ctx)
	require.NoError(t, rep.Err())
	assert.Equal(t, 1, countOp(e.runner, "start"))
	assert.Equal(t, tests+1, countOp(e.runner, "test"), "serve validates once")
	assert.Equal(t, 1, countOp(e.runner, "reload"), "a running nginx is reloaded once per serve")
}

// failNginxReload makes `nginx -s reload` fail while *fail is true.
func (e *testEnv) failNginxReload(fail *bool) {
	base := e.runner.hook
	e.runner.hook = func(name string, args []string) ([]byte, []byte, error) {
		if name == "nginx" && nginxOp(args) == "reload" && *fail {
			return nil, []byte("nginx: [error] kill failed"), &models.ToolError{Tool: name, Args: args, ExitCode: 1, Output: "kill failed"}
		}
		return base(name, args)
	}
}

/**
 * TestServeReloadsAfterFailedReload 上次 reload 失败后 serve 自动修复
 * @description
 * - shop 的配置已写入但 nginx 没有加载
 * - 再次 serve 时文件未变化，仍然需要 reload
 */
func TestServeReloadsAfterFailedReload(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: e.project(t, "srv/blog"), PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	require.True(t, e.nginx.IsRunning())

	reloadFails := true
	e.failNginxReload(&reloadFails)
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: e.project(t, "srv/shop"), PHPVersion: "8.3"})
	require.Error(t, rep.Err())
	assert.Contains(t, rep.Err().Error(), "reload nginx")
	assert.FileExists(t, e.nginx.ConfPath("shop"))

	reloadFails = false
	reloads := countOp(e.runner, "reload")
	rep = e.rec.Serve(ctx)
	require.NoError(t, rep.Err())
	assert.Equal(t, reloads+1, countOp(e.runner, "reload"))
	assert.Contains(t, rep.Actions, "reloaded nginx")
}

func TestCookIsIdempotent(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")

	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	record, _ := os.ReadFile(e.store.RecordPath("blog"))
	conf, _ := os.ReadFile(e.nginx.ConfPath("blog"))

	rc, rep := e.rec.Cook(ctx, CookOptions{Dir: dir})
	require.NoError(t, rep.Err())
	assert.Equal(t, "8.3", rc.PHPVersion, "unset options keep the stored values")

	record2, _ := os.ReadFile(e.store.RecordPath("blog"))
	conf2, _ := os.ReadFile(e.nginx.ConfPath("blog"))
	assert.Equal(t, record, record2)
	assert.Equal(t, conf, conf2)

	list, err := e.store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCookReadsComposer(t *testing.T) {
	e := newTestEnv(t)
	e.installRuntime(t, "8.2")
	dir := e.project(t, "srv/shop")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "composer.json"),
		[]byte(`{"require": {"php": "^8.2.1", "laravel/framework": "^11.0"}}`), 0644))

	rc, rep := e.rec.Cook(context.Background(), CookOptions{Dir: dir, Name: "shop"})
	require.NoError(t, rep.Err())
	assert.Equal(t, "8.2", rc.PHPVersion)
}

func TestCookUsesGlobalDefault(t *testing.T) {
	e := newTestEnv(t)
	e.installRuntime(t, "8.4")
	e.cfg.PHP.Default = "8.4"
	dir := e.project(t, "srv/plain")

	rc, rep := e.rec.Cook(context.Background(), CookOptions{Dir: dir})
	require.NoError(t, rep.Err())
	assert.Equal(t, "8.4", rc.PHPVersion)
}

func TestCookRename(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")

	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	rc, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, Name: "journal"})
	require.NoError(t, rep.Err())
	assert.Equal(t, "journal.test", rc.Site)

	assert.NoFileExists(t, e.store.RecordPath("blog"))
	assert.NoFileExists(t, e.nginx.ConfPath("blog"))
	assert.FileExists(t, e.nginx.ConfPath("journal"))
	target, err := os.Readlink(BackRefPath(dir))
	require.NoError(t, err)
	assert.Equal(t, e.store.RecordPath("journal"), target)
}

func TestCookInvalidRenameKeepsRecipe(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: e.project(t, "srv/shop"), PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	conf, err := os.ReadFile(e.nginx.ConfPath("blog"))
	require.NoError(t, err)
	reloads := countOp(e.runner, "reload")

	for _, name := range []string{"bad name", "shop"} {
		rc, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, Name: name})
		require.Error(t, rep.Err(), name)
		assert.Nil(t, rc)
		if name == "shop" {
			assert.True(t, errors.Is(rep.Err(), models.ErrConflict))
		}

		got, err := e.store.GetByPath(dir)
		require.NoError(t, err)
		require.NotNil(t, got, name)
		assert.Equal(t, "blog", got.Name)
		target, err := os.Readlink(BackRefPath(dir))
		require.NoError(t, err)
		assert.Equal(t, e.store.RecordPath("blog"), target)
		after, err := os.ReadFile(e.nginx.ConfPath("blog"))
		require.NoError(t, err)
		assert.Equal(t, string(conf), string(after))
	}
	assert.Equal(t, reloads, countOp(e.runner, "reload"))

	shop, err := e.store.Get("shop")
	require.NoError(t, err)
	assert.NotEqual(t, dir, shop.Path)
}

func TestCookSwitchBackend(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")

	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: dir, ServeWith: models.BackendApache})
	require.NoError(t, rep.Err())

	assert.NoFileExists(t, e.nginx.ConfPath("blog"))
	assert.FileExists(t, e.apache.ConfPath("blog"))
	assert.True(t, fileIsSymlink(e.apache.EnabledPath("blog")))
	assert.True(t, e.apache.IsRunning())
}

/**
 * TestCookSwitchBackendKeepsOldUntilAccepted 切换 web 服务失败
 * @description
 * - apache 配置校验失败或未安装时，nginx 继续提供服务
 * - 之后切换成功才删除 nginx 的配置
 */
func TestCookSwitchBackendKeepsOldUntilAccepted(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())

	configtestFails := true
	base := e.runner.hook
	e.runner.hook = func(name string, args []string) ([]byte, []byte, error) {
		if name == "apachectl" && args[0] == "configtest" && configtestFails {
			return nil, []byte("Syntax error"), &models.ToolError{Tool: name, Args: args, ExitCode: 1, Output: "Syntax error"}
		}
		return base(name, args)
	}

	_, rep = e.rec.Cook(ctx, CookOptions{Dir: dir, ServeWith: models.BackendApache})
	require.Error(t, rep.Err())
	assert.FileExists(t, e.nginx.ConfPath("blog"))
	assert.NoFileExists(t, e.apache.ConfPath("blog"))
	assert.Contains(t, strings.Join(rep.Warnings, "\n"), "nginx keeps serving blog.test")

	e.runner.missing["apachectl"] = true
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: dir, ServeWith: models.BackendApache})
	require.NoError(t, rep.Err())
	assert.FileExists(t, e.nginx.ConfPath("blog"))

	e.runner.missing["apachectl"] = false
	configtestFails = false
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: dir, ServeWith: models.BackendApache})
	require.NoError(t, rep.Err())
	assert.NoFileExists(t, e.nginx.ConfPath("blog"))
	assert.FileExists(t, e.apache.ConfPath("blog"))
}

func TestCookWarnsOutsideLaravel(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")

	plain := e.project(t, "srv/plain")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: plain, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())
	assert.Contains(t, strings.Join(rep.Warnings, "\n"), "not a Laravel project")

	app := e.project(t, "srv/app")
	require.NoError(t, os.WriteFile(filepath.Join(app, "artisan"), []byte("<?php\n"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(app, "composer.json"), []byte(`{"require": {"php": "^8.3"}}`), 0644))
	rc, rep := e.rec.Cook(ctx, CookOptions{Dir: app})
	require.NoError(t, rep.Err())
	assert.Equal(t, "8.3", rc.PHPVersion)
	assert.NotContains(t, strings.Join(rep.Warnings, "\n"), "not a Laravel project")
}

/**
 * TestValidationFailureKeepsPreviousConfig 配置校验失败
 * @description
 * - nginx -t 失败时不允许 reload
 * - 磁盘上仍是之前生效的配置
 * - 错误中带有 nginx 的原始输出
 */
func TestValidationFailureKeepsPreviousConfig(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.2")
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")

	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.2"})
	require.NoError(t, rep.Err())
	before, err := os.ReadFile(e.nginx.ConfPath("blog"))
	require.NoError(t, err)
	reloads := countOp(e.runner, "reload")

	e.nginxTestFails = true
	e.nginxTestOutput = "nginx: [emerg] invalid number of arguments in servers/blog.conf:3"
	_, rep = e.rec.UsePHP(ctx, dir, "8.3")
	err = rep.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrExternalTool))
	assert.Contains(t, err.Error(), "invalid number of arguments")

	after, err := os.ReadFile(e.nginx.ConfPath("blog"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, reloads, countOp(e.runner, "reload"))
	assert.True(t, e.nginx.IsRunning())
}

func TestCookReportsUnreadableConfig(t *testing.T) {
	e := newTestEnv(t)
	dir := e.project(t, "srv/blog")
	require.NoError(t, os.MkdirAll(e.nginx.ConfPath("blog"), 0755))

	_, rep := e.rec.Cook(context.Background(), CookOptions{Dir: dir})
	require.Error(t, rep.Err())
	assert.Contains(t, rep.Err().Error(), "recipe blog")
	assert.Equal(t, 0, countOp(e.runner, "test"))
	assert.Equal(t, 0, countOp(e.runner, "start"))
}

func TestValidationFailureRemovesNewConfig(t *testing.T) {
	e := newTestEnv(t)
	e.nginxTestFails = true
	e.nginxTestOutput = "nginx: [emerg] broken"
	dir := e.project(t, "srv/new")

	_, rep := e.rec.Cook(context.Background(), CookOptions{Dir: dir})
	require.Error(t, rep.Err())
	assert.NoFileExists(t, e.nginx.ConfPath("new"))
	assert.Equal(t, 0, countOp(e.runner, "start"))
}

func TestStopOnEmptyEnvironment(t *testing.T) {
	e := newTestEnv(t)
	rep := e.rec.Stop(context.Background())
	assert.NoError(t, rep.Err())
	assert.Empty(t, rep.Actions)
	assert.Empty(t, e.runner.Calls())
	assert.Empty(t, e.procs.Terminated())
}

func TestServeAndStop(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.2")
	e.installRuntime(t, "8.3")
	require.NoError(t, e.store.Put(&models.Recipe{Name: "blog", Path: e.project(t, "srv/blog"), PHPVersion: "8.3"}))
	require.NoError(t, e.store.Put(&models.Recipe{Name: "shop", Path: e.project(t, "srv/shop"), PHPVersion: "8.2"}))
	require.NoError(t, e.store.Put(&models.Recipe{Name: "wiki", Path: e.project(t, "srv/wiki"), PHPVersion: "8.3"}))

	rep := e.rec.Serve(ctx)
	require.NoError(t, rep.Err())
	assert.ElementsMatch(t, []string{"php-fpm 8.2", "php-fpm 8.3"}, e.procs.Launched())
	assert.Equal(t, 1, countOp(e.runner, "start"))
	for _, name := range []string{"blog", "shop", "wiki"} {
		assert.FileExists(t, e.nginx.ConfPath(name))
	}

	rep = e.rec.Stop(ctx)
	require.NoError(t, rep.Err())
	assert.False(t, e.nginx.IsRunning())
	assert.False(t, e.runtimes.IsRunning("8.2"))
	assert.False(t, e.runtimes.IsRunning("8.3"))
	assert.ElementsMatch(t, []string{"php-fpm 8.2", "php-fpm 8.3"}, e.procs.Terminated())

	rep = e.rec.Restart(ctx)
	require.NoError(t, rep.Err())
	assert.True(t, e.nginx.IsRunning())
	assert.Equal(t, 2, countOp(e.runner, "start"))
}

func TestServeMissingRuntimeIsNotInstalled(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, e.store.Put(&models.Recipe{Name: "blog", Path: e.project(t, "srv/blog"), PHPVersion: "8.3"}))

	rep := e.rec.Serve(context.Background())
	err := rep.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.Equal(t, models.RuntimeNotInstalled, e.runtimes.State("8.3"))
	assert.Empty(t, e.procs.Launched())
	assert.FileExists(t, e.nginx.ConfPath("blog"), "configs are still written")
}

func TestServeSkipsMissingBackend(t *testing.T) {
	e := newTestEnv(t)
	e.runner.missing["apachectl"] = true
	e.installRuntime(t, "8.3")
	require.NoError(t, e.store.Put(&models.Recipe{Name: "blog", Path: e.project(t, "srv/blog"),
		PHPVersion: "8.3", ServeWith: models.BackendApache}))

	rep := e.rec.Serve(context.Background())
	require.NoError(t, rep.Err())
	require.Len(t, rep.Warnings, 1)
	assert.Contains(t, rep.Warnings[0], "apache is not installed")
	assert.NoFileExists(t, e.apache.ConfPath("blog"))
}

func TestDisposeTwice(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())

	rep = e.rec.Dispose(ctx, "blog")
	require.NoError(t, rep.Err())
	assert.NoFileExists(t, e.store.RecordPath("blog"))
	assert.False(t, fileIsSymlink(BackRefPath(dir)))
	assert.NoFileExists(t, e.nginx.ConfPath("blog"))
	assert.NoFileExists(t, e.apache.ConfPath("blog"))
	assert.Equal(t, 1, countOp(e.runner, "reload"))

	rep = e.rec.Dispose(ctx, "blog")
	require.NoError(t, rep.Err())
	assert.NotEmpty(t, rep.Warnings)
	assert.Equal(t, 1, countOp(e.runner, "reload"))
}

/**
 * TestUsePHPRendersOnlyThatRecipe 切换单个项目的 php 版本
 * @description
 * - 只重写该项目的配置
 * - 其他项目的配置保持不变
 */
func TestUsePHPRendersOnlyThatRecipe(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.2")
	e.installRuntime(t, "8.3")
	blog := e.project(t, "srv/blog")
	shop := e.project(t, "srv/shop")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: blog, PHPVersion: "8.2"})
	require.NoError(t, rep.Err())
	_, rep = e.rec.Cook(ctx, CookOptions{Dir: shop, PHPVersion: "8.2"})
	require.NoError(t, rep.Err())

	shopConf := e.nginx.ConfPath("shop")
	require.NoError(t, os.WriteFile(shopConf, []byte("# hand edited\n"), 0644))

	rc, rep := e.rec.UsePHP(ctx, blog, "8.3")
	require.NoError(t, rep.Err())
	require.NotNil(t, rc)
	assert.Equal(t, "8.3", rc.PHPVersion)

	blogConf, _ := os.ReadFile(e.nginx.ConfPath("blog"))
	assert.Contains(t, string(blogConf), e.paths.SocketPath("8.3"))
	untouched, _ := os.ReadFile(shopConf)
	assert.Equal(t, "# hand edited\n", string(untouched))
	assert.True(t, e.runtimes.IsRunning("8.3"))

	stored, err := e.store.Get("blog")
	require.NoError(t, err)
	assert.Equal(t, "8.3", stored.PHPVersion)
}

func TestUsePHPOutsideProject(t *testing.T) {
	e := newTestEnv(t)
	e.installRuntime(t, "8.3")

	rc, rep := e.rec.UsePHP(context.Background(), e.project(t, "somewhere"), "8.3")
	require.NoError(t, rep.Err())
	assert.Nil(t, rc)

	loaded, err := config.LoadConfig(e.paths)
	require.NoError(t, err)
	assert.Equal(t, "8.3", loaded.PHP.Default)
}

func TestUsePHPNotInstalled(t *testing.T) {
	e := newTestEnv(t)
	dir := e.project(t, "srv/blog")
	require.NoError(t, e.store.Put(&models.Recipe{Name: "blog", Path: dir, PHPVersion: "8.2"}))

	_, rep := e.rec.UsePHP(context.Background(), dir, "8.3")
	assert.True(t, errors.Is(rep.Err(), models.ErrNotFound))
	stored, _ := e.store.Get("blog")
	assert.Equal(t, "8.2", stored.PHPVersion)
	assert.Empty(t, e.runner.Calls())
}

func TestStatusDrift(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.installRuntime(t, "8.3")
	dir := e.project(t, "srv/blog")
	_, rep := e.rec.Cook(ctx, CookOptions{Dir: dir, PHPVersion: "8.3"})
	require.NoError(t, rep.Err())

	st, err := e.rec.Status(ctx, true)
	require.NoError(t, err)
	require.Len(t, st.Recipes, 1)
	assert.True(t, st.Recipes[0].Rendered)
	assert.False(t, st.Recipes[0].Drifted)
	assert.True(t, st.Recipes[0].PHPRunning)
	require.Len(t, st.Runtimes, 1)
	assert.Equal(t, models.RuntimeRunning, st.Runtimes[0].State)
	require.Len(t, st.Backends, 2)
	assert.Equal(t, models.BackendApache, st.Backends[0].Kind)
	assert.Equal(t, models.StatusStopped, st.Backends[0].Status)
	assert.Equal(t, models.StatusRunning, st.Backends[1].Status)
	assert.Equal(t, 1, st.Backends[1].Recipes)

	conf := e.nginx.ConfPath("blog")
	data, _ := os.ReadFile(conf)
	require.NoError(t, os.WriteFile(conf, []byte(strings.Replace(string(data), "listen 80;", "listen 81;", 1)), 0644))

	st, err = e.rec.Status(ctx, true)
	require.NoError(t, err)
	assert.True(t, st.Recipes[0].Drifted)
	assert.Contains(t, st.Recipes[0].Diff, "-    listen 81;")
	assert.Contains(t, st.Recipes[0].Diff, "+    listen 80;")
}

func TestInstallPreparesTree(t *testing.T) {
	e := newTestEnv(t)
	e.runner.missing["apachectl"] = true

	rep := e.rec.Install(context.Background())
	require.NoError(t, rep.Err())
	assert.FileExists(t, e.paths.CatalogFile)
	assert.FileExists(t, e.nginx.MainConfPath())
	assert.DirExists(t, e.paths.RecipesDir)
	assert.DirExists(t, e.paths.PHPDir)
	assert.Len(t, rep.Warnings, 1)
}

func TestReportJSON(t *testing.T) {
	rep := newReport("serve")
	rep.actionf("started %s", "nginx")
	rep.fail(errors.New("boom"))

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.JSONEq(t, `{"operation":"serve","actions":["started nginx"],"warnings":[],"errors":["boom"]}`, string(data))
}

func TestDiffConf(t *testing.T) {
	assert.Empty(t, DiffConf("a\nb\n", "a\nb\n"))
	d := DiffConf("a\nb\nc\n", "a\nx\nc\n")
	assert.Equal(t, "-b\n+x\n", d)
}
