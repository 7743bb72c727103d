package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"furnace/internal/config"
	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

/**
 * Report collects what one reconcile operation did
 * @property {string} operation - serve/stop/restart/cook/dispose/php-use
 * @property {[]string} actions - Changes applied, in order
 * @property {[]string} warnings - Problems that did not fail the operation
 * @property {[]error} errors - Failures, the operation went on past each of them
 */
type Report struct {
	Operation string
	Actions   []string
	Warnings  []string
	Errors    []error
}

func newReport(op string) *Report {
	return &Report{Operation: op}
}

// Err joins every recorded failure, nil when the operation fully succeeded.
func (r *Report) Err() error {
	return errors.Join(r.Errors...)
}

func (r *Report) Merge(o *Report) {
	r.Actions = append(r.Actions, o.Actions...)
	r.Warnings = append(r.Warnings, o.Warnings...)
	r.Errors = append(r.Errors, o.Errors...)
}

func (r *Report) actionf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	logger.Infof("[%s] %s", r.Operation, msg)
	r.Actions = append(r.Actions, msg)
}

func (r *Report) warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	logger.Warnf("[%s] %s", r.Operation, msg)
	r.Warnings = append(r.Warnings, msg)
}

func (r *Report) fail(err error) {
	logger.Errorf("[%s] %v", r.Operation, err)
	r.Errors = append(r.Errors, err)
}

func (r *Report) MarshalJSON() ([]byte, error) {
	errs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e.Error())
	}
	return json.Marshal(struct {
		Operation string   `json:"operation"`
		Actions   []string `json:"actions"`
		Warnings  []string `json:"warnings"`
		Errors    []string `json:"errors"`
	}{r.Operation, nonNil(r.Actions), nonNil(r.Warnings), errs})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

/**
 * CookOptions describes a project to register
 * @property {string} dir - Project directory
 * @property {string} name - Recipe name, defaults to the directory name
 * @property {string} phpVersion - php version or constraint, defaults to composer.json
 * @property {models.BackendKind} serveWith - nginx/apache
 * @property {string} site - Host name override
 */
type CookOptions struct {
	Dir        string
	Name       string
	PHPVersion string
	ServeWith  models.BackendKind
	Site       string
}

/**
 * Reconciler drives the running environment towards the recipe store
 * @description
 * - php-fpm for a version is started before any config using its socket is written
 * - All configs of a backend are written before its single validate and reload
 * - A failed validation puts the previous config files back
 */
type Reconciler struct {
	paths    config.Paths
	cfg      *config.AppConfig
	store    *RecipeStore
	runtimes *RuntimeManager
	renderer *Renderer
	backends map[models.BackendKind]WebService
}

func NewReconciler(paths config.Paths, cfg *config.AppConfig, store *RecipeStore, runtimes *RuntimeManager,
	renderer *Renderer, backends ...WebService) *Reconciler {
	r := &Reconciler{
		paths:    paths,
		cfg:      cfg,
		store:    store,
		runtimes: runtimes,
		renderer: renderer,
		backends: make(map[models.BackendKind]WebService),
	}
	for _, b := range backends {
		r.backends[b.Kind()] = b
	}
	return r
}

// NewDefaultReconciler wires the real backends, processes and probes.
func NewDefaultReconciler(paths config.Paths, cfg *config.AppConfig) *Reconciler {
	runner := utils.ExecRunner{}
	renderer := NewRenderer(paths, cfg.Site)
	store := NewRecipeStore(paths, cfg.Site.TLD)
	runtimes := NewRuntimeManager(paths, cfg.PHP, renderer, runner, UnixSocketProbe{}, DetachedProcessControl{})
	return NewReconciler(paths, cfg, store, runtimes, renderer,
		NewNginxService(paths, cfg, renderer, runner),
		NewApacheService(paths, cfg, renderer, runner))
}

func (r *Reconciler) Store() *RecipeStore {
	return r.store
}

func (r *Reconciler) Runtimes() *RuntimeManager {
	return r.runtimes
}

func (r *Reconciler) Backend(kind models.BackendKind) (WebService, bool) {
	ws, ok := r.backends[kind]
	return ws, ok
}

func (r *Reconciler) socketFor(rc models.Recipe) string {
	return r.paths.SocketPath(rc.PHPVersion)
}

func (r *Reconciler) finish(rep *Report, start time.Time) {
	ObserveReconcile(rep.Operation, start, rep.Err())
}

/**
 * Bring every recipe online
 * @param {context.Context} ctx - Bounds external commands
 * @returns {*Report} Returns the actions taken and every failure
 * @description
 * - A missing runtime is reported, never installed
 * - A backend that is not installed is skipped with a warning
 * - Failures of one version or backend do not stop the others
 */
func (r *Reconciler) Serve(ctx context.Context) *Report {
	rep := newReport("serve")
	defer r.finish(rep, time.Now())

	recipes, err := r.store.List()
	if err != nil {
		rep.fail(err)
		return rep
	}
	r.serveRecipes(ctx, rep, recipes)
	return rep
}

func (r *Reconciler) serveRecipes(ctx context.Context, rep *Report, recipes []models.Recipe) {
	versions := map[string]bool{}
	for _, rc := range recipes {
		if rc.HasPHPVersion() {
			versions[rc.PHPVersion] = true
		}
	}
	sorted := make([]string, 0, len(versions))
	for v := range versions {
		sorted = append(sorted, v)
	}
	sortVersions(sorted)
	for _, v := range sorted {
		r.ensureRuntime(ctx, rep, v)
	}

	byKind := map[models.BackendKind][]models.Recipe{}
	for _, rc := range recipes {
		byKind[rc.ServeWith] = append(byKind[rc.ServeWith], rc)
	}
	for _, kind := range SortedKinds(byKind) {
		ws, ok := r.backends[kind]
		if !ok {
			rep.fail(fmt.Errorf("%w: backend %q", models.ErrNotFound, kind))
			continue
		}
		r.applyBackend(ctx, rep, ws, byKind[kind])
	}
	if len(recipes) > 0 {
		r.writeResolver(rep)
	}
}

// ensureRuntime configures and starts php-fpm for version, reporting false on failure.
func (r *Reconciler) ensureRuntime(ctx context.Context, rep *Report, version string) bool {
	if r.runtimes.State(version) == models.RuntimeNotInstalled {
		rep.fail(fmt.Errorf("php %s: %w, run `furnace php install %s`", version, models.ErrNotFound, version))
		return false
	}
	wasRunning := r.runtimes.IsRunning(version)
	changed, err := r.runtimes.Configure(version)
	if err != nil {
		rep.fail(fmt.Errorf("configure php %s: %w", version, err))
		return false
	}
	if changed {
		rep.actionf("configured php-fpm %s", version)
		if wasRunning {
			if _, err := r.runtimes.Stop(ctx, version); err != nil {
				rep.fail(fmt.Errorf("restart php %s: %w", version, err))
				return false
			}
			wasRunning = false
		}
	}
	if wasRunning {
		return true
	}
	if err := r.runtimes.Start(ctx, version); err != nil {
		rep.fail(fmt.Errorf("start php %s: %w", version, err))
		return false
	}
	rep.actionf("started php-fpm %s", version)
	return true
}

/**
 * Write the configs of recipes to one backend and activate them
 * @param {context.Context} ctx - Bounds external commands
 * @param {*Report} rep - Receives actions and failures
 * @param {WebService} ws - Target backend
 * @param {[]models.Recipe} recipes - Recipes served by ws
 * @description
 * - Previous file contents are captured before writing
 * - Any write or validation failure restores them, the running server keeps its old config
 * - A running server is reloaded once even when no file changed, an earlier run may have written
 *   configs without getting its reload through
 * @returns {bool} Returns true when the configs are on disk and the server accepted them
 */
func (r *Reconciler) applyBackend(ctx context.Context, rep *Report, ws WebService, recipes []models.Recipe) bool {
	kind := ws.Kind()
	if !ws.DetectInstalled() {
		rep.warnf("%s is not installed, %d recipe(s) skipped", kind, len(recipes))
		return false
	}

	prev := map[string][]byte{}
	var written []string
	for _, rc := range recipes {
		old, err := ws.ReadConf(rc.Name)
		if err != nil {
			rep.fail(fmt.Errorf("recipe %s: %w", rc.Name, err))
			r.restore(rep, ws, prev, written)
			return false
		}
		prev[rc.Name] = old
		written = append(written, rc.Name)
		if err := ws.WriteConf(rc, r.socketFor(rc)); err != nil {
			rep.fail(fmt.Errorf("recipe %s: write %s config: %w", rc.Name, kind, err))
			r.restore(rep, ws, prev, written)
			return false
		}
		cur, err := ws.ReadConf(rc.Name)
		if err != nil {
			rep.fail(fmt.Errorf("recipe %s: %w", rc.Name, err))
			r.restore(rep, ws, prev, written)
			return false
		}
		if old == nil || string(cur) != string(old) {
			rep.actionf("wrote %s", ws.ConfPath(rc.Name))
		}
	}

	if err := ws.Validate(ctx); err != nil {
		r.restore(rep, ws, prev, written)
		rep.fail(fmt.Errorf("%s configuration test failed, previous config kept: %w", kind, err))
		return false
	}
	return r.activate(ctx, rep, ws)
}

func (r *Reconciler) activate(ctx context.Context, rep *Report, ws WebService) bool {
	if ws.IsRunning() {
		if err := ws.Reload(ctx); err != nil {
			rep.fail(fmt.Errorf("reload %s: %w", ws.Kind(), err))
			return false
		}
		rep.actionf("reloaded %s", ws.Kind())
		return true
	}
	if err := ws.Start(ctx); err != nil {
		rep.fail(fmt.Errorf("start %s: %w", ws.Kind(), err))
		return false
	}
	rep.actionf("started %s", ws.Kind())
	return true
}

func (r *Reconciler) restore(rep *Report, ws WebService, prev map[string][]byte, written []string) {
	for _, name := range written {
		if err := ws.RestoreConf(name, prev[name]); err != nil {
			rep.fail(fmt.Errorf("recipe %s: restore %s config: %w", name, ws.Kind(), err))
		}
	}
}

func (r *Reconciler) writeResolver(rep *Report) {
	if !r.cfg.DNS.Enabled {
		return
	}
	changed, err := WriteResolverSnippet(r.paths.DnsmasqDir, r.cfg.Site.TLD, r.renderer)
	if err != nil {
		rep.warnf("resolver snippet: %v", err)
		return
	}
	if changed {
		rep.actionf("wrote %s", ResolverSnippetPath(r.paths.DnsmasqDir, r.cfg.Site.TLD))
	}
}

/**
 * Stop every web server and every installed php-fpm
 * @param {context.Context} ctx - Bounds external commands
 * @returns {*Report} Returns the actions taken and every failure
 * @description
 * - Stopping an already stopped environment succeeds without running any command
 */
func (r *Reconciler) Stop(ctx context.Context) *Report {
	rep := newReport("stop")
	defer r.finish(rep, time.Now())
	r.stopAll(ctx, rep)
	return rep
}

func (r *Reconciler) stopAll(ctx context.Context, rep *Report) {
	for _, kind := range SortedKinds(r.backends) {
		ws := r.backends[kind]
		if !ws.IsRunning() {
			continue
		}
		if err := ws.Stop(ctx); err != nil {
			rep.fail(fmt.Errorf("stop %s: %w", kind, err))
			continue
		}
		rep.actionf("stopped %s", kind)
	}

	runtimes, err := r.runtimes.List()
	if err != nil {
		rep.fail(err)
		return
	}
	for _, rt := range runtimes {
		stopped, err := r.runtimes.Stop(ctx, rt.Version)
		if err != nil {
			rep.fail(fmt.Errorf("stop php %s: %w", rt.Version, err))
			continue
		}
		if stopped {
			rep.actionf("stopped php-fpm %s", rt.Version)
		}
	}
}

// Restart stops everything then serves again.
func (r *Reconciler) Restart(ctx context.Context) *Report {
	rep := newReport("restart")
	defer r.finish(rep, time.Now())

	r.stopAll(ctx, rep)
	recipes, err := r.store.List()
	if err != nil {
		rep.fail(err)
		return rep
	}
	r.serveRecipes(ctx, rep, recipes)
	return rep
}

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// defaultName derives a recipe name from a directory name.
func defaultName(dir string) string {
	name := unsafeNameChars.ReplaceAllString(filepath.Base(dir), "-")
	return strings.TrimLeft(name, "._-")
}

/**
 * Register a project and serve it
 * @param {context.Context} ctx - Bounds external commands
 * @param {CookOptions} opts - Project and overrides
 * @returns {*models.Recipe} Returns the stored recipe, nil if nothing was stored
 * @returns {*Report} Returns the actions taken and every failure
 * @description
 * - Cooking a cooked directory again updates its recipe in place
 * - Unset options keep the values of the existing recipe
 * - php version falls back to composer.json, then to the global default
 * - A rename keeps the old recipe until the new one is stored
 */
func (r *Reconciler) Cook(ctx context.Context, opts CookOptions) (*models.Recipe, *Report) {
	rep := newReport("cook")
	defer r.finish(rep, time.Now())

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		rep.fail(models.IOError("resolve", opts.Dir, err))
		return nil, rep
	}
	existing, err := r.store.GetByPath(dir)
	if err != nil {
		rep.fail(err)
		return nil, rep
	}

	rc := models.Recipe{Path: dir}
	if existing != nil {
		rc = *existing
	}
	if opts.Name != "" {
		rc.Name = opts.Name
	} else if rc.Name == "" {
		rc.Name = defaultName(dir)
	}
	if existing == nil && !IsLaravelProject(dir) {
		rep.warnf("%s has no artisan and composer.json, not a Laravel project", dir)
	}
	if opts.PHPVersion != "" {
		rc.PHPVersion = utils.NormalizePHPVersion(opts.PHPVersion)
	} else if !rc.HasPHPVersion() {
		rc.PHPVersion = DetectPHPVersion(dir)
		if !rc.HasPHPVersion() && r.cfg.PHP.Default != "" {
			rc.PHPVersion = r.cfg.PHP.Default
		}
	}
	if opts.ServeWith != "" {
		rc.ServeWith = opts.ServeWith
	}
	if opts.Site != "" {
		rc.Site = opts.Site
	} else if existing != nil && existing.Name != rc.Name && existing.Site == models.SiteFor(existing.Name, r.cfg.Site.TLD) {
		rc.Site = ""
	}

	renamed := existing != nil && existing.Name != rc.Name
	prev := existing
	if !renamed {
		prev, err = r.store.Get(rc.Name)
		if err != nil {
			rep.fail(err)
			return nil, rep
		}
		if prev != nil && prev.Path != dir {
			rep.warnf("recipe %s moves from %s to %s", rc.Name, prev.Path, dir)
		}
	}
	if !rc.HasPHPVersion() {
		rep.warnf("no php version for %s, pass --php or run `furnace php use`", rc.Name)
	}

	if renamed {
		if err := r.store.Rename(existing.Name, &rc); err != nil {
			rep.fail(err)
			return nil, rep
		}
		rep.actionf("renamed %s to %s", existing.Name, rc.Name)
	} else if err := r.store.Put(&rc); err != nil {
		rep.fail(err)
		return nil, rep
	}
	rep.actionf("cooked %s (%s, php %s, %s)", rc.Name, rc.Site, rc.PHPVersion, rc.ServeWith)

	r.applyRecipe(ctx, rep, rc, prev)
	return &rc, rep
}

/**
 * Reconcile a single recipe, leaving every other recipe's config untouched
 * @param {models.Recipe} rc - Recipe as stored
 * @param {*models.Recipe} prev - Recipe before this change, nil for a new one
 * @description
 * - Configs under the previous name or on other backends are only removed once rc is served
 */
func (r *Reconciler) applyRecipe(ctx context.Context, rep *Report, rc models.Recipe, prev *models.Recipe) {
	if rc.HasPHPVersion() {
		r.ensureRuntime(ctx, rep, rc.PHPVersion)
	}
	defer r.writeResolver(rep)
	ws, ok := r.backends[rc.ServeWith]
	if !ok {
		rep.fail(fmt.Errorf("%w: backend %q", models.ErrNotFound, rc.ServeWith))
		return
	}
	if !r.applyBackend(ctx, rep, ws, []models.Recipe{rc}) {
		if prev != nil && (prev.Name != rc.Name || prev.ServeWith != rc.ServeWith) {
			rep.warnf("%s keeps serving %s until %s accepts %s", prev.ServeWith, prev.Site, rc.ServeWith, rc.Name)
		}
		return
	}
	for _, kind := range SortedKinds(r.backends) {
		if kind != rc.ServeWith {
			r.detach(ctx, rep, r.backends[kind], rc.Name)
		}
	}
	if prev != nil && prev.Name != rc.Name {
		for _, kind := range SortedKinds(r.backends) {
			r.detach(ctx, rep, r.backends[kind], prev.Name)
		}
	}
}

// detach removes the config of name from ws and reloads ws if it had one.
func (r *Reconciler) detach(ctx context.Context, rep *Report, ws WebService, name string) {
	old, err := ws.ReadConf(name)
	if err != nil {
		rep.fail(err)
		return
	}
	if err := ws.RemoveConf(name); err != nil {
		rep.fail(fmt.Errorf("recipe %s: %w", name, err))
		return
	}
	if old == nil {
		return
	}
	rep.actionf("removed %s", ws.ConfPath(name))
	if !ws.DetectInstalled() || !ws.IsRunning() {
		return
	}
	if err := ws.Reload(ctx); err != nil {
		rep.fail(fmt.Errorf("reload %s: %w", ws.Kind(), err))
		return
	}
	rep.actionf("reloaded %s", ws.Kind())
}

/**
 * Unregister a recipe
 * @param {context.Context} ctx - Bounds external commands
 * @param {string} name - Recipe name
 * @returns {*Report} Returns the actions taken and every failure
 * @description
 * - Removes every rendered config, the record and the back-reference
 * - Disposing an unknown recipe only warns, so dispose can be repeated
 */
func (r *Reconciler) Dispose(ctx context.Context, name string) *Report {
	rep := newReport("dispose")
	defer r.finish(rep, time.Now())
	if !ValidName(name) {
		rep.fail(fmt.Errorf("%w: invalid recipe name %q", models.ErrNotFound, name))
		return rep
	}
	r.disposeRecipe(ctx, rep, name)
	return rep
}

func (r *Reconciler) disposeRecipe(ctx context.Context, rep *Report, name string) {
	rc, err := r.store.Get(name)
	if err != nil {
		rep.fail(err)
		return
	}
	if rc == nil {
		rep.warnf("recipe %s is not cooked", name)
	}
	for _, kind := range SortedKinds(r.backends) {
		r.detach(ctx, rep, r.backends[kind], name)
	}
	removed, err := r.store.Remove(name)
	if err != nil {
		rep.fail(err)
		return
	}
	if removed != nil {
		rep.actionf("disposed %s", name)
	}
}

/**
 * Switch the php version of a project, or the global default outside any project
 * @param {context.Context} ctx - Bounds external commands
 * @param {string} dir - Current directory
 * @param {string} version - php version or constraint
 * @returns {*models.Recipe} Returns the updated recipe, nil when the global default changed
 * @returns {*Report} Returns the actions taken and every failure
 * @description
 * - The version must be installed, nothing changes otherwise
 * - Only the affected recipe is re-rendered
 */
func (r *Reconciler) UsePHP(ctx context.Context, dir, version string) (*models.Recipe, *Report) {
	rep := newReport("php-use")
	defer r.finish(rep, time.Now())

	v := utils.NormalizePHPVersion(version)
	if v == models.UnknownPHPVersion {
		rep.fail(fmt.Errorf("%w: invalid php version %q", models.ErrNotFound, version))
		return nil, rep
	}
	if r.runtimes.State(v) == models.RuntimeNotInstalled {
		rep.fail(fmt.Errorf("php %s: %w, run `furnace php install %s`", v, models.ErrNotFound, v))
		return nil, rep
	}

	rc, err := r.store.ResolveDir(dir)
	if err != nil {
		rep.fail(err)
		return nil, rep
	}
	if rc == nil {
		if err := config.SetDefaultPHP(r.paths, v); err != nil {
			rep.fail(models.IOError("write", filepath.Join(r.paths.Root, "furnace.yml"), err))
			return nil, rep
		}
		r.cfg.PHP.Default = v
		rep.actionf("global default php is now %s", v)
		return nil, rep
	}

	prev := *rc
	rc.PHPVersion = v
	if err := r.store.Put(rc); err != nil {
		rep.fail(err)
		return nil, rep
	}
	rep.actionf("recipe %s now uses php %s", rc.Name, v)
	r.applyRecipe(ctx, rep, *rc, &prev)
	return rc, rep
}

/**
 * Snapshot desired and actual state
 * @param {bool} withDiff - Include config diffs of drifted recipes
 * @returns {*models.SystemStatus} Returns recipes, runtimes and backends
 */
func (r *Reconciler) Status(ctx context.Context, withDiff bool) (*models.SystemStatus, error) {
	recipes, err := r.store.List()
	if err != nil {
		return nil, err
	}
	st := &models.SystemStatus{
		Timestamp: time.Now(),
		Recipes:   []models.RecipeStatus{},
		Backends:  []models.BackendStatus{},
	}
	perKind := map[models.BackendKind]int{}
	for _, rc := range recipes {
		perKind[rc.ServeWith]++
		rs := models.RecipeStatus{Recipe: rc}
		if rc.HasPHPVersion() {
			rs.PHPRunning = r.runtimes.IsRunning(rc.PHPVersion)
		}
		if ws, ok := r.backends[rc.ServeWith]; ok {
			rs.ConfPath = ws.ConfPath(rc.Name)
			onDisk, err := ws.ReadConf(rc.Name)
			if err != nil {
				return nil, err
			}
			rendered, err := r.renderer.Render(rc, r.socketFor(rc), rc.ServeWith)
			if err != nil {
				return nil, err
			}
			rs.Rendered = onDisk != nil
			rs.Drifted = onDisk == nil || string(onDisk) != rendered
			if withDiff && rs.Drifted {
				rs.Diff = DiffConf(string(onDisk), rendered)
			}
		}
		st.Recipes = append(st.Recipes, rs)
	}

	st.Runtimes, err = r.runtimes.List()
	if err != nil {
		return nil, err
	}
	for _, kind := range SortedKinds(r.backends) {
		ws := r.backends[kind]
		bs := models.BackendStatus{Kind: kind, Installed: ws.DetectInstalled(), Status: models.StatusStopped, Recipes: perKind[kind]}
		if !bs.Installed {
			bs.Status = models.StatusMissing
		} else if ws.IsRunning() {
			bs.Status = models.StatusRunning
		}
		st.Backends = append(st.Backends, bs)
	}
	RecordStatus(st)
	return st, nil
}

/**
 * Prepare the state tree
 * @returns {*Report} Returns the files created and the backends found
 * @description
 * - Creates ~/.furnace and its subdirectories
 * - Copies the built-in runtime catalog unless one exists
 * - Writes nginx.conf unless one exists
 */
func (r *Reconciler) Install(ctx context.Context) *Report {
	rep := newReport("install")
	defer r.finish(rep, time.Now())

	for _, dir := range []string{r.paths.Root, r.paths.RecipesDir, r.paths.NginxDir, r.paths.ApacheDir,
		r.paths.PHPDir, r.paths.MetricsDir, r.paths.DnsmasqDir, r.paths.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			rep.fail(models.IOError("mkdir", dir, err))
			return rep
		}
	}
	if copied, err := InstallDefaultCatalog(r.paths.CatalogFile); err != nil {
		rep.fail(err)
	} else if copied {
		rep.actionf("wrote %s", r.paths.CatalogFile)
	}
	if nginx, ok := r.backends[models.BackendNginx].(*NginxService); ok {
		if created, err := nginx.EnsureMainConf(); err != nil {
			rep.fail(err)
		} else if created {
			rep.actionf("wrote %s", nginx.MainConfPath())
		}
	}
	for _, kind := range SortedKinds(r.backends) {
		if r.backends[kind].DetectInstalled() {
			rep.actionf("found %s", kind)
		} else {
			rep.warnf("%s not found in PATH", kind)
		}
	}
	r.writeResolver(rep)
	return rep
}
