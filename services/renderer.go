package services

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"

	"furnace/internal/config"
	"furnace/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

var templates = template.Must(template.New("furnace").Option("missingkey=error").ParseFS(templateFS,
	"templates/*.tmpl"))

// siteData is the input of the per-recipe server templates.
type siteData struct {
	Name         string
	Site         string
	Listen       int
	DocumentRoot string
	LogsDir      string
	Socket       string
}

// PoolData is the input of the php-fpm pool template.
type PoolData struct {
	Version  string
	User     string
	Group    string
	Socket   string
	PidFile  string
	ErrorLog string
}

/**
 * Renderer turns recipes into web server and php-fpm configuration text
 * @property {config.Paths} paths - State tree, provides log and socket locations
 * @property {config.SiteConfig} site - TLD and listen port
 * @description
 * - Output depends only on its inputs, rendering twice yields identical bytes
 */
type Renderer struct {
	paths config.Paths
	site  config.SiteConfig
}

func NewRenderer(paths config.Paths, site config.SiteConfig) *Renderer {
	if site.Listen == 0 {
		site.Listen = 80
	}
	if site.TLD == "" {
		site.TLD = models.DefaultTLD
	}
	return &Renderer{paths: paths, site: site}
}

// LogsDir is where a backend writes the per-recipe access and error logs.
func (r *Renderer) LogsDir(kind models.BackendKind) string {
	switch kind {
	case models.BackendApache:
		return filepath.Join(r.paths.ApacheDir, "logs")
	default:
		return filepath.Join(r.paths.NginxDir, "logs")
	}
}

/**
 * Render the server configuration of a recipe
 * @param {models.Recipe} recipe - Recipe, missing optional fields take their defaults
 * @param {string} socketPath - php-fpm socket, empty selects the socket of the recipe's version
 * @param {models.BackendKind} kind - Target web server
 * @returns {string} Returns the configuration text
 * @returns {error} Returns models.ErrNotFound for an unknown backend kind
 */
func (r *Renderer) Render(recipe models.Recipe, socketPath string, kind models.BackendKind) (string, error) {
	var name string
	switch kind {
	case models.BackendNginx:
		name = "nginx_server.conf.tmpl"
	case models.BackendApache:
		name = "apache_vhost.conf.tmpl"
	default:
		return "", fmt.Errorf("%w: backend %q", models.ErrNotFound, kind)
	}

	recipe.ApplyDefaults(r.site.TLD)
	if socketPath == "" {
		socketPath = r.paths.SocketPath(recipe.PHPVersion)
	}
	return execute(name, siteData{
		Name:         recipe.Name,
		Site:         recipe.Site,
		Listen:       r.site.Listen,
		DocumentRoot: recipe.DocumentRoot(),
		LogsDir:      r.LogsDir(kind),
		Socket:       socketPath,
	})
}

// RenderNginxMain renders the top level nginx.conf that includes servers/*.conf.
func (r *Renderer) RenderNginxMain() (string, error) {
	return execute("nginx.conf.tmpl", struct{ Dir string }{Dir: strings.TrimRight(r.paths.NginxDir, "/")})
}

// RenderPool renders the php-fpm configuration of one runtime.
func (r *Renderer) RenderPool(data PoolData) (string, error) {
	return execute("php-fpm.conf.tmpl", data)
}

// RenderResolver renders the dnsmasq snippet sending *.tld to localhost.
func (r *Renderer) RenderResolver() (string, error) {
	return execute("dnsmasq.conf.tmpl", struct{ TLD string }{TLD: strings.TrimPrefix(r.site.TLD, ".")})
}

// FastCGIParams returns the fastcgi_params file shipped next to nginx.conf.
func FastCGIParams() []byte {
	data, _ := templateFS.ReadFile("templates/fastcgi_params")
	return data
}

// DefaultCatalog returns the built-in runtime catalog.
func DefaultCatalog() []byte {
	data, _ := templateFS.ReadFile("templates/repository.yml")
	return data
}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
