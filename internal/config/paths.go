package config

import (
	"path/filepath"

	"furnace/internal/env"
)

/**
 * Resolved base paths of the furnace state tree
 * @property {string} Home - User home directory
 * @property {string} Root - $HOME/.furnace
 * @property {string} RecipesDir - Recipe records
 * @property {string} NginxDir - Nginx prefix (nginx.conf, servers/, logs/)
 * @property {string} ApacheDir - Apache vhost files and logs
 * @property {string} PHPDir - Installed php runtimes, one directory per version
 * @property {string} CatalogFile - Runtime catalog (repository.yml)
 * @property {string} MetricsDir - Prometheus textfile output
 * @property {string} DnsmasqDir - Resolver snippets
 * @property {string} LogsDir - furnace's own log files
 */
type Paths struct {
	Home        string
	Root        string
	RecipesDir  string
	NginxDir    string
	ApacheDir   string
	PHPDir      string
	CatalogFile string
	MetricsDir  string
	DnsmasqDir  string
	LogsDir     string
}

// NewPaths lays out the state tree below home.
func NewPaths(home string) Paths {
	root := env.FurnaceDir(home)
	return Paths{
		Home:        home,
		Root:        root,
		RecipesDir:  filepath.Join(root, "recipes"),
		NginxDir:    filepath.Join(root, "nginx"),
		ApacheDir:   filepath.Join(root, "apache"),
		PHPDir:      filepath.Join(root, "php"),
		CatalogFile: filepath.Join(root, "repository.yml"),
		MetricsDir:  filepath.Join(root, "metrics"),
		DnsmasqDir:  filepath.Join(root, "dnsmasq.d"),
		LogsDir:     filepath.Join(root, "logs"),
	}
}

// ResolvePaths resolves the home directory once and returns the state tree.
func ResolvePaths() (Paths, error) {
	home, err := env.HomeDir()
	if err != nil {
		return Paths{}, err
	}
	return NewPaths(home), nil
}

// RuntimeDir is the install directory of one php version.
func (p Paths) RuntimeDir(version string) string {
	return filepath.Join(p.PHPDir, version)
}

// SocketPath is the php-fpm socket of one php version.
func (p Paths) SocketPath(version string) string {
	return filepath.Join(p.RuntimeDir(version), "php-fpm.sock")
}
