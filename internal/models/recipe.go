package models

import "strings"

type BackendKind string

const (
	BackendNginx  BackendKind = "nginx"
	BackendApache BackendKind = "apache"
)

// UnknownPHPVersion is stored when no php version could be resolved for a project.
const UnknownPHPVersion = "unknown"

// DefaultTLD is the top level domain used to derive a site name.
const DefaultTLD = "test"

/**
 * Recipe binds one project directory to a site, a PHP version and a web server
 * @property {string} name - Unique recipe name, also the record file name
 * @property {string} path - Absolute project root, unique across recipes
 * @property {string} php_version - MAJOR.MINOR php version
 * @property {string} serve_with - Backend kind: nginx/apache
 * @property {string} site - Local host name, e.g. blog.test
 */
type Recipe struct {
	Name       string      `yaml:"name" json:"name" validate:"required,safename"`
	Path       string      `yaml:"path" json:"path" validate:"required,abspath"`
	PHPVersion string      `yaml:"php_version" json:"php_version"`
	ServeWith  BackendKind `yaml:"serve_with" json:"serve_with" validate:"omitempty,oneof=nginx apache"`
	Site       string      `yaml:"site" json:"site"`
}

// SiteFor derives the default host name for a recipe name.
func SiteFor(name, tld string) string {
	if tld == "" {
		tld = DefaultTLD
	}
	return name + "." + strings.TrimPrefix(tld, ".")
}

// ApplyDefaults fills the optional fields with their documented defaults.
func (r *Recipe) ApplyDefaults(tld string) {
	if r.PHPVersion == "" {
		r.PHPVersion = UnknownPHPVersion
	}
	if r.ServeWith == "" {
		r.ServeWith = BackendNginx
	}
	if r.Site == "" {
		r.Site = SiteFor(r.Name, tld)
	}
}

// HasPHPVersion reports whether the recipe is bound to a concrete php version.
func (r *Recipe) HasPHPVersion() bool {
	return r.PHPVersion != "" && r.PHPVersion != UnknownPHPVersion
}

// DocumentRoot is the directory served for the site.
func (r *Recipe) DocumentRoot() string {
	return strings.TrimRight(r.Path, "/") + "/public"
}
