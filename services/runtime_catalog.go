package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

// ErrCatalogEntryNotFound is returned when the catalog has no source for a version on this platform.
var ErrCatalogEntryNotFound = fmt.Errorf("catalog entry %w", models.ErrNotFound)

// DetectPlatform names the host platform the way the catalog does.
func DetectPlatform() string {
	switch runtime.GOOS {
	case "windows":
		return "windows"
	case "darwin":
		return "macos"
	default:
		return "linux"
	}
}

/**
 * Load the runtime catalog
 * @param {string} path - Catalog file, .toml files are decoded as TOML, anything else as YAML
 * @returns {*models.Catalog} Returns the parsed catalog
 * @returns {error} Returns error if the file exists but cannot be parsed
 * @description
 * - A missing file falls back to the built-in catalog
 */
func LoadCatalog(path string) (*models.Catalog, error) {
	var catalog models.Catalog
	if path == "" || !utils.PathExists(path) {
		if path != "" {
			logger.Debugf("Catalog %s not found, using the built-in catalog", path)
		}
		if err := yaml.Unmarshal(DefaultCatalog(), &catalog); err != nil {
			return nil, fmt.Errorf("parse built-in catalog: %w", err)
		}
		return &catalog, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, &catalog); err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", path, err)
		}
		return &catalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.IOError("read", path, err)
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return &catalog, nil
}

/**
 * Find the install source of a version
 * @param {*models.Catalog} c - Catalog
 * @param {string} version - php version
 * @param {string} platform - linux/macos/windows
 * @returns {*models.PHPSource} Returns the declared source
 * @returns {error} Returns ErrCatalogEntryNotFound when nothing usable is declared
 */
func LookupSource(c *models.Catalog, version, platform string) (*models.PHPSource, error) {
	sources, ok := c.PHP[version]
	if !ok {
		return nil, fmt.Errorf("%w: php %s", ErrCatalogEntryNotFound, version)
	}
	src := sources.For(platform)
	if src == nil || (src.URL == "" && src.Command == "" && src.Link == "") {
		return nil, fmt.Errorf("%w: php %s on %s", ErrCatalogEntryNotFound, version, platform)
	}
	return src, nil
}

// CatalogVersions lists the versions a catalog offers, oldest first.
func CatalogVersions(c *models.Catalog) []string {
	versions := make([]string, 0, len(c.PHP))
	for v := range c.PHP {
		versions = append(versions, v)
	}
	sortVersions(versions)
	return versions
}

func sortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		a, b := utils.ParseVersionNumber(versions[i]), utils.ParseVersionNumber(versions[j])
		if a == nil || b == nil {
			return versions[i] < versions[j]
		}
		return utils.CompareVersion(*a, *b) < 0
	})
}

/**
 * Copy the built-in catalog into place
 * @param {string} path - Destination
 * @returns {bool} Returns true if the file was written
 * @description
 * - An existing catalog is never overwritten
 */
func InstallDefaultCatalog(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, models.IOError("stat", path, err)
	}
	if err := utils.WriteFileAtomic(path, DefaultCatalog(), 0644); err != nil {
		return false, models.IOError("write", path, err)
	}
	return true, nil
}
