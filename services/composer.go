package services

import (
	"encoding/json"
	"os"
	"path/filepath"

	"furnace/internal/logger"
	"furnace/internal/models"
	"furnace/internal/utils"
)

type composerManifest struct {
	Require map[string]string `json:"require"`
}

/**
 * Read the php constraint of a project's composer.json
 * @param {string} dir - Project directory
 * @returns {string} Returns MAJOR.MINOR, or models.UnknownPHPVersion
 * @example
 * // composer.json: {"require": {"php": "^8.2"}}
 * DetectPHPVersion("/srv/blog") // "8.2"
 */
func DetectPHPVersion(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "composer.json"))
	if err != nil {
		return models.UnknownPHPVersion
	}
	var manifest composerManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		logger.Warnf("Ignore malformed composer.json in %s: %v", dir, err)
		return models.UnknownPHPVersion
	}
	constraint, ok := manifest.Require["php"]
	if !ok {
		return models.UnknownPHPVersion
	}
	return utils.NormalizePHPVersion(constraint)
}

// IsLaravelProject reports whether dir holds both artisan and composer.json.
func IsLaravelProject(dir string) bool {
	return utils.PathExists(filepath.Join(dir, "artisan")) && utils.PathExists(filepath.Join(dir, "composer.json"))
}
