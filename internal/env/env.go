package env

import (
	"fmt"
	"os"
	"path/filepath"

	"furnace/internal/models"
)

// Daemon is set when furnace runs as the HTTP server
var Daemon bool = false

// HomeEnv overrides the resolved home directory (used by tests and sandboxes)
const HomeEnv = "FURNACE_HOME"

/**
 * Get the per-user home directory
 * @returns {string} Returns the home directory
 * @returns {error} Returns models.ErrHomeUnavailable when it cannot be resolved
 * @description
 * - FURNACE_HOME wins over the OS user home directory
 */
func HomeDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		return "", fmt.Errorf("%w: %v", models.ErrHomeUnavailable, err)
	}
	return dir, nil
}

// FurnaceDir returns $HOME/.furnace
func FurnaceDir(home string) string {
	return filepath.Join(home, ".furnace")
}
