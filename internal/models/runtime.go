package models

type RuntimeState string

const (
	RuntimeNotInstalled RuntimeState = "not-installed"
	RuntimeInstalled    RuntimeState = "installed"
	RuntimeConfigured   RuntimeState = "configured"
	RuntimeRunning      RuntimeState = "running"
)

/**
 * Installed PHP runtime (one per version)
 * @property {string} version - Version key as published in the catalog
 * @property {string} installDir - Location of the unpacked or linked runtime
 * @property {string} poolConfig - Rendered php-fpm configuration file
 * @property {string} socketPath - php-fpm listening socket
 * @property {string} pidFile - php-fpm master pid file
 */
type Runtime struct {
	Version    string       `json:"version"`
	InstallDir string       `json:"installDir"`
	PoolConfig string       `json:"poolConfig"`
	SocketPath string       `json:"socketPath"`
	PidFile    string       `json:"pidFile"`
	State      RuntimeState `json:"state"`
}

/**
 * Install source of one version on one platform
 * @property {string} url - Archive download address
 * @property {string} type - Archive format: zip/tar.gz
 * @property {string} command - Package manager command line
 * @property {string} link - Prefix of an already installed system copy
 */
type PHPSource struct {
	URL         string `yaml:"url,omitempty" toml:"url" json:"url,omitempty"`
	ArchiveType string `yaml:"type,omitempty" toml:"type" json:"type,omitempty"`
	Command     string `yaml:"command,omitempty" toml:"command" json:"command,omitempty"`
	Link        string `yaml:"link,omitempty" toml:"link" json:"link,omitempty"`
}

type PlatformSources struct {
	Linux   *PHPSource `yaml:"linux,omitempty" toml:"linux" json:"linux,omitempty"`
	MacOS   *PHPSource `yaml:"macos,omitempty" toml:"macos" json:"macos,omitempty"`
	Windows *PHPSource `yaml:"windows,omitempty" toml:"windows" json:"windows,omitempty"`
}

// For returns the source declared for platform, nil when absent.
func (p PlatformSources) For(platform string) *PHPSource {
	switch platform {
	case "linux":
		return p.Linux
	case "macos":
		return p.MacOS
	case "windows":
		return p.Windows
	}
	return nil
}

// Catalog maps a php version to its per-platform install sources.
type Catalog struct {
	PHP map[string]PlatformSources `yaml:"php" toml:"php" json:"php"`
}
