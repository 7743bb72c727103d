package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

/**
 * Server configuration parameters
 * @property {string} address - Listening address of `furnace server`
 * @property {string} mode - gin mode (debug/release/test)
 * @property {string} secret - HS256 secret for API tokens, empty disables authentication
 */
type ServerConfig struct {
	Address string `mapstructure:"address"`
	Mode    string `mapstructure:"mode"`
	Secret  string `mapstructure:"secret"`
}

/**
 * Logging configuration
 * @property {string} level - Log level (debug/info/warn/error)
 * @property {string} path - Log file path, "console" for stdout
 */
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

type SiteConfig struct {
	TLD    string `mapstructure:"tld"`
	Listen int    `mapstructure:"listen"`
}

type PHPConfig struct {
	Default string `mapstructure:"default"`
	User    string `mapstructure:"user"`
	Group   string `mapstructure:"group"`
	Catalog string `mapstructure:"catalog"`
}

type NginxConfig struct {
	Binary string `mapstructure:"binary"`
}

type ApacheConfig struct {
	Binary       string `mapstructure:"binary"`
	SitesEnabled string `mapstructure:"sites_enabled"`
	PidFile      string `mapstructure:"pid_file"`
}

type DNSConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type AppConfig struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Site   SiteConfig   `mapstructure:"site"`
	PHP    PHPConfig    `mapstructure:"php"`
	Nginx  NginxConfig  `mapstructure:"nginx"`
	Apache ApacheConfig `mapstructure:"apache"`
	DNS    DNSConfig    `mapstructure:"dns"`
}

const configName = "furnace"

var cfg *AppConfig

func setDefaults(v *viper.Viper, paths Paths) {
	v.SetDefault("server.address", "127.0.0.1:8089")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.secret", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", filepath.Join(paths.LogsDir, "furnace.log"))
	v.SetDefault("site.tld", "test")
	v.SetDefault("site.listen", 80)
	v.SetDefault("php.default", "")
	v.SetDefault("php.catalog", paths.CatalogFile)
	v.SetDefault("nginx.binary", "nginx")
	v.SetDefault("apache.binary", "apachectl")
	v.SetDefault("apache.sites_enabled", "/etc/apache2/sites-enabled")
	v.SetDefault("apache.pid_file", "/var/run/apache2/apache2.pid")
	v.SetDefault("dns.enabled", true)
}

/**
 * Load application configuration
 * @param {Paths} paths - Resolved state tree
 * @returns {*AppConfig} Returns the loaded configuration
 * @returns {error} Returns error if the config file exists but cannot be parsed
 * @description
 * - Reads $HOME/.furnace/furnace.yml when present
 * - FURNACE_* environment variables override file values (FURNACE_LOG_LEVEL ...)
 * - Missing php user/group are derived from the current user
 */
func LoadConfig(paths Paths) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(paths.Root)
	v.SetEnvPrefix("FURNACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, paths)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read %s: %w", filepath.Join(paths.Root, configName+".yml"), err)
		}
	}

	var c AppConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	collectConfig(&c)
	return &c, nil
}

func collectConfig(c *AppConfig) *AppConfig {
	if c.Site.TLD == "" {
		c.Site.TLD = "test"
	}
	if c.Site.Listen == 0 {
		c.Site.Listen = 80
	}
	if c.PHP.User == "" || c.PHP.Group == "" {
		u, g := currentUserGroup()
		if c.PHP.User == "" {
			c.PHP.User = u
		}
		if c.PHP.Group == "" {
			c.PHP.Group = g
		}
	}
	return c
}

func currentUserGroup() (string, string) {
	u, err := user.Current()
	if err != nil {
		name := os.Getenv("USER")
		return name, name
	}
	if runtime.GOOS == "darwin" {
		return u.Username, "staff"
	}
	group := u.Username
	if g, err := user.LookupGroupId(u.Gid); err == nil {
		group = g.Name
	}
	return u.Username, group
}

/**
 * Persist the global default php version
 * @param {Paths} paths - Resolved state tree
 * @param {string} version - Normalized php version
 * @returns {error} Returns error if the config file cannot be written
 * @description
 * - Keeps every other key of furnace.yml untouched
 */
func SetDefaultPHP(paths Paths, version string) error {
	v := viper.New()
	file := filepath.Join(paths.Root, configName+".yml")
	v.SetConfigFile(file)
	v.SetConfigType("yaml")
	if _, err := os.Stat(file); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
	}
	v.Set("php.default", version)
	if err := os.MkdirAll(paths.Root, 0755); err != nil {
		return err
	}
	return v.WriteConfigAs(file)
}

// Load resolves the paths and the configuration once per process.
func Load() (Paths, *AppConfig, error) {
	paths, err := ResolvePaths()
	if err != nil {
		return Paths{}, nil, err
	}
	if cfg != nil {
		return paths, cfg, nil
	}
	c, err := LoadConfig(paths)
	if err != nil {
		return paths, nil, err
	}
	cfg = c
	return paths, cfg, nil
}
