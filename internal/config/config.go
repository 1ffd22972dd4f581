// Package config resolves settings from flags, then the environment, then
// built-in defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultPort is the WebSocket port the browser extension connects to.
const DefaultPort = 19192

const (
	EnvDB         = "SEITENLEISTE_DB"
	EnvPort       = "SEITENLEISTE_PORT"
	EnvLogDir     = "SEITENLEISTE_LOG_DIR"
	EnvHostGroups = "SEITENLEISTE_HOST_GROUPS"
	EnvProfile    = "SEITENLEISTE_PROFILE"
)

type Config struct {
	DBPath     string
	Port       int
	LogDir     string
	HostGroups bool
	Profile    string
}

// FromEnv returns the defaults overlaid with whatever getenv provides.
// A malformed value is an error rather than a silent fallback.
func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("get home directory: %w", err)
	}
	dataDir := filepath.Join(home, ".local", "share", "seitenleiste")

	c := Config{
		DBPath: filepath.Join(dataDir, "seitenleiste.db"),
		Port:   DefaultPort,
		LogDir: dataDir,
	}
	if v := getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := getenv(EnvLogDir); v != "" {
		c.LogDir = v
	}
	if v := getenv(EnvProfile); v != "" {
		c.Profile = v
	}
	if v := getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return Config{}, fmt.Errorf("%s: invalid port %q", EnvPort, v)
		}
		c.Port = p
	}
	if v := getenv(EnvHostGroups); v != "" {
		on, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvHostGroups, err)
		}
		c.HostGroups = on
	}
	return c, nil
}

// Flags selects which settings a subcommand exposes as flags.
type Flags uint8

const (
	FlagDB Flags = 1 << iota
	FlagPort
	FlagLogDir
	FlagHostGroups
	FlagProfile
)

// Register binds the selected settings to fs. The current values become the
// flag defaults, so parsing fs leaves flags on top of env on top of defaults.
func (c *Config) Register(fs *flag.FlagSet, which Flags) {
	if which&FlagDB != 0 {
		fs.StringVar(&c.DBPath, "db", c.DBPath, "SQLite database path (env: "+EnvDB+")")
	}
	if which&FlagPort != 0 {
		fs.IntVar(&c.Port, "port", c.Port, "WebSocket port for the browser extension (env: "+EnvPort+")")
	}
	if which&FlagLogDir != 0 {
		fs.StringVar(&c.LogDir, "log-dir", c.LogDir, "Directory for seitenleiste.log (env: "+EnvLogDir+")")
	}
	if which&FlagHostGroups != 0 {
		fs.BoolVar(&c.HostGroups, "host-groups", c.HostGroups, "Mirror groups onto browser tab groups (env: "+EnvHostGroups+")")
	}
	if which&FlagProfile != 0 {
		fs.StringVar(&c.Profile, "profile", c.Profile, "Firefox profile name (env: "+EnvProfile+")")
	}
}
