// Package config loads the coordination service configuration from a YAML
// file, environment variables, or defaults, in that order of increasing
// precedence for env overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete service configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Lock    LockConfig    `mapstructure:"lock"`
	Sweep   SweepConfig   `mapstructure:"sweep"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory store,
	// which loses all locks on restart.
	Path string `mapstructure:"path"`
}

// LockConfig controls lock record lifetime.
type LockConfig struct {
	// TTLSeconds is how long a record lives without a refresh (default: 300).
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// SweepConfig controls the background expiry sweep.
type SweepConfig struct {
	// IntervalSeconds is how often the sweep runs (default: 60).
	// The sweep only bounds storage growth; read paths already ignore
	// expired records.
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// GraphConfig locates the prebuilt dependency graph.
type GraphConfig struct {
	// Path is a JSON edge-list file produced by the external graph
	// builder. Empty serves with an empty graph (no NEIGHBOR visibility).
	Path string `mapstructure:"path"`
}

// ServerConfig controls the MCP server identity.
type ServerConfig struct {
	// Name is the advertised server name (default: "relay").
	Name string `mapstructure:"name"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string `mapstructure:"level"`
	// Dir is where relay.log is written. Empty logs to stderr, which for
	// the stdio MCP transport is the only safe default.
	Dir string `mapstructure:"dir"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Lock:    LockConfig{TTLSeconds: 300},
		Sweep:   SweepConfig{IntervalSeconds: 60},
		Server:  ServerConfig{Name: "relay"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// TTL returns the lock lifetime as a duration.
func (c Config) TTL() time.Duration {
	return time.Duration(c.Lock.TTLSeconds) * time.Second
}

// SweepInterval returns the sweep cadence as a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweep.IntervalSeconds) * time.Second
}

// Load reads configuration from the given file, or from
// $XDG_CONFIG_HOME/relay/config.yaml when path is empty. A missing default
// file is not an error; a missing explicit file is. Environment variables
// with the RELAY_ prefix override file values (RELAY_STORE_PATH, etc).
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigDir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("lock.ttl_seconds", d.Lock.TTLSeconds)
	v.SetDefault("sweep.interval_seconds", d.Sweep.IntervalSeconds)
	v.SetDefault("graph.path", d.Graph.Path)
	v.SetDefault("server.name", d.Server.Name)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.dir", d.Logging.Dir)
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "relay")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "relay")
}
