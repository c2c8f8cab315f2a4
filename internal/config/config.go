// Package config loads hitokoto-sync settings from defaults, an optional
// config file, HITOKOTO_* environment variables and bound command flags, in
// increasing order of precedence.
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

// EnvPrefix prefixes every environment override, e.g. HITOKOTO_STORE_DRIVER.
const EnvPrefix = "HITOKOTO"

// FileName is the config file base name searched when no file is given.
const FileName = "hitokoto-sync"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Config is the complete runtime configuration.
type Config struct {
	Bundle    BundleConfig    `mapstructure:"bundle"`
	Store     StoreConfig     `mapstructure:"store"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Daemon    DaemonConfig    `mapstructure:"daemon"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Log       LogConfig       `mapstructure:"log"`
}

// BundleConfig locates the sentence bundle.
type BundleConfig struct {
	Root string `mapstructure:"root"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the sqlite file or badger directory. Empty with the badger
	// driver means in-memory.
	Path   string `mapstructure:"path"`
	Prefix string `mapstructure:"prefix"`
}

// SyncConfig tunes the sync engine. Concurrency 0 picks the driver's
// default, see Config.SyncConcurrency.
type SyncConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Default category parallelism per driver. SQLite has a single writer, so
// parallel category batches only queue for its lock.
const (
	DefaultSQLiteConcurrency = 1
	DefaultBadgerConcurrency = 4
)

type DaemonConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
	Watch    bool          `mapstructure:"watch"`
}

type DashboardConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// SetDefaults registers the default of every key on v. Keys without a
// default are invisible to environment overrides.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("bundle.root", "./bundle")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.path", "hitokoto.db")
	v.SetDefault("store.prefix", "hitokoto:")
	v.SetDefault("sync.concurrency", 0)
	v.SetDefault("daemon.interval", 10*time.Minute)
	v.SetDefault("daemon.debounce", 2*time.Second)
	v.SetDefault("daemon.watch", true)
	v.SetDefault("dashboard.enabled", false)
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
}

// Load reads the configuration into v and decodes it. file may be empty,
// in which case hitokoto-sync.{yaml,toml,json} is searched in the working
// directory and the user config directory; a missing file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, FileName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SyncConcurrency returns the configured category parallelism, or the
// store driver's default when none is set.
func (c *Config) SyncConcurrency() int {
	if c.Sync.Concurrency > 0 {
		return c.Sync.Concurrency
	}
	if c.Store.Driver == DriverBadger {
		return DefaultBadgerConcurrency
	}
	return DefaultSQLiteConcurrency
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	var errs []error
	if c.Bundle.Root == "" {
		errs = append(errs, errors.New("bundle.root is required"))
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite driver"))
		}
	case DriverBadger:
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of %s, %s", c.Store.Driver, DriverSQLite, DriverBadger))
	}
	if c.Store.Prefix == "" {
		errs = append(errs, errors.New("store.prefix is required"))
	}
	if c.Sync.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("sync.concurrency must not be negative, got %d", c.Sync.Concurrency))
	}
	if c.Daemon.Interval <= 0 {
		errs = append(errs, fmt.Errorf("daemon.interval must be positive, got %s", c.Daemon.Interval))
	}
	if c.Daemon.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("daemon.debounce must be positive, got %s", c.Daemon.Debounce))
	}
	if c.Dashboard.Enabled && (c.Dashboard.Port < 0 || c.Dashboard.Port > 65535) {
		errs = append(errs, fmt.Errorf("dashboard.port %d out of range", c.Dashboard.Port))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
