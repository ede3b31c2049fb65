// Package config provides configuration management for branchbar.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	appDir         = ".branchbar"
	configFileName = "config.toml"
	dbFileName     = "branchbar.db"
	logFileName    = "branchbar.log"
	envPrefix      = "BRANCHBAR"
)

// Config holds all configuration for branchbar.
type Config struct {
	Refresh       RefreshConfig      `mapstructure:"refresh"`
	Display       DisplayConfig      `mapstructure:"display"`
	Git           GitConfig          `mapstructure:"git"`
	Watch         WatchConfig        `mapstructure:"watch"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Storage       StorageConfig      `mapstructure:"storage"`
}

// RefreshConfig holds polling settings.
type RefreshConfig struct {
	Interval       Duration `mapstructure:"interval"`
	CommandTimeout Duration `mapstructure:"command_timeout"`
}

// DisplayConfig holds label settings.
type DisplayConfig struct {
	MaxWidth int `mapstructure:"max_width"`
}

// GitConfig holds the git executable settings.
type GitConfig struct {
	Binary string `mapstructure:"binary"`
}

// WatchConfig controls the HEAD watcher.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NotificationConfig holds notification settings.
type NotificationConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	OnBranchChange bool `mapstructure:"on_branch_change"`
}

// LoggingConfig holds log file settings.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// Duration is a wrapper around time.Duration for TOML parsing.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// String returns the string representation of the duration.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Refresh: RefreshConfig{
			Interval:       Duration(5 * time.Second),
			CommandTimeout: Duration(10 * time.Second),
		},
		Display: DisplayConfig{MaxWidth: 28},
		Git:     GitConfig{Binary: "git"},
		Watch:   WatchConfig{Enabled: true},
		Notifications: NotificationConfig{
			Enabled:        false,
			OnBranchChange: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 5,
		},
		Storage: StorageConfig{
			DataDir: "~/" + appDir,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("refresh.interval must be positive, got %s", c.Refresh.Interval)
	}
	if c.Refresh.CommandTimeout < 0 {
		return fmt.Errorf("refresh.command_timeout cannot be negative, got %s", c.Refresh.CommandTimeout)
	}
	if c.Display.MaxWidth < 2 {
		return fmt.Errorf("display.max_width must be at least 2, got %d", c.Display.MaxWidth)
	}
	if strings.TrimSpace(c.Git.Binary) == "" {
		return fmt.Errorf("git.binary cannot be empty")
	}
	return nil
}

// Load loads the configuration from the default config file.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from configPath, creating it with defaults
// when missing. BRANCHBAR_* environment variables override file values.
func LoadFrom(configPath string) (*Config, error) {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// If config file doesn't exist, create it with defaults
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveTo(configPath, DefaultConfig()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	v := newViper(configPath)
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	dataDir, err := expandHome(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage.DataDir = dataDir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Keys returns the configuration keys accepted by SetValue.
func Keys() []string {
	return []string{
		"refresh.interval",
		"refresh.command_timeout",
		"display.max_width",
		"git.binary",
		"watch.enabled",
		"notifications.enabled",
		"notifications.on_branch_change",
		"logging.level",
		"logging.max_size_mb",
		"storage.data_dir",
	}
}

// SetValue changes one key in the file at configPath. The file is left
// untouched when the key is unknown or the result does not validate.
func SetValue(configPath, key, value string) error {
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	v := newViper(configPath)
	setDefaults(v)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	typed, err := coerce(v.Get(key), value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	v.Set(key, typed)

	cfg, err := decode(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return SaveTo(configPath, cfg)
}

// coerce parses value into the type of current.
func coerce(current interface{}, value string) (interface{}, error) {
	switch current.(type) {
	case bool:
		return strconv.ParseBool(value)
	case int, int64:
		return strconv.Atoi(value)
	default:
		return value, nil
	}
}

// Save saves the configuration to the default config file.
func Save(cfg *Config) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return SaveTo(configPath, cfg)
}

// SaveTo writes cfg to configPath.
func SaveTo(configPath string, cfg *Config) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := newViper(configPath)
	v.Set("refresh.interval", cfg.Refresh.Interval.String())
	v.Set("refresh.command_timeout", cfg.Refresh.CommandTimeout.String())
	v.Set("display.max_width", cfg.Display.MaxWidth)
	v.Set("git.binary", cfg.Git.Binary)
	v.Set("watch.enabled", cfg.Watch.Enabled)
	v.Set("notifications.enabled", cfg.Notifications.Enabled)
	v.Set("notifications.on_branch_change", cfg.Notifications.OnBranchChange)
	v.Set("logging.level", cfg.Logging.Level)
	v.Set("logging.max_size_mb", cfg.Logging.MaxSizeMB)
	v.Set("storage.data_dir", cfg.Storage.DataDir)

	return v.WriteConfig()
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, appDir, configFileName), nil
}

// GetDBPath returns the path to the database file.
func GetDBPath(cfg *Config) string {
	return filepath.Join(cfg.Storage.DataDir, dbFileName)
}

// GetLogPath returns the path to the log file.
func GetLogPath(cfg *Config) string {
	return filepath.Join(cfg.Storage.DataDir, logFileName)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	return v
}

// setDefaults sets default values for viper.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("refresh.interval", d.Refresh.Interval.String())
	v.SetDefault("refresh.command_timeout", d.Refresh.CommandTimeout.String())
	v.SetDefault("display.max_width", d.Display.MaxWidth)
	v.SetDefault("git.binary", d.Git.Binary)
	v.SetDefault("watch.enabled", d.Watch.Enabled)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
	v.SetDefault("notifications.on_branch_change", d.Notifications.OnBranchChange)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("storage.data_dir", d.Storage.DataDir)
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		path = "~/" + appDir
	}
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~")), nil
}
