// Package config loads manager defaults from file and environment
// using viper, the way the teacher's pkg/config loads server configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (TOMATE_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tomatelib/tomate/internal/bytesize"
)

// Config captures every knob this module's managers and synchronization
// primitives accept at construction time.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Heap configures the default HeapManager's size-class buckets.
	Heap HeapConfig `mapstructure:"heap" yaml:"heap"`

	// MMF configures memory-mapped-file backed managers.
	MMF MMFConfig `mapstructure:"mmf" yaml:"mmf"`

	// Lock configures the synchronization primitives shared by SmallLock
	// and CrossExclusive.
	Lock LockConfig `mapstructure:"lock" yaml:"lock"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format.
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written.
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// MetricsConfig configures the Prometheus metrics registry.
// When Enabled is false, recorders are never invoked (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection is wired into the managers.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port an embedding application exposes /metrics on.
	// This package never starts an HTTP server itself; Port is plumbed
	// through for callers that do.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// HeapConfig configures a HeapManager's size-class buckets.
type HeapConfig struct {
	// MinClass is the smallest size-class bucket, in bytes.
	// Default: 64
	MinClass int `mapstructure:"min_class" validate:"omitempty,gt=0" yaml:"min_class"`

	// ClassCount is the number of doubling buckets from MinClass.
	// Default: 8
	ClassCount int `mapstructure:"class_count" validate:"omitempty,gt=0" yaml:"class_count"`
}

// MMFConfig configures memory-mapped-file backed managers.
type MMFConfig struct {
	// Dir is the directory (*Config).CreateMMF and OpenMMF join an MMF
	// file name onto; mmf.Create and mmf.Open do not read it and use their
	// path as given. Overridden by the TOMATE_MMF_DIR environment variable
	// (see ResolveMMFDir).
	Dir string `mapstructure:"dir" yaml:"dir"`

	// InitialSize is the size of a newly created MMF-backed region.
	// Supports human-readable formats: "64Mi", "1Gi", "100MB".
	// Default: 64Mi
	InitialSize bytesize.ByteSize `mapstructure:"initial_size" yaml:"initial_size,omitempty"`

	// GrowthFactor is loaded, defaulted (0 becomes 2.0) and validated
	// (at least 1), but no manager in this module reads it: an MMF-backed
	// region keeps the size it was created with.
	GrowthFactor float64 `mapstructure:"growth_factor" validate:"omitempty,gte=1" yaml:"growth_factor"`

	// LockTimeout is loaded from configuration, but no constructor in this
	// module reads it: CrossExclusive.Take waits only as long as the
	// context and burnwait.Waiter passed to it allow.
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
}

// LockConfig configures the synchronization primitives.
type LockConfig struct {
	// SmallLockCapacity is the default queue-slot count reserved when a
	// caller constructs a SmallLock segment through this package rather
	// than sizing the byte slice by hand. Capped at xsync.MaxSmallLockCapacity.
	SmallLockCapacity int `mapstructure:"small_lock_capacity" validate:"omitempty,gt=0,lte=65535" yaml:"small_lock_capacity"`

	// SpinLimit is loaded, defaulted (0 becomes 64) and validated, but no
	// constructor in this module reads it; a burnwait.Waiter is bounded
	// only by its deadline.
	SpinLimit int `mapstructure:"spin_limit" validate:"omitempty,gte=0" yaml:"spin_limit"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (TOMATE_*)
//  2. Configuration file
//  3. Default values
//
// Environment variables override only keys that the configuration file
// also sets. When no configuration file is found, Load returns
// GetDefaultConfig() and does not consult the environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, falling back to defaults when configPath
// is empty and no file is present at the default location. Unlike the
// teacher's MustLoad, an absent default file is not an error here: a
// library has no "init" step a user is expected to have run first. An
// explicit configPath that does not exist is still an error.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return GetDefaultConfig(), nil
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks a loaded Config against its struct tags.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use TOMATE_ prefix and underscores.
	// Example: TOMATE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("TOMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and
// time.Duration, the two custom scalar types this config uses.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use human-readable sizes like "64Mi" or plain numbers.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings and integers to time.Duration, so
// config files can use human-readable durations like "30s" or "5m".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory (.) if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "tomate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "tomate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}

// ResolveMMFDir returns the directory a relative mmf.Create/mmf.Open path
// should be joined against: the TOMATE_MMF_DIR environment variable when
// set, otherwise cfg.MMF.Dir.
func ResolveMMFDir(cfg *Config) string {
	if dir := os.Getenv("TOMATE_MMF_DIR"); dir != "" {
		return dir
	}
	return cfg.MMF.Dir
}
