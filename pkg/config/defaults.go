package config

import (
	"os"
	"path/filepath"

	"github.com/tomatelib/tomate/internal/bytesize"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyHeapDefaults(&cfg.Heap)
	applyMMFDefaults(&cfg.MMF)
	applyLockDefaults(&cfg.Lock)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in, zero overhead when unset).
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyHeapDefaults sets HeapManager size-class defaults, matching
// mem.DefaultSizeClasses: 8 buckets doubling from 64 bytes.
func applyHeapDefaults(cfg *HeapConfig) {
	if cfg.MinClass == 0 {
		cfg.MinClass = 64
	}
	if cfg.ClassCount == 0 {
		cfg.ClassCount = 8
	}
}

// applyMMFDefaults sets MMF backend defaults.
func applyMMFDefaults(cfg *MMFConfig) {
	if cfg.Dir == "" {
		cfg.Dir = defaultMMFDir()
	}
	if cfg.InitialSize == 0 {
		cfg.InitialSize = 64 * bytesize.MiB
	}
	if cfg.GrowthFactor == 0 {
		cfg.GrowthFactor = 2.0
	}
}

// applyLockDefaults sets synchronization-primitive defaults.
func applyLockDefaults(cfg *LockConfig) {
	if cfg.SmallLockCapacity == 0 {
		cfg.SmallLockCapacity = 256
	}
	if cfg.SpinLimit == 0 {
		cfg.SpinLimit = 64
	}
}

// defaultMMFDir returns $XDG_RUNTIME_DIR/tomate if set, otherwise a
// tomate subdirectory of the OS temp dir.
func defaultMMFDir() string {
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "tomate")
	}
	return filepath.Join(os.TempDir(), "tomate")
}

// SizeClasses expands a HeapConfig into the explicit bucket sizes
// mem.NewHeapManager expects: ClassCount buckets doubling from MinClass.
func (cfg HeapConfig) SizeClasses() []int {
	classes := make([]int, cfg.ClassCount)
	size := cfg.MinClass
	for i := range classes {
		classes[i] = size
		size *= 2
	}
	return classes
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
