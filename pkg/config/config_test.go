package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "DEBUG"

mmf:
  dir: "` + filepath.ToSlash(tmpDir) + `"
  initial_size: 100Mi
  lock_timeout: 5s

lock:
  small_lock_capacity: 512
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("expected level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.MMF.InitialSize.Uint64() != 100*1024*1024 {
		t.Errorf("expected initial_size 100Mi, got %d", cfg.MMF.InitialSize.Uint64())
	}
	if cfg.MMF.LockTimeout != 5*time.Second {
		t.Errorf("expected lock_timeout 5s, got %v", cfg.MMF.LockTimeout)
	}
	if cfg.Lock.SmallLockCapacity != 512 {
		t.Errorf("expected small_lock_capacity 512, got %d", cfg.Lock.SmallLockCapacity)
	}
	// Heap defaults should still be applied even though the file doesn't set them.
	if cfg.Heap.ClassCount != 8 {
		t.Errorf("expected default class_count 8, got %d", cfg.Heap.ClassCount)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected default config to be returned")
	}
	if cfg.Heap.MinClass != 64 {
		t.Errorf("expected default min_class 64, got %d", cfg.Heap.MinClass)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "NOPE"
  format: "text"
  output: "stdout"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("expected validation error for invalid log level, got nil")
	}
}

func TestMustLoad_NoFileReturnsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir) // no config file at the default location
	cfg, err := MustLoad("")
	if err != nil {
		t.Fatalf("expected MustLoad to fall back to defaults, got error: %v", err)
	}
	if cfg.MMF.GrowthFactor != 2.0 {
		t.Errorf("expected default growth_factor 2.0, got %v", cfg.MMF.GrowthFactor)
	}
}

func TestMustLoad_ExplicitPathMissing(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := MustLoad(filepath.Join(tmpDir, "missing.yaml"))
	if err == nil {
		t.Fatal("expected error when an explicit config path is missing")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Logging.Level = "WARN"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to reload saved config: %v", err)
	}
	if loaded.Logging.Level != "WARN" {
		t.Errorf("expected reloaded level WARN, got %q", loaded.Logging.Level)
	}
}

func TestHeapConfig_SizeClasses(t *testing.T) {
	cfg := HeapConfig{MinClass: 64, ClassCount: 4}
	classes := cfg.SizeClasses()
	want := []int{64, 128, 256, 512}
	if len(classes) != len(want) {
		t.Fatalf("expected %d classes, got %d", len(want), len(classes))
	}
	for i, c := range want {
		if classes[i] != c {
			t.Errorf("class %d: expected %d, got %d", i, c, classes[i])
		}
	}
}

func TestResolveMMFDir_EnvOverride(t *testing.T) {
	cfg := &Config{MMF: MMFConfig{Dir: "/configured/dir"}}

	t.Setenv("TOMATE_MMF_DIR", "/env/dir")
	if got := ResolveMMFDir(cfg); got != "/env/dir" {
		t.Errorf("expected env override, got %q", got)
	}

	t.Setenv("TOMATE_MMF_DIR", "")
	if got := ResolveMMFDir(cfg); got != "/configured/dir" {
		t.Errorf("expected configured dir, got %q", got)
	}
}
