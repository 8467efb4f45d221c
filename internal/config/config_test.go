package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadFromPathMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Opacity != 0.3 {
		t.Errorf("Opacity = %v, want default 0.3", cfg.Opacity)
	}
	if cfg.HotkeyToggle != "Control-Mod1-End" {
		t.Errorf("HotkeyToggle = %q, want default binding", cfg.HotkeyToggle)
	}
}

func TestLoadFromPathMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
opacity: 0.5
multi_monitor: true
per_display_opacity:
  HDMI-1: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Opacity != 0.5 {
		t.Errorf("Opacity = %v, want 0.5", cfg.Opacity)
	}
	if !cfg.MultiMonitor {
		t.Error("MultiMonitor not set from file")
	}
	if cfg.PerDisplayOpacity["HDMI-1"] != 0.7 {
		t.Errorf("PerDisplayOpacity[HDMI-1] = %v, want 0.7", cfg.PerDisplayOpacity["HDMI-1"])
	}
	// Unspecified fields keep defaults.
	if cfg.OpacityStep != 0.05 {
		t.Errorf("OpacityStep = %v, want default 0.05", cfg.OpacityStep)
	}
}

func TestLoadFromPathRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("opcaity: 0.5\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantPath string
	}{
		{"opacity too high", func(c *Config) { c.Opacity = 0.95 }, "opacity"},
		{"opacity fully opaque", func(c *Config) { c.Opacity = 1.0 }, "opacity"},
		{"negative opacity", func(c *Config) { c.Opacity = -0.1 }, "opacity"},
		{"last opacity out of range", func(c *Config) { c.LastOpacity = 1.2 }, "last_opacity"},
		{"per-display out of range", func(c *Config) {
			c.PerDisplayOpacity = map[string]float64{"DP-1": 0.99}
		}, "per_display_opacity.DP-1"},
		{"empty display name", func(c *Config) {
			c.PerDisplayOpacity = map[string]float64{"": 0.3}
		}, "per_display_opacity"},
		{"zero step", func(c *Config) { c.OpacityStep = 0 }, "opacity_step"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if verr.Path != tt.wantPath {
				t.Errorf("path = %q, want %q", verr.Path, tt.wantPath)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Opacity = 0.45
	cfg.PerDisplayOpacity = map[string]float64{"Display (2)": 0.6}

	if err := cfg.SaveToPath(path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if !loaded.Enabled || loaded.Opacity != 0.45 {
		t.Errorf("round trip lost values: enabled=%v opacity=%v", loaded.Enabled, loaded.Opacity)
	}
	if loaded.PerDisplayOpacity["Display (2)"] != 0.6 {
		t.Errorf("PerDisplayOpacity lost in round trip: %v", loaded.PerDisplayOpacity)
	}
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Opacity = 5.0

	err := cfg.SaveToPath(filepath.Join(t.TempDir(), "config.yaml"))
	if err == nil {
		t.Fatal("expected validation error on save")
	}
	if !strings.Contains(err.Error(), "opacity") {
		t.Errorf("error %q does not mention the invalid field", err)
	}
}
