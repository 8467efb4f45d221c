package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Opacity bounds enforced at validation time. Values outside the range are
// an error in the config file but are clamped when they arrive over IPC.
const (
	MinOpacity = 0.0
	MaxOpacity = 0.9
)

// Config is the effective daemon configuration.
type Config struct {
	// Enabled restores the dimming state from the previous session.
	Enabled bool `yaml:"enabled"`

	// Opacity is the global dimming opacity, 0.0 (off) to 0.9.
	Opacity float64 `yaml:"opacity"`

	// LastOpacity remembers the opacity in effect before dimming was last
	// toggled off, so toggling back on restores it.
	LastOpacity float64 `yaml:"last_opacity"`

	// MultiMonitor dims every connected display instead of only the primary.
	MultiMonitor bool `yaml:"multi_monitor"`

	// PerDisplayOpacity overrides the global opacity per display, keyed by
	// de-duplicated display name (e.g. "DP-1", "Display (2)").
	PerDisplayOpacity map[string]float64 `yaml:"per_display_opacity,omitempty"`

	// AllowCapture leaves dimming visible in screenshots and recordings.
	AllowCapture bool `yaml:"allow_capture"`

	// ForceOverlay skips the compositor-effect path and always dims with
	// overlay windows.
	ForceOverlay bool `yaml:"force_overlay"`

	// Hotkeys in X11 modifier-keysym notation, e.g. "Control-Mod1-End".
	// Empty disables the binding.
	HotkeyToggle   string `yaml:"hotkey_toggle"`
	HotkeyIncrease string `yaml:"hotkey_increase"`
	HotkeyDecrease string `yaml:"hotkey_decrease"`

	// OpacityStep is how much the increase/decrease hotkeys adjust by.
	OpacityStep float64 `yaml:"opacity_step"`

	// LogLevel controls daemon logging: debug, info, warning, error.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        false,
		Opacity:        0.3,
		LastOpacity:    0.3,
		MultiMonitor:   false,
		AllowCapture:   false,
		ForceOverlay:   false,
		HotkeyToggle:   "Control-Mod1-End",
		HotkeyIncrease: "Control-Mod1-Up",
		HotkeyDecrease: "Control-Mod1-Down",
		OpacityStep:    0.05,
		LogLevel:       "info",
	}
}

// ValidationError reports an invalid config value with its YAML path.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	if c.Opacity < MinOpacity || c.Opacity > MaxOpacity {
		return &ValidationError{Path: "opacity", Err: fmt.Errorf("opacity must be between %v and %v", MinOpacity, MaxOpacity)}
	}
	if c.LastOpacity < MinOpacity || c.LastOpacity > MaxOpacity {
		return &ValidationError{Path: "last_opacity", Err: fmt.Errorf("last_opacity must be between %v and %v", MinOpacity, MaxOpacity)}
	}
	for name, opacity := range c.PerDisplayOpacity {
		if name == "" {
			return &ValidationError{Path: "per_display_opacity", Err: fmt.Errorf("per_display_opacity contains an empty display name")}
		}
		if opacity < MinOpacity || opacity > MaxOpacity {
			return &ValidationError{Path: "per_display_opacity." + name, Err: fmt.Errorf("opacity must be between %v and %v", MinOpacity, MaxOpacity)}
		}
	}
	if c.OpacityStep <= 0 || c.OpacityStep > MaxOpacity {
		return &ValidationError{Path: "opacity_step", Err: fmt.Errorf("opacity_step must be between 0 (exclusive) and %v", MaxOpacity)}
	}
	switch c.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	return nil
}

// Save writes the configuration to the standard location.
//
// Note: this marshals the effective config and will not preserve comments
// from the original YAML.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveToPath(path)
}

// SaveToPath writes the configuration to path, creating parent directories
// as needed.
func (c *Config) SaveToPath(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
