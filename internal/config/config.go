// Package config loads the compositor configuration using Viper. The core
// consumes this configuration at startup and on explicit reload; it never
// writes it back to disk.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the compositor configuration.
type Config struct {
	// Outputs holds per-output layout preferences, keyed by stable output name
	Outputs []OutputConfig `mapstructure:"outputs"`

	// Input configuration
	Input InputConfig `mapstructure:"input"`

	// Compositor behaviour
	Compositor CompositorConfig `mapstructure:"compositor"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// OutputConfig pins layout properties to an output by its stable name, so the
// preference survives unplug/replug of physically identical hardware.
type OutputConfig struct {
	Name      string  `mapstructure:"name"`
	X         int     `mapstructure:"x"`
	Y         int     `mapstructure:"y"`
	Width     int     `mapstructure:"width"`   // Preferred mode width; 0 means negotiate
	Height    int     `mapstructure:"height"`  // Preferred mode height; 0 means negotiate
	Refresh   int     `mapstructure:"refresh"` // Preferred refresh in mHz; 0 means negotiate
	Scale     float64 `mapstructure:"scale"`
	Transform string  `mapstructure:"transform"` // normal, 90, 180, 270, flipped
	Disabled  bool    `mapstructure:"disabled"`
}

// InputConfig contains pointer and keyboard preferences.
type InputConfig struct {
	FocusFollowsMouse bool   `mapstructure:"focus_follows_mouse"`
	NaturalScroll     bool   `mapstructure:"natural_scroll"`
	RepeatRate        int    `mapstructure:"repeat_rate"`  // Keys per second
	RepeatDelay       int    `mapstructure:"repeat_delay"` // Milliseconds before repeat
	KeyboardLayout    string `mapstructure:"keyboard_layout"`
}

// CompositorConfig contains core behaviour settings.
type CompositorConfig struct {
	RefreshHint int  `mapstructure:"refresh_hint"` // Fallback tick rate in Hz for outputs without timing info
	ServerDecor bool `mapstructure:"server_decorations"`
	IntentQueue int  `mapstructure:"intent_queue"` // Inbound bridge queue depth
	EventBuffer int  `mapstructure:"event_buffer"` // Per-subscriber outbound buffer
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Overrides LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Outputs: []OutputConfig{},
		Input: InputConfig{
			FocusFollowsMouse: false,
			NaturalScroll:     false,
			RepeatRate:        25,
			RepeatDelay:       600,
			KeyboardLayout:    "us",
		},
		Compositor: CompositorConfig{
			RefreshHint: 60,
			ServerDecor: true,
			IntentQueue: 256,
			EventBuffer: 64,
		},
		Logging: LoggingConfig{
			LogLevel: "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path.
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system.
func Init() error {
	viper.SetConfigName("nova")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/nova")
		if home := os.Getenv("HOME"); home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "nova"))
		}
		viper.AddConfigPath(".")
	}

	viper.SetDefault("input.focus_follows_mouse", DefaultConfig.Input.FocusFollowsMouse)
	viper.SetDefault("input.natural_scroll", DefaultConfig.Input.NaturalScroll)
	viper.SetDefault("input.repeat_rate", DefaultConfig.Input.RepeatRate)
	viper.SetDefault("input.repeat_delay", DefaultConfig.Input.RepeatDelay)
	viper.SetDefault("input.keyboard_layout", DefaultConfig.Input.KeyboardLayout)

	viper.SetDefault("compositor.refresh_hint", DefaultConfig.Compositor.RefreshHint)
	viper.SetDefault("compositor.server_decorations", DefaultConfig.Compositor.ServerDecor)
	viper.SetDefault("compositor.intent_queue", DefaultConfig.Compositor.IntentQueue)
	viper.SetDefault("compositor.event_buffer", DefaultConfig.Compositor.EventBuffer)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	viper.SetDefault("outputs", DefaultConfig.Outputs)

	if err := viper.ReadInConfig(); err != nil {
		if !missingConfig(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Reload re-reads the config file in place. Callers apply the result through
// the bridge; Reload itself touches no core state.
func Reload() (*Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if !missingConfig(err) {
			return nil, fmt.Errorf("error re-reading config file: %w", err)
		}
	}

	next := &Config{}
	if err := viper.Unmarshal(next); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}
	cfg = next
	return next, nil
}

// missingConfig reports whether a ReadInConfig error means the file simply
// does not exist. Viper only returns ConfigFileNotFoundError for search-path
// lookups; an explicit SetConfigFile path surfaces a plain fs.ErrNotExist.
func missingConfig(err error) bool {
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing).
func Set(c *Config) {
	cfg = c
}

// OutputByName returns the layout preference for an output, if configured.
func (c *Config) OutputByName(name string) (*OutputConfig, bool) {
	for i := range c.Outputs {
		if c.Outputs[i].Name == name {
			return &c.Outputs[i], true
		}
	}
	return nil, false
}
