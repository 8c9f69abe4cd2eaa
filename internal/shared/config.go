package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API    APIConfig    `toml:"api"`
	Cache  CacheConfig  `toml:"cache"`
	Cook   CookConfig   `toml:"cook"`
	Server ServerConfig `toml:"server"`
}

// APIConfig contains TasteOS backend connection settings.
type APIConfig struct {
	BaseURL string `toml:"base_url"`
	// Token is sent as a bearer token on every request.
	Token string `toml:"token"`
	// Workspace identifies the household/workspace the deployment scopes
	// requests to. Sent as WorkspaceHeader on every call when non-empty.
	Workspace       string `toml:"workspace"`
	WorkspaceHeader string `toml:"workspace_header"`
	// WebBaseURL is the browser-facing app, used by `session open`.
	WebBaseURL string `toml:"web_base_url"`
}

// CacheConfig contains local snapshot database settings.
type CacheConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// CookConfig contains cook-mode behavior settings.
type CookConfig struct {
	// TickMS is the countdown poll cadence in milliseconds (100–1000).
	TickMS int `toml:"tick_ms"`
	// SSEBackoffSec is the fixed reconnect delay for the event stream.
	SSEBackoffSec   int    `toml:"sse_backoff_sec"`
	DefaultServings int    `toml:"default_servings"`
	AutoStepEnabled bool   `toml:"auto_step_enabled"`
	AutoStepMode    string `toml:"auto_step_mode"` // "suggest" or "auto_jump"
	// SuggestRate limits autoflow suggestion refreshes (requests/second).
	SuggestRate float64 `toml:"suggest_rate"`
	// Mute disables the finished-timer tone (desktop notification still fires).
	Mute bool `toml:"mute"`
}

// ServerConfig contains settings for the bundled reference server.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes the configuration to the specified path as TOML.
func SaveConfig(path string, config *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// Validate checks the fields the client cannot run without.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("%w: api.base_url is required", ErrInvalidConfig)
	}
	if c.Cook.TickMS < 100 || c.Cook.TickMS > 1000 {
		return fmt.Errorf("%w: cook.tick_ms must be between 100 and 1000", ErrInvalidConfig)
	}
	switch c.Cook.AutoStepMode {
	case "", "suggest", "auto_jump":
	default:
		return fmt.Errorf("%w: cook.auto_step_mode must be suggest or auto_jump", ErrInvalidConfig)
	}
	return nil
}
