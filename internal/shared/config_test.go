package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Cache.Path != "cookmode.db" {
			t.Errorf("expected cache path cookmode.db, got %s", config.Cache.Path)
		}

		if config.Server.Port != 8094 {
			t.Errorf("expected server port 8094, got %d", config.Server.Port)
		}

		if config.API.BaseURL != "http://localhost:8094/api/v1" {
			t.Errorf("expected api base URL http://localhost:8094/api/v1, got %s", config.API.BaseURL)
		}

		if config.API.WorkspaceHeader != "X-Workspace-Id" {
			t.Errorf("expected workspace header X-Workspace-Id, got %s", config.API.WorkspaceHeader)
		}

		if config.Cook.TickMS != 500 {
			t.Errorf("expected tick_ms 500, got %d", config.Cook.TickMS)
		}

		if config.Cook.SSEBackoffSec != 3 {
			t.Errorf("expected sse_backoff_sec 3, got %d", config.Cook.SSEBackoffSec)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Cache.Path != defaultConfig.Cache.Path {
			t.Errorf("created config cache path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[api]
base_url = "https://tasteos.example.com/api/v1"
token = "secret"
workspace = "ws_123"
workspace_header = "X-Household"

[cache]
path = "/custom/path.db"

[cook]
tick_ms = 250
sse_backoff_sec = 5
default_servings = 4
auto_step_mode = "auto_jump"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.API.BaseURL != "https://tasteos.example.com/api/v1" {
			t.Errorf("unexpected base URL %s", config.API.BaseURL)
		}
		if config.API.Workspace != "ws_123" {
			t.Errorf("unexpected workspace %s", config.API.Workspace)
		}
		if config.Cook.TickMS != 250 {
			t.Errorf("unexpected tick_ms %d", config.Cook.TickMS)
		}
		if config.Cook.AutoStepMode != "auto_jump" {
			t.Errorf("unexpected auto_step_mode %s", config.Cook.AutoStepMode)
		}
	})

	t.Run("LoadConfig Missing File", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		if err := config.Validate(); err != nil {
			t.Errorf("default config should validate: %v", err)
		}

		config.API.BaseURL = ""
		if err := config.Validate(); err == nil {
			t.Error("expected error for missing base URL")
		}

		config = DefaultConfig()
		config.Cook.TickMS = 50
		if err := config.Validate(); err == nil {
			t.Error("expected error for out-of-range tick_ms")
		}

		config = DefaultConfig()
		config.Cook.AutoStepMode = "always"
		if err := config.Validate(); err == nil {
			t.Error("expected error for unknown auto_step_mode")
		}
	})
}
