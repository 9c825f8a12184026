package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.API.BaseURL != "https://graph.facebook.com" {
		t.Errorf("Expected default base URL to be graph.facebook.com, got %s", config.API.BaseURL)
	}
	if config.API.Version != "v19.0" {
		t.Errorf("Expected default API version to be v19.0, got %s", config.API.Version)
	}
	if config.API.PageSize != 50 {
		t.Errorf("Expected default page size to be 50, got %d", config.API.PageSize)
	}
	if config.Archive.BaseDirectory != "InstagramArchive" {
		t.Errorf("Expected default archive directory to be InstagramArchive, got %s", config.Archive.BaseDirectory)
	}
	if config.Retry.MaxAttempts != 5 {
		t.Errorf("Expected default fetch attempts to be 5, got %d", config.Retry.MaxAttempts)
	}
	if config.Retry.BaseDelay != 1500*time.Millisecond {
		t.Errorf("Expected default base delay to be 1.5s, got %v", config.Retry.BaseDelay)
	}
	if config.Retry.Multiplier != 1.5 {
		t.Errorf("Expected default multiplier to be 1.5, got %v", config.Retry.Multiplier)
	}
	if config.Download.RetryAttempts != 3 {
		t.Errorf("Expected default download attempts to be 3, got %d", config.Download.RetryAttempts)
	}
	if config.Download.ChunkSize != 8192 {
		t.Errorf("Expected default chunk size to be 8192, got %d", config.Download.ChunkSize)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate, got: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IG_USER_ID", "17841400000000000")
	t.Setenv("IG_ACCESS_TOKEN", "test-access-token")
	t.Setenv("IG_API_VERSION", "v20.0")
	t.Setenv("IG_ARCHIVE_DATA_DIR", "/tmp/test-archive")
	t.Setenv("IG_ARCHIVE_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.API.UserID != "17841400000000000" {
		t.Errorf("Expected user id from env, got %s", config.API.UserID)
	}
	if config.API.AccessToken != "test-access-token" {
		t.Errorf("Expected access token from env, got %s", config.API.AccessToken)
	}
	if config.API.Version != "v20.0" {
		t.Errorf("Expected API version v20.0, got %s", config.API.Version)
	}
	if config.Archive.BaseDirectory != "/tmp/test-archive" {
		t.Errorf("Expected archive dir from env, got %s", config.Archive.BaseDirectory)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvLegacyDirName(t *testing.T) {
	t.Setenv("IG_ARCHIVE_DIR", "/tmp/legacy-archive")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}
	if config.Archive.BaseDirectory != "/tmp/legacy-archive" {
		t.Errorf("Expected legacy IG_ARCHIVE_DIR to be honored, got %s", config.Archive.BaseDirectory)
	}

	// The newer name wins when both are set
	t.Setenv("IG_ARCHIVE_DATA_DIR", "/tmp/new-archive")
	config = DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}
	if config.Archive.BaseDirectory != "/tmp/new-archive" {
		t.Errorf("Expected IG_ARCHIVE_DATA_DIR to win, got %s", config.Archive.BaseDirectory)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `api:
  version: v21.0
  page_size: 25
archive:
  base_directory: /data/instagram
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.API.Version != "v21.0" {
		t.Errorf("Expected version v21.0, got %s", config.API.Version)
	}
	if config.API.PageSize != 25 {
		t.Errorf("Expected page size 25, got %d", config.API.PageSize)
	}
	if config.Archive.BaseDirectory != "/data/instagram" {
		t.Errorf("Expected archive dir /data/instagram, got %s", config.Archive.BaseDirectory)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Logging.Level)
	}
	// Untouched sections keep their defaults
	if config.Download.RetryAttempts != 3 {
		t.Errorf("Expected download attempts to keep default 3, got %d", config.Download.RetryAttempts)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Error("Expected error for explicitly named missing file")
	}
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("api: [not a map"), 0644); err != nil {
		t.Fatal(err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err == nil {
		t.Error("Expected parse error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing base URL", func(c *Config) { c.API.BaseURL = "" }, "base URL"},
		{"missing version", func(c *Config) { c.API.Version = "" }, "version"},
		{"zero page size", func(c *Config) { c.API.PageSize = 0 }, "page size"},
		{"missing archive dir", func(c *Config) { c.Archive.BaseDirectory = "" }, "archive directory"},
		{"zero download timeout", func(c *Config) { c.Download.Timeout = 0 }, "download timeout"},
		{"zero download attempts", func(c *Config) { c.Download.RetryAttempts = 0 }, "retry attempts"},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"sub-unit multiplier", func(c *Config) { c.Retry.Multiplier = 0.5 }, "multiplier"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)

			err := config.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	config := DefaultConfig()

	err := config.RequireCredentials()
	if err == nil {
		t.Fatal("Expected error with no credentials")
	}
	if !strings.Contains(err.Error(), "user id") || !strings.Contains(err.Error(), "access token") {
		t.Errorf("Expected both missing credentials reported, got: %v", err)
	}

	config.API.UserID = "17841400000000000"
	err = config.RequireCredentials()
	if err == nil || strings.Contains(err.Error(), "user id") {
		t.Errorf("Expected only token reported missing, got: %v", err)
	}

	config.API.AccessToken = "token"
	if err := config.RequireCredentials(); err != nil {
		t.Errorf("Expected no error with full credentials, got: %v", err)
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()

	config.MergeCommandLineFlags(map[string]interface{}{
		"output-dir": "/custom/archive",
		"log-level":  "debug",
		"page-size":  10,
	})

	if config.Archive.BaseDirectory != "/custom/archive" {
		t.Errorf("Expected output-dir flag applied, got %s", config.Archive.BaseDirectory)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log-level flag applied, got %s", config.Logging.Level)
	}
	if config.API.PageSize != 10 {
		t.Errorf("Expected page-size flag applied, got %d", config.API.PageSize)
	}

	// Empty values do not override
	config.MergeCommandLineFlags(map[string]interface{}{"output-dir": ""})
	if config.Archive.BaseDirectory != "/custom/archive" {
		t.Error("Empty flag should not override existing value")
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `archive:
  base_directory: /from/file
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("IG_ARCHIVE_DATA_DIR", "/from/env")

	config, err := Load(path, map[string]interface{}{"log-level": "error"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Env beats file
	if config.Archive.BaseDirectory != "/from/env" {
		t.Errorf("Expected env to override file, got %s", config.Archive.BaseDirectory)
	}
	// Flag beats env and file
	if config.Logging.Level != "error" {
		t.Errorf("Expected flag to override file, got %s", config.Logging.Level)
	}
	// Log file defaults into the archive directory
	if config.Logging.File != filepath.Join("/from/env", "archive.log") {
		t.Errorf("Expected default log file under archive dir, got %s", config.Logging.File)
	}
}

func TestStatePath(t *testing.T) {
	config := DefaultConfig()
	config.Archive.BaseDirectory = "/data/ig"

	if got := config.StatePath(); got != filepath.Join("/data/ig", "state.json") {
		t.Errorf("StatePath() = %s", got)
	}
}
