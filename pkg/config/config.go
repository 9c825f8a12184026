package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the archiver
type Config struct {
	// Graph API settings and credentials
	API APIConfig `yaml:"api" json:"api"`

	// Archive layout settings
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Asset download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Fetch retry settings
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds Graph API configuration
type APIConfig struct {
	BaseURL string `yaml:"base_url" json:"base_url"`
	Version string `yaml:"version" json:"version"`
	UserID  string `yaml:"user_id" json:"user_id"`
	// AccessToken is never written to config files
	AccessToken     string        `yaml:"-" json:"-"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	ValidateTimeout time.Duration `yaml:"validate_timeout" json:"validate_timeout"`
	PageSize        int           `yaml:"page_size" json:"page_size"`
}

// ArchiveConfig holds archive directory configuration
type ArchiveConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// DownloadConfig holds asset download configuration
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts" json:"retry_attempts"`
	ChunkSize     int           `yaml:"chunk_size" json:"chunk_size"`
}

// RetryConfig holds fetch retry configuration
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" json:"multiplier"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the archiver's defaults.
// The retry schedule (1.5s base, 1.5 multiplier, no jitter) yields
// 1.5^attempt seconds between failed fetch attempts.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         "https://graph.facebook.com",
			Version:         "v19.0",
			Timeout:         30 * time.Second,
			ValidateTimeout: 15 * time.Second,
			PageSize:        50,
		},
		Archive: ArchiveConfig{
			BaseDirectory: "InstagramArchive",
		},
		Download: DownloadConfig{
			Timeout:       30 * time.Second,
			RetryAttempts: 3,
			ChunkSize:     8192,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   1500 * time.Millisecond,
			MaxDelay:    5 * time.Minute,
			Multiplier:  1.5,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if userID := os.Getenv("IG_USER_ID"); userID != "" {
		c.API.UserID = userID
	}
	if token := os.Getenv("IG_ACCESS_TOKEN"); token != "" {
		c.API.AccessToken = token
	}
	if version := os.Getenv("IG_API_VERSION"); version != "" {
		c.API.Version = version
	}

	// IG_ARCHIVE_DATA_DIR wins over the older IG_ARCHIVE_DIR name
	if dir := os.Getenv("IG_ARCHIVE_DIR"); dir != "" {
		c.Archive.BaseDirectory = dir
	}
	if dir := os.Getenv("IG_ARCHIVE_DATA_DIR"); dir != "" {
		c.Archive.BaseDirectory = dir
	}

	if level := os.Getenv("IG_ARCHIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if file := os.Getenv("IG_ARCHIVE_LOG_FILE"); file != "" {
		c.Logging.File = file
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".instarchiver.yaml",
		".instarchiver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "instarchiver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "instarchiver", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".instarchiver.yaml"),
		filepath.Join(os.Getenv("HOME"), ".instarchiver.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks the structural soundness of the configuration.
// Credential presence is checked separately by RequireCredentials so
// commands that never touch the API can still load config.
func (c *Config) Validate() error {
	var errs []error

	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("API base URL is required"))
	}
	if c.API.Version == "" {
		errs = append(errs, errors.New("API version is required"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("API timeout must be positive"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}

	if c.Archive.BaseDirectory == "" {
		errs = append(errs, errors.New("archive directory is required"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.RetryAttempts < 1 {
		errs = append(errs, errors.New("download retry attempts must be at least 1"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, errors.New("download chunk size must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.BaseDelay <= 0 {
		errs = append(errs, errors.New("retry base delay must be positive"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// RequireCredentials reports an error when the Graph API user id or
// access token is missing. Commands that talk to the API call this
// before any network traffic.
func (c *Config) RequireCredentials() error {
	var errs []error

	if c.API.UserID == "" {
		errs = append(errs, errors.New("user id is required (set IG_USER_ID or store credentials)"))
	}
	if c.API.AccessToken == "" {
		errs = append(errs, errors.New("access token is required (set IG_ACCESS_TOKEN or store credentials)"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// StatePath returns the location of the run state document.
func (c *Config) StatePath() string {
	return filepath.Join(c.Archive.BaseDirectory, "state.json")
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output-dir"].(string); ok && outputDir != "" {
		c.Archive.BaseDirectory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.API.PageSize = pageSize
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".instarchiver.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// The run log lives next to the archive unless told otherwise
	if config.Logging.File == "" {
		config.Logging.File = filepath.Join(config.Archive.BaseDirectory, "archive.log")
	}

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
