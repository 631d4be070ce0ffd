package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Blog    BlogConfig    `mapstructure:"blog"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BackendConfig holds the hosted backend connection settings
type BackendConfig struct {
	URL    string `mapstructure:"url"`     // Project URL, e.g. https://xyz.supabase.co
	APIKey string `mapstructure:"api_key"` // Anon/service API key
	Bucket string `mapstructure:"bucket"`  // Storage bucket for media
}

// BlogConfig holds blog-level settings
type BlogConfig struct {
	AuthorProfileID int64  `mapstructure:"author_profile_id"` // Profile row used as post author
	CommenterName   string `mapstructure:"commenter_name"`    // Default name on comments
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Bucket: "media",
		},
		Blog: BlogConfig{
			AuthorProfileID: 1,
			CommenterName:   "guest",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "plume", "plume.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "plume", "plume.log")
	}
}

// defaultConfigPath returns the default config file path for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "plume")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "plume")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	// Environment variable overrides
	viper.SetEnvPrefix("PLUME")
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()

	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Set fields individually to ensure correct key names (snake_case)
	viper.Set("backend.url", cfg.Backend.URL)
	viper.Set("backend.api_key", cfg.Backend.APIKey)
	viper.Set("backend.bucket", cfg.Backend.Bucket)

	viper.Set("blog.author_profile_id", cfg.Blog.AuthorProfileID)
	viper.Set("blog.commenter_name", cfg.Blog.CommenterName)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// IsConfigured returns true if the backend URL and API key are set
func (c *Config) IsConfigured() bool {
	return c.Backend.URL != "" && c.Backend.APIKey != ""
}

// CachePath returns the default cache directory path for the current OS
func CachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "plume", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "plume", "cache")
	}
}

// ClearCache removes all cached data on disk
func ClearCache() error {
	if err := os.RemoveAll(CachePath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
