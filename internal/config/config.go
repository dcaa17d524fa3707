// Package config handles application configuration management.
// It supports YAML files and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Matrix    MatrixConfig    `mapstructure:"matrix" yaml:"matrix"`
	Anthropic AnthropicConfig `mapstructure:"anthropic" yaml:"anthropic"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Chat      ChatConfig      `mapstructure:"chat" yaml:"chat"`
}

// MatrixConfig holds Matrix connection settings
type MatrixConfig struct {
	Homeserver  string `mapstructure:"homeserver" yaml:"homeserver"`
	UserID      string `mapstructure:"user_id" yaml:"user_id"`
	DeviceID    string `mapstructure:"device_id" yaml:"device_id"`
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	NextBatch   string `mapstructure:"next_batch" yaml:"next_batch"`
	RoomID      string `mapstructure:"room_id" yaml:"room_id"` // The couple's chat room
}

// AnthropicConfig holds Anthropic API settings
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// StorageConfig holds storage settings
type StorageConfig struct {
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	Backend string `mapstructure:"backend" yaml:"backend"` // Sticker library backend: file or redis
}

// RedisConfig holds Redis settings for the sticker library
type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Key      string `mapstructure:"key" yaml:"key"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// ChatConfig holds chat display and translation settings
type ChatConfig struct {
	DisplayName      string `mapstructure:"display_name" yaml:"display_name"`
	MyBubbleColor    string `mapstructure:"my_bubble_color" yaml:"my_bubble_color"`
	OtherBubbleColor string `mapstructure:"other_bubble_color" yaml:"other_bubble_color"`
	Language         string `mapstructure:"language" yaml:"language"`         // Language I write in
	TranslateTo      string `mapstructure:"translate_to" yaml:"translate_to"` // Language translations are shown in
	AutoTranslate    bool   `mapstructure:"auto_translate" yaml:"auto_translate"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("anthropic.model", "claude-3-5-haiku-latest")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("storage.backend", "file")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key", "sayangku-stickers")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("chat.display_name", "me")
	v.SetDefault("chat.my_bubble_color", "#ec4899")
	v.SetDefault("chat.other_bubble_color", "#e5e7eb")
	v.SetDefault("chat.language", "en")
	v.SetDefault("chat.translate_to", "id")
	v.SetDefault("chat.auto_translate", false)

	// Determine config directory
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine config directory: %w", err)
	}

	// Set default storage directory
	v.SetDefault("storage.data_dir", configDir)

	// Configure viper to read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir) // Will be /data in Docker (via SAYANGKU_CONFIG_DIR env var)
	v.AddConfigPath(".")       // Current directory

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK - we'll use defaults and env vars
	}

	// Environment variable overrides
	v.SetEnvPrefix("SAYANGKU")
	v.AutomaticEnv()

	// Specific env var bindings
	_ = v.BindEnv("matrix.access_token", "MATRIX_ACCESS_TOKEN")
	_ = v.BindEnv("matrix.room_id", "SAYANGKU_ROOM_ID")
	_ = v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("storage.backend", "SAYANGKU_STORAGE_BACKEND")
	_ = v.BindEnv("server.addr", "SAYANGKU_ADDR")

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that have a fixed set of values
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid storage backend: %s (valid: file, redis)", c.Storage.Backend)
	}
	return nil
}

// Save writes the current configuration to file
func Save(cfg *Config) error {
	configDir, err := getConfigDir()
	if err != nil {
		return fmt.Errorf("failed to determine config directory: %w", err)
	}

	// Ensure config directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")

	v := viper.New()
	v.Set("matrix", cfg.Matrix)
	v.Set("anthropic", cfg.Anthropic)
	v.Set("storage", cfg.Storage)
	v.Set("redis", cfg.Redis)
	v.Set("server", cfg.Server)
	v.Set("chat", cfg.Chat)

	if err := v.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	// Set restrictive permissions on config file (contains credentials)
	if err := os.Chmod(configPath, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	// Check for SAYANGKU_CONFIG_DIR env var (Docker can set this to /data)
	if configDir := os.Getenv("SAYANGKU_CONFIG_DIR"); configDir != "" {
		return configDir, nil
	}

	// Use XDG_CONFIG_HOME if set
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "sayangku"), nil
	}

	// Fall back to ~/.config/sayangku
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, ".config", "sayangku"), nil
}

// GetConfigDir returns the configuration directory (exported for other packages)
func GetConfigDir() (string, error) {
	return getConfigDir()
}
