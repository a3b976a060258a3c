package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. EPICCHAT_LLM_API_KEY overrides llm.api_key
const EnvPrefix = "EPICCHAT"

// Config represents the application configuration
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm" json:"llm"`
	Data   DataConfig   `mapstructure:"data" json:"data"`
	Server ServerConfig `mapstructure:"server" json:"server"`
	Log    LogConfig    `mapstructure:"log" json:"log"`
}

// LLMConfig represents chat completion provider configuration
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key" json:"api_key"`
	BaseURL     string  `mapstructure:"base_url" json:"base_url"`
	Model       string  `mapstructure:"model" json:"model"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	Personality string  `mapstructure:"personality" json:"personality"`
	Timeout     int     `mapstructure:"timeout" json:"timeout"` // seconds
	History     int     `mapstructure:"history" json:"history"` // messages sent as context
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath       string `mapstructure:"db_path" json:"db_path"`
	ExportDir    string `mapstructure:"export_dir" json:"export_dir"`
	Product      string `mapstructure:"product" json:"product"`
	MaxImageSize uint   `mapstructure:"max_image_size" json:"max_image_size"` // px, 0 keeps images as-is
}

// ServerConfig represents HTTP facade configuration
type ServerConfig struct {
	Port int      `mapstructure:"port" json:"port"`
	Mode string   `mapstructure:"mode" json:"mode"` // debug / release / test
	CORS []string `mapstructure:"cors" json:"cors"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"` // json / text
	Dir    string `mapstructure:"dir" json:"dir"`
}

// DefaultConfig returns the configuration used when no file or environment overrides exist
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-3.5-turbo",
			MaxTokens:   1000,
			Temperature: 0.7,
			Personality: "professional",
			Timeout:     60,
			History:     20,
		},
		Data: DataConfig{
			DBPath:       "./data/chat.db",
			ExportDir:    ".",
			Product:      "epic_tech_ai",
			MaxImageSize: 1024,
		},
		Server: ServerConfig{
			Port: 8080,
			Mode: "release",
			CORS: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Dir:    "./logs",
		},
	}
}

// LoadConfig loads configuration from a JSON file, applying defaults and environment
// overrides. A missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, DefaultConfig())

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths
	config.Data.DBPath = expandPath(config.Data.DBPath)
	config.Data.ExportDir = expandPath(config.Data.ExportDir)
	config.Log.Dir = expandPath(config.Log.Dir)

	return &config, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.max_tokens", d.LLM.MaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.personality", d.LLM.Personality)
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("llm.history", d.LLM.History)

	v.SetDefault("data.db_path", d.Data.DBPath)
	v.SetDefault("data.export_dir", d.Data.ExportDir)
	v.SetDefault("data.product", d.Data.Product)
	v.SetDefault("data.max_image_size", d.Data.MaxImageSize)

	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("server.cors", d.Server.CORS)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.dir", d.Log.Dir)
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	// Make absolute
	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	// Try to get user config directory
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to current directory
		return "./config/default.json"
	}

	return filepath.Join(configDir, "epictech-chat", "config.json")
}

// EnsureDefaultConfig creates a default config file at configPath if it doesn't exist
func EnsureDefaultConfig(configPath string) (string, error) {
	if configPath == "" {
		configPath = GetConfigPath()
	}

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := SaveConfig(configPath, DefaultConfig()); err != nil {
		return "", err
	}

	return configPath, nil
}
