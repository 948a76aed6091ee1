// Package config provides application-wide configuration loaded from env vars,
// optionally layered over a YAML file. Every field has a safe default so the
// binary runs locally without any setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for crmops.
type Config struct {
	HTTPHost           string `yaml:"http_host"`            // HTTP_HOST, default: "0.0.0.0"
	HTTPPort           int    `yaml:"http_port"`            // HTTP_PORT, default: 8080
	DatabasePath       string `yaml:"database_path"`        // DATABASE_PATH, default: "crmops.db"
	LogLevel           string `yaml:"log_level"`            // LOG_LEVEL, default: "info"
	JWTSecret          string `yaml:"jwt_secret"`           // JWT_SECRET, default: "" (auth disabled)
	JWTExpiryHours     int    `yaml:"jwt_expiry_hours"`     // JWT_EXPIRY, default: 24
	DefaultWorkspaceID string `yaml:"default_workspace_id"` // DEFAULT_WORKSPACE_ID, default: "default"
}

const (
	envKeyConfigFile         = "CONFIG_FILE"
	envKeyHTTPHost           = "HTTP_HOST"
	envKeyHTTPPort           = "HTTP_PORT"
	envKeyDatabasePath       = "DATABASE_PATH"
	envKeyLogLevel           = "LOG_LEVEL"
	envKeyJWTSecret          = "JWT_SECRET"
	envKeyJWTExpiry          = "JWT_EXPIRY"
	envKeyDefaultWorkspaceID = "DEFAULT_WORKSPACE_ID"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		HTTPHost:           "0.0.0.0",
		HTTPPort:           8080,
		DatabasePath:       "crmops.db",
		LogLevel:           "info",
		JWTExpiryHours:     24,
		DefaultWorkspaceID: "default",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv(envKeyConfigFile))
}

// LoadFile is Load with an explicit YAML path; an empty path skips the file layer.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		if err := mergeFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// AuthEnabled reports whether JWT auth is configured for the API.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func mergeFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %q: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPHost = envOr(envKeyHTTPHost, cfg.HTTPHost)
	cfg.HTTPPort = envIntOr(envKeyHTTPPort, cfg.HTTPPort)
	cfg.DatabasePath = envOr(envKeyDatabasePath, cfg.DatabasePath)
	cfg.LogLevel = envOr(envKeyLogLevel, cfg.LogLevel)
	cfg.JWTSecret = envOr(envKeyJWTSecret, cfg.JWTSecret)
	cfg.JWTExpiryHours = envIntOr(envKeyJWTExpiry, cfg.JWTExpiryHours)
	cfg.DefaultWorkspaceID = envOr(envKeyDefaultWorkspaceID, cfg.DefaultWorkspaceID)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses key as a positive int; unset or invalid values keep fallback.
func envIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
