// Copyright (c) 2025 FindSkills
//
// This file is part of findskills-server.
//
// findskills-server is licensed under the GNU Affero General Public License v3.0.
// See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html

// Package config loads and validates the server configuration from a YAML
// file with environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/findskills/findskills-server/pkg/passkey"
	"github.com/findskills/findskills-server/pkg/ratelimit"
)

// Config represents the complete server configuration
type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Logging   LoggingConfig    `yaml:"logging"`
	TLS       TLSConfig        `yaml:"tls"`
	Auth      AuthConfig       `yaml:"auth"`
	WebAuthn  passkey.Config   `yaml:"webauthn"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Storage   StorageConfig    `yaml:"storage"`
	RateLimit ratelimit.Config `yaml:"rate_limit"`
	Seed      bool             `yaml:"seed"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// CORSOrigins are the origins allowed to call the API from a browser.
	CORSOrigins []string `yaml:"cors_origins"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TLSConfig controls TLS/SSL settings
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// AuthConfig controls session token issuance
type AuthConfig struct {
	// TokenFormat selects the session token codec: "legacy" or "signed".
	TokenFormat string `yaml:"token_format"`

	// Secret is the HMAC key for the signed token format.
	Secret string `yaml:"secret"`

	// SecureCookies marks session cookies Secure. Enable behind HTTPS.
	SecureCookies bool `yaml:"secure_cookies"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	// Backend is "memory" or "bolt".
	Backend string `yaml:"backend"`

	// Path is the database file for the bolt backend.
	Path string `yaml:"path"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            3000,
			CORSOrigins:     []string{"http://localhost:5173"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Auth: AuthConfig{
			TokenFormat: "legacy",
		},
		WebAuthn: passkey.Config{
			RPID:          "localhost",
			RPDisplayName: "FindSkills",
			RPOrigins:     []string{"http://localhost:5173"},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		RateLimit: ratelimit.Config{
			Enabled:           true,
			AttemptsPerMinute: 30,
			Burst:             10,
		},
		Seed: true,
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration
func ApplyEnvOverrides(cfg *Config) {
	if host := os.Getenv("FINDSKILLS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("FINDSKILLS_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid FINDSKILLS_PORT value %q, using default %d: %v",
				portStr, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid FINDSKILLS_PORT value %q (out of range 1-65535), using default %d",
				portStr, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	if level := os.Getenv("FINDSKILLS_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("FINDSKILLS_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if secret := os.Getenv("FINDSKILLS_AUTH_SECRET"); secret != "" {
		cfg.Auth.Secret = secret
	}
	if format := os.Getenv("FINDSKILLS_TOKEN_FORMAT"); format != "" {
		cfg.Auth.TokenFormat = format
	}

	if rpID := os.Getenv("FINDSKILLS_RP_ID"); rpID != "" {
		cfg.WebAuthn.RPID = rpID
	}
	if origins := os.Getenv("FINDSKILLS_RP_ORIGINS"); origins != "" {
		cfg.WebAuthn.RPOrigins = strings.Split(origins, ",")
	}

	if backend := os.Getenv("FINDSKILLS_STORAGE_BACKEND"); backend != "" {
		cfg.Storage.Backend = backend
	}
	if path := os.Getenv("FINDSKILLS_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	switch c.Auth.TokenFormat {
	case "legacy":
	case "signed":
		if c.Auth.Secret == "" {
			return fmt.Errorf("auth secret is required for the signed token format")
		}
	default:
		return fmt.Errorf("invalid token format: %s (must be legacy or signed)", c.Auth.TokenFormat)
	}

	c.WebAuthn.SetDefaults()
	if err := c.WebAuthn.Validate(); err != nil {
		return fmt.Errorf("webauthn: %w", err)
	}

	switch c.Storage.Backend {
	case "memory":
	case "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the bolt backend")
		}
	default:
		return fmt.Errorf("invalid storage backend: %s (must be memory or bolt)", c.Storage.Backend)
	}

	if c.RateLimit.Enabled && c.RateLimit.AttemptsPerMinute < 1 {
		return fmt.Errorf("rate limit attempts_per_minute must be positive when enabled")
	}

	return nil
}
