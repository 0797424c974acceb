// Package config provides configuration loading for ragd.
//
// Configuration is loaded from an optional YAML file and overridden by
// environment variables. Every section has working defaults so the daemon
// starts against a local qdrant and embedding service with no file at all.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds the complete ragd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Watcher    WatcherConfig    `koanf:"watcher"`
	Registry   RegistryConfig   `koanf:"registry"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// QdrantConfig holds vector database connection settings. Collections are
// always created with the embedding model's fixed dimensionality, so vector
// size is not configurable here.
type QdrantConfig struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	APIKey Secret `koanf:"api_key"`
	UseTLS bool   `koanf:"use_tls"`
}

// EmbeddingsConfig holds embedding service settings.
type EmbeddingsConfig struct {
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	Model     string `koanf:"model"`
	BatchSize int    `koanf:"batch_size"`
}

// WatcherConfig holds filesystem watcher settings. Root is the managed
// codebase directory whose immediate children are the repositories.
type WatcherConfig struct {
	Enabled bool     `koanf:"enabled"`
	Root    string   `koanf:"root"`
	Tick    Duration `koanf:"tick"`
	Window  Duration `koanf:"window"`
}

// RegistryConfig holds repository registry persistence settings.
type RegistryConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}

	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080/v1"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "voyage-code-2"
	}
	if cfg.Embeddings.BatchSize == 0 {
		cfg.Embeddings.BatchSize = 32
	}

	if cfg.Watcher.Tick == 0 {
		cfg.Watcher.Tick = Duration(time.Second)
	}
	if cfg.Watcher.Window == 0 {
		cfg.Watcher.Window = Duration(5 * time.Second)
	}

	if cfg.Registry.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Registry.Path = filepath.Join(home, ".config", "ragd", "repositories.json")
		}
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Qdrant.Host == "" {
		return errors.New("qdrant host cannot be empty")
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("invalid qdrant port: %d (must be 1-65535)", c.Qdrant.Port)
	}

	if c.Embeddings.BaseURL == "" {
		return errors.New("embeddings base URL cannot be empty")
	}
	if c.Embeddings.BatchSize < 1 {
		return fmt.Errorf("invalid embeddings batch size: %d (must be positive)", c.Embeddings.BatchSize)
	}

	if c.Watcher.Enabled {
		if c.Watcher.Root == "" {
			return errors.New("watcher root required when watcher is enabled")
		}
		if c.Watcher.Tick <= 0 || c.Watcher.Window <= 0 {
			return errors.New("watcher tick and window must be positive")
		}
	}

	if c.Registry.Path == "" {
		return errors.New("registry path cannot be empty")
	}

	return nil
}
