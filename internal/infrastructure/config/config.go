// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigDir is the directory name for saga configuration.
	DefaultConfigDir = ".saga"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
	// DefaultSagasFile is the default sagas registry file name.
	DefaultSagasFile = "sagas.yaml"
)

var (
	// reNonAlphanumeric matches characters that aren't alphanumeric or underscore.
	reNonAlphanumeric = regexp.MustCompile(`[^a-z0-9_]`)
	// reMultipleUnderscores matches consecutive underscores.
	reMultipleUnderscores = regexp.MustCompile(`_+`)
)

// Config holds static infrastructure configuration (read-only after init).
type Config struct {
	Embedder EmbedderConfig `yaml:"embedder,omitempty"`
	Qdrant   QdrantConfig   `yaml:"qdrant,omitempty"`
	SQLite   SQLiteConfig   `yaml:"sqlite,omitempty"`
	Engine   EngineConfig   `yaml:"engine,omitempty"`
}

// EmbedderConfig holds configuration for the embedding provider backing the
// semantic-similarity oracle.
type EmbedderConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// QdrantConfig holds configuration for the Qdrant embedding cache.
type QdrantConfig struct {
	Host       string `yaml:"host,omitempty"`
	Port       int    `yaml:"port,omitempty"`
	Collection string `yaml:"collection,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
}

// SQLiteConfig holds configuration for the SQLite database.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database.
	// For per-saga databases, this is computed dynamically using SQLitePathForSaga.
	Path string `yaml:"path,omitempty"`
}

// EngineConfig holds the suggestion engine tunables. The defaults are
// product-tuned; they are configuration, not constants, so behavior changes
// are a config edit.
type EngineConfig struct {
	// AutoAcceptThreshold is the confidence at or above which a suggestion is
	// created as auto_accepted and its relationship materialized immediately.
	AutoAcceptThreshold float64 `yaml:"auto_accept_threshold,omitempty"`
	// AutoAcceptEnabled disables the auto-accept path independently.
	AutoAcceptEnabled *bool `yaml:"auto_accept_enabled,omitempty"`
	// MinConfidence is the floor below which a scored pair is not stored.
	MinConfidence float64 `yaml:"min_confidence,omitempty"`
	// LearningRate scales each online weight update.
	LearningRate float64 `yaml:"learning_rate,omitempty"`
	// MinWeightSamples is the sample count at which a per-saga weight row
	// graduates and starts shadowing the global pool.
	MinWeightSamples int `yaml:"min_weight_samples,omitempty"`
	// BatchSize is the number of candidate pairs scored per batch.
	BatchSize int `yaml:"batch_size,omitempty"`
	// BatchPause is the cooperative pause between batches.
	BatchPause time.Duration `yaml:"batch_pause,omitempty"`
	// BatchTimeout is the wall-clock budget for one batch; exceeding it fails
	// the job.
	BatchTimeout time.Duration `yaml:"batch_timeout,omitempty"`
	// RateLimitPerHour caps job starts per saga per rolling hour.
	RateLimitPerHour int `yaml:"rate_limit_per_hour,omitempty"`
	// OracleTimeout bounds each semantic-similarity oracle call.
	OracleTimeout time.Duration `yaml:"oracle_timeout,omitempty"`
}

// AutoAccept reports whether the auto-accept path is enabled.
func (e EngineConfig) AutoAccept() bool {
	return e.AutoAcceptEnabled == nil || *e.AutoAcceptEnabled
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Embedder: EmbedderConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Qdrant: QdrantConfig{
			Host: "localhost",
			Port: 6334,
		},
		Engine: EngineConfig{
			AutoAcceptThreshold: 95,
			MinConfidence:       40,
			LearningRate:        0.1,
			MinWeightSamples:    5,
			BatchSize:           50,
			BatchPause:          200 * time.Millisecond,
			BatchTimeout:        60 * time.Second,
			RateLimitPerHour:    5,
			OracleTimeout:       3 * time.Second,
		},
	}
}

// Load loads configuration from the .saga directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'saga init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	cfg.applyEnvOverrides()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.Embedder.APIKey == "" {
		c.Embedder.APIKey = key
	}
	if key := os.Getenv("QDRANT_API_KEY"); key != "" && c.Qdrant.APIKey == "" {
		c.Qdrant.APIKey = key
	}
}

// ConfigDir returns the path to the .saga config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// SagasFilePath returns the path to the sagas registry file.
func SagasFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultSagasFile)
}

// SanitizeSagaName converts a saga name to a valid identifier suffix.
func SanitizeSagaName(name string) string {
	name = strings.ToLower(name)

	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")

	name = reNonAlphanumeric.ReplaceAllString(name, "")
	name = reMultipleUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if name == "" {
		return "default"
	}

	return name
}

// GenerateCollectionName creates a Qdrant collection name for a saga.
func GenerateCollectionName(sagaName string) string {
	return "saga_" + SanitizeSagaName(sagaName)
}

// SQLitePathForSaga returns the SQLite database path for a given saga.
func SQLitePathForSaga(basePath, sagaName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "sagas", SanitizeSagaName(sagaName), "saga.db")
}

// SagaDir returns the directory path for a given saga.
func SagaDir(basePath, sagaName string) string {
	return filepath.Join(basePath, DefaultConfigDir, "sagas", SanitizeSagaName(sagaName))
}
