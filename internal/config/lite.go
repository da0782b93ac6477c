package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/drug-reco-engine/internal/domain"
)

// LiteConfig is a simplified configuration for the standalone MCP binary.
// It needs no external services: records come from a local SQLite file or a
// JSON fixture, and feedback is kept next to them.
type LiteConfig struct {
	// Data storage
	DataDir     string // Base directory for data files
	FixturePath string // Optional: JSON fixture loaded instead of SQLite

	// Classifier
	ModelPath string // Optional: linear model file; frequency baseline otherwise

	// Cache settings
	CacheMaxItems int           // Prediction cache entries
	CacheTTL      time.Duration // Prediction cache TTL

	// Recommendation defaults
	TopK          int
	FailThreshold int

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".drug-reco")

	return &LiteConfig{
		DataDir:       dataDir,
		CacheMaxItems: 1000,
		CacheTTL:      15 * time.Minute,
		TopK:          domain.DefaultTopK,
		FailThreshold: domain.DefaultFailThreshold,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("DRUG_RECO_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	cfg.FixturePath = os.Getenv("DRUG_RECO_FIXTURE")
	cfg.ModelPath = os.Getenv("DRUG_RECO_MODEL_PATH")

	if v := os.Getenv("DRUG_RECO_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("DRUG_RECO_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	if v := os.Getenv("DRUG_RECO_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TopK = n
		}
	}
	if v := os.Getenv("DRUG_RECO_FAIL_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FailThreshold = n
		}
	}

	if v := os.Getenv("DRUG_RECO_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DRUG_RECO_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// RecordsDBPath returns the path to the clinical records SQLite database.
func (c *LiteConfig) RecordsDBPath() string {
	return filepath.Join(c.DataDir, "clinic.db")
}

// FeedbackDBPath returns the path to the feedback SQLite database.
func (c *LiteConfig) FeedbackDBPath() string {
	return filepath.Join(c.DataDir, "feedback.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// Recommendation converts the lite settings into the engine's section.
func (c *LiteConfig) Recommendation() domain.RecommendationConfig {
	return domain.RecommendationConfig{
		TopK:          c.TopK,
		FailThreshold: c.FailThreshold,
		OutlierZ:      3,
		Scoring:       domain.DefaultScoringConfig(),
	}
}

// Logging converts the lite settings into a logging section.
func (c *LiteConfig) Logging() domain.LoggingConfig {
	// stdout carries the MCP stdio protocol.
	return domain.LoggingConfig{Level: c.LogLevel, Format: c.LogFormat, Output: "stderr"}
}

// Cache converts the lite settings into a cache section.
func (c *LiteConfig) Cache() domain.CacheConfig {
	return domain.CacheConfig{PredictionTTL: c.CacheTTL, PredictionSize: c.CacheMaxItems}
}

// Config expands the lite settings into a full configuration. Records come
// from the fixture when one is set, otherwise from the data directory's
// SQLite file.
func (c *LiteConfig) Config() *domain.Config {
	cfg := &domain.Config{
		Environment: "development",
		DataStore: domain.DataStoreConfig{
			Driver:       DriverSQLite,
			SQLitePath:   c.RecordsDBPath(),
			FeedbackPath: c.FeedbackDBPath(),
		},
		Classifier: domain.ClassifierConfig{
			Kind:      "frequency",
			Smoothing: 1,
		},
		Cache:          c.Cache(),
		Recommendation: c.Recommendation(),
		Logging:        c.Logging(),
	}
	if c.FixturePath != "" {
		cfg.DataStore.Driver = DriverFixture
		cfg.DataStore.FixturePath = c.FixturePath
	}
	if c.ModelPath != "" {
		cfg.Classifier.Kind = "linear"
		cfg.Classifier.ModelPath = c.ModelPath
	}
	return cfg
}
