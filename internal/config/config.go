// Package config loads the engine configuration from a YAML file, a .env
// file and DRUG_RECO_* environment variables, in increasing precedence.
package config

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/drug-reco-engine/internal/domain"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "DRUG_RECO"

// Data store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverFixture  = "fixture"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager creates a new configuration manager. An empty configFile
// searches the default locations; a missing file is not an error.
func NewManager(configFile string) (*Manager, error) {
	m := &Manager{configFile: configFile}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// .env values become process env, so they lose to variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()
	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/drug-reco/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key needs a default
// so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Data store defaults
	v.SetDefault("datastore.driver", DriverPostgres)
	v.SetDefault("datastore.sqlite_path", "data/clinic.db")
	v.SetDefault("datastore.fixture_path", "")
	v.SetDefault("datastore.feedback_path", "data/feedback.db")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "drug_reco")
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "30m")
	v.SetDefault("database.migrations_path", "")

	// Classifier defaults
	v.SetDefault("classifier.kind", "frequency")
	v.SetDefault("classifier.model_path", "")
	v.SetDefault("classifier.smoothing", 1.0)
	v.SetDefault("classifier.remote.base_url", "")
	v.SetDefault("classifier.remote.api_key", "")
	v.SetDefault("classifier.remote.timeout", "5s")
	v.SetDefault("classifier.remote.rate_limit", 10.0)
	v.SetDefault("classifier.remote.max_requests", 1)
	v.SetDefault("classifier.remote.breaker_interval", "60s")
	v.SetDefault("classifier.remote.breaker_timeout", "30s")
	v.SetDefault("classifier.remote.failure_ratio", 0.6)
	v.SetDefault("classifier.remote.min_requests_to_trip", 5)

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prediction_ttl", "15m")
	v.SetDefault("cache.prediction_size", 1024)
	v.SetDefault("cache.history_size", 2048)
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.pool_timeout", "4s")

	// Recommendation defaults
	scoring := domain.DefaultScoringConfig()
	v.SetDefault("recommendation.k", domain.DefaultTopK)
	v.SetDefault("recommendation.fail_threshold", domain.DefaultFailThreshold)
	v.SetDefault("recommendation.outlier_z", 3.0)
	v.SetDefault("recommendation.scoring.ml_weight", scoring.MLWeight)
	v.SetDefault("recommendation.scoring.cure_rate_weight", scoring.CureRateWeight)
	v.SetDefault("recommendation.scoring.recovery_weight", scoring.RecoveryWeight)
	v.SetDefault("recommendation.scoring.success_bonus", scoring.SuccessBonus)
	v.SetDefault("recommendation.scoring.fail_penalty", scoring.FailPenalty)
	v.SetDefault("recommendation.scoring.recurrence_success_bonus", scoring.RecurrenceSuccessBonus)
	v.SetDefault("recommendation.scoring.recurrence_fail_penalty", scoring.RecurrenceFailPenalty)

	v.SetDefault("snapshot.refresh_interval", "15m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	return Validate(m.config)
}

// Validate checks a loaded configuration for values the engine cannot run with.
func Validate(config *domain.Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RateLimit < 0 || config.Server.RateBurst < 0 {
		return fmt.Errorf("rate limit and burst must not be negative")
	}

	switch config.DataStore.Driver {
	case DriverPostgres:
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
		if config.Database.Port <= 0 || config.Database.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", config.Database.Port)
		}
	case DriverSQLite:
		if config.DataStore.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case DriverFixture:
		if config.DataStore.FixturePath == "" {
			return fmt.Errorf("fixture path is required")
		}
	default:
		return fmt.Errorf("unknown datastore driver: %q", config.DataStore.Driver)
	}

	switch config.Classifier.Kind {
	case "frequency", "":
	case "linear":
		if config.Classifier.ModelPath == "" {
			return fmt.Errorf("linear classifier requires model_path")
		}
	case "remote":
		if config.Classifier.Remote.BaseURL == "" {
			return fmt.Errorf("remote classifier requires base_url")
		}
	default:
		return fmt.Errorf("unknown classifier kind: %q", config.Classifier.Kind)
	}
	if config.Classifier.Smoothing < 0 {
		return fmt.Errorf("classifier smoothing must not be negative")
	}

	rec := config.Recommendation
	if rec.TopK < 1 {
		return fmt.Errorf("recommendation k must be at least 1, got %d", rec.TopK)
	}
	if rec.FailThreshold < 1 {
		return fmt.Errorf("recommendation fail_threshold must be at least 1, got %d", rec.FailThreshold)
	}
	if rec.OutlierZ < 0 {
		return fmt.Errorf("recommendation outlier_z must not be negative")
	}
	w := rec.Scoring
	for name, value := range map[string]float64{
		"ml_weight":                w.MLWeight,
		"cure_rate_weight":         w.CureRateWeight,
		"recovery_weight":          w.RecoveryWeight,
		"success_bonus":            w.SuccessBonus,
		"fail_penalty":             w.FailPenalty,
		"recurrence_success_bonus": w.RecurrenceSuccessBonus,
		"recurrence_fail_penalty":  w.RecurrenceFailPenalty,
	} {
		if value < 0 {
			return fmt.Errorf("scoring weight %s must not be negative", name)
		}
	}

	if config.Snapshot.RefreshInterval < 0 {
		return fmt.Errorf("snapshot refresh_interval must not be negative")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetDatabaseURL returns the database as a postgres:// URL, the form
// golang-migrate and lib/pq accept.
func (m *Manager) GetDatabaseURL() string {
	return DatabaseURL(m.config.Database)
}

// DatabaseURL formats a database section as a postgres:// URL.
func DatabaseURL(db domain.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(db.Username, db.Password),
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   "/" + db.Database,
	}
	q := url.Values{}
	q.Set("sslmode", cmp.Or(db.SSLMode, "disable"))
	u.RawQuery = q.Encode()
	return u.String()
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}

var _ domain.ConfigManager = (*Manager)(nil)
