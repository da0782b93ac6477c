package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Environment    string               `mapstructure:"environment"`
	Server         ServerConfig         `mapstructure:"server"`
	DataStore      DataStoreConfig      `mapstructure:"datastore"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Classifier     ClassifierConfig     `mapstructure:"classifier"`
	Cache          CacheConfig          `mapstructure:"cache"`
	Recommendation RecommendationConfig `mapstructure:"recommendation"`
	Snapshot       SnapshotConfig       `mapstructure:"snapshot"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DataStoreConfig selects where historical records are read from.
type DataStoreConfig struct {
	Driver       string `mapstructure:"driver"` // "postgres", "sqlite", "fixture"
	SQLitePath   string `mapstructure:"sqlite_path"`
	FixturePath  string `mapstructure:"fixture_path"`
	FeedbackPath string `mapstructure:"feedback_path"` // sqlite feedback file when not on postgres
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// ClassifierConfig selects and configures the classifier adapter.
type ClassifierConfig struct {
	Kind      string          `mapstructure:"kind"` // "linear", "remote", "frequency"
	ModelPath string          `mapstructure:"model_path"`
	Remote    RemoteAPIConfig `mapstructure:"remote"`
	Smoothing float64         `mapstructure:"smoothing"`
}

// RemoteAPIConfig configures the remote inference endpoint
type RemoteAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RateLimit         float64       `mapstructure:"rate_limit"`
	MaxRequests       uint32        `mapstructure:"max_requests"`
	BreakerInterval   time.Duration `mapstructure:"breaker_interval"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	FailureRatio      float64       `mapstructure:"failure_ratio"`
	MinRequestsToTrip uint32        `mapstructure:"min_requests_to_trip"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	RedisURL       string        `mapstructure:"redis_url"`
	PredictionTTL  time.Duration `mapstructure:"prediction_ttl"`
	PredictionSize int           `mapstructure:"prediction_size"`
	HistorySize    int           `mapstructure:"history_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	PoolSize       int           `mapstructure:"pool_size"`
	PoolTimeout    time.Duration `mapstructure:"pool_timeout"`
}

// RecommendationConfig holds request defaults and the scoring weights.
type RecommendationConfig struct {
	TopK          int           `mapstructure:"k"`
	FailThreshold int           `mapstructure:"fail_threshold"`
	OutlierZ      float64       `mapstructure:"outlier_z"`
	Scoring       ScoringConfig `mapstructure:"scoring"`
}

// ScoringConfig holds the fusion weights. All weights must be non-negative;
// penalties are subtracted.
type ScoringConfig struct {
	MLWeight               float64 `mapstructure:"ml_weight" json:"ml_weight"`
	CureRateWeight         float64 `mapstructure:"cure_rate_weight" json:"cure_rate_weight"`
	RecoveryWeight         float64 `mapstructure:"recovery_weight" json:"recovery_weight"`
	SuccessBonus           float64 `mapstructure:"success_bonus" json:"success_bonus"`
	FailPenalty            float64 `mapstructure:"fail_penalty" json:"fail_penalty"`
	RecurrenceSuccessBonus float64 `mapstructure:"recurrence_success_bonus" json:"recurrence_success_bonus"`
	RecurrenceFailPenalty  float64 `mapstructure:"recurrence_fail_penalty" json:"recurrence_fail_penalty"`
}

// DefaultScoringConfig returns the standard fusion weights.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		MLWeight:               0.6,
		CureRateWeight:         0.3,
		RecoveryWeight:         0.1,
		SuccessBonus:           0.05,
		FailPenalty:            0.05,
		RecurrenceSuccessBonus: 0.03,
		RecurrenceFailPenalty:  0.02,
	}
}

// SnapshotConfig controls how often the record snapshot is rebuilt.
type SnapshotConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
