package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 15*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 2, cfg.FailThreshold)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_Defaults(t *testing.T) {
	clearEnvVars(t)

	cfg := LoadLiteConfig()

	assert.NotEmpty(t, cfg.DataDir)
	assert.Empty(t, cfg.FixturePath)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
}

func TestLoadLiteConfig_EnvironmentOverrides(t *testing.T) {
	clearEnvVars(t)

	t.Setenv("DRUG_RECO_DATA_DIR", "/tmp/test-reco")
	t.Setenv("DRUG_RECO_FIXTURE", "/tmp/clinic.json")
	t.Setenv("DRUG_RECO_CACHE_MAX_ITEMS", "500")
	t.Setenv("DRUG_RECO_CACHE_TTL", "1h")
	t.Setenv("DRUG_RECO_K", "5")
	t.Setenv("DRUG_RECO_FAIL_THRESHOLD", "3")
	t.Setenv("DRUG_RECO_LOG_LEVEL", "debug")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/test-reco", cfg.DataDir)
	assert.Equal(t, "/tmp/clinic.json", cfg.FixturePath)
	assert.Equal(t, 500, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, 3, cfg.FailThreshold)
	assert.Equal(t, "debug", cfg.LogLevel)

	rec := cfg.Recommendation()
	assert.Equal(t, 5, rec.TopK)
	assert.Equal(t, 0.6, rec.Scoring.MLWeight)
}

func TestLoadLiteConfig_IgnoresInvalidNumbers(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DRUG_RECO_K", "zero")
	t.Setenv("DRUG_RECO_CACHE_MAX_ITEMS", "-4")

	cfg := LoadLiteConfig()
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
}

func TestLiteConfig_Paths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/home/user/.drug-reco"}

	assert.Equal(t, "/home/user/.drug-reco/clinic.db", cfg.RecordsDBPath())
	assert.Equal(t, "/home/user/.drug-reco/feedback.db", cfg.FeedbackDBPath())
	assert.Equal(t, "/home/user/.drug-reco/exports", cfg.ExportDir())
	assert.Equal(t, "stderr", cfg.Logging().Output)
}

func TestLiteConfig_EnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "reco")}

	require.NoError(t, cfg.EnsureDataDir())
	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}

func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, v := range []string{
		"DRUG_RECO_DATA_DIR",
		"DRUG_RECO_FIXTURE",
		"DRUG_RECO_MODEL_PATH",
		"DRUG_RECO_CACHE_MAX_ITEMS",
		"DRUG_RECO_CACHE_TTL",
		"DRUG_RECO_K",
		"DRUG_RECO_FAIL_THRESHOLD",
		"DRUG_RECO_LOG_LEVEL",
		"DRUG_RECO_LOG_FORMAT",
	} {
		t.Setenv(v, "")
	}
}

func TestLiteConfig_Config(t *testing.T) {
	t.Run("sqlite records by default", func(t *testing.T) {
		lite := DefaultLiteConfig()
		lite.DataDir = t.TempDir()

		cfg := lite.Config()
		assert.Equal(t, DriverSQLite, cfg.DataStore.Driver)
		assert.Equal(t, filepath.Join(lite.DataDir, "clinic.db"), cfg.DataStore.SQLitePath)
		assert.Equal(t, filepath.Join(lite.DataDir, "feedback.db"), cfg.DataStore.FeedbackPath)
		assert.Equal(t, "frequency", cfg.Classifier.Kind)
		assert.Equal(t, "stderr", cfg.Logging.Output)
		require.NoError(t, Validate(withPort(cfg)))
	})

	t.Run("fixture and model override", func(t *testing.T) {
		lite := DefaultLiteConfig()
		lite.FixturePath = "clinic.json"
		lite.ModelPath = "model.json"

		cfg := lite.Config()
		assert.Equal(t, DriverFixture, cfg.DataStore.Driver)
		assert.Equal(t, "clinic.json", cfg.DataStore.FixturePath)
		assert.Equal(t, "linear", cfg.Classifier.Kind)
		assert.Equal(t, "model.json", cfg.Classifier.ModelPath)
	})
}

// withPort fills the HTTP section, which the stdio binary never uses.
func withPort(cfg *domain.Config) *domain.Config {
	cfg.Server.Port = 8080
	return cfg
}
