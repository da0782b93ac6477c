// Package app assembles the engine components from a loaded configuration.
// The command binaries share it so each store, classifier and cache is wired
// the same way everywhere.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/classifier"
	"github.com/drug-reco-engine/internal/config"
	"github.com/drug-reco-engine/internal/database"
	"github.com/drug-reco-engine/internal/domain"
	"github.com/drug-reco-engine/internal/feedback"
	"github.com/drug-reco-engine/internal/repository"
	"github.com/drug-reco-engine/internal/service"
	"github.com/drug-reco-engine/internal/snapshot"
)

// App holds the wired components. Records is the raw store the registry
// reads from; it may additionally implement Importer.
type App struct {
	Config   *domain.Config
	Logger   *logrus.Logger
	Records  domain.TabularDataStore
	Registry *snapshot.Registry
	Service  *service.RecommendationService

	closers []func() error
}

// Importer is implemented by stores that accept fixture loads.
type Importer interface {
	Import(ctx context.Context, fx *repository.Fixture) error
}

// New opens the record store, builds the classifier and creates the
// service. No snapshot is published; callers decide when to Rebuild.
func New(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	records, closeRecords, err := OpenRecords(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Records = records
	a.closers = append(a.closers, closeRecords)

	history, err := snapshot.NewHistoryCache(cfg.Cache.HistorySize)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating history cache: %w", err)
	}
	a.Registry = snapshot.NewRegistry(records, snapshot.Options{
		Smoothing: cfg.Classifier.Smoothing,
		History:   history,
	}, logger)

	model, closeModel, err := NewClassifier(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeModel)

	a.Service = service.NewRecommendationService(logger, a.Registry, model, cfg.Recommendation)
	return a, nil
}

// Close releases every store the App opened.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenFeedback opens the feedback store matching the record driver:
// postgres deployments share the database, everything else uses a local
// SQLite file. The caller closes the store.
func (a *App) OpenFeedback() (feedback.Store, error) {
	if a.Config.DataStore.Driver == config.DriverPostgres {
		store, err := feedback.NewPostgresStoreFromURL(config.DatabaseURL(a.Config.Database))
		if err != nil {
			return nil, fmt.Errorf("opening feedback store: %w", err)
		}
		return store, nil
	}
	store, err := feedback.NewSQLiteStore(a.Config.DataStore.FeedbackPath)
	if err != nil {
		return nil, fmt.Errorf("opening feedback store: %w", err)
	}
	return store, nil
}

// OpenRecords opens the configured TabularDataStore and returns its closer.
func OpenRecords(ctx context.Context, cfg *domain.Config, logger *logrus.Logger) (domain.TabularDataStore, func() error, error) {
	switch cfg.DataStore.Driver {
	case config.DriverPostgres:
		db, err := database.NewConnection(ctx, database.ConfigFrom(cfg.Database), logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to records database: %w", err)
		}
		closeDB := func() error {
			db.Close()
			return nil
		}
		return repository.NewPostgresStore(db.Pool, logger), closeDB, nil
	case config.DriverSQLite:
		store, err := repository.NewSQLiteStore(cfg.DataStore.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening records database: %w", err)
		}
		return store, store.Close, nil
	case config.DriverFixture:
		store, err := repository.NewFixtureStore(cfg.DataStore.FixturePath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading records fixture: %w", err)
		}
		return store, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown datastore driver: %q", cfg.DataStore.Driver)
	}
}

// NewClassifier builds the configured model wrapped in the prediction
// cache. The frequency kind returns a nil classifier so the service falls
// back to each snapshot's baseline. An unreachable Redis degrades to the
// in-process cache.
func NewClassifier(cfg *domain.Config, logger *logrus.Logger) (domain.Classifier, func() error, error) {
	model, namespace, err := classifier.FromConfig(cfg.Classifier, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("building classifier: %w", err)
	}
	if model == nil {
		return nil, noop, nil
	}

	var store classifier.PredictionStore
	closeStore := noop
	if cfg.Cache.RedisURL != "" {
		rs, err := classifier.NewRedisStore(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Redis prediction cache unavailable, using memory cache only")
		} else {
			store = rs
			closeStore = rs.Close
		}
	}

	return classifier.NewCachedClassifier(model, namespace, cfg.Cache, store, logger), closeStore, nil
}

func noop() error { return nil }
