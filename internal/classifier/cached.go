package classifier

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/drug-reco-engine/internal/domain"
)

// PredictionStore is a shared second-tier prediction cache.
type PredictionStore interface {
	GetPrediction(ctx context.Context, key string) ([]domain.LabelProbability, bool, error)
	SetPrediction(ctx context.Context, key string, probs []domain.LabelProbability, ttl time.Duration) error
}

// CacheStats counts cache outcomes.
type CacheStats struct {
	MemoryHits int64 `json:"memory_hits"`
	StoreHits  int64 `json:"store_hits"`
	Misses     int64 `json:"misses"`
}

// CachedClassifier memoizes predictions of another classifier in an
// in-process LRU and, optionally, a shared store. Store failures are logged
// and never fail a prediction.
type CachedClassifier struct {
	next      domain.Classifier
	namespace string
	memory    *expirable.LRU[string, []domain.LabelProbability]
	store     PredictionStore
	ttl       time.Duration
	logger    *logrus.Logger

	stats statsCounter
}

// NewCachedClassifier wraps next. namespace separates keys of different
// models sharing one store; store may be nil.
func NewCachedClassifier(next domain.Classifier, namespace string, cfg domain.CacheConfig, store PredictionStore, logger *logrus.Logger) *CachedClassifier {
	size := cfg.PredictionSize
	if size <= 0 {
		size = 1024
	}
	ttl := cfg.PredictionTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedClassifier{
		next:      next,
		namespace: namespace,
		memory:    expirable.NewLRU[string, []domain.LabelProbability](size, nil, ttl),
		store:     store,
		ttl:       ttl,
		logger:    logger,
	}
}

// Labels delegates to the wrapped classifier.
func (c *CachedClassifier) Labels() []string {
	return c.next.Labels()
}

// PredictProbabilities serves from cache when possible.
func (c *CachedClassifier) PredictProbabilities(ctx context.Context, features domain.ClinicalFeatures) ([]domain.LabelProbability, error) {
	key := c.key(features)

	if probs, ok := c.memory.Get(key); ok {
		c.stats.memoryHit()
		return clone(probs), nil
	}

	if c.store != nil {
		probs, found, err := c.store.GetPrediction(ctx, key)
		if err != nil {
			c.logger.WithError(err).Warn("Prediction store lookup failed")
		} else if found {
			c.stats.storeHit()
			c.memory.Add(key, probs)
			return clone(probs), nil
		}
	}

	c.stats.miss()
	probs, err := c.next.PredictProbabilities(ctx, features)
	if err != nil {
		return nil, err
	}
	c.memory.Add(key, probs)
	if c.store != nil {
		if err := c.store.SetPrediction(ctx, key, probs, c.ttl); err != nil {
			c.logger.WithError(err).Warn("Failed to cache prediction")
		}
	}
	return clone(probs), nil
}

// Stats returns the cache counters.
func (c *CachedClassifier) Stats() CacheStats {
	return c.stats.snapshot()
}

// Purge drops every in-process entry.
func (c *CachedClassifier) Purge() {
	c.memory.Purge()
}

func (c *CachedClassifier) key(f domain.ClinicalFeatures) string {
	data := fmt.Sprintf("%s|%s|%g|%g|%s", f.Diagnosis, f.ChiefComplaint, f.AgeMonths, f.WeightKG, f.Gender)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("prediction:%s:%x", c.namespace, hash[:12])
}

func clone(probs []domain.LabelProbability) []domain.LabelProbability {
	out := make([]domain.LabelProbability, len(probs))
	copy(out, probs)
	return out
}
