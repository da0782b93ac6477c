package snapshot

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/drug-reco-engine/internal/domain"
)

// Registry publishes snapshots. Readers always see either the previous or
// the next complete snapshot, never a partial one.
type Registry struct {
	store   domain.TabularDataStore
	opts    Options
	logger  *logrus.Logger
	current atomic.Pointer[Snapshot]
	group   singleflight.Group
}

// NewRegistry creates an empty registry reading from store.
func NewRegistry(store domain.TabularDataStore, opts Options, logger *logrus.Logger) *Registry {
	return &Registry{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// Current returns the published snapshot.
func (r *Registry) Current() (*Snapshot, error) {
	s := r.current.Load()
	if s == nil {
		return nil, domain.ErrSnapshotUnavailable
	}
	return s, nil
}

// Publish swaps in a snapshot built elsewhere.
func (r *Registry) Publish(s *Snapshot) {
	r.current.Store(s)
}

// Rebuild loads a fresh snapshot and publishes it. Concurrent calls share
// one build, which runs detached from the first caller's cancellation. On
// failure the previous snapshot stays published.
func (r *Registry) Rebuild(ctx context.Context) (*Snapshot, error) {
	v, err, shared := r.group.Do("rebuild", func() (interface{}, error) {
		start := time.Now()
		s, err := Build(context.WithoutCancel(ctx), r.store, r.opts)
		if err != nil {
			r.logger.WithError(err).Error("Snapshot rebuild failed")
			return nil, err
		}
		r.current.Store(s)

		r.logger.WithFields(logrus.Fields{
			"snapshot_id": s.ID(),
			"patients":    len(s.Patients()),
			"visits":      len(s.Visits()),
			"records":     len(s.Records()),
			"duration":    time.Since(start).String(),
		}).Info("Published data snapshot")
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("Snapshot rebuild shared with a concurrent caller")
	}
	return v.(*Snapshot), nil
}

// RunRefresher rebuilds on every tick until ctx is cancelled. Failures are
// logged and the previous snapshot keeps serving.
func (r *Registry) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Rebuild(ctx); err != nil && ctx.Err() == nil {
				r.logger.WithError(err).Warn("Scheduled snapshot refresh failed; keeping previous snapshot")
			}
		}
	}
}
