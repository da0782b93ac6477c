package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/drug-reco-engine/internal/domain"
)

// MemoryStore is an in-process TabularDataStore. Readers receive copies,
// so Replace never affects a snapshot already built.
type MemoryStore struct {
	mu  sync.RWMutex
	fix Fixture
}

// NewMemoryStore creates a store holding the fixture's rows.
func NewMemoryStore(fx *Fixture) *MemoryStore {
	s := &MemoryStore{}
	if fx != nil {
		s.Replace(fx)
	}
	return s
}

// NewFixtureStore loads a fixture file into a memory store.
func NewFixtureStore(path string) (*MemoryStore, error) {
	fx, err := LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(fx), nil
}

// Replace swaps in a new record set.
func (s *MemoryStore) Replace(fx *Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fix = Fixture{
		Patients:   slices.Clone(fx.Patients),
		Visits:     slices.Clone(fx.Visits),
		VisitDrugs: slices.Clone(fx.VisitDrugs),
	}
}

// Patients returns all patients.
func (s *MemoryStore) Patients(ctx context.Context) ([]domain.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fix.Patients), nil
}

// Visits returns all visits.
func (s *MemoryStore) Visits(ctx context.Context) ([]domain.VisitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fix.Visits), nil
}

// VisitDrugs returns all drug administrations.
func (s *MemoryStore) VisitDrugs(ctx context.Context) ([]domain.DrugAdministration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.fix.VisitDrugs), nil
}
