// Package snapshot holds immutable views of the historical record set and
// publishes rebuilt views atomically.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/drug-reco-engine/internal/analytics"
	"github.com/drug-reco-engine/internal/classifier"
	"github.com/drug-reco-engine/internal/domain"
)

// Options controls snapshot construction.
type Options struct {
	// Smoothing is the pseudo-count of the baseline frequency classifier.
	Smoothing float64
	// History caches per-patient tables across snapshots. Nil disables
	// caching.
	History *HistoryCache
}

// Snapshot is an immutable view of the historical records with their
// population tables precomputed. Values returned by its methods are shared
// and must not be modified.
type Snapshot struct {
	id       string
	builtAt  time.Time
	patients []domain.Patient
	visits   []domain.VisitRecord
	records  []domain.ClinicalRecord

	aggregates *analytics.Aggregates
	baseline   *classifier.FrequencyClassifier

	recordsByPatient map[string][]domain.ClinicalRecord
	visitsByPatient  map[string][]domain.VisitRecord
	history          *HistoryCache
}

// Info summarizes a snapshot.
type Info struct {
	ID        string    `json:"id"`
	BuiltAt   time.Time `json:"built_at"`
	Patients  int       `json:"patients"`
	Visits    int       `json:"visits"`
	Records   int       `json:"records"`
	Diagnoses int       `json:"diagnoses"`
	Drugs     int       `json:"drugs"`
}

// Build loads the three row sets concurrently and assembles a snapshot.
func Build(ctx context.Context, store domain.TabularDataStore, opts Options) (*Snapshot, error) {
	var (
		patients []domain.Patient
		visits   []domain.VisitRecord
		drugs    []domain.DrugAdministration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if patients, err = store.Patients(gctx); err != nil {
			return fmt.Errorf("failed to load patients: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if visits, err = store.Visits(gctx); err != nil {
			return fmt.Errorf("failed to load visits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if drugs, err = store.VisitDrugs(gctx); err != nil {
			return fmt.Errorf("failed to load visit drugs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(patients, visits, drugs, opts), nil
}

// New joins drugs onto visits, applies the sentinel mapping and computes
// the population tables.
func New(patients []domain.Patient, visits []domain.VisitRecord, drugs []domain.DrugAdministration, opts Options) *Snapshot {
	normalized := make([]domain.VisitRecord, len(visits))
	for i, v := range visits {
		normalized[i] = domain.NormalizeVisit(v)
	}
	records := domain.JoinVisitDrugs(normalized, drugs)

	s := &Snapshot{
		id:               uuid.New().String(),
		builtAt:          time.Now().UTC(),
		patients:         patients,
		visits:           normalized,
		records:          records,
		aggregates:       analytics.BuildAggregates(records),
		baseline:         classifier.NewFrequencyClassifier(records, opts.Smoothing),
		recordsByPatient: make(map[string][]domain.ClinicalRecord),
		visitsByPatient:  make(map[string][]domain.VisitRecord),
		history:          opts.History,
	}
	for _, r := range records {
		s.recordsByPatient[r.PatientID] = append(s.recordsByPatient[r.PatientID], r)
	}
	for _, v := range normalized {
		s.visitsByPatient[v.PatientID] = append(s.visitsByPatient[v.PatientID], v)
	}
	return s
}

// ID returns the snapshot's unique identifier.
func (s *Snapshot) ID() string { return s.id }

// BuiltAt returns when the snapshot was assembled.
func (s *Snapshot) BuiltAt() time.Time { return s.builtAt }

// Patients returns the patient rows.
func (s *Snapshot) Patients() []domain.Patient { return s.patients }

// Visits returns the normalized visits.
func (s *Snapshot) Visits() []domain.VisitRecord { return s.visits }

// Records returns the joined, normalized visit-drug records.
func (s *Snapshot) Records() []domain.ClinicalRecord { return s.records }

// Aggregates returns the population tables.
func (s *Snapshot) Aggregates() *analytics.Aggregates { return s.aggregates }

// Baseline returns the frequency classifier fitted to this snapshot.
func (s *Snapshot) Baseline() *classifier.FrequencyClassifier { return s.baseline }

// PatientHistory returns the patient's worked, failed and recurrence
// tables. An unknown patient has empty tables.
func (s *Snapshot) PatientHistory(patientID string) *domain.PatientHistory {
	if h, ok := s.history.get(s.id, patientID); ok {
		return h
	}
	h := analytics.BuildPatientHistory(patientID, s.recordsByPatient[patientID], s.visitsByPatient[patientID])
	s.history.add(s.id, patientID, h)
	return h
}

// HasPatient reports whether the snapshot holds any row for the patient.
func (s *Snapshot) HasPatient(patientID string) bool {
	if _, ok := s.visitsByPatient[patientID]; ok {
		return true
	}
	for _, p := range s.patients {
		if p.PatientID == patientID {
			return true
		}
	}
	return false
}

// Info returns counts describing the snapshot.
func (s *Snapshot) Info() Info {
	diagnoses := make(map[string]struct{})
	for _, st := range s.aggregates.DiagnosisDrugStats() {
		diagnoses[st.Diagnosis] = struct{}{}
	}
	return Info{
		ID:        s.id,
		BuiltAt:   s.builtAt,
		Patients:  len(s.patients),
		Visits:    len(s.visits),
		Records:   len(s.records),
		Diagnoses: len(diagnoses),
		Drugs:     len(s.baseline.Labels()),
	}
}
