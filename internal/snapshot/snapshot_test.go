package snapshot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

type fakeStore struct {
	patients []domain.Patient
	visits   []domain.VisitRecord
	drugs    []domain.DrugAdministration

	err     error
	calls   atomic.Int32
	release chan struct{}
}

func (f *fakeStore) Patients(ctx context.Context) ([]domain.Patient, error) {
	f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.patients, f.err
}

func (f *fakeStore) Visits(context.Context) ([]domain.VisitRecord, error) {
	return f.visits, nil
}

func (f *fakeStore) VisitDrugs(context.Context) ([]domain.DrugAdministration, error) {
	return f.drugs, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

var day0 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func sampleStore() *fakeStore {
	return &fakeStore{
		patients: []domain.Patient{{PatientID: "P-1"}, {PatientID: "P-2"}},
		visits: []domain.VisitRecord{
			{VisitID: "v1", PatientID: "P-1", Diagnosis: "URTI", VisitType: "new case", OutcomeClass: "Cured", VisitDate: day0},
			{VisitID: "v2", PatientID: "P-1", Diagnosis: "URTI", VisitType: domain.VisitNewCase, OutcomeClass: domain.OutcomeNoChange, VisitDate: day0.AddDate(0, 0, 30)},
			{VisitID: "v3", PatientID: "P-2", Diagnosis: "", VisitType: domain.VisitNewCase, OutcomeClass: domain.OutcomeCured, VisitDate: day0},
		},
		drugs: []domain.DrugAdministration{
			{VisitID: "v1", DrugName: "Amoxicillin"},
			{VisitID: "v2", DrugName: "Amoxicillin"},
			{VisitID: "v2", DrugName: "Paracetamol"},
		},
	}
}

func TestBuild(t *testing.T) {
	s, err := Build(context.Background(), sampleStore(), Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID())
	assert.Len(t, s.Records(), 4)
	assert.Equal(t, domain.VisitNewCase, s.Visits()[0].VisitType, "visit labels are normalized")
	assert.Equal(t, domain.UnknownCategory, s.Visits()[2].Diagnosis)

	urti := s.Aggregates().ForDiagnosis("URTI")
	require.Len(t, urti, 2)
	assert.Equal(t, "Amoxicillin", urti[0].DrugName)
	assert.Equal(t, 0.5, urti[0].CureRate)

	assert.Equal(t, []string{"Amoxicillin", "Paracetamol"}, s.Baseline().Labels())
	assert.True(t, s.HasPatient("P-2"))
	assert.False(t, s.HasPatient("P-9"))

	info := s.Info()
	assert.Equal(t, 2, info.Patients)
	assert.Equal(t, 3, info.Visits)
	assert.Equal(t, 2, info.Diagnoses)
}

func TestBuildPropagatesStoreErrors(t *testing.T) {
	store := sampleStore()
	store.err = errors.New("connection refused")

	_, err := Build(context.Background(), store, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load patients")
}

func TestPatientHistoryIsCachedPerSnapshot(t *testing.T) {
	cache, err := NewHistoryCache(16)
	require.NoError(t, err)

	s, err := Build(context.Background(), sampleStore(), Options{History: cache})
	require.NoError(t, err)

	h := s.PatientHistory("P-1")
	assert.Equal(t, 1, h.SuccessCount("Amoxicillin"))
	assert.Equal(t, 1, h.FailCount("Amoxicillin"))
	assert.Equal(t, 1, h.RecurrenceCount("URTI"))
	assert.Same(t, h, s.PatientHistory("P-1"))
	assert.Equal(t, 1, cache.Len())

	next, err := Build(context.Background(), sampleStore(), Options{History: cache})
	require.NoError(t, err)
	assert.NotSame(t, h, next.PatientHistory("P-1"), "a new snapshot does not reuse entries")
	assert.Equal(t, 2, cache.Len())
}

func TestPatientHistoryWithoutCache(t *testing.T) {
	s := New(nil, nil, nil, Options{})

	h := s.PatientHistory("P-1")
	require.NotNil(t, h)
	assert.Empty(t, h.Worked)
}

func TestRegistryCurrentBeforePublish(t *testing.T) {
	r := NewRegistry(sampleStore(), Options{}, quietLogger())

	_, err := r.Current()
	assert.ErrorIs(t, err, domain.ErrSnapshotUnavailable)
}

func TestRegistryRebuildKeepsPreviousOnFailure(t *testing.T) {
	store := sampleStore()
	r := NewRegistry(store, Options{}, quietLogger())

	first, err := r.Rebuild(context.Background())
	require.NoError(t, err)

	store.err = errors.New("timeout")
	_, err = r.Rebuild(context.Background())
	require.Error(t, err)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, first.ID(), current.ID())
}

func TestRegistryCoalescesConcurrentRebuilds(t *testing.T) {
	store := sampleStore()
	store.release = make(chan struct{})
	r := NewRegistry(store, Options{}, quietLogger())

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Rebuild(context.Background())
			if assert.NoError(t, err) {
				ids[i] = s.ID()
			}
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	assert.Equal(t, int32(1), store.calls.Load())
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegistryRebuildOutlivesCancelledCaller(t *testing.T) {
	store := sampleStore()
	store.release = make(chan struct{})
	r := NewRegistry(store, Options{}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	go func() {
		time.Sleep(20 * time.Millisecond)
		close(store.release)
	}()

	s, err := r.Rebuild(ctx)
	require.NoError(t, err)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Equal(t, s.ID(), current.ID())
}

func TestRegistryPublish(t *testing.T) {
	r := NewRegistry(sampleStore(), Options{}, quietLogger())
	s := New(nil, nil, nil, Options{})

	r.Publish(s)

	current, err := r.Current()
	require.NoError(t, err)
	assert.Same(t, s, current)
}

func TestRunRefresher(t *testing.T) {
	r := NewRegistry(sampleStore(), Options{}, quietLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.RunRefresher(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := r.Current()
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}
