package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drug-reco-engine/internal/domain"
)

const testFixture = "testdata/clinic.json"

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2023-01-05T10:00:00+07:00", time.Date(2023, 1, 5, 3, 0, 0, 0, time.UTC)},
		{"datetime", "2023-01-05 10:00:00", time.Date(2023, 1, 5, 10, 0, 0, 0, time.UTC)},
		{"date", " 2023-01-05 ", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"day first", "10/04/2023", time.Date(2023, 4, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}

func TestLoadFixture(t *testing.T) {
	fx, err := LoadFixture(testFixture)
	require.NoError(t, err)

	require.Len(t, fx.Patients, 2)
	require.Len(t, fx.Visits, 3)
	require.Len(t, fx.VisitDrugs, 3)

	require.NotNil(t, fx.Patients[0].BirthDate)
	assert.Equal(t, 2021, fx.Patients[0].BirthDate.Year())

	v2 := fx.Visits[1]
	assert.Equal(t, domain.OutcomeNoChange, v2.OutcomeClass)
	assert.Nil(t, v2.RecoveryDays)
	assert.Equal(t, 9, v2.VisitDate.Hour())

	v3 := fx.Visits[2]
	assert.Nil(t, v3.WeightKG)
	assert.Equal(t, time.April, v3.VisitDate.Month())
	// Blank diagnosis is kept raw; normalization happens at the join.
	assert.Empty(t, v3.Diagnosis)
}

func TestDecodeFixtureErrors(t *testing.T) {
	_, err := DecodeFixture(strings.NewReader("{"))
	assert.Error(t, err)

	_, err = DecodeFixture(strings.NewReader(`{"visits": [{"visit_id": "V9", "visit_date": "soon"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "V9")

	fx, err := DecodeFixture(strings.NewReader(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, fx.VisitDrugs)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewFixtureStore(testFixture)
	require.NoError(t, err)

	visits, err := store.Visits(ctx)
	require.NoError(t, err)
	require.Len(t, visits, 3)

	// Callers get copies.
	visits[0].Diagnosis = "changed"
	again, err := store.Visits(ctx)
	require.NoError(t, err)
	assert.Equal(t, "URTI", again[0].Diagnosis)

	store.Replace(&Fixture{})
	patients, err := store.Patients(ctx)
	require.NoError(t, err)
	assert.Empty(t, patients)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.VisitDrugs(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFixtureStoreMissingFile(t *testing.T) {
	_, err := NewFixtureStore("testdata/missing.json")
	assert.Error(t, err)
}
