package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "feedback.db"))
	require.NoError(t, err)
	return store
}

func sampleFeedback(recID, patientID string) *Feedback {
	return &Feedback{
		RecommendationID: recID,
		PatientID:        patientID,
		Diagnosis:        "URTI",
		SuggestedDrug:    "Amoxicillin",
		Accepted:         true,
		SnapshotID:       "snap-1",
	}
}

func TestNewSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NotNil(t, store)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "Database file should exist")
}

func TestSQLiteStore_Save(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	fb := sampleFeedback(" rec-1 ", "P001")

	require.NoError(t, store.Save(ctx, fb))
	assert.NotZero(t, fb.ID, "ID should be assigned")
	assert.False(t, fb.CreatedAt.IsZero(), "CreatedAt should be set")
	assert.Equal(t, "rec-1", fb.RecommendationID)
	assert.Equal(t, "Amoxicillin", fb.ChosenDrug, "accepted feedback defaults the chosen drug")
}

func TestSQLiteStore_Save_Update(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	fb := sampleFeedback("rec-1", "P001")
	require.NoError(t, store.Save(ctx, fb))
	originalID := fb.ID

	fb.Accepted = false
	fb.ChosenDrug = "Azithromycin"
	fb.Notes = "Penicillin allergy reported at visit"
	require.NoError(t, store.Save(ctx, fb))
	assert.Equal(t, originalID, fb.ID, "Should update existing record")

	retrieved, err := store.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, retrieved)
	assert.False(t, retrieved.Accepted)
	assert.Equal(t, "Azithromycin", retrieved.ChosenDrug)
	assert.Equal(t, "Penicillin allergy reported at visit", retrieved.Notes)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestSQLiteStore_Save_Invalid(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	err := store.Save(context.Background(), &Feedback{PatientID: "P001", SuggestedDrug: "X"})
	assert.ErrorIs(t, err, ErrInvalidFeedback)

	err = store.Save(context.Background(), &Feedback{RecommendationID: "r", PatientID: "P001"})
	assert.ErrorIs(t, err, ErrInvalidFeedback)
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	fb, err := store.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, fb)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, sampleFeedback("rec-1", "P001")))
	require.NoError(t, store.Save(ctx, sampleFeedback("rec-2", "P002")))
	third := sampleFeedback("rec-3", "P001")
	require.NoError(t, store.Save(ctx, third))

	all, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	mine, err := store.ListByPatient(ctx, "P001", 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, fb := range mine {
		assert.Equal(t, "P001", fb.PatientID)
	}

	require.NoError(t, store.Delete(ctx, third.ID))
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	source := createTestStore(t)
	defer source.Close()

	require.NoError(t, source.Save(ctx, sampleFeedback("rec-1", "P001")))
	require.NoError(t, source.Save(ctx, sampleFeedback("rec-2", "P002")))

	var buf bytes.Buffer
	require.NoError(t, source.ExportJSON(ctx, &buf))

	var export FeedbackExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, ExportVersion, export.Version)
	assert.Equal(t, 2, export.Count)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, sampleFeedback("rec-1", "P001")))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSQLiteStore_ExportEmpty(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	var buf bytes.Buffer
	require.NoError(t, store.ExportJSON(context.Background(), &buf))
	assert.Contains(t, buf.String(), `"feedback": []`)
}

func TestSQLiteStore_ImportInvalidJSON(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, _, err := store.ImportJSON(context.Background(), bytes.NewReader([]byte("not json")))
	assert.Error(t, err)
}
