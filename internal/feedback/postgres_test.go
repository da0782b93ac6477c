package feedback

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var feedbackRowColumns = []string{
	"id", "recommendation_id", "patient_id", "diagnosis", "suggested_drug",
	"chosen_drug", "accepted", "snapshot_id", "notes", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		store.Close()
	})
	return store, mock
}

func TestNewPostgresStore_NilDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO recommendation_feedback")).
		WithArgs("rec-1", "P001", "URTI", "Amoxicillin", "Amoxicillin", true, "snap-1", "",
			sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	fb := sampleFeedback("rec-1", "P001")
	require.NoError(t, store.Save(context.Background(), fb))

	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO recommendation_feedback")).
		WillReturnError(errors.New("connection reset"))

	err := store.Save(context.Background(), sampleFeedback("rec-1", "P001"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save feedback")
}

func TestPostgresStore_SaveInvalidSkipsQuery(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.Save(context.Background(), &Feedback{RecommendationID: "rec-1"})
	assert.ErrorIs(t, err, ErrInvalidFeedback)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE recommendation_id = $1")).
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(int64(1), "rec-1", "P001", "URTI", "Amoxicillin", "Azithromycin", false, "snap-1", "allergy", now, now))

	fb, err := store.Get(context.Background(), "rec-1")
	require.NoError(t, err)
	require.NotNil(t, fb)
	assert.Equal(t, "Azithromycin", fb.ChosenDrug)
	assert.False(t, fb.Accepted)
	assert.Equal(t, "allergy", fb.Notes)
}

func TestPostgresStore_GetMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE recommendation_id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	fb, err := store.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, fb)
}

func TestPostgresStore_ListByPatient(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE patient_id = $1")).
		WithArgs("P001", 10, 0).
		WillReturnRows(sqlmock.NewRows(feedbackRowColumns).
			AddRow(int64(2), "rec-2", "P001", "URTI", "Amoxicillin", "Amoxicillin", true, "", "", now, now).
			AddRow(int64(1), "rec-1", "P001", "URTI", "Paracetamol", "", false, "", "", now, now))

	list, err := store.ListByPatient(context.Background(), "P001", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rec-2", list[0].RecommendationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountAndDelete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM recommendation_feedback")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(4)))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM recommendation_feedback WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)

	require.NoError(t, store.Delete(context.Background(), 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
