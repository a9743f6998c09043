package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/pkg/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	// One connection, or every pooled conn would get its own empty :memory: db.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, initializeSchema(db))
	return db
}

func sampleRecord(wordID string, bucket int, nextReview time.Time) *models.ProgressRecord {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := models.NewProgressRecord(wordID, "en-de", now)
	rec.BucketLevel = bucket
	rec.NextReview = nextReview
	rec.SuccessCount = 3
	rec.FailureCount = 1
	rec.ConsecutiveSuccesses = 2
	rec.TotalReviewTimeMs = 12345
	return rec
}

func TestProgressPutGetRoundtrip(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	ctx := context.Background()

	next := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	reviewed := next.Add(-72 * time.Hour)
	rec := sampleRecord("w001", 2, next)
	rec.LastReviewed = &reviewed

	require.NoError(t, repo.Put(ctx, rec))

	got, err := repo.Get(ctx, "w001", "en-de")
	require.NoError(t, err)
	assert.Equal(t, rec.WordID, got.WordID)
	assert.Equal(t, rec.LearningPath, got.LearningPath)
	assert.Equal(t, rec.BucketLevel, got.BucketLevel)
	assert.Equal(t, rec.SuccessCount, got.SuccessCount)
	assert.Equal(t, rec.FailureCount, got.FailureCount)
	assert.Equal(t, rec.ConsecutiveSuccesses, got.ConsecutiveSuccesses)
	assert.Equal(t, rec.TotalReviewTimeMs, got.TotalReviewTimeMs)
	assert.Equal(t, models.ProgressSchemaVersion, got.SchemaVersion)
	require.NotNil(t, got.LastReviewed)
	assert.True(t, got.LastReviewed.Equal(reviewed))
	assert.True(t, got.NextReview.Equal(next))
}

func TestProgressPutUpserts(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	ctx := context.Background()

	next := time.Date(2024, 3, 18, 12, 0, 0, 0, time.UTC)
	rec := sampleRecord("w001", 1, next)
	require.NoError(t, repo.Put(ctx, rec))

	rec.BucketLevel = 2
	rec.SuccessCount = 4
	require.NoError(t, repo.Put(ctx, rec))

	all, err := repo.GetAll(ctx, "en-de")
	require.NoError(t, err)
	require.Len(t, all, 1, "put must replace, not duplicate")
	assert.Equal(t, 2, all[0].BucketLevel)
	assert.Equal(t, 4, all[0].SuccessCount)
}

func TestProgressGetMissingRecord(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	_, err := repo.Get(context.Background(), "missing", "en-de")
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestProgressPutRejectsInvalidRecord(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	rec := sampleRecord("w001", 9, time.Now())
	err := repo.Put(context.Background(), rec)
	require.Error(t, err)

	all, err := repo.GetAll(context.Background(), "en-de")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProgressCountDueAndBuckets(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, sampleRecord("w001", 0, now.Add(-time.Hour))))
	require.NoError(t, repo.Put(ctx, sampleRecord("w002", 0, now.Add(-48*time.Hour))))
	require.NoError(t, repo.Put(ctx, sampleRecord("w003", 3, now.Add(72*time.Hour))))

	due, err := repo.CountDue(ctx, "en-de", now)
	require.NoError(t, err)
	assert.Equal(t, 2, due)

	buckets, err := repo.BucketCounts(ctx, "en-de")
	require.NoError(t, err)
	assert.Equal(t, 2, buckets[0])
	assert.Equal(t, 1, buckets[3])
}

func TestProgressScopedByLearningPath(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	enDe := sampleRecord("w001", 1, now)
	require.NoError(t, repo.Put(ctx, enDe))

	frEs := sampleRecord("w001", 3, now)
	frEs.LearningPath = "fr-es"
	require.NoError(t, repo.Put(ctx, frEs))

	got, err := repo.Get(ctx, "w001", "fr-es")
	require.NoError(t, err)
	assert.Equal(t, 3, got.BucketLevel)

	all, err := repo.GetAll(ctx, "en-de")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 1, all[0].BucketLevel)
}

func TestExportRestoreRoundtrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Put(ctx, sampleRecord("w001", 1, now)))
	require.NoError(t, repo.Put(ctx, sampleRecord("w002", 4, now.Add(24*time.Hour))))

	var buf strings.Builder
	require.NoError(t, repo.ExportProgress(ctx, "en-de", &buf))
	assert.Contains(t, buf.String(), `"schema_version": 1`)

	// Restore into a fresh database.
	fresh := NewProgressRepository(newTestDB(t))
	restored, err := fresh.RestoreProgress(ctx, strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, restored)

	all, err := fresh.GetAll(ctx, "en-de")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRestoreRejectsNewerSchema(t *testing.T) {
	repo := NewProgressRepository(newTestDB(t))
	payload := `{"schema_version": 99, "learning_path": "en-de", "records": []}`
	_, err := repo.RestoreProgress(context.Background(), strings.NewReader(payload))
	assert.Error(t, err)
}
