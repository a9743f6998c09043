package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/pkg/models"
)

// ProgressRepository handles database operations for progress records. It
// implements session.ProgressStore.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository creates a new repository instance
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// GetAll returns every progress record for a learning path. Records are
// normalized on load so drifted values from storage are clamped, not fatal.
func (r *ProgressRepository) GetAll(ctx context.Context, learningPath string) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	query := r.db.Rebind("SELECT * FROM progress WHERE learning_path = ?")
	if err := r.db.SelectContext(ctx, &records, query, learningPath); err != nil {
		return nil, fmt.Errorf("failed to get progress records: %v", err)
	}
	for i := range records {
		records[i].Normalize()
	}
	return records, nil
}

// Get returns the record for one (word, path) pair, or session.ErrNotFound.
func (r *ProgressRepository) Get(ctx context.Context, wordID, learningPath string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	query := r.db.Rebind("SELECT * FROM progress WHERE word_id = ? AND learning_path = ?")
	err := r.db.GetContext(ctx, &record, query, wordID, learningPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("progress for word %q under %q: %w", wordID, learningPath, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress record: %v", err)
	}
	record.Normalize()
	return &record, nil
}

// Put inserts or replaces a record. Invalid records are rejected before they
// reach the database.
func (r *ProgressRepository) Put(ctx context.Context, record *models.ProgressRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("refusing to persist progress record: %v", err)
	}
	query := r.db.Rebind(`
		INSERT INTO progress (
			word_id, learning_path, bucket_level, last_reviewed, next_review,
			success_count, failure_count, consecutive_successes,
			total_review_time_ms, schema_version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (word_id, learning_path) DO UPDATE SET
			bucket_level = EXCLUDED.bucket_level,
			last_reviewed = EXCLUDED.last_reviewed,
			next_review = EXCLUDED.next_review,
			success_count = EXCLUDED.success_count,
			failure_count = EXCLUDED.failure_count,
			consecutive_successes = EXCLUDED.consecutive_successes,
			total_review_time_ms = EXCLUDED.total_review_time_ms,
			schema_version = EXCLUDED.schema_version,
			updated_at = EXCLUDED.updated_at
	`)
	_, err := r.db.ExecContext(ctx, query,
		record.WordID,
		record.LearningPath,
		record.BucketLevel,
		record.LastReviewed,
		record.NextReview,
		record.SuccessCount,
		record.FailureCount,
		record.ConsecutiveSuccesses,
		record.TotalReviewTimeMs,
		record.SchemaVersion,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress record: %v", err)
	}
	return nil
}

// CountDue returns how many records under a path are due at the given moment.
func (r *ProgressRepository) CountDue(ctx context.Context, learningPath string, now time.Time) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM progress WHERE learning_path = ? AND next_review <= ?")
	if err := r.db.GetContext(ctx, &count, query, learningPath, now); err != nil {
		return 0, fmt.Errorf("failed to count due records: %v", err)
	}
	return count, nil
}

// BucketCounts returns the number of records per bucket level for a path.
func (r *ProgressRepository) BucketCounts(ctx context.Context, learningPath string) (map[int]int, error) {
	rows := []struct {
		BucketLevel int `db:"bucket_level"`
		Count       int `db:"count"`
	}{}
	query := r.db.Rebind(`
		SELECT bucket_level, COUNT(*) AS count
		FROM progress WHERE learning_path = ?
		GROUP BY bucket_level
	`)
	if err := r.db.SelectContext(ctx, &rows, query, learningPath); err != nil {
		return nil, fmt.Errorf("failed to count buckets: %v", err)
	}
	counts := make(map[int]int, len(rows))
	for _, row := range rows {
		counts[row.BucketLevel] = row.Count
	}
	return counts, nil
}

// Delete removes a record; used by restore when replacing a path wholesale.
func (r *ProgressRepository) Delete(ctx context.Context, wordID, learningPath string) error {
	query := r.db.Rebind("DELETE FROM progress WHERE word_id = ? AND learning_path = ?")
	_, err := r.db.ExecContext(ctx, query, wordID, learningPath)
	return err
}
