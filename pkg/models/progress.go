package models

import (
	"fmt"
	"time"
)

// ProgressSchemaVersion is stored with every persisted record and with JSON
// backups so that future schema changes can migrate old data at load time.
const ProgressSchemaVersion = 1

// MaxBucket is the highest review bucket. Buckets run 0 (newest) to 4 (most
// durably known); each maps to a longer review interval.
const MaxBucket = 4

// ProgressRecord tracks a learner's performance for one word under one
// learning path. Exactly one record exists per (word, path) pair.
type ProgressRecord struct {
	WordID               string     `json:"word_id" db:"word_id"`
	LearningPath         string     `json:"learning_path" db:"learning_path"`
	BucketLevel          int        `json:"bucket_level" db:"bucket_level"`
	LastReviewed         *time.Time `json:"last_reviewed,omitempty" db:"last_reviewed"`
	NextReview           time.Time  `json:"next_review" db:"next_review"`
	SuccessCount         int        `json:"success_count" db:"success_count"`
	FailureCount         int        `json:"failure_count" db:"failure_count"`
	ConsecutiveSuccesses int        `json:"consecutive_successes" db:"consecutive_successes"`
	TotalReviewTimeMs    int64      `json:"total_review_time_ms" db:"total_review_time_ms"`
	SchemaVersion        int        `json:"schema_version" db:"schema_version"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// NewProgressRecord creates a record for a word's first review. NextReview
// defaults to the creation time so the word is immediately due.
func NewProgressRecord(wordID, learningPath string, now time.Time) *ProgressRecord {
	return &ProgressRecord{
		WordID:        wordID,
		LearningPath:  learningPath,
		BucketLevel:   0,
		NextReview:    now,
		SchemaVersion: ProgressSchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Validate rejects records that must never reach the store.
func (r *ProgressRecord) Validate() error {
	if r.WordID == "" {
		return fmt.Errorf("progress record has empty word id")
	}
	if !ValidLearningPath(r.LearningPath) {
		return fmt.Errorf("progress record has invalid learning path %q", r.LearningPath)
	}
	if r.BucketLevel < 0 || r.BucketLevel > MaxBucket {
		return fmt.Errorf("bucket level %d out of range [0, %d]", r.BucketLevel, MaxBucket)
	}
	if r.SuccessCount < 0 || r.FailureCount < 0 || r.ConsecutiveSuccesses < 0 {
		return fmt.Errorf("progress record has negative counters")
	}
	if r.TotalReviewTimeMs < 0 {
		return fmt.Errorf("progress record has negative total review time")
	}
	return nil
}

// Normalize clamps invariant drift in a loaded record so that damaged storage
// degrades gracefully instead of blocking a whole session. It is the one-time
// migration step run on every read path.
func (r *ProgressRecord) Normalize() {
	if r.BucketLevel < 0 {
		r.BucketLevel = 0
	}
	if r.BucketLevel > MaxBucket {
		r.BucketLevel = MaxBucket
	}
	if r.SuccessCount < 0 {
		r.SuccessCount = 0
	}
	if r.FailureCount < 0 {
		r.FailureCount = 0
	}
	if r.ConsecutiveSuccesses < 0 {
		r.ConsecutiveSuccesses = 0
	}
	if r.TotalReviewTimeMs < 0 {
		r.TotalReviewTimeMs = 0
	}
	if r.SchemaVersion == 0 {
		r.SchemaVersion = ProgressSchemaVersion
	}
}
