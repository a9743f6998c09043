package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProgressRecordIsImmediatelyDue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec := NewProgressRecord("w1", "en-de", now)

	assert.Equal(t, 0, rec.BucketLevel)
	assert.Nil(t, rec.LastReviewed)
	assert.True(t, rec.NextReview.Equal(now))
	assert.Equal(t, ProgressSchemaVersion, rec.SchemaVersion)
	require.NoError(t, rec.Validate())
}

func TestValidateRejectsDrift(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name   string
		mutate func(*ProgressRecord)
	}{
		{"empty word id", func(r *ProgressRecord) { r.WordID = "" }},
		{"bad path", func(r *ProgressRecord) { r.LearningPath = "german" }},
		{"bucket too high", func(r *ProgressRecord) { r.BucketLevel = MaxBucket + 1 }},
		{"bucket negative", func(r *ProgressRecord) { r.BucketLevel = -1 }},
		{"negative successes", func(r *ProgressRecord) { r.SuccessCount = -1 }},
		{"negative review time", func(r *ProgressRecord) { r.TotalReviewTimeMs = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewProgressRecord("w1", "en-de", now)
			tc.mutate(rec)
			assert.Error(t, rec.Validate())
		})
	}
}

func TestNormalizeClampsDrift(t *testing.T) {
	rec := NewProgressRecord("w1", "en-de", time.Now())
	rec.BucketLevel = 17
	rec.SuccessCount = -3
	rec.ConsecutiveSuccesses = -1
	rec.TotalReviewTimeMs = -500
	rec.SchemaVersion = 0

	rec.Normalize()

	assert.Equal(t, MaxBucket, rec.BucketLevel)
	assert.Equal(t, 0, rec.SuccessCount)
	assert.Equal(t, 0, rec.ConsecutiveSuccesses)
	assert.Equal(t, int64(0), rec.TotalReviewTimeMs)
	assert.Equal(t, ProgressSchemaVersion, rec.SchemaVersion)
	assert.NoError(t, rec.Validate())
}

func TestSplitLearningPath(t *testing.T) {
	source, target, err := SplitLearningPath("en-de")
	require.NoError(t, err)
	assert.Equal(t, "en", source)
	assert.Equal(t, "de", target)

	for _, bad := range []string{"", "en", "en-", "eng-de", "EN-DE", "en_de"} {
		_, _, err := SplitLearningPath(bad)
		assert.Error(t, err, "path %q", bad)
	}
}
