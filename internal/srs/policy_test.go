package srs

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/lingobot/pkg/models"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestPolicy() *Policy {
	return NewWithSources(func() time.Time { return testNow }, rand.New(rand.NewSource(42)))
}

func newRecord(bucket int) *models.ProgressRecord {
	rec := models.NewProgressRecord("w1", "en-de", testNow.Add(-48*time.Hour))
	rec.BucketLevel = bucket
	return rec
}

func TestTwoConsecutiveSuccessesPromote(t *testing.T) {
	for bucket := 0; bucket <= models.MaxBucket; bucket++ {
		p := newTestPolicy()
		rec := newRecord(bucket)

		p.RecordSuccess(rec, 1000)
		assert.Equal(t, bucket, rec.BucketLevel, "first success must not promote from bucket %d", bucket)
		assert.Equal(t, 1, rec.ConsecutiveSuccesses)

		p.RecordSuccess(rec, 1000)
		want := bucket + 1
		if want > models.MaxBucket {
			want = models.MaxBucket
		}
		assert.Equal(t, want, rec.BucketLevel, "second success from bucket %d", bucket)
		assert.Equal(t, 2, rec.ConsecutiveSuccesses)
		assert.Equal(t, 2, rec.SuccessCount)
		assert.Equal(t, int64(2000), rec.TotalReviewTimeMs)
	}
}

func TestFailureDemotesAndBreaksStreak(t *testing.T) {
	for bucket := 0; bucket <= models.MaxBucket; bucket++ {
		p := newTestPolicy()
		rec := newRecord(bucket)
		rec.ConsecutiveSuccesses = 1

		p.RecordFailure(rec, 500)

		want := bucket - 1
		if want < 0 {
			want = 0
		}
		assert.Equal(t, want, rec.BucketLevel, "failure from bucket %d", bucket)
		assert.Equal(t, 0, rec.ConsecutiveSuccesses)
		assert.Equal(t, 1, rec.FailureCount)
		require.NotNil(t, rec.LastReviewed)
		assert.Equal(t, testNow, *rec.LastReviewed)
	}
}

func TestRescheduleStaysWithinJitterBounds(t *testing.T) {
	p := newTestPolicy()
	for bucket := 0; bucket <= models.MaxBucket; bucket++ {
		for i := 0; i < 200; i++ {
			// A single success never promotes, so the interval under test is
			// the starting bucket's own.
			rec := newRecord(bucket)
			p.RecordSuccess(rec, 0)

			interval := float64(DefaultIntervals[bucket])
			gotDays := rec.NextReview.Sub(*rec.LastReviewed).Hours() / 24
			assert.GreaterOrEqual(t, gotDays, 0.8*interval)
			assert.LessOrEqual(t, gotDays, 1.2*interval)
		}
	}
}

func TestRescheduleDoesNotClampEarlyDue(t *testing.T) {
	// A demoted bucket-0 record keeps whatever the jitter produced, even when
	// that lands close to (or before) the review moment.
	p := newTestPolicy()
	sawEarly := false
	for i := 0; i < 500; i++ {
		rec := newRecord(1)
		p.RecordFailure(rec, 0)
		require.Equal(t, 0, rec.BucketLevel)
		if rec.NextReview.Sub(testNow) < 24*time.Hour {
			sawEarly = true
		}
	}
	assert.True(t, sawEarly, "expected some reschedules below the nominal 1-day interval")
}

func TestIsDueAndIsOverdue(t *testing.T) {
	p := newTestPolicy()
	rec := newRecord(0)

	rec.NextReview = testNow
	assert.True(t, p.IsDue(rec, testNow))
	assert.False(t, p.IsOverdue(rec, testNow))

	rec.NextReview = testNow.Add(time.Minute)
	assert.False(t, p.IsDue(rec, testNow))

	rec.NextReview = testNow.Add(-24 * time.Hour)
	assert.True(t, p.IsDue(rec, testNow))
	assert.False(t, p.IsOverdue(rec, testNow), "exactly one day past due is not yet overdue")

	rec.NextReview = testNow.Add(-25 * time.Hour)
	assert.True(t, p.IsOverdue(rec, testNow))
}

func TestDaysUntilReview(t *testing.T) {
	p := newTestPolicy()
	rec := newRecord(0)

	rec.NextReview = testNow.Add(36 * time.Hour)
	assert.Equal(t, 2, p.DaysUntilReview(rec, testNow), "partial days round up")

	rec.NextReview = testNow
	assert.Equal(t, 0, p.DaysUntilReview(rec, testNow))

	rec.NextReview = testNow.Add(-49 * time.Hour)
	assert.Equal(t, -2, p.DaysUntilReview(rec, testNow))
}

func TestPriorityScoreOrdering(t *testing.T) {
	p := newTestPolicy()

	// Score is non-decreasing in days overdue, all else equal.
	prev := -1
	for days := 0; days <= 10; days++ {
		rec := newRecord(2)
		rec.NextReview = testNow.Add(-time.Duration(days) * 24 * time.Hour)
		score := p.PriorityScore(rec, testNow)
		assert.GreaterOrEqual(t, score, prev, "daysOverdue=%d", days)
		prev = score
	}

	// Lower buckets score higher, all else equal.
	low := newRecord(0)
	high := newRecord(4)
	low.NextReview = testNow
	high.NextReview = testNow
	assert.Greater(t, p.PriorityScore(low, testNow), p.PriorityScore(high, testNow))

	// A broken streak adds urgency.
	struggling := newRecord(2)
	struggling.NextReview = testNow
	struggling.FailureCount = 3
	clean := newRecord(2)
	clean.NextReview = testNow
	assert.Equal(t, p.PriorityScore(clean, testNow)+3, p.PriorityScore(struggling, testNow))

	// Not-yet-due records score below due ones.
	future := newRecord(2)
	future.NextReview = testNow.Add(48 * time.Hour)
	assert.Less(t, p.PriorityScore(future, testNow), p.PriorityScore(clean, testNow))
}

func TestNewWordFirstReviews(t *testing.T) {
	p := newTestPolicy()
	rec := models.NewProgressRecord("w1", "en-de", testNow)

	p.RecordSuccess(rec, 3000)
	assert.Equal(t, 1, rec.SuccessCount)
	assert.Equal(t, 1, rec.ConsecutiveSuccesses)
	assert.Equal(t, 0, rec.BucketLevel)
	days := rec.NextReview.Sub(testNow).Hours() / 24
	assert.InDelta(t, 1.0, days, 0.2)

	p.RecordSuccess(rec, 2000)
	assert.Equal(t, 2, rec.ConsecutiveSuccesses)
	assert.Equal(t, 1, rec.BucketLevel)
	days = rec.NextReview.Sub(testNow).Hours() / 24
	assert.InDelta(t, 3.0, days, 0.6)
	assert.Equal(t, int64(5000), rec.TotalReviewTimeMs)
}
