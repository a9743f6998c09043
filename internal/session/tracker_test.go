package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCardTimer(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTrackerWithClock(clock.Now)
	tracker.StartSession("en-de", 10)

	tracker.StartCardTimer("w1")
	clock.Advance(2500 * time.Millisecond)
	assert.Equal(t, int64(2500), tracker.EndCardTimer("w1"))

	// Timer is cleared after use.
	assert.Equal(t, int64(0), tracker.EndCardTimer("w1"))
}

func TestEndCardTimerWithoutStart(t *testing.T) {
	tracker := NewTrackerWithClock(newFakeClock().Now)
	tracker.StartSession("en-de", 5)
	assert.Equal(t, int64(0), tracker.EndCardTimer("never-started"))
}

func TestRecordResponseAndCurrentStats(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTrackerWithClock(clock.Now)
	tracker.StartSession("en-de", 3)

	tracker.RecordResponse("w1", true, 1200, ResponseMeta{BucketLevel: 0, FirstReview: true})
	tracker.RecordResponse("w2", false, 4000, ResponseMeta{BucketLevel: 2})
	clock.Advance(time.Minute)

	stats := tracker.CurrentStats()
	assert.Equal(t, 2, stats.CardsReviewed)
	assert.Equal(t, 1, stats.CorrectCount)
	assert.Equal(t, 3, stats.TotalCards)
	assert.Equal(t, int64(60000), stats.ElapsedMs)

	log := tracker.Log()
	require.Len(t, log, 2)
	assert.True(t, log[0].Meta.FirstReview)
	assert.Equal(t, 2, log[1].Meta.BucketLevel)
}

func TestEndSessionSummary(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTrackerWithClock(clock.Now)
	tracker.StartSession("en-de", 3)

	tracker.RecordResponse("w1", true, 0, ResponseMeta{})
	tracker.RecordResponse("w2", true, 0, ResponseMeta{})
	tracker.RecordResponse("w3", false, 0, ResponseMeta{})
	clock.Advance(3*time.Minute + 5*time.Second)

	summary := tracker.EndSession(true)
	assert.Equal(t, "en-de", summary.LearningPath)
	assert.Equal(t, 3, summary.CardsReviewed)
	assert.Equal(t, 2, summary.CorrectCount)
	assert.Equal(t, 67, summary.SuccessRate, "2/3 rounds to 67")
	assert.Equal(t, "3m 05s", summary.Elapsed)
	assert.True(t, summary.CompletedNormally)
}

func TestEndSessionWithNoCards(t *testing.T) {
	tracker := NewTrackerWithClock(newFakeClock().Now)
	tracker.StartSession("en-de", 0)
	summary := tracker.EndSession(false)
	assert.Equal(t, 0, summary.SuccessRate)
	assert.False(t, summary.CompletedNormally)
}

func TestTrackerIsReusableAfterEndSession(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTrackerWithClock(clock.Now)

	tracker.StartSession("en-de", 2)
	tracker.RecordResponse("w1", false, 0, ResponseMeta{})
	tracker.EndSession(false)

	tracker.StartSession("fr-es", 1)
	stats := tracker.CurrentStats()
	assert.Equal(t, 0, stats.CardsReviewed)
	assert.Equal(t, 0, stats.CorrectCount)
	assert.Equal(t, 1, stats.TotalCards)
	assert.Empty(t, tracker.Log())
}

func TestFormatElapsed(t *testing.T) {
	assert.Equal(t, "0s", formatElapsed(0))
	assert.Equal(t, "45s", formatElapsed(45*time.Second))
	assert.Equal(t, "2m 03s", formatElapsed(123*time.Second))
	assert.Equal(t, "1h 00m 01s", formatElapsed(time.Hour+time.Second))
}
