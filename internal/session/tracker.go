package session

import (
	"fmt"
	"math"
	"time"
)

// ResponseMeta carries contextual flags logged with an answer. It feeds the
// final summary only, never scheduling decisions.
type ResponseMeta struct {
	BucketLevel int
	FirstReview bool
}

// ResponseLogEntry is one answered card in the session log.
type ResponseLogEntry struct {
	WordID       string
	WasCorrect   bool
	ReviewTimeMs int64
	Meta         ResponseMeta
	At           time.Time
}

// TrackerStats is a live snapshot for progress bars.
type TrackerStats struct {
	CardsReviewed int
	CorrectCount  int
	TotalCards    int
	ElapsedMs     int64
}

// SessionSummary is the finalized result of one review session.
type SessionSummary struct {
	LearningPath      string
	TotalCards        int
	CardsReviewed     int
	CorrectCount      int
	SuccessRate       int // percent, rounded
	Elapsed           string
	CompletedNormally bool
}

// Tracker instruments a single review session: per-card timing, running
// counts and the end-of-session summary. It holds no durable state and is
// reusable across sessions after EndSession.
type Tracker struct {
	now func() time.Time

	active        bool
	learningPath  string
	totalCards    int
	startedAt     time.Time
	cardStarts    map[string]time.Time
	log           []ResponseLogEntry
	cardsReviewed int
	correctCount  int
}

// NewTracker creates a tracker using the wall clock.
func NewTracker() *Tracker {
	return NewTrackerWithClock(time.Now)
}

// NewTrackerWithClock creates a tracker with an injected clock for tests.
func NewTrackerWithClock(now func() time.Time) *Tracker {
	return &Tracker{
		now:        now,
		cardStarts: make(map[string]time.Time),
	}
}

// StartSession resets all counters and begins timing a new session.
func (t *Tracker) StartSession(learningPath string, totalCards int) {
	t.active = true
	t.learningPath = learningPath
	t.totalCards = totalCards
	t.startedAt = t.now()
	t.cardStarts = make(map[string]time.Time)
	t.log = nil
	t.cardsReviewed = 0
	t.correctCount = 0
}

// StartCardTimer marks the moment a card was shown to the learner.
func (t *Tracker) StartCardTimer(wordID string) {
	t.cardStarts[wordID] = t.now()
}

// EndCardTimer returns the elapsed milliseconds since StartCardTimer for the
// word and clears the timer. Without a matching start it returns 0.
func (t *Tracker) EndCardTimer(wordID string) int64 {
	started, ok := t.cardStarts[wordID]
	if !ok {
		return 0
	}
	delete(t.cardStarts, wordID)
	return t.now().Sub(started).Milliseconds()
}

// RecordResponse appends an answer to the session log and bumps the counters.
func (t *Tracker) RecordResponse(wordID string, wasCorrect bool, reviewTimeMs int64, meta ResponseMeta) {
	t.log = append(t.log, ResponseLogEntry{
		WordID:       wordID,
		WasCorrect:   wasCorrect,
		ReviewTimeMs: reviewTimeMs,
		Meta:         meta,
		At:           t.now(),
	})
	t.cardsReviewed++
	if wasCorrect {
		t.correctCount++
	}
}

// CurrentStats returns a live snapshot of the running session.
func (t *Tracker) CurrentStats() TrackerStats {
	stats := TrackerStats{
		CardsReviewed: t.cardsReviewed,
		CorrectCount:  t.correctCount,
		TotalCards:    t.totalCards,
	}
	if t.active {
		stats.ElapsedMs = t.now().Sub(t.startedAt).Milliseconds()
	}
	return stats
}

// Log returns the recorded responses for the running session.
func (t *Tracker) Log() []ResponseLogEntry {
	return t.log
}

// EndSession finalizes the session and resets the tracker for reuse.
func (t *Tracker) EndSession(completedNormally bool) SessionSummary {
	summary := SessionSummary{
		LearningPath:      t.learningPath,
		TotalCards:        t.totalCards,
		CardsReviewed:     t.cardsReviewed,
		CorrectCount:      t.correctCount,
		CompletedNormally: completedNormally,
	}
	if t.cardsReviewed > 0 {
		summary.SuccessRate = int(math.Round(float64(t.correctCount) / float64(t.cardsReviewed) * 100))
	}
	if t.active {
		summary.Elapsed = formatElapsed(t.now().Sub(t.startedAt))
	} else {
		summary.Elapsed = formatElapsed(0)
	}

	t.active = false
	t.learningPath = ""
	t.totalCards = 0
	t.cardStarts = make(map[string]time.Time)
	t.log = nil
	t.cardsReviewed = 0
	t.correctCount = 0

	return summary
}

// formatElapsed renders a wall-time duration as "1h 04m 05s", dropping
// leading zero components.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
