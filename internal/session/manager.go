package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/lingobot/internal/srs"
	"github.com/example/lingobot/pkg/models"
)

// ProgressStore is the durable store for progress records.
type ProgressStore interface {
	// GetAll returns every progress record under a learning path.
	GetAll(ctx context.Context, learningPath string) ([]models.ProgressRecord, error)
	// Get returns the record for one (word, path) pair, or ErrNotFound.
	Get(ctx context.Context, wordID, learningPath string) (*models.ProgressRecord, error)
	// Put inserts or replaces a record.
	Put(ctx context.Context, record *models.ProgressRecord) error
}

// VocabularyRepository resolves word identifiers and candidate pools.
type VocabularyRepository interface {
	// GetByID returns a word entity, or ErrNotFound.
	GetByID(ctx context.Context, wordID string) (*models.Word, error)
	// GetCandidates returns all words available for a language pair.
	GetCandidates(ctx context.Context, sourceLang, targetLang string) ([]models.Word, error)
}

// State is the lifecycle of a review session.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateComplete
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// SessionInfo is returned by StartSession.
type SessionInfo struct {
	SessionID      uuid.UUID
	TotalCards     int
	RemainingCards int
}

// CardRef identifies the card currently at the head of the queue.
type CardRef struct {
	WordID      string
	Word        *models.Word
	IsNew       bool // no prior review under this path
	BucketLevel int
}

// CompleteResult is returned by CompleteCard.
type CompleteResult struct {
	Success           bool
	IsSessionComplete bool
}

// SessionStats aggregates the records touched during the session. It is kept
// by the manager itself, independent of the tracker's log, so the two can be
// cross-checked.
type SessionStats struct {
	CardsCompleted int // cards that graduated (answered correctly)
	CardsAnswered  int // total answers including retries
	CorrectAnswers int
	SuccessRate    int // percent, rounded
}

// Manager owns one review session at a time: it builds the daily queue from
// due and new candidates, serves cards, applies the policy on every answer
// and persists the resulting record before advancing.
//
// A wrong answer sends the card to the back of the queue; it stays in the
// session until answered correctly. The head card is served by peeking, so
// redisplaying after an interruption shows the same card.
type Manager struct {
	store   ProgressStore
	vocab   VocabularyRepository
	policy  *srs.Policy
	tracker *Tracker
	now     func() time.Time

	state        State
	sessionID    uuid.UUID
	learningPath string
	queue        []string
	totalCards   int

	words   map[string]models.Word
	records map[string]*models.ProgressRecord

	cardsCompleted int
	cardsAnswered  int
	correctAnswers int
}

// NewManager wires a manager with its collaborators.
func NewManager(store ProgressStore, vocab VocabularyRepository, policy *srs.Policy, tracker *Tracker) *Manager {
	return &Manager{
		store:   store,
		vocab:   vocab,
		policy:  policy,
		tracker: tracker,
		now:     time.Now,
	}
}

// SetClock replaces the manager's clock; tests use it together with the
// policy's injected sources.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// State returns the current session lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Tracker returns the session tracker, for per-card timing by the caller.
func (m *Manager) Tracker() *Tracker {
	return m.tracker
}

// StartSession builds the daily queue for a learning path. Due records come
// first, ordered by descending priority score; remaining slots are filled
// with unseen words ordered by ascending frequency rank. The queue is capped
// at dailyTarget. Starting while a session is in progress abandons the old
// queue; records already persisted stay persisted.
func (m *Manager) StartSession(ctx context.Context, learningPath string, dailyTarget int) (*SessionInfo, error) {
	if !models.ValidLearningPath(learningPath) {
		return nil, &ValidationError{Err: fmt.Errorf("invalid learning path %q", learningPath)}
	}
	if dailyTarget <= 0 {
		return nil, &ValidationError{Err: fmt.Errorf("daily target must be positive, got %d", dailyTarget)}
	}
	if m.state == StateInProgress {
		m.state = StateAbandoned
	}

	now := m.now()

	records, err := m.store.GetAll(ctx, learningPath)
	if err != nil {
		return nil, &PersistenceError{Op: "load progress records", Err: err}
	}

	sourceLang, targetLang, err := models.SplitLearningPath(learningPath)
	if err != nil {
		return nil, &ValidationError{Err: err}
	}
	candidates, err := m.vocab.GetCandidates(ctx, sourceLang, targetLang)
	if err != nil {
		return nil, &PersistenceError{Op: "load vocabulary candidates", Err: err}
	}

	words := make(map[string]models.Word, len(candidates))
	for _, w := range candidates {
		words[w.ID] = w
	}

	recordByWord := make(map[string]*models.ProgressRecord, len(records))
	var due []*models.ProgressRecord
	for i := range records {
		rec := &records[i]
		rec.Normalize()
		recordByWord[rec.WordID] = rec
		if _, known := words[rec.WordID]; !known {
			// Record for a word no longer in the vocabulary; nothing to show.
			continue
		}
		if m.policy.IsDue(rec, now) {
			due = append(due, rec)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return m.policy.PriorityScore(due[i], now) > m.policy.PriorityScore(due[j], now)
	})

	queue := make([]string, 0, dailyTarget)
	for _, rec := range due {
		if len(queue) == dailyTarget {
			break
		}
		queue = append(queue, rec.WordID)
	}

	if len(queue) < dailyTarget {
		var fresh []models.Word
		for _, w := range candidates {
			if _, seen := recordByWord[w.ID]; !seen {
				fresh = append(fresh, w)
			}
		}
		sort.SliceStable(fresh, func(i, j int) bool {
			return fresh[i].FrequencyRank < fresh[j].FrequencyRank
		})
		for _, w := range fresh {
			if len(queue) == dailyTarget {
				break
			}
			queue = append(queue, w.ID)
		}
	}

	m.sessionID = uuid.New()
	m.learningPath = learningPath
	m.queue = queue
	m.totalCards = len(queue)
	m.words = words
	m.records = recordByWord
	m.cardsCompleted = 0
	m.cardsAnswered = 0
	m.correctAnswers = 0

	if len(queue) == 0 {
		m.state = StateComplete
	} else {
		m.state = StateInProgress
	}

	m.tracker.StartSession(learningPath, len(queue))

	return &SessionInfo{
		SessionID:      m.sessionID,
		TotalCards:     m.totalCards,
		RemainingCards: len(m.queue),
	}, nil
}

// NextCard peeks at the head of the queue without removing it. It returns
// nil when no session is active or the queue is drained.
func (m *Manager) NextCard() *CardRef {
	if m.state != StateInProgress || len(m.queue) == 0 {
		return nil
	}
	wordID := m.queue[0]
	card := &CardRef{WordID: wordID}
	if w, ok := m.words[wordID]; ok {
		word := w
		card.Word = &word
	}
	if rec, ok := m.records[wordID]; ok {
		card.BucketLevel = rec.BucketLevel
	} else {
		card.IsNew = true
	}
	return card
}

// RemainingCards returns the number of cards still in the queue.
func (m *Manager) RemainingCards() int {
	return len(m.queue)
}

// CompleteCard applies an answer for a word, persists the updated record and
// advances the queue: a correct answer removes the card, a wrong one moves it
// to the back. On a persistence failure nothing advances and the caller must
// retry the same card. A word id that is not part of the session is skipped
// without touching any record, so a stale reference cannot wedge the session.
func (m *Manager) CompleteCard(ctx context.Context, wordID string, wasCorrect bool, reviewTimeMs int64, learningPath string) (*CompleteResult, error) {
	if m.state != StateInProgress {
		return nil, ErrNoActiveSession
	}
	if learningPath != m.learningPath {
		return nil, &ValidationError{Err: fmt.Errorf("learning path %q does not match active session %q", learningPath, m.learningPath)}
	}

	pos := -1
	for i, id := range m.queue {
		if id == wordID {
			pos = i
			break
		}
	}
	if pos == -1 {
		return &CompleteResult{Success: false, IsSessionComplete: len(m.queue) == 0}, nil
	}
	if _, known := m.words[wordID]; !known {
		// Unknown to the vocabulary: drop the card, advance the session.
		m.removeAt(pos)
		m.finishIfDrained()
		return &CompleteResult{Success: false, IsSessionComplete: m.state == StateComplete}, nil
	}

	rec, ok := m.records[wordID]
	if !ok {
		stored, err := m.store.Get(ctx, wordID, m.learningPath)
		switch {
		case err == nil:
			stored.Normalize()
			rec = stored
		case errors.Is(err, ErrNotFound):
			rec = models.NewProgressRecord(wordID, m.learningPath, m.now())
		default:
			return nil, &PersistenceError{Op: "load progress record", Err: err}
		}
	}

	firstReview := rec.LastReviewed == nil
	bucketBefore := rec.BucketLevel

	updated := *rec
	if wasCorrect {
		m.policy.RecordSuccess(&updated, reviewTimeMs)
	} else {
		m.policy.RecordFailure(&updated, reviewTimeMs)
	}
	if err := updated.Validate(); err != nil {
		return nil, &ValidationError{Err: err}
	}
	if err := m.store.Put(ctx, &updated); err != nil {
		return nil, &PersistenceError{Op: "save progress record", Err: err}
	}

	*rec = updated
	m.records[wordID] = rec

	m.cardsAnswered++
	if wasCorrect {
		m.correctAnswers++
		m.cardsCompleted++
		m.removeAt(pos)
	} else {
		m.removeAt(pos)
		m.queue = append(m.queue, wordID)
	}

	m.tracker.RecordResponse(wordID, wasCorrect, reviewTimeMs, ResponseMeta{
		BucketLevel: bucketBefore,
		FirstReview: firstReview,
	})

	m.finishIfDrained()

	return &CompleteResult{Success: true, IsSessionComplete: m.state == StateComplete}, nil
}

// Abandon drops the ephemeral queue. Already-persisted records are unaffected.
func (m *Manager) Abandon() {
	if m.state == StateInProgress {
		m.state = StateAbandoned
		m.queue = nil
	}
}

// SessionStatistics returns the manager's own aggregate over the session,
// independent of the tracker's log.
func (m *Manager) SessionStatistics(learningPath string) (*SessionStats, error) {
	if m.state == StateNotStarted {
		return nil, ErrNoActiveSession
	}
	if learningPath != m.learningPath {
		return nil, &ValidationError{Err: fmt.Errorf("learning path %q does not match session %q", learningPath, m.learningPath)}
	}
	stats := &SessionStats{
		CardsCompleted: m.cardsCompleted,
		CardsAnswered:  m.cardsAnswered,
		CorrectAnswers: m.correctAnswers,
	}
	if m.cardsAnswered > 0 {
		stats.SuccessRate = int(math.Round(float64(m.correctAnswers) / float64(m.cardsAnswered) * 100))
	}
	return stats, nil
}

func (m *Manager) removeAt(i int) {
	m.queue = append(m.queue[:i], m.queue[i+1:]...)
}

func (m *Manager) finishIfDrained() {
	if len(m.queue) == 0 {
		m.state = StateComplete
	}
}
