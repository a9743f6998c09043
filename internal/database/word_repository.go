package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/pkg/models"
)

// WordRepository handles database operations for vocabulary words. It
// implements session.VocabularyRepository.
type WordRepository struct {
	db *sqlx.DB
}

// NewWordRepository creates a new repository instance
func NewWordRepository(db *sqlx.DB) *WordRepository {
	return &WordRepository{db: db}
}

// GetByID returns a word by its identifier, or session.ErrNotFound.
func (r *WordRepository) GetByID(ctx context.Context, wordID string) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind("SELECT * FROM words WHERE id = ?")
	err := r.db.GetContext(ctx, &word, query, wordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %q: %w", wordID, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word: %v", err)
	}
	return &word, nil
}

// GetCandidates returns all words for a language pair ordered by frequency
// rank, most common first.
func (r *WordRepository) GetCandidates(ctx context.Context, sourceLang, targetLang string) ([]models.Word, error) {
	var words []models.Word
	path := sourceLang + "-" + targetLang
	query := r.db.Rebind("SELECT * FROM words WHERE learning_path = ? ORDER BY frequency_rank ASC, term ASC")
	if err := r.db.SelectContext(ctx, &words, query, path); err != nil {
		return nil, fmt.Errorf("failed to get candidate words: %v", err)
	}
	return words, nil
}

// GetByTerm returns the word with a given term under a learning path, or
// session.ErrNotFound.
func (r *WordRepository) GetByTerm(ctx context.Context, term, learningPath string) (*models.Word, error) {
	var word models.Word
	query := r.db.Rebind("SELECT * FROM words WHERE term = ? AND learning_path = ?")
	err := r.db.GetContext(ctx, &word, query, term, learningPath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("word %q under %q: %w", term, learningPath, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get word by term: %v", err)
	}
	return &word, nil
}

// Create inserts a new word, assigning it an identifier.
func (r *WordRepository) Create(ctx context.Context, word *models.Word) error {
	if word.ID == "" {
		word.ID = uuid.NewString()
	}
	now := time.Now()
	word.CreatedAt = now
	word.UpdatedAt = now
	query := r.db.Rebind(`
		INSERT INTO words (id, learning_path, term, translation, example, frequency_rank, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		word.ID, word.LearningPath, word.Term, word.Translation,
		word.Example, word.FrequencyRank, word.CreatedAt, word.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create word: %v", err)
	}
	return nil
}

// Update modifies an existing word.
func (r *WordRepository) Update(ctx context.Context, word *models.Word) error {
	word.UpdatedAt = time.Now()
	query := r.db.Rebind(`
		UPDATE words SET translation = ?, example = ?, frequency_rank = ?, updated_at = ?
		WHERE id = ?
	`)
	_, err := r.db.ExecContext(ctx, query,
		word.Translation, word.Example, word.FrequencyRank, word.UpdatedAt, word.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update word: %v", err)
	}
	return nil
}

// CountByPath returns the vocabulary size of a learning path.
func (r *WordRepository) CountByPath(ctx context.Context, learningPath string) (int, error) {
	var count int
	query := r.db.Rebind("SELECT COUNT(*) FROM words WHERE learning_path = ?")
	if err := r.db.GetContext(ctx, &count, query, learningPath); err != nil {
		return 0, fmt.Errorf("failed to count words: %v", err)
	}
	return count, nil
}
