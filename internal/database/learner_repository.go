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

// LearnerRepository handles database operations for learners
type LearnerRepository struct {
	db *sqlx.DB
}

// NewLearnerRepository creates a new repository instance
func NewLearnerRepository(db *sqlx.DB) *LearnerRepository {
	return &LearnerRepository{db: db}
}

// GetByChatID returns the learner registered for a chat, or session.ErrNotFound.
func (r *LearnerRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Learner, error) {
	var learner models.Learner
	query := r.db.Rebind("SELECT * FROM learners WHERE chat_id = ?")
	err := r.db.GetContext(ctx, &learner, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("learner for chat %d: %w", chatID, session.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get learner: %v", err)
	}
	return &learner, nil
}

// Create registers a new learner.
func (r *LearnerRepository) Create(ctx context.Context, learner *models.Learner) error {
	if learner.DailyTarget <= 0 {
		learner.DailyTarget = models.DefaultDailyTarget
	}
	now := time.Now()
	learner.CreatedAt = now
	learner.UpdatedAt = now
	query := r.db.Rebind(`
		INSERT INTO learners (
			chat_id, username, first_name, learning_path, daily_target,
			notification_hour, notification_enabled, is_admin, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	result, err := r.db.ExecContext(ctx, query,
		learner.ChatID, learner.Username, learner.FirstName, learner.LearningPath,
		learner.DailyTarget, learner.NotificationHour, learner.NotificationEnabled,
		learner.IsAdmin, learner.CreatedAt, learner.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create learner: %v", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		learner.ID = id
	}
	return nil
}

// Update modifies an existing learner's settings.
func (r *LearnerRepository) Update(ctx context.Context, learner *models.Learner) error {
	learner.UpdatedAt = time.Now()
	query := r.db.Rebind(`
		UPDATE learners SET
			username = ?, first_name = ?, learning_path = ?, daily_target = ?,
			notification_hour = ?, notification_enabled = ?, updated_at = ?
		WHERE chat_id = ?
	`)
	_, err := r.db.ExecContext(ctx, query,
		learner.Username, learner.FirstName, learner.LearningPath, learner.DailyTarget,
		learner.NotificationHour, learner.NotificationEnabled, learner.UpdatedAt,
		learner.ChatID,
	)
	if err != nil {
		return fmt.Errorf("failed to update learner: %v", err)
	}
	return nil
}

// GetForNotification returns notification-enabled learners whose preferred
// hour matches the given hour.
func (r *LearnerRepository) GetForNotification(ctx context.Context, hour int) ([]models.Learner, error) {
	var learners []models.Learner
	query := r.db.Rebind(`
		SELECT * FROM learners
		WHERE notification_enabled = ? AND notification_hour = ?
	`)
	if err := r.db.SelectContext(ctx, &learners, query, true, hour); err != nil {
		return nil, fmt.Errorf("failed to get learners for notification: %v", err)
	}
	return learners, nil
}
