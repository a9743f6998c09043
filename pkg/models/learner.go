package models

import "time"

// Learner represents a registered user of the bot
type Learner struct {
	ID                  int64     `json:"id" db:"id"`
	ChatID              int64     `json:"chat_id" db:"chat_id"`
	Username            string    `json:"username" db:"username"`
	FirstName           string    `json:"first_name" db:"first_name"`
	LearningPath        string    `json:"learning_path" db:"learning_path"`
	DailyTarget         int       `json:"daily_target" db:"daily_target"`
	NotificationHour    int       `json:"notification_hour" db:"notification_hour"`
	NotificationEnabled bool      `json:"notification_enabled" db:"notification_enabled"`
	IsAdmin             bool      `json:"is_admin" db:"is_admin"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultDailyTarget is the card count for learners who never changed it.
const DefaultDailyTarget = 20
