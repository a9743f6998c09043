package scheduler

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/lingobot/internal/database"
)

// Default window within which review reminders may be sent.
const (
	DefaultNotificationStartHour = 8
	DefaultNotificationEndHour   = 22
)

// Notifier interface for sending notifications
type Notifier interface {
	SendReminder(chatID int64, dueCount int) error
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	notifier  Notifier
	learners  *database.LearnerRepository
	progress  *database.ProgressRepository
}

// New creates a new scheduler instance
func New(notifier Notifier, learners *database.LearnerRepository, progress *database.ProgressRepository) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		notifier:  notifier,
		learners:  learners,
		progress:  progress,
	}
}

// Start begins running all scheduled tasks
func (s *Scheduler) Start() {
	s.scheduler.Every(1).Hour().Do(s.checkAndSendReminders)
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkAndSendReminders notifies learners with due words whose preferred hour
// matches the current one.
func (s *Scheduler) checkAndSendReminders() {
	currentHour := time.Now().Hour()

	startHour := envHour("NOTIFICATION_START_HOUR", DefaultNotificationStartHour)
	endHour := envHour("NOTIFICATION_END_HOUR", DefaultNotificationEndHour)

	if currentHour < startHour || currentHour > endHour {
		log.Printf("Current hour %d is outside notification hours (%d-%d), skipping reminders",
			currentHour, startHour, endHour)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	learners, err := s.learners.GetForNotification(ctx, currentHour)
	if err != nil {
		log.Printf("Error getting learners for notification: %v", err)
		return
	}

	now := time.Now()
	for _, learner := range learners {
		if learner.LearningPath == "" {
			continue
		}
		dueCount, err := s.progress.CountDue(ctx, learner.LearningPath, now)
		if err != nil {
			log.Printf("Error counting due words for chat %d: %v", learner.ChatID, err)
			continue
		}
		if dueCount == 0 {
			continue
		}
		if dueCount > learner.DailyTarget {
			dueCount = learner.DailyTarget
		}
		if err := s.notifier.SendReminder(learner.ChatID, dueCount); err != nil {
			log.Printf("Error sending reminder to chat %d: %v", learner.ChatID, err)
		}
	}
}

// RunManualCheck forces a reminder check for a specific learner.
func (s *Scheduler) RunManualCheck(ctx context.Context, chatID int64) error {
	learner, err := s.learners.GetByChatID(ctx, chatID)
	if err != nil {
		return err
	}
	dueCount, err := s.progress.CountDue(ctx, learner.LearningPath, time.Now())
	if err != nil {
		return err
	}
	if dueCount > 0 {
		return s.notifier.SendReminder(chatID, dueCount)
	}
	return nil
}

func envHour(name string, fallback int) int {
	if v := os.Getenv(name); v != "" {
		if h, err := strconv.Atoi(v); err == nil && h >= 0 && h <= 23 {
			return h
		}
	}
	return fallback
}
