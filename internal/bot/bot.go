package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"

	"github.com/example/lingobot/internal/database"
	"github.com/example/lingobot/internal/excel"
	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/internal/srs"
)

// MenuButton represents a button in the menu
type MenuButton struct {
	Text         string
	CallbackData string
}

// createKeyboard creates a keyboard from menu buttons
func createKeyboard(buttons [][]MenuButton) tgbotapi.InlineKeyboardMarkup {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range buttons {
		var keyboardRow []tgbotapi.InlineKeyboardButton
		for _, button := range row {
			keyboardRow = append(keyboardRow, tgbotapi.NewInlineKeyboardButtonData(button.Text, button.CallbackData))
		}
		keyboard = append(keyboard, keyboardRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}

// Bot represents the Telegram bot application
type Bot struct {
	api                *tgbotapi.BotAPI
	learners           *database.LearnerRepository
	progress           *database.ProgressRepository
	words              *database.WordRepository
	importer           *excel.Importer
	sessions           map[int64]*session.Manager
	adminUserIDs       map[int64]bool
	awaitingFileUpload map[int64]string // chat id -> learning path for the upload
	config             *BotConfig
}

// New creates a new bot instance
func New(db *sqlx.DB) (*Bot, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %v", err)
	}

	words := database.NewWordRepository(db)
	bot := &Bot{
		api:                api,
		learners:           database.NewLearnerRepository(db),
		progress:           database.NewProgressRepository(db),
		words:              words,
		importer:           excel.NewImporter(words),
		sessions:           make(map[int64]*session.Manager),
		adminUserIDs:       make(map[int64]bool),
		awaitingFileUpload: make(map[int64]string),
		config:             DefaultConfig(),
	}

	adminIDs := os.Getenv("ADMIN_USER_IDS")
	if adminIDs != "" {
		for _, idStr := range strings.Split(adminIDs, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(idStr), 10, 64)
			if err != nil {
				log.Printf("Warning: Invalid admin user ID: %s", idStr)
				continue
			}
			bot.adminUserIDs[id] = true
		}
	}

	return bot, nil
}

// Start begins processing updates until the context is canceled.
func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the update loop.
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()
	return nil
}

// SendReminder implements the scheduler's Notifier: it pings a learner about
// words waiting for review.
func (b *Bot) SendReminder(chatID int64, dueCount int) error {
	text := fmt.Sprintf("📚 You have %d word(s) due for review. Send /review to start.", dueCount)
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}

// sessionFor returns the chat's schedule manager, creating one on first use.
func (b *Bot) sessionFor(chatID int64) *session.Manager {
	m, ok := b.sessions[chatID]
	if !ok {
		m = session.NewManager(b.progress, b.words, srs.New(), session.NewTracker())
		b.sessions[chatID] = m
	}
	return m
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", chatID, err)
	}
}
