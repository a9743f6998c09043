package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/lingobot/internal/excel"
	"github.com/example/lingobot/internal/session"
	"github.com/example/lingobot/pkg/models"
)

// handleUpdate routes one incoming update.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	if !msg.IsCommand() {
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "path":
		b.handlePath(ctx, msg)
	case "target":
		b.handleTarget(ctx, msg)
	case "review":
		b.handleReview(ctx, msg)
	case "stats":
		b.handleStats(ctx, msg)
	case "export":
		b.handleExport(ctx, msg)
	case "import":
		b.handleImport(ctx, msg)
	case "help":
		b.handleHelp(chatID)
	default:
		b.send(chatID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) handleHelp(chatID int64) {
	b.send(chatID, strings.Join([]string{
		"/review — start today's review session",
		"/stats — your progress for the current path",
		"/path xx-xx — set your learning path (e.g. en-de)",
		"/target N — set cards per day",
		"/export — download your progress as JSON",
		"/import xx-xx — upload a vocabulary file (admins)",
	}, "\n"))
}

// handleStart registers the learner on first contact.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		log.Printf("Error loading learner %d: %v", chatID, err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}
	if learner != nil {
		b.send(chatID, fmt.Sprintf("Welcome back, %s! Your path is <b>%s</b>. Send /review to practice.",
			learner.FirstName, learner.LearningPath))
		return
	}

	learner = &models.Learner{
		ChatID:              chatID,
		Username:            msg.From.UserName,
		FirstName:           msg.From.FirstName,
		LearningPath:        b.config.DefaultLearningPath,
		DailyTarget:         b.config.DefaultDailyTarget,
		NotificationHour:    9,
		NotificationEnabled: true,
		IsAdmin:             b.adminUserIDs[msg.From.ID],
	}
	if err := b.learners.Create(ctx, learner); err != nil {
		log.Printf("Error creating learner %d: %v", chatID, err)
		b.send(chatID, "Something went wrong, please try again.")
		return
	}

	b.send(chatID, fmt.Sprintf(
		"Hi %s! I'll help you learn vocabulary with spaced repetition.\n"+
			"Your learning path is <b>%s</b> (change it with /path).\n"+
			"Send /review to start your first session.",
		learner.FirstName, learner.LearningPath))
}

func (b *Bot) handlePath(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	path := strings.TrimSpace(msg.CommandArguments())
	if !models.ValidLearningPath(path) {
		b.send(chatID, "Usage: /path xx-xx, e.g. <b>/path en-de</b>")
		return
	}

	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}
	learner.LearningPath = path
	if err := b.learners.Update(ctx, learner); err != nil {
		log.Printf("Error updating learner %d: %v", chatID, err)
		b.send(chatID, "Could not save your path, please try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("Learning path set to <b>%s</b>.", path))
}

func (b *Bot) handleTarget(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	target, err := strconv.Atoi(strings.TrimSpace(msg.CommandArguments()))
	if err != nil || target < 1 || target > 200 {
		b.send(chatID, "Usage: /target N (1-200)")
		return
	}

	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}
	learner.DailyTarget = target
	if err := b.learners.Update(ctx, learner); err != nil {
		log.Printf("Error updating learner %d: %v", chatID, err)
		b.send(chatID, "Could not save your target, please try again.")
		return
	}
	b.send(chatID, fmt.Sprintf("Daily target set to <b>%d</b> cards.", target))
}

// handleReview starts (or restarts) a review session for the chat.
func (b *Bot) handleReview(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}

	manager := b.sessionFor(chatID)
	info, err := manager.StartSession(ctx, learner.LearningPath, learner.DailyTarget)
	if err != nil {
		log.Printf("Error starting session for chat %d: %v", chatID, err)
		b.send(chatID, "Could not start a session, please try again.")
		return
	}
	if info.RemainingCards == 0 {
		b.send(chatID, "Nothing to review today — your vocabulary is empty or everything is scheduled for later. 🎉")
		return
	}

	b.send(chatID, fmt.Sprintf("Session started: <b>%d</b> card(s). Answer honestly — wrong cards come back until you get them right.", info.TotalCards))
	b.sendCurrentCard(chatID, manager)
}

// sendCurrentCard shows the head of the queue and starts its timer.
func (b *Bot) sendCurrentCard(chatID int64, manager *session.Manager) {
	card := manager.NextCard()
	if card == nil {
		b.finishSession(chatID, manager)
		return
	}

	manager.Tracker().StartCardTimer(card.WordID)

	header := fmt.Sprintf("%d card(s) left", manager.RemainingCards())
	if card.IsNew {
		header += " · new word"
	}

	term := card.WordID
	if card.Word != nil {
		term = card.Word.Term
	}

	keyboard := createKeyboard([][]MenuButton{
		{{Text: "Show answer", CallbackData: "reveal:" + card.WordID}},
	})
	b.sendWithKeyboard(chatID, fmt.Sprintf("%s\n\n<b>%s</b>", header, term), keyboard)
}

// handleCallback processes answer-flow button presses.
func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID

	// Acknowledge so the button stops spinning
	if _, err := b.api.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Printf("Error acking callback: %v", err)
	}

	parts := strings.SplitN(query.Data, ":", 3)
	switch parts[0] {
	case "reveal":
		if len(parts) < 2 {
			return
		}
		b.revealCard(ctx, chatID, query.Message.MessageID, parts[1])
	case "answer":
		if len(parts) < 3 {
			return
		}
		b.answerCard(ctx, chatID, parts[1], parts[2] == "1")
	}
}

// revealCard edits the card message to show the translation plus answer buttons.
func (b *Bot) revealCard(ctx context.Context, chatID int64, messageID int, wordID string) {
	word, err := b.words.GetByID(ctx, wordID)
	text := "<i>(word no longer in vocabulary)</i>"
	if err == nil {
		text = fmt.Sprintf("<b>%s</b>\n%s", word.Term, word.Translation)
		if word.Example != "" {
			text += fmt.Sprintf("\n\n<i>%s</i>", word.Example)
		}
	}

	keyboard := createKeyboard([][]MenuButton{{
		{Text: "✅ I knew it", CallbackData: "answer:" + wordID + ":1"},
		{Text: "❌ I didn't", CallbackData: "answer:" + wordID + ":0"},
	}})
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, keyboard)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("Error editing message for chat %d: %v", chatID, err)
	}
}

// answerCard records the outcome and advances the session.
func (b *Bot) answerCard(ctx context.Context, chatID int64, wordID string, wasCorrect bool) {
	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}
	manager := b.sessionFor(chatID)

	elapsed := manager.Tracker().EndCardTimer(wordID)
	result, err := manager.CompleteCard(ctx, wordID, wasCorrect, elapsed, learner.LearningPath)
	if err != nil {
		if errors.Is(err, session.ErrNoActiveSession) {
			b.send(chatID, "No active session. Send /review to start one.")
			return
		}
		// Persistence failures keep the card at the head; the learner retries.
		log.Printf("Error completing card %s for chat %d: %v", wordID, chatID, err)
		b.send(chatID, "Could not save your answer — the same card will be shown again.")
		b.sendCurrentCard(chatID, manager)
		return
	}

	if result.IsSessionComplete {
		b.finishSession(chatID, manager)
		return
	}
	if !wasCorrect {
		b.send(chatID, "No worries — this card will come back later in the session.")
	}
	b.sendCurrentCard(chatID, manager)
}

// finishSession sends the summary and resets the tracker.
func (b *Bot) finishSession(chatID int64, manager *session.Manager) {
	summary := manager.Tracker().EndSession(true)
	b.send(chatID, fmt.Sprintf(
		"🎉 Session complete!\n\nCards: %d\nAnswers: %d (%d correct)\nSuccess rate: %d%%\nTime: %s",
		summary.TotalCards, summary.CardsReviewed, summary.CorrectCount,
		summary.SuccessRate, summary.Elapsed))
}

// handleStats reports durable progress for the learner's path.
func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}

	total, err := b.words.CountByPath(ctx, learner.LearningPath)
	if err != nil {
		log.Printf("Error counting words for chat %d: %v", chatID, err)
		b.send(chatID, "Could not load statistics.")
		return
	}
	due, err := b.progress.CountDue(ctx, learner.LearningPath, msg.Time())
	if err != nil {
		log.Printf("Error counting due words for chat %d: %v", chatID, err)
		b.send(chatID, "Could not load statistics.")
		return
	}
	buckets, err := b.progress.BucketCounts(ctx, learner.LearningPath)
	if err != nil {
		log.Printf("Error counting buckets for chat %d: %v", chatID, err)
		b.send(chatID, "Could not load statistics.")
		return
	}

	started := 0
	lines := []string{
		fmt.Sprintf("📊 <b>%s</b>", learner.LearningPath),
		fmt.Sprintf("Vocabulary: %d words", total),
		fmt.Sprintf("Due now: %d", due),
		"",
	}
	for level := 0; level <= models.MaxBucket; level++ {
		count := buckets[level]
		started += count
		lines = append(lines, fmt.Sprintf("Bucket %d: %d", level, count))
	}
	lines = append(lines, "", fmt.Sprintf("Words started: %d of %d", started, total))
	b.send(chatID, strings.Join(lines, "\n"))
}

// handleExport sends the learner's progress records as a JSON document.
func (b *Bot) handleExport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	learner, err := b.learners.GetByChatID(ctx, chatID)
	if err != nil {
		b.send(chatID, "Send /start first.")
		return
	}

	var buf strings.Builder
	if err := b.progress.ExportProgress(ctx, learner.LearningPath, &buf); err != nil {
		log.Printf("Error exporting progress for chat %d: %v", chatID, err)
		b.send(chatID, "Could not export your progress.")
		return
	}

	name := fmt.Sprintf("progress-%s.json", learner.LearningPath)
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: []byte(buf.String())})
	if _, err := b.api.Send(doc); err != nil {
		log.Printf("Error sending export to chat %d: %v", chatID, err)
	}
}

// handleImport arms the next document upload for a vocabulary import.
func (b *Bot) handleImport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if !b.adminUserIDs[msg.From.ID] {
		b.send(chatID, "Only admins can import vocabulary.")
		return
	}
	path := strings.TrimSpace(msg.CommandArguments())
	if !models.ValidLearningPath(path) {
		b.send(chatID, "Usage: /import xx-xx, then upload an .xlsx or .csv file.")
		return
	}
	b.awaitingFileUpload[chatID] = path
	b.send(chatID, fmt.Sprintf("Upload a vocabulary file for <b>%s</b> (columns: term, translation, example, frequency rank).", path))
}

// handleDocument runs a pending vocabulary import.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	path, pending := b.awaitingFileUpload[chatID]
	if !pending {
		return
	}
	delete(b.awaitingFileUpload, chatID)

	localPath, err := b.downloadDocument(msg.Document)
	if err != nil {
		log.Printf("Error downloading document from chat %d: %v", chatID, err)
		b.send(chatID, "Could not download the file.")
		return
	}
	defer os.Remove(localPath)

	config := excel.DefaultImportConfig()
	config.FilePath = localPath
	config.LearningPath = path

	result, err := b.importer.ImportWords(ctx, config)
	if err != nil {
		log.Printf("Error importing words for chat %d: %v", chatID, err)
		b.send(chatID, fmt.Sprintf("Import failed: %v", err))
		return
	}

	text := fmt.Sprintf("Import finished: %d processed, %d created, %d updated, %d skipped.",
		result.TotalProcessed, result.Created, result.Updated, result.Skipped)
	if len(result.Errors) > 0 {
		limit := len(result.Errors)
		if limit > 5 {
			limit = 5
		}
		text += "\n\nErrors:\n" + strings.Join(result.Errors[:limit], "\n")
	}
	b.send(chatID, text)
}

// downloadDocument fetches a Telegram file into a temp file and returns its path.
func (b *Bot) downloadDocument(doc *tgbotapi.Document) (string, error) {
	url, err := b.api.GetFileDirectURL(doc.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve file URL: %v", err)
	}

	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download file: %v", err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp("", "import-*"+filepath.Ext(doc.FileName))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %v", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save file: %v", err)
	}
	return tmp.Name(), nil
}
