// Package bot is the Telegram front end: menu-driven manual entry, receipt
// photos, reports and the lesson calendar prompts.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tyunth/finance-bot/internal/calendar"
	"github.com/tyunth/finance-bot/internal/categories"
	"github.com/tyunth/finance-bot/internal/dialogue"
	"github.com/tyunth/finance-bot/internal/finance"
	"github.com/tyunth/finance-bot/internal/learning"
	"github.com/tyunth/finance-bot/internal/receipt"
)

// Config holds the bot's runtime settings.
type Config struct {
	Token            string
	AdminID          int64
	DatabasePath     string
	CalendarID       string
	CalendarInterval time.Duration
	LessonPrice      float64
}

// reply is one outgoing chat message. Handlers build replies and the
// transport loop sends them, which keeps the handlers testable.
type reply struct {
	text     string
	markup   any
	markdown bool

	docName  string
	docBytes []byte
	docPath  string
}

func textReply(text string, markup any) reply {
	return reply{text: text, markup: markup}
}

func markdownReply(text string, markup any) reply {
	return reply{text: text, markup: markup, markdown: true}
}

func errorReply(err error) []reply {
	slog.Error("handler failed", "error", err)
	return []reply{textReply("Ошибка. Попробуйте еще раз.", nil)}
}

// Bot wires the Telegram transport to the ledger, the receipt pipeline and
// the lesson calendar.
type Bot struct {
	api      *tgbotapi.BotAPI
	db       finance.DB
	store    learning.Store
	parser   *receipt.Parser
	dialogue *dialogue.Controller
	cal      calendar.Service
	cfg      Config

	mu      sync.Mutex
	states  map[int64]*flowState
	lastRaw map[int64]string
}

// New creates a Bot. The calendar service may be nil when lesson tracking
// is not configured.
func New(api *tgbotapi.BotAPI, db finance.DB, store learning.Store, parser *receipt.Parser, cal calendar.Service, cfg Config) *Bot {
	if cfg.CalendarInterval <= 0 {
		cfg.CalendarInterval = 15 * time.Minute
	}
	return &Bot{
		api:      api,
		db:       db,
		store:    store,
		parser:   parser,
		dialogue: dialogue.NewController(db, store),
		cal:      cal,
		cfg:      cfg,
		states:   make(map[int64]*flowState),
		lastRaw:  make(map[int64]string),
	}
}

func (b *Bot) state(chatID int64) *flowState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[chatID]
}

func (b *Bot) setState(chatID int64, s *flowState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.states[chatID] = s
}

func (b *Bot) clearState(chatID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.states, chatID)
}

func (b *Bot) rememberRawText(chatID int64, rawText string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastRaw[chatID] = rawText
}

func (b *Bot) rawText(chatID int64) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastRaw[chatID]
}

// Run processes updates until the context is cancelled, polling the lesson
// calendar in between.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	ticker := time.NewTicker(b.cfg.CalendarInterval)
	defer ticker.Stop()

	slog.Info("bot running", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case <-ticker.C:
			b.checkCalendar(0)
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackUpdate(update.CallbackQuery)
	case update.Message != nil && len(update.Message.Photo) > 0:
		b.handlePhotoUpdate(update.Message)
	case update.Message != nil && update.Message.Text != "":
		msg := update.Message
		b.send(msg.Chat.ID, b.handleText(msg.Chat.ID, msg.From.ID, msg.Text))
	}
}

func (b *Bot) send(chatID int64, replies []reply) {
	for _, r := range replies {
		var c tgbotapi.Chattable
		switch {
		case r.docBytes != nil:
			c = tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: r.docName, Bytes: r.docBytes})
		case r.docPath != "":
			c = tgbotapi.NewDocument(chatID, tgbotapi.FilePath(r.docPath))
		default:
			msg := tgbotapi.NewMessage(chatID, r.text)
			if r.markup != nil {
				msg.ReplyMarkup = r.markup
			}
			if r.markdown {
				msg.ParseMode = tgbotapi.ModeMarkdown
			}
			c = msg
		}
		if _, err := b.api.Send(c); err != nil {
			slog.Error("sending message", "chat_id", chatID, "error", err)
		}
	}
}

// handleText routes one text message: cancellation first, then an active
// receipt dialogue, then commands and menu buttons, then the manual entry
// state machine.
func (b *Bot) handleText(chatID, userID int64, text string) []reply {
	text = strings.TrimSpace(text)

	if text == "Отмена" {
		b.clearState(chatID)
		b.dialogue.Cancel(chatID)
		return []reply{textReply("Отменено.", mainKeyboard())}
	}

	if b.dialogue.Active(chatID) && !strings.HasPrefix(text, "/") {
		return b.handleDialogueAnswer(chatID, text)
	}

	if replies, handled := b.handleCommand(chatID, userID, text); handled {
		return replies
	}
	return b.handleFlow(chatID, userID, text)
}

func (b *Bot) handleDialogueAnswer(chatID int64, text string) []reply {
	out, err := b.dialogue.HandleAnswer(chatID, text)
	if err != nil {
		return errorReply(err)
	}
	return b.renderOutcome(out)
}

// renderOutcome turns a dialogue step into chat messages.
func (b *Bot) renderOutcome(out dialogue.Outcome) []reply {
	var replies []reply
	if out.Learned != "" {
		replies = append(replies, textReply(out.Learned, nil))
	}
	if out.Retry {
		replies = append(replies, textReply("Выберите категорию из кнопок.", nil))
	}

	switch {
	case out.Prompt != nil:
		p := out.Prompt
		msg := fmt.Sprintf("*%s*\nТовар: *%s*\nЦена: %s\n\nКатегория?",
			EscapeMarkdown(p.ShopName), EscapeMarkdown(p.ItemName), FormatAmount(p.Price))
		replies = append(replies, markdownReply(msg, categoryKeyboard(categories.Expense, false)))
	case out.Summary != nil:
		replies = append(replies, b.renderSummary(out.Summary))
	}
	return replies
}

func (b *Bot) renderSummary(s *dialogue.Summary) reply {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Чек из %s* (%s)\n", EscapeMarkdown(s.ShopName), s.Date.Format("02.01.2006"))
	if s.Address != "" {
		fmt.Fprintf(&sb, "Адрес: %s\n", EscapeMarkdown(s.Address))
	}
	if s.TotalWarning != "" {
		fmt.Fprintf(&sb, "\n%s\n", s.TotalWarning)
	}
	sb.WriteString("\n")
	for _, booked := range s.Booked {
		fmt.Fprintf(&sb, "- %s: %s\n", booked.Category, FormatAmount(booked.Sum))
	}
	fmt.Fprintf(&sb, "\nБаланс: %s", FormatBalance(s.Balance))

	r := markdownReply(sb.String(), rawTextInlineKeyboard())
	return r
}

// handlePhotoUpdate downloads the largest photo rendition and runs it
// through the receipt pipeline.
func (b *Bot) handlePhotoUpdate(msg *tgbotapi.Message) {
	chatID, userID := msg.Chat.ID, msg.From.ID
	b.send(chatID, []reply{textReply("🔍 Анализирую чек...", nil)})

	photo := msg.Photo[len(msg.Photo)-1]
	url, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		slog.Error("resolving photo url", "error", err)
		b.send(chatID, []reply{textReply("Ошибка обработки фото.", nil)})
		return
	}

	imageData, err := download(url)
	if err != nil {
		slog.Error("downloading photo", "error", err)
		b.send(chatID, []reply{textReply("Ошибка обработки фото.", nil)})
		return
	}

	b.send(chatID, b.handlePhotoData(chatID, userID, imageData))
}

func download(url string) ([]byte, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// handlePhotoData parses receipt image bytes and starts the categorization
// dialogue.
func (b *Bot) handlePhotoData(chatID, userID int64, imageData []byte) []reply {
	parsed, err := b.parser.Parse(imageData, "image/jpeg")
	if err != nil {
		var notFound *receipt.SectionNotFoundError
		if errors.As(err, &notFound) {
			b.rememberRawText(chatID, notFound.RawText)
		}
		slog.Error("parsing receipt", "error", err)
		return []reply{{
			text:   "Товары не найдены или ошибка.",
			markup: rawTextInlineKeyboard(),
		}}
	}

	b.rememberRawText(chatID, parsed.RawText)
	if len(parsed.Items) == 0 {
		return []reply{{
			text:   "Товары не найдены или ошибка.",
			markup: rawTextInlineKeyboard(),
		}}
	}

	out, err := b.dialogue.Begin(chatID, userID, parsed)
	if err != nil {
		return errorReply(err)
	}
	return b.renderOutcome(out)
}
