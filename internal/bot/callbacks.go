package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tyunth/finance-bot/internal/calendar"
	"github.com/tyunth/finance-bot/internal/finance"
)

func (b *Bot) handleCallbackUpdate(cq *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		slog.Error("answering callback", "error", err)
	}
	if cq.Message == nil {
		return
	}

	chatID := cq.Message.Chat.ID
	edit, replies := b.handleCallback(chatID, cq.From.ID, cq.Message.Text, cq.Data)
	if edit != "" {
		msg := tgbotapi.NewEditMessageText(chatID, cq.Message.MessageID, edit)
		if _, err := b.api.Send(msg); err != nil {
			slog.Error("editing message", "error", err)
		}
	}
	b.send(chatID, replies)
}

// handleCallback serves inline button presses. It returns the replacement
// text for the pressed message (empty to leave it) plus follow-up replies.
func (b *Bot) handleCallback(chatID, userID int64, messageText, data string) (string, []reply) {
	switch {
	case data == "cancel_op":
		b.clearState(chatID)
		return "Отменено.", nil

	case data == "btn_add_deposit":
		b.setState(chatID, &flowState{step: stepDepositName})
		return "", []reply{textReply("Название депозита:", backKeyboard())}

	case data == "btn_del_deposit":
		return "", b.cmdDeleteDeposit(chatID, userID)

	case data == "show_raw_ocr":
		raw := b.rawText(chatID)
		if raw == "" {
			return "", []reply{textReply("Текст не сохранен.", nil)}
		}
		if len(raw) > 4000 {
			raw = raw[:4000]
		}
		return "", []reply{textReply(raw, nil)}

	case strings.HasPrefix(data, "cal_"):
		return b.handleCalendarCallback(userID, messageText, data)

	case strings.HasPrefix(data, "pay_debt_"):
		return b.handlePayDebt(userID, strings.TrimPrefix(data, "pay_debt_"))

	case strings.HasPrefix(data, "cancel_debt_"):
		return b.handleForgiveDebt(strings.TrimPrefix(data, "cancel_debt_"))
	}
	return "", nil
}

// handleCalendarCallback settles a finished lesson: paid books income, debt
// records the amount owed, deletion removes the phantom event.
func (b *Bot) handleCalendarCallback(userID int64, messageText, data string) (string, []reply) {
	parts := strings.SplitN(data, "_", 3)
	if len(parts) != 3 {
		return "", nil
	}
	action, eventID := parts[1], parts[2]

	if action == "del" {
		if b.cal == nil {
			return "", []reply{textReply("Календарь не настроен.", nil)}
		}
		if err := b.cal.DeleteEvent(eventID); err != nil {
			slog.Error("deleting calendar event", "event_id", eventID, "error", err)
			return "", []reply{textReply("Ошибка удаления.", nil)}
		}
		if err := b.db.MarkEventProcessed(eventID, "Deleted", "cancelled"); err != nil {
			return "", errorReply(err)
		}
		return "Событие удалено.", nil
	}

	summary := lessonSummaryFromMessage(messageText)
	student, subject := calendar.ParseLessonInfo(summary)

	switch action {
	case "paid":
		_, err := b.db.AddTransaction(finance.Transaction{
			UserID:        userID,
			Type:          finance.TypeIncome,
			Amount:        b.cfg.LessonPrice,
			Category:      "Репетиторство",
			Tag:           fmt.Sprintf("Ученик: %s", student),
			Comment:       fmt.Sprintf("%s (%s)", subject, summary),
			TargetAccount: finance.MainAccount,
		})
		if err != nil {
			return "", errorReply(err)
		}
		if err := b.db.MarkEventProcessed(eventID, summary, "paid"); err != nil {
			return "", errorReply(err)
		}
		return fmt.Sprintf("Оплачено: %s", summary), nil

	case "debt":
		if err := b.db.AddDebt(userID, student, subject, b.cfg.LessonPrice, eventID); err != nil {
			return "", errorReply(err)
		}
		if err := b.db.MarkEventProcessed(eventID, summary, "debt"); err != nil {
			return "", errorReply(err)
		}
		return fmt.Sprintf("В долги: %s", summary), nil
	}
	return "", nil
}

func (b *Bot) handlePayDebt(userID int64, arg string) (string, []reply) {
	debtID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "", nil
	}
	debt, err := b.db.Debt(debtID)
	if err != nil {
		return "", []reply{textReply("Не найдено.", nil)}
	}

	_, err = b.db.AddTransaction(finance.Transaction{
		UserID:        userID,
		Type:          finance.TypeIncome,
		Amount:        debt.Amount,
		Category:      "Репетиторство",
		Tag:           fmt.Sprintf("Ученик: %s", debt.StudentName),
		Comment:       fmt.Sprintf("Оплата долга (%s)", debt.Subject),
		TargetAccount: finance.MainAccount,
	})
	if err != nil {
		return "", errorReply(err)
	}
	if err := b.db.PayDebt(debtID); err != nil {
		return "", errorReply(err)
	}
	return fmt.Sprintf("Долг %s оплачен!", debt.StudentName), nil
}

func (b *Bot) handleForgiveDebt(arg string) (string, []reply) {
	debtID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return "", nil
	}
	if err := b.db.ForgiveDebt(debtID); err != nil {
		return "", errorReply(err)
	}
	return "Долг удален (прощен).", nil
}

// lessonSummaryFromMessage recovers the event summary from the prompt
// message the buttons were attached to.
func lessonSummaryFromMessage(messageText string) string {
	for _, line := range strings.Split(messageText, "\n") {
		if rest, ok := strings.CutPrefix(line, "Урок завершен:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return "Урок"
}

// checkCalendar polls the lesson calendar and prompts the admin about every
// new finished lesson. A non-zero chat id receives progress logs (/sync).
func (b *Bot) checkCalendar(logChatID int64) {
	if b.cal == nil || b.cfg.AdminID == 0 {
		if logChatID != 0 {
			b.send(logChatID, []reply{textReply("Календарь не настроен.", nil)})
		}
		return
	}

	log := func(msg string) {
		slog.Info(msg)
		if logChatID != 0 {
			b.send(logChatID, []reply{textReply("LOG: "+msg, nil)})
		}
	}

	lessons, err := b.cal.RecentLessons()
	if err != nil {
		log(fmt.Sprintf("Ошибка Google Calendar API: %v", err))
		return
	}
	log(fmt.Sprintf("Найдено уроков: %d", len(lessons)))

	for _, lesson := range lessons {
		processed, err := b.db.IsEventProcessed(lesson.EventID)
		if err != nil {
			slog.Error("checking processed event", "event_id", lesson.EventID, "error", err)
			continue
		}
		if processed {
			log(fmt.Sprintf("-- Событие %q уже было обработано.", lesson.Summary))
			continue
		}

		text := fmt.Sprintf("Урок завершен: %s\nСтудент: %s\nПредмет: %s\n\nЧто делаем?",
			lesson.Summary, lesson.StudentName, lesson.Subject)
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("Был, оплачен (+%s)", FormatAmount(b.cfg.LessonPrice)),
				"cal_paid_"+lesson.EventID,
			)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				"Был, не оплачен (Долг)", "cal_debt_"+lesson.EventID,
			)),
			tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
				"Не было (Удалить)", "cal_del_"+lesson.EventID,
			)),
		)
		b.send(b.cfg.AdminID, []reply{{text: text, markup: markup}})

		if err := b.db.MarkEventProcessed(lesson.EventID, lesson.Summary, "pending"); err != nil {
			slog.Error("marking event processed", "event_id", lesson.EventID, "error", err)
		}
	}
}
