package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tyunth/finance-bot/internal/finance"
)

func replyKeyboard(rows [][]string) tgbotapi.ReplyKeyboardMarkup {
	keyboard := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
		}
		keyboard = append(keyboard, buttons)
	}
	markup := tgbotapi.NewReplyKeyboard(keyboard...)
	markup.ResizeKeyboard = true
	return markup
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([][]string{
		{"Доход", "Расход", "Перевод"},
		{"Счета", "Отчеты", "Помощь"},
	})
}

func backKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([][]string{{"Назад"}})
}

func skipCommentKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return replyKeyboard([][]string{{"Пропустить"}, {"Назад"}})
}

// categoryKeyboard lays out a category vocabulary, optionally with a back
// row.
func categoryKeyboard(rows [][]string, withBack bool) tgbotapi.ReplyKeyboardMarkup {
	all := make([][]string, 0, len(rows)+1)
	all = append(all, rows...)
	if withBack {
		all = append(all, []string{"Назад"})
	}
	return replyKeyboard(all)
}

// accountKeyboard offers the user's accounts two per row, excluding one
// name (the transfer source when picking its target).
func accountKeyboard(accounts []finance.Account, exclude string, withBack bool) tgbotapi.ReplyKeyboardMarkup {
	names := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.Name != exclude {
			names = append(names, a.Name)
		}
	}

	rows := make([][]string, 0, len(names)/2+2)
	for i := 0; i < len(names); i += 2 {
		end := i + 2
		if end > len(names) {
			end = len(names)
		}
		rows = append(rows, names[i:end])
	}
	if withBack {
		rows = append(rows, []string{"Назад", "Отмена"})
	} else {
		rows = append(rows, []string{"Отмена"})
	}
	return replyKeyboard(rows)
}

func accountsInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Добавить Депозит", "btn_add_deposit"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Удалить Депозит", "btn_del_deposit"),
		),
	)
}

func rawTextInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Показать сырой текст (Debug)", "show_raw_ocr"),
		),
	)
}
