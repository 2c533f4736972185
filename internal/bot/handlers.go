package bot

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tyunth/finance-bot/internal/categories"
	"github.com/tyunth/finance-bot/internal/finance"
)

const helpMessage = `Команды:
/show - Показать сырой текст последнего чека
/day 05.12 - Траты за дату
/latest 10 - Последние транзакции
/debts - Список долгов учеников
/add_deposit - Добавить депозит
/delete_deposit - Удалить депозит
/edit ID - Редактировать запись
/delete ID - Удалить запись
/sync - Проверить календарь вручную
/export - скачать базу данных`

var (
	dayCommandRe    = regexp.MustCompile(`(?i)^/?day\s+(.+)$`)
	latestCommandRe = regexp.MustCompile(`(?i)^/?latest(?:\s+(\d+))?$`)
	editCommandRe   = regexp.MustCompile(`(?i)^/?edit\s+(\d+)$`)
	deleteCommandRe = regexp.MustCompile(`(?i)^/?delete\s+(\d+)$`)
)

// handleCommand serves commands and menu buttons. The second return value
// is false when the text belongs to the manual entry state machine instead.
func (b *Bot) handleCommand(chatID, userID int64, text string) ([]reply, bool) {
	switch text {
	case "/start":
		return b.cmdStart(chatID, userID), true
	case "Помощь", "/help":
		return []reply{textReply(helpMessage, mainKeyboard())}, true
	case "/sync":
		go b.checkCalendar(chatID)
		return []reply{textReply("Проверяю календарь...", nil)}, true
	case "/show":
		return b.cmdShow(chatID), true
	case "/export":
		return []reply{{docPath: b.cfg.DatabasePath}}, true
	case "/debts":
		return b.cmdDebts(userID), true
	case "/add_deposit":
		b.setState(chatID, &flowState{step: stepDepositName})
		return []reply{textReply("Название депозита:", backKeyboard())}, true
	case "/delete_deposit", "delete_deposit":
		return b.cmdDeleteDeposit(chatID, userID), true
	case "Счета":
		return b.cmdAccounts(userID), true
	case "Отчеты":
		return b.cmdMonthReport(userID), true
	case "Доход":
		b.setState(chatID, &flowState{flow: flowIncome, step: stepCategory})
		return []reply{textReply("Категория дохода:", categoryKeyboard(categories.Income, true))}, true
	case "Расход":
		b.setState(chatID, &flowState{flow: flowExpense, step: stepExpenseAmount})
		return []reply{textReply("Сумма расхода:", backKeyboard())}, true
	case "Перевод":
		return b.cmdTransfer(chatID, userID), true
	}

	if m := dayCommandRe.FindStringSubmatch(text); m != nil {
		return b.cmdDay(userID, m[1]), true
	}
	if m := latestCommandRe.FindStringSubmatch(text); m != nil {
		return b.cmdLatest(userID, m[1]), true
	}
	if m := editCommandRe.FindStringSubmatch(text); m != nil {
		return b.cmdEdit(chatID, userID, m[1]), true
	}
	if m := deleteCommandRe.FindStringSubmatch(text); m != nil {
		return b.cmdDelete(userID, m[1]), true
	}
	return nil, false
}

func (b *Bot) cmdStart(chatID, userID int64) []reply {
	b.clearState(chatID)
	if err := b.db.EnsureMainAccount(userID); err != nil {
		return errorReply(err)
	}

	balances, _, err := b.db.Balances(userID)
	if err != nil {
		return errorReply(err)
	}

	names := make([]string, 0, len(balances))
	for name := range balances {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Привет! Бот в строю.\n\nБалансы:")
	for _, name := range names {
		if name == finance.MainAccount || balances[name].IsPositive() {
			fmt.Fprintf(&sb, "\n%s: %s", name, FormatBalance(balances[name]))
		}
	}

	go b.checkCalendar(0)
	return []reply{textReply(sb.String(), mainKeyboard())}
}

func (b *Bot) cmdShow(chatID int64) []reply {
	raw := b.rawText(chatID)
	if raw == "" {
		return []reply{textReply("Нет сохраненного текста чека. Отправьте фото сначала.", nil)}
	}
	if len(raw) > 4000 {
		return []reply{{docName: "receipt.txt", docBytes: []byte(raw)}}
	}
	return []reply{textReply(raw, nil)}
}

func (b *Bot) cmdDay(userID int64, arg string) []reply {
	day, ok := ParseDayDate(arg, time.Now())
	if !ok {
		return []reply{textReply("Неверный формат. Пример: day 05.12", nil)}
	}
	transactions, err := b.db.TransactionsForDay(userID, day)
	if err != nil {
		return errorReply(err)
	}
	if len(transactions) == 0 {
		return []reply{textReply(fmt.Sprintf("Нет операций за %s.", day), nil)}
	}

	rows := make([]string, 0, len(transactions))
	for _, t := range transactions {
		rows = append(rows, FormatTransactionRow(t))
	}
	return []reply{textReply(
		fmt.Sprintf("Операции за %s:\n\n%s", day, strings.Join(rows, "\n\n")), nil,
	)}
}

func (b *Bot) cmdLatest(userID int64, arg string) []reply {
	limit := 10
	if arg != "" {
		if n, err := strconv.Atoi(arg); err == nil && n > 0 {
			limit = n
		}
	}
	transactions, err := b.db.LatestTransactions(userID, limit)
	if err != nil {
		return errorReply(err)
	}
	if len(transactions) == 0 {
		return []reply{textReply("Нет записей.", nil)}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "*Последние %d:*\n", limit)
	for _, t := range transactions {
		fmt.Fprintf(&sb, "```\n%s\n```\n", FormatTransactionRow(t))
	}
	return []reply{markdownReply(sb.String(), nil)}
}

func (b *Bot) cmdEdit(chatID, userID int64, arg string) []reply {
	txID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return []reply{textReply("Укажите ID: edit 123", nil)}
	}
	t, err := b.db.Transaction(txID, userID)
	if err != nil {
		return []reply{textReply("Не найдено.", nil)}
	}

	b.setState(chatID, &flowState{
		step:          stepEditAmount,
		txID:          txID,
		editIsExpense: t.Type != finance.TypeIncome,
		amount:        t.Amount,
		comment:       t.Comment,
	})
	return []reply{textReply(
		fmt.Sprintf("Редактирование ID %d.\nВведите новую сумму (или 0 чтобы оставить %s):",
			txID, FormatAmount(t.Amount)),
		backKeyboard(),
	)}
}

func (b *Bot) cmdDelete(userID int64, arg string) []reply {
	txID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return []reply{textReply("Укажите ID: delete 123", nil)}
	}
	if err := b.db.DeleteTransaction(txID, userID); err != nil {
		return errorReply(err)
	}
	return []reply{textReply(fmt.Sprintf("Запись %d удалена.", txID), nil)}
}

func (b *Bot) cmdDebts(userID int64) []reply {
	debts, err := b.db.Debts(userID)
	if err != nil {
		return errorReply(err)
	}
	if len(debts) == 0 {
		return []reply{textReply("Долгов нет.", mainKeyboard())}
	}

	var sb strings.Builder
	sb.WriteString("*Неоплаченные уроки:*\n")
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(debts))
	for _, d := range debts {
		fmt.Fprintf(&sb, "\n- %s (%s): %s от %s",
			d.StudentName, d.Subject, FormatAmount(d.Amount), d.Date.Format("2006-01-02"))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Оплатить", fmt.Sprintf("pay_debt_%d", d.ID)),
			tgbotapi.NewInlineKeyboardButtonData("Простить", fmt.Sprintf("cancel_debt_%d", d.ID)),
		))
	}
	return []reply{markdownReply(sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))}
}

func (b *Bot) cmdDeleteDeposit(chatID, userID int64) []reply {
	deposits, err := b.db.ListDeposits(userID)
	if err != nil {
		return errorReply(err)
	}
	if len(deposits) == 0 {
		return []reply{textReply("Нет депозитов.", mainKeyboard())}
	}

	b.setState(chatID, &flowState{step: stepDepositDeletion})
	rows := make([][]string, 0, len(deposits)+1)
	for _, d := range deposits {
		rows = append(rows, []string{d.Name})
	}
	rows = append(rows, []string{"Отмена"})
	return []reply{textReply("Выберите депозит для удаления:", replyKeyboard(rows))}
}

func (b *Bot) cmdAccounts(userID int64) []reply {
	balances, accounts, err := b.db.Balances(userID)
	if err != nil {
		return errorReply(err)
	}

	var sb strings.Builder
	sb.WriteString("Ваши счета:")
	for _, acc := range accounts {
		fmt.Fprintf(&sb, "\n\n%s: %s", acc.Name, FormatBalance(balances[acc.Name]))
		if acc.IsDeposit {
			bank, term := acc.BankName, acc.TermDate
			if bank == "" {
				bank = "-"
			}
			if term == "" {
				term = "-"
			}
			fmt.Fprintf(&sb, "\nБанк: %s\nСтавка: %g%%, до %s", bank, acc.Rate, term)
		}
	}
	return []reply{textReply(sb.String(), accountsInlineKeyboard())}
}

func (b *Bot) cmdMonthReport(userID int64) []reply {
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	income, expense, err := b.db.PeriodStats(userID, monthStart)
	if err != nil {
		return errorReply(err)
	}
	stats, err := b.db.CategoryStats(userID, monthStart)
	if err != nil {
		return errorReply(err)
	}

	type catSum struct {
		category string
		amount   float64
	}
	sums := make([]catSum, 0, len(stats))
	for category, amount := range stats {
		sums = append(sums, catSum{category, amount.InexactFloat64()})
	}
	sort.Slice(sums, func(i, j int) bool { return sums[i].amount > sums[j].amount })

	var sb strings.Builder
	fmt.Fprintf(&sb, "Отчет за текущий месяц:\n\nДоход: %s\nРасход: %s\nИтого: %s\n\nПо категориям:",
		FormatBalance(income), FormatBalance(expense), FormatBalance(income.Sub(expense)))
	for _, s := range sums {
		fmt.Fprintf(&sb, "\n%s: %s", s.category, FormatAmount(s.amount))
	}
	return []reply{textReply(sb.String(), nil)}
}

func (b *Bot) cmdTransfer(chatID, userID int64) []reply {
	_, accounts, err := b.db.Balances(userID)
	if err != nil {
		return errorReply(err)
	}
	b.setState(chatID, &flowState{step: stepTransferSource})
	return []reply{textReply("С какого счета переводим?", accountKeyboard(accounts, "", false))}
}
