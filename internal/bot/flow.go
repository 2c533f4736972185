package bot

import (
	"fmt"
	"strings"

	"github.com/tyunth/finance-bot/internal/categories"
	"github.com/tyunth/finance-bot/internal/finance"
)

type step int

const (
	stepNone step = iota
	stepExpenseAmount
	stepExpenseComment
	stepCategory
	stepIncomeAmount
	stepIncomeComment
	stepTransferSource
	stepTransferTarget
	stepTransferAmount
	stepEditAmount
	stepEditComment
	stepEditCategory
	stepDepositName
	stepDepositBank
	stepDepositRate
	stepDepositTerm
	stepDepositDeletion
)

const (
	flowIncome  = "income"
	flowExpense = "expense"
)

// flowState is one chat's position in a manual entry conversation.
type flowState struct {
	flow string
	step step

	amount   float64
	comment  string
	category string

	txID          int64
	editIsExpense bool

	sourceAccount string
	targetAccount string

	depositName string
	depositBank string
	depositRate float64
}

// handleFlow advances the chat's manual entry conversation by one message.
func (b *Bot) handleFlow(chatID, userID int64, text string) []reply {
	state := b.state(chatID)
	if state == nil || state.step == stepNone {
		return []reply{textReply("Используйте меню.", mainKeyboard())}
	}
	if text == "Назад" {
		b.clearState(chatID)
		return []reply{textReply("В меню.", mainKeyboard())}
	}

	switch state.step {
	case stepDepositDeletion:
		return b.flowDepositDeletion(chatID, userID, state, text)
	case stepDepositName:
		state.depositName = text
		state.step = stepDepositBank
		return []reply{textReply("Название банка:", backKeyboard())}
	case stepDepositBank:
		state.depositBank = text
		state.step = stepDepositRate
		return []reply{textReply("Процентная ставка:", backKeyboard())}
	case stepDepositRate:
		rate, ok := ParseAmount(text)
		if !ok {
			return []reply{textReply("Число.", nil)}
		}
		state.depositRate = rate
		state.step = stepDepositTerm
		return []reply{textReply("Срок (31.12.2025):", backKeyboard())}
	case stepDepositTerm:
		if err := b.db.AddDeposit(userID, state.depositName, state.depositRate, text, state.depositBank); err != nil {
			return []reply{textReply("Имя занято.", nil)}
		}
		b.clearState(chatID)
		return []reply{textReply("Депозит создан.", mainKeyboard())}

	case stepTransferSource:
		if _, err := b.db.Account(userID, text); err != nil {
			return []reply{textReply("Выберите счет из меню.", nil)}
		}
		state.sourceAccount = text
		state.step = stepTransferTarget
		_, accounts, err := b.db.Balances(userID)
		if err != nil {
			return errorReply(err)
		}
		return []reply{textReply(
			fmt.Sprintf("Списано с: %s. Куда?", text),
			accountKeyboard(accounts, text, true),
		)}
	case stepTransferTarget:
		if _, err := b.db.Account(userID, text); err != nil {
			return []reply{textReply("Выберите счет из меню.", nil)}
		}
		state.targetAccount = text
		state.step = stepTransferAmount
		return []reply{textReply(
			fmt.Sprintf("Перевод: %s -> %s. Сумма:", state.sourceAccount, state.targetAccount),
			backKeyboard(),
		)}
	case stepTransferAmount:
		amount, ok := ParseAmount(text)
		if !ok {
			return []reply{textReply("Введите число.", nil)}
		}
		_, err := b.db.AddTransaction(finance.Transaction{
			UserID:        userID,
			Type:          finance.TypeTransfer,
			Amount:        amount,
			Category:      "Перевод",
			Tag:           "Перевод",
			Comment:       "Перевод",
			SourceAccount: state.sourceAccount,
			TargetAccount: state.targetAccount,
		})
		if err != nil {
			return errorReply(err)
		}
		b.clearState(chatID)
		return []reply{textReply("Перевод выполнен.", mainKeyboard())}

	case stepExpenseAmount:
		amount, ok := ParseAmount(text)
		if !ok {
			return []reply{textReply("Число.", nil)}
		}
		state.amount = amount
		state.step = stepExpenseComment
		return []reply{textReply("Комментарий:", skipCommentKeyboard())}
	case stepExpenseComment:
		return b.flowExpenseComment(chatID, userID, state, text)

	case stepIncomeAmount:
		amount, ok := ParseAmount(text)
		if !ok {
			return []reply{textReply("Число.", nil)}
		}
		state.amount = amount
		state.step = stepIncomeComment
		return []reply{textReply("Комментарий:", skipCommentKeyboard())}
	case stepIncomeComment:
		if text != "Пропустить" {
			state.comment = text
		}
		_, err := b.db.AddTransaction(finance.Transaction{
			UserID:        userID,
			Type:          finance.TypeIncome,
			Amount:        state.amount,
			Category:      state.category,
			Tag:           "Доход",
			Comment:       state.comment,
			TargetAccount: finance.MainAccount,
		})
		if err != nil {
			return errorReply(err)
		}
		b.clearState(chatID)
		return b.balanceReply(userID, "Доход записан.")

	case stepCategory:
		return b.flowCategory(chatID, userID, state, text)

	case stepEditAmount:
		amount, ok := ParseAmount(text)
		if !ok && text != "0" {
			return []reply{textReply("Число или 0.", nil)}
		}
		if ok {
			state.amount = amount
		}
		state.step = stepEditComment
		return []reply{textReply("Новый комментарий:", skipCommentKeyboard())}
	case stepEditComment:
		if text != "Пропустить" {
			state.comment = text
		}
		state.step = stepEditCategory
		vocabulary := categories.Income
		if state.editIsExpense {
			vocabulary = categories.Expense
		}
		return []reply{textReply("Новая категория:", categoryKeyboard(vocabulary, false))}
	case stepEditCategory:
		category := categories.CategoryName(strings.SplitN(text, " (", 2)[0])
		tag := "Доход"
		if state.editIsExpense {
			tag = categories.Tag(category)
		}
		if _, err := b.db.UpdateTransaction(state.txID, state.amount, state.comment, category, tag); err != nil {
			return errorReply(err)
		}
		b.clearState(chatID)
		return []reply{textReply("Обновлено!", mainKeyboard())}
	}

	return []reply{textReply("Не понял.", mainKeyboard())}
}

// flowExpenseComment stores the comment and either books the expense right
// away (when the comment keyword was learned before) or asks for a
// category.
func (b *Bot) flowExpenseComment(chatID, userID int64, state *flowState, text string) []reply {
	if text != "Пропустить" {
		state.comment = text
	}

	if category, ok := b.store.CommentCategory(state.comment); ok {
		_, err := b.db.AddTransaction(finance.Transaction{
			UserID:        userID,
			Type:          finance.TypeExpense,
			Amount:        state.amount,
			Category:      category,
			Tag:           categories.Tag(category),
			Comment:       state.comment,
			SourceAccount: finance.MainAccount,
		})
		if err != nil {
			return errorReply(err)
		}
		b.clearState(chatID)
		return b.balanceReply(userID,
			fmt.Sprintf("🧠 Узнал %q! Записал в %q.", EscapeMarkdown(state.comment), category))
	}

	state.step = stepCategory
	return []reply{textReply("Категория:", categoryKeyboard(categories.Expense, true))}
}

// flowCategory finishes an income or expense entry once a category is
// picked from the keyboard.
func (b *Bot) flowCategory(chatID, userID int64, state *flowState, text string) []reply {
	label := strings.TrimSpace(strings.SplitN(text, " (", 2)[0])
	if !categories.IsExpense(label) && !isIncomeCategory(text) {
		return []reply{textReply("Выберите категорию кнопкой.", nil)}
	}
	category := categories.CategoryName(text)
	state.category = category

	if state.flow == flowIncome {
		if amount, ok := categories.FixedIncomeAmount(text); ok {
			_, err := b.db.AddTransaction(finance.Transaction{
				UserID:        userID,
				Type:          finance.TypeIncome,
				Amount:        amount,
				Category:      category,
				Tag:           "Фиксированный",
				Comment:       "Авто",
				TargetAccount: finance.MainAccount,
			})
			if err != nil {
				return errorReply(err)
			}
			b.clearState(chatID)
			return b.balanceReply(userID, "Зачислено.")
		}

		state.step = stepIncomeAmount
		return []reply{textReply("Сумма:", backKeyboard())}
	}

	if state.comment != "" {
		if err := b.store.LearnComment(state.comment, category); err != nil {
			return errorReply(err)
		}
	}
	_, err := b.db.AddTransaction(finance.Transaction{
		UserID:        userID,
		Type:          finance.TypeExpense,
		Amount:        state.amount,
		Category:      category,
		Tag:           categories.Tag(category),
		Comment:       state.comment,
		SourceAccount: finance.MainAccount,
	})
	if err != nil {
		return errorReply(err)
	}
	b.clearState(chatID)
	return []reply{textReply(fmt.Sprintf("Расход записан: %s", category), mainKeyboard())}
}

func (b *Bot) flowDepositDeletion(chatID, userID int64, state *flowState, text string) []reply {
	if err := b.db.DeleteDeposit(userID, text); err != nil {
		return []reply{textReply("Такой депозит не найден.", nil)}
	}
	b.clearState(chatID)
	return []reply{textReply(fmt.Sprintf("Депозит %q удален.", text), mainKeyboard())}
}

// balanceReply appends the main account balance to a confirmation.
func (b *Bot) balanceReply(userID int64, prefix string) []reply {
	balances, _, err := b.db.Balances(userID)
	if err != nil {
		return errorReply(err)
	}
	return []reply{textReply(
		fmt.Sprintf("%s\nБаланс: %s", prefix, FormatBalance(balances[finance.MainAccount])),
		mainKeyboard(),
	)}
}

func isIncomeCategory(label string) bool {
	base := categories.CategoryName(label)
	for _, row := range categories.Income {
		for _, c := range row {
			if categories.CategoryName(c) == base || c == label {
				return true
			}
		}
	}
	return false
}
