package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tyunth/finance-bot/internal/categories"
	"github.com/tyunth/finance-bot/internal/finance"
)

// FormatAmount renders an amount with space-grouped thousands and the
// currency symbol, e.g. "96 600 T".
func FormatAmount(amount float64) string {
	s := strconv.FormatFloat(amount, 'f', 0, 64)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}

	var grouped strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	out := grouped.String()
	if negative {
		out = "-" + out
	}
	return out + " " + categories.Currency
}

// FormatBalance renders a decimal balance.
func FormatBalance(d decimal.Decimal) string {
	return FormatAmount(d.InexactFloat64())
}

// ParseAmount reads a positive amount from free text, tolerating currency
// symbols and a decimal comma.
func ParseAmount(text string) (float64, bool) {
	var cleaned strings.Builder
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9', r == '.':
			cleaned.WriteRune(r)
		case r == ',':
			cleaned.WriteByte('.')
		}
	}
	amount, err := strconv.ParseFloat(cleaned.String(), 64)
	if err != nil || amount <= 0 {
		return 0, false
	}
	return amount, true
}

// ParseDayDate reads "DD.MM" or "DD.MM.YYYY" (two-digit years allowed) and
// returns the "2006-01-02" day key, defaulting to the current year.
func ParseDayDate(text string, now time.Time) (string, bool) {
	parts := strings.Split(strings.TrimSpace(text), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", false
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", false
	}
	year := now.Year()
	if len(parts) == 3 {
		year, err = strconv.Atoi(parts[2])
		if err != nil {
			return "", false
		}
		if year < 100 {
			year += 2000
		}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

// EscapeMarkdown strips the markdown control characters Telegram chokes on.
func EscapeMarkdown(text string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '*', '_', '`', '[', ']', '(', ')':
			return -1
		}
		return r
	}, text)
}

// FormatTransactionRow renders one ledger entry for chat output.
func FormatTransactionRow(t finance.Transaction) string {
	var dir string
	switch t.Type {
	case finance.TypeIncome:
		dir = "ДОХОД"
	case finance.TypeExpense:
		dir = "РАСХОД"
	default:
		dir = "ПЕРЕВОД"
	}

	category, comment := t.Category, t.Comment
	if category == "" {
		category = "-"
	}
	if comment == "" {
		comment = "-"
	}
	return fmt.Sprintf("ID: %d | %s %s\nКат: %s | Комм: %s\nДата: %s",
		t.ID, dir, FormatAmount(t.Amount), category, comment, t.Date.Format("02.01.2006"))
}
