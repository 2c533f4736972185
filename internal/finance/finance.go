// Package finance is the transaction ledger: accounts, transactions, debts
// and receipt line items persisted in SQLite.
package finance

import "time"

// Transaction types.
const (
	TypeIncome   = "income"
	TypeExpense  = "expense"
	TypeTransfer = "transfer"
)

// MainAccount is the default account every user gets.
const MainAccount = "Основной"

// Transaction is one ledger entry. Transfers reference both accounts,
// income only the target, expenses only the source.
type Transaction struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Tag           string    `json:"tag"`
	Comment       string    `json:"comment"`
	Date          time.Time `json:"date"`
	SourceAccount string    `json:"source_account"`
	TargetAccount string    `json:"target_account"`
}

// Account is a money holder. Deposits additionally carry bank terms.
type Account struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"user_id"`
	Name      string  `json:"name"`
	IsDeposit bool    `json:"is_deposit"`
	Rate      float64 `json:"rate"`
	TermDate  string  `json:"term_date"`
	BankName  string  `json:"bank_name"`
}

// Debt is an unpaid tutoring lesson tracked from the calendar.
type Debt struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	StudentName string    `json:"student_name"`
	Subject     string    `json:"subject"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	EventID     string    `json:"event_id"`
	IsPaid      bool      `json:"is_paid"`
}

// ReceiptItem is one line of a parsed receipt, stored for reporting.
type ReceiptItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}
