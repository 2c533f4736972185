package finance

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// DB defines the interface for ledger operations
type DB interface {
	// EnsureMainAccount creates the default account if it does not exist
	EnsureMainAccount(userID int64) error

	// AddTransaction inserts a transaction and returns its id
	AddTransaction(t Transaction) (int64, error)

	// Transaction retrieves one transaction owned by the user
	Transaction(id, userID int64) (*Transaction, error)

	// TransactionsForDay returns the user's transactions on a calendar day
	TransactionsForDay(userID int64, day string) ([]Transaction, error)

	// LatestTransactions returns the user's most recent transactions
	LatestTransactions(userID int64, limit int) ([]Transaction, error)

	// ListTransactions returns every transaction, newest first
	ListTransactions() ([]Transaction, error)

	// DistinctCategories returns the categories in use, transfers excluded
	DistinctCategories() ([]string, error)

	// UpdateTransaction rewrites the editable fields of a transaction
	UpdateTransaction(id int64, amount float64, comment, category, tag string) (int64, error)

	// DeleteTransaction removes a transaction owned by the user
	DeleteTransaction(id, userID int64) error

	// Balances computes per-account balances from the transaction history
	Balances(userID int64) (map[string]decimal.Decimal, []Account, error)

	// PeriodStats sums income and expenses since a date
	PeriodStats(userID int64, since time.Time) (income, expense decimal.Decimal, err error)

	// CategoryStats sums expenses per category since a date
	CategoryStats(userID int64, since time.Time) (map[string]decimal.Decimal, error)

	// Account retrieves an account by name
	Account(userID int64, name string) (*Account, error)

	// AddDeposit creates a deposit account with bank terms
	AddDeposit(userID int64, name string, rate float64, termDate, bankName string) error

	// ListDeposits returns the user's deposit accounts
	ListDeposits(userID int64) ([]Account, error)

	// DeleteDeposit removes a deposit account by name
	DeleteDeposit(userID int64, name string) error

	// AddDebt records an unpaid lesson
	AddDebt(userID int64, studentName, subject string, amount float64, eventID string) error

	// Debts returns the user's unpaid debts
	Debts(userID int64) ([]Debt, error)

	// Debt retrieves one debt
	Debt(id int64) (*Debt, error)

	// PayDebt marks a debt as paid
	PayDebt(id int64) error

	// ForgiveDebt removes a debt without payment
	ForgiveDebt(id int64) error

	// IsEventProcessed reports whether a calendar event was already handled
	IsEventProcessed(eventID string) (bool, error)

	// MarkEventProcessed records a calendar event, overwriting its status
	MarkEventProcessed(eventID, summary, status string) error

	// SaveReceiptItems stores the line items of a parsed receipt
	SaveReceiptItems(transactionID int64, shopName string, items []ReceiptItem, date time.Time) error

	// Close closes the database connection
	Close() error
}

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		type TEXT,
		amount REAL,
		category TEXT,
		tag TEXT,
		comment TEXT,
		date TEXT,
		source_account TEXT,
		target_account TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		name TEXT,
		balance REAL DEFAULT 0,
		is_deposit INTEGER DEFAULT 0,
		rate REAL DEFAULT 0,
		term_date TEXT,
		bank_name TEXT,
		UNIQUE(user_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS processed_events (
		event_id TEXT PRIMARY KEY,
		summary TEXT,
		date TEXT,
		status TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS debts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER,
		student_name TEXT,
		subject TEXT,
		amount REAL,
		date TEXT,
		event_id TEXT,
		is_paid INTEGER DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS receipt_items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id INTEGER,
		item_name TEXT,
		price REAL,
		quantity REAL DEFAULT 1,
		shop_name TEXT,
		date TEXT
	)`,
}

// NewSQLiteDB opens (and initializes) the ledger database at path.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one connection
	// pool without serialization
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("initializing schema: %w", err)
		}
	}
	return &SQLiteDB{db: db}, nil
}

// EnsureMainAccount creates the default account if it does not exist
func (s *SQLiteDB) EnsureMainAccount(userID int64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO accounts (user_id, name, balance) VALUES (?, ?, 0)`,
		userID, MainAccount,
	)
	return err
}

// AddTransaction inserts a transaction and returns its id
func (s *SQLiteDB) AddTransaction(t Transaction) (int64, error) {
	date := t.Date
	if date.IsZero() {
		date = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO transactions (user_id, type, amount, category, tag, comment, date, source_account, target_account)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.Type, t.Amount, t.Category, t.Tag, t.Comment,
		date.UTC().Format(time.RFC3339), t.SourceAccount, t.TargetAccount,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting transaction: %w", err)
	}
	return res.LastInsertId()
}

func scanTransactions(rows *sql.Rows) ([]Transaction, error) {
	defer rows.Close()
	transactions := make([]Transaction, 0)
	for rows.Next() {
		var t Transaction
		var date string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.Category,
			&t.Tag, &t.Comment, &date, &t.SourceAccount, &t.TargetAccount); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		t.Date, _ = time.Parse(time.RFC3339, date)
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

const transactionColumns = `id, user_id, type, amount,
	COALESCE(category, ''), COALESCE(tag, ''), COALESCE(comment, ''), date,
	COALESCE(source_account, ''), COALESCE(target_account, '')`

// Transaction retrieves one transaction owned by the user
func (s *SQLiteDB) Transaction(id, userID int64) (*Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}
	if len(transactions) == 0 {
		return nil, fmt.Errorf("transaction not found: %d", id)
	}
	return &transactions[0], nil
}

// TransactionsForDay returns the user's transactions on a calendar day,
// given as "2006-01-02".
func (s *SQLiteDB) TransactionsForDay(userID int64, day string) ([]Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND date LIKE ? ORDER BY date DESC`,
		userID, day+"%",
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// LatestTransactions returns the user's most recent transactions
func (s *SQLiteDB) LatestTransactions(userID int64, limit int) ([]Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? ORDER BY date DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// ListTransactions returns every transaction, newest first
func (s *SQLiteDB) ListTransactions() ([]Transaction, error) {
	rows, err := s.db.Query(
		`SELECT ` + transactionColumns + ` FROM transactions ORDER BY date DESC`,
	)
	if err != nil {
		return nil, err
	}
	return scanTransactions(rows)
}

// DistinctCategories returns the categories in use, transfers excluded
func (s *SQLiteDB) DistinctCategories() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT category FROM transactions
		 WHERE category IS NOT NULL AND category != '' AND category != 'Перевод'
		 ORDER BY category ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateTransaction rewrites the editable fields of a transaction and
// returns the number of affected rows.
func (s *SQLiteDB) UpdateTransaction(id int64, amount float64, comment, category, tag string) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE transactions SET amount = ?, comment = ?, category = ?, tag = ? WHERE id = ?`,
		amount, comment, category, tag, id,
	)
	if err != nil {
		return 0, fmt.Errorf("updating transaction: %w", err)
	}
	return res.RowsAffected()
}

// DeleteTransaction removes a transaction owned by the user
func (s *SQLiteDB) DeleteTransaction(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

// Balances computes per-account balances from the transaction history.
// Every known account appears in the map even with no activity.
func (s *SQLiteDB) Balances(userID int64) (map[string]decimal.Decimal, []Account, error) {
	accounts, err := s.listAccounts(userID)
	if err != nil {
		return nil, nil, err
	}

	balances := make(map[string]decimal.Decimal)
	for _, a := range accounts {
		balances[a.Name] = decimal.Zero
	}
	if _, ok := balances[MainAccount]; !ok {
		balances[MainAccount] = decimal.Zero
	}

	rows, err := s.db.Query(
		`SELECT type, amount, COALESCE(source_account, ''), COALESCE(target_account, '')
		 FROM transactions WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var txType, source, target string
		var amount float64
		if err := rows.Scan(&txType, &amount, &source, &target); err != nil {
			return nil, nil, err
		}
		d := decimal.NewFromFloat(amount)
		switch txType {
		case TypeIncome:
			if target != "" {
				balances[target] = balances[target].Add(d)
			}
		case TypeExpense:
			if source != "" {
				balances[source] = balances[source].Sub(d)
			}
		case TypeTransfer:
			if source != "" {
				balances[source] = balances[source].Sub(d)
			}
			if target != "" {
				balances[target] = balances[target].Add(d)
			}
		}
	}
	return balances, accounts, rows.Err()
}

// PeriodStats sums income and expenses since a date
func (s *SQLiteDB) PeriodStats(userID int64, since time.Time) (decimal.Decimal, decimal.Decimal, error) {
	rows, err := s.db.Query(
		`SELECT type, amount FROM transactions
		 WHERE user_id = ? AND type IN ('income', 'expense') AND date >= ?`,
		userID, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer rows.Close()

	income, expense := decimal.Zero, decimal.Zero
	for rows.Next() {
		var txType string
		var amount float64
		if err := rows.Scan(&txType, &amount); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if txType == TypeIncome {
			income = income.Add(decimal.NewFromFloat(amount))
		} else {
			expense = expense.Add(decimal.NewFromFloat(amount))
		}
	}
	return income, expense, rows.Err()
}

// CategoryStats sums expenses per category since a date
func (s *SQLiteDB) CategoryStats(userID int64, since time.Time) (map[string]decimal.Decimal, error) {
	rows, err := s.db.Query(
		`SELECT COALESCE(category, ''), amount FROM transactions
		 WHERE user_id = ? AND type = 'expense' AND date >= ?`,
		userID, since.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]decimal.Decimal)
	for rows.Next() {
		var category string
		var amount float64
		if err := rows.Scan(&category, &amount); err != nil {
			return nil, err
		}
		stats[category] = stats[category].Add(decimal.NewFromFloat(amount))
	}
	return stats, rows.Err()
}

func (s *SQLiteDB) listAccounts(userID int64) ([]Account, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, name, is_deposit, rate, COALESCE(term_date, ''), COALESCE(bank_name, '')
		 FROM accounts WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.IsDeposit, &a.Rate, &a.TermDate, &a.BankName); err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Account retrieves an account by name
func (s *SQLiteDB) Account(userID int64, name string) (*Account, error) {
	accounts, err := s.listAccounts(userID)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Name == name {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account not found: %s", name)
}

// AddDeposit creates a deposit account with bank terms
func (s *SQLiteDB) AddDeposit(userID int64, name string, rate float64, termDate, bankName string) error {
	_, err := s.db.Exec(
		`INSERT INTO accounts (user_id, name, is_deposit, rate, term_date, bank_name) VALUES (?, ?, 1, ?, ?, ?)`,
		userID, name, rate, termDate, bankName,
	)
	if err != nil {
		return fmt.Errorf("creating deposit: %w", err)
	}
	return nil
}

// ListDeposits returns the user's deposit accounts
func (s *SQLiteDB) ListDeposits(userID int64) ([]Account, error) {
	accounts, err := s.listAccounts(userID)
	if err != nil {
		return nil, err
	}
	deposits := make([]Account, 0)
	for _, a := range accounts {
		if a.IsDeposit {
			deposits = append(deposits, a)
		}
	}
	return deposits, nil
}

// DeleteDeposit removes a deposit account by name
func (s *SQLiteDB) DeleteDeposit(userID int64, name string) error {
	res, err := s.db.Exec(
		`DELETE FROM accounts WHERE user_id = ? AND name = ? AND is_deposit = 1`,
		userID, name,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("deposit not found: %s", name)
	}
	return nil
}

// AddDebt records an unpaid lesson
func (s *SQLiteDB) AddDebt(userID int64, studentName, subject string, amount float64, eventID string) error {
	_, err := s.db.Exec(
		`INSERT INTO debts (user_id, student_name, subject, amount, date, event_id) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, studentName, subject, amount, time.Now().UTC().Format(time.RFC3339), eventID,
	)
	return err
}

func (s *SQLiteDB) scanDebts(query string, args ...any) ([]Debt, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debts := make([]Debt, 0)
	for rows.Next() {
		var d Debt
		var date string
		if err := rows.Scan(&d.ID, &d.UserID, &d.StudentName, &d.Subject, &d.Amount, &date, &d.EventID, &d.IsPaid); err != nil {
			return nil, fmt.Errorf("scanning debt: %w", err)
		}
		d.Date, _ = time.Parse(time.RFC3339, date)
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

const debtColumns = `id, user_id, COALESCE(student_name, ''), COALESCE(subject, ''), amount, date, COALESCE(event_id, ''), is_paid`

// Debts returns the user's unpaid debts
func (s *SQLiteDB) Debts(userID int64) ([]Debt, error) {
	return s.scanDebts(
		`SELECT `+debtColumns+` FROM debts WHERE user_id = ? AND is_paid = 0`,
		userID,
	)
}

// Debt retrieves one debt
func (s *SQLiteDB) Debt(id int64) (*Debt, error) {
	debts, err := s.scanDebts(`SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(debts) == 0 {
		return nil, fmt.Errorf("debt not found: %d", id)
	}
	return &debts[0], nil
}

// PayDebt marks a debt as paid
func (s *SQLiteDB) PayDebt(id int64) error {
	_, err := s.db.Exec(`UPDATE debts SET is_paid = 1 WHERE id = ?`, id)
	return err
}

// ForgiveDebt removes a debt without payment
func (s *SQLiteDB) ForgiveDebt(id int64) error {
	_, err := s.db.Exec(`DELETE FROM debts WHERE id = ?`, id)
	return err
}

// IsEventProcessed reports whether a calendar event was already handled
func (s *SQLiteDB) IsEventProcessed(eventID string) (bool, error) {
	var found string
	err := s.db.QueryRow(`SELECT event_id FROM processed_events WHERE event_id = ?`, eventID).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkEventProcessed records a calendar event, overwriting its status so a
// pending event can later flip to paid.
func (s *SQLiteDB) MarkEventProcessed(eventID, summary, status string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO processed_events (event_id, summary, date, status) VALUES (?, ?, ?, ?)`,
		eventID, summary, time.Now().UTC().Format(time.RFC3339), status,
	)
	return err
}

// SaveReceiptItems stores the line items of a parsed receipt
func (s *SQLiteDB) SaveReceiptItems(transactionID int64, shopName string, items []ReceiptItem, date time.Time) error {
	if date.IsZero() {
		date = time.Now()
	}
	for _, item := range items {
		_, err := s.db.Exec(
			`INSERT INTO receipt_items (transaction_id, item_name, price, quantity, shop_name, date)
			 VALUES (?, ?, ?, 1, ?, ?)`,
			transactionID, item.Name, item.Price, shopName, date.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting receipt item: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
