// Package dialogue drives the receipt categorization conversation: after a
// receipt is parsed, every item without a known category is asked about in
// turn, answers are learned for next time, and the finished receipt is
// booked as one expense transaction per category.
package dialogue

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tyunth/finance-bot/internal/categories"
	"github.com/tyunth/finance-bot/internal/finance"
	"github.com/tyunth/finance-bot/internal/learning"
	"github.com/tyunth/finance-bot/internal/receipt"
)

// Prompt asks the user to pick a category for one receipt item.
type Prompt struct {
	ShopName string
	ItemName string
	Price    float64
}

// CategorySum is one booked transaction of a finalized receipt.
type CategorySum struct {
	Category      string
	Sum           float64
	TransactionID int64
}

// Summary reports a finalized receipt.
type Summary struct {
	ShopName     string
	Address      string
	Date         time.Time
	TotalWarning string
	Booked       []CategorySum
	Balance      decimal.Decimal
}

// Outcome is the controller's reply to one user interaction. Exactly one of
// Prompt and Summary is set; Retry marks a rejected answer whose question
// is being asked again.
type Outcome struct {
	Prompt  *Prompt
	Summary *Summary
	Learned string
	Retry   bool
}

type session struct {
	userID  int64
	receipt *receipt.Receipt
	items   []finance.ReceiptItem
	current int
}

// Controller holds the per-chat categorization sessions.
type Controller struct {
	db    finance.DB
	store learning.Store

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewController creates a Controller.
func NewController(db finance.DB, store learning.Store) *Controller {
	return &Controller{
		db:       db,
		store:    store,
		sessions: make(map[int64]*session),
	}
}

// Active reports whether a categorization session is in progress for the
// chat.
func (c *Controller) Active(chatID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[chatID]
	return ok
}

// Cancel drops the chat's session, if any.
func (c *Controller) Cancel(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, chatID)
}

// Begin starts a categorization session for a parsed receipt. Items whose
// category is already known (learned earlier, or implied by the shop) are
// filled in up front; if nothing is left to ask, the receipt finalizes
// immediately.
func (c *Controller) Begin(chatID, userID int64, r *receipt.Receipt) (Outcome, error) {
	items := make([]finance.ReceiptItem, 0, len(r.Items))
	for _, item := range r.Items {
		category, ok := c.store.ProductCategory(item.Name)
		if !ok {
			category, _ = categories.ShopCategory(r.ShopName)
		}
		items = append(items, finance.ReceiptItem{
			Name:     item.Name,
			Price:    item.Price,
			Category: category,
		})
	}

	s := &session{userID: userID, receipt: r, items: items}

	c.mu.Lock()
	c.sessions[chatID] = s
	c.mu.Unlock()

	return c.advance(chatID, s)
}

// HandleAnswer feeds the user's category choice into the chat's session.
// An answer outside the expense vocabulary re-asks the same question.
func (c *Controller) HandleAnswer(chatID int64, text string) (Outcome, error) {
	c.mu.Lock()
	s, ok := c.sessions[chatID]
	c.mu.Unlock()
	if !ok {
		return Outcome{}, fmt.Errorf("no active session for chat %d", chatID)
	}

	category := strings.TrimSpace(strings.SplitN(text, " (", 2)[0])
	if !categories.IsExpense(category) {
		item := s.items[s.current]
		return Outcome{
			Retry: true,
			Prompt: &Prompt{
				ShopName: s.receipt.ShopName,
				ItemName: item.Name,
				Price:    item.Price,
			},
		}, nil
	}

	item := &s.items[s.current]
	if err := c.store.LearnProduct(item.Name, category); err != nil {
		return Outcome{}, fmt.Errorf("learning product category: %w", err)
	}
	item.Category = category

	out, err := c.advance(chatID, s)
	if err != nil {
		return Outcome{}, err
	}
	out.Learned = fmt.Sprintf("Запомнил: %q -> %s", item.Name, category)
	return out, nil
}

// advance finds the next uncategorized item, or finalizes when none is
// left.
func (c *Controller) advance(chatID int64, s *session) (Outcome, error) {
	for i, item := range s.items {
		if item.Category == "" {
			s.current = i
			return Outcome{
				Prompt: &Prompt{
					ShopName: s.receipt.ShopName,
					ItemName: item.Name,
					Price:    item.Price,
				},
			}, nil
		}
	}

	summary, err := c.finalize(s)
	if err != nil {
		return Outcome{}, err
	}

	c.mu.Lock()
	delete(c.sessions, chatID)
	c.mu.Unlock()

	return Outcome{Summary: summary}, nil
}

// finalize books one expense transaction per category (categories in
// sorted order so reruns book identically) and stores the line items.
func (c *Controller) finalize(s *session) (*Summary, error) {
	grouped := make(map[string][]finance.ReceiptItem)
	for _, item := range s.items {
		grouped[item.Category] = append(grouped[item.Category], item)
	}
	names := make([]string, 0, len(grouped))
	for category := range grouped {
		names = append(names, category)
	}
	sort.Strings(names)

	summary := &Summary{
		ShopName:     s.receipt.ShopName,
		Address:      s.receipt.Address,
		Date:         s.receipt.Date,
		TotalWarning: s.receipt.TotalWarning,
	}

	for _, category := range names {
		items := grouped[category]
		var sum float64
		itemNames := make([]string, 0, len(items))
		for _, item := range items {
			sum += item.Price
			itemNames = append(itemNames, item.Name)
		}

		id, err := c.db.AddTransaction(finance.Transaction{
			UserID:        s.userID,
			Type:          finance.TypeExpense,
			Amount:        sum,
			Category:      category,
			Tag:           categories.Tag(category),
			Comment:       receiptComment(s.receipt.ShopName, s.receipt.Address, itemNames),
			Date:          s.receipt.Date,
			SourceAccount: finance.MainAccount,
		})
		if err != nil {
			return nil, fmt.Errorf("booking receipt category %s: %w", category, err)
		}
		if err := c.db.SaveReceiptItems(id, s.receipt.ShopName, items, s.receipt.Date); err != nil {
			return nil, fmt.Errorf("saving receipt items: %w", err)
		}
		summary.Booked = append(summary.Booked, CategorySum{
			Category:      category,
			Sum:           sum,
			TransactionID: id,
		})
	}

	balances, _, err := c.db.Balances(s.userID)
	if err != nil {
		return nil, fmt.Errorf("reading balances: %w", err)
	}
	summary.Balance = balances[finance.MainAccount]

	slog.Info("receipt finalized",
		"shop", summary.ShopName,
		"transactions", len(summary.Booked),
	)
	return summary, nil
}

// receiptComment builds the transaction comment, truncating the item list
// so ledger rows stay readable.
func receiptComment(shopName, address string, itemNames []string) string {
	joined := strings.Join(itemNames, ", ")
	if runes := []rune(joined); len(runes) > 30 {
		joined = string(runes[:30])
	}
	comment := fmt.Sprintf("Чек %s: %s...", shopName, joined)
	if address != "" {
		comment += fmt.Sprintf(" (%s)", address)
	}
	return comment
}
