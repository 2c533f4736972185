package receipt

import (
	"strings"
	"time"
)

// Item is a single parsed line item. Category stays empty until the
// learning store or the user supplies one.
type Item struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// Receipt is the parse result handed to the dialogue controller.
type Receipt struct {
	ShopName      string    `json:"shop_name"`
	Address       string    `json:"address"`
	Date          time.Time `json:"date"`
	Items         []Item    `json:"items"`
	DeclaredTotal float64   `json:"declared_total"`
	ComputedTotal float64   `json:"computed_total"`
	TotalWarning  string    `json:"total_warning,omitempty"`
	RawText       string    `json:"raw_text"`
	// Unresolved lists blocks no price strategy could resolve. Populated
	// only in strict mode; the default is to drop them silently and let
	// the total mismatch warning tell the story.
	Unresolved []string `json:"unresolved,omitempty"`
}

// Block is a group of raw receipt lines belonging to one product.
type Block struct {
	NameHint string
	RawLines []string
}

// Text returns the name hint and raw lines joined into one string.
func (b Block) Text() string {
	parts := make([]string, 0, len(b.RawLines)+1)
	if b.NameHint != "" {
		parts = append(parts, b.NameHint)
	}
	parts = append(parts, b.RawLines...)
	return strings.Join(parts, " ")
}
