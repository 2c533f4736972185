package receipt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	formulaRe        = regexp.MustCompile(`^([\d.,]+)\s*[xх*]\s*([\d\s.,]+)`)
	orderedNumberRe  = regexp.MustCompile(`\d{1,3}(?: \d{3})+(?:[.,]\d+)?|\d+(?:[.,]\d+)?`)
	tengePriceRe     = regexp.MustCompile(`(?i)(\d+)\s*тг`)
	trailingNumberRe = regexp.MustCompile(`\s\d+(?:[.,]\d+)?$`)
)

// strategyContext carries the block being resolved plus state shared down
// the cascade: a unit price identified by the formula strategy must not be
// mistaken for the line total by the positional fallback.
type strategyContext struct {
	block      Block
	text       string
	ignoreUnit float64
}

// priceStrategy attempts to determine the block's price. Strategies are
// tried in order; the first success wins.
type priceStrategy func(*strategyContext) (float64, bool)

// strategyFormula looks for a "qty x unitPrice" token. Because the unit
// price itself may be OCR-garbled, every candidate reading of it is tried:
// qty*candidate must reappear among the block's numbers (within tolerance).
// A quantity of one accepts the unit price directly.
func strategyFormula(ctx *strategyContext) (float64, bool) {
	for _, line := range ctx.block.RawLines {
		m := formulaRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		qty, ok := parseNumber(m[1])
		if !ok {
			continue
		}

		allNums := Candidates(ctx.text)
		for _, unit := range Candidates(m[2]) {
			ctx.ignoreUnit = unit
			expected := qty * unit
			for _, n := range allNums {
				if math.Abs(n-expected) < formulaTolerance {
					return n, true
				}
			}
			if math.Abs(qty-1) < 0.01 {
				return unit, true
			}
		}
	}
	return 0, false
}

// strategyDuplicates exploits layouts that print a price twice (unit price
// equals line total, or the total is repeated for emphasis): the most
// repeated value above the noise floor wins, largest on ties.
func strategyDuplicates(ctx *strategyContext) (float64, bool) {
	counts := make(map[float64]int)
	for _, n := range Candidates(ctx.text) {
		counts[n]++
	}

	var bestVal float64
	bestCount := 0
	for n, c := range counts {
		if c < 2 || n <= noiseFloor {
			continue
		}
		if c > bestCount || (c == bestCount && n > bestVal) {
			bestVal, bestCount = n, c
		}
	}
	if bestCount == 0 {
		return 0, false
	}
	return bestVal, true
}

// strategyPositional walks the block's numbers in reverse reading order and
// takes the first plausible one that is not the already-identified unit
// price.
func strategyPositional(ctx *strategyContext) (float64, bool) {
	matches := orderedNumberRe.FindAllString(ctx.text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		val, ok := parseNumber(matches[i])
		if !ok {
			continue
		}
		candidate := repairStuck(val, matches[i])
		if ctx.ignoreUnit > 0 && math.Abs(candidate-ctx.ignoreUnit) < 0.1 {
			continue
		}
		if candidate > noiseFloor && candidate < maxPlausiblePrice {
			return candidate, true
		}
	}
	return 0, false
}

// strategyCurrencySuffix picks the first "N тг" amount in the block. Magnum
// screenshots label every line price with the currency, which is far more
// reliable than any inference.
func strategyCurrencySuffix(ctx *strategyContext) (float64, bool) {
	m := tengePriceRe.FindStringSubmatch(ctx.text)
	if m == nil {
		return 0, false
	}
	val, ok := parseNumber(m[1])
	if !ok || val <= 0 {
		return 0, false
	}
	return val, true
}

// resolvePrice runs the cascade over a block.
func resolvePrice(b Block, strategies []priceStrategy) (float64, bool) {
	ctx := &strategyContext{block: b, text: b.Text()}
	for _, s := range strategies {
		if price, ok := s(ctx); ok && price > 0 {
			return price, true
		}
	}
	return 0, false
}

// cleanItemName strips the resolved price and quantity fragments from the
// block text, leaving the product name. Wrapped name lines end up joined by
// single spaces.
func cleanItemName(b Block, price float64) string {
	text := b.Text()
	priceStr := strconv.FormatFloat(price, 'f', -1, 64)

	text = qtyMarkerRe.ReplaceAllString(text, " ")
	if re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(priceStr) + `\s*тг`); err == nil {
		text = re.ReplaceAllString(text, " ")
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, priceStr)
	text = strings.TrimSpace(text)

	// a trailing bare quantity/price fragment
	text = trailingNumberRe.ReplaceAllString(text, "")

	return strings.Join(strings.Fields(text), " ")
}
