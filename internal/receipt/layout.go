package receipt

import (
	"regexp"
	"strings"
	"time"
)

// Layout is the parsing strategy for one receipt format: where the item
// region sits, how lines group into product blocks, how a block's price is
// resolved and how the header reads. Shops with fixed layouts override the
// generic keyword-driven behavior.
type Layout interface {
	Name() string
	ParseHeader(lines []string, now time.Time) Header
	LocateSections(lines []string) (Sections, error)
	AssembleBlocks(itemLines []string) []Block
	ResolveItem(block Block) (Item, bool)
}

var magnumSignatureRe = regexp.MustCompile(`(?i)Magnum`)

// DetectLayout inspects the reconstructed lines for a known shop signature
// and returns the matching layout, falling back to the generic one.
func DetectLayout(lines []string) Layout {
	for _, l := range lines {
		if magnumSignatureRe.MatchString(l) {
			return magnumLayout{}
		}
	}
	return genericLayout{}
}

// genericLayout handles fiscal receipts with keyword anchors and ordinal
// item numbering.
type genericLayout struct{}

func (genericLayout) Name() string { return "generic" }

func (genericLayout) ParseHeader(lines []string, now time.Time) Header {
	return parseGenericHeader(lines, now)
}

func (genericLayout) LocateSections(lines []string) (Sections, error) {
	return locateSections(lines, genericStartAnchorRe, genericEndAnchorRe, genericTotalLineRe)
}

func (genericLayout) AssembleBlocks(itemLines []string) []Block {
	return assembleBlocks(itemLines)
}

func (genericLayout) ResolveItem(block Block) (Item, bool) {
	price, ok := resolvePrice(block, []priceStrategy{
		strategyFormula,
		strategyDuplicates,
		strategyPositional,
	})
	if !ok {
		return Item{}, false
	}
	return Item{Name: cleanItemName(block, price), Price: price}, true
}

var (
	magnumStartAnchorRe   = regexp.MustCompile(`(?i)Состав\s*чека`)
	magnumEndAnchorRe     = regexp.MustCompile(`(?i)Итого\s*:`)
	magnumPurchaseTotalRe = regexp.MustCompile(`(?i)Покупка\s*на\s*сумму\s*(\d+)\s*тг`)
	magnumTotalLineRe     = regexp.MustCompile(`(?i)Итого:\s*(\d+)\s*тг`)
)

// magnumLayout handles Magnum app screenshots: no ordinals, every price
// suffixed with the currency, the grand total spelled out as a sentence.
type magnumLayout struct{}

func (magnumLayout) Name() string { return "magnum" }

func (magnumLayout) ParseHeader(lines []string, now time.Time) Header {
	return parseMagnumHeader(lines, now)
}

func (magnumLayout) LocateSections(lines []string) (Sections, error) {
	s, err := locateSections(lines, magnumStartAnchorRe, magnumEndAnchorRe, magnumTotalLineRe)
	if err != nil {
		return Sections{}, err
	}

	s.DeclaredTotal = 0
	text := strings.Join(lines, "\n")
	if m := magnumPurchaseTotalRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			s.DeclaredTotal = v
		}
	} else if m := magnumTotalLineRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNumber(m[1]); ok {
			s.DeclaredTotal = v
		}
	}
	return s, nil
}

func (magnumLayout) AssembleBlocks(itemLines []string) []Block {
	return assembleBlocks(itemLines)
}

func (magnumLayout) ResolveItem(block Block) (Item, bool) {
	price, ok := resolvePrice(block, []priceStrategy{
		strategyCurrencySuffix,
		strategyFormula,
		strategyDuplicates,
		strategyPositional,
	})
	if !ok {
		return Item{}, false
	}
	return Item{Name: cleanItemName(block, price), Price: price}, true
}
