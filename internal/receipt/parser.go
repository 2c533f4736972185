package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tyunth/finance-bot/internal/scanning"
)

// ErrNoText reports that the OCR oracle found no text at all.
var ErrNoText = errors.New("no text detected in image")

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time { return time.Now() }

// Config controls optional parser behavior.
type Config struct {
	// StrictUnresolved records blocks no price strategy could resolve on
	// the result instead of dropping them silently.
	StrictUnresolved bool
}

// Parser turns a receipt photo into a structured Receipt.
type Parser struct {
	oracle     scanning.Oracle
	cfg        Config
	timeSource TimeSource
}

// NewParser creates a Parser with the default time source.
func NewParser(oracle scanning.Oracle, cfg Config) *Parser {
	return &Parser{oracle: oracle, cfg: cfg, timeSource: defaultTimeSource{}}
}

// NewParserWithDeps creates a Parser with a custom time source for testing.
func NewParserWithDeps(oracle scanning.Oracle, cfg Config, ts TimeSource) *Parser {
	return &Parser{oracle: oracle, cfg: cfg, timeSource: ts}
}

// Parse runs the full pipeline: OCR, line reconstruction, layout detection,
// section location, block assembly and price resolution. A total mismatch
// beyond one unit attaches a warning but does not fail the parse; the only
// hard failures are an empty OCR result and a missing items region.
func (p *Parser) Parse(imageData []byte, contentType string) (*Receipt, error) {
	boxes, err := p.oracle.DetectText(imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("detecting text: %w", err)
	}
	if len(boxes) == 0 {
		return nil, ErrNoText
	}

	lines := scanning.ReconstructLines(boxes)
	if len(lines) == 0 {
		return nil, ErrNoText
	}
	rawText := strings.Join(lines, "\n")

	layout := DetectLayout(lines)
	slog.Info("parsing receipt", "layout", layout.Name(), "lines", len(lines))

	sections, err := layout.LocateSections(lines)
	if err != nil {
		var notFound *SectionNotFoundError
		if errors.As(err, &notFound) {
			notFound.RawText = rawText
		}
		return nil, err
	}

	header := layout.ParseHeader(lines, p.timeSource.Now())
	result := &Receipt{
		ShopName:      header.ShopName,
		Address:       header.Address,
		Date:          header.Date,
		DeclaredTotal: sections.DeclaredTotal,
		RawText:       rawText,
	}

	for _, block := range layout.AssembleBlocks(lines[sections.ItemsStart+1 : sections.ItemsEnd]) {
		item, ok := layout.ResolveItem(block)
		if !ok || item.Price <= 0 {
			if p.cfg.StrictUnresolved {
				result.Unresolved = append(result.Unresolved, strings.TrimSpace(block.Text()))
			}
			continue
		}
		result.Items = append(result.Items, item)
		result.ComputedTotal += item.Price
	}

	if result.DeclaredTotal > 0 && math.Abs(result.ComputedTotal-result.DeclaredTotal) > 1 {
		result.TotalWarning = fmt.Sprintf(
			"⚠️ Сумма товаров (%s) не совпадает с ИТОГО (%s). Проверьте чек!",
			formatNumber(result.ComputedTotal), formatNumber(result.DeclaredTotal),
		)
	}

	slog.Info("receipt parsed",
		"shop", result.ShopName,
		"items", len(result.Items),
		"computed_total", result.ComputedTotal,
		"declared_total", result.DeclaredTotal,
	)
	return result, nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
