package receipt

import "regexp"

var (
	genericStartAnchorRe = regexp.MustCompile(`(?i)САТУ|ПРОДАЖА|SALE|Состав\s*чека`)
	genericEndAnchorRe   = regexp.MustCompile(`(?i)ЖИЫНЫ|ИТОГО|TOTAL|Карта|Card|Наличными|Kaspi|Бонусов`)
	genericTotalLineRe   = regexp.MustCompile(`(?i)ИТОГО|Карта|Total`)
)

// SectionNotFoundError reports a receipt whose item region anchors are
// missing or out of order. RawText carries the reconstructed text so the
// user can inspect what the OCR actually saw.
type SectionNotFoundError struct {
	RawText string
}

func (e *SectionNotFoundError) Error() string {
	return "items region not found"
}

// Sections marks the item region boundaries within the reconstructed lines.
// Item lines are lines[ItemsStart+1 : ItemsEnd].
type Sections struct {
	ItemsStart    int
	ItemsEnd      int
	DeclaredTotal float64
}

// locateSections finds the item region between a start and end anchor and
// extracts the declared total. The total may be printed after the end
// anchor (card payment lines), so the scan continues to the last line,
// keeping the largest candidate seen on any total-ish line.
func locateSections(lines []string, startAnchor, endAnchor, totalLine *regexp.Regexp) (Sections, error) {
	start := -1
	for i, l := range lines {
		if startAnchor.MatchString(l) {
			start = i
			break
		}
	}
	end := -1
	if start != -1 {
		for i := start + 1; i < len(lines); i++ {
			if endAnchor.MatchString(lines[i]) {
				end = i
				break
			}
		}
	}
	if start == -1 || end == -1 {
		return Sections{}, &SectionNotFoundError{}
	}

	s := Sections{ItemsStart: start, ItemsEnd: end}
	for i := end; i < len(lines); i++ {
		if !totalLine.MatchString(lines[i]) {
			continue
		}
		for _, n := range Candidates(lines[i]) {
			if n > s.DeclaredTotal {
				s.DeclaredTotal = n
			}
		}
	}
	return s, nil
}
