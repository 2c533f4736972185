package receipt

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// repairThreshold is the value below which stuck-digit repair is never
	// attempted: typical prices in this locale are under six figures, so a
	// smaller "doubled" value cannot be told apart from a legitimate one.
	repairThreshold = 100000

	// formulaTolerance absorbs OCR rounding when matching qty*unitPrice
	// against a printed total.
	formulaTolerance = 5

	// noiseFloor filters out quantities, ordinals and unit fragments that
	// masquerade as prices.
	noiseFloor = 5

	maxPlausiblePrice = 1000000
)

var (
	// digit groups separated by single spaces, e.g. "1 200" or "312 624"
	spacedNumberRe = regexp.MustCompile(`\d{1,3}(?: \d{3})+(?:[.,]\d+)?`)
	numberTokenRe  = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
)

// parseNumber parses a numeric token, tolerating grouping spaces and a
// decimal comma.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// repairStuck tries to split a digit sequence the OCR glued together.
// "240240" is a doubled 240, "2245224" is 2245 with a stuck partial repeat.
// Values under the threshold are returned as-is.
func repairStuck(val float64, raw string) float64 {
	if val < repairThreshold {
		return val
	}

	s := strconv.FormatFloat(val, 'f', -1, 64)

	// exact doubled halves
	if len(s)%2 == 0 {
		half := len(s) / 2
		if s[:half] == s[half:] {
			if v, err := strconv.ParseFloat(s[:half], 64); err == nil {
				return v
			}
		}
	}

	// stuck partial repeat: the prefix starts with (or is numerically close
	// to) the suffix
	mid := (len(s) + 1) / 2
	p1, p2 := s[:mid], s[mid:]
	v1, err1 := strconv.ParseFloat(p1, 64)
	v2, err2 := strconv.ParseFloat(p2, 64)
	if err1 == nil && err2 == nil {
		if strings.HasPrefix(p1, p2) || math.Abs(v1-v2) < formulaTolerance {
			return v1
		}
	}

	// a spaced raw match that defeated both heuristics: the last chunk is
	// usually the actual price
	if strings.Contains(raw, " ") {
		chunks := strings.Fields(raw)
		last := strings.ReplaceAll(chunks[len(chunks)-1], ",", ".")
		if v, err := strconv.ParseFloat(last, 64); err == nil {
			return v
		}
	}

	return val
}

// Candidates scans a text fragment for every numeric value it could contain.
// Space-grouped numbers contribute both their joined value and, when the
// repair heuristic fires, the repaired one; standalone tokens contribute
// their repaired value.
func Candidates(text string) []float64 {
	var out []float64

	for _, m := range spacedNumberRe.FindAllString(text, -1) {
		val, ok := parseNumber(m)
		if !ok {
			continue
		}
		out = append(out, val)
		if repaired := repairStuck(val, m); repaired != val {
			out = append(out, repaired)
		}
	}

	for _, m := range numberTokenRe.FindAllString(text, -1) {
		if val, ok := parseNumber(m); ok {
			out = append(out, repairStuck(val, m))
		}
	}

	return out
}
