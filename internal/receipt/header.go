package receipt

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Header is the receipt metadata parsed from the lines above the item
// region.
type Header struct {
	ShopName string
	Address  string
	Date     time.Time
}

var (
	addressMarkerRe = regexp.MustCompile(`(?i)обл\.|г\.|город|Казахстан|Северо-Казахстанская`)
	addressCutRe    = regexp.MustCompile(`,|\s{2,}|\s[А-ЯA-Z0-9]`)

	addressHintRe  = regexp.MustCompile(`(?i)обл\.|г\.|ул\.|мкр\.`)
	shopHintRe     = regexp.MustCompile(`(?i)ТОО|IP|ИП|LLP|TRADE`)
	dateLineHintRe = regexp.MustCompile(`(?i)Дата|Date|Время|Time|Күні`)
	isoDateRe      = regexp.MustCompile(`\d{4}[-.]\d{2}[-.]\d{2}`)
	dmyDateRe      = regexp.MustCompile(`\d{2}[-.]\d{2}[-.]\d{4}`)
)

var headerDateFormats = []string{
	"2006-01-02",
	"02-01-2006",
}

// cleanAddress strips the region/city boilerplate that precedes the street
// part of an address. The prefix ends at a comma, a run of spaces, or just
// before a capitalized street token; the token itself is kept.
func cleanAddress(raw string) string {
	clean := raw
	if loc := addressMarkerRe.FindStringIndex(raw); loc != nil {
		rest := raw[loc[1]:]
		if cut := addressCutRe.FindStringIndex(rest); cut != nil {
			sep := rest[cut[0]:cut[1]]
			if sep == "," || strings.TrimSpace(sep) == "" {
				clean = rest[cut[1]:]
			} else {
				clean = rest[cut[0]+1:]
			}
		}
	}
	clean = strings.TrimLeft(clean, " ,")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return strings.TrimSpace(raw)
	}
	return clean
}

// parseHeaderDate extracts a purchase date from a line mentioning a date
// keyword. Falls back to now when nothing parses.
func parseHeaderDate(lines []string, now time.Time) time.Time {
	for _, l := range lines {
		if !dateLineHintRe.MatchString(l) {
			continue
		}
		match := isoDateRe.FindString(l)
		if match == "" {
			match = dmyDateRe.FindString(l)
		}
		if match == "" {
			continue
		}
		match = strings.ReplaceAll(match, ".", "-")
		for _, format := range headerDateFormats {
			if t, err := time.Parse(format, match); err == nil {
				return t
			}
		}
	}
	return now
}

// parseGenericHeader reads the shop name and address from the first two
// lines. Some receipts print the address first, so a pair of hints decides
// which line is which.
func parseGenericHeader(lines []string, now time.Time) Header {
	var line0, line1 string
	if len(lines) > 0 {
		line0 = lines[0]
	}
	if len(lines) > 1 {
		line1 = lines[1]
	}

	h := Header{ShopName: line0, Address: line1}
	if addressHintRe.MatchString(line0) || shopHintRe.MatchString(line1) {
		h.ShopName, h.Address = line1, line0
	}
	if h.ShopName == "" {
		h.ShopName = "Неизвестный магазин"
	}
	h.Address = cleanAddress(h.Address)
	h.Date = parseHeaderDate(lines, now)
	return h
}

var (
	magnumShopRe    = regexp.MustCompile(`(?i)Magnum - (.*)`)
	magnumAddressRe = regexp.MustCompile(`(?i)г\.\s*ПЕТРОПАВЛОВСК`)
	magnumDateRe    = regexp.MustCompile(`(?i)(\d{2})\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+(\d{4})\s*г\.\s*в\s*(\d{2}):(\d{2})`)
)

var russianMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

// parseMagnumHeader reads the fixed Magnum screenshot layout: the shop line
// carries a "Magnum - <branch>" label, the address spans two lines starting
// at the city, and the date is spelled out in Russian.
func parseMagnumHeader(lines []string, now time.Time) Header {
	h := Header{ShopName: "Magnum Super", Date: now}

	text := strings.Join(lines, "\n")
	if m := magnumShopRe.FindStringSubmatch(text); m != nil {
		h.ShopName = "Magnum - " + strings.TrimSpace(m[1])
	}

	h.Address = "Неизвестный адрес"
	for i, l := range lines {
		if magnumAddressRe.MatchString(l) {
			end := i + 2
			if end > len(lines) {
				end = len(lines)
			}
			h.Address = cleanAddress(strings.Join(lines[i:end], " "))
			break
		}
	}

	if m := magnumDateRe.FindStringSubmatch(text); m != nil {
		if month, ok := russianMonths[strings.ToLower(m[2])]; ok {
			day, _ := strconv.Atoi(m[1])
			year, _ := strconv.Atoi(m[3])
			hour, _ := strconv.Atoi(m[4])
			minute, _ := strconv.Atoi(m[5])
			h.Date = time.Date(year, month, day, hour, minute, 0, 0, time.Local)
		}
	}

	return h
}
