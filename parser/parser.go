// Package parser contains the pure text-to-value conversions used when
// normalizing scraped listing fields.
package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// nonDigitRegexp strips everything that is not a decimal digit.
	nonDigitRegexp = regexp.MustCompile(`[^\d]`)
	// whitespaceRegexp matches any whitespace, including non-breaking spaces.
	whitespaceRegexp = regexp.MustCompile(`[\s\x{00a0}]`)
	// clockRegexp captures an HH:MM clock time.
	clockRegexp = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
	// dayMonthRegexp captures "10 gen alle 15:30" / "10 gen all'11:00" forms.
	dayMonthRegexp = regexp.MustCompile(`(\d{1,2})\s+([a-z]{3})\s+(?:all'|alle)\s*(\d{1,2}):(\d{2})`)
)

// months maps subito.it's Italian month abbreviations.
var months = map[string]time.Month{
	"gen": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"mag": time.May,
	"giu": time.June,
	"lug": time.July,
	"ago": time.August,
	"set": time.September,
	"ott": time.October,
	"nov": time.November,
	"dic": time.December,
}

// ParseInteger strips all non-digit characters and parses the remainder as a
// base-10 integer ("12.345 km" → 12345). The second return value is false
// when nothing parseable remains.
func ParseInteger(text string) (int, bool) {
	cleaned := nonDigitRegexp.ReplaceAllString(text, "")
	if cleaned == "" {
		return 0, false
	}
	n, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseCurrency converts an Italian-formatted price ("€ 7.500", "1.234,50")
// to a float. Thousands dots are removed and the decimal comma becomes a
// decimal point. The second return value is false on malformed input.
func ParseCurrency(text string) (float64, bool) {
	cleaned := strings.ReplaceAll(text, "€", "")
	cleaned = whitespaceRegexp.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParsePublishDate converts subito.it's relative publication labels to an
// absolute timestamp: "Oggi alle 10:30" (today), "Ieri alle 15:00"
// (yesterday) and "10 gen alle 15:30" (day + month abbreviation, current
// year). An explicit HH:MM is required for every form; anything else,
// including a bare "Oggi", yields nil and the caller decides the fallback.
func ParsePublishDate(text string, now time.Time) *time.Time {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return nil
	}

	if strings.Contains(lower, "oggi") {
		return atClock(now, lower)
	}
	if strings.Contains(lower, "ieri") {
		return atClock(now.AddDate(0, 0, -1), lower)
	}

	m := dayMonthRegexp.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	month, ok := months[m[2]]
	if !ok {
		return nil
	}
	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	t := time.Date(now.Year(), month, day, hour, minute, 0, 0, now.Location())
	return &t
}

// atClock pins the HH:MM found in text onto the given calendar day.
func atClock(day time.Time, text string) *time.Time {
	m := clockRegexp.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
	return &t
}
