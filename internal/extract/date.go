package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NormalizedDate is the best-effort interpretation of an operator-entered
// date value. When Parsed is false the upstream value survives untouched in
// Raw and Time is zero; silent fallback is the documented behavior for this
// free-text input, not a defect.
type NormalizedDate struct {
	Raw    string    `json:"raw"`
	Time   time.Time `json:"time"`
	Parsed bool      `json:"parsed"`
}

// genericLayouts are tried before the day/month/year pattern. RFC3339 covers
// webhook payloads; the rest cover spreadsheet exports.
var genericLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// dmyRe matches day/month/year with an optional hour:minute tail and a
// 2-or-4-digit year, with "/" or "-" separators.
var dmyRe = regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{2}|\d{4})(?:[ T]+(\d{1,2}):(\d{2}))?$`)

// NormalizeDate leniently parses an operator-entered date string. Generic
// timestamp layouts are tried first, then a day/month/year pattern where
// 2-digit years mean 20xx. Unparseable input returns the raw string with a
// zero time.
func NormalizeDate(raw string) NormalizedDate {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return NormalizedDate{Raw: raw}
	}

	for _, layout := range genericLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return NormalizedDate{Raw: raw, Time: t, Parsed: true}
		}
	}

	if m := dmyRe.FindStringSubmatch(trimmed); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}

		hour, minute := 0, 0
		if m[4] != "" {
			hour, _ = strconv.Atoi(m[4])
			minute, _ = strconv.Atoi(m[5])
		}

		if validDate(year, month, day) && hour < 24 && minute < 60 {
			t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC)
			return NormalizedDate{Raw: raw, Time: t, Parsed: true}
		}
	}

	return NormalizedDate{Raw: raw}
}

func validDate(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 {
		return false
	}
	// time.Date normalizes overflow (32/01 becomes 01/02); reject instead.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && int(t.Month()) == month && t.Year() == year
}
