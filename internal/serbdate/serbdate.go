// Package serbdate parses the Serbian Cyrillic date strings the site renders,
// e.g. "Пон, 24. Нов, 2025. у 13:52".
package serbdate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// months maps full and abbreviated Cyrillic month names to month numbers.
// Lookup is longest-match: "новембар" must not resolve through "нов" alone.
var months = map[string]time.Month{
	"јануар":    time.January,
	"јан":       time.January,
	"фебруар":   time.February,
	"феб":       time.February,
	"март":      time.March,
	"мар":       time.March,
	"април":     time.April,
	"апр":       time.April,
	"мај":       time.May,
	"јун":       time.June,
	"јул":       time.July,
	"август":    time.August,
	"авг":       time.August,
	"септембар": time.September,
	"сеп":       time.September,
	"октобар":   time.October,
	"окт":       time.October,
	"новембар":  time.November,
	"нов":       time.November,
	"децембар":  time.December,
	"дец":       time.December,
}

var (
	dateExpr    = regexp.MustCompile(`(\d{1,2})\.\s*([\p{Cyrillic}]+).*?(\d{4})`)
	timeExpr    = regexp.MustCompile(`у\s*(\d{1,2}):(\d{2})`)
	numericExpr = regexp.MustCompile(`\b(\d{1,2})\.\s?(\d{1,2})\.\s?(\d{4})\.?`)
)

// Parse converts a locale date string into a UTC timestamp. The boolean is
// false when no recognized pattern matches; callers treat that as "date
// unknown", never as an error. The site carries no timezone signal, so all
// results are interpreted in UTC.
func Parse(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	// Machine-readable forms first: time[datetime] attributes and meta tags
	// already carry RFC3339/ISO-8601.
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), true
		}
	}

	if m := dateExpr.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		year, _ := strconv.Atoi(m[3])
		if month, ok := lookupMonth(m[2]); ok && day >= 1 && day <= 31 {
			hour, minute := 0, 0
			if tm := timeExpr.FindStringSubmatch(raw); tm != nil {
				hour, _ = strconv.Atoi(tm[1])
				minute, _ = strconv.Atoi(tm[2])
			}
			if hour < 24 && minute < 60 {
				return time.Date(year, month, day, hour, minute, 0, 0, time.UTC), true
			}
		}
	}

	// The site also prints plain numeric dates ("24.11.2025.").
	if m := numericExpr.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		monthNum, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if day >= 1 && day <= 31 && monthNum >= 1 && monthNum <= 12 {
			return time.Date(year, time.Month(monthNum), day, 0, 0, 0, 0, time.UTC), true
		}
	}

	return time.Time{}, false
}

func lookupMonth(name string) (time.Month, bool) {
	name = strings.ToLower(name)
	if month, ok := months[name]; ok {
		return month, true
	}
	// The regexp may capture trailing letters of an inflected form
	// ("новембра"); retry on progressively shorter prefixes so the most
	// specific table entry still wins.
	for l := len([]rune(name)) - 1; l >= 3; l-- {
		if month, ok := months[string([]rune(name)[:l])]; ok {
			return month, true
		}
	}
	return 0, false
}
