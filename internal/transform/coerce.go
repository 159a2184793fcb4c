package transform

import (
	"regexp"
	"strconv"
	"time"
)

var (
	yearPattern   = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)
	digitsPattern = regexp.MustCompile(`\d+`)
)

// DefaultDateLayouts are tried in order by ParseDate.
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDate parses an ISO-8601 style date, falling back to a bare year.
func ParseDate(value string, layouts ...string) (time.Time, bool) {
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return ParseYear(value)
}

// ParseYear finds the first 4-digit year in value and returns January 1st of
// that year in UTC. Month and day are not meaningful.
func ParseYear(value string) (time.Time, bool) {
	m := yearPattern.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
}

// ParseInt extracts the first integer from values like "320 pages".
func ParseInt(value string) (int, bool) {
	m := digitsPattern.FindString(value)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

// CoerceInt converts a string field to int in place, dropping it if no number is found.
func (f Fields) CoerceInt(key string) {
	s, ok := f[key].(string)
	if !ok {
		return
	}
	if n, ok := ParseInt(s); ok {
		f[key] = n
		return
	}
	delete(f, key)
}

// CoerceDate converts a string field to time.Time in place with parse,
// dropping it when parse fails.
func (f Fields) CoerceDate(key string, parse func(string) (time.Time, bool)) {
	s, ok := f[key].(string)
	if !ok {
		return
	}
	if t, ok := parse(s); ok {
		f[key] = t
		return
	}
	delete(f, key)
}
