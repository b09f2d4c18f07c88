package rsge

import (
	"fmt"
	"strings"
	"time"
)

var dateInputLayouts = []string{
	time.RFC3339,
	dateLayout,
	"2006-01-02",
}

// ParseDateRange parses the from/to bounds used by the list operations.
// Accepted forms are RFC 3339, 2006-01-02T15:04:05 and 2006-01-02. A
// date-only "to" covers the whole day. An empty "to" is now and an empty
// "from" is the first day of the month of "to".
func ParseDateRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	end := now
	if s := strings.TrimSpace(to); s != "" {
		t, dateOnly, err := parseDate(s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: %w", s, err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1).Add(-time.Second)
		}
		end = t
	}

	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location())
	if s := strings.TrimSpace(from); s != "" {
		t, _, err := parseDate(s, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: %w", s, err)
		}
		start = t
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("from date %s is after to date %s", formatDate(start), formatDate(end))
	}
	return start, end, nil
}

func parseDate(s string, loc *time.Location) (time.Time, bool, error) {
	var lastErr error
	for _, layout := range dateInputLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, layout == "2006-01-02", nil
		}
		lastErr = err
	}
	return time.Time{}, false, lastErr
}
