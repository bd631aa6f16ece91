package ingest

import (
	"math"
	"strconv"
	"strings"
	"time"
)

var deadlineFormats = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 January 2006",
	"01/02/2006",
}

// parseDeadlineDays turns a raw deadline string into days-until-deadline
// relative to now. Accepts either a bare day count ("45") or a date in
// one of the common source formats. Unparseable input yields (0, false);
// a deadline in the past clamps to 0 days.
func parseDeadlineDays(raw string, now time.Time) (int, bool) {
	raw = cleanText(raw)
	if raw == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, true
		}
		return n, true
	}

	for _, format := range deadlineFormats {
		t, err := time.Parse(format, raw)
		if err != nil {
			continue
		}
		// Date-only formats land on midnight; count whole days remaining.
		days := int(math.Ceil(t.Sub(now).Hours() / 24))
		if days < 0 {
			days = 0
		}
		return days, true
	}

	// "TBD", "rolling", prose dates in other locales: unknown.
	if strings.EqualFold(raw, "rolling") {
		return 0, false
	}
	return 0, false
}
