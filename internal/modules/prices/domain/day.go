package domain

import (
	"errors"
	"strings"
	"time"
)

// DayLayout is the canonical calendar-date representation used in cache keys
// and API paths. Lexicographic order of days in this layout coincides with
// chronological order.
const DayLayout = "2006-01-02"

var ErrInvalidDay = errors.New("invalid date, expected YYYY-MM-DD")

// ParseDay validates a calendar date string and returns its canonical form.
// The format is strict: "2026-2-28" is rejected, only zero-padded
// "2026-02-28" passes.
func ParseDay(raw string) (string, error) {
	day := strings.TrimSpace(raw)
	if len(day) != len(DayLayout) {
		return "", ErrInvalidDay
	}
	if _, err := time.Parse(DayLayout, day); err != nil {
		return "", ErrInvalidDay
	}
	return day, nil
}
