package utils

import (
	"time"

	"motorent/internal/config"
)

// WithinBusinessHours reports whether t falls inside the configured
// [open, close) window for its weekday. Pure function of the instant
// and the table; no clock reads.
func WithinBusinessHours(t time.Time, hours map[time.Weekday]config.BusinessWindow) bool {
	window, ok := hours[t.Weekday()]
	if !ok {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= window.OpenMinute && minute < window.CloseMinute
}
