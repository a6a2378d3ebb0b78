package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"motorent/internal/config"
)

func TestWithinBusinessHours(t *testing.T) {
	hours := map[time.Weekday]config.BusinessWindow{}
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = config.BusinessWindow{OpenMinute: 8 * 60, CloseMinute: 22 * 60}
	}

	at := func(hour, minute int) time.Time {
		return time.Date(2026, time.September, 7, hour, minute, 0, 0, time.UTC)
	}

	assert.True(t, WithinBusinessHours(at(8, 0), hours), "opening minute is inside")
	assert.True(t, WithinBusinessHours(at(21, 59), hours), "last minute before close is inside")
	assert.False(t, WithinBusinessHours(at(22, 0), hours), "close minute is outside, window is half-open")
	assert.False(t, WithinBusinessHours(at(7, 59), hours))
	assert.False(t, WithinBusinessHours(at(23, 30), hours))
}

func TestWithinBusinessHoursMissingDay(t *testing.T) {
	hours := map[time.Weekday]config.BusinessWindow{
		time.Monday: {OpenMinute: 9 * 60, CloseMinute: 18 * 60},
	}

	monday := time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, time.September, 6, 10, 0, 0, 0, time.UTC)

	assert.True(t, WithinBusinessHours(monday, hours))
	assert.False(t, WithinBusinessHours(sunday, hours), "a day without a window accepts nothing")
}
