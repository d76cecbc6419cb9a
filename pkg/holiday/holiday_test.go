package holiday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestIsSwedishHoliday(t *testing.T) {
	var tests = []struct {
		name     string
		day      time.Time
		expected bool
	}{
		{"new years day", date(2026, time.January, 1), true},
		{"epiphany", date(2026, time.January, 6), true},
		{"good friday 2026", date(2026, time.April, 3), true},
		{"easter sunday 2026", date(2026, time.April, 5), true},
		{"easter monday 2026", date(2026, time.April, 6), true},
		{"ascension day 2026", date(2026, time.May, 14), true},
		{"whit sunday 2026", date(2026, time.May, 24), true},
		{"first of may", date(2026, time.May, 1), true},
		{"national day", date(2026, time.June, 6), true},
		{"midsummer day 2026", date(2026, time.June, 20), true},
		{"all saints day 2026", date(2026, time.October, 31), true},
		{"all saints day 2025", date(2025, time.November, 1), true},
		{"christmas day", date(2026, time.December, 25), true},
		{"boxing day", date(2026, time.December, 26), true},
		{"plain tuesday", date(2026, time.March, 3), false},
		{"midsummer range non saturday", date(2026, time.June, 23), false},
		{"october 31 on a friday", date(2025, time.October, 31), false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsSwedishHoliday(tt.day))
		})
	}
}

func TestEasterSunday(t *testing.T) {
	assert.Equal(t, date(2025, time.April, 20).Truncate(24*time.Hour), easterSunday(2025, time.UTC))
	assert.Equal(t, date(2026, time.April, 5).Truncate(24*time.Hour), easterSunday(2026, time.UTC))
	assert.Equal(t, date(2027, time.March, 28).Truncate(24*time.Hour), easterSunday(2027, time.UTC))
}
