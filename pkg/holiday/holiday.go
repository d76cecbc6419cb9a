package holiday

import (
	"time"
)

// IsSwedishHoliday reports whether day is a Swedish public holiday.
// Only the date part of day is considered.
func IsSwedishHoliday(day time.Time) bool {
	year, month, dayOfMonth := day.Date()

	switch {
	case month == time.January && dayOfMonth == 1: // nyårsdagen
		return true
	case month == time.January && dayOfMonth == 6: // trettondedag jul
		return true
	case month == time.May && dayOfMonth == 1: // första maj
		return true
	case month == time.June && dayOfMonth == 6: // nationaldagen
		return true
	case month == time.December && (dayOfMonth == 25 || dayOfMonth == 26):
		return true
	}

	easter := easterSunday(year, day.Location())
	for _, offset := range []int{-2, 0, 1, 39, 49} {
		if sameDate(day, easter.AddDate(0, 0, offset)) {
			return true
		}
	}

	// midsommardagen, the Saturday between June 20 and 26
	if month == time.June && day.Weekday() == time.Saturday &&
		20 <= dayOfMonth && dayOfMonth <= 26 {
		return true
	}

	// alla helgons dag, the Saturday between October 31 and November 6
	if day.Weekday() == time.Saturday {
		if (month == time.October && dayOfMonth == 31) ||
			(month == time.November && dayOfMonth <= 6) {
			return true
		}
	}

	return false
}

// easterSunday uses the anonymous Gregorian computus.
func easterSunday(year int, loc *time.Location) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dayOfMonth := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), dayOfMonth, 0, 0, 0, 0, loc)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
