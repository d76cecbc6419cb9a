package app

import "time"

// nextDelay is the wait until the next quarter-hour mark (0, 15, 30,
// 45), the cadence the tank thermostat is reconciled on.
func nextDelay(now time.Time) time.Duration {
	nextQuarter := time.Date(
		now.Year(),
		now.Month(),
		now.Day(),
		now.Hour(),
		(now.Minute()/15+1)*15,
		0,
		0,
		now.Location(),
	)
	return nextQuarter.Sub(now)
}
