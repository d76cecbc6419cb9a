package climate

import (
	"context"
	"math"
	"time"

	"github.com/hemel-se/optimizer/pkg/holiday"
	"github.com/hemel-se/optimizer/pkg/price"
	"github.com/hemel-se/optimizer/pkg/sensibo"
	"github.com/sirupsen/logrus"
)

// daily schedule, hours in local time
const (
	workdayComfortByHour      = 6
	workdayMorningUntilHour   = 7
	workdayMorningUntilMinute = 30
	idleMonitorFromHour       = 8
	dayoffComfortByHour       = 8
	workdayMorningComfortEnd  = 8
	afternoonComfortByHour    = 16
	dinnerHour                = 17
	workdayComfortUntilHour   = 22
	weekendComfortUntilHour   = 23
)

var schoolDays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
var atHomeDays = []time.Weekday{time.Friday, time.Saturday, time.Sunday}

var retryPause = 5 * time.Minute

// AC is the heat pump remote, satisfied by sensibo.Controller.
type AC interface {
	Apply(ctx context.Context, settings sensibo.Settings, tempOffset int, force bool) error
	LastTargetTemperature() (int, bool)
	ReadTemperature(ctx context.Context) (float64, error)
}

// OutdoorSource reports the current outdoor temperature.
type OutdoorSource interface {
	Outdoor(ctx context.Context) float64
}

// PriceSource fetches day-ahead prices, satisfied by price.Client.
type PriceSource interface {
	Day(ctx context.Context, day time.Time) ([]price.Hour, error)
}

type clock interface {
	now() time.Time
	waitUntil(ctx context.Context, t time.Time) error
}

type wallClock struct{}

func (wallClock) now() time.Time {
	return time.Now()
}

func (wallClock) waitUntil(ctx context.Context, t time.Time) error {
	timer := time.NewTimer(time.Until(t))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Config struct {
	// AtHomeUntil keeps weekend comfort on workdays through this date.
	AtHomeUntil *time.Time

	// IndoorReport, when set, receives every smoothed indoor reading.
	IndoorReport func(float64)
}

// Engine runs the daily heat pump schedule: boost in the cheap morning
// and afternoon hours, ramp toward the comfort periods and back off
// when prices spike.
type Engine struct {
	cfg      Config
	analyzer *price.Analyzer
	prices   PriceSource
	ac       AC
	outdoor  OutdoorSource
	indoor   *indoorTemperature
	clock    clock

	prevMidnight       time.Time
	distributionActive bool
}

func NewEngine(cfg Config, analyzer *price.Analyzer, prices PriceSource, ac AC, outdoor OutdoorSource) *Engine {
	return &Engine{
		cfg:      cfg,
		analyzer: analyzer,
		prices:   prices,
		ac:       ac,
		outdoor:  outdoor,
		indoor:   newIndoorTemperature(ac, cfg.IndoorReport),
		clock:    wallClock{},
	}
}

// Run optimizes day after day until ctx is cancelled. Command errors
// reset the schedule from the current time.
func (e *Engine) Run(ctx context.Context) {
	for {
		err := e.optimize(ctx)
		if ctx.Err() != nil {
			return
		}
		logrus.Errorf("climate: resetting optimizer: %s", err)
		select {
		case <-time.After(retryPause):
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) optimize(ctx context.Context) error {
	now := e.clock.now()
	e.prevMidnight = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	err := e.prepareDay(ctx, e.prevMidnight)
	if err != nil {
		return err
	}
	for {
		err := e.runDay(ctx)
		if err != nil {
			return err
		}
		e.prevMidnight = e.prevMidnight.AddDate(0, 0, 1)
	}
}

// prepareDay feeds the analyzer the prices for day, retrying until
// they are published.
func (e *Engine) prepareDay(ctx context.Context, day time.Time) error {
	for {
		hours, err := e.prices.Day(ctx, day)
		if err == nil {
			e.analyzer.PrepareDay(hours, e.deltaDegreePercent(ctx, comfortPlusDelta))
			return nil
		}
		logrus.Errorf("climate: fetching prices for %s: %s", day.Format("2006-01-02"), err)
		select {
		case <-time.After(retryPause):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *Engine) runDay(ctx context.Context) error {
	day := e.prevMidnight
	isHoliday := holiday.IsSwedishHoliday(day)
	schoolday := containsWeekday(schoolDays, day.Weekday()) && !isHoliday
	workday := !containsWeekday(atHomeDays, day.Weekday()) && !isHoliday
	if e.cfg.AtHomeUntil != nil && !day.After(*e.cfg.AtHomeUntil) {
		workday = false
	}
	logrus.WithFields(logrus.Fields{
		"day":       day.Format("2006-01-02"),
		"workday":   workday,
		"schoolday": schoolday,
	}).Info("climate: optimizing")

	first := price.Span{From: workdayComfortByHour, Until: weekendComfortUntilHour}
	var second *price.Span
	if workday {
		first = price.Span{From: workdayComfortByHour, Until: workdayMorningComfortEnd}
		second = &price.Span{From: afternoonComfortByHour, Until: workdayComfortUntilHour}
	} else if !schoolday {
		first = price.Span{From: dayoffComfortByHour, Until: weekendComfortUntilHour}
	}
	e.analyzer.FindWarmupHours(first, second)

	err := e.ac.Apply(ctx, idleSettings, normalOffset, true)
	if err != nil {
		return err
	}
	err = e.waitForHour(ctx, 0, 0)
	if err != nil {
		return err
	}

	err = e.runBoostRampupToComfort(ctx, 0, e.analyzer.CheapMorningHour(), first.From)
	if err != nil {
		return err
	}
	err = e.manageComfortHours(ctx, []int{first.From}, false)
	if err != nil {
		return err
	}
	err = e.waitForHour(ctx, first.From+1, 0)
	if err != nil {
		return err
	}
	err = e.ac.Apply(ctx, comfortEatingSettings, normalOffset, false)
	if err != nil {
		return err
	}

	if workday {
		err = e.runWorkdaySchedule(ctx)
	} else {
		err = e.manageComfortHours(ctx, hourRange(first.From+2, weekendComfortUntilHour), true)
	}
	if err != nil {
		return err
	}
	err = e.ac.Apply(ctx, idleSettings, normalOffset, false)
	if err != nil {
		return err
	}

	err = e.prepareDay(ctx, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	if e.analyzer.MoreExpensiveAfterMidnight {
		err = e.monitorIdlePeriod(ctx, 22, 23, 24+workdayComfortByHour)
		if err != nil {
			return err
		}
		err = e.managePreBoost(ctx, 23, normalOffset, e.heatingCapacity(ctx, first.From+1))
		if err != nil {
			return err
		}
	}
	return e.monitorIdlePeriod(ctx, 23, 24, 24+workdayComfortByHour)
}

func (e *Engine) runWorkdaySchedule(ctx context.Context) error {
	err := e.waitForHour(ctx, workdayMorningUntilHour, workdayMorningUntilMinute)
	if err != nil {
		return err
	}
	err = e.ac.Apply(ctx, idleSettings, normalOffset, false)
	if err != nil {
		return err
	}

	err = e.runBoostRampupToComfort(ctx, idleMonitorFromHour, e.analyzer.CheapAfternoonHour(), afternoonComfortByHour)
	if err != nil {
		return err
	}
	err = e.manageComfortHours(ctx, []int{afternoonComfortByHour}, false)
	if err != nil {
		return err
	}

	err = e.waitForHour(ctx, dinnerHour, 0)
	if err != nil {
		return err
	}
	err = e.ac.Apply(ctx, comfortEatingSettings, normalOffset, false)
	if err != nil {
		return err
	}
	return e.manageComfortHours(ctx, hourRange(dinnerHour+1, workdayComfortUntilHour), true)
}

// runBoostRampupToComfort idles from idleStart, boosts around the
// cheap boostStart hour and lands at comfort temperature for
// comfortStart.
func (e *Engine) runBoostRampupToComfort(ctx context.Context, idleStart, boostStart, comfortStart int) error {
	wasExtraBoosting := false
	err := e.waitForHour(ctx, idleStart, 0)
	if err != nil {
		return err
	}
	for preBoostHour := idleStart; preBoostHour <= boostStart; preBoostHour++ {
		comfortFavorable := e.analyzer.IsLongtermPreheatFavorable(preBoostHour, comfortStart)
		futureComfortFavorable := e.analyzer.IsLongtermPreheatFavorable(preBoostHour, comfortStart+1) ||
			e.analyzer.IsLongtermPreheatFavorable(preBoostHour, comfortStart+2)

		allowedBoostDegrees := minFloorComfortTemp - e.indoor.current(ctx)
		if comfortFavorable || futureComfortFavorable {
			allowedBoostDegrees += comfortPlusDelta
		}
		preBoostStart := boostStart
		boostCapacity := 0.0
		for boostCapacity < allowedBoostDegrees {
			boostCapacity += e.heatingCapacity(ctx, 1)
			preBoostStart--
			if preBoostStart <= idleStart {
				preBoostStart = idleStart
				break
			}
		}

		if preBoostHour < preBoostStart {
			err = e.monitorIdlePeriod(ctx, preBoostHour, preBoostHour+1, comfortStart)
			if err != nil {
				return err
			}
			continue
		}

		boostOffset := reducedOffset
		if comfortFavorable && futureComfortFavorable {
			boostOffset = extraOffset
			wasExtraBoosting = true
		} else if e.analyzer.IsPreheatFavorable(preBoostHour) ||
			comfortFavorable || futureComfortFavorable ||
			e.outdoor.Outdoor(ctx) < coldOutdoorTemp || wasExtraBoosting {
			wasExtraBoosting = false
			boostOffset = normalOffset
		} else {
			wasExtraBoosting = false
		}
		err = e.managePreBoost(ctx, preBoostHour, boostOffset, e.heatingCapacity(ctx, comfortStart-preBoostHour))
		if err != nil {
			return err
		}
	}
	err = e.waitForHour(ctx, boostStart, 0)
	if err != nil {
		return err
	}
	return e.monitorIdlePeriod(ctx, boostStart+1, comfortStart, comfortStart)
}

// monitorIdlePeriod keeps the home on a ramp toward the next comfort
// period while watching for over temperature.
func (e *Engine) monitorIdlePeriod(ctx context.Context, idleStart, idleEnd, comfortStart int) error {
	if idleStart >= idleEnd {
		logrus.Debugf("skipping idle period monitoring (%d >= %d)", idleStart, idleEnd)
		err := e.waitForHour(ctx, idleStart, 0)
		if err != nil {
			return err
		}
	}
	for pauseHour := idleStart; pauseHour < idleEnd; pauseHour++ {
		for minute := 9; minute < 60; minute += 10 {
			floor := e.indoor.current(ctx)
			if floor >= e.allowedOverTemperature() {
				err := e.manageOverTemperature(ctx)
				if err != nil {
					return err
				}
			} else {
				e.distributionActive = false
				idleEndsInComfort := idleEnd == comfortStart
				if idleEndsInComfort && e.analyzer.IsLongtermPreheatFavorable(pauseHour, comfortStart) {
					err := e.ac.Apply(ctx, highHeatSettings, normalOffset, false)
					if err != nil {
						return err
					}
				} else {
					comfortOffset := comfortTemperatureHyst
					if idleEndsInComfort {
						comfortOffset = 0
					}
					err := e.applyRampupToComfort(ctx, comfortStart-pauseHour, comfortOffset)
					if err != nil {
						return err
					}
				}
			}
			err := e.waitForHour(ctx, pauseHour, minute)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) managePreBoost(ctx context.Context, hour, boostOffset int, heatingCapacity float64) error {
	logrus.Debugf("pre boosting, offset %d capacity %.2f", boostOffset, heatingCapacity)
	err := e.waitForHour(ctx, hour, 0)
	if err != nil {
		return err
	}
	for minute := 9; minute < 60; minute += 10 {
		if e.indoor.current(ctx) >= e.allowedOverTemperature() {
			err = e.ac.Apply(ctx, comfortSettings, normalOffset, false)
		} else {
			setting := highHeatSettings
			setting.TargetTemperature = int(math.Ceil(float64(setting.TargetTemperature+boostOffset) - heatingCapacity))
			if setting.TargetTemperature <= idleSettings.TargetTemperature {
				setting.TargetTemperature = idleSettings.TargetTemperature
			}
			err = e.ac.Apply(ctx, setting, normalOffset, false)
		}
		if err != nil {
			return err
		}
		err = e.waitForHour(ctx, hour, minute)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) manageComfortHours(ctx context.Context, hours []int, idleAfterComfort bool) error {
	for i, comfortHour := range hours {
		err := e.waitForHour(ctx, comfortHour, 0)
		if err != nil {
			return err
		}
		for minute := 9; minute < 60; minute += 10 {
			floor := e.indoor.current(ctx)
			outdoor := e.outdoor.Outdoor(ctx)
			// boost the last ten minutes if the price is about to rise
			preheatFavorable := e.analyzer.IsReasonablyPriced(comfortHour) ||
				(minute == 59 && e.analyzer.IsPreheatFavorable(comfortHour))
			if floor < e.allowedOverTemperature() {
				e.distributionActive = false
			}

			switch {
			case outdoor >= minFloorComfortTemp:
				err = e.ac.Apply(ctx, idleSettings, normalOffset, false)
			case idleAfterComfort && i == len(hours)-1:
				err = e.applyComfortRampout(ctx, floor)
			case floor >= e.allowedOverTemperature():
				err = e.manageOverTemperature(ctx)
			case outdoor > heatpumpLimitOutdoorTemp && e.analyzer.IsReducedComfortHour(comfortHour):
				err = e.ac.Apply(ctx, comfortSettings, reducedOffset, false)
			case outdoor < coldOutdoorTemp:
				err = e.applyColdComfort(ctx, outdoor, preheatFavorable)
			case e.analyzer.IsNextHourCheaper(comfortHour) && minute == 59:
				err = e.ac.Apply(ctx, comfortSettings, reducedOffset, false)
			case floor < minFloorComfortTemp:
				err = e.applyComfortBoost(ctx, comfortHour, minFloorComfortTemp-floor)
			case preheatFavorable:
				err = e.ac.Apply(ctx, comfortSettings, comfortPlusDelta, false)
			default:
				err = e.ac.Apply(ctx, comfortSettings, normalOffset, false)
			}
			if err != nil {
				return err
			}
			err = e.waitForHour(ctx, comfortHour, minute)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) applyComfortBoost(ctx context.Context, comfortHour int, boostDistance float64) error {
	if boostDistance > comfortTemperatureHyst {
		if e.analyzer.IsPreheatFavorable(comfortHour) {
			return e.ac.Apply(ctx, highHeatSettings, normalOffset, false)
		}
		return e.ac.Apply(ctx, comfortSettings, comfortPlusDelta, false)
	}
	if e.analyzer.IsPreheatFavorable(comfortHour) {
		return e.ac.Apply(ctx, comfortSettings, comfortPlusDelta, false)
	}
	return e.ac.Apply(ctx, comfortSettings, extraOffset, false)
}

func (e *Engine) applyColdComfort(ctx context.Context, outdoor float64, preheatFavorable bool) error {
	coldOffset := normalOffset
	if outdoor < extremelyColdOutdoorTemp {
		coldOffset = extraOffset
	} else if outdoor > heatpumpLimitOutdoorTemp && !preheatFavorable {
		coldOffset = reducedOffset
	}
	return e.ac.Apply(ctx, highHeatSettings, coldOffset, false)
}

func (e *Engine) applyComfortRampout(ctx context.Context, floor float64) error {
	if floor > minFloorComfortTemp {
		return e.ac.Apply(ctx, comfortSettings, reducedOffset, false)
	}
	return e.ac.Apply(ctx, comfortSettings, normalOffset, false)
}

// applyRampupToComfort lowers the target just enough that the pump can
// recover it in the remaining hours.
func (e *Engine) applyRampupToComfort(ctx context.Context, hoursRemaining int, rampupOffset float64) error {
	setting := comfortSettings
	if e.outdoor.Outdoor(ctx) <= coldOutdoorTemp {
		setting = highHeatSettings
	}
	setting.TargetTemperature = int(math.Ceil(
		float64(comfortSettings.TargetTemperature) -
			(e.heatingCapacity(ctx, hoursRemaining) + rampupOffset)))
	if setting.TargetTemperature <= idleSettings.TargetTemperature {
		return e.ac.Apply(ctx, idleSettings, normalOffset, false)
	}
	return e.ac.Apply(ctx, setting, normalOffset, false)
}

func (e *Engine) allowedOverTemperature() float64 {
	target := minFloorComfortTemp
	if last, ok := e.ac.LastTargetTemperature(); ok && float64(last) > target {
		target = float64(last)
	}
	target += maxFloorOverTemperature
	return math.Min(target, float64(highHeatSettings.TargetTemperature))
}

// manageOverTemperature spreads already produced heat with the fan
// after one final comfort push.
func (e *Engine) manageOverTemperature(ctx context.Context) error {
	distribution := sensibo.Settings{
		On:                true,
		Mode:              "fan",
		HorizontalSwing:   "fixedLeft",
		Swing:             "fixedTop",
		FanLevel:          "medium",
		TargetTemperature: 16, // ignored in fan mode, needed during restore
	}
	outdoor := e.outdoor.Outdoor(ctx)
	if outdoor < coldOutdoorTemp {
		distribution.FanLevel = "medium_high"
		if outdoor < heatpumpLimitOutdoorTemp {
			distribution.FanLevel = "high"
		}
	}
	if e.distributionActive {
		return e.ac.Apply(ctx, distribution, normalOffset, false)
	}
	var err error
	if outdoor < coldOutdoorTemp {
		err = e.ac.Apply(ctx, comfortSettings, comfortPlusDelta, false)
	} else {
		err = e.ac.Apply(ctx, comfortSettings, normalOffset, false)
	}
	e.distributionActive = true
	return err
}

func interpolateHeatingWatts(outside, upperTemp, lowerTemp, upperWatts, lowerWatts float64) float64 {
	return lowerWatts + (outside-lowerTemp)*((upperWatts-lowerWatts)/(upperTemp-lowerTemp))
}

// heatingCapacity is how many degrees the building can be boosted in
// heatingHours given the pump output and dissipation at the current
// outdoor temperature.
func (e *Engine) heatingCapacity(ctx context.Context, heatingHours int) float64 {
	outside := e.outdoor.Outdoor(ctx)
	deltaTemp := minFloorComfortTemp - outside
	if deltaTemp <= 0 {
		return 100.0
	}
	watts := heatingWattsAtPlus7
	if outside < 7.0 {
		watts = interpolateHeatingWatts(outside, 7, 2, heatingWattsAtPlus7, heatingWattsAtPlus2)
	}
	if outside < 2.0 {
		watts = interpolateHeatingWatts(outside, 2, -7, heatingWattsAtPlus2, heatingWattsAtMinus7)
	}
	if outside < -7.0 {
		watts = interpolateHeatingWatts(outside, -7, -15, heatingWattsAtMinus7, heatingWattsAtMinus15)
	}
	if outside <= -15.0 {
		watts = heatingWattsAtMinus15
	}
	capacity := float64(heatingHours) * ((watts - dissipationWattsPerDelta*deltaTemp) / storedWattHoursPerDelta)
	logrus.Debugf("can boost %.2f degrees in %d hours", capacity, heatingHours)
	if capacity <= 0.0 {
		return 0.0
	}
	return capacity
}

// deltaDegreePercent is the relative extra heat leak per hour of
// holding the home delta degrees warmer.
func (e *Engine) deltaDegreePercent(ctx context.Context, delta float64) float64 {
	deltaDegrees := e.indoor.current(ctx) - e.outdoor.Outdoor(ctx)
	if deltaDegrees > delta {
		return 1 - ((deltaDegrees - delta) / deltaDegrees)
	}
	return 99.0 // effectively disables pre-heating
}

func (e *Engine) waitForHour(ctx context.Context, hour, minute int) error {
	target := e.prevMidnight.Add(
		time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + 35*time.Second)
	err := e.clock.waitUntil(ctx, target)
	if err != nil {
		return err
	}
	logrus.Debugf("at %d:%02d", hour, minute)
	return nil
}

func hourRange(from, until int) []int {
	var hours []int
	for h := from; h < until; h++ {
		hours = append(hours, h)
	}
	return hours
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
