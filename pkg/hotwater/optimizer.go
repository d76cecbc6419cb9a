package hotwater

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config tunes the hot water tank optimization. Prices are EUR/kWh.
type Config struct {
	// COPFactor values tank heat leakage against heating the home
	// with the heat pump instead.
	COPFactor              float64
	HeatLeakValueThreshold float64
	// ExtremeColdThreshold makes heat leakage always worth loading.
	ExtremeColdThreshold float64
	// MaxHoursNeededToHeat times DegreesPerHour should exceed
	// MinDailyTemp minus the idle temperature.
	MaxHoursNeededToHeat   int
	DegreesPerHour         int
	LastMorningHeatingHour int
	DailyComfortLastHour   int
	IdleTemp               int
	MinDailyTemp           int
	MinLegionellaTemp      int
	// LegionellaInterval is the max number of days between hitting
	// MinLegionellaTemp.
	LegionellaInterval   int
	ExtraTakeoutWeekdays []time.Weekday
	HighPriceThreshold   float64
}

func DefaultConfig() Config {
	return Config{
		COPFactor:              3,
		HeatLeakValueThreshold: 10,
		ExtremeColdThreshold:   -8,
		MaxHoursNeededToHeat:   4,
		DegreesPerHour:         8,
		LastMorningHeatingHour: 6,
		DailyComfortLastHour:   21,
		IdleTemp:               20,
		MinDailyTemp:           50,
		MinLegionellaTemp:      65,
		LegionellaInterval:     10,
		ExtraTakeoutWeekdays:   []time.Weekday{time.Sunday},
		HighPriceThreshold:     0.30,
	}
}

// Optimizer decides the hot water tank thermostat setting hour by hour
// so heating lands on the cheap hours while hot water comfort and
// legionella safety are kept.
type Optimizer struct {
	cfg Config

	daysSinceLegionella    int
	pendingLegionellaReset bool
}

func New(cfg Config) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// StartDay rolls the legionella day counting at local midnight.
func (o *Optimizer) StartDay() {
	if o.pendingLegionellaReset {
		o.daysSinceLegionella = 0
		o.pendingLegionellaReset = false
	}
	o.daysSinceLegionella++
}

// WantedTemperature returns the thermostat target for localHour.
// todayCost is empty when prices could not be fetched, which falls
// back to the idle temperature. tomorrowCost is empty before
// publication.
func (o *Optimizer) WantedTemperature(localHour int, weekday time.Weekday, todayCost, tomorrowCost []float64, outsideTemp float64) int {
	wanted := o.cfg.IdleTemp

	if len(todayCost) == 24 {
		wanted = o.optimizedTemperature(localHour, todayCost, tomorrowCost, outsideTemp)
	}

	if o.isExtraTakeoutDay(weekday) && localHour <= o.cfg.DailyComfortLastHour {
		wanted += 5
	}

	wanted = o.applyLegionella(localHour, wanted)
	return wanted
}

func (o *Optimizer) isExtraTakeoutDay(weekday time.Weekday) bool {
	for _, d := range o.cfg.ExtraTakeoutWeekdays {
		if d == weekday {
			return true
		}
	}
	return false
}

// applyLegionella forces legionella temperature in the last morning
// heating hours when the interval has been exceeded.
func (o *Optimizer) applyLegionella(localHour, wanted int) int {
	if o.daysSinceLegionella > o.cfg.LegionellaInterval &&
		o.cfg.LastMorningHeatingHour-2 <= localHour && localHour <= o.cfg.LastMorningHeatingHour {
		if wanted < o.cfg.MinLegionellaTemp {
			wanted = o.cfg.MinLegionellaTemp
		}
	}
	if wanted >= o.cfg.MinLegionellaTemp {
		o.pendingLegionellaReset = true
	}
	return wanted
}

func (o *Optimizer) optimizedTemperature(localHour int, todayCost, tomorrowCost []float64, outsideTemp float64) int {
	wanted := o.cfg.IdleTemp
	logrus.Debugf("%d:00 the hour cost is %.4f EUR/kWh", localHour, todayCost[localHour])

	if o.cfg.MaxHoursNeededToHeat <= localHour && localHour <= o.cfg.DailyComfortLastHour {
		if todayCost[localHour] < o.cfg.HighPriceThreshold {
			wanted += 5 // slightly raise hot water takeout capacity
		}
		if localHour < 23 && todayCost[localHour] < todayCost[localHour+1] {
			// better to trigger low temp heating now than later
			wanted += 3
			if localHour < 22 && todayCost[localHour+1] < todayCost[localHour+2] {
				wanted += 2
			}
		}
	}
	if len(tomorrowCost) > 1 && localHour == 23 &&
		(todayCost[23] < tomorrowCost[0] || todayCost[23] < tomorrowCost[1]) {
		wanted += o.cfg.DegreesPerHour // pre-heat before midnight
	}
	if o.cheapestHourDuringDaytime(todayCost) {
		wanted += o.cfg.DegreesPerHour * o.cheapScoreUntil(localHour, o.cfg.DailyComfortLastHour, todayCost)
	}
	if localHour <= o.cfg.LastMorningHeatingHour {
		if o.nextNightIsCheaper(todayCost) {
			// limit morning heating
			wanted = o.cfg.MinDailyTemp - o.cfg.DegreesPerHour*o.cfg.MaxHoursNeededToHeat
		}
		if o.cheapestHourDuringDaytime(todayCost) {
			// limit morning heating more when daytime is cheap
			wanted = o.cfg.MinDailyTemp - o.cfg.DegreesPerHour*(o.cfg.MaxHoursNeededToHeat+1)
		}
		wanted += o.cfg.DegreesPerHour * o.cheapScoreUntil(localHour, o.cfg.LastMorningHeatingHour, todayCost)
	}
	if outsideTemp < o.cfg.HeatLeakValueThreshold &&
		o.heatLeakLoadingDesired(localHour, todayCost, tomorrowCost, outsideTemp) {
		wanted += o.cfg.DegreesPerHour // heat leakage is valuable now
	}
	return wanted
}

// cheapScoreUntil scores how many of the remaining cheap hours before
// untilHour the current hour belongs to. The score scales the heating
// curve: MaxHoursNeededToHeat at the cheapest hour, ramping so the
// tank is fully heated by the cheapest completion hour.
func (o *Optimizer) cheapScoreUntil(nowHour, untilHour int, todayCost []float64) int {
	nowPrice := todayCost[nowHour]
	cheapestHour := 0
	cheapestPrice := todayCost[0]
	score := o.cfg.MaxHoursNeededToHeat
	if nowHour > untilHour {
		score = 0
	}
	for scan := 0; scan <= untilHour; scan++ {
		if todayCost[scan] < nowPrice {
			score--
		}
		if todayCost[scan] < cheapestPrice {
			cheapestPrice = todayCost[scan]
			cheapestHour = scan
		}
	}
	rampupHours := o.cfg.MaxHoursNeededToHeat - 1
	if cheapestHour < rampupHours {
		// secure sufficient rampup time
		cheapestHour = rampupHours
		cheapestPrice = todayCost[untilHour]
		bound := cheapestHour
		for scan := nowHour; scan < bound; scan++ {
			if todayCost[scan] < cheapestPrice {
				cheapestPrice = todayCost[scan]
				cheapestHour = scan
			}
		}
	}

	if nowHour <= cheapestHour {
		if rampupHours <= cheapestHour && cheapestHour < 23 {
			// check if delaying completion one hour is beneficial
			firstHeatingHour := cheapestHour - rampupHours
			defaultCost := sum(todayCost[firstHeatingHour:cheapestHour])
			movedCost := sum(todayCost[firstHeatingHour+1 : cheapestHour+1])
			if movedCost < defaultCost {
				logrus.Debugf("delaying heatup saves %.4f EUR", defaultCost-movedCost)
				cheapestHour++
			}
		}
		// secure rampup before the completion hour
		if s := o.cfg.MaxHoursNeededToHeat - (cheapestHour - nowHour); s > score {
			score = s
		}
	}
	logrus.Debugf("score given: %d", score)
	if score < 0 {
		return 0
	}
	return score
}

func (o *Optimizer) nextNightIsCheaper(todayCost []float64) bool {
	minPrice := todayCost[0]
	for i := 1; i < len(todayCost); i++ {
		if todayCost[i] <= minPrice {
			minPrice = todayCost[i]
			if i >= o.cfg.DailyComfortLastHour {
				return true
			}
		}
	}
	return false
}

func (o *Optimizer) cheapestHourDuringDaytime(todayCost []float64) bool {
	minPrice := todayCost[0]
	for i := 1; i < o.cfg.DailyComfortLastHour; i++ {
		if todayCost[i] <= minPrice {
			minPrice = todayCost[i]
			if i > o.cfg.LastMorningHeatingHour {
				return true
			}
		}
	}
	return false
}

// heatLeakLoadingDesired reports if this is the cheapest hour before a
// significantly more expensive stretch, making tank heat leakage into
// the home worth pre-loading.
func (o *Optimizer) heatLeakLoadingDesired(localHour int, todayCost, tomorrowCost []float64, outdoorTemp float64) bool {
	maxPrice := todayCost[localHour]
	minPrice := todayCost[localHour]
	nowPrice := todayCost[localHour]
	for hour := localHour + 1; hour < 24; hour++ {
		if maxPrice < todayCost[hour] {
			maxPrice = todayCost[hour]
		}
		if minPrice > todayCost[hour] {
			minPrice = todayCost[hour]
		}
	}
	for _, p := range tomorrowCost {
		if p > maxPrice {
			maxPrice = p
		}
	}
	if outdoorTemp <= o.cfg.ExtremeColdThreshold ||
		(maxPrice > minPrice*o.cfg.COPFactor && maxPrice > o.cfg.HighPriceThreshold) {
		return nowPrice == minPrice
	}
	return false
}

// NudgeDirection decides the between-hour thermostat nudge: +1 when the
// next hour is more expensive and will not want a higher temperature,
// -1 when the next hour is cheaper and will not want a lower one.
func (o *Optimizer) NudgeDirection(localHour int, weekday time.Weekday, todayCost, tomorrowCost []float64, outsideTemp float64) int {
	if localHour >= 23 || len(todayCost) < 24 {
		return 0
	}
	wanted := o.WantedTemperature(localHour, weekday, todayCost, tomorrowCost, outsideTemp)
	nextWanted := o.WantedTemperature(localHour+1, weekday, todayCost, tomorrowCost, outsideTemp)
	if nextWanted >= wanted && todayCost[localHour+1] < todayCost[localHour] {
		return -1
	}
	if nextWanted <= wanted && todayCost[localHour+1] > todayCost[localHour] {
		return 1
	}
	return 0
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
