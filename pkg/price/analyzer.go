package price

import (
	"sort"

	"github.com/sirupsen/logrus"
)

// Span is a daily comfort period. From is the first comfort hour and
// Until the first hour after it. The price of the Until hour still
// matters when picking reduced comfort hours, so classification treats
// the span as inclusive of Until.
type Span struct {
	From  int
	Until int
}

// AnalyzerConfig holds the price classification thresholds. Raw spot
// prices are in SEK/MWh excl VAT.
type AnalyzerConfig struct {
	// TransferAndTaxPerMWh is added to every consumed MWh regardless
	// of spot price.
	TransferAndTaxPerMWh float64
	ReasonableAbsolute   float64
	// ReasonableAboveLowest accepts hours close enough to the day low.
	ReasonableAboveLowest  float64
	CheapAbsolute          float64
	ReduceComfortAbove     float64
	MaxReducedComfortHours int

	EarliestAfternoonPreheatHour int
	BeginAfternoonHeatingByHour  int
}

func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		TransferAndTaxPerMWh:         634.0,
		ReasonableAbsolute:           750.0,
		ReasonableAboveLowest:        600.0,
		CheapAbsolute:                300.0,
		ReduceComfortAbove:           5500.0,
		MaxReducedComfortHours:       3,
		EarliestAfternoonPreheatHour: 11,
		BeginAfternoonHeatingByHour:  14,
	}
}

// Analyzer classifies the hours of one day of spot prices: which hours
// are cheap enough to boost heating, which are reasonably priced,
// which comfort hours are expensive enough to reduce comfort in, and
// for which hours heating one hour early beats heating on time even
// after the extra heat leakage.
type Analyzer struct {
	cfg AnalyzerConfig

	dayPrices []Hour

	cheapMorningHour    int
	cheapMorningPrice   float64
	hasCheapMorning     bool
	cheapAfternoonHour  int
	cheapAfternoonPrice float64
	hasCheapAfternoon   bool

	reasonablyPriced map[int]bool
	reducedComfort   map[int]bool
	preheatFavorable map[int]bool

	// extra heat leak fraction per hour of holding the home two
	// degrees warmer than needed.
	heatLeakFraction float64

	MoreExpensiveAfterMidnight bool
}

func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// PrepareDay loads the prices for the day about to be optimized.
// heatLeakFraction is the relative extra dissipation per hour of
// pre-heating given the current indoor/outdoor delta.
func (a *Analyzer) PrepareDay(hours []Hour, heatLeakFraction float64) {
	a.heatLeakFraction = heatLeakFraction

	if a.dayPrices != nil && len(hours) >= 3 {
		lowestEarly := hours[0]
		for _, h := range hours[1:3] {
			if SEKPerMWh(h) < SEKPerMWh(lowestEarly) {
				lowestEarly = h
			}
		}
		a.MoreExpensiveAfterMidnight = a.costOfConsumed(SEKPerMWh(lowestEarly)) >
			a.costOfEarlyConsumed(SEKPerMWh(a.dayPrices[len(a.dayPrices)-1]), 1)
		if a.MoreExpensiveAfterMidnight {
			logrus.Info("prepared to boost before midnight")
		}
	}
	a.dayPrices = hours
}

func (a *Analyzer) costOfConsumed(rawPerMWh float64) float64 {
	return a.cfg.TransferAndTaxPerMWh + rawPerMWh
}

func (a *Analyzer) costOfEarlyConsumed(rawPerMWh float64, hoursTooEarly int) float64 {
	return a.costOfConsumed(rawPerMWh) * (1 + a.heatLeakFraction*float64(hoursTooEarly))
}

func (a *Analyzer) CheapMorningHour() int {
	return a.cheapMorningHour
}

func (a *Analyzer) CheapAfternoonHour() int {
	return a.cheapAfternoonHour
}

func (a *Analyzer) IsReducedComfortHour(hour int) bool {
	return a.reducedComfort[hour]
}

func (a *Analyzer) IsReasonablyPriced(hour int) bool {
	return a.reasonablyPriced[hour]
}

func (a *Analyzer) IsPreheatFavorable(hour int) bool {
	return a.preheatFavorable[hour]
}

func (a *Analyzer) IsNextHourCheaper(hour int) bool {
	if hour >= len(a.dayPrices)-1 {
		return true
	}
	return SEKPerMWh(a.dayPrices[hour]) > SEKPerMWh(a.dayPrices[hour+1])
}

// IsLongtermPreheatFavorable reports if consuming now and leaking heat
// until targetHour is still cheaper than consuming at targetHour.
func (a *Analyzer) IsLongtermPreheatFavorable(hour, targetHour int) bool {
	if targetHour <= hour || targetHour >= len(a.dayPrices) {
		return false
	}
	early := a.costOfEarlyConsumed(SEKPerMWh(a.dayPrices[hour]), targetHour-hour)
	onTime := a.costOfConsumed(SEKPerMWh(a.dayPrices[targetHour]))
	return onTime > early
}

type comfortHour struct {
	price float64
	hour  int
}

// FindWarmupHours classifies the prepared day given the comfort spans
// of the schedule. second may be nil on days with a single span.
func (a *Analyzer) FindWarmupHours(first Span, second *Span) {
	a.hasCheapMorning = false
	a.hasCheapAfternoon = false
	a.reasonablyPriced = make(map[int]bool)
	a.preheatFavorable = make(map[int]bool)

	lowest := SEKPerMWh(a.dayPrices[0])
	for _, h := range a.dayPrices[1:] {
		if SEKPerMWh(h) < lowest {
			lowest = SEKPerMWh(h)
		}
	}

	var comfortHours []comfortHour
	prevPrice := 0.0
	havePrev := false
	for idx, h := range a.dayPrices {
		// the price feed carries the market's local offset; keying on
		// it keeps classification independent of the process timezone
		hour := h.Start.Hour()
		raw := SEKPerMWh(h)
		logrus.Debugf("%s @ %.2f SEK/MWh", h.Start, raw)

		inFirst := first.From <= hour && hour <= first.Until
		inSecond := second != nil && second.From <= hour && hour <= second.Until
		if inFirst || inSecond {
			comfortHours = append(comfortHours, comfortHour{price: raw, hour: hour})
		}

		if havePrev && a.costOfConsumed(raw) > a.costOfEarlyConsumed(prevPrice, 1) {
			a.preheatFavorable[hour-1] = true
		}
		a.updateReasonablyPriced(raw, idx, hour, lowest)
		a.updateCheapBoostHours(hour, raw, hour < first.From)

		prevPrice = raw
		havePrev = true
	}
	a.calculateReducedComfortHours(comfortHours)
}

func (a *Analyzer) updateReasonablyPriced(raw float64, idx, hour int, lowest float64) {
	if raw > lowest+a.cfg.ReasonableAboveLowest && raw > a.cfg.ReasonableAbsolute {
		return
	}
	cheaperThanNext := idx+1 < len(a.dayPrices) &&
		(raw <= SEKPerMWh(a.dayPrices[idx+1]) || !a.reasonablyPriced[hour-1])
	if cheaperThanNext || raw <= a.cfg.CheapAbsolute {
		a.reasonablyPriced[hour] = true
	}
}

func (a *Analyzer) updateCheapBoostHours(hour int, raw float64, isMorningHour bool) {
	if isMorningHour {
		if !a.hasCheapMorning || a.costOfConsumed(raw) <
			a.costOfEarlyConsumed(a.cheapMorningPrice, hour-a.cheapMorningHour) {
			a.cheapMorningPrice = raw
			a.cheapMorningHour = hour
			a.hasCheapMorning = true
		}
		return
	}
	if hour < a.cfg.EarliestAfternoonPreheatHour || hour > a.cfg.BeginAfternoonHeatingByHour {
		return
	}
	if !a.hasCheapAfternoon || a.costOfConsumed(raw) <
		a.costOfEarlyConsumed(a.cheapAfternoonPrice, hour-a.cheapAfternoonHour) {
		a.cheapAfternoonPrice = raw
		a.cheapAfternoonHour = hour
		a.hasCheapAfternoon = true
	}
}

func (a *Analyzer) calculateReducedComfortHours(comfortHours []comfortHour) {
	a.reducedComfort = make(map[int]bool)
	sort.Slice(comfortHours, func(i, j int) bool {
		return comfortHours[i].price > comfortHours[j].price
	})
	for _, ch := range comfortHours {
		if ch.price <= a.cfg.ReduceComfortAbove {
			break
		}
		// never reduce comfort two hours in a row
		if a.reducedComfort[ch.hour-1] || a.reducedComfort[ch.hour+1] {
			continue
		}
		a.reducedComfort[ch.hour] = true
		if len(a.reducedComfort) >= a.cfg.MaxReducedComfortHours {
			break
		}
	}
}
