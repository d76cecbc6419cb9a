package peak

import (
	"sort"
	"time"

	"github.com/hemel-se/optimizer/pkg/easee"
	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/hemel-se/optimizer/pkg/weather"
)

// Config tunes the peak power analysis.
type Config struct {
	FirstHighHour int
	LastHighHour  int // inclusive

	InstalledPanelKW float64
	// IrradianceFull is the W/m2 giving full panel production,
	// IrradianceMin the minimum for any production at all.
	IrradianceFull float64
	IrradianceMin  float64

	TopPeaks int
}

func DefaultConfig() Config {
	return Config{
		FirstHighHour:    6,
		LastHighHour:     21,
		InstalledPanelKW: 8 * 0.45,
		IrradianceFull:   1000,
		IrradianceMin:    140,
		TopPeaks:         10,
	}
}

// Peak is one kWh/h level and every hour it occurred at.
type Peak struct {
	KWhPerHour float64
	Times      []time.Time
}

// MonthPeak is the highest consumption hour of a month, EV charging
// included since that is what the grid company bills power fees for.
type MonthPeak struct {
	Month      time.Month
	KWhPerHour float64
	At         time.Time
}

type HourStat struct {
	Average float64
	Peak    float64
	Samples int
}

// Solar values an imagined panel installation against the consumption.
type Solar struct {
	ExportedEnergy  float64
	ExportedValue   float64
	SelfUsedEnergy  float64
	SelfUsedValue   float64
	LastObservation time.Time
}

type Report struct {
	From time.Time
	To   time.Time

	MonthPeaksInclEV []MonthPeak
	Energy           float64
	Cost             float64

	EVExcluded bool
	EVEnergy   float64
	EVCost     float64

	// HighPeaks are weekday daytime peaks, the hours power fees are
	// usually based on. LowPeaks are nights, weekends and holidays.
	HighPeaks []Peak
	LowPeaks  []Peak

	Distribution [24]HourStat

	Solar *Solar
}

// Analyze scans hourly consumption, subtracts EV charging when given
// and finds the peak hours and the per-hour distribution. chargerHours
// and irradiance may be nil.
func Analyze(cfg Config, consumption []tibber.ConsumptionNode, chargerHours []easee.HourlyEnergy, irradiance *weather.Irradiance) *Report {
	report := &Report{
		EVExcluded: chargerHours != nil,
	}
	if irradiance != nil {
		report.Solar = &Solar{LastObservation: irradiance.Last()}
	}
	if len(consumption) > 0 {
		report.From = consumption[0].From
		report.To = consumption[len(consumption)-1].To
	}

	evByHour := make(map[time.Time]float64, len(chargerHours))
	for _, h := range chargerHours {
		evByHour[h.Date.UTC()] = h.Consumption
	}

	monthPeaks := make(map[time.Month]MonthPeak)
	highPeaks := make(map[float64][]time.Time)
	lowPeaks := make(map[float64][]time.Time)
	hourSamples := make(map[int][]float64)

	for _, sample := range consumption {
		if sample.Consumption == nil {
			continue
		}
		power := *sample.Consumption
		// tibber reports hours in the home's own offset; bucketing on
		// it keeps the report independent of the process timezone
		local := sample.From
		month := local.Month()
		if peak, ok := monthPeaks[month]; !ok || power > peak.KWhPerHour {
			monthPeaks[month] = MonthPeak{Month: month, KWhPerHour: power, At: local}
		}

		if report.Solar != nil {
			addSolar(cfg, report.Solar, sample, irradiance)
		}

		if ev, ok := evByHour[sample.From.UTC()]; ok {
			power -= ev
			report.EVEnergy += ev
			report.EVCost += ev * sample.UnitPrice
		}

		if local.Weekday() != time.Saturday && local.Weekday() != time.Sunday &&
			cfg.FirstHighHour <= local.Hour() && local.Hour() <= cfg.LastHighHour {
			highPeaks[power] = append(highPeaks[power], local)
		} else {
			lowPeaks[power] = append(lowPeaks[power], local)
		}
		hourSamples[local.Hour()] = append(hourSamples[local.Hour()], power)

		report.Energy += power
		report.Cost += power * sample.UnitPrice
	}

	for _, peak := range monthPeaks {
		report.MonthPeaksInclEV = append(report.MonthPeaksInclEV, peak)
	}
	sort.Slice(report.MonthPeaksInclEV, func(i, j int) bool {
		return report.MonthPeaksInclEV[i].At.Before(report.MonthPeaksInclEV[j].At)
	})

	report.HighPeaks = topPeaks(highPeaks, cfg.TopPeaks)
	report.LowPeaks = topPeaks(lowPeaks, cfg.TopPeaks)

	for hour := 0; hour < 24; hour++ {
		samples := hourSamples[hour]
		if len(samples) == 0 {
			continue
		}
		stat := HourStat{Samples: len(samples)}
		for _, s := range samples {
			stat.Average += s
			if s > stat.Peak {
				stat.Peak = s
			}
		}
		stat.Average /= float64(len(samples))
		report.Distribution[hour] = stat
	}

	return report
}

// addSolar estimates export and self use for one hour given the
// irradiance observed that hour.
func addSolar(cfg Config, solar *Solar, sample tibber.ConsumptionNode, irradiance *weather.Irradiance) {
	obs, ok := irradiance.At(sample.From.UTC())
	if !ok {
		return
	}
	irrPower := obs.Irradiance
	if irrPower > cfg.IrradianceFull {
		irrPower = cfg.IrradianceFull
	}
	if irrPower <= cfg.IrradianceMin {
		return
	}
	power := *sample.Consumption
	if power <= 0 {
		return
	}
	solarPower := irrPower / cfg.IrradianceFull * cfg.InstalledPanelKW
	selfUse := power * obs.SunshineSeconds / 3600
	utilization := solarPower / power
	export := 0.0
	if utilization > 1 {
		export = (utilization - 1) * obs.SunshineSeconds / 3600
	} else {
		selfUse *= utilization
	}
	solar.ExportedEnergy += export
	solar.ExportedValue += export * sample.UnitPrice
	solar.SelfUsedEnergy += selfUse
	solar.SelfUsedValue += selfUse * sample.UnitPrice
}

func topPeaks(peaks map[float64][]time.Time, count int) []Peak {
	levels := make([]float64, 0, len(peaks))
	for level := range peaks {
		levels = append(levels, level)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(levels)))
	if len(levels) > count {
		levels = levels[:count]
	}
	result := make([]Peak, 0, len(levels))
	for _, level := range levels {
		result = append(result, Peak{KWhPerHour: level, Times: peaks[level]})
	}
	return result
}
