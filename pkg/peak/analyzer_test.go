package peak

import (
	"strings"
	"testing"
	"time"

	"github.com/hemel-se/optimizer/pkg/easee"
	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/hemel-se/optimizer/pkg/weather"
	"github.com/stretchr/testify/assert"
)

// fixtures carry the home timezone the way the tibber API reports
// hours; the report must bucket on it no matter where it runs
func homeZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Stockholm")
	assert.NoError(t, err)
	return loc
}

func node(start time.Time, consumption, unitPrice float64) tibber.ConsumptionNode {
	return tibber.ConsumptionNode{
		From:        start,
		To:          start.Add(time.Hour),
		Consumption: &consumption,
		UnitPrice:   unitPrice,
	}
}

func TestAnalyzeSubtractsEVAndFindsPeaks(t *testing.T) {
	// Wednesday March 4 2026
	day := time.Date(2026, time.March, 4, 0, 0, 0, 0, homeZone(t))
	consumption := []tibber.ConsumptionNode{
		node(day.Add(3*time.Hour), 2.0, 1.0),  // night
		node(day.Add(10*time.Hour), 9.0, 2.0), // high hours, EV charging
		node(day.Add(11*time.Hour), 3.5, 2.0), // high hours
	}
	charger := []easee.HourlyEnergy{
		{Date: day.Add(10 * time.Hour).UTC(), Consumption: 6.0},
	}

	report := Analyze(DefaultConfig(), consumption, charger, nil)

	assert.True(t, report.EVExcluded)
	assert.Equal(t, 6.0, report.EVEnergy)
	assert.Equal(t, 12.0, report.EVCost)
	assert.InDelta(t, 8.5, report.Energy, 0.0001)
	assert.InDelta(t, 2.0+6.0+7.0, report.Cost, 0.0001)

	// month peak keeps EV charging included
	assert.Len(t, report.MonthPeaksInclEV, 1)
	assert.Equal(t, 9.0, report.MonthPeaksInclEV[0].KWhPerHour)

	// high peaks exclude EV, night hour lands among the low peaks
	assert.Equal(t, 3.5, report.HighPeaks[0].KWhPerHour)
	assert.Equal(t, 3.0, report.HighPeaks[1].KWhPerHour)
	assert.Equal(t, 2.0, report.LowPeaks[0].KWhPerHour)

	assert.Equal(t, 1, report.Distribution[10].Samples)
	assert.Equal(t, 3.0, report.Distribution[10].Peak)
}

func TestAnalyzeWeekendIsLowCost(t *testing.T) {
	saturday := time.Date(2026, time.March, 7, 12, 0, 0, 0, homeZone(t))
	report := Analyze(DefaultConfig(), []tibber.ConsumptionNode{node(saturday, 5.0, 1.0)}, nil, nil)

	assert.Empty(t, report.HighPeaks)
	assert.Len(t, report.LowPeaks, 1)
	assert.False(t, report.EVExcluded)
}

func TestAnalyzeSkipsUnreportedHours(t *testing.T) {
	start := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	consumption := []tibber.ConsumptionNode{
		{From: start, To: start.Add(time.Hour)},
	}
	report := Analyze(DefaultConfig(), consumption, nil, nil)
	assert.Zero(t, report.Energy)
	assert.Empty(t, report.MonthPeaksInclEV)
}

const irradianceSample = `Stationsnamn;Klimatnummer
Testby;71415

Datum;Tid (UTC);Global Irradians (svenska stationer);Solskenstid;Kvalitet
2026-03-04;11:00:00;500;3600;G
`

func TestAnalyzeSolarValue(t *testing.T) {
	irr, err := weather.ParseIrradiance(strings.NewReader(irradianceSample))
	assert.NoError(t, err)

	start := time.Date(2026, time.March, 4, 11, 0, 0, 0, time.UTC)
	report := Analyze(DefaultConfig(), []tibber.ConsumptionNode{node(start, 1.0, 2.0)}, nil, irr)

	// 500 W/m2 on 3.6 kW of panels gives 1.8 kW against 1.0 kWh/h used:
	// the full hour is self used and the surplus 0.8 exported
	assert.NotNil(t, report.Solar)
	assert.InDelta(t, 1.0, report.Solar.SelfUsedEnergy, 0.0001)
	assert.InDelta(t, 0.8, report.Solar.ExportedEnergy, 0.0001)
	assert.InDelta(t, 1.6, report.Solar.ExportedValue, 0.0001)
}
