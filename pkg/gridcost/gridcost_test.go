package gridcost

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hemel-se/optimizer/pkg/price"
	"github.com/stretchr/testify/assert"
)

type fakePrices struct {
	calls int
}

func (f *fakePrices) Day(_ context.Context, day time.Time) ([]price.Hour, error) {
	f.calls++
	hours := make([]price.Hour, price.DayHours)
	for i := range hours {
		hours[i].Start = day.Add(time.Duration(i) * time.Hour)
		hours[i].End = hours[i].Start.Add(time.Hour)
		if day.Day() == 4 {
			hours[i].SEKPerKWh = float64(i) * 0.1
		} else {
			hours[i].SEKPerKWh = 1.0
		}
	}
	return hours, nil
}

const export = `Datum,Förbrukning (kWh)
2026-03-04 00:00,1.0
2026-03-04 01:00,2.0
2026-03-04 02:00,1.0
2026-03-05 00:00,3.0
`

func TestAnalyze(t *testing.T) {
	prices := &fakePrices{}
	report, err := NewAnalyzer(prices).Analyze(context.Background(), strings.NewReader(export))
	assert.NoError(t, err)

	assert.Equal(t, 2, prices.calls)
	assert.Len(t, report.Days, 2)

	first := report.Days[0]
	assert.InDelta(t, 0.4, first.Cost, 0.0001)
	assert.Equal(t, 1, first.MostExpensiveHour)
	assert.InDelta(t, 0.2, first.MostExpensiveHourCost, 0.0001)

	second := report.Days[1]
	assert.InDelta(t, 3.0, second.Cost, 0.0001)
	assert.Equal(t, 0, second.MostExpensiveHour)

	assert.InDelta(t, 3.4, report.TotalCost, 0.0001)
	assert.Equal(t, first.Day, report.From)
	assert.Equal(t, second.Day, report.To)
}

func TestAnalyzeSkipsLabels(t *testing.T) {
	report, err := NewAnalyzer(&fakePrices{}).Analyze(context.Background(),
		strings.NewReader("Anläggning,123\nDatum,kWh\n"))
	assert.NoError(t, err)
	assert.Empty(t, report.Days)
	assert.Zero(t, report.TotalCost)
}

func TestAnalyzeBadConsumption(t *testing.T) {
	_, err := NewAnalyzer(&fakePrices{}).Analyze(context.Background(),
		strings.NewReader("2026-03-04 00:00,abc\n"))
	assert.Error(t, err)
}
