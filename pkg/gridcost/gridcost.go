package gridcost

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hemel-se/optimizer/pkg/price"
)

type PriceSource interface {
	Day(ctx context.Context, day time.Time) ([]price.Hour, error)
}

// DayCost is the raw spot cost of one day of metered consumption,
// without certificates, VAT, markup, taxes or grid fees.
type DayCost struct {
	Day  time.Time
	Cost float64
	// MostExpensiveHour is the local hour the priciest consumption
	// started at.
	MostExpensiveHour     int
	MostExpensiveHourCost float64
}

type Report struct {
	From time.Time
	To   time.Time
	Days []DayCost
	// TotalCost is the spot cost of the whole period in SEK.
	TotalCost float64
}

type Analyzer struct {
	prices PriceSource
}

func NewAnalyzer(prices PriceSource) *Analyzer {
	return &Analyzer{prices: prices}
}

// Analyze prices a grid operator hourly consumption CSV export
// against spot prices. Rows not starting with a date are skipped as
// labels. Rows within a day are taken to be hour ordered from
// midnight, the way the exports come when no DST shift is involved.
func (a *Analyzer) Analyze(ctx context.Context, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	report := &Report{}
	var current *DayCost
	var dayPrices []price.Hour
	hour := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(record) < 2 || !strings.HasPrefix(record[0], "20") {
			continue
		}

		day, err := time.ParseInLocation("2006-01-02", strings.Fields(record[0])[0], time.Local)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", record[0], err)
		}
		kwh, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing consumption %q: %w", record[1], err)
		}

		if current == nil || !day.Equal(current.Day) {
			if current != nil {
				report.Days = append(report.Days, *current)
				report.TotalCost += current.Cost
			}
			dayPrices, err = a.prices.Day(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("fetching prices for %s: %w", day.Format("2006-01-02"), err)
			}
			hour = 0
			current = &DayCost{Day: day}
		} else {
			hour++
		}
		if hour >= len(dayPrices) {
			return nil, fmt.Errorf("more consumption rows than prices on %s", day.Format("2006-01-02"))
		}

		cost := kwh * dayPrices[hour].SEKPerKWh
		current.Cost += cost
		if hour == 0 || cost > current.MostExpensiveHourCost {
			current.MostExpensiveHourCost = cost
			current.MostExpensiveHour = hour
		}
	}
	if current != nil {
		report.Days = append(report.Days, *current)
		report.TotalCost += current.Cost
	}
	if len(report.Days) > 0 {
		report.From = report.Days[0].Day
		report.To = report.Days[len(report.Days)-1].Day
	}
	return report, nil
}
