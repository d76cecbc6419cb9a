package evcost

import (
	"context"
	"fmt"
	"time"

	"github.com/hemel-se/optimizer/pkg/easee"
	"github.com/hemel-se/optimizer/pkg/price"
	"github.com/sirupsen/logrus"
)

// The charger bills in its local zone at a fixed +01:00 offset year
// round, so daylight savings is ignored on purpose.
var chargerZone = time.FixedZone("charger", 3600)

const vatScale = 1.25

// Fees holds the non-spot costs of charging, all excluding VAT.
type Fees struct {
	// PerKWh covers transmission, energy tax and certificates.
	PerKWh float64
	// PowerFee is billed per peak kWh/h in the analyzed period.
	PowerFee float64
}

type PriceSource interface {
	Day(ctx context.Context, day time.Time) ([]price.Hour, error)
}

type Report struct {
	Energy         float64
	PeakKWhPerHour float64
	// SpotCost is the plain spot cost in SEK without VAT or fees.
	SpotCost float64
	// TotalCost includes fees, power fee and VAT. Nil when no fees
	// were given.
	TotalCost *float64
}

type Analyzer struct {
	prices PriceSource
}

func NewAnalyzer(prices PriceSource) *Analyzer {
	return &Analyzer{prices: prices}
}

// Summarize prices every charged hour against that day's spot prices
// and totals the period. Day prices are fetched lazily as the charged
// hours move across date boundaries.
func (a *Analyzer) Summarize(ctx context.Context, hours []easee.HourlyEnergy, fees *Fees) (*Report, error) {
	report := &Report{}
	var priceDay time.Time
	var dayPrices []price.Hour
	for _, h := range hours {
		if h.Consumption == 0.0 {
			continue
		}
		if h.Consumption > report.PeakKWhPerHour {
			report.PeakKWhPerHour = h.Consumption
		}
		report.Energy += h.Consumption

		local := h.Date.In(chargerZone)
		y, m, d := local.Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, chargerZone)
		if dayPrices == nil || !day.Equal(priceDay) {
			var err error
			dayPrices, err = a.prices.Day(ctx, day)
			if err != nil {
				return nil, fmt.Errorf("fetching prices for %s: %w", day.Format("2006-01-02"), err)
			}
			priceDay = day
		}
		if local.Hour() >= len(dayPrices) {
			return nil, fmt.Errorf("no price for hour %d on %s", local.Hour(), day.Format("2006-01-02"))
		}

		cost := h.Consumption * dayPrices[local.Hour()].SEKPerKWh
		logrus.WithFields(logrus.Fields{
			"hour": local,
			"kwh":  h.Consumption,
			"cost": cost,
		}).Debug("charged hour")
		report.SpotCost += cost
	}

	if fees != nil {
		total := (fees.PerKWh*report.Energy + report.SpotCost +
			report.PeakKWhPerHour*fees.PowerFee) * vatScale
		report.TotalCost = &total
	}
	return report, nil
}
