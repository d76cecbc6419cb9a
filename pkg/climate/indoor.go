package climate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hemel-se/optimizer/pkg/metrics"
)

// indoorTemperature smooths the floor sensor by averaging each new
// reading with the previous value and caching it a few minutes.
type indoorTemperature struct {
	ac         AC
	report     func(float64)
	value      float64
	lastUpdate time.Time
}

func newIndoorTemperature(ac AC, report func(float64)) *indoorTemperature {
	return &indoorTemperature{
		ac:     ac,
		report: report,
		value:  minFloorComfortTemp,
	}
}

func (p *indoorTemperature) current(ctx context.Context) float64 {
	if !p.lastUpdate.IsZero() && time.Since(p.lastUpdate) < 5*time.Minute {
		return p.value
	}
	reading, err := p.ac.ReadTemperature(ctx)
	if err != nil {
		logrus.Warnf("ignoring indoor temperature read error, using %.2f: %s", p.value, err)
		return p.value
	}
	p.value = (p.value + reading) / 2
	p.lastUpdate = time.Now()
	metrics.IndoorTemp.Set(p.value)
	if p.report != nil {
		p.report(p.value)
	}
	logrus.Debugf("indoor temperature: %.2f", p.value)
	return p.value
}
