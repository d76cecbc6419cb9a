package hotwater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func flatDay(price float64) []float64 {
	day := make([]float64, 24)
	for i := range day {
		day[i] = price
	}
	return day
}

func TestWantedTemperatureWithoutPrices(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	assert.Equal(t, 20, o.WantedTemperature(12, time.Wednesday, nil, nil, 15))
	assert.Equal(t, 25, o.WantedTemperature(12, time.Sunday, nil, nil, 15))
	assert.Equal(t, 20, o.WantedTemperature(23, time.Sunday, nil, nil, 15))
}

func TestMorningRampupTowardsCheapestHour(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	// flat prices keep the full morning score but hold the target
	// down since the night ahead is just as cheap
	flat := flatDay(0.50)
	assert.Equal(t, 42, o.WantedTemperature(0, time.Wednesday, flat, nil, 15))

	// a cheap hour 5 concentrates heating there
	day := flatDay(0.50)
	day[5] = 0.10
	var temps []int
	for hour := 0; hour <= 5; hour++ {
		temps = append(temps, o.WantedTemperature(hour, time.Wednesday, day, nil, 15))
	}
	assert.Equal(t, []int{44, 44, 44, 44, 44, 60}, temps)
}

func TestCheapDaytimeLimitsMorningHeating(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	day := flatDay(0.50)
	day[13] = 0.05

	// morning target is held down, daytime carries the full heatup
	morning := o.WantedTemperature(3, time.Wednesday, day, nil, 15)
	assert.Less(t, morning, 50)

	daytime := o.WantedTemperature(13, time.Wednesday, day, nil, 15)
	assert.GreaterOrEqual(t, daytime, 50)
}

func TestPreMidnightPreheat(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	today := flatDay(0.50)
	tomorrow := flatDay(0.90)

	with := o.WantedTemperature(23, time.Wednesday, today, tomorrow, 15)
	without := o.WantedTemperature(23, time.Wednesday, today, nil, 15)
	assert.Equal(t, 8, with-without)
}

func TestHeatLeakLoading(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	day := flatDay(0.20)
	day[10] = 0.05
	day[18] = 0.40 // > 3x the minimum and above the high threshold

	cold := o.WantedTemperature(10, time.Wednesday, day, nil, 2)
	mild := o.WantedTemperature(10, time.Wednesday, day, nil, 15)
	assert.Equal(t, 8, cold-mild)

	// not the cheapest remaining hour
	assert.Equal(t,
		o.WantedTemperature(9, time.Wednesday, day, nil, 15),
		o.WantedTemperature(9, time.Wednesday, day, nil, 2))
}

func TestExtremeColdAlwaysLoadsCheapestHour(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	day := flatDay(0.20)
	day[10] = 0.19 // price spread alone would not trigger loading

	freezing := o.WantedTemperature(10, time.Wednesday, day, nil, -10)
	mild := o.WantedTemperature(10, time.Wednesday, day, nil, 5)
	assert.Equal(t, 8, freezing-mild)
}

func TestLegionellaBoost(t *testing.T) {
	o := New(DefaultConfig())
	day := flatDay(0.50)

	for i := 0; i < 11; i++ {
		o.StartDay()
	}
	// interval exceeded, boost inside the morning window only
	assert.GreaterOrEqual(t, o.WantedTemperature(5, time.Wednesday, day, nil, 15), 65)
	assert.Less(t, o.WantedTemperature(12, time.Wednesday, day, nil, 15), 65)

	// the boost resets the counting on the next day roll
	o.StartDay()
	assert.Less(t, o.WantedTemperature(5, time.Wednesday, day, nil, 15), 65)
}

func TestNudgeDirection(t *testing.T) {
	o := New(DefaultConfig())
	o.StartDay()

	day := flatDay(0.50)
	day[13] = 0.60
	assert.Equal(t, 1, o.NudgeDirection(12, time.Wednesday, day, nil, 15))

	day = flatDay(0.50)
	day[13] = 0.10
	assert.Equal(t, -1, o.NudgeDirection(12, time.Wednesday, day, nil, 15))

	assert.Equal(t, 0, o.NudgeDirection(23, time.Wednesday, day, nil, 15))
	assert.Equal(t, 0, o.NudgeDirection(12, time.Wednesday, nil, nil, 15))
}
