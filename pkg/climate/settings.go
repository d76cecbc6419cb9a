package climate

import (
	"github.com/hemel-se/optimizer/pkg/sensibo"
)

// target temperature offsets
const (
	comfortPlusDelta = 2
	extraOffset      = 1
	normalOffset     = 0
	reducedOffset    = -1
)

// heat pump output at 100% compressor (MSZ-FD35VA)
const (
	heatingWattsAtPlus7   = 6600.0
	heatingWattsAtPlus2   = 5600.0
	heatingWattsAtMinus7  = 5200.0
	heatingWattsAtMinus15 = 4300.0
)

const (
	coldOutdoorTemp          = -0.5 // increased fan speed below
	heatpumpLimitOutdoorTemp = -4.5 // resistive heaters needed below
	extremelyColdOutdoorTemp = -8.0

	maxFloorOverTemperature  = 0.5
	minFloorComfortTemp      = 20.0
	comfortTemperatureHyst   = 0.75 // how far below comfort to aim in idle
	dissipationWattsPerDelta = 193.0
	storedWattHoursPerDelta  = 3000.0
)

var idleSettings = sensibo.Settings{
	On:                true,
	Mode:              "heat",
	HorizontalSwing:   "fixedCenterLeft",
	Swing:             "fixedTop",
	FanLevel:          "medium_high",
	TargetTemperature: 17,
}

var comfortSettings = sensibo.Settings{
	On:                true,
	Mode:              "heat",
	HorizontalSwing:   "fixedCenterLeft",
	Swing:             "fixedTop",
	FanLevel:          "medium_high",
	TargetTemperature: 20,
}

var highHeatSettings = sensibo.Settings{
	On:                true,
	Mode:              "heat",
	HorizontalSwing:   "fixedLeft",
	Swing:             "fixedTop",
	FanLevel:          "high",
	TargetTemperature: 22,
}

var comfortEatingSettings = sensibo.Settings{
	On:                true,
	Mode:              "heat",
	HorizontalSwing:   "fixedCenterRight",
	Swing:             "fixedMiddle",
	FanLevel:          "medium_high",
	TargetTemperature: 21,
}
