package tibber

import "time"

type Home struct {
	ID          string `json:"id"`
	AppNickname string `json:"appNickname"`
}

type Viewer struct {
	Name                     string `json:"name"`
	Homes                    []Home `json:"homes"`
	WebsocketSubscriptionURL string `json:"websocketSubscriptionUrl"`
}

// ConsumptionNode is one hour of historic consumption. Consumption is
// nil for hours the meter has not reported yet.
type ConsumptionNode struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Consumption *float64  `json:"consumption"`
	UnitPrice   float64   `json:"unitPrice"`
	Cost        float64   `json:"cost"`
}

// LiveMeasurement is one sample from the realtime subscription.
type LiveMeasurement struct {
	Timestamp                      time.Time `json:"timestamp"`
	Power                          float64   `json:"power"`
	AccumulatedConsumptionLastHour float64   `json:"accumulatedConsumptionLastHour"`
	EstimatedHourConsumption       float64   `json:"estimatedHourConsumption"`
	CurrentL1                      float64   `json:"currentL1"`
	CurrentL2                      float64   `json:"currentL2"`
	CurrentL3                      float64   `json:"currentL3"`
	VoltagePhase1                  float64   `json:"voltagePhase1"`
	VoltagePhase2                  float64   `json:"voltagePhase2"`
	VoltagePhase3                  float64   `json:"voltagePhase3"`
}

// Current returns the current on phase 1-3.
func (m LiveMeasurement) Current(phase int) float64 {
	switch phase {
	case 1:
		return m.CurrentL1
	case 2:
		return m.CurrentL2
	case 3:
		return m.CurrentL3
	}
	return 0
}

// Voltage returns the voltage on phase 1-3.
func (m LiveMeasurement) Voltage(phase int) float64 {
	switch phase {
	case 1:
		return m.VoltagePhase1
	case 2:
		return m.VoltagePhase2
	case 3:
		return m.VoltagePhase3
	}
	return 0
}
