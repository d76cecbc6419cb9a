package meter

import (
	"time"

	"github.com/hemel-se/optimizer/pkg/tibber"
)

// Data is one reading from a local energy meter, M-Bus or P1.
type Data struct {
	Id          string    `json:"id"`
	Model       string    `json:"model"`
	Time        time.Time `json:"time"`
	Current_W   float64   `json:"w,omitempty"`
	Current_VLL float64   `json:"vll,omitempty"`
	Current_VLN float64   `json:"vln,omitempty"`
	Total_WH    float64   `json:"wh,omitempty"`
	L1_A        float64   `json:"l1_a,omitempty"`
	L2_A        float64   `json:"l2_a,omitempty"`
	L3_A        float64   `json:"l3_a,omitempty"`
	L1_V        float64   `json:"l1_v,omitempty"`
	L2_V        float64   `json:"l2_v,omitempty"`
	L3_V        float64   `json:"l3_v,omitempty"`
}

// AsLiveMeasurement maps a local reading onto the live measurement
// shape the power monitor consumes. Hourly accumulation is not known
// by the meter so those fields stay zero and only the per phase
// current protection applies.
func (d *Data) AsLiveMeasurement() tibber.LiveMeasurement {
	return tibber.LiveMeasurement{
		Timestamp:     d.Time,
		Power:         d.Current_W,
		CurrentL1:     d.L1_A,
		CurrentL2:     d.L2_A,
		CurrentL3:     d.L3_A,
		VoltagePhase1: d.L1_V,
		VoltagePhase2: d.L2_V,
		VoltagePhase3: d.L3_V,
	}
}
