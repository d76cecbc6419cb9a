package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PowerW = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "household_power_watts",
		Help: "Current household power draw.",
	})
	PhaseCurrentA = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "household_phase_current_amps",
		Help: "Current per phase.",
	}, []string{"phase"})
	EstimatedHourKWh = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "household_estimated_hour_kwh",
		Help: "Estimated consumption of the running hour.",
	})
	SpotPriceSEK = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spot_price_sek_per_kwh",
		Help: "Spot price of the current hour.",
	})
	WantedWaterTemp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotwater_wanted_temperature_celsius",
		Help: "Hot water temperature currently requested.",
	})
	TankTemp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotwater_tank_temperature_celsius",
		Help: "Measured hot water tank temperature.",
	})
	IndoorTemp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "indoor_temperature_celsius",
		Help: "Measured indoor temperature.",
	})
	RelayPauses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_relay_pauses_total",
		Help: "Times the supervised load was paused over its relay.",
	})
	LoadBackoffs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "monitor_load_backoffs_total",
		Help: "Times the controllable load was asked to back off.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
