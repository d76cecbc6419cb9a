package monitor

import (
	"context"
	"strconv"
	"time"

	"github.com/hemel-se/optimizer/pkg/metrics"
	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/sirupsen/logrus"
)

// Config tunes the live power supervision.
type Config struct {
	// SupervisedCircuits are the phases feeding the controllable load.
	SupervisedCircuits   []int
	MinSupervisedCurrent float64
	MainFuseMaxCurrent   float64

	// MinimumLoadMinutes is how long into the hour the controllable
	// load is always left alone.
	MinimumLoadMinutes int
	HourlyKWhBudget    float64

	// margin kept for a household load about to start
	AddedLoadMarginKW       float64
	AddedLoadMarginDuration time.Duration

	FirstHighHour int
	LastHighHour  int // inclusive
}

func DefaultConfig() Config {
	return Config{
		SupervisedCircuits:      []int{1, 2},
		MinSupervisedCurrent:    6.5,
		MainFuseMaxCurrent:      30.0,
		MinimumLoadMinutes:      15,
		HourlyKWhBudget:         4.0,
		AddedLoadMarginKW:       2.3,
		AddedLoadMarginDuration: 15 * time.Minute,
		FirstHighHour:           6,
		LastHighHour:            21,
	}
}

// LoadPauser cuts the controllable load for a while, satisfied by
// relay.Shelly.
type LoadPauser interface {
	PauseLoad(ctx context.Context, d time.Duration) error
}

// Actor backs the hot water tank off for the rest of the hour.
type Actor interface {
	Act(ctx context.Context, minute int) error
}

// Monitor watches live measurements and protects the main fuse and the
// hourly energy budget by pausing the tank heating.
type Monitor struct {
	cfg    Config
	relay  LoadPauser
	action Actor

	actedHour   *int
	pausedUntil time.Time
	now         func() time.Time
}

func New(cfg Config, relay LoadPauser, action Actor) *Monitor {
	return &Monitor{
		cfg:    cfg,
		relay:  relay,
		action: action,
		now:    time.Now,
	}
}

// HandleMeasurement processes one live measurement. It is intended as
// the callback of tibber.SubscribeLiveMeasurement.
func (m *Monitor) HandleMeasurement(ctx context.Context, lm tibber.LiveMeasurement) {
	now := m.now()
	if m.actedHour != nil && *m.actedHour != now.Hour() {
		m.actedHour = nil
	}

	metrics.PowerW.Set(lm.Power)
	metrics.EstimatedHourKWh.Set(lm.EstimatedHourConsumption)
	for phase := 1; phase <= 3; phase++ {
		metrics.PhaseCurrentA.WithLabelValues(strconv.Itoa(phase)).Set(lm.Current(phase))
	}

	minCurrent, maxCurrent, voltSum := m.supervisedLoad(lm)
	supervisedActive := minCurrent > m.cfg.MinSupervisedCurrent
	fuseProtectionNeeded := maxCurrent > m.cfg.MainFuseMaxCurrent
	if !fuseProtectionNeeded && !supervisedActive {
		fuseProtectionNeeded = maxCurrent > m.cfg.MainFuseMaxCurrent-m.cfg.MinSupervisedCurrent
	}

	if fuseProtectionNeeded {
		logrus.WithFields(logrus.Fields{"max": maxCurrent}).Warn("monitor: protecting main fuse")
		m.pauseWithRelay(ctx, 5*time.Minute)
		return
	}

	minimumLoadEnergy := m.cfg.HourlyKWhBudget * float64(m.cfg.MinimumLoadMinutes) / 60.0
	if lm.AccumulatedConsumptionLastHour <= minimumLoadEnergy || now.Minute() <= m.cfg.MinimumLoadMinutes {
		return
	}

	remaining := 60 - now.Minute()
	reservedMinutes := int(m.cfg.AddedLoadMarginDuration.Minutes())
	if remaining < reservedMinutes {
		reservedMinutes = remaining
	}
	reservedEnergy := m.cfg.AddedLoadMarginKW * float64(reservedMinutes) / 60.0
	controllableEnergy := m.cfg.MinSupervisedCurrent * voltSum * (float64(remaining) / 60.0) / 1000.0

	logrus.WithFields(logrus.Fields{
		"supervisedActive": supervisedActive,
		"acted":            m.actedHour != nil,
		"estimated":        lm.EstimatedHourConsumption,
		"reserved":         reservedEnergy,
		"controllable":     controllableEnergy,
	}).Debug("monitor: evaluating")

	actingNeeded := lm.EstimatedHourConsumption+reservedEnergy-controllableEnergy > m.cfg.HourlyKWhBudget &&
		supervisedActive
	if !actingNeeded {
		return
	}

	if m.actedHour != nil {
		// already backed the tank off, keep cutting with the relay
		if m.isHighHour(*m.actedHour) {
			logrus.Info("monitor: acting with relay to reduce power use")
			pause := time.Duration(remaining) * time.Minute
			if pause > 5*time.Minute {
				pause = 5 * time.Minute
			}
			m.pauseWithRelay(ctx, pause)
		}
		return
	}

	hour := now.Hour()
	m.actedHour = &hour
	if !m.isHighHour(hour) {
		logrus.Debug("monitor: ignoring power use during cheap hours")
		return
	}
	logrus.WithFields(logrus.Fields{"estimated": lm.EstimatedHourConsumption}).Info("monitor: acting to reduce power use")
	metrics.LoadBackoffs.Inc()
	if m.action == nil {
		m.pauseWithRelay(ctx, 5*time.Minute)
		return
	}
	err := m.action.Act(ctx, now.Minute())
	if err != nil {
		logrus.Errorf("monitor: acting failed, will retry: %s", err)
		m.actedHour = nil
	}
}

func (m *Monitor) supervisedLoad(lm tibber.LiveMeasurement) (minCurrent, maxCurrent, voltSum float64) {
	for i, circuit := range m.cfg.SupervisedCircuits {
		current := lm.Current(circuit)
		if i == 0 || current < minCurrent {
			minCurrent = current
		}
		if i == 0 || current > maxCurrent {
			maxCurrent = current
		}
		voltSum += lm.Voltage(circuit)
	}
	return minCurrent, maxCurrent, voltSum
}

func (m *Monitor) isHighHour(hour int) bool {
	return m.cfg.FirstHighHour <= hour && hour <= m.cfg.LastHighHour
}

func (m *Monitor) pauseWithRelay(ctx context.Context, d time.Duration) {
	if m.relay == nil {
		return
	}
	metrics.RelayPauses.Inc()
	err := m.relay.PauseLoad(ctx, d)
	if err != nil {
		logrus.Errorf("monitor: acting relay failed: %s", err)
		return
	}
	m.pausedUntil = m.now().Add(d)
}

// LoadPaused reports if a relay pause is still in effect.
func (m *Monitor) LoadPaused() bool {
	return m.now().Before(m.pausedUntil)
}
