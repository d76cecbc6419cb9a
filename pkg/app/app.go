package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"github.com/sirupsen/logrus"

	"github.com/hemel-se/optimizer/pkg/alarm"
	"github.com/hemel-se/optimizer/pkg/climate"
	"github.com/hemel-se/optimizer/pkg/config"
	"github.com/hemel-se/optimizer/pkg/controller"
	"github.com/hemel-se/optimizer/pkg/controller/dummy"
	"github.com/hemel-se/optimizer/pkg/controller/heater"
	"github.com/hemel-se/optimizer/pkg/controller/servo"
	"github.com/hemel-se/optimizer/pkg/hotwater"
	"github.com/hemel-se/optimizer/pkg/mbus"
	"github.com/hemel-se/optimizer/pkg/meter"
	"github.com/hemel-se/optimizer/pkg/metrics"
	"github.com/hemel-se/optimizer/pkg/modbusclient"
	"github.com/hemel-se/optimizer/pkg/monitor"
	"github.com/hemel-se/optimizer/pkg/mqtt"
	"github.com/hemel-se/optimizer/pkg/price"
	"github.com/hemel-se/optimizer/pkg/relay"
	"github.com/hemel-se/optimizer/pkg/sensibo"
	"github.com/hemel-se/optimizer/pkg/state"
	"github.com/hemel-se/optimizer/pkg/tibber"
	"github.com/hemel-se/optimizer/pkg/weather"
)

const mbusReadInterval = 30 * time.Second

// App wires the optimizers, the power monitor and the meter readers
// together and runs them until the context is cancelled.
type App struct {
	wg     *sync.WaitGroup
	config *config.CliConfig

	prices  *price.Client
	outdoor *weather.TemperatureProvider
	alarms  *alarm.ActiveAlarms
	state   *state.Cache

	thermostat controller.Thermostat
	heater     *heater.Heater
	water      *hotwater.Optimizer

	monitor    *monitor.Monitor
	meterCache *meter.Cache

	pricesDay time.Time
	today     []price.Hour
	tomorrow  []price.Hour

	now func() time.Time
}

func New(config *config.CliConfig) *App {
	return &App{
		wg:         &sync.WaitGroup{},
		config:     config,
		alarms:     &alarm.ActiveAlarms{},
		state:      &state.Cache{},
		meterCache: &meter.Cache{},
		water:      hotwater.New(hotwater.DefaultConfig()),
		now:        time.Now,
	}
}

func (a *App) Start(ctx context.Context) error {
	err := a.config.LoadToken()
	if err != nil {
		return fmt.Errorf("error loading tibber token: %w", err)
	}
	err = a.config.LoadSensiboToken()
	if err != nil {
		return fmt.Errorf("error loading sensibo token: %w", err)
	}

	a.prices = price.NewClient(a.config.PriceRegion)
	if a.config.PriceBaseURL != "" {
		a.prices.BaseURL = a.config.PriceBaseURL
	}
	a.outdoor = weather.NewTemperatureProvider(a.config.OutdoorFallback, a.config.OutdoorURLs...)

	err = a.setupThermostat()
	if err != nil {
		return err
	}
	if a.thermostat != nil {
		a.wg.Add(1)
		go a.hotWaterLoop(ctx)
	}

	a.setupMonitor()
	if a.monitor != nil && a.config.TibberHomeID != "" && a.config.Token() != "" {
		a.wg.Add(1)
		go a.tibberLoop(ctx)
	}

	if a.config.TibberEmail != "" && a.config.TibberPassword != "" &&
		a.config.TibberHomeID != "" && a.config.TibberPulseDevice != "" {
		reward := monitor.NewRewardMaximizer(
			tibber.NewAppClient(a.config.TibberEmail, a.config.TibberPassword),
			a.config.TibberHomeID, a.config.TibberPulseDevice, a.config.RewardBudgetKWh)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			reward.Run(ctx)
		}()
	}

	err = a.startMeters(ctx)
	if err != nil {
		return err
	}

	err = a.startClimate(ctx)
	if err != nil {
		return err
	}

	if a.config.MetricsAddress != "" {
		a.startHTTP(ctx)
	}
	return nil
}

func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) setupThermostat() error {
	switch a.config.Thermostat {
	case "servo":
		a.thermostat = servo.New(a.config.ThermostatAddress)
	case "heater":
		handler := modbus.NewTCPClientHandler(a.config.ThermostatAddress)
		client := modbusclient.New(modbus.NewClient(handler), handler.Close)
		h := heater.New(client, a.config.ThermostatReadonly)
		a.heater = h
		a.thermostat = h
	case "dummy":
		a.thermostat = dummy.New()
	case "":
	default:
		return fmt.Errorf("unknown thermostat type: %s", a.config.Thermostat)
	}
	return nil
}

func (a *App) setupMonitor() {
	if a.config.TankBackoffURL == "" && a.config.RelayURL == "" {
		return
	}
	var pauser monitor.LoadPauser
	if a.config.RelayURL != "" {
		pauser = relay.New(a.config.RelayURL)
	}
	var action monitor.Actor
	if a.config.TankBackoffURL != "" {
		action = &monitor.TankAction{URL: a.config.TankBackoffURL}
	}
	a.monitor = monitor.New(monitor.DefaultConfig(), pauser, action)
}

// hotWaterLoop reconciles the tank thermostat once per quarter hour.
// The first quarter of each hour sets the wanted temperature, the
// rest nudge it after price swings.
func (a *App) hotWaterLoop(ctx context.Context) {
	defer a.wg.Done()
	a.DoReconcile(ctx)
	delay := nextDelay(a.now())
	logrus.Debug("scheduling next hot water run in ", delay)
	timer := time.NewTimer(delay)
	for {
		select {
		case <-timer.C:
			timer.Reset(nextDelay(a.now()))
			if a.now().Minute() < 15 {
				a.DoReconcile(ctx)
			} else {
				a.nudge(ctx)
			}
		case <-ctx.Done():
			return
		}
	}
}

// DoReconcile fetches prices as needed and sets the wanted tank
// temperature for the current hour.
func (a *App) DoReconcile(ctx context.Context) {
	now := a.now()
	if !a.refreshPrices(ctx, now) {
		return
	}

	outdoor := a.outdoor.Outdoor(ctx)
	wanted := a.water.WantedTemperature(now.Hour(), now.Weekday(), price.EUR(a.today), price.EUR(a.tomorrow), outdoor)

	err := a.thermostat.SetTemperature(ctx, wanted)
	if err != nil {
		logrus.Errorf("setting tank temperature: %s", err)
		if a.alarms.Add("thermostat unreachable") {
			logrus.Warn("raised alarm: thermostat unreachable")
		}
		a.setAlarmState()
		return
	}
	a.alarms.Clear()
	a.setAlarmState()

	spot := a.today[now.Hour()].SEKPerKWh
	metrics.SpotPriceSEK.Set(spot)
	metrics.WantedWaterTemp.Set(float64(wanted))
	wf := float64(wanted)
	a.state.Update(func(s *state.State) {
		s.Outdoor = &outdoor
		s.SpotPrice = &spot
		s.WantedTankTemperature = &wf
	})
	a.readTank()
}

func (a *App) nudge(ctx context.Context) {
	now := a.now()
	if !a.refreshPrices(ctx, now) {
		return
	}
	outdoor := a.outdoor.Outdoor(ctx)
	var err error
	switch a.water.NudgeDirection(now.Hour(), now.Weekday(), price.EUR(a.today), price.EUR(a.tomorrow), outdoor) {
	case 1:
		err = a.thermostat.NudgeUp(ctx)
	case -1:
		err = a.thermostat.NudgeDown(ctx)
	}
	if err != nil {
		logrus.Errorf("nudging tank temperature: %s", err)
	}
	a.readTank()
}

func (a *App) readTank() {
	if a.heater == nil {
		return
	}
	temp, err := a.heater.TankTemperature()
	if err != nil {
		logrus.Errorf("reading tank temperature: %s", err)
		return
	}
	if temp == nil {
		return
	}
	metrics.TankTemp.Set(*temp)
	a.state.Update(func(s *state.State) {
		s.TankTemperature = temp
	})
}

// refreshPrices keeps today's and tomorrow's spot prices current and
// rolls the optimizer day state at midnight.
func (a *App) refreshPrices(ctx context.Context, now time.Time) bool {
	if !sameDay(a.pricesDay, now) {
		today, err := a.prices.Day(ctx, now)
		if err != nil {
			logrus.Errorf("fetching prices: %s", err)
			if a.alarms.Add("price fetch failed") {
				logrus.Warn("raised alarm: price fetch failed")
			}
			a.setAlarmState()
			return false
		}
		a.water.StartDay()
		a.today = today
		a.tomorrow = nil
		a.pricesDay = now
	}
	if a.tomorrow == nil && now.Hour() >= 14 {
		tomorrow, err := a.prices.Day(ctx, now.AddDate(0, 0, 1))
		if err != nil && !errors.Is(err, price.ErrNotPublished) {
			logrus.Errorf("fetching tomorrows prices: %s", err)
		}
		a.tomorrow = tomorrow
	}
	return true
}

// tibberLoop keeps the live measurement subscription alive and feeds
// the power monitor.
func (a *App) tibberLoop(ctx context.Context) {
	defer a.wg.Done()
	client := tibber.NewClient(a.config.Token())
	for {
		viewer, err := client.Viewer(ctx)
		if err != nil {
			logrus.Errorf("fetching tibber viewer: %s", err)
		} else {
			err = client.SubscribeLiveMeasurement(ctx, viewer.WebsocketSubscriptionURL, a.config.TibberHomeID, func(lm tibber.LiveMeasurement) {
				a.handleMeasurement(ctx, lm)
			})
			if err != nil {
				logrus.Errorf("live subscription ended: %s", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (a *App) handleMeasurement(ctx context.Context, lm tibber.LiveMeasurement) {
	if a.monitor != nil {
		a.monitor.HandleMeasurement(ctx, lm)
	}
	a.state.Update(func(s *state.State) {
		s.Power = &lm.Power
		if a.monitor != nil {
			paused := a.monitor.LoadPaused()
			s.LoadPaused = &paused
		}
	})
}

// startMeters starts the local meter sources, the embedded MQTT
// broker for p1ib dongles and the M-Bus poller.
func (a *App) startMeters(ctx context.Context) error {
	if a.config.MQTTAddress != "" && a.config.MeterModel == "p1ib" {
		_, err := mqtt.Start(ctx, a.wg, a.config.MQTTAddress, func(d *meter.Data) {
			a.meterCache.Set(d)
			a.handleMeasurement(ctx, d.AsLiveMeasurement())
		})
		if err != nil {
			return fmt.Errorf("starting mqtt broker: %w", err)
		}
	}

	if a.config.MbusDevice != "" && a.config.MeterID != "" && a.config.MeterModel != "" && a.config.MeterModel != "p1ib" {
		reader := mbus.New(a.config.MbusDevice)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			defer reader.Close()
			ticker := time.NewTicker(mbusReadInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					data, err := reader.ReadValues(a.config.MeterModel, a.config.MeterID)
					if err != nil {
						logrus.Errorf("reading mbus meter: %s", err)
						continue
					}
					a.meterCache.Set(data)
					a.handleMeasurement(ctx, data.AsLiveMeasurement())
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return nil
}

func (a *App) startClimate(ctx context.Context) error {
	if a.config.SensiboToken == "" || a.config.SensiboDevice == "" {
		return nil
	}
	client := sensibo.NewClient(a.config.SensiboToken)
	devices, err := client.Devices(ctx)
	if err != nil {
		return fmt.Errorf("listing sensibo devices: %w", err)
	}
	uid, ok := devices[a.config.SensiboDevice]
	if !ok {
		return fmt.Errorf("sensibo device %q not found", a.config.SensiboDevice)
	}

	cfg := climate.Config{
		IndoorReport: func(v float64) {
			a.state.Update(func(s *state.State) {
				s.Indoor = &v
			})
		},
	}
	if a.config.AtHomeUntil != "" {
		until, err := time.Parse(time.RFC3339, a.config.AtHomeUntil)
		if err != nil {
			return fmt.Errorf("parsing athomeuntil: %w", err)
		}
		cfg.AtHomeUntil = &until
	}

	engine := climate.NewEngine(cfg, price.NewAnalyzer(price.DefaultAnalyzerConfig()), a.prices, sensibo.NewController(client, uid), a.outdoor)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		engine.Run(ctx)
	}()
	return nil
}

// startHTTP serves prometheus metrics and the state snapshot.
func (a *App) startHTTP(ctx context.Context) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		s := a.state.Get()
		m := s.Map()
		m["alarms"] = a.alarms.List()
		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(m)
		if err != nil {
			logrus.Errorf("encoding status: %s", err)
		}
	})

	srv := &http.Server{Addr: a.config.MetricsAddress, Handler: mux}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
}

func (a *App) setAlarmState() {
	raised := len(a.alarms.List()) > 0
	a.state.Update(func(s *state.State) {
		s.Alarm = &raised
	})
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
