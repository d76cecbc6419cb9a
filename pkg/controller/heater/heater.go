package heater

import (
	"context"
	"fmt"

	"github.com/hemel-se/optimizer/pkg/controller"
	"github.com/hemel-se/optimizer/pkg/modbusclient"
	"github.com/sirupsen/logrus"
)

// register map, temperatures scale 100
const (
	startTempRegister = 22 // holding, heating starts below this
	stopTempRegister  = 23 // holding, heating stops at this
	tankTempRegister  = 17 // input, weighted tank temperature
	energyRegister32  = 30 // holding, lifetime energy Wh
	boostCoil         = 2  // coil, engages the second element
	startHysteresis   = 5
	nudgeDegrees      = 2

	// the primary element alone tops out below legionella targets
	boostAboveTemp = 60
)

// Heater drives an immersion heater over modbus TCP by writing the
// start and stop temperature registers.
type Heater struct {
	client   modbusclient.Client
	readonly bool
}

func New(client modbusclient.Client, readonly bool) *Heater {
	return &Heater{
		client:   client,
		readonly: readonly,
	}
}

func (h *Heater) SetTemperature(ctx context.Context, degrees int) error {
	start := degrees - startHysteresis
	logrus.WithFields(logrus.Fields{"start": start, "stop": degrees}).Debugf("heater: set temperature")
	if h.readonly {
		return nil
	}

	_, err := h.client.WriteSingleRegister(startTempRegister, uint16(start*100))
	if err != nil {
		return fmt.Errorf("error writeTemps %d: %w", startTempRegister, err)
	}

	_, err = h.client.WriteSingleRegister(stopTempRegister, uint16(degrees*100))
	if err != nil {
		return fmt.Errorf("error writeTemps %d: %w", stopTempRegister, err)
	}

	_, err = h.client.WriteSingleCoil(boostCoil, modbusclient.CoilValue(degrees >= boostAboveTemp))
	if err != nil {
		return fmt.Errorf("error writing boost coil: %w", err)
	}
	return nil
}

func (h *Heater) NudgeUp(ctx context.Context) error {
	return h.nudge(nudgeDegrees)
}

func (h *Heater) NudgeDown(ctx context.Context) error {
	return h.nudge(-nudgeDegrees)
}

// nudge shifts the stop temperature only. The next hourly
// SetTemperature restores both registers.
func (h *Heater) nudge(delta int) error {
	stop, err := h.client.ReadHoldingRegister16(stopTempRegister)
	if err != nil {
		return err
	}
	newStop := stop + delta*100
	logrus.WithFields(logrus.Fields{"stop": newStop}).Debugf("heater: nudge")
	if h.readonly {
		return nil
	}
	_, err = h.client.WriteSingleRegister(stopTempRegister, uint16(newStop))
	if err != nil {
		return fmt.Errorf("error writeTemps %d: %w", stopTempRegister, err)
	}
	return nil
}

// TankTemperature reads the weighted tank temperature.
func (h *Heater) TankTemperature() (*float64, error) {
	return controller.Scale100itof(h.client.ReadInputRegister(tankTempRegister))
}

// LifetimeEnergy reads the lifetime energy counter in Wh.
func (h *Heater) LifetimeEnergy() (int, error) {
	return h.client.ReadHoldingRegister32(energyRegister32)
}
